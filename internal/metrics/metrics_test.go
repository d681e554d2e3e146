package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://AdventOfCode.com/2022/leaderboard", "adventofcode.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := webhookPostsTotal
	Init()

	if webhookPostsTotal == nil || webhookPostsTotal != first {
		t.Fatal("Init() should register collectors exactly once")
	}
}

func TestObservers(t *testing.T) {
	Init()

	okBefore := testutil.ToFloat64(webhookPostsTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(webhookPostsTotal.WithLabelValues("error"))
	ObserveWebhookPost(nil)
	ObserveWebhookPost(errors.New("slack down"))
	if got := testutil.ToFloat64(webhookPostsTotal.WithLabelValues("ok")) - okBefore; got != 1 {
		t.Errorf("expected one ok webhook post, got %f", got)
	}
	if got := testutil.ToFloat64(webhookPostsTotal.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("expected one failed webhook post, got %f", got)
	}

	upBefore := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("adventofcode.com", "error"))
	ObserveUpstream("https://adventofcode.com/2022/leaderboard/private/view/1.json", 0)
	if got := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("adventofcode.com", "error")) - upBefore; got != 1 {
		t.Errorf("expected transport failure to be counted, got %f", got)
	}

	lpBefore := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues(LinkPreviewTarget, "200"))
	ObserveUpstreamTarget(LinkPreviewTarget, 200)
	if got := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues(LinkPreviewTarget, "200")) - lpBefore; got != 1 {
		t.Errorf("expected link preview scrape to be counted, got %f", got)
	}

	trigBefore := testutil.ToFloat64(certificateTriggerTotal.WithLabelValues("idle"))
	ObserveCertificateTrigger("idle")
	if got := testutil.ToFloat64(certificateTriggerTotal.WithLabelValues("idle")) - trigBefore; got != 1 {
		t.Errorf("expected idle trigger to be counted, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://adventofcode.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
