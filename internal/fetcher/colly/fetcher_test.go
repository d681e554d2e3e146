package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

const articleHTML = `<!doctype html>
<html><head>
<title>Document title</title>
<meta property="og:title" content="Generics in Go">
<meta property="og:site_name" content="Go Blog">
<meta property="og:image" content="/img/cover.png">
<meta property="og:image" content="/img/second.png">
<meta name="twitter:description" content="A tour of type parameters">
<meta name="twitter:image" content="https://cdn.example.com/tw.png">
</head><body>hi</body></html>`

func TestScrapeReadsOpenGraph(t *testing.T) {
	t.Parallel()

	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "preview-agent", Timeout: 5 * time.Second})
	meta, err := f.Scrape(context.Background(), srv.URL+"/post")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if userAgent != "preview-agent" {
		t.Fatalf("expected user agent override, got %q", userAgent)
	}
	if meta.Title != "Generics in Go" || meta.SiteName != "Go Blog" {
		t.Fatalf("unexpected title/site: %+v", meta)
	}
	if meta.Image != srv.URL+"/img/cover.png" {
		t.Fatalf("expected first og:image resolved against page, got %q", meta.Image)
	}
	if meta.TwitterDescription != "A tour of type parameters" || meta.TwitterImage != "https://cdn.example.com/tw.png" {
		t.Fatalf("unexpected twitter fields: %+v", meta)
	}
	if meta.URL != "" || meta.RequestURL != srv.URL+"/post" {
		t.Fatalf("unexpected urls: %+v", meta)
	}

	// Same URL twice must not be refused as already visited.
	if _, err := f.Scrape(context.Background(), srv.URL+"/post"); err != nil {
		t.Fatalf("second Scrape() error = %v", err)
	}
}

func TestScrapeFallsBackToDocumentTitle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title> Plain page </title><meta name="description" content="desc"></head></html>`)
	}))
	defer srv.Close()

	meta, err := New(Config{}).Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if meta.Title != "Plain page" || meta.Description != "desc" {
		t.Fatalf("expected document fallbacks, got %+v", meta)
	}
}

func TestScrapeReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := New(Config{}).Scrape(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestScrapeHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Timeout: time.Second}).Scrape(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	var page pageMeta
	var fetchErr error

	hooks := &stubHooks{html: map[string]colly.HTMLCallback{}}
	f.configureCollectorHooks(hooks, &page, &fetchErr)
	if hooks.html["meta"] == nil || hooks.html["title"] == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestPageMetaKeepsFirstValue(t *testing.T) {
	t.Parallel()

	var p pageMeta
	p.set("og:title", "first")
	p.set("og:title", "second")
	p.set("og:url", "")
	p.set("", "ignored")
	meta := p.metadata("https://example.com")
	if meta.Title != "first" || meta.URL != "" || meta.RequestURL != "https://example.com" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

type stubHooks struct {
	html       map[string]colly.HTMLCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnHTML(selector string, cb colly.HTMLCallback) {
	s.html[selector] = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

// upstreamSeries counts upstream_requests_total samples by target label.
func upstreamSeries(t *testing.T) map[string]float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "upstream_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "target" {
					out[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}

func TestScrapeUsesFixedMetricsTarget(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	metrics.Init()
	before := upstreamSeries(t)[metrics.LinkPreviewTarget]
	if _, err := New(Config{}).Scrape(context.Background(), srv.URL); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	after := upstreamSeries(t)
	if after[metrics.LinkPreviewTarget] <= before {
		t.Fatalf("expected scrape counted under %q, got %v", metrics.LinkPreviewTarget, after)
	}
	if _, ok := after["127.0.0.1"]; ok {
		t.Fatalf("scraped host leaked into metric labels: %v", after)
	}
}
