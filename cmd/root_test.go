package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/app"
	"github.com/JakeFAU/leaderboard-webhooks/internal/config"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func writeConfig(t *testing.T, boardURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
auth:
  api_secret: secret
leaderboard:
  id: "42"
  session_id: cookie
  year: 2022
  board_code: 42-abc
  base_url: ` + boardURL + `
  timezone: UTC
webhook:
  uri: https://hooks.example.com/T/B/X
storage:
  backend: memory
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// withClock pins the clock of every app the command builds.
func withClock(t *testing.T, now time.Time) {
	t.Helper()
	orig := newApp
	newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...app.Option) (*app.App, error) {
		return app.New(ctx, cfg, logger, append(opts, app.WithClock(fixedClock{now: now}))...)
	}
	t.Cleanup(func() { newApp = orig })
}

func TestPostDryRunPrintsMessages(t *testing.T) {
	withClock(t, time.Date(2022, time.December, 3, 12, 0, 0, 0, time.UTC))

	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"event":"2022","members":{
			"1":{"id":1,"name":"alice","stars":2,"local_score":9,"last_star_ts":1670300000}}}`))
	}))
	defer board.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"post", "--dry-run", "--config", writeConfig(t, board.URL), "--env-file", ""})
	require.NoError(t, root.Execute())

	var messages []struct {
		Username  string            `json:"username"`
		IconEmoji string            `json:"icon_emoji"`
		Blocks    []json.RawMessage `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "Advent of Code Leaderboard", messages[0].Username)
	assert.Equal(t, ":christmas_tree:", messages[0].IconEmoji)
	assert.Len(t, messages[0].Blocks, 5)
}

func TestPostFailsOnUpstreamError(t *testing.T) {
	withClock(t, time.Date(2022, time.December, 3, 12, 0, 0, 0, time.UTC))

	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer board.Close()

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"post", "--dry-run", "--config", writeConfig(t, board.URL), "--env-file", ""})
	require.ErrorContains(t, root.Execute(), "fetch leaderboard")
}

func TestRootRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"post", "--config", path, "--env-file", ""})
	require.ErrorContains(t, root.Execute(), "auth.api_secret")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	const key = "LEADERBOARD_WEBHOOKS_TEST_ENV"
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, zap.NewNop()) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:99999", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	err := serve(context.Background(), srv, zap.NewNop())
	require.ErrorContains(t, err, "http server")
}
