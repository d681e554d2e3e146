package leaderboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

// maxBoardBytes bounds the leaderboard document; private boards cap at 200 members.
const maxBoardBytes = 4 << 20

// Request identifies the leaderboard to read.
type Request struct {
	LeaderboardID string
	SessionID     string
	Year          int
}

// Client reads private leaderboards from the leaderboard service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BoardURL returns the human-facing page of the leaderboard.
func (c *Client) BoardURL(req Request) string {
	return fmt.Sprintf("%s/%d/leaderboard/private/view/%s", c.baseURL, req.Year, url.PathEscape(req.LeaderboardID))
}

// Fetch issues one authenticated read of the leaderboard. The returned
// members are unranked.
func (c *Client) Fetch(ctx context.Context, req Request) (Board, error) {
	if req.LeaderboardID == "" || req.SessionID == "" || req.Year <= 0 {
		return Board{}, fmt.Errorf("leaderboard id, session and year are required")
	}
	endpoint := c.BoardURL(req) + ".json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Board{}, fmt.Errorf("build leaderboard request: %w", err)
	}
	httpReq.AddCookie(&http.Cookie{Name: "session", Value: req.SessionID})
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.ObserveUpstream(endpoint, 0)
		return Board{}, fmt.Errorf("fetch leaderboard: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	metrics.ObserveUpstream(endpoint, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Board{}, fmt.Errorf("fetch leaderboard: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBoardBytes))
	if err != nil {
		return Board{}, fmt.Errorf("read leaderboard: %w", err)
	}
	return DecodeBoard(body)
}
