package certificate

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/JakeFAU/leaderboard-webhooks/internal/leaderboard"
	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

const maxMedalBytes = 2 << 20

// HTTPMedals downloads medal artwork from the icon URLs used on the board.
type HTTPMedals struct {
	client  *http.Client
	iconURL func(rank int) string
}

// NewHTTPMedals builds an HTTPMedals. A nil client uses http.DefaultClient.
func NewHTTPMedals(client *http.Client) *HTTPMedals {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPMedals{client: client, iconURL: leaderboard.PodiumIcon}
}

// Medal fetches and decodes the icon for rank.
func (m *HTTPMedals) Medal(ctx context.Context, rank int) (image.Image, error) {
	iconURL := m.iconURL(rank)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build medal request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(iconURL, 0)
		return nil, fmt.Errorf("fetch medal: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	metrics.ObserveUpstream(iconURL, resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch medal: unexpected status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxMedalBytes))
	if err != nil {
		return nil, fmt.Errorf("decode medal: %w", err)
	}
	return img, nil
}
