package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

const maxResponseBytes = 1 << 20

// Client requests certificates from a remote render service exposing the
// certificate endpoint.
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

// NewClient builds a Client for the service at baseURL, authenticating with secret.
func NewClient(baseURL, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/certificate",
		secret:     secret,
		httpClient: httpClient,
	}
}

type requestBody struct {
	Members []Member `json:"members"`
}

type responseBody struct {
	Response string          `json:"response"`
	Data     json.RawMessage `json:"data"`
}

// Request posts members to the render service. A response whose data is not
// an array yields no certificates and no error.
func (c *Client) Request(ctx context.Context, members []Member) ([]Certificate, error) {
	payload, err := json.Marshal(requestBody{Members: members})
	if err != nil {
		return nil, fmt.Errorf("encode certificate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build certificate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(c.endpoint, 0)
		return nil, fmt.Errorf("request certificates: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	metrics.ObserveUpstream(c.endpoint, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request certificates: unexpected status %d", resp.StatusCode)
	}

	var body responseBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode certificate response: %w", err)
	}
	trimmed := bytes.TrimSpace(body.Data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}
	var certs []Certificate
	if err := json.Unmarshal(trimmed, &certs); err != nil {
		return nil, fmt.Errorf("decode certificates: %w", err)
	}
	return certs, nil
}
