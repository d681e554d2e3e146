// Package collyfetcher implements linkpreview.Scraper using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/leaderboard-webhooks/internal/linkpreview"
	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher reads OpenGraph and Twitter card metadata with the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnHTML(string, colly.HTMLCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Scrape fetches url and extracts its preview metadata.
func (f *Fetcher) Scrape(ctx context.Context, url string) (linkpreview.Metadata, error) {
	var (
		page     pageMeta
		fetchErr error
	)
	collector := f.buildCollector(&page, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return linkpreview.Metadata{}, err
	}
	return page.metadata(url), nil
}

func (f *Fetcher) buildCollector(page *pageMeta, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, page, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, page *pageMeta, fetchErr *error) {
	hooks.OnHTML("meta", func(e *colly.HTMLElement) {
		key := e.Attr("property")
		if key == "" {
			key = e.Attr("name")
		}
		value := strings.TrimSpace(e.Attr("content"))
		if isImageKey(key) && value != "" {
			value = e.Request.AbsoluteURL(value)
		}
		page.set(strings.ToLower(key), value)
	})

	hooks.OnHTML("title", func(e *colly.HTMLElement) {
		if page.documentTitle == "" {
			page.documentTitle = strings.TrimSpace(e.Text)
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		metrics.ObserveUpstreamTarget(metrics.LinkPreviewTarget, r.StatusCode)
		page.finalURL = r.Request.URL.String()
	})

	hooks.OnError(func(r *colly.Response, err error) {
		code := 0
		if r != nil {
			code = r.StatusCode
		}
		metrics.ObserveUpstreamTarget(metrics.LinkPreviewTarget, code)
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func isImageKey(key string) bool {
	switch strings.ToLower(key) {
	case "og:image", "og:image:url", "og:image:secure_url", "twitter:image", "twitter:image:src":
		return true
	}
	return false
}

// pageMeta accumulates the first value seen for each recognized key.
type pageMeta struct {
	tags          map[string]string
	documentTitle string
	finalURL      string
}

func (p *pageMeta) set(key, value string) {
	if key == "" || value == "" {
		return
	}
	if p.tags == nil {
		p.tags = make(map[string]string)
	}
	if _, ok := p.tags[key]; !ok {
		p.tags[key] = value
	}
}

func (p *pageMeta) first(keys ...string) string {
	for _, k := range keys {
		if v := p.tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func (p *pageMeta) metadata(requestURL string) linkpreview.Metadata {
	title := p.first("og:title")
	if title == "" {
		title = p.documentTitle
	}
	if requestURL == "" {
		requestURL = p.finalURL
	}
	return linkpreview.Metadata{
		Title:              title,
		URL:                p.first("og:url"),
		SiteName:           p.first("og:site_name"),
		Description:        p.first("og:description", "description"),
		Image:              p.first("og:image", "og:image:url", "og:image:secure_url"),
		TwitterDescription: p.first("twitter:description"),
		TwitterImage:       p.first("twitter:image", "twitter:image:src"),
		RequestURL:         requestURL,
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
