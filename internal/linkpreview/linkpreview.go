// Package linkpreview turns a list of links into a filtered, deduplicated set
// of OpenGraph previews.
package linkpreview

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

// Item is one candidate link.
type Item struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Metadata is what a scraper extracted from a page.
type Metadata struct {
	Title              string
	URL                string
	SiteName           string
	Description        string
	Image              string
	TwitterDescription string
	TwitterImage       string
	RequestURL         string
}

// Preview is the normalized shape rendered into a digest.
type Preview struct {
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Scraper reads page metadata for a URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (Metadata, error)
}

// Normalize collapses metadata into a preview. The URL falls back to the
// request URL, the description and image to their twitter variants.
func Normalize(m Metadata) Preview {
	p := Preview{
		Title:       m.Title,
		URL:         m.URL,
		Description: m.Description,
		Image:       m.Image,
	}
	if p.URL == "" {
		p.URL = m.RequestURL
	}
	if p.Description == "" {
		p.Description = m.TwitterDescription
	}
	if p.Image == "" {
		p.Image = m.TwitterImage
	}
	return p
}

// Filter holds the title and domain blocklists. A nil pattern matches nothing.
type Filter struct {
	titles  *regexp.Regexp
	domains *regexp.Regexp
}

// NewFilter compiles case-insensitive alternations of the given patterns.
func NewFilter(titlePatterns, domainPatterns []string) (*Filter, error) {
	titles, err := compile(titlePatterns)
	if err != nil {
		return nil, fmt.Errorf("title blocklist: %w", err)
	}
	domains, err := compile(domainPatterns)
	if err != nil {
		return nil, fmt.Errorf("domain blocklist: %w", err)
	}
	return &Filter{titles: titles, domains: domains}, nil
}

func compile(patterns []string) (*regexp.Regexp, error) {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + strings.Join(kept, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", kept, err)
	}
	return re, nil
}

// TitleBlocked reports whether title matches the title blocklist.
func (f *Filter) TitleBlocked(title string) bool {
	return f != nil && f.titles != nil && f.titles.MatchString(title)
}

// DomainBlocked reports whether the page's canonical URL, site name or
// request URL matches the domain blocklist.
func (f *Filter) DomainBlocked(m Metadata) bool {
	if f == nil || f.domains == nil {
		return false
	}
	for _, s := range []string{m.URL, m.SiteName, m.RequestURL} {
		if s != "" && f.domains.MatchString(s) {
			return true
		}
	}
	return false
}

// Service collects previews for batches of links.
type Service struct {
	scraper     Scraper
	filter      *Filter
	concurrency int
	logger      *zap.Logger
}

// NewService builds a Service. Concurrency caps simultaneous scrapes; zero
// or less scrapes every link at once.
func NewService(scraper Scraper, filter *Filter, concurrency int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scraper: scraper, filter: filter, concurrency: concurrency, logger: logger}
}

// Candidates drops items with no title or a blocked title, then drops
// repeated URLs keeping the first occurrence.
func (s *Service) Candidates(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Title == "" || s.filter.TitleBlocked(item.Title) {
			metrics.ObserveLinkPreview("excluded_title")
			continue
		}
		if _, dup := seen[item.URL]; dup {
			metrics.ObserveLinkPreview("duplicate")
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Collect scrapes every candidate concurrently and waits for all of them.
// Failed scrapes are skipped. Previews keep candidate order.
func (s *Service) Collect(ctx context.Context, items []Item) []Preview {
	candidates := s.Candidates(items)
	scraped := make([]*Metadata, len(candidates))

	var eg errgroup.Group
	if s.concurrency > 0 {
		eg.SetLimit(s.concurrency)
	}
	for i, item := range candidates {
		eg.Go(func() error {
			m, err := s.scraper.Scrape(ctx, item.URL)
			if err != nil {
				metrics.ObserveLinkPreview("fetch_failed")
				s.logger.Warn("link preview scrape failed", zap.String("url", item.URL), zap.Error(err))
				return nil
			}
			if m.RequestURL == "" {
				m.RequestURL = item.URL
			}
			scraped[i] = &m
			return nil
		})
	}
	_ = eg.Wait()

	previews := make([]Preview, 0, len(scraped))
	for _, m := range scraped {
		if m == nil {
			continue
		}
		if s.filter.DomainBlocked(*m) {
			metrics.ObserveLinkPreview("excluded_domain")
			continue
		}
		metrics.ObserveLinkPreview("rendered")
		previews = append(previews, Normalize(*m))
	}
	s.logger.Info("link previews collected",
		zap.Int("requested", len(items)),
		zap.Int("candidates", len(candidates)),
		zap.Int("rendered", len(previews)),
	)
	return previews
}
