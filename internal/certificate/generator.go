package certificate

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
)

// GeneratorConfig controls certificate rendering and storage.
type GeneratorConfig struct {
	// Topic is the line printed under the name.
	Topic string
	// Prefix is prepended to every stored object key.
	Prefix string
	// Concurrency caps simultaneous renders; zero renders every member at once.
	Concurrency int
}

// Generator renders certificates and stores them.
type Generator struct {
	cfg      GeneratorConfig
	renderer *Renderer
	store    BlobStore
	medals   MedalSource
	ids      IDGenerator
	logger   *zap.Logger
}

// NewGenerator wires a Generator.
func NewGenerator(
	cfg GeneratorConfig,
	renderer *Renderer,
	store BlobStore,
	medals MedalSource,
	ids IDGenerator,
	logger *zap.Logger,
) (*Generator, error) {
	if renderer == nil || store == nil || medals == nil || ids == nil {
		return nil, fmt.Errorf("renderer, store, medals and ids are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		cfg:      cfg,
		renderer: renderer,
		store:    store,
		medals:   medals,
		ids:      ids,
		logger:   logger,
	}, nil
}

// Request satisfies Requester in-process.
func (g *Generator) Request(ctx context.Context, members []Member) ([]Certificate, error) {
	return g.Generate(ctx, members)
}

// Generate renders every member concurrently and waits for all of them. The
// first failure cancels the batch and nothing is returned. Results are in
// request order.
func (g *Generator) Generate(ctx context.Context, members []Member) ([]Certificate, error) {
	results := make([]Certificate, len(members))
	eg, egCtx := errgroup.WithContext(ctx)
	if g.cfg.Concurrency > 0 {
		eg.SetLimit(g.cfg.Concurrency)
	}
	for i, m := range members {
		rank := i + 1
		eg.Go(func() error {
			cert, err := g.generateOne(egCtx, m.Name, rank)
			metrics.ObserveCertificate(err)
			if err != nil {
				return fmt.Errorf("certificate %d: %w", rank, err)
			}
			results[i] = cert
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	g.logger.Info("certificates generated", zap.Int("count", len(results)))
	return results, nil
}

func (g *Generator) generateOne(ctx context.Context, name string, rank int) (Certificate, error) {
	medal, err := g.medals.Medal(ctx, rank)
	if err != nil {
		return Certificate{}, err
	}
	img, err := g.renderer.Render(name, g.cfg.Topic, medal)
	if err != nil {
		return Certificate{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Certificate{}, fmt.Errorf("encode png: %w", err)
	}
	id, err := g.ids.NewID()
	if err != nil {
		return Certificate{}, err
	}
	key := path.Join(g.cfg.Prefix, fmt.Sprintf("%s-%s.png", slug(name), id))
	url, err := g.store.PutObject(ctx, key, "image/png", &buf)
	if err != nil {
		return Certificate{}, fmt.Errorf("store certificate: %w", err)
	}
	g.logger.Debug("certificate stored", zap.Int("rank", rank), zap.String("key", key))
	return Certificate{Name: name, Rank: rank, URL: url}, nil
}

// slug reduces name to a lowercase ASCII object-name fragment.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "member"
	}
	return out
}
