// Package pipeline wires fetching, ranking, layout and delivery into the
// operations the HTTP API and the post command expose.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/apperr"
	"github.com/JakeFAU/leaderboard-webhooks/internal/config"
	"github.com/JakeFAU/leaderboard-webhooks/internal/layout"
	"github.com/JakeFAU/leaderboard-webhooks/internal/leaderboard"
	"github.com/JakeFAU/leaderboard-webhooks/internal/linkpreview"
	"github.com/JakeFAU/leaderboard-webhooks/internal/webhook"
)

// Message identities.
const (
	LeaderboardUsername  = "Advent of Code Leaderboard"
	AnnouncementUsername = "Advent of Code"
	DigestUsername       = "Slackify"
	TreeEmoji            = ":christmas_tree:"
	DigestEmoji          = ":meow_code:"
)

// BoardFetcher reads a private leaderboard.
type BoardFetcher interface {
	Fetch(ctx context.Context, req leaderboard.Request) (leaderboard.Board, error)
	BoardURL(req leaderboard.Request) string
}

// PreviewCollector turns candidate links into previews.
type PreviewCollector interface {
	Collect(ctx context.Context, items []linkpreview.Item) []linkpreview.Preview
}

// Clock supplies wall-clock time in the configured zone.
type Clock interface {
	Now() time.Time
}

// Deps are the collaborators a Service drives.
type Deps struct {
	Board    BoardFetcher
	Sink     webhook.Sink
	Trigger  *CertificateTrigger
	Previews PreviewCollector
	Clock    Clock
	Logger   *zap.Logger
}

// Service runs the leaderboard post, announcements and link digests.
type Service struct {
	board      config.LeaderboardConfig
	webhookURI string
	loc        *time.Location
	deps       Deps
	logger     *zap.Logger
}

// NewService validates deps and builds a Service.
func NewService(cfg config.Config, deps Deps) (*Service, error) {
	if deps.Board == nil || deps.Sink == nil || deps.Clock == nil {
		return nil, errors.New("pipeline: board, sink and clock are required")
	}
	loc, err := cfg.Leaderboard.Location()
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		board:      cfg.Leaderboard,
		webhookURI: cfg.Webhook.URI,
		loc:        loc,
		deps:       deps,
		logger:     logger,
	}, nil
}

// LeaderboardResult summarizes one leaderboard post.
type LeaderboardResult struct {
	Entries int
	Trigger TriggerOutcome
}

// PostLeaderboard fetches, ranks, renders and posts the board, then gives
// the certificate trigger a chance to fire. A trigger failure is logged and
// does not fail the post.
func (s *Service) PostLeaderboard(ctx context.Context) (LeaderboardResult, error) {
	if err := s.board.Require(s.webhookURI); err != nil {
		return LeaderboardResult{}, err
	}
	now := s.deps.Clock.Now()
	req := leaderboard.Request{
		LeaderboardID: s.board.ID,
		SessionID:     s.board.SessionID,
		Year:          s.board.EventYear(now),
	}
	board, err := s.deps.Board.Fetch(ctx, req)
	if err != nil {
		return LeaderboardResult{}, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := leaderboard.Rank(board.Members, s.loc)
	blocks := layout.Leaderboard(entries, layout.LeaderboardOptions{
		BoardURL:     s.deps.Board.BoardURL(req),
		Organization: s.board.Organization,
		BoardCode:    s.board.BoardCode,
	})
	username := LeaderboardUsername
	if s.board.Organization != "" {
		username += " | " + s.board.Organization
	}
	if err := s.deps.Sink.Post(ctx, webhook.Message{Username: username, IconEmoji: TreeEmoji, Blocks: blocks}); err != nil {
		return LeaderboardResult{}, fmt.Errorf("post leaderboard: %w", err)
	}
	s.logger.Info("leaderboard posted", zap.Int("entries", len(entries)), zap.Int("year", req.Year))

	result := LeaderboardResult{Entries: len(entries), Trigger: TriggerDisabled}
	if s.deps.Trigger == nil {
		return result, nil
	}
	key := fmt.Sprintf("%s:%d", s.board.ID, req.Year)
	outcome, err := s.deps.Trigger.Fire(ctx, key, entries)
	if err != nil {
		s.logger.Error("certificate trigger failed", zap.String("key", key), zap.Error(err))
	}
	result.Trigger = outcome
	return result, nil
}

// Announce posts caller-supplied blocks verbatim.
func (s *Service) Announce(ctx context.Context, blocks []slack.Block) error {
	if s.webhookURI == "" {
		return apperr.MissingField("Missing webhook URI")
	}
	if len(blocks) == 0 {
		return apperr.BadRequest("blocks must be a non-empty array")
	}
	msg := webhook.Message{Username: AnnouncementUsername, IconEmoji: TreeEmoji, Blocks: blocks}
	if err := s.deps.Sink.Post(ctx, msg); err != nil {
		return fmt.Errorf("post announcement: %w", err)
	}
	s.logger.Info("announcement posted", zap.Int("blocks", len(blocks)))
	return nil
}

// Digest collects previews for items, renders them and posts the digest when
// a webhook is configured. The rendered blocks are returned either way.
func (s *Service) Digest(ctx context.Context, items []linkpreview.Item) ([]slack.Block, error) {
	if s.deps.Previews == nil {
		return nil, errors.New("pipeline: link previews are not configured")
	}
	previews := s.deps.Previews.Collect(ctx, items)
	blocks := layout.LinkPreviews(previews)
	if s.webhookURI == "" {
		return blocks, nil
	}
	msg := webhook.Message{Username: DigestUsername, IconEmoji: DigestEmoji, Blocks: blocks}
	if err := s.deps.Sink.Post(ctx, msg); err != nil {
		return nil, fmt.Errorf("post digest: %w", err)
	}
	s.logger.Info("link digest posted", zap.Int("previews", len(previews)))
	return blocks, nil
}
