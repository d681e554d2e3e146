package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/certificate"
	"github.com/JakeFAU/leaderboard-webhooks/internal/layout"
	"github.com/JakeFAU/leaderboard-webhooks/internal/leaderboard"
	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
	"github.com/JakeFAU/leaderboard-webhooks/internal/webhook"
)

// TriggerOutcome names what a trigger evaluation did.
type TriggerOutcome string

// Trigger outcomes.
const (
	TriggerDisabled TriggerOutcome = "disabled"
	TriggerIdle     TriggerOutcome = "idle"
	TriggerLatched  TriggerOutcome = "latched"
	TriggerEmpty    TriggerOutcome = "empty"
	TriggerFired    TriggerOutcome = "fired"
	TriggerError    TriggerOutcome = "error"
)

// FireLatch remembers keys that already fired. A key acquired for a run that
// then fails is released so a later run can retry.
type FireLatch interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// TriggerConfig sets the event end date.
type TriggerConfig struct {
	EndMonth time.Month
	EndDay   int
}

// CertificateTrigger requests certificates and posts them once the event end
// date is reached. Without a latch it fires on every evaluation that day.
type CertificateTrigger struct {
	cfg       TriggerConfig
	clock     Clock
	requester certificate.Requester
	sink      webhook.Sink
	latch     FireLatch
	logger    *zap.Logger
}

// NewCertificateTrigger builds a trigger. latch may be nil.
func NewCertificateTrigger(
	cfg TriggerConfig,
	clock Clock,
	requester certificate.Requester,
	sink webhook.Sink,
	latch FireLatch,
	logger *zap.Logger,
) (*CertificateTrigger, error) {
	if clock == nil || requester == nil || sink == nil {
		return nil, fmt.Errorf("trigger: clock, requester and sink are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateTrigger{
		cfg:       cfg,
		clock:     clock,
		requester: requester,
		sink:      sink,
		latch:     latch,
		logger:    logger,
	}, nil
}

// EventOver reports whether now falls on the configured end date.
func (t *CertificateTrigger) EventOver(now time.Time) bool {
	return now.Month() == t.cfg.EndMonth && now.Day() == t.cfg.EndDay
}

// Fire evaluates the trigger for entries. key identifies the run for the latch.
func (t *CertificateTrigger) Fire(ctx context.Context, key string, entries []leaderboard.RankedEntry) (TriggerOutcome, error) {
	outcome, err := t.fire(ctx, key, entries)
	metrics.ObserveCertificateTrigger(string(outcome))
	return outcome, err
}

func (t *CertificateTrigger) fire(ctx context.Context, key string, entries []leaderboard.RankedEntry) (TriggerOutcome, error) {
	if !t.EventOver(t.clock.Now()) {
		return TriggerIdle, nil
	}
	if t.latch != nil {
		first, err := t.latch.Acquire(ctx, key)
		if err != nil {
			return TriggerError, fmt.Errorf("acquire fire latch: %w", err)
		}
		if !first {
			t.logger.Info("certificates already sent", zap.String("key", key))
			return TriggerLatched, nil
		}
	}

	outcome, err := t.send(ctx, key, entries)
	if err != nil && t.latch != nil {
		// The request may have been cancelled; the release must still land.
		if relErr := t.latch.Release(context.WithoutCancel(ctx), key); relErr != nil {
			t.logger.Error("release fire latch failed", zap.String("key", key), zap.Error(relErr))
		}
	}
	return outcome, err
}

func (t *CertificateTrigger) send(ctx context.Context, key string, entries []leaderboard.RankedEntry) (TriggerOutcome, error) {
	members := make([]certificate.Member, 0, len(entries))
	for _, e := range entries {
		members = append(members, certificate.Member{Name: e.DisplayName(), Stars: e.Stars})
	}
	certs, err := t.requester.Request(ctx, members)
	if err != nil {
		return TriggerError, fmt.Errorf("request certificates: %w", err)
	}
	if len(certs) == 0 {
		return TriggerEmpty, nil
	}

	msg := webhook.Message{
		Username:  LeaderboardUsername,
		IconEmoji: TreeEmoji,
		Blocks:    layout.Certificates(certs),
	}
	if err := t.sink.Post(ctx, msg); err != nil {
		return TriggerError, fmt.Errorf("post certificates: %w", err)
	}
	t.logger.Info("certificates posted", zap.String("key", key), zap.Int("count", len(certs)))
	return TriggerFired, nil
}
