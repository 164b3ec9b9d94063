// Package services – BroadcastService
//
// This file implements the broadcast/dedup tracker: manual keyword
// broadcasts against the all-time sent set, the periodic sweep of newly
// added content against per-day records, and the two independent retention
// prunes. Everything here is best-effort: a per-recipient failure is
// logged and the fan-out continues.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-keyword-bot/internal/domain"
	"github.com/tbourn/go-keyword-bot/internal/metrics"
)

// RecipientStore defines the repository contract for recipient records and
// their dedup structures.
type RecipientStore interface {
	All(ctx context.Context) ([]domain.Recipient, error)
	MarkSent(ctx context.Context, id int64, keyword string) error
	MarkSentToday(ctx context.Context, id int64, date, keyword string) error
	PruneDaily(ctx context.Context, cutoffDate string) (int64, error)
}

// ContentSource yields new and resolvable content for broadcast fan-out.
type ContentSource interface {
	Resolve(ctx context.Context, keyword string) (*domain.ContentBundle, error)
}

// ContentPruner removes keyword entries past the retention horizon.
type ContentPruner interface {
	CreatedSince(ctx context.Context, t time.Time) ([]domain.KeywordEntry, error)
	PurgeOlderThan(ctx context.Context, t time.Time) (int64, error)
}

// BundleDeliverer is the slice of the delivery engine the tracker needs.
type BundleDeliverer interface {
	Deliver(ctx context.Context, chatID int64, bundle *domain.ContentBundle, opts DeliverOptions) []domain.MessageRef
}

// BroadcastService drives manual broadcasts, scheduled sweeps, and the two
// retention prunes.
type BroadcastService struct {
	Recipients RecipientStore
	Content    ContentSource
	Entries    ContentPruner
	Delivery   BundleDeliverer
	Log        zerolog.Logger

	// DailyRetention bounds the per-day dedup records (48h in production);
	// KeywordRetention bounds entry lifetime (365d). The two prunes are
	// independent policies on independent schedules.
	DailyRetention   time.Duration
	KeywordRetention time.Duration
}

// Broadcast delivers the bundle for keyword to every recipient whose
// all-time sent set does not already contain it, recording each delivery in
// the set. Returns how many recipients were sent to and how many were
// skipped by dedup.
func (s *BroadcastService) Broadcast(ctx context.Context, keyword string, pin bool) (sent, skipped int, err error) {
	bundle, err := s.Content.Resolve(ctx, keyword)
	if err != nil {
		return 0, 0, err
	}
	if bundle == nil {
		return 0, 0, ErrEmptyKeyword
	}
	recipients, err := s.Recipients.All(ctx)
	if err != nil {
		return 0, 0, err
	}

	run := uuid.NewString()
	log := s.Log.With().Str("run", run).Str("keyword", bundle.Keyword).Logger()
	log.Info().Int("recipients", len(recipients)).Bool("pin", pin).Msg("broadcast started")

	opts := DeliverOptions{Permanent: pin, Pin: pin}
	for _, r := range recipients {
		if r.SentEver(bundle.Keyword) {
			skipped++
			continue
		}
		if refs := s.Delivery.Deliver(ctx, r.ID, bundle, opts); len(refs) == 0 {
			continue
		}
		sent++
		metrics.BroadcastSends.Inc()
		if err := s.Recipients.MarkSent(ctx, r.ID, bundle.Keyword); err != nil {
			log.Warn().Err(err).Int64("chat", r.ID).Msg("mark sent failed")
		}
	}
	log.Info().Int("sent", sent).Int("skipped", skipped).Msg("broadcast finished")
	return sent, skipped, nil
}

// Sweep fans out content created since the start of the current calendar
// day to every recipient that has not received it under today's date key,
// recording each delivery. Recipients or content added mid-window are
// picked up by the next sweep.
func (s *BroadcastService) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today := now.Format(domain.DateKey)

	fresh, err := s.Entries.CreatedSince(ctx, startOfDay)
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		return nil
	}
	recipients, err := s.Recipients.All(ctx)
	if err != nil {
		return err
	}

	run := uuid.NewString()
	log := s.Log.With().Str("run", run).Logger()
	log.Info().Int("new", len(fresh)).Int("recipients", len(recipients)).Msg("sweep started")

	var sent int
	for _, e := range fresh {
		bundle, err := s.Content.Resolve(ctx, e.Keyword)
		if err != nil || bundle == nil {
			continue
		}
		for _, r := range recipients {
			if r.SentToday(today, e.Keyword) {
				continue
			}
			if refs := s.Delivery.Deliver(ctx, r.ID, bundle, DeliverOptions{}); len(refs) == 0 {
				continue
			}
			sent++
			metrics.SweepSends.Inc()
			if err := s.Recipients.MarkSentToday(ctx, r.ID, today, e.Keyword); err != nil {
				log.Warn().Err(err).Int64("chat", r.ID).Str("keyword", e.Keyword).Msg("mark sent today failed")
			}
		}
	}
	log.Info().Int("sent", sent).Msg("sweep finished")
	return nil
}

// PruneDailyRecords drops per-day dedup records older than the daily
// retention horizon across all recipients.
func (s *BroadcastService) PruneDailyRecords(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.DailyRetention).Format(domain.DateKey)
	touched, err := s.Recipients.PruneDaily(ctx, cutoff)
	if err != nil {
		return err
	}
	s.Log.Info().Str("cutoff", cutoff).Int64("recipients", touched).Msg("daily records pruned")
	return nil
}

// PruneKeywords removes keyword entries created before the keyword
// retention horizon.
func (s *BroadcastService) PruneKeywords(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.KeywordRetention)
	removed, err := s.Entries.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.Log.Info().Int64("removed", removed).Msg("stale keywords purged")
	}
	return nil
}
