// Package services – DeliveryService
//
// This file implements the delivery engine: it renders a content bundle into
// one or more outbound messages with an interactive button row, dispatches
// them with content protection, and hands every sent message to the
// ephemeral scheduler unless the delivery is marked permanent.
//
// Sends are independently fire-and-forget: a failed send is logged and
// swallowed, never propagated, and later messages of the same delivery are
// still attempted. Deliver only reports what was actually sent.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-keyword-bot/internal/domain"
	"github.com/tbourn/go-keyword-bot/internal/metrics"
)

// Messenger is the messaging-platform port consumed by the delivery engine.
// Implementations map these calls onto the bot framework.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, html string, buttons []domain.ButtonLink, protect bool) (domain.MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, buttons []domain.ButtonLink, protect bool) (domain.MessageRef, error)
	SendVideo(ctx context.Context, chatID int64, fileID, caption string, buttons []domain.ButtonLink, protect bool) (domain.MessageRef, error)
	DeleteMessage(ctx context.Context, ref domain.MessageRef) error
	PinMessage(ctx context.Context, ref domain.MessageRef) error
}

// Shortener converts a long URL into a shortlink, falling back to the input
// on any failure. Implementations never return an error.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) string
	Enabled() bool
}

// Deleter arms a one-shot deletion timer for a sent message. A zero logID
// means no audit entry is tied to the message.
type Deleter interface {
	ScheduleDelete(ref domain.MessageRef, after time.Duration, logID primitive.ObjectID)
}

// AuditStore records shortlink resolutions for the audit trail.
type AuditStore interface {
	Insert(ctx context.Context, e *domain.AccessLogEntry) (primitive.ObjectID, error)
}

// Requester identifies the user whose trigger caused a delivery; used for
// the audit trail only.
type Requester struct {
	UserID    int64
	Username  string
	FirstName string
}

// DeliverOptions tune a single delivery.
type DeliverOptions struct {
	// Permanent skips ephemeral scheduling (pinned broadcast content).
	Permanent bool
	// Pin pins every sent message after delivery.
	Pin bool
	// DeleteAfter overrides the default auto-delete interval when > 0.
	DeleteAfter time.Duration
	// Requester, when set, produces an audit entry for shortlink flows.
	Requester *Requester
}

// Button labels for the slot-driven row.
const (
	primaryLabel   = "Watch Now"
	secondaryLabel = "Join Channel"
)

// DeliveryService renders and dispatches content bundles.
type DeliveryService struct {
	Msgr    Messenger
	Short   Shortener
	Deleter Deleter
	Audit   AuditStore
	Log     zerolog.Logger

	// DeleteAfter is the default ephemeral interval (600s in production).
	DeleteAfter time.Duration
	// InfoButton is the fixed fallback button used when no slots were
	// extracted from the bundle text.
	InfoButton domain.ButtonLink
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(m Messenger, sh Shortener, d Deleter, a AuditStore, deleteAfter time.Duration, info domain.ButtonLink, log zerolog.Logger) *DeliveryService {
	return &DeliveryService{
		Msgr:        m,
		Short:       sh,
		Deleter:     d,
		Audit:       a,
		Log:         log,
		DeleteAfter: deleteAfter,
		InfoButton:  info,
	}
}

// Deliver sends the bundle to chatID and returns references for every
// message actually sent. Failures per send are logged and swallowed.
func (s *DeliveryService) Deliver(ctx context.Context, chatID int64, bundle *domain.ContentBundle, opts DeliverOptions) []domain.MessageRef {
	after := opts.DeleteAfter
	if after <= 0 {
		after = s.DeleteAfter
	}

	primary := bundle.Primary
	audited := false
	if primary != "" && s.Short != nil && s.Short.Enabled() {
		// Shorten degrades to the original URL on failure; the audit entry
		// is written either way so the trail stays complete.
		primary = s.Short.Shorten(ctx, primary)
		audited = true
	}
	buttons := s.buttonRow(primary, bundle.Secondary)
	caption := s.caption(bundle)

	var refs []domain.MessageRef
	if bundle.PosterID != "" {
		if ref, err := s.Msgr.SendPhoto(ctx, chatID, bundle.PosterID, caption, buttons, true); err != nil {
			s.sendFailed(chatID, bundle.Keyword, "photo", err)
		} else {
			refs = append(refs, ref)
		}
	} else {
		if ref, err := s.Msgr.SendText(ctx, chatID, caption, buttons, true); err != nil {
			s.sendFailed(chatID, bundle.Keyword, "text", err)
		} else {
			refs = append(refs, ref)
		}
	}
	if bundle.SampleID != "" {
		if ref, err := s.Msgr.SendVideo(ctx, chatID, bundle.SampleID, "", nil, true); err != nil {
			s.sendFailed(chatID, bundle.Keyword, "video", err)
		} else {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	metrics.Deliveries.Inc()

	logID := primitive.NilObjectID
	if opts.Requester != nil && audited && s.Audit != nil {
		now := time.Now().UTC()
		id, err := s.Audit.Insert(ctx, &domain.AccessLogEntry{
			Keyword:      bundle.Keyword,
			OriginalLink: bundle.Primary,
			ShortLink:    primary,
			UserID:       opts.Requester.UserID,
			Username:     opts.Requester.Username,
			FirstName:    opts.Requester.FirstName,
			RequestedAt:  now,
			ExpiresAt:    now.Add(after),
			ChatID:       refs[0].ChatID,
			MessageID:    refs[0].MessageID,
			Deleted:      false,
		})
		if err != nil {
			s.Log.Warn().Err(err).Str("keyword", bundle.Keyword).Msg("access log insert failed")
		} else {
			logID = id
		}
	}

	for i, ref := range refs {
		if opts.Pin {
			if err := s.Msgr.PinMessage(ctx, ref); err != nil {
				s.Log.Warn().Err(err).Int64("chat", ref.ChatID).Msg("pin failed")
			}
		}
		if opts.Permanent || s.Deleter == nil {
			continue
		}
		// Only the lead message carries the audit entry.
		id := primitive.NilObjectID
		if i == 0 {
			id = logID
		}
		s.Deleter.ScheduleDelete(ref, after, id)
	}
	return refs
}

// caption renders the outbound body: a title line from the keyword followed
// by the stored text. The caser is created per call; cases.Caser carries
// transformation state and must not be shared across goroutines.
func (s *DeliveryService) caption(b *domain.ContentBundle) string {
	titleCaser := cases.Title(language.Und)
	title := titleCaser.String(b.Keyword)
	if b.Text == "" {
		return "<b>" + title + "</b>"
	}
	return "<b>" + title + "</b>\n\n" + b.Text
}

// buttonRow builds the interactive row: extracted slots in fixed order
// (primary first), or the single informational link when no slot is filled.
func (s *DeliveryService) buttonRow(primary, secondary string) []domain.ButtonLink {
	var row []domain.ButtonLink
	if primary != "" {
		row = append(row, domain.ButtonLink{Label: primaryLabel, URL: primary})
	}
	if secondary != "" {
		row = append(row, domain.ButtonLink{Label: secondaryLabel, URL: secondary})
	}
	if len(row) == 0 && s.InfoButton.URL != "" {
		row = append(row, s.InfoButton)
	}
	return row
}

func (s *DeliveryService) sendFailed(chatID int64, keyword, kind string, err error) {
	metrics.SendFailures.WithLabelValues(kind).Inc()
	s.Log.Warn().Err(err).Int64("chat", chatID).Str("keyword", keyword).Str("kind", kind).Msg("send failed")
}
