package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tbourn/go-keyword-bot/internal/domain"
	"github.com/tbourn/go-keyword-bot/internal/metrics"
)

// MessageDeleter is the platform slice the ephemeral scheduler needs.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, ref domain.MessageRef) error
}

// AuditMarker records the deletion outcome on an audit entry.
type AuditMarker interface {
	MarkDeleted(ctx context.Context, id primitive.ObjectID, deleted bool, errNote string, at time.Time) error
}

// Ephemeral arms one-shot deletion timers for sent messages. Each timer is
// terminal: it either deletes the message or records the failure, exactly
// once, and never retries. Failures stay in the logs; the end user never
// sees them.
type Ephemeral struct {
	reg   *Registry
	msgr  MessageDeleter
	audit AuditMarker
	log   zerolog.Logger
}

// NewEphemeral constructs an ephemeral scheduler over the registry.
func NewEphemeral(reg *Registry, msgr MessageDeleter, audit AuditMarker, log zerolog.Logger) *Ephemeral {
	return &Ephemeral{reg: reg, msgr: msgr, audit: audit, log: log}
}

// ScheduleDelete arms a timer that deletes ref after the given delay. When
// logID is non-zero the matching audit entry's deleted flag is updated with
// the outcome.
func (e *Ephemeral) ScheduleDelete(ref domain.MessageRef, after time.Duration, logID primitive.ObjectID) {
	e.reg.Go("ephemeral-delete", func() {
		time.Sleep(after)
		e.fire(ref, logID)
	})
}

func (e *Ephemeral) fire(ref domain.MessageRef, logID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errNote string
	deleted := true
	if err := e.msgr.DeleteMessage(ctx, ref); err != nil {
		deleted = false
		errNote = err.Error()
		metrics.Deletions.WithLabelValues("failed").Inc()
		e.log.Warn().Err(err).Int64("chat", ref.ChatID).Int("message", ref.MessageID).Msg("scheduled delete failed")
	} else {
		metrics.Deletions.WithLabelValues("deleted").Inc()
		e.log.Debug().Int64("chat", ref.ChatID).Int("message", ref.MessageID).Msg("message deleted")
	}

	if logID.IsZero() || e.audit == nil {
		return
	}
	if err := e.audit.MarkDeleted(ctx, logID, deleted, errNote, time.Now().UTC()); err != nil {
		e.log.Warn().Err(err).Str("log", logID.Hex()).Msg("audit update failed")
	}
}
