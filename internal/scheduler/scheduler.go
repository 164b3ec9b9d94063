// Package scheduler provides a supervised registry for the bot's background
// work: one-shot deletion timers for ephemeral messages and periodic loops
// (sweeps, prunes). Every task runs under a panic recovery barrier so no
// background failure can reach the event-handling path, and the registry
// tracks outstanding tasks so shutdown can drain them with a bounded wait
// instead of silently abandoning everything.
//
// Armed timers cannot be cancelled: once scheduled they run to completion
// (or the process exits first; in-flight timers are not persisted).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// Registry supervises background tasks.
type Registry struct {
	log  zerolog.Logger
	wg   sync.WaitGroup
	quit chan struct{}
	once sync.Once
}

// NewRegistry constructs an empty task registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{log: log, quit: make(chan struct{})}
}

// Go runs fn on its own goroutine under the registry. Panics are recovered,
// logged, and reported; they never propagate.
func (r *Registry) Go(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("task %s panicked: %v", name, rec)
				r.log.Error().Str("task", name).Interface("panic", rec).Msg("background task panicked")
				sentry.CaptureException(err)
			}
		}()
		fn()
	}()
}

// Every runs fn immediately and then on every interval tick until shutdown.
// A failed iteration is logged and reported; the loop keeps ticking.
func (r *Registry) Every(name string, interval time.Duration, fn func(ctx context.Context) error) {
	run := func() {
		if err := fn(context.Background()); err != nil {
			r.log.Error().Err(err).Str("task", name).Msg("background task failed")
			sentry.CaptureException(fmt.Errorf("task %s: %w", name, err))
		}
	}
	r.Go(name, func() {
		run()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Go(name, run)
			case <-r.quit:
				return
			}
		}
	})
}

// Shutdown stops periodic loops and waits for outstanding tasks until ctx
// expires. Deletion timers that have not fired yet are lost past the
// deadline; that loss is accepted product behavior.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.once.Do(func() { close(r.quit) })
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
