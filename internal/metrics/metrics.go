// Package metrics exposes Prometheus instrumentation for the bot's delivery
// pipeline. Label cardinality is kept deliberately small: outcome/kind
// labels only, never keywords or chat ids.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Deliveries counts completed deliveries (at least one message sent).
	Deliveries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_deliveries_total",
		Help: "Total number of completed content deliveries.",
	})

	// SendFailures counts swallowed per-message send failures by kind
	// (text/photo/video).
	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_send_failures_total",
		Help: "Total number of failed outbound sends.",
	}, []string{"kind"})

	// Deletions counts resolved ephemeral timers by outcome
	// (deleted/failed).
	Deletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_deletions_total",
		Help: "Total number of scheduled message deletions by outcome.",
	}, []string{"outcome"})

	// BroadcastSends counts per-recipient sends from manual broadcasts.
	BroadcastSends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_broadcast_sends_total",
		Help: "Total number of manual broadcast sends.",
	})

	// SweepSends counts per-recipient sends from scheduled sweeps.
	SweepSends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_sweep_sends_total",
		Help: "Total number of scheduled sweep sends.",
	})

	// ShortenerResults counts shortener calls by result
	// (shortened/fallback).
	ShortenerResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_shortener_results_total",
		Help: "Total number of shortener calls by result.",
	}, []string{"result"})

	// CooldownDrops counts plain-text triggers dropped by the per-recipient
	// cooldown.
	CooldownDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_cooldown_drops_total",
		Help: "Total number of triggers dropped by the cooldown window.",
	})
)

func init() {
	prometheus.MustRegister(
		Deliveries, SendFailures, Deletions,
		BroadcastSends, SweepSends, ShortenerResults, CooldownDrops,
	)
}
