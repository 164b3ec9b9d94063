// Command bot runs the keyword delivery bot: the Telegram long-polling
// surface, the ops HTTP listener, and the background sweep and retention
// loops, all against a shared MongoDB document store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-keyword-bot/internal/bot"
	"github.com/tbourn/go-keyword-bot/internal/config"
	"github.com/tbourn/go-keyword-bot/internal/domain"
	"github.com/tbourn/go-keyword-bot/internal/ops"
	"github.com/tbourn/go-keyword-bot/internal/repo"
	"github.com/tbourn/go-keyword-bot/internal/scheduler"
	"github.com/tbourn/go-keyword-bot/internal/services"
	"github.com/tbourn/go-keyword-bot/internal/shortener"
	"github.com/tbourn/go-keyword-bot/internal/sysutil"
)

func main() {
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	var out = zerolog.New(os.Stderr)
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log := out.With().Timestamp().Str("service", "keyword-bot").Logger()

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	client, err := repo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()
	db := client.Database(cfg.MongoDB)

	keywordRepo := repo.NewKeywordRepo(db)
	recipientRepo := repo.NewRecipientRepo(db)
	accessLogRepo := repo.NewAccessLogRepo(db)

	b, err := bot.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot init failed")
	}

	reg := scheduler.NewRegistry(log)
	eph := scheduler.NewEphemeral(reg, b.Messenger(), accessLogRepo, log)
	short := shortener.New(cfg.Shortener, log)

	keywords := services.NewKeywordService(keywordRepo)
	delivery := services.NewDeliveryService(
		b.Messenger(), short, eph, accessLogRepo,
		cfg.AutoDeleteAfter,
		domain.ButtonLink{Label: cfg.InfoButtonLabel, URL: cfg.InfoButtonURL},
		log,
	)
	broadcast := &services.BroadcastService{
		Recipients:       recipientRepo,
		Content:          keywords,
		Entries:          keywordRepo,
		Delivery:         delivery,
		Log:              log,
		DailyRetention:   cfg.DailyRetention,
		KeywordRetention: cfg.KeywordRetention,
	}
	b.Bind(keywords, delivery, broadcast, recipientRepo, accessLogRepo, eph)

	reg.Every("sweep", cfg.SweepInterval, broadcast.Sweep)
	reg.Every("prune-daily", cfg.PruneInterval, broadcast.PruneDailyRecords)
	reg.Every("prune-keywords", cfg.PruneInterval, broadcast.PruneKeywords)

	opsSrv := ops.NewServer(cfg.OpsPort, client, log)
	go opsSrv.Start()

	go b.Start()
	log.Info().Msg("bot started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	b.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops shutdown failed")
	}
	if err := reg.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("background tasks did not drain in time")
	}
	log.Info().Msg("stopped")
}
