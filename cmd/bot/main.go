// Package main is the entry point for the gamification bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gamification-bot/internal/badge"
	"gamification-bot/internal/bot"
	"gamification-bot/internal/config"
	"gamification-bot/internal/notify"
	"gamification-bot/internal/pkg/db"
	"gamification-bot/internal/pkg/lock"
	"gamification-bot/internal/ratelimit"
	"gamification-bot/internal/repository"
	"gamification-bot/internal/repository/memstore"
	"gamification-bot/internal/service"
	"gamification-bot/internal/streak"
)

type userStore interface {
	service.UserDirectory
	service.ProgressionStore
	service.ProfileReader
}

type transactionStore interface {
	service.TransactionStore
	service.DailyLeaderSource
}

type badgeStore interface {
	badge.Store
	service.BadgeLister
}

type checkinStore interface {
	service.CheckinRecorder
	streak.CheckinSource
}

// storage is the set of stores the services are built on.
type storage struct {
	users        userStore
	transactions transactionStore
	badges       badgeStore
	checkins     checkinStore
	actions      ratelimit.DailyCounter
	entities     badge.EntityCounter
	health       func(context.Context) error
	close        func()
}

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)
	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	loc := cfg.Location()

	streaks := streak.NewCalculator(store.checkins, loc)
	engine := badge.NewEngine(store.badges, store.entities, streaks)
	ledger := service.NewLedgerService(store.users, store.transactions, engine, lock.NewUserLock())

	limiter := ratelimit.New(store.actions,
		ratelimit.WithLocation(loc),
		ratelimit.WithMaxAge(cfg.RateLimit.MaxAge),
	)
	limiter.Cooldowns().StartPruner(ctx, cfg.RateLimit.PruneInterval)

	teleBot, err := bot.NewTeleBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sinks := []notify.Sink{notify.LogSink{}}
	var kafkaSink *notify.KafkaSink
	if len(cfg.Notify.Kafka.Brokers) > 0 {
		kafkaSink = notify.NewKafkaSink(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic)
		sinks = append(sinks, kafkaSink)
	}
	if cfg.Notify.Telegram.Enabled {
		sinks = append(sinks, notify.NewTelegramSink(teleBot))
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout, sinks...)

	deps := &bot.Dependencies{
		Config:          cfg,
		AccountService:  service.NewAccountService(store.users),
		ActivityService: service.NewActivityService(ledger, limiter, cfg, dispatcher),
		CheckinService:  service.NewCheckinService(store.checkins, streaks, ledger, limiter, cfg, dispatcher, loc),
		ProfileService:  service.NewProfileService(store.users, store.badges, streaks, store.transactions, loc),
		BadgeEngine:     engine,
	}
	telegramBot := bot.New(teleBot, deps)

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: newOpsMux(store.health)}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go telegramBot.Start()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	cancel()
	dispatcher.Wait()

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Kafka writer")
		}
	}
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to stop metrics server")
		}
	}

	log.Info().Msg("Bot stopped gracefully")
}

// newOpsMux serves Prometheus metrics and a storage health check.
func newOpsMux(health func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := health(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !strings.EqualFold(cfg.Format, "json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		mem := memstore.New()
		return &storage{
			users:        mem.Users,
			transactions: mem.Transactions,
			badges:       mem.Badges,
			checkins:     mem.Checkins,
			actions:      mem.Actions,
			entities:     mem.Entities,
			health:       func(context.Context) error { return nil },
			close:        func() {},
		}, nil
	}

	pool, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	return &storage{
		users:        repository.NewUserRepository(pool.Pool),
		transactions: repository.NewTransactionRepository(pool.Pool),
		badges:       repository.NewBadgeRepository(pool.Pool),
		checkins:     repository.NewCheckinRepository(pool.Pool),
		actions:      repository.NewActionRepository(pool.Pool),
		entities:     repository.NewEntityRepository(pool.Pool),
		close:        pool.Close,
	}, nil
}
