package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/cache"
	"github.com/segyhp/travel-loan-engine/internal/config"
	"github.com/segyhp/travel-loan-engine/internal/lifecycle"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	"github.com/segyhp/travel-loan-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.LogFormat())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// the sweeper needs a store shared with the server
	if cfg.Database.Driver != config.StoreDriverPostgres {
		zl.Fatal("Scheduler requires STORE_DRIVER=postgres", zap.String("store", cfg.Database.Driver))
	}

	zl.Info("Starting lifecycle scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		zl.Fatal("Failed to ensure schema", zap.Error(err))
	}
	repo := repository.NewLoanRequestRepository(db, cfg.AmountBounds())

	// sweeps write through the same view cache the server reads from
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			zl.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		repo = repository.NewCachedLoanRequestRepository(repo, cache.NewRedisViewCache(redisClient, cfg.Redis.CacheTTL, zl))
	}

	timers := lifecycle.NewTimerScheduler()
	engine := lifecycle.NewEngine(
		repo,
		timers,
		lifecycle.NewProbabilisticOracle(cfg.Lifecycle.IdentitySuccessRate, uint64(time.Now().UnixNano())),
		lifecycle.Delays{
			IdentityCheck:  cfg.Lifecycle.IdentityCheckDelay,
			LetterFallback: cfg.Lifecycle.LetterFallbackDelay,
		},
		metrics.New(prometheus.NewRegistry()),
		zl,
	)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := lifecycle.NewSweeper(engine, repo, zl).Register(c, cfg.Scheduler.SweepSchedule); err != nil {
		zl.Fatal("Error scheduling lifecycle sweep", zap.Error(err))
	}

	// Start the scheduler
	c.Start()
	zl.Info("Scheduler started successfully", zap.String("schedule", cfg.Scheduler.SweepSchedule))

	<-ctx.Done()

	zl.Info("Shutting down scheduler...")
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := timers.Shutdown(shutdownCtx); err != nil {
		zl.Warn("Pending lifecycle steps did not finish", zap.Error(err))
	}
	zl.Info("Scheduler stopped")
}
