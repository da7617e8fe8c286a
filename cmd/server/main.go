package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/travel-loan-engine/internal/auth"
	"github.com/segyhp/travel-loan-engine/internal/branch"
	"github.com/segyhp/travel-loan-engine/internal/cache"
	"github.com/segyhp/travel-loan-engine/internal/config"
	"github.com/segyhp/travel-loan-engine/internal/handler"
	"github.com/segyhp/travel-loan-engine/internal/lifecycle"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/middleware"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	"github.com/segyhp/travel-loan-engine/internal/service"
	"github.com/segyhp/travel-loan-engine/pkg/logger"
)

func main() {
	// .env is optional
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
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server stopped with error", zap.Error(err))
	}
	zl.Info("Server exited")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var checks []handler.Check

	// Initialize store
	repo, db, err := initStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks = append(checks, handler.Check{Name: "database", Ping: db.PingContext})
	}

	// Initialize Redis view cache
	views := cache.NewNoopViewCache()
	if cfg.Redis.URL != "" {
		redisClient, err := initRedis(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		views = cache.NewRedisViewCache(redisClient, cfg.Redis.CacheTTL, zl)
		checks = append(checks, handler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	repo = repository.NewCachedLoanRequestRepository(repo, views)

	branches := branch.NewStaticDirectory()
	if cfg.Business.SeedRequests {
		if err := service.SeedLoanRequests(ctx, repo, branches, zl); err != nil {
			return err
		}
	}

	// Initialize lifecycle
	scheduler := lifecycle.NewTimerScheduler()
	oracle := lifecycle.NewProbabilisticOracle(cfg.Lifecycle.IdentitySuccessRate, uint64(time.Now().UnixNano()))
	engine := lifecycle.NewEngine(repo, scheduler, oracle, lifecycle.Delays{
		IdentityCheck:  cfg.Lifecycle.IdentityCheckDelay,
		LetterFallback: cfg.Lifecycle.LetterFallbackDelay,
	}, m, zl)

	// Initialize services
	tokens := auth.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	loanService := service.NewLoanService(repo, branches, engine, service.LoanPolicy{
		Bounds:        cfg.AmountBounds(),
		AllowedTenors: cfg.Business.AllowedTenors,
	}, m, zl)
	adminService := service.NewAdminService(repo, m, zl)
	authService := service.NewAuthService(tokens, service.AuthCredentials{
		OTPCode:       cfg.Auth.OTPCode,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassword: cfg.Auth.AdminPassword,
		AdminToken:    cfg.Auth.AdminToken,
	}, zl)

	// Setup routes
	router := handler.NewRouter(handler.Handlers{
		Loans:   handler.NewLoanHandler(loanService, zl),
		Admin:   handler.NewAdminHandler(adminService),
		Auth:    handler.NewAuthHandler(authService),
		Health:  handler.NewHealthHandler(cfg.Health.Timeout, checks...),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, middleware.NewAuthMiddleware(tokens, cfg.Auth.AdminToken), zl)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("Server starting", zap.String("addr", server.Addr), zap.String("store", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return scheduler.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// initStore returns the configured store. db is nil for the in-memory store.
func initStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (repository.LoanRequestRepository, *sqlx.DB, error) {
	bounds := cfg.AmountBounds()
	if cfg.Database.Driver == config.StoreDriverMemory {
		zl.Warn("Using in-memory store; requests are lost on restart")
		return repository.NewMemoryLoanRequestRepository(bounds, nil), nil, nil
	}

	db, err := initDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewLoanRequestRepository(db, bounds), db, nil
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
