package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/tradeledger/internal/adapter/http"
	"github.com/iho/tradeledger/internal/adapter/http/handler"
	"github.com/iho/tradeledger/internal/adapter/http/middleware"
	"github.com/iho/tradeledger/internal/adapter/ratesource"
	"github.com/iho/tradeledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/tradeledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/tradeledger/internal/adapter/repository/redis"
	"github.com/iho/tradeledger/internal/infrastructure/config"
	"github.com/iho/tradeledger/internal/infrastructure/logger"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
	"github.com/iho/tradeledger/internal/infrastructure/postgres"
	"github.com/iho/tradeledger/internal/infrastructure/redis"
	"github.com/iho/tradeledger/internal/usecase"
)

const visitorIdleTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "tradeledger"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL not set: rates cached in memory, idempotency keys disabled")
	}

	m := metrics.New()
	app := newApp(cfg, pool, redisClient, log, m)

	if app.limiter != nil {
		go sweepVisitors(ctx, app.limiter, log)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

type app struct {
	router  http.Handler
	limiter *middleware.RateLimiter
}

// newApp wires repositories, use cases and handlers. A nil redisClient
// falls back to an in-process rate cache without idempotency keys.
func newApp(cfg *config.Config, pool *pgxpool.Pool, redisClient *goredis.Client, log zerolog.Logger, m *metrics.Metrics) *app {
	idGen := postgresRepo.NewULIDGenerator()
	txManager := postgresRepo.NewTxManager(pool, cfg.DBLockTimeout)
	retrier := postgresRepo.NewRetrier(cfg.DBMaxRetries, log, m)

	parties := postgresRepo.NewPartyRepository(pool)
	movements := postgresRepo.NewMovementRepository(pool)
	products := postgresRepo.NewProductRepository(pool)
	saleRepo := postgresRepo.NewSaleRepository(pool)
	purchaseRepo := postgresRepo.NewPurchaseRepository(pool)
	paymentRepo := postgresRepo.NewPaymentRepository(pool)
	expenseRepo := postgresRepo.NewExpenseRepository(pool)
	returnRepo := postgresRepo.NewReturnRepository(pool)
	activityRepo := postgresRepo.NewActivityRepository(pool)

	var (
		cache       usecase.Cache = memory.NewCache()
		idempotency usecase.IdempotencyStore
	)
	deps := []handler.Dependency{{Name: "postgres", Ping: pool.Ping}}
	if redisClient != nil {
		cache = redisRepo.NewCache(redisClient, "")
		idempotency = redisRepo.NewIdempotencyStore(redisClient)
		deps = append(deps, handler.Dependency{Name: "redis", Ping: redis.Ping(redisClient)})
	}

	resolver := usecase.NewRateResolver(
		cache,
		ratesource.NewClient(ratesource.Config{
			BaseURL: cfg.RateAPIURL,
			APIKey:  cfg.RateAPIKey,
			Timeout: cfg.RateFetchTimeout,
		}),
		usecase.RateResolverConfig{
			FetchTimeout: cfg.RateFetchTimeout,
			CacheTTL:     cfg.RateCacheTTL,
			StaleTTL:     cfg.RateStaleTTL,
		},
		log, m,
	)

	ledger := usecase.NewLedgerEngine(parties, movements, idGen, m)
	inventory := usecase.NewInventory(products, m)
	activityLog := usecase.NewActivityLog(activityRepo, idGen, m)

	mutatorDeps := usecase.MutatorDeps{
		TxManager: txManager,
		Retrier:   retrier,
		Parties:   parties,
		Products:  products,
		Resolver:  resolver,
		Ledger:    ledger,
		Inventory: inventory,
		Activity:  activityLog,
		IDGen:     idGen,
		Metrics:   m,
		Logger:    log,
	}
	sales := usecase.NewSaleMutator(mutatorDeps, saleRepo, returnRepo)
	purchases := usecase.NewPurchaseMutator(mutatorDeps, purchaseRepo, returnRepo)
	payments := usecase.NewPaymentMutator(mutatorDeps, paymentRepo)
	expenses := usecase.NewExpenseMutator(mutatorDeps, expenseRepo)
	returns := usecase.NewReturnMutator(mutatorDeps, returnRepo, saleRepo, purchaseRepo)
	directory := usecase.NewDirectoryUseCase(txManager, retrier, parties, products, ledger, activityLog, idGen, log)

	restore := usecase.NewRestoreUseCase(usecase.RestoreDeps{
		TxManager:  txManager,
		Retrier:    retrier,
		Activities: activityRepo,
		Log:        activityLog,
		Directory:  directory,
		Sales:      sales,
		Purchases:  purchases,
		Payments:   payments,
		Expenses:   expenses,
		Returns:    returns,
		Metrics:    m,
		Logger:     log,
	})
	query := usecase.NewLedgerQueryUseCase(parties, movements, sales, purchases, payments, expenses, returns)
	reconciliation := usecase.NewReconciliationUseCase(txManager, parties, movements, m)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		HealthHandler:         handler.NewHealthHandler(deps...),
		BalanceHandler:        handler.NewBalanceHandler(query),
		DocumentHandler:       handler.NewDocumentHandler(query),
		ActivityHandler:       handler.NewActivityHandler(activityLog, restore),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliation),
		IdempotencyStore:      idempotency,
		RateLimiter:           limiter,
		Metrics:               m,
		Logger:                log,
	})

	return &app{router: router, limiter: limiter}
}

func sweepVisitors(ctx context.Context, limiter *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Cleanup(visitorIdleTimeout); n > 0 {
				log.Debug().Int("removed", n).Msg("rate limiter visitors swept")
			}
		}
	}
}
