package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/idgen"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/usecase"
)

// app holds the wired ledger for one process.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	accounts       *usecase.AccountUseCase
	balances       *usecase.BalanceUseCase
	entries        *usecase.EntryUseCase
	reconciliation *usecase.ReconciliationUseCase
	ledger         *usecase.Ledger

	outbox    usecase.OutboxRepository
	publisher eventpublisher.Publisher
	checks    map[string]handler.Check

	closers []func()
}

// stores is the set of repositories one driver provides.
type stores struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	entries   usecase.EntryRepository
	ledger    usecase.LedgerRepository
	outbox    usecase.OutboxRepository
	retrier   usecase.Retrier
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	return logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: out,
	})
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   log,
		registry: prometheus.NewRegistry(),
		checks:   map[string]handler.Check{},
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var (
		s   stores
		err error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		s = a.memoryStores()
	default:
		s, err = a.postgresStores(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	if !cfg.OutboxEnabled {
		s.outbox = postgresRepo.NewNullOutboxRepository()
	}
	a.outbox = s.outbox

	var idempotency usecase.IdempotencyStore
	var redisClient *goredis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			URL:      cfg.RedisURL,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		a.checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		idempotency = redisRepo.NewIdempotencyStore(redisClient)
		log.Info().Msg("connected to redis")
	}

	switch cfg.OutboxPublisher {
	case config.PublisherRedis:
		a.publisher = eventpublisher.NewRedisStreamPublisher(redisClient, cfg.OutboxStream, 0)
	default:
		a.publisher = eventpublisher.NewLogPublisher(log)
	}

	ids := idgen.NewULIDGenerator()

	a.accounts = usecase.NewAccountUseCase(s.txManager, s.accounts, s.outbox, ids).WithTimeout(cfg.OperationTimeout)
	a.balances = usecase.NewBalanceUseCase(usecase.BalanceConfig{
		TxManager:      s.txManager,
		Accounts:       s.accounts,
		Entries:        s.entries,
		Outbox:         s.outbox,
		IDGen:          ids,
		Retrier:        s.retrier,
		Idempotency:    idempotency,
		Observer:       a.metrics,
		Logger:         &a.logger,
		Timeout:        cfg.OperationTimeout,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	a.entries = usecase.NewEntryUseCase(s.entries, s.accounts)
	a.reconciliation = usecase.NewReconciliationUseCase(s.accounts, s.ledger)
	a.ledger = usecase.NewLedger(a.balances, a.accounts, a.entries)

	return a, nil
}

func (a *app) memoryStores() stores {
	store := memory.NewStore()
	a.logger.Warn().Msg("using in-memory store; state is lost on exit")

	return stores{
		txManager: memory.NewTxManager(store),
		accounts:  memory.NewAccountRepository(store),
		entries:   memory.NewEntryRepository(store),
		ledger:    memory.NewLedgerRepository(store),
		outbox:    memory.NewOutboxRepository(store),
	}
}

func poolConfig(cfg *config.Config) postgres.PoolConfig {
	return postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	}
}

func (a *app) postgresStores(ctx context.Context) (stores, error) {
	pool, err := postgres.NewPoolWithConfig(ctx, poolConfig(a.cfg))
	if err != nil {
		return stores{}, fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.checks["postgres"] = pool.Ping
	a.logger.Info().Msg("connected to postgres")

	return stores{
		txManager: postgresRepo.NewTxManager(pool),
		accounts:  postgresRepo.NewAccountRepository(pool),
		entries:   postgresRepo.NewEntryRepository(pool),
		ledger:    postgresRepo.NewLedgerRepository(pool),
		outbox:    postgresRepo.NewOutboxRepository(pool),
		retrier:   postgresRepo.NewRetrier(a.logger),
	}, nil
}

func (a *app) eventPublisher() *eventpublisher.EventPublisher {
	return eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: a.outbox,
		Publisher:  a.publisher,
		Observer:   a.metrics,
		Logger:     &a.logger,
		BatchSize:  a.cfg.OutboxBatchSize,
		Interval:   a.cfg.OutboxInterval,
		Retention:  a.cfg.OutboxRetention,
	})
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
