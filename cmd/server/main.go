// Package main - точка входа HTTP API Eco Explorer Hub.
//
// Сервис хранит прогресс юных учеников экологических курсов: очки,
// значки, серии дней и ежедневные задания.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: хранилища профилей, шина событий
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ecoquest/eco-explorer-hub/config"

	// Application layer
	"github.com/ecoquest/eco-explorer-hub/internal/application/command"
	"github.com/ecoquest/eco-explorer-hub/internal/application/eventhandler"
	"github.com/ecoquest/eco-explorer-hub/internal/application/query"

	// Domain layer
	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"

	// Infrastructure layer
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/messaging"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/memory"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/postgres"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/redis"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/sqlite"

	// Interface layer
	httpserver "github.com/ecoquest/eco-explorer-hub/internal/interface/http"
	"github.com/ecoquest/eco-explorer-hub/internal/interface/http/handlers"

	// Packages
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
	"github.com/ecoquest/eco-explorer-hub/pkg/retry"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Корневой контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Eco Explorer Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Location.String()),
		logger.String("storage", cfg.Storage.Driver),
		logger.Strings("features", cfg.Features.EnabledNames()),
	)

	clock := timeutil.NewSystemClock(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К ХРАНИЛИЩУ ПРОФИЛЕЙ
	// ─────────────────────────────────────────────────────────────────────────
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		log.Info("closing profile storage...")
		if err := backend.Close(); err != nil {
			log.Warn("failed to close profile storage", logger.Err(err))
		}
	}()
	log.Info("profile storage ready", logger.Backend(backend.Name()))

	// Сетевые хранилища защищены circuit breaker: при недоступности
	// базы ученики сразу получают профиль по умолчанию
	if cfg.Storage.Driver == config.DriverPostgres || cfg.Storage.Driver == config.DriverRedis {
		backend = persistence.NewGuardedBackend(backend, persistence.GuardConfig{
			FailureThreshold: cfg.Storage.BreakerThreshold,
			Cooldown:         cfg.Storage.BreakerCooldown,
		}, log)
	}

	repo := persistence.NewProfileRepository(backend, clock, log, persistence.RepositoryConfig{
		KeyPrefix:   cfg.Storage.KeyPrefix,
		DefaultName: cfg.Storage.DefaultName,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	// Лента достижений должна видеть события в порядке публикации
	eventBusConfig.AsyncMode = false
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
		if m := eventBus.Metrics(); m != nil {
			snap := m.Snapshot()
			log.Info("event bus totals",
				logger.Int64("published", snap.TotalPublished),
				logger.Int64("handler_failures", snap.HandlerFailures),
			)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	journal := eventhandler.NewProgressJournal(log, eventhandler.DefaultJournalConfig())
	if err := journal.Register(eventBus); err != nil {
		return fmt.Errorf("failed to register progress journal: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")
	catalog := curriculum.DefaultCatalog()

	pipeline := command.NewPipeline(repo, clock, eventBus, log, command.PipelineConfig{
		RetryAttempts:    cfg.Storage.RetryAttempts,
		DefaultLearnerID: cfg.Storage.DefaultLearnerID,
		DefaultName:      cfg.Storage.DefaultName,
	})

	recordQuiz := command.NewRecordQuizResultHandler(pipeline, catalog)
	addGamePoints := command.NewAddGamePointsHandler(pipeline)
	resetProgress := command.NewResetProgressHandler(pipeline)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	// Сбой хранилища не делает сервис неготовым: профили отдаются по умолчанию
	health.AddOptionalCheck("storage", handlers.NewStorageCheck(repo))

	// ─────────────────────────────────────────────────────────────────────────
	// 8. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.Config{
		Host:             cfg.HTTP.Host,
		Port:             cfg.HTTP.Port,
		ReadTimeout:      cfg.HTTP.ReadTimeout,
		WriteTimeout:     cfg.HTTP.WriteTimeout,
		IdleTimeout:      cfg.HTTP.IdleTimeout,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:   httpserver.DefaultConfig().MaxHeaderBytes,
		MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
		EnableCORS:       cfg.HTTP.EnableCORS,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		SimulatedLatency: cfg.HTTP.SimulatedLatency,
		DefaultLearnerID: cfg.Storage.DefaultLearnerID,
		Version:          cfg.App.Version,
	}

	// Ограничение частоты записей прогресса на одного ученика
	var rateLimiter *handlers.RateLimiter
	if cfg.HTTP.WriteRatePerMinute > 0 {
		rateLimiter = handlers.NewRateLimiter(handlers.RateLimitConfig{
			RequestsPerMinute: cfg.HTTP.WriteRatePerMinute,
			BurstSize:         cfg.HTTP.WriteBurst,
			BanThreshold:      handlers.DefaultRateLimitConfig().BanThreshold,
		})
	}

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		RecordQuizResult:       recordQuiz,
		SubmitQuizAnswers:      command.NewSubmitQuizAnswersHandler(catalog, recordQuiz),
		CompleteDailyChallenge: command.NewCompleteDailyChallengeHandler(pipeline),
		AddGamePoints:          addGamePoints,
		SubmitGameRound:        command.NewSubmitGameRoundHandler(addGamePoints),
		ResetProgress:          resetProgress,
		CreateLearner:          command.NewCreateLearnerHandler(resetProgress),
		GetUserProgress:        query.NewGetUserProgressHandler(pipeline, catalog),
		GetDailyChallenge:      query.NewGetDailyChallengeHandler(clock, repo),
		GetAllBadges:           query.NewGetAllBadgesHandler(repo),
		GetModules:             query.NewGetModulesHandler(catalog),
		Journal:                journal,
		Features:               cfg.Features,
		RateLimiter:            rateLimiter,
		Logger:                 log,
		HealthChecker:          health,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	errCh := httpServer.StartAsync()

	log.Info("Eco Explorer Hub is running",
		logger.String("http_address", httpServer.Address()),
		logger.Duration("simulated_latency", cfg.HTTP.SimulatedLatency),
	)

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	// Event bus и хранилище закроются через defer
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug && level > logger.LevelDebug {
		level = logger.LevelDebug
	}

	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		Format:    logger.ParseFormat(cfg.Observability.LogFormat),
		AddCaller: !cfg.IsProduction(),
	}).With(logger.String("service", cfg.App.Name))
}

// openBackend открывает выбранное хранилище. Сетевые хранилища
// открываются с повторами: база может подниматься дольше сервиса.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (persistence.Backend, error) {
	open := func(ctx context.Context) (persistence.Backend, error) {
		switch cfg.Storage.Driver {
		case config.DriverMemory:
			log.Warn("using in-memory storage, progress is lost on restart")
			return memory.New(), nil

		case config.DriverSQLite:
			if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, retry.Permanent(fmt.Errorf("create sqlite directory: %w", err))
				}
			}
			return sqlite.Open(ctx, cfg.SQLite.Path)

		case config.DriverPostgres:
			pgConfig := postgres.DefaultConfig()
			pgConfig.URL = cfg.Database.URL
			pgConfig.MaxConns = cfg.Database.MaxConns
			pgConfig.MinConns = cfg.Database.MinConns
			pgConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
			pgConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
			pgConfig.ConnectTimeout = cfg.Database.ConnectTimeout
			return postgres.Open(ctx, pgConfig)

		case config.DriverRedis:
			redisConfig := redis.DefaultConfig()
			redisConfig.URL = cfg.Redis.URL
			redisConfig.Host = cfg.Redis.Host
			redisConfig.Port = cfg.Redis.Port
			redisConfig.Password = cfg.Redis.Password
			redisConfig.DB = cfg.Redis.DB
			redisConfig.PoolSize = cfg.Redis.PoolSize
			redisConfig.MinIdleConns = cfg.Redis.MinIdleConns
			redisConfig.DialTimeout = cfg.Redis.DialTimeout
			redisConfig.ReadTimeout = cfg.Redis.ReadTimeout
			redisConfig.WriteTimeout = cfg.Redis.WriteTimeout
			return redis.Open(ctx, redisConfig)

		default:
			return nil, retry.Permanent(fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver))
		}
	}

	if !cfg.Storage.ConnectRetry || cfg.Storage.Driver == config.DriverMemory {
		b, err := open(ctx)
		return b, unwrapPermanent(err)
	}

	var (
		b       persistence.Backend
		attempt int
	)
	err := retry.ConnectRetrier().Do(ctx, func(ctx context.Context) error {
		attempt++
		opened, err := open(ctx)
		if err != nil {
			log.Warn("storage not reachable yet",
				logger.Backend(cfg.Storage.Driver),
				logger.Attempt(attempt),
				logger.Err(err),
			)
			return err
		}
		b = opened
		return nil
	})
	return b, err
}

func unwrapPermanent(err error) error {
	var perm *retry.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
