package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/chat"
	"medreport-backend/internal/extract"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/llm/openai"
	"medreport-backend/internal/notifications"
	"medreport-backend/internal/reports"
	"medreport-backend/internal/services/health"
	"medreport-backend/internal/session"
	"medreport-backend/internal/shared/config"
	"medreport-backend/internal/shared/server"
	"medreport-backend/internal/shared/storage/db"
	"medreport-backend/internal/shared/telemetry"
)

const janitorInterval = 10 * time.Minute

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    session.Store
	Guard    reports.InFlightGuard
	LLM      llm.Client
	Pipeline *reports.Pipeline
	Chat     *chat.Service

	closers []func() error
}

// Build wires stores, the model client and handlers. It does not start
// background work; see StartBackground.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	if err := app.buildStore(ctx); err != nil {
		return nil, err
	}
	if err := app.buildGuard(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.buildServices(); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) buildStore(ctx context.Context) error {
	if a.Config.SessionStore != config.SessionStorePostgres {
		telemetry.Info("bootstrap.store", map[string]any{"store": config.SessionStoreMemory})
		a.Store = session.NewMemoryStore()
		return nil
	}
	if a.Config.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the postgres session store")
	}

	sqlDB, err := db.Connect(ctx, a.Config.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(a.Config.Env) {
			telemetry.Warn("bootstrap.db_unavailable", map[string]any{
				"error":    err.Error(),
				"fallback": config.SessionStoreMemory,
			})
			a.Store = session.NewMemoryStore()
			return nil
		}
		return err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	a.DB = sqlDB
	a.Store = &session.PGStore{DB: sqlDB}
	a.closers = append(a.closers, sqlDB.Close)
	telemetry.Info("bootstrap.store", map[string]any{"store": config.SessionStorePostgres})
	return nil
}

func (a *App) buildGuard(ctx context.Context) error {
	if a.Config.RedisURL == "" {
		a.Guard = session.NewMemoryGuard()
		return nil
	}
	// the lock outlives the slowest upload so a crashed holder frees it eventually
	ttl := a.Config.PipelineTimeout + time.Minute
	guard, err := session.NewRedisGuard(ctx, a.Config.RedisURL, ttl)
	if err != nil {
		return err
	}
	a.Guard = guard
	a.closers = append(a.closers, guard.Close)
	return nil
}

func (a *App) buildServices() error {
	cfg := a.Config
	base, err := openai.NewClient(openai.Options{
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		return err
	}
	a.LLM = llm.NewGuarded(base, llm.GuardOptions{
		Name:             "openrouter",
		RatePerSecond:    cfg.LLMRatePerSec,
		FailureThreshold: cfg.LLMBreakerFailures,
		RetryAttempts:    cfg.LLMRetryAttempts,
	})

	cache, err := reports.NewSummaryCache(cfg.SummaryCacheSize)
	if err != nil {
		return err
	}
	notificationSvc := notifications.NewService(a.Store)
	a.Pipeline = &reports.Pipeline{
		Extract: extract.FromUpload,
		Summarizer: &reports.Summarizer{
			LLM:         a.LLM,
			Model:       base.Model(),
			Temperature: cfg.LLMTemperature,
			Cache:       cache,
		},
		Integrator: &reports.Integrator{Store: a.Store},
		Guard:      a.Guard,
		Hooks:      []reports.CompletionHook{notificationSvc},
		Timeout:    cfg.PipelineTimeout,
	}
	a.Chat = chat.NewService(a.LLM, cfg.LLMChatModel, a.Store, a.Store)

	a.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		ReportsHandler:      reports.NewHandler(a.Pipeline, a.Store, cfg.LLMAPIKey, cfg.MaxUploadBytes),
		NotificationHandler: notifications.NewHandler(notificationSvc),
		ChatHandler:         chat.NewHandler(a.Chat, cfg.LLMAPIKey),
		SessionHandler:      session.NewHandler(a.Store),
		Health:              a.healthService(),
	})
	return nil
}

func (a *App) healthService() *health.Service {
	checks := map[string]health.Checker{}
	if a.DB != nil {
		checks["postgres"] = health.CheckerFunc(a.DB.PingContext)
	}
	if guard, ok := a.Guard.(*session.RedisGuard); ok {
		checks["redis"] = guard
	}
	return health.NewService(checks)
}

// StartBackground starts the idle-session janitor. It stops when ctx ends.
func (a *App) StartBackground(ctx context.Context) <-chan struct{} {
	return session.StartJanitor(ctx, a.Store, a.Config.SessionTTL, janitorInterval)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
