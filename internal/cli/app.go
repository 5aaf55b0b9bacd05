package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/turnstile"
	"github.com/aretw0/turnstile/internal/config"
	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/internal/pizza"
	"github.com/aretw0/turnstile/internal/validator"
	"github.com/aretw0/turnstile/pkg/adapters/file"
	"github.com/aretw0/turnstile/pkg/adapters/memory"
	"github.com/aretw0/turnstile/pkg/adapters/process"
	"github.com/aretw0/turnstile/pkg/adapters/redis"
	sqlstore "github.com/aretw0/turnstile/pkg/adapters/sql"
	"github.com/aretw0/turnstile/pkg/adapters/yaml"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/observability"
	"github.com/aretw0/turnstile/pkg/persistence/middleware"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/aretw0/turnstile/pkg/registry"
)

// App bundles everything a command needs to drive the engine.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *registry.Registry
	Store    ports.StateStore
	Engine   *turnstile.Engine
	Metrics  *observability.Metrics

	closers []func() error
}

// SetupOptions adjusts how an App is assembled.
type SetupOptions struct {
	// Metrics enables the Prometheus lifecycle hooks.
	Metrics bool
	// ExtraHooks are appended after the logging and metrics hooks.
	ExtraHooks []domain.LifecycleHooks
}

// NewLogger builds the application logger from the logging section.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return logging.New(logging.ParseLevel(cfg.Level), cfg.Format)
}

// Setup assembles registry, store and engine from the configuration.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts SetupOptions) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}

	reg, err := BuildRegistry(cfg.Engine, logger)
	if err != nil {
		return nil, err
	}
	app.Registry = reg

	store, closer, err := BuildStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	if opts.Metrics {
		app.Metrics = observability.NewMetrics()
		hooks = append(hooks, app.Metrics.Hooks())
	}
	hooks = append(hooks, opts.ExtraHooks...)

	engineOpts := []turnstile.Option{
		turnstile.WithRegistry(reg),
		turnstile.WithStore(store),
		turnstile.WithRootDialog(RootDialog(cfg.Engine)),
		turnstile.WithLogger(logger),
		turnstile.WithLifecycleHooks(domain.CombineHooks(hooks...)),
		turnstile.WithTurnTimeout(cfg.Engine.TurnTimeout),
		turnstile.WithMaxSteps(cfg.Engine.MaxSteps),
		turnstile.WithCancelPhrases(cfg.Engine.CancelMessage, cfg.Engine.CancelPhrases...),
		turnstile.WithTraceReplies(cfg.Engine.TraceReplies),
	}
	if cfg.Engine.ErrorMessage != "" {
		engineOpts = append(engineOpts, turnstile.WithErrorMessage(cfg.Engine.ErrorMessage))
	}
	if cfg.Engine.RetryMessage != "" {
		engineOpts = append(engineOpts, turnstile.WithRetryMessage(cfg.Engine.RetryMessage))
	}
	if cfg.Engine.BotID != "" {
		engineOpts = append(engineOpts, turnstile.WithBotID(cfg.Engine.BotID))
	}
	if cfg.Engine.DistributedLock {
		locker, closer := buildLocker(cfg.Store.Redis)
		app.closers = append(app.closers, closer)
		engineOpts = append(engineOpts, turnstile.WithLocker(locker, cfg.Engine.LockTTL))
	}

	engine, err := turnstile.New(engineOpts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine
	return app, nil
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RootDialog returns the configured root, defaulting to the pizza bot.
func RootDialog(cfg config.EngineConfig) string {
	if cfg.RootDialog != "" {
		return cfg.RootDialog
	}
	return pizza.DialogID
}

// BuildRegistry registers the built-in dialogs, the configured process
// actions and the dialogs of a YAML file. The result is checked for broken
// calls.
func BuildRegistry(cfg config.EngineConfig, logger *slog.Logger) (*registry.Registry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	reg := registry.New()
	if err := pizza.Register(reg); err != nil {
		return nil, fmt.Errorf("register pizza dialog: %w", err)
	}
	if cfg.ActionsFile != "" {
		actions, err := process.LoadActions(cfg.ActionsFile)
		if err != nil {
			return nil, err
		}
		runner := process.NewRunner(
			process.WithActions(actions),
			process.WithBaseDir(filepath.Dir(cfg.ActionsFile)),
			process.WithLogger(logger),
		)
		runner.RegisterAll(reg)
		logger.Debug("process actions registered", "actions", runner.Names())
	}
	if cfg.DialogsFile != "" {
		if _, err := yaml.LoadFile(cfg.DialogsFile, reg); err != nil {
			return nil, err
		}
	}
	if _, ok := reg.Dialog(RootDialog(cfg)); !ok {
		return nil, fmt.Errorf("root dialog '%s': %w", RootDialog(cfg), domain.ErrDialogNotFound)
	}
	if err := validator.CheckCalls(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// BuildStore opens the configured StateStore and wraps it with the PII and
// encryption middlewares. The returned closer may be nil.
func BuildStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.StateStore, func() error, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var (
		store  ports.StateStore
		closer func() error
	)

	switch cfg.Driver {
	case config.DriverMemory, "":
		store = memory.NewStore()
	case config.DriverFile:
		store = file.New(cfg.Path)
	case config.DriverRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisOptions(cfg.Redis)...)
		store, closer = rs, rs.Close
	case config.DriverPostgres, config.DriverSQLite:
		ss, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		store, closer = ss, ss.Close
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if len(cfg.PIIKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PIIKeys))
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	logger.Debug("state store ready", "driver", cfg.Driver, "pii", len(cfg.PIIKeys) > 0, "encrypted", cfg.EncryptionKey != "")
	return middleware.Chain(store, mws...), closer, nil
}

func redisOptions(cfg config.RedisConfig) []redis.Option {
	var opts []redis.Option
	if cfg.Prefix != "" {
		opts = append(opts, redis.WithPrefix(cfg.Prefix))
	}
	if cfg.TTL > 0 {
		opts = append(opts, redis.WithTTL(cfg.TTL))
	}
	return opts
}

func buildLocker(cfg config.RedisConfig) (ports.DistributedLocker, func() error) {
	rs := redis.New(cfg.Addr, cfg.Password, cfg.DB)
	return redis.NewLocker(rs.Client(), cfg.Prefix), rs.Close
}
