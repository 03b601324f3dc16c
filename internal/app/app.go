package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"omni-ingest/internal/alerting"
	"omni-ingest/internal/config"
	"omni-ingest/internal/loader"
	"omni-ingest/internal/service"
	"omni-ingest/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newLoader() (*loader.Loader, error) {
	schema, err := a.Config.Schema()
	if err != nil {
		return nil, err
	}
	return loader.New(a.Config.Data.Dir, schema, a.Config.ErrorMode(), a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running ingestion daemon.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ld, err := a.newLoader()
	if err != nil {
		return err
	}

	var samples storage.SampleStore
	var ingests storage.IngestLogStore
	if store != nil {
		samples = store
		ingests = store
	}

	svc := service.New(a.Config, ld, samples, ingests, a.newNotifier(), a.Logger)

	a.Logger.Info().Str("dir", a.Config.Data.Dir).Msg("starting ingestion daemon")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("daemon terminated with error")
		return err
	}

	a.Logger.Info().Msg("ingestion daemon stopped")
	return nil
}

// ValidateOptions configure the validate command.
type ValidateOptions struct {
	Year   string
	Strict bool
}

// IngestOptions configure a one-shot ingest.
type IngestOptions struct {
	Year   string
	DryRun bool
	Force  bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	Ingests bool
}

// ExportOptions hold parameters for exporting stored samples.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	CSVPath string
	MaxRows int
}
