package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pulsewatch/internal/alerting"
	"pulsewatch/internal/capture"
	"pulsewatch/internal/config"
	"pulsewatch/internal/storage"
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

func (a *App) newSource() capture.SampleSource {
	if a.Config.Capture.Source == "csv" {
		return capture.NewCSVFile(a.Config.Capture.CSVPath, a.Logger)
	}
	opts := a.Config.Capture.Synthetic
	opts.FrameRate = a.Config.Capture.FrameRate
	return capture.NewSynthetic(opts, a.Logger)
}

func (a *App) newDispatcher() *alerting.Dispatcher {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	var notifier alerting.Notifier
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		notifier = alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	if notifier == nil {
		return nil
	}
	return alerting.NewDispatcher(notifier, a.Config.Alerting.Labels, a.Config.Alerting.Cooldown, a.Config.Alerting.Channels, a.Logger)
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
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// RunOptions configure a live monitoring run.
type RunOptions struct {
	Duration  time.Duration
	Calibrate bool
}

// SimulateOptions configure the synthetic convergence run.
type SimulateOptions struct {
	Duration   time.Duration
	HeartRate  float64
	BreathRate float64
	Noise      float64
	Calibrate  bool
}

// ExportOptions hold parameters for exporting a stored session.
type ExportOptions struct {
	SessionID string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit     int
	SessionID string
}
