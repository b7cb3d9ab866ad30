package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"pulsewatch/internal/capture"
	"pulsewatch/internal/logging"
	"pulsewatch/internal/monitor"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Logging  logging.Config  `mapstructure:"logging"`
	Capture  CaptureConfig   `mapstructure:"capture"`
	Pipeline monitor.Options `mapstructure:"pipeline"`
	Database DatabaseConfig  `mapstructure:"database"`
	Alerting AlertingConfig  `mapstructure:"alerting"`
	Export   ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// CaptureConfig selects and tunes the sample source driving the pipeline.
type CaptureConfig struct {
	FrameRate    float64                  `mapstructure:"frame_rate"`
	Source       string                   `mapstructure:"source"`
	CSVPath      string                   `mapstructure:"csv_path"`
	StartupDelay time.Duration            `mapstructure:"startup_delay"`
	Synthetic    capture.SyntheticOptions `mapstructure:"synthetic"`
}

// FrameInterval returns the frame period implied by the capture rate.
func (c CaptureConfig) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BatchSize       int           `mapstructure:"batch_size"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// AlertingConfig defines alert routing for sustained abnormal risk labels.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Labels   []string       `mapstructure:"labels"`
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram alert channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults. Pipeline
// tunables default from the engine packages and are only overridden by keys
// that actually appear in the config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PULSEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	cfg := Config{
		Pipeline: monitor.DefaultOptions(),
		Capture: CaptureConfig{
			Synthetic: capture.DefaultSyntheticOptions(),
		},
	}
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pulsewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("capture.frame_rate", 30.0)
	v.SetDefault("capture.source", "synthetic")
	v.SetDefault("capture.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.labels", []string{"tachycardia", "bradycardia", "hypoxemia"})
	v.SetDefault("alerting.cooldown", "5m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.batch_size", 30)
	v.SetDefault("database.advisory_lock_key", int64(0x70756C73))
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Capture.FrameRate <= 0 {
		return fmt.Errorf("capture.frame_rate must be greater than zero")
	}
	if c.Capture.Source != "synthetic" && c.Capture.Source != "csv" {
		return fmt.Errorf("capture.source must be synthetic or csv")
	}
	if c.Capture.Source == "csv" && c.Capture.CSVPath == "" {
		return fmt.Errorf("capture.csv_path must be set when capture.source is csv")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Database.BatchSize <= 0 {
		return fmt.Errorf("database.batch_size must be greater than zero")
	}
	if c.Pipeline.Heartbeat.RefractoryPeriod <= 0 {
		return fmt.Errorf("pipeline.heartbeat.refractory_period must be greater than zero")
	}
	if c.Pipeline.Heartbeat.MinBPM >= c.Pipeline.Heartbeat.MaxBPM {
		return fmt.Errorf("pipeline.heartbeat.min_bpm must be below max_bpm")
	}
	if c.Pipeline.SpO2.MinPercent >= c.Pipeline.SpO2.MaxPercent {
		return fmt.Errorf("pipeline.spo2.min_percent must be below max_percent")
	}
	if q := c.Pipeline.Risk.QuorumFraction; q <= 0 || q > 1 {
		return fmt.Errorf("pipeline.risk.quorum_fraction must be in (0, 1]")
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
