package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"omni-ingest/internal/fixedwidth"
	"omni-ingest/internal/logging"
)

// yearAll selects every year file in the data directory.
const yearAll = "all"

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Data     DataConfig     `mapstructure:"data"`
	Parser   ParserConfig   `mapstructure:"parser"`
	Database DatabaseConfig `mapstructure:"database"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DataConfig locates the source files.
type DataConfig struct {
	Dir  string `mapstructure:"dir"`
	Year string `mapstructure:"year"` // 4-digit year or "all"
}

// ParserConfig tunes the fixed-width parser.
type ParserConfig struct {
	// OnMalformed selects the row-error policy: "skip" logs and continues,
	// "halt" fails on the first bad row.
	OnMalformed string           `mapstructure:"on_malformed"`
	Columns     []ColumnOverride `mapstructure:"columns"`
}

// ColumnOverride adjusts one column of the default schema, matched by name.
// Zero-valued fields keep the default.
type ColumnOverride struct {
	Name      string   `mapstructure:"name"`
	Width     int      `mapstructure:"width"`
	Decimals  int32    `mapstructure:"decimals"`
	Sentinels []string `mapstructure:"sentinels"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// WatchConfig governs daemon-mode rescans of the data directory.
type WatchConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// MetricsConfig controls the prometheus endpoint in daemon mode.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// AlertingConfig defines data-quality alert thresholds and routing.
type AlertingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxMalformedPct is the malformed-row percentage above which an ingest
	// raises a data-quality alert.
	MaxMalformedPct float64        `mapstructure:"max_malformed_pct"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
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
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OMNIINGEST")
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

	var cfg Config
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
	v.SetDefault("app.name", "omni-ingest")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.year", yearAll)

	v.SetDefault("parser.on_malformed", "skip")

	v.SetDefault("watch.interval", "10m")
	v.SetDefault("watch.debounce", "2s")
	v.SetDefault("watch.startup_delay", "0s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9152")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.max_malformed_pct", 1.0)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_rows", 100000)

	// AutomaticEnv only surfaces OMNIINGEST_* values for registered keys,
	// so keys with no natural default still need an entry here.
	v.SetDefault("database.dsn", "")
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "30s")
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
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir must be set")
	}
	if c.Data.Year != yearAll && !isYear(c.Data.Year) {
		return fmt.Errorf("data.year must be a 4-digit year or %q", yearAll)
	}
	switch c.Parser.OnMalformed {
	case "skip", "halt":
	default:
		return fmt.Errorf("parser.on_malformed must be \"skip\" or \"halt\"")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Alerting.MaxMalformedPct < 0 {
		return fmt.Errorf("alerting.max_malformed_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	if _, err := c.Schema(); err != nil {
		return err
	}
	return nil
}

// ErrorMode maps parser.on_malformed onto the fixedwidth policy.
func (c *Config) ErrorMode() fixedwidth.ErrorMode {
	if c.Parser.OnMalformed == "halt" {
		return fixedwidth.Halt
	}
	return fixedwidth.Skip
}

// Schema builds the column schema: the default layout with any configured
// per-column overrides applied.
func (c *Config) Schema() (*fixedwidth.Schema, error) {
	columns := fixedwidth.DefaultSchema().Columns()

	for _, override := range c.Parser.Columns {
		idx := -1
		for i, col := range columns {
			if col.Name == override.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("parser.columns: unknown column %q", override.Name)
		}
		if override.Width > 0 {
			columns[idx].Width = override.Width
		}
		if override.Decimals > 0 {
			columns[idx].Decimals = override.Decimals
		}
		if len(override.Sentinels) > 0 {
			columns[idx].Sentinels = override.Sentinels
		}
	}

	schema, err := fixedwidth.NewSchema(columns)
	if err != nil {
		return nil, fmt.Errorf("parser.columns: %w", err)
	}
	return schema, nil
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
