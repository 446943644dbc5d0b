package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"zodiac-snapshot/internal/ephemeris"
	"zodiac-snapshot/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
	Ephemeris EphemerisConfig `mapstructure:"ephemeris"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// OutputConfig controls where and how the snapshot payload is written.
type OutputConfig struct {
	Path   string      `mapstructure:"path"`
	Indent string      `mapstructure:"indent"`
	Perm   os.FileMode `mapstructure:"perm"`
}

// EphemerisConfig tunes the built-in ephemeris engine.
type EphemerisConfig struct {
	MinYear      int  `mapstructure:"min_year"`
	MaxYear      int  `mapstructure:"max_year"`
	ComputeSpeed bool `mapstructure:"compute_speed"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for snapshot history.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// Retention prunes snapshots older than this during run; zero keeps everything.
	Retention time.Duration `mapstructure:"retention"`
}

// SchedulerConfig governs generation cadence for the run command.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines which transitions are announced and where.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Events   []string       `mapstructure:"events"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

var knownEvents = map[string]struct{}{
	"ingress": {},
	"station": {},
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ZODIACSNAP")
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
	v.SetDefault("app.name", "zodiacsnap")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("output.path", "site/positions.json")
	v.SetDefault("output.indent", "")
	v.SetDefault("output.perm", 0o644)

	v.SetDefault("ephemeris.min_year", ephemeris.MinSupportedYear)
	v.SetDefault("ephemeris.max_year", ephemeris.MaxSupportedYear)
	v.SetDefault("ephemeris.compute_speed", true)

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_interval", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x7a6f6469))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.events", []string{"ingress", "station"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.retention", "0s")
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
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	if c.Ephemeris.MinYear < ephemeris.MinSupportedYear || c.Ephemeris.MaxYear > ephemeris.MaxSupportedYear {
		return fmt.Errorf("ephemeris range %d..%d exceeds supported %d..%d",
			c.Ephemeris.MinYear, c.Ephemeris.MaxYear, ephemeris.MinSupportedYear, ephemeris.MaxSupportedYear)
	}
	if c.Ephemeris.MinYear >= c.Ephemeris.MaxYear {
		return fmt.Errorf("ephemeris.min_year must be before ephemeris.max_year")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Database.Retention < 0 {
		return fmt.Errorf("database.retention must not be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	for _, ev := range c.Alerting.Events {
		if _, ok := knownEvents[strings.ToLower(ev)]; !ok {
			return fmt.Errorf("alerting.events: unknown event %q", ev)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
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

// ResolveOutputPath returns either the CLI override or the configured path.
func (c *Config) ResolveOutputPath(override string) string {
	if override != "" {
		return override
	}
	return c.Output.Path
}

// EventEnabled reports whether transitions of kind should be announced.
func (c *Config) EventEnabled(kind string) bool {
	for _, ev := range c.Alerting.Events {
		if strings.EqualFold(ev, kind) {
			return true
		}
	}
	return false
}
