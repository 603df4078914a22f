// Package app provides the application initialization and wiring.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/imgflow/dispatch/internal/adapters/out/telemetry"
	"github.com/imgflow/dispatch/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. DISPATCH_SERVER_PORT.
const EnvPrefix = "DISPATCH"

// Config holds the application configuration.
type Config struct {
	Server struct {
		Port       int    `mapstructure:"port"`
		DataDir    string `mapstructure:"data_dir"`
		AdminToken string `mapstructure:"admin_token"`
	} `mapstructure:"server"`

	Database struct {
		Path         string        `mapstructure:"path"` // defaults to {data_dir}/dispatch.db
		MaxOpenConns int           `mapstructure:"max_open_conns"`
		BusyTimeout  time.Duration `mapstructure:"busy_timeout"`
	} `mapstructure:"database"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
	} `mapstructure:"logging"`

	Watcher struct {
		Enabled        bool          `mapstructure:"enabled"`
		MinAPIVersion  string        `mapstructure:"min_api_version"`
		PollInterval   time.Duration `mapstructure:"poll_interval"`
		ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
		ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	} `mapstructure:"watcher"`

	Events struct {
		BufferSize     int           `mapstructure:"buffer_size"`
		HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	} `mapstructure:"events"`

	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// DatabasePath returns the configured database path or the default under DataDir.
func (c Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Server.DataDir, "dispatch.db")
}

// LogFilePath returns the configured log file path or the default under DataDir.
func (c Config) LogFilePath() string {
	if c.Logging.File.Path != "" {
		return c.Logging.File.Path
	}
	return filepath.Join(c.Server.DataDir, "logs", "dispatch.log")
}

// DefaultDataDir returns the default data directory path.
// Uses ~/.dispatch for user installations, /var/lib/dispatch as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".dispatch")
	}
	return "/var/lib/dispatch"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: dispatch.{toml,yaml}
// Search paths (in order): /etc/dispatch, ~/.config/dispatch, current directory
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("dispatch")
	v.AddConfigPath("/etc/dispatch")
	v.AddConfigPath("$HOME/.config/dispatch")
	v.AddConfigPath(".")
}

// LoadConfig reads configuration from file and environment.
func LoadConfig(configPath string) (*viper.Viper, Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		return nil, Config{}, err
	}
	return v, cfg, nil
}

func decodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// loadConfig loads configuration from file and sets defaults.
func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", DefaultDataDir())
	v.SetDefault("server.admin_token", "")
	v.SetDefault("database.path", "")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.busy_timeout", "5s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.min_api_version", "1.41")
	v.SetDefault("watcher.poll_interval", "10s")
	v.SetDefault("watcher.reconnect_delay", "5s")
	v.SetDefault("watcher.connect_timeout", "10s")
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.handler_timeout", "30s")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", telemetry.ExporterNone)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sample_rate", 1.0)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// initLogger initializes the zerolog logger.
func initLogger(cfg Config) (zerolog.Logger, func(), error) {
	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		logCfg.File = logging.FileConfig{
			Enabled:    true,
			Path:       cfg.LogFilePath(),
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   true,
		}
	}

	log, cleanup, err := logging.New(logCfg)
	if err != nil {
		return logging.Default(), func() {}, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, cleanup, nil
}

// watchConfig applies log level changes from the config file at runtime.
// Other settings need a restart.
func watchConfig(v *viper.Viper, log zerolog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Msg("config file changed")

		cfg, err := decodeConfig(v)
		if err != nil {
			log.Error().Err(err).Msg("failed to reload config")
			return
		}

		level := logging.SetLevel(cfg.Logging.Level)
		log.Info().Str("level", level.String()).Msg("log level updated")
	})
	v.WatchConfig()
}
