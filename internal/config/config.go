package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Sheets SheetsConfig `yaml:"sheets" mapstructure:"sheets"`
	Relay  RelayConfig  `yaml:"relay" mapstructure:"relay"`
	Sync   SyncConfig   `yaml:"sync" mapstructure:"sync"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SheetsConfig configures where spreadsheet workbooks are read from.
type SheetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RelayConfig configures the downstream lead-intake endpoint.
type RelayConfig struct {
	URL            string  `yaml:"url" mapstructure:"url"`
	AuthHeader     string  `yaml:"auth_header" mapstructure:"auth_header"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// SyncConfig configures run pacing.
type SyncConfig struct {
	ThrottleEvery   int `yaml:"throttle_every" mapstructure:"throttle_every"`
	ThrottleDelayMS int `yaml:"throttle_delay_ms" mapstructure:"throttle_delay_ms"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port         int    `yaml:"port" mapstructure:"port"`
	TenantHeader string `yaml:"tenant_header" mapstructure:"tenant_header"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHEETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("sheets.dir", "./sheets")
	v.SetDefault("relay.auth_header", "X-Account-Key")
	v.SetDefault("relay.requests_per_sec", 10)
	v.SetDefault("sync.throttle_every", 10)
	v.SetDefault("sync.throttle_delay_ms", 50)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tenant_header", "X-Tenant-ID")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
