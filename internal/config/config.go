// Package config loads application configuration from config.yaml and
// DEALERSCOUT_* environment variables, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Target   TargetConfig   `yaml:"target" mapstructure:"target"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Browser  BrowserConfig  `yaml:"browser" mapstructure:"browser"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Seed     SeedConfig     `yaml:"seed" mapstructure:"seed"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// TargetConfig identifies the directory site being scanned.
type TargetConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScanConfig controls the postal-code loop.
type ScanConfig struct {
	RadiusKm     int           `yaml:"radius_km" mapstructure:"radius_km"`
	Categories   []string      `yaml:"categories" mapstructure:"categories"`
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	Pace         time.Duration `yaml:"pace" mapstructure:"pace"`
	StartIndex   int           `yaml:"start_index" mapstructure:"start_index"`
	Limit        int           `yaml:"limit" mapstructure:"limit"`
	DetailPages  bool          `yaml:"detail_pages" mapstructure:"detail_pages"`
	DetailPool   int           `yaml:"detail_pool" mapstructure:"detail_pool"`
	MaxLoadMore  int           `yaml:"max_load_more" mapstructure:"max_load_more"`
	SettleSecs   int           `yaml:"settle_secs" mapstructure:"settle_secs"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Headless    bool          `yaml:"headless" mapstructure:"headless"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	OpTimeout   time.Duration `yaml:"op_timeout" mapstructure:"op_timeout"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures end-of-run file export.
type ExportConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// SeedConfig locates the postal-code list.
type SeedConfig struct {
	File  string   `yaml:"file" mapstructure:"file"`
	Codes []string `yaml:"codes" mapstructure:"codes"`
}

// SnapshotConfig configures diagnostic page captures.
type SnapshotConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (optional) and applies
// environment overrides and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALERSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("target.base_url", "https://www.biomarkt.de/haendler/")
	v.SetDefault("scan.radius_km", 50)
	v.SetDefault("scan.batch_size", 25)
	v.SetDefault("scan.pace", "2s")
	v.SetDefault("scan.detail_pool", 3)
	v.SetDefault("scan.max_load_more", 10)
	v.SetDefault("scan.settle_secs", 10)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.op_timeout", "25s")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dealer-scout.db")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.enabled", true)
	v.SetDefault("snapshot.dir", "snapshots")
	v.SetDefault("snapshot.enabled", true)
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
