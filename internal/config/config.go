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
	Store     StoreConfig   `yaml:"store" mapstructure:"store"`
	Session   SessionConfig `yaml:"session" mapstructure:"session"`
	IPGeo     IPGeoConfig   `yaml:"ipgeo" mapstructure:"ipgeo"`
	CompanyDB ServiceConfig `yaml:"companydb" mapstructure:"companydb"`
	EmailFind ServiceConfig `yaml:"emailfind" mapstructure:"emailfind"`
	Enrich    EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Scoring   ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Server    ServerConfig  `yaml:"server" mapstructure:"server"`
	Log       LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the company store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres|sqlite|memory
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SessionConfig configures the session store backend.
type SessionConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"` // redis|memory
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// IPGeoConfig holds the IP geolocation service settings.
type IPGeoConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ServiceConfig holds credentials for a lookup service.
type ServiceConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EnrichConfig configures the enrichment fan-out.
type EnrichConfig struct {
	AdapterTimeoutSecs int     `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
	MinConfidence      float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// ScoringConfig configures the lead scoring engine.
type ScoringConfig struct {
	// WeightsFile optionally points to a YAML file overriding the default
	// scoring weights.
	WeightsFile string `yaml:"weights_file" mapstructure:"weights_file"`
}

// ServerConfig configures the tracking ingest server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "tracker.db")
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("ipgeo.base_url", "https://ipinfo.io")
	v.SetDefault("companydb.base_url", "https://company.clearbit.com/v2")
	v.SetDefault("emailfind.base_url", "https://api.hunter.io/v2")
	v.SetDefault("enrich.adapter_timeout_secs", 3)
	v.SetDefault("enrich.min_confidence", 0.3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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
