package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the complete configuration for the tracker binaries
type AppConfig struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	ServiceName string          `mapstructure:"service_name"`
	Source      SourceConfig    `mapstructure:"source"`
	Hometown    HometownConfig  `mapstructure:"hometown"`
	Snapshot    SnapshotConfig  `mapstructure:"snapshot"`
	Archive     ArchiveConfig   `mapstructure:"archive"`
	Notifier    NotifierConfig  `mapstructure:"notifier"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
}

// SourceConfig configures the league-data API client
type SourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	League         string        `mapstructure:"league"`
	LeagueID       string        `mapstructure:"league_id"`
	Season         string        `mapstructure:"season"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// HometownConfig configures the Wikipedia hometown lookup
type HometownConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
	Workers       int           `mapstructure:"workers"`
}

// SnapshotConfig configures artifact storage. Backend is "file" or "redis".
type SnapshotConfig struct {
	Backend     string        `mapstructure:"backend"`
	Dir         string        `mapstructure:"dir"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	KeepHistory bool          `mapstructure:"keep_history"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// ArchiveConfig configures the optional Postgres history sink.
// An empty URI disables archiving.
type ArchiveConfig struct {
	PostgresURI string `mapstructure:"postgres_uri"`
	MaxConns    int    `mapstructure:"max_conns"`
	MinConns    int    `mapstructure:"min_conns"`
}

// NotifierConfig configures the optional Kafka run-summary publisher.
// Empty brokers disable it.
type NotifierConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// DashboardConfig configures the read-only snapshot server
type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from file and environment variables
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	// Default values
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "bsl-tracker")
	v.SetDefault("source.base_url", "https://www.thesportsdb.com/api/v1/json/3")
	v.SetDefault("source.league", "Turkish Basketbol Super Ligi")
	v.SetDefault("source.league_id", "4475")
	v.SetDefault("source.season", "2025-2026")
	v.SetDefault("source.request_timeout", 30*time.Second)
	v.SetDefault("source.request_delay", 300*time.Millisecond)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("hometown.api_url", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("hometown.user_agent", "TurkishBSLTracker/1.0 (basketball data collection)")
	v.SetDefault("hometown.lookup_timeout", 15*time.Second)
	v.SetDefault("hometown.workers", 4)
	v.SetDefault("snapshot.backend", "file")
	v.SetDefault("snapshot.dir", "output/json")
	v.SetDefault("snapshot.redis_prefix", "bsl")
	v.SetDefault("snapshot.keep_history", true)
	v.SetDefault("snapshot.grace_period", time.Duration(0))
	v.SetDefault("archive.max_conns", 10)
	v.SetDefault("archive.min_conns", 2)
	v.SetDefault("notifier.topic", "bsl.roster.runs")
	v.SetDefault("dashboard.addr", ":8090")

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind environment variables explicitly for nested structs so Unmarshal
	// picks them up
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("source.base_url", "SOURCE_BASE_URL")
	v.BindEnv("source.league", "SOURCE_LEAGUE")
	v.BindEnv("source.league_id", "SOURCE_LEAGUE_ID")
	v.BindEnv("source.season", "SOURCE_SEASON")
	v.BindEnv("hometown.api_url", "HOMETOWN_API_URL")
	v.BindEnv("hometown.workers", "HOMETOWN_WORKERS")
	v.BindEnv("snapshot.backend", "SNAPSHOT_BACKEND")
	v.BindEnv("snapshot.dir", "SNAPSHOT_DIR")
	v.BindEnv("snapshot.redis_addr", "SNAPSHOT_REDIS_ADDR")
	v.BindEnv("snapshot.grace_period", "SNAPSHOT_GRACE_PERIOD")
	v.BindEnv("archive.postgres_uri", "ARCHIVE_POSTGRES_URI")
	v.BindEnv("notifier.brokers", "NOTIFIER_BROKERS")
	v.BindEnv("notifier.topic", "NOTIFIER_TOPIC")
	v.BindEnv("dashboard.addr", "DASHBOARD_ADDR")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Brokers may arrive as a single comma-separated string from env
	brokers := v.GetString("notifier.brokers")
	if brokers != "" && len(config.Notifier.Brokers) == 0 {
		config.Notifier.Brokers = strings.Split(brokers, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.Source.BaseURL == "" {
		return errors.New("source.base_url is required")
	}
	if c.Source.League == "" {
		return errors.New("source.league is required")
	}
	if c.Hometown.APIURL == "" {
		return errors.New("hometown.api_url is required")
	}
	if c.Hometown.Workers < 1 {
		return errors.New("hometown.workers must be at least 1")
	}
	switch c.Snapshot.Backend {
	case "file":
		if c.Snapshot.Dir == "" {
			return errors.New("snapshot.dir is required for the file backend")
		}
	case "redis":
		if c.Snapshot.RedisAddr == "" {
			return errors.New("snapshot.redis_addr is required for the redis backend")
		}
	default:
		return errors.New("snapshot.backend must be \"file\" or \"redis\"")
	}
	if len(c.Notifier.Brokers) > 0 && c.Notifier.Topic == "" {
		return errors.New("notifier.topic is required when brokers are set")
	}
	return nil
}
