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
	DB       DBConfig       `yaml:"db" mapstructure:"db"`
	Solr     SolrConfig     `yaml:"solr" mapstructure:"solr"`
	Verify   VerifyConfig   `yaml:"verify" mapstructure:"verify"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Alert    AlertConfig    `yaml:"alert" mapstructure:"alert"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DBConfig configures the jobs database connection.
type DBConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// SolrConfig configures the Solr search index connection.
type SolrConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	Core             string  `yaml:"core" mapstructure:"core"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst        int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	BatchSize        int     `yaml:"batch_size" mapstructure:"batch_size"`
	RetryMaxAttempts int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryBackoffMs   int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// VerifyConfig configures the verification run itself.
type VerifyConfig struct {
	WindowHours int `yaml:"window_hours" mapstructure:"window_hours"`
	Limit       int `yaml:"limit" mapstructure:"limit"`
	Workers     int `yaml:"workers" mapstructure:"workers"`
}

// RulesConfig locates the optional comparison rules file.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ReportConfig configures failure report output.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// HistoryConfig configures run history recording.
type HistoryConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	Module         string `yaml:"module" mapstructure:"module"`
	TestName       string `yaml:"test_name" mapstructure:"test_name"`
	RetentionDays  int    `yaml:"retention_days" mapstructure:"retention_days"`
	KeepLatestOnly bool   `yaml:"keep_latest_only" mapstructure:"keep_latest_only"`
	SampleSize     int    `yaml:"sample_size" mapstructure:"sample_size"`
}

// SnapshotConfig configures the offline snapshot store.
type SnapshotConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the history API server.
type ServerConfig struct {
	Port           int    `yaml:"port" mapstructure:"port"`
	Watch          string `yaml:"watch" mapstructure:"watch"`
	RunTimeoutSecs int    `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// AlertConfig configures webhook alerting for scheduled runs. An empty
// webhook URL disables delivery; a zero not_found_threshold disables the
// index lag alert.
type AlertConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	NotFoundThreshold    int     `yaml:"not_found_threshold" mapstructure:"not_found_threshold"`
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
	v.SetEnvPrefix("SYNCCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("solr.base_url", "http://localhost:8983/solr")
	v.SetDefault("solr.core", "jobs")
	v.SetDefault("solr.timeout_secs", 30)
	v.SetDefault("solr.rate_per_sec", 10.0)
	v.SetDefault("solr.rate_burst", 2)
	v.SetDefault("solr.batch_size", 100)
	v.SetDefault("solr.retry_max_attempts", 3)
	v.SetDefault("solr.retry_backoff_ms", 500)
	v.SetDefault("verify.window_hours", 24)
	v.SetDefault("verify.limit", 0)
	v.SetDefault("verify.workers", 8)
	v.SetDefault("rules.path", "")
	v.SetDefault("report.dir", "reports")
	v.SetDefault("history.dir", "logs/history")
	v.SetDefault("history.module", "db_solr_sync")
	v.SetDefault("history.test_name", "db_solr_sync_check")
	v.SetDefault("history.retention_days", 7)
	v.SetDefault("history.keep_latest_only", false)
	v.SetDefault("history.sample_size", 50)
	v.SetDefault("snapshot.path", "snapshots/db_solr_sync.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.watch", "")
	v.SetDefault("server.run_timeout_secs", 600)
	v.SetDefault("alert.webhook_url", "")
	v.SetDefault("alert.failure_rate_threshold", 0.10)
	v.SetDefault("alert.not_found_threshold", 10)
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

// Validate checks the fields required by the given run mode. Modes:
// "verify" and "capture" need both live endpoints, "offline" runs from a
// snapshot file, "serve" needs only the listen port.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Verify.Workers >= 1 && c.Verify.Workers <= 64, "verify.workers must be between 1 and 64")
	check(c.History.RetentionDays >= 1, "history.retention_days must be >= 1")
	check(c.History.SampleSize >= 0, "history.sample_size must be >= 0")
	check(c.History.Module != "", "history.module is required")
	check(c.History.TestName != "", "history.test_name is required")
	check(c.Alert.FailureRateThreshold >= 0 && c.Alert.FailureRateThreshold <= 1, "alert.failure_rate_threshold must be between 0 and 1")
	check(c.Alert.NotFoundThreshold >= 0, "alert.not_found_threshold must be >= 0")

	switch mode {
	case "verify", "capture":
		check(c.DB.URL != "", "db.url is required")
		check(c.Solr.BaseURL != "", "solr.base_url is required")
		check(c.Solr.Core != "", "solr.core is required")
		check(c.Solr.TimeoutSecs > 0, "solr.timeout_secs must be > 0")
		check(c.Solr.BatchSize >= 1 && c.Solr.BatchSize <= 1000, "solr.batch_size must be between 1 and 1000")
	case "offline":
		check(c.Snapshot.Path != "", "snapshot.path is required")
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}

	return nil
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
