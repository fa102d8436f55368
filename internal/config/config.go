package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/bill-tracker/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	OpenStates OpenStatesConfig `yaml:"openstates" mapstructure:"openstates"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Run        RunConfig        `yaml:"run" mapstructure:"run"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// OpenStatesConfig holds the search API credential and endpoint.
type OpenStatesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CrawlConfig configures a single jurisdiction crawl.
type CrawlConfig struct {
	Keywords         []string `yaml:"keywords" mapstructure:"keywords"`
	RequestDelaySecs float64  `yaml:"request_delay_secs" mapstructure:"request_delay_secs"`
	UpdatedSinceDays int      `yaml:"updated_since_days" mapstructure:"updated_since_days"`
	PerPage          int      `yaml:"per_page" mapstructure:"per_page"`
	MaxPages         int      `yaml:"max_pages" mapstructure:"max_pages"`
	DefaultYear      string   `yaml:"default_year" mapstructure:"default_year"`
}

// RunConfig configures the orchestrator run over all jurisdictions.
type RunConfig struct {
	OutputDir           string `yaml:"output_dir" mapstructure:"output_dir"`
	DBPath              string `yaml:"db_path" mapstructure:"db_path"`
	Workers             int    `yaml:"workers" mapstructure:"workers"`
	JurisdictionTimeout int    `yaml:"jurisdiction_timeout_mins" mapstructure:"jurisdiction_timeout_mins"`
	PauseSecs           int    `yaml:"pause_secs" mapstructure:"pause_secs"`
}

// ScheduleConfig configures the recurring trigger.
type ScheduleConfig struct {
	EveryDays int    `yaml:"every_days" mapstructure:"every_days"`
	At        string `yaml:"at" mapstructure:"at"` // HH:MM, local time
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. The API key is the
// only required value; its absence is a fatal startup error.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BILLTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about; the key
	// has no default, so it must be bound explicitly or Unmarshal never
	// sees BILLTRACKER_OPENSTATES_KEY.
	v.MustBindEnv("openstates.key")

	// Defaults
	v.SetDefault("openstates.base_url", "https://v3.openstates.org")
	v.SetDefault("crawl.keywords", model.DefaultKeywords)
	v.SetDefault("crawl.request_delay_secs", 3.0)
	v.SetDefault("crawl.updated_since_days", 365)
	v.SetDefault("crawl.per_page", 20)
	v.SetDefault("crawl.max_pages", 5)
	v.SetDefault("crawl.default_year", "2026")
	v.SetDefault("run.output_dir", "data/output")
	v.SetDefault("run.db_path", "data/billtracker.db")
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.jurisdiction_timeout_mins", 10)
	v.SetDefault("run.pause_secs", 2)
	v.SetDefault("schedule.every_days", 14)
	v.SetDefault("schedule.at", "09:00")
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

	if cfg.OpenStates.Key == "" {
		return nil, eris.New("config: openstates api key is required (set BILLTRACKER_OPENSTATES_KEY)")
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
