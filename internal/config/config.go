package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"StockLens/internal/backtest"
	"StockLens/internal/logger"
	"StockLens/internal/model"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string  `yaml:"provider" validate:"oneof=yahoo postgres rest mock"`
		BaseURL   string  `yaml:"base_url" validate:"omitempty,url"`
		APIKey    string  `yaml:"api_key"`
		RateLimit float64 `yaml:"rate_limit" validate:"gt=0"` // requests per second
	} `yaml:"data_source"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
		TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	} `yaml:"cache"`
	Schedule struct {
		ReportCron string `yaml:"report_cron" validate:"required"`
		AlertCron  string `yaml:"alert_cron" validate:"required"`
	} `yaml:"schedule"`
	Alerts struct {
		StateFile string `yaml:"state_file" validate:"required"`
	} `yaml:"alerts"`
	Watchlist  []string             `yaml:"watchlist" validate:"dive,required"`
	Timeframes []string             `yaml:"timeframes"`
	Strategy   model.BacktestParams `yaml:"strategy"`
	API        struct {
		Listen string `yaml:"listen"`
	} `yaml:"api"`
	Log   logger.LogConfig `yaml:"log"`
	Proxy string           `yaml:"proxy"`
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{Strategy: model.DefaultBacktestParams()}
	cfg.Log = logger.LogConfig{Level: "INFO", Format: "text"}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	setString("DATA_PROVIDER", &cfg.DataSource.Provider)
	setString("DATA_BASE_URL", &cfg.DataSource.BaseURL)
	setString("DATA_API_KEY", &cfg.DataSource.APIKey)
	setString("POSTGRES_DSN", &cfg.Database.PostgresDSN)
	setString("SQLITE_PATH", &cfg.Database.SQLitePath)
	setString("REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	setString("CRON_REPORT", &cfg.Schedule.ReportCron)
	setString("CRON_ALERT", &cfg.Schedule.AlertCron)
	setString("API_LISTEN", &cfg.API.Listen)
	setString("HTTPS_PROXY", &cfg.Proxy)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist = SplitList(v)
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		cfg.Timeframes = SplitList(v)
	}
	if v := os.Getenv("DATA_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DataSource.RateLimit = rps
		}
	}
	if v := os.Getenv("LOG_TRACING_ENABLED"); v != "" {
		cfg.Log.TracingEnabled = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.RateLimit == 0 {
		cfg.DataSource.RateLimit = 2
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stocklens.db"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 6 * time.Hour
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 8 * * 1"
	}
	if cfg.Schedule.AlertCron == "" {
		cfg.Schedule.AlertCron = "0 30 22 * * 1-5"
	}
	if cfg.Alerts.StateFile == "" {
		cfg.Alerts.StateFile = "data/alert_state.json"
	}
	if len(cfg.Watchlist) == 0 {
		cfg.Watchlist = []string{"SPY"}
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = ":8080"
	}
	for i, s := range cfg.Watchlist {
		cfg.Watchlist[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// SplitList splits a comma separated list, trimming entries and dropping empty ones.
func SplitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks struct constraints and the cross-field requirements of the
// selected data provider.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.DataSource.Provider {
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for the postgres provider")
		}
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	}
	for _, name := range c.Timeframes {
		if _, err := backtest.StartOf(name, time.Now()); err != nil {
			return fmt.Errorf("timeframes: %w", err)
		}
	}
	s := c.Strategy
	if s.Signal.BBWindow < 1 {
		return fmt.Errorf("strategy.signal.bb_window must be >= 1")
	}
	if s.ClusterGapDays < 0 {
		return fmt.Errorf("strategy.cluster_gap_days must be >= 0")
	}
	if !ValidQuantile(s.AvgQuantile) || !ValidQuantile(s.GreedyQuantile) {
		return fmt.Errorf("strategy quantiles must be within [0, 1]")
	}
	return nil
}

// ValidQuantile reports whether q is a usable cluster quantile. NaN is rejected.
func ValidQuantile(q float64) bool {
	return !math.IsNaN(q) && q >= 0 && q <= 1
}

// TelegramEnabled reports whether both bot credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// StrategyParams returns the backtest knobs.
func (c *Config) StrategyParams() model.BacktestParams {
	return c.Strategy
}
