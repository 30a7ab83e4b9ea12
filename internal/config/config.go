package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Cache backends understood by data.cache_backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

type Config struct {
	RunName    string           `mapstructure:"run_name" yaml:"run_name"`
	Universe   UniverseConfig   `mapstructure:"universe" yaml:"universe"`
	DateRange  DateRangeConfig  `mapstructure:"-" yaml:"date_range"`
	Outputs    OutputsConfig    `mapstructure:"outputs" yaml:"outputs"`
	Data       DataConfig       `mapstructure:"data" yaml:"data"`
	Risk       RiskConfig       `mapstructure:"risk" yaml:"risk"`
	Notify     NotifyConfig     `mapstructure:"notify" yaml:"notify"`
	Commentary CommentaryConfig `mapstructure:"commentary" yaml:"commentary"`
}

type UniverseConfig struct {
	Tickers []string `mapstructure:"tickers" yaml:"tickers"`
}

// DateRangeConfig holds ISO calendar dates.
type DateRangeConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type OutputsConfig struct {
	BaseDir            string `mapstructure:"base_dir" yaml:"base_dir"`
	SaveConfigSnapshot bool   `mapstructure:"save_config_snapshot" yaml:"save_config_snapshot"`
	PrometheusTextfile bool   `mapstructure:"prometheus_textfile" yaml:"prometheus_textfile"`
}

type DataConfig struct {
	CacheDir       string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	CacheBackend   string        `mapstructure:"cache_backend" yaml:"cache_backend"`
	RedisAddr      string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	Interval       string        `mapstructure:"interval" yaml:"interval"`
	AutoAdjust     bool          `mapstructure:"auto_adjust" yaml:"auto_adjust"`
	ForceRefresh   bool          `mapstructure:"force_refresh" yaml:"force_refresh"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
}

type RiskConfig struct {
	ConfidenceLevel float64 `mapstructure:"confidence_level" yaml:"confidence_level"`
	TradingDays     int     `mapstructure:"trading_days" yaml:"trading_days"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	ChatID  int64  `mapstructure:"chat_id" yaml:"chat_id"`
	Token   string `mapstructure:"-" yaml:"-"`
}

type CommentaryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"-" yaml:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_name", "run")
	v.SetDefault("outputs.base_dir", "runs")
	v.SetDefault("outputs.save_config_snapshot", true)
	v.SetDefault("outputs.prometheus_textfile", false)
	v.SetDefault("data.cache_dir", "data/cache")
	v.SetDefault("data.cache_backend", BackendFile)
	v.SetDefault("data.redis_addr", "localhost:6379")
	v.SetDefault("data.interval", "1d")
	v.SetDefault("data.auto_adjust", true)
	v.SetDefault("data.force_refresh", false)
	v.SetDefault("data.timeout", "30s")
	v.SetDefault("data.max_concurrency", 4)
	v.SetDefault("data.requests_per_sec", 2.0)
	v.SetDefault("risk.confidence_level", 0.95)
	v.SetDefault("risk.trading_days", 252)
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("commentary.enabled", false)
	v.SetDefault("commentary.model", "gpt-4")
}

// Load reads the YAML file at path, applies defaults and RISK_ENGINE_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RISK_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if !v.IsSet("date_range.start") || !v.IsSet("date_range.end") {
		return nil, errors.New("config: date_range.start and date_range.end are required")
	}
	var err error
	if cfg.DateRange.Start, err = dateString(v.Get("date_range.start")); err != nil {
		return nil, fmt.Errorf("config: date_range.start: %w", err)
	}
	if cfg.DateRange.End, err = dateString(v.Get("date_range.end")); err != nil {
		return nil, fmt.Errorf("config: date_range.end: %w", err)
	}

	if cfg.Notify.Telegram.Enabled {
		if cfg.Notify.Telegram.Token, err = requireEnv("TELEGRAM_BOT_TOKEN"); err != nil {
			return nil, err
		}
	}
	if cfg.Commentary.Enabled {
		if cfg.Commentary.APIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalises tickers and checks every field the pipeline relies on.
func (c *Config) Validate() error {
	tickers, err := NormalizeTickers(c.Universe.Tickers)
	if err != nil {
		return err
	}
	c.Universe.Tickers = tickers

	start, err := c.StartDate()
	if err != nil {
		return fmt.Errorf("config: date_range.start: %w", err)
	}
	end, err := c.EndDate()
	if err != nil {
		return fmt.Errorf("config: date_range.end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("config: date_range.start %s must be before end %s", c.DateRange.Start, c.DateRange.End)
	}

	if strings.TrimSpace(c.RunName) == "" {
		return errors.New("config: run_name must not be empty")
	}
	if c.Outputs.BaseDir == "" {
		return errors.New("config: outputs.base_dir must not be empty")
	}
	if c.Data.Interval == "" {
		return errors.New("config: data.interval must not be empty")
	}
	switch c.Data.CacheBackend {
	case BackendFile, BackendSQLite, BackendBadger:
		if c.Data.CacheDir == "" {
			return errors.New("config: data.cache_dir must not be empty")
		}
	case BackendRedis:
		if c.Data.RedisAddr == "" {
			return errors.New("config: data.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown data.cache_backend %q", c.Data.CacheBackend)
	}
	if c.Data.MaxConcurrency <= 0 {
		return fmt.Errorf("config: data.max_concurrency must be positive, got %d", c.Data.MaxConcurrency)
	}
	if c.Data.Timeout <= 0 {
		return fmt.Errorf("config: data.timeout must be positive, got %s", c.Data.Timeout)
	}
	if c.Risk.ConfidenceLevel <= 0 || c.Risk.ConfidenceLevel >= 1 {
		return fmt.Errorf("config: risk.confidence_level must be in (0,1), got %v", c.Risk.ConfidenceLevel)
	}
	if c.Risk.TradingDays <= 0 {
		return fmt.Errorf("config: risk.trading_days must be positive, got %d", c.Risk.TradingDays)
	}
	if c.Notify.Telegram.Enabled && c.Notify.Telegram.ChatID == 0 {
		return errors.New("config: notify.telegram.chat_id is required when telegram is enabled")
	}
	return nil
}

// StartDate parses date_range.start.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse(dateLayout, c.DateRange.Start)
}

// EndDate parses date_range.end.
func (c *Config) EndDate() (time.Time, error) {
	return time.Parse(dateLayout, c.DateRange.End)
}

// WriteSnapshot writes the resolved configuration as YAML. Secrets are omitted.
func (c *Config) WriteSnapshot(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config snapshot: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write config snapshot: %w", err)
	}
	return nil
}

// NormalizeTickers trims and de-duplicates symbols, keeping the first
// occurrence order. Case is preserved since it feeds the cache fingerprint.
func NormalizeTickers(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, errors.New("config: universe.tickers must be a non-empty list")
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, errors.New("config: universe.tickers contains an empty symbol")
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// dateString accepts either a YAML timestamp or a string and returns YYYY-MM-DD.
func dateString(v any) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(dateLayout), nil
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return "", errors.New("empty date")
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return "", fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t.Format(dateLayout), nil
	default:
		return "", fmt.Errorf("unsupported date value %v (%T)", v, v)
	}
}

func requireEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("missing env %s", k)
	}
	return v, nil
}
