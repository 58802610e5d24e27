package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"HammerScanner/internal/model"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ModeSupport = "support"
	ModePattern = "pattern"
)

// Category is one universe entry: a group of symbols sharing a source and interval.
type Category struct {
	Name     string   `yaml:"name"`
	Symbols  []string `yaml:"symbols"`
	Source   string   `yaml:"source"`
	Interval string   `yaml:"interval"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		MaxRetries *int   `yaml:"max_retries"`
	} `yaml:"telegram"`
	Strategy struct {
		Mode             string   `yaml:"mode"`
		RSIPeriod        int      `yaml:"rsi_period"`
		RSILimit         float64  `yaml:"rsi_limit"`
		SupportLookback  int      `yaml:"support_lookback"`
		SupportTolerance *float64 `yaml:"support_tolerance"` // nil until defaults apply
		MinBars          int      `yaml:"min_bars"`
	} `yaml:"strategy"`
	Scan struct {
		Bars    int           `yaml:"bars"`
		Timeout time.Duration `yaml:"timeout"`
		Summary bool          `yaml:"summary"`
	} `yaml:"scan"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Emoji    map[string]string `yaml:"emoji"`
	Universe []Category        `yaml:"universe"`
	Proxy    string            `yaml:"proxy"`
}

// DefaultUniverse is the stock watch list.
func DefaultUniverse() []Category {
	return []Category{
		{Name: "CRYPTO", Source: "ccxt", Interval: "4h",
			Symbols: []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT", "DOGE/USDT", "AVAX/USDT"}},
		{Name: "SAHAM_INDO", Source: "yfinance", Interval: "1d",
			Symbols: []string{"BBRI.JK", "BBCA.JK", "BMRI.JK", "TLKM.JK", "ADRO.JK", "ASII.JK", "ICBP.JK"}},
		{Name: "SAHAM_US", Source: "yfinance", Interval: "1d",
			Symbols: []string{"AAPL", "TSLA", "NVDA", "META", "GOOGL", "JPM", "KO"}},
		{Name: "FOREX", Source: "yfinance", Interval: "1h",
			Symbols: []string{"EURUSD=X", "GBPUSD=X", "USDJPY=X"}},
		{Name: "GOLD", Source: "yfinance", Interval: "1h",
			Symbols: []string{"GC=F"}},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config")
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	// TELEGRAM_TOKEN is the older name; TELEGRAM_BOT_TOKEN wins when both are set.
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v, ok := os.LookupEnv("SCAN_CRON"); ok {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RSI_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "parse RSI_LIMIT %q", v)
		}
		c.Strategy.RSILimit = limit
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.Mode == "" {
		c.Strategy.Mode = ModeSupport
	}
	c.Strategy.Mode = strings.ToLower(c.Strategy.Mode)
	if c.Strategy.RSIPeriod == 0 {
		c.Strategy.RSIPeriod = 14
	}
	if c.Strategy.RSILimit == 0 {
		c.Strategy.RSILimit = 35
	}
	if c.Strategy.SupportLookback == 0 {
		c.Strategy.SupportLookback = 50
	}
	if c.Strategy.SupportTolerance == nil {
		c.Strategy.SupportTolerance = ptr(0.015)
	}
	if c.Strategy.MinBars == 0 {
		c.Strategy.MinBars = 50
	}
	if c.Scan.Bars == 0 {
		c.Scan.Bars = 100
	}
	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = 10 * time.Minute
	}
	if c.Telegram.MaxRetries == nil {
		c.Telegram.MaxRetries = ptr(3)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Universe) == 0 {
		c.Universe = DefaultUniverse()
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	switch c.Strategy.Mode {
	case ModeSupport, ModePattern:
	default:
		return errors.Errorf("strategy.mode must be %q or %q, got %q", ModeSupport, ModePattern, c.Strategy.Mode)
	}
	if c.Strategy.RSIPeriod < 1 {
		return errors.New("strategy.rsi_period must be positive")
	}
	if c.Strategy.RSILimit <= 0 || c.Strategy.RSILimit > 100 {
		return errors.Errorf("strategy.rsi_limit must be in (0, 100], got %g", c.Strategy.RSILimit)
	}
	if c.Strategy.SupportLookback < 1 {
		return errors.New("strategy.support_lookback must be positive")
	}
	if c.Tolerance() < 0 {
		return errors.New("strategy.support_tolerance must not be negative")
	}
	if c.Retries() < 0 {
		return errors.New("telegram.max_retries must not be negative")
	}
	if c.Scan.Bars < c.Strategy.MinBars {
		return errors.Errorf("scan.bars (%d) is below strategy.min_bars (%d)", c.Scan.Bars, c.Strategy.MinBars)
	}
	// support at the last bar needs lookback earlier bars
	if c.Strategy.Mode == ModeSupport && c.Strategy.SupportLookback >= c.Scan.Bars {
		return errors.Errorf("strategy.support_lookback (%d) must be below scan.bars (%d)",
			c.Strategy.SupportLookback, c.Scan.Bars)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	for i, cat := range c.Universe {
		if cat.Name == "" {
			return errors.Errorf("universe[%d].name is required", i)
		}
		if cat.Source == "" || cat.Interval == "" {
			return errors.Errorf("universe %s: source and interval are required", cat.Name)
		}
		if len(cat.Symbols) == 0 {
			return errors.Errorf("universe %s: no symbols", cat.Name)
		}
	}
	return nil
}

// Tolerance is the support tolerance; zero means the low must not sit above support.
func (c *Config) Tolerance() float64 {
	if c.Strategy.SupportTolerance == nil {
		return 0
	}
	return *c.Strategy.SupportTolerance
}

// Retries is the number of extra Telegram send attempts.
func (c *Config) Retries() int {
	if c.Telegram.MaxRetries == nil {
		return 0
	}
	return *c.Telegram.MaxRetries
}

func ptr[T any](v T) *T { return &v }

// TelegramEnabled reports whether chat credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Instruments flattens the universe in configured order.
func (c *Config) Instruments() []model.Instrument {
	var out []model.Instrument
	for _, cat := range c.Universe {
		for _, sym := range cat.Symbols {
			out = append(out, model.Instrument{
				Symbol:   sym,
				Category: cat.Name,
				Source:   cat.Source,
				Interval: cat.Interval,
			})
		}
	}
	return out
}

// Emojis returns the configured category table, or nil to select the formatter defaults.
func (c *Config) Emojis() map[string]string {
	if len(c.Emoji) == 0 {
		return nil
	}
	return c.Emoji
}
