package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

const (
	DefaultPath = "configs/config.yaml"
	EnvPath     = "LEMONBOOK_CONFIG"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	API struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		SessionID       string  `yaml:"session_id"`
		CSRFToken       string  `yaml:"csrf_token"`
		Email           string  `yaml:"email"`
		Password        string  `yaml:"password"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		Burst           int     `yaml:"burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Booking struct {
		DefaultBranch   string `yaml:"default_branch"`
		DefaultOpening  string `yaml:"default_opening"`
		DefaultClosing  string `yaml:"default_closing"`
		Durations       []int  `yaml:"durations"`
		MinuteIncrement int    `yaml:"minute_increment"`
		LoginPath       string `yaml:"login_path"`
		PagePath        string `yaml:"page_path"`
		PhonePrefix     string `yaml:"phone_prefix"`
	} `yaml:"booking"`

	Listing struct {
		PageSize         int `yaml:"page_size"`
		SearchDebounceMs int `yaml:"search_debounce_ms"`
	} `yaml:"listing"`

	Password struct {
		PanelHideDelayMs int `yaml:"panel_hide_delay_ms"`
	} `yaml:"password"`

	Telegram struct {
		BotToken           string `yaml:"bot_token"`
		Debug              bool   `yaml:"debug"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
		StateTTLHours      int    `yaml:"state_ttl_hours"`
		ReminderHour       int    `yaml:"reminder_hour"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadEnv loads a .env file into the process environment if one exists.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ResolvePath picks the config path: explicit flag, then env, then default.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, expanding ${ENV_VAR} placeholders first, and applies defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.Booking.DefaultBranch == "" {
		c.Booking.DefaultBranch = "Vellore"
	}
	if c.Booking.DefaultOpening == "" {
		c.Booking.DefaultOpening = models.DefaultOpeningTime
	}
	if c.Booking.DefaultClosing == "" {
		c.Booking.DefaultClosing = models.DefaultClosingTime
	}
	if len(c.Booking.Durations) == 0 {
		c.Booking.Durations = []int{30, 60, 90}
	}
	if c.Booking.MinuteIncrement <= 0 {
		c.Booking.MinuteIncrement = 30
	}
	if c.Booking.LoginPath == "" {
		c.Booking.LoginPath = "/login"
	}
	if c.Booking.PagePath == "" {
		c.Booking.PagePath = "/book/"
	}
	if c.Booking.PhonePrefix == "" {
		c.Booking.PhonePrefix = "+91-"
	}
	if c.Listing.PageSize == 0 {
		c.Listing.PageSize = 5
	}
	if c.Listing.SearchDebounceMs <= 0 {
		c.Listing.SearchDebounceMs = 300
	}
	if c.Password.PanelHideDelayMs <= 0 {
		c.Password.PanelHideDelayMs = 200
	}
	if c.Telegram.RateLimitPerMinute == 0 {
		c.Telegram.RateLimitPerMinute = 30
	}
	if c.Telegram.ReminderHour == 0 {
		c.Telegram.ReminderHour = 9
	}
	if c.Telegram.StateTTLHours <= 0 {
		c.Telegram.StateTTLHours = 24 * 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalid)
	}
	if _, err := slots.ParseClock(c.Booking.DefaultOpening); err != nil {
		return fmt.Errorf("%w: booking.default_opening: %v", ErrInvalid, err)
	}
	if _, err := slots.ParseClock(c.Booking.DefaultClosing); err != nil {
		return fmt.Errorf("%w: booking.default_closing: %v", ErrInvalid, err)
	}
	for _, d := range c.Booking.Durations {
		if d <= 0 {
			return fmt.Errorf("%w: booking.durations must be positive, got %d", ErrInvalid, d)
		}
	}
	if c.Telegram.ReminderHour > 23 {
		return fmt.Errorf("%w: telegram.reminder_hour must be 0-23 or negative to disable", ErrInvalid)
	}
	if c.Listing.PageSize < 1 {
		return fmt.Errorf("%w: listing.page_size must be at least 1", ErrInvalid)
	}
	return nil
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.Listing.SearchDebounceMs) * time.Millisecond
}

func (c *Config) PanelHideDelay() time.Duration {
	return time.Duration(c.Password.PanelHideDelayMs) * time.Millisecond
}

func (c *Config) StateTTL() time.Duration {
	return time.Duration(c.Telegram.StateTTLHours) * time.Hour
}

// DefaultHours is the fallback working-hours window.
func (c *Config) DefaultHours() models.WorkingHours {
	return models.WorkingHours{OpeningTime: c.Booking.DefaultOpening, ClosingTime: c.Booking.DefaultClosing}
}
