package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
api:
  base_url: "https://lemon.example.com"
  csrf_token: "${LEMON_TEST_CSRF}"
  rate_per_second: 5
redis:
  address: "localhost:6379"
booking:
  durations: [30, 60]
log:
  level: debug
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("LEMON_TEST_CSRF", "abc")
	path := writeFile(t, t.TempDir(), "config.yaml", sample)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://lemon.example.com", cfg.API.BaseURL)
	assert.Equal(t, "abc", cfg.API.CSRFToken)
	assert.Equal(t, 5.0, cfg.API.RatePerSecond)
	assert.Equal(t, 10*time.Second, cfg.APITimeout())
	assert.Equal(t, "Vellore", cfg.Booking.DefaultBranch)
	assert.Equal(t, []int{30, 60}, cfg.Booking.Durations)
	assert.Equal(t, 30, cfg.Booking.MinuteIncrement)
	assert.Equal(t, "/login", cfg.Booking.LoginPath)
	assert.Equal(t, "/book/", cfg.Booking.PagePath)
	assert.Equal(t, "+91-", cfg.Booking.PhonePrefix)
	assert.Equal(t, 5, cfg.Listing.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce())
	assert.Equal(t, 200*time.Millisecond, cfg.PanelHideDelay())
	assert.Equal(t, "10:00", cfg.DefaultHours().OpeningTime)
	assert.Equal(t, "22:00", cfg.DefaultHours().ClosingTime)
	assert.Equal(t, 30, cfg.Telegram.RateLimitPerMinute)
	assert.Equal(t, 720*time.Hour, cfg.StateTTL())
	assert.Equal(t, 9, cfg.Telegram.ReminderHour)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing base url", body: "log:\n  level: info\n"},
		{name: "bad opening", body: "api:\n  base_url: http://x\nbooking:\n  default_opening: \"25:00\"\n"},
		{name: "negative page size", body: "api:\n  base_url: http://x\nlisting:\n  page_size: -1\n"},
		{name: "zero duration", body: "api:\n  base_url: http://x\nbooking:\n  durations: [0]\n"},
		{name: "reminder hour", body: "api:\n  base_url: http://x\ntelegram:\n  reminder_hour: 24\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Parse([]byte("api: [unclosed"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	t.Setenv(EnvPath, "/etc/lemonbook.yaml")
	assert.Equal(t, "/etc/lemonbook.yaml", ResolvePath(""))
	assert.Equal(t, "flag.yaml", ResolvePath("flag.yaml"))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "LEMON_TEST_FROM_DOTENV=yes\n")
	t.Setenv("LEMON_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("LEMON_TEST_FROM_DOTENV"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
	require.NoError(t, LoadEnv(p))
	assert.Equal(t, "yes", os.Getenv("LEMON_TEST_FROM_DOTENV"))
}

func TestWatchLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "api:\n  base_url: http://x\nlog:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var levels []string
	initial, err := WatchLogLevel(ctx, path, 10*time.Millisecond, func(level string) {
		mu.Lock()
		defer mu.Unlock()
		levels = append(levels, level)
	})
	require.NoError(t, err)
	assert.Equal(t, "info", initial)

	touch := func(body string, at time.Time) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		require.NoError(t, os.Chtimes(path, at, at))
	}
	got := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), levels...)
	}

	// Same level, different base url: no callback.
	touch("api:\n  base_url: http://y\nlog:\n  level: info\n", time.Now().Add(time.Minute))
	// Broken file: ignored.
	touch("api: [", time.Now().Add(2*time.Minute))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got())

	touch("api:\n  base_url: http://x\nlog:\n  level: warn\n", time.Now().Add(3*time.Minute))
	assert.Eventually(t, func() bool {
		l := got()
		return len(l) == 1 && l[0] == "warn"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchLogLevel_MissingFile(t *testing.T) {
	_, err := WatchLogLevel(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), time.Second, nil)
	assert.Error(t, err)
}
