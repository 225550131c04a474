package config

import (
	"context"
	"os"
	"time"
)

// DefaultWatchInterval is how often WatchLogLevel polls the config file.
const DefaultWatchInterval = 30 * time.Second

// WatchLogLevel polls the config file and calls onChange with the new
// log.level whenever an edit changes it. Edits that leave the level alone, or
// that fail to parse, are ignored. It returns the level read at start.
func WatchLogLevel(ctx context.Context, path string, interval time.Duration, onChange func(level string)) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	level, modified := cfg.Log.Level, info.ModTime()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(path)
			if err != nil || !info.ModTime().After(modified) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				continue
			}
			modified = info.ModTime()
			if cfg.Log.Level == level {
				continue
			}
			level = cfg.Log.Level
			if onChange != nil {
				onChange(level)
			}
		}
	}()

	return level, nil
}
