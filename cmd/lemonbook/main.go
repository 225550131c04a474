package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lemonbook/internal/config"
	"lemonbook/internal/lemonapi"
)

const appVersion = "0.3.0"

// offlineAnnotation marks commands that run without config or API access.
const offlineAnnotation = "offline"

// app carries what every subcommand shares once the root has loaded config.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "lemonbook",
		Short:         "Little Lemon table bookings from the terminal or Telegram",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[offlineAnnotation] == "true" {
				return nil
			}
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level from config")

	root.AddCommand(
		newConsoleCmd(a),
		newBotCmd(a),
		newHoursCmd(a),
		newBookingsCmd(a),
		newExportCmd(a),
		newPasswordCmd(),
	)
	return root
}

func (a *app) init(logOut io.Writer) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	a.configPath = config.ResolvePath(a.configPath)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", a.configPath, err)
	}
	a.cfg = cfg

	output := zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.RFC3339}
	a.logger = zerolog.New(output).With().Timestamp().Logger()

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	setLevel(&a.logger, level)
	return nil
}

func setLevel(logger *zerolog.Logger, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logger.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// watchLogLevel applies log.level changes from the config file while a
// long-running command is up. An explicit --log-level pins the level.
func (a *app) watchLogLevel(ctx context.Context) {
	if a.logLevel != "" {
		return
	}
	_, err := config.WatchLogLevel(ctx, a.configPath, config.DefaultWatchInterval, func(level string) {
		setLevel(&a.logger, level)
		a.logger.Info().Str("level", level).Msg("log level reloaded")
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("config watch failed")
	}
}

// newAPIClient builds the reservation client from config. The redis client is
// nil when no redis address is configured.
func (a *app) newAPIClient(ctx context.Context) (*lemonapi.Client, *redis.Client, error) {
	cfg := a.cfg
	client, err := lemonapi.NewClient(cfg.API.BaseURL, cfg.APITimeout())
	if err != nil {
		return nil, nil, err
	}
	client.SetSession(cfg.API.SessionID, cfg.API.CSRFToken)
	client.UseRateLimit(cfg.API.RatePerSecond, cfg.API.Burst)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if cfg.API.CacheTTLSeconds > 0 {
			client.UseRedisCache(rdb, cfg.CacheTTL())
		}
	}

	if cfg.API.Email != "" {
		if _, err := client.Login(ctx, cfg.API.Email, cfg.API.Password); err != nil {
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, nil, fmt.Errorf("login as %s: %w", cfg.API.Email, err)
		}
		a.logger.Debug().Str("email", cfg.API.Email).Msg("signed in")
	}
	return client, rdb, nil
}
