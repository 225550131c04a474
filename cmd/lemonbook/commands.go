package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lemonbook/internal/bot"
	"lemonbook/internal/console"
	"lemonbook/internal/export"
	"lemonbook/internal/hours"
	"lemonbook/internal/listing"
	"lemonbook/internal/password"
	"lemonbook/internal/service"
	"lemonbook/internal/session"
	"lemonbook/internal/slots"
)

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive booking session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, rdb, err := a.newAPIClient(ctx)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}
			a.watchLogLevel(ctx)

			view := console.NewView(cmd.OutOrStdout(), client.URL)
			sess := session.New(ctx, a.cfg, client, view, nil, &a.logger)
			defer sess.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "type 'help' for commands")
			return console.New(sess, view, a.cfg.Booking.MinuteIncrement, &a.logger).Run(ctx, cmd.InOrStdin())
		},
	}
}

func newBotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram booking bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			token := a.cfg.Telegram.BotToken
			if token == "" || token == "YOUR_BOT_TOKEN_HERE" {
				return errors.New("set telegram.bot_token in config")
			}

			client, rdb, err := a.newAPIClient(ctx)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			b, err := bot.New(token, a.cfg, client, &a.logger)
			if err != nil {
				return fmt.Errorf("create bot: %w", err)
			}

			if rdb != nil {
				b.UseStateManager(service.NewStateService(rdb, a.cfg.StateTTL()))
			}

			if hour := a.cfg.Telegram.ReminderHour; hour >= 0 {
				b.StartReminders(ctx, hour)
			}

			a.watchLogLevel(ctx)
			a.startMonitoring(ctx, client, rdb)

			a.logger.Info().Msg("booking bot started")
			b.Start(ctx)
			return nil
		},
	}
}

func newHoursCmd(a *app) *cobra.Command {
	var duration int
	cmd := &cobra.Command{
		Use:   "hours <branch>",
		Short: "Show a branch's working hours and selectable start times",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, rdb, err := a.newAPIClient(ctx)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}
			if duration <= 0 {
				duration = a.cfg.Booking.Durations[0]
			}

			out := cmd.OutOrStdout()
			view := console.NewView(out, client.URL)
			resolver := hours.NewResolver(client, view, a.cfg.DefaultHours(), duration, &a.logger)
			hrs := resolver.Resolve(ctx, args[0])

			fmt.Fprintf(out, "%s: open %s to %s\n", args[0],
				slots.Format12String(hrs.OpeningTime), slots.Format12String(hrs.ClosingTime))
			labels := make([]string, 0)
			for _, c := range slots.StartOptions(resolver.Bounds(), a.cfg.Booking.MinuteIncrement) {
				labels = append(labels, c.String())
			}
			fmt.Fprintf(out, "slots (%s): %s\n", slots.FormatDuration(duration), strings.Join(labels, " "))
			return nil
		},
	}
	cmd.Flags().IntVar(&duration, "duration", 0, "slot length in minutes (default: first configured duration)")
	return cmd
}

func newBookingsCmd(a *app) *cobra.Command {
	var (
		search string
		page   int
	)
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List your bookings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, rdb, err := a.newAPIClient(ctx)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			view := console.NewView(cmd.OutOrStdout(), client.URL)
			pipeline := a.newPipeline(client, view)
			defer pipeline.Close()

			pipeline.SetKeyword(search)
			return pipeline.Fetch(ctx, page)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by name, email or phone")
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		search string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write your bookings to an Excel file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if out == "" {
				return errors.New("--out is required")
			}
			client, rdb, err := a.newAPIClient(ctx)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			// The export goes to a file; listing output is not wanted on stdout.
			view := console.NewView(cmd.ErrOrStderr(), client.URL)
			pipeline := a.newPipeline(client, view)
			defer pipeline.Close()

			pipeline.SetKeyword(search)
			if err := pipeline.Fetch(ctx, 1); err != nil {
				return err
			}
			records := pipeline.Snapshot()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Bookings(f, records); err != nil {
				_ = f.Close()
				return fmt.Errorf("export bookings: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.Info().Str("path", out).Int("bookings", len(records)).Msg("bookings exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "destination .xlsx file")
	cmd.Flags().StringVar(&search, "search", "", "filter by name, email or phone")
	return cmd
}

func newPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "password <password> [confirm]",
		Short:       "Check a password against the account policy",
		Args:        cobra.RangeArgs(1, 2),
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			report := password.Evaluate(args[0])
			for _, rule := range password.StrengthRules {
				mark := " "
				if report[rule] {
					mark = "x"
				}
				fmt.Fprintf(out, "[%s] %s\n", mark, rule.Description())
			}
			valid := report.Valid()
			if len(args) == 2 {
				match := password.Matches(args[0], args[1])
				mark := " "
				if match {
					mark = "x"
				}
				fmt.Fprintf(out, "[%s] %s\n", mark, password.RuleMatch.Description())
				valid = valid && match
			}
			if !valid {
				return errors.New("password does not meet the policy")
			}
			fmt.Fprintln(out, "password ok")
			return nil
		},
	}
}

func (a *app) newPipeline(api listing.Lister, view listing.View) *listing.Pipeline {
	return listing.New(api, view, listing.Options{
		PageSize:       a.cfg.Listing.PageSize,
		PhonePrefix:    a.cfg.Booking.PhonePrefix,
		SearchDebounce: a.cfg.SearchDebounce(),
	}, &a.logger)
}
