// Package console is an interactive line-oriented front-end for one visitor.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lemonbook/internal/models"
	"lemonbook/internal/password"
	"lemonbook/internal/session"
	"lemonbook/internal/slots"
)

const helpText = `commands:
  branch <name>            switch branch and reload its working hours
  date <YYYY-MM-DD>        booking date
  duration <minutes>       slot length
  start <HH:MM>            start time
  times                    list selectable start times
  set <field> <value>      name, email, phone, no_of_guests, message
  form                     show the form
  submit                   book the slot
  search [keyword]         filter bookings (debounced)
  page <n>                 show another page
  refresh                  reload bookings
  password <value>         check a password
  confirm <value>          check the confirmation
  focus|blur <rules|match> show or hide a rules panel
  help                     this text
  quit                     leave`

// Console reads commands and applies them to a session.
type Console struct {
	sess      *session.Session
	view      *View
	increment int
	logger    *zerolog.Logger
}

// New binds a console to a session whose view is v.
func New(sess *session.Session, v *View, minuteIncrement int, logger *zerolog.Logger) *Console {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Console{sess: sess, view: v, increment: minuteIncrement, logger: logger}
}

// Run loads the session and processes commands until quit, EOF or ctx ends.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.sess.Load(ctx)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		l := c.logger.With().Str("request_id", uuid.NewString()).Logger()
		cmdCtx := l.WithContext(ctx)

		if quit := c.Execute(cmdCtx, line); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs one command line. It reports whether the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	zerolog.Ctx(ctx).Debug().Str("command", cmd).Msg("console command")

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		c.view.printf("%s", helpText)
	case "branch":
		err = c.branch(ctx, rest)
	case "date":
		err = c.date(args)
	case "duration":
		err = c.duration(args)
	case "start":
		err = c.start(args)
	case "times":
		c.times()
	case "set":
		err = c.set(rest)
	case "form":
		c.form()
	case "submit":
		c.sess.Widget.Submit(ctx)
	case "search":
		c.sess.Listing.Search(ctx, rest)
	case "page":
		err = c.page(args)
	case "refresh":
		_ = c.sess.Listing.Fetch(ctx, 1)
	case "password":
		c.sess.Password.PasswordInput(rest)
	case "confirm":
		c.sess.Password.ConfirmInput(rest)
	case "focus", "blur":
		err = c.panel(cmd, args)
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}

	if err != nil {
		c.view.ShowError(err.Error())
	}
	return false
}

func (c *Console) branch(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("usage: branch <name>")
	}
	hrs := c.sess.Widget.SelectBranch(ctx, name)
	c.view.printf("%s: open %s to %s", name, slots.Format12String(hrs.OpeningTime), slots.Format12String(hrs.ClosingTime))
	return nil
}

func (c *Console) date(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: date YYYY-MM-DD")
	}
	d, err := time.Parse(models.DateFormat, args[0])
	if err != nil {
		return fmt.Errorf("invalid date %q", args[0])
	}
	return c.sess.Widget.SetDate(d)
}

func (c *Console) duration(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: duration <minutes>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid duration %q", args[0])
	}
	return c.sess.Widget.SelectDuration(n)
}

func (c *Console) start(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: start HH:MM")
	}
	clock, err := slots.ParseClock(args[0])
	if err != nil {
		return err
	}
	return c.sess.Widget.SelectStart(clock)
}

func (c *Console) times() {
	options := c.sess.Widget.StartOptions(c.increment)
	labels := make([]string, 0, len(options))
	for _, o := range options {
		labels = append(labels, o.Format12())
	}
	c.view.printf("available: %s", strings.Join(labels, ", "))
}

func (c *Console) set(rest string) error {
	field, value, ok := strings.Cut(rest, " ")
	if !ok || strings.TrimSpace(value) == "" {
		return fmt.Errorf("usage: set <field> <value>")
	}
	return c.sess.Widget.SetField(field, strings.TrimSpace(value))
}

func (c *Console) form() {
	f := c.sess.Widget.Form()
	req := f.Request()
	c.view.printf("branch=%s date=%s start=%s end=%s duration=%s",
		req[models.FieldBranch], req[models.FieldDate], req[models.FieldStartTime], req[models.FieldEndTime], req[models.FieldDuration])
	c.view.printf("name=%q email=%q phone=%q guests=%s message=%q",
		req[models.FieldName], req[models.FieldEmail], req[models.FieldPhone], req[models.FieldGuests], req[models.FieldMessage])
}

func (c *Console) page(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: page <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid page %q", args[0])
	}
	c.sess.Listing.GoToPage(n)
	return nil
}

func (c *Console) panel(cmd string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s rules|match", cmd)
	}
	var p password.Panel
	switch args[0] {
	case "rules":
		p = password.PanelRules
	case "match":
		p = password.PanelMatch
	default:
		return fmt.Errorf("unknown panel %q", args[0])
	}
	if cmd == "focus" {
		c.sess.Password.Focus(p)
	} else {
		c.sess.Password.Blur(p)
	}
	return nil
}
