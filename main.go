package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"accountsec/internal/configuration"
	"accountsec/internal/core"
	h "accountsec/internal/helpers"
	"accountsec/internal/messaging"
	"accountsec/internal/models"

	"go.uber.org/zap"
)

const usage = `usage: accountsec <command> [flags]

commands:
  load                         show profile, sessions and 2FA status
  sessions                     list the active sessions
  close <session-id>           close one session
  close-all [-include-current] close every other session
  logout                       end the current session
  profile -username -email     update the profile
  change-password -current -new -confirm
  delete-account -password
  2fa-enroll                   enable 2FA and export the backup codes
  2fa-disable -password
  login-verify -email -code [-backup]
  watch                        resynchronise and stream notifications until interrupted
  history [-limit] [operation...]  show recorded outcomes
`

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	config := configuration.Read()
	logger, err := core.NewLogger(config.App.LogLevel)
	if err != nil {
		zap.L().Fatal("Failed to configure logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewReader(os.Stdin)
	app, err := core.NewApp(ctx, config, &terminalNavigator{out: os.Stdout}, &promptConfirmer{in: stdin, out: os.Stdout})
	if err != nil {
		zap.L().Fatal("Failed to start the client", zap.Error(err))
	}

	cmd := &command{app: app, in: stdin, out: os.Stdout}
	runErr := cmd.run(ctx, os.Args[1], os.Args[2:])
	cmd.printNotifications()
	app.Close(context.WithoutCancel(ctx))

	if runErr != nil {
		if !errors.Is(runErr, flag.ErrHelp) {
			zap.L().Debug("Command failed", zap.String("command", os.Args[1]), zap.Error(runErr))
		}
		os.Exit(1)
	}
}

type terminalNavigator struct {
	out io.Writer
}

func (n *terminalNavigator) ToLogin() {
	fmt.Fprintln(n.out, "-> login")
}

func (n *terminalNavigator) ToDashboard() {
	fmt.Fprintln(n.out, "-> dashboard")
}

type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *promptConfirmer) Confirm(_ context.Context, prompt string) bool {
	fmt.Fprintf(c.out, "%s [s/N] ", prompt)
	answer, err := c.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "s" || answer == "si" || answer == "sí" || answer == "y" || answer == "yes"
}

type command struct {
	app *core.App
	in  *bufio.Reader
	out io.Writer
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	account := c.app.Account
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(c.out)

	switch name {
	case "load":
		return c.printJSON(account.Load(ctx))

	case "sessions":
		sessions, err := account.ListSessions(ctx)
		if err != nil {
			return err
		}
		c.printSessions(ctx, sessions)
		return nil

	case "close":
		if err := flags.Parse(args); err != nil {
			return err
		}
		if flags.NArg() != 1 {
			return errors.New("close needs a session id")
		}
		account.Load(ctx)
		result, err := account.CloseSession(ctx, flags.Arg(0))
		if err != nil {
			return err
		}
		c.printSessions(ctx, result.Remaining)
		return nil

	case "close-all":
		includeCurrent := flags.Bool("include-current", false, "also close this session")
		if err := flags.Parse(args); err != nil {
			return err
		}
		account.Load(ctx)
		result, err := account.CloseAllSessions(ctx, !*includeCurrent)
		if err != nil {
			return err
		}
		c.printSessions(ctx, result.Remaining)
		return nil

	case "logout":
		_, err := account.Logout(ctx)
		return err

	case "profile":
		account.Load(ctx)
		current := account.Profile.Profile()
		if current == nil {
			return errors.New("profile not available")
		}
		username := flags.String("username", current.Username, "new username")
		email := flags.String("email", current.Email, "new email")
		avatar := flags.String("avatar", current.Profile.AvatarID, "avatar id")
		if err := flags.Parse(args); err != nil {
			return err
		}
		user, err := account.UpdateProfile(ctx, models.ProfileUpdateBody{
			Username: *username,
			Email:    *email,
			AvatarID: *avatar,
		})
		if err != nil {
			return err
		}
		return c.printJSON(user)

	case "change-password":
		current := flags.String("current", "", "current password")
		next := flags.String("new", "", "new password")
		confirm := flags.String("confirm", "", "new password again")
		if err := flags.Parse(args); err != nil {
			return err
		}
		account.Load(ctx)
		_, err := account.ChangePassword(ctx, *current, *next, *confirm)
		return err

	case "delete-account":
		password := flags.String("password", "", "account password")
		if err := flags.Parse(args); err != nil {
			return err
		}
		_, err := account.DeleteAccount(ctx, *password)
		return err

	case "2fa-enroll":
		return c.enroll(ctx)

	case "2fa-disable":
		password := flags.String("password", "", "account password")
		if err := flags.Parse(args); err != nil {
			return err
		}
		account.Load(ctx)
		_, err := account.DisableTwoFactor(ctx, *password)
		return err

	case "login-verify":
		email := flags.String("email", "", "account email")
		code := flags.String("code", "", "authenticator or backup code")
		backup := flags.Bool("backup", false, "the code is a backup code")
		if err := flags.Parse(args); err != nil {
			return err
		}
		if *backup {
			account.ToggleLoginMode()
		}
		_, err := account.VerifyLogin(ctx, *email, *code)
		return err

	case "watch":
		return c.watch(ctx)

	case "history":
		limit := flags.Int("limit", 20, "maximum number of outcomes")
		if err := flags.Parse(args); err != nil {
			return err
		}
		operations := make([]models.Operation, 0, flags.NArg())
		for _, op := range flags.Args() {
			operations = append(operations, models.Operation(op))
		}
		outcomes, counts, err := account.History(*limit, operations...)
		if err != nil {
			return err
		}
		for _, outcome := range outcomes {
			fmt.Fprintf(c.out, "%s  %-22s %-9s %s\n", outcome.At.Format(time.RFC3339), outcome.Operation,
				outcome.Status, outcome.Message)
		}
		return c.printJSON(counts)

	default:
		fmt.Fprint(c.out, usage)
		return flag.ErrHelp
	}
}

// enroll runs setup, asks for the authenticator code until it is accepted, then exports the codes.
func (c *command) enroll(ctx context.Context) error {
	account := c.app.Account
	account.Load(ctx)

	setup, err := account.StartTwoFactorSetup(ctx)
	if err != nil {
		return err
	}
	profile := account.Profile.Profile()
	if profile != nil {
		if uri, uriErr := h.ProvisioningURI(c.app.Config.App.Product, profile.Email, setup.Secret); uriErr == nil {
			fmt.Fprintln(c.out, uri)
		}
	}
	fmt.Fprintf(c.out, "secret: %s\n", setup.Secret)
	if mediaType, image, qrErr := h.DecodeDataURL(setup.QRCode); qrErr == nil {
		location, writeErr := c.app.Export.Write(ctx, c.app.Config.App.Product+"_2fa_qr.png", image, mediaType)
		if writeErr == nil {
			fmt.Fprintf(c.out, "qr code written to %s\n", location)
		}
	}

	for {
		fmt.Fprint(c.out, "code: ")
		code, readErr := c.in.ReadString('\n')
		if readErr != nil && code == "" {
			_ = account.CancelTwoFactorSetup()
			return readErr
		}

		_, err = account.VerifyTwoFactor(ctx, strings.TrimSpace(code))
		if err == nil {
			break
		}
		c.printNotifications()
	}

	location, err := account.ExportBackupCodes(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "backup codes written to %s\n", location)
	return account.AcknowledgeBackupCodes()
}

// watch streams notifications while the periodic sync runs.
func (c *command) watch(ctx context.Context) error {
	notifications := c.app.Events.GetSubscriber(configuration.TopicNotifications).Subscribe(ctx)
	if notifications == nil {
		return errors.New("notification topic unavailable")
	}

	c.app.Account.Load(ctx)
	c.app.StartSync(ctx)

	for msg := range notifications {
		notification, err := messaging.DecodeJSON[models.Notification](msg)
		if err != nil {
			zap.L().Warn("Dropping malformed notification", zap.Error(err))
			continue
		}
		fmt.Fprintf(c.out, "[%s] %s: %s\n", notification.Channel, notification.Type, notification.Message)
	}
	return nil
}

func (c *command) printSessions(ctx context.Context, sessions []models.Session) {
	currentID := c.app.Account.Sessions.CurrentSessionID(ctx)
	for _, session := range sessions {
		marker := " "
		if session.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s  %s / %s  %s\n", marker, session.ID, session.Device, session.Browser,
			h.FormatLastActivity(session.LastActivity, time.Now()))
	}
}

func (c *command) printNotifications() {
	notifications := c.app.Board.All()
	channels := make([]string, 0, len(notifications))
	for channel := range notifications {
		channels = append(channels, string(channel))
	}
	sort.Strings(channels)

	for _, channel := range channels {
		notification := notifications[models.Channel(channel)]
		fmt.Fprintf(c.out, "[%s] %s\n", channel, notification.Message)
	}
}

func (c *command) printJSON(v any) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
