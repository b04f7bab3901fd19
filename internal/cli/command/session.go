package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/medtrack/careportal/internal/core/domain"
)

// LoginCommand signs in and persists the credentials for later runs.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and store the session credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "Username",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password, read from stdin when omitted",
				EnvVars: []string{"CAREPORTAL_PASSWORD"},
			},
			&cli.StringFlag{
				Name:  "code",
				Usage: "Two-factor code, prompted for when the backend asks and it is omitted",
			},
		},
		Action: runLogin,
	}
}

// VerifyCommand completes a login left waiting for its second factor by an
// earlier login run.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Submit the two-factor code for a pending login",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ticket", Usage: "Ticket printed by login", Required: true},
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username the ticket was issued to"},
			&cli.StringFlag{Name: "code", Usage: "Six digit code", Required: true},
		},
		Action: runVerify,
	}
}

// LogoutCommand clears the stored session.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and remove the stored credentials",
		Action: runLogout,
	}
}

// WhoamiCommand restores the stored session and prints who it belongs to.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the session snapshot as JSON"},
		},
		Action: runWhoami,
	}
}

func runLogin(c *cli.Context) error {
	rt, err := startRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	in := bufio.NewReader(c.App.Reader)
	username := c.String("username")
	password := c.String("password")
	if password == "" {
		if password, err = prompt(c, in, "Password: "); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	result := rt.sessions.Login(c.Context, username, password)
	if !result.RequiresTwoFactor() {
		return report(c, rt, result)
	}

	code := c.String("code")
	if code == "" {
		code, err = prompt(c, in, "Two-factor code: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return printPending(c, *result.TwoFactor)
			}
			return fmt.Errorf("read code: %w", err)
		}
	}
	return report(c, rt, rt.sessions.CompleteTwoFactor(c.Context, domain.TwoFactorTicket{}, code))
}

func runVerify(c *cli.Context) error {
	rt, err := startRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	ticket := domain.TwoFactorTicket{
		TempToken: c.String("ticket"),
		Username:  c.String("username"),
	}
	if err := rt.sessions.ResumeTwoFactor(ticket); err != nil {
		return err
	}
	return report(c, rt, rt.sessions.CompleteTwoFactor(c.Context, domain.TwoFactorTicket{}, c.String("code")))
}

func runLogout(c *cli.Context) error {
	rt, err := startRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	if err := rt.sessions.Rehydrate(c.Context); err != nil {
		return err
	}
	if rt.sessions.State() != domain.StateAuthenticated {
		fmt.Fprintln(c.App.Writer, "Not logged in")
		return nil
	}
	rt.sessions.Logout(c.Context)
	fmt.Fprintln(c.App.Writer, "Logged out")
	return nil
}

func runWhoami(c *cli.Context) error {
	rt, err := startRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	if err := rt.sessions.Rehydrate(c.Context); err != nil {
		return err
	}
	snap := rt.sessions.Snapshot()

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	if !snap.Authenticated() {
		return errors.New("not logged in")
	}
	fmt.Fprintf(c.App.Writer, "%s (%s)\n", snap.User.Username, snap.User.Role)
	if !snap.ExpiresAt.IsZero() {
		fmt.Fprintf(c.App.Writer, "token expires %s\n", snap.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func startRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return nil, err
	}
	return newRuntime(c.Context, cfg, nil)
}

// report prints the outcome of a login step. Failures become the command's
// error so the process exits non-zero.
func report(c *cli.Context, rt *runtime, result domain.LoginResult) error {
	if !result.Success {
		return errors.New(result.Message)
	}
	snap := rt.sessions.Snapshot()
	fmt.Fprintf(c.App.Writer, "Logged in as %s (%s)\n", snap.User.Username, snap.User.Role)
	return nil
}

func printPending(c *cli.Context, ticket domain.TwoFactorTicket) error {
	fmt.Fprintln(c.App.Writer, "Two-factor code required. Complete the login with:")
	fmt.Fprintf(c.App.Writer, "  careportal verify --username %s --ticket %s --code <code>\n", ticket.Username, ticket.TempToken)
	return nil
}

func prompt(c *cli.Context, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(c.App.ErrWriter, label)
	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return line, nil
}
