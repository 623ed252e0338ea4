package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tonimelisma/sharefile-go/internal/config"
	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

// Seams for tests: the terminal checks and password prompt.
var (
	readPassword    = term.ReadPassword
	stdinIsTerminal = func() bool { return isatty.IsTerminal(os.Stdin.Fd()) }
)

// errNoPassword is returned by login when no password can be obtained.
var errNoPassword = errors.New("no password: set " + config.EnvPassword + " or run login from a terminal")

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with the profile's username and a password",
		Long: `Sign in with the OAuth2 password grant and store the resulting token.

The password is read from ` + config.EnvPassword + ` when set, otherwise it is
prompted for on the terminal. Any previously stored token is discarded.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cc, err := cliContextFrom(ctx)
	if err != nil {
		return err
	}

	if cc.Profile.Password == "" {
		pw, promptErr := promptPassword(cc)
		if promptErr != nil {
			return promptErr
		}

		cc.Profile.Password = pw
	}

	cc.Logger.Info("login started",
		slog.String("profile", cc.Profile.Name),
		slog.String("username", cc.Profile.Username),
	)

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		if s.Store != nil {
			if err := s.Store.DeleteToken(ctx, s.Auth.TokenID()); err != nil {
				return fmt.Errorf("discarding old token: %w", err)
			}
		}

		if err := s.Auth.Authenticate(ctx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		user, err := s.Client.GetUser(ctx, "")
		if err != nil {
			return fmt.Errorf("fetching user profile: %w", err)
		}

		cc.Logger.Info("login successful", slog.String("profile", cc.Profile.Name))
		cc.Statusf("Logged in as %s.\n", userLabel(user))

		if s.Store == nil {
			cc.Statusf("Token store is disabled; the token was not saved.\n")
		}

		return nil
	})
}

// promptPassword reads the password from the terminal without echo.
func promptPassword(cc *CLIContext) (string, error) {
	if !stdinIsTerminal() {
		return "", errNoPassword
	}

	// The prompt must be visible even with --quiet.
	fmt.Fprintf(cc.Stderr, "Password for %s@%s: ", cc.Profile.Username, cc.Profile.Hostname)

	pw, err := readPassword(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
	fmt.Fprintln(cc.Stderr)

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if len(pw) == 0 {
		return "", errNoPassword
	}

	return string(pw), nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withSession(ctx, func(cc *CLIContext, s *Session) error {
		if s.Store == nil {
			cc.Statusf("Token store is disabled; nothing to remove.\n")
			return nil
		}

		if err := s.Store.DeleteToken(ctx, s.Auth.TokenID()); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}

		cc.Logger.Info("logout successful", slog.String("profile", cc.Profile.Name))
		cc.Statusf("Logged out.\n")

		return nil
	})
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Company  string `json:"company,omitempty"`
	Profile  string `json:"profile"`
	Hostname string `json:"hostname"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withSession(cmd.Context(), func(cc *CLIContext, s *Session) error {
		return whoami(cmd.Context(), cc, s.Client)
	})
}

func whoami(ctx context.Context, cc *CLIContext, client *sharefile.Client) error {
	user, err := client.GetUser(ctx, "")
	if err != nil {
		return fmt.Errorf("fetching user profile: %w", err)
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, whoamiOutput{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Company:  user.Company,
			Profile:  cc.Profile.Name,
			Hostname: cc.Profile.Hostname,
		})
	}

	fmt.Fprintf(cc.Stdout, "User:     %s\n", userLabel(user))
	fmt.Fprintf(cc.Stdout, "ID:       %s\n", user.ID)

	if user.Company != "" {
		fmt.Fprintf(cc.Stdout, "Company:  %s\n", user.Company)
	}

	fmt.Fprintf(cc.Stdout, "Account:  %s (profile %s)\n", cc.Profile.Hostname, cc.Profile.Name)

	return nil
}

// userLabel renders "Full Name (email)" with whatever parts are known.
func userLabel(u *sharefile.User) string {
	name := strings.TrimSpace(u.FullName)
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}

	switch {
	case name != "" && u.Email != "":
		return fmt.Sprintf("%s (%s)", name, u.Email)
	case name != "":
		return name
	default:
		return u.Email
	}
}
