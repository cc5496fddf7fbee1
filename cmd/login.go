package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/config"
	"github.com/samsaffron/term-tutor/internal/markup"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the tutoring server",
	Long: `Log in and save the session cookie to the config file.

Examples:
  term-tutor login
  term-tutor login -u anna
  term-tutor --server https://tutor.example.com login`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the saved cookie",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account and its token budget",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var (
	loginUsername string
	loginRemember bool
)

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", true, "Ask the server for a long-lived session")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	// Start from a clean jar so a stale cookie is not sent along.
	cfg.Server.SessionCookie = ""
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	username := loginUsername
	var password string
	fields := []huh.Field{}
	if username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(&username).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("username is required")
				}
				return nil
			}))
	}
	fields = append(fields, huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(&password))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	user, err := client.Login(context.Background(), strings.TrimSpace(username), password, loginRemember)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return errors.New("invalid username or password")
		}
		return err
	}

	cfg.Server.SessionCookie = client.Cookie()
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("logged in, but saving the session failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true,
		fmt.Sprintf("Logged in as %s on %s", user.Username, client.BaseURL())))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, client, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := client.Logout(context.Background()); err != nil && !errors.Is(err, api.ErrUnauthorized) {
		log.Sugar().Warnf("server logout failed: %v", err)
	}
	cfg.Server.SessionCookie = ""
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to clear the saved session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, "Logged out"))
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	user, err := client.Me(context.Background())
	if err != nil {
		return explain(err)
	}
	s := ui.DefaultStyles()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", s.Bold.Render(user.Username), s.Muted.Render(user.Email))
	fmt.Fprintf(out, "server:    %s\n", client.BaseURL())
	fmt.Fprintf(out, "tokens:    %s used", markup.FormatTokens(user.TotalTokensUsed))
	if user.TokenLimit > 0 {
		fmt.Fprintf(out, " of %s, %s remaining", markup.FormatTokens(user.TokenLimit), markup.FormatTokens(user.TokensRemaining))
	}
	fmt.Fprintln(out)
	if !user.CreatedAt.IsZero() {
		fmt.Fprintf(out, "member since %s\n", user.CreatedAt.Local().Format("2006-01-02"))
	}
	return nil
}
