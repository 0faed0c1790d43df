package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/wardrobe/internal/api"
	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/mutation"
)

const setupCommandLong = `Store the wardrobe server URL and API token.

Without flags an interactive form asks for both. The token is checked
against the server before it is saved unless --no-check is given.`

// NewSetupCmd creates the setup command.
func NewSetupCmd(e *env) *cobra.Command {
	var serverURL, token string
	var noCheck bool

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure the server URL and token",
		Long:  setupCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				serverURL = e.cfg.Server.URL
			}

			if serverURL == "" || token == "" {
				if !isTerminal(e.stdin) {
					return errors.New("--url and --token are required when stdin is not a terminal")
				}
				if err := runSetupForm(&serverURL, &token); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return fmt.Errorf("form: %w", err)
				}
			}

			if err := validateServerURL(serverURL); err != nil {
				return err
			}
			e.cfg.Server.URL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
			e.cfg.Server.Token = strings.TrimSpace(token)

			if !noCheck {
				if err := checkServer(cmd.Context(), e); err != nil {
					return err
				}
			}

			if err := e.loader().Save(e.cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration saved to %s\n", e.loader().Dir())
			return nil
		},
	}

	setupCmd.Flags().StringVar(&serverURL, "url", "", "server URL, e.g. http://localhost:8000")
	setupCmd.Flags().StringVar(&token, "token", "", "API bearer token")
	setupCmd.Flags().BoolVar(&noCheck, "no-check", false, "save without contacting the server")
	return setupCmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runSetupForm(serverURL, token *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Base URL of the wardrobe server, without /api/v1").
				Placeholder("http://localhost:8000").
				Validate(validateServerURL).
				Value(serverURL),
			huh.NewInput().
				Title("API token").
				EchoMode(huh.EchoModePassword).
				Validate(validateToken).
				Value(token),
		),
	).Run()
}

func validateServerURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("server URL must look like http://host:port")
	}
	return nil
}

func validateToken(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

// checkServer lists one item to prove the URL and token work
func checkServer(ctx context.Context, e *env) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := api.NewClient(e.cfg.Server.URL, e.cfg.Server.Token, e.logger)
	if _, err := client.ListItems(ctx, domain.ItemFilter{}, 1, 1); err != nil {
		return fmt.Errorf("server check failed: %s", mutation.Describe(err))
	}
	return nil
}
