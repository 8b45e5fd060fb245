package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leozw/ssl-verifier/internal/credentials"
	"github.com/leozw/ssl-verifier/internal/notify"
)

var (
	credEmail    string
	credPassword string
	credProvider string
)

func credentialStore() *credentials.Store {
	return credentials.NewStore(cfg.Credentials.CacheFile, cfg.Credentials.KeyFile)
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the encrypted sender credentials",
}

var credentialsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save sender email and password (password is read from stdin when not given)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if credEmail == "" {
			return errors.New("--email is required")
		}
		if credProvider != "" {
			if _, ok := notify.ParseProvider(credProvider); !ok && !strings.EqualFold(credProvider, "auto") {
				return fmt.Errorf("unknown provider %q", credProvider)
			}
		}

		password := credPassword
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			var err error
			if password, err = readLine(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		if err := credentialStore().Save(credEmail, password, credProvider); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved for %s\n", credEmail)
		return nil
	},
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved sender (never the password)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := credentialStore().Info()
		if errors.Is(err, credentials.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved credentials")
			return nil
		}
		if err != nil {
			return err
		}

		provider := info.Provider
		if _, ok := notify.ParseProvider(provider); !ok {
			provider = fmt.Sprintf("%s (detected %s)", provider, notify.DetectProvider(info.Email))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Email:    %s\n", info.Email)
		fmt.Fprintf(out, "Provider: %s\n", provider)
		fmt.Fprintf(out, "Saved at: %s\n", info.SavedAt.Local().Format("02/01/2006 15:04:05"))
		return nil
	},
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved credentials and their key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentialStore().Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared")
		return nil
	},
}

func init() {
	credentialsSaveCmd.Flags().StringVar(&credEmail, "email", "", "Sender email address")
	credentialsSaveCmd.Flags().StringVar(&credPassword, "password", "", "Sender password or app password")
	credentialsSaveCmd.Flags().StringVar(&credProvider, "provider", "auto", "Gmail, Outlook, Yahoo, Custom or auto")

	credentialsCmd.AddCommand(credentialsSaveCmd, credentialsShowCmd, credentialsClearCmd)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
