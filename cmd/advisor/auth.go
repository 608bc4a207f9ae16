package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/cli"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/config"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

Prints a Google sign-in URL, waits for the redirect on the callback
address, and stores the resulting refresh token in the config file. A
saved token with a refresh token is reused without signing in again.

Run it once before using 'advisor analyze --export-sheets'.`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback-addr", sheets.DefaultCallbackAddr, "Local address for the OAuth2 redirect")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	clientID, clientSecret, err := sheetsCredentials(cmd)
	if err != nil {
		return err
	}

	tokenFile := filepath.Join(configDir(), "sheets-token.json")
	callback, _ := cmd.Flags().GetString("callback-addr")

	slog.Info("Authorizing Google Sheets access", "token_file", tokenFile, "callback", callback)
	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		CallbackAddr: callback,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	viper.Set("sheets.client_id", clientID)
	viper.Set("sheets.client_secret", clientSecret)
	viper.Set("sheets.refresh_token", token.RefreshToken)
	if err := saveConfig(); err != nil {
		slog.Warn("Could not write the refresh token to the config file; add it as sheets.refresh_token",
			"error", err,
			"refresh_token", token.RefreshToken)
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets is configured. Use 'advisor analyze --export-sheets' to append reports."))
	return nil
}

// sheetsCredentials resolves the OAuth2 client from flags, then config,
// then GOOGLE_SHEETS_* variables.
func sheetsCredentials(cmd *cobra.Command) (clientID, clientSecret string, err error) {
	pick := func(flag, key, env string) string {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			return v
		}
		if v := viper.GetString(key); v != "" {
			return v
		}
		return os.Getenv(env)
	}
	clientID = pick("client-id", "sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID")
	clientSecret = pick("client-secret", "sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return "", "", common.NewUserError(
			"OAuth2 client not configured: set sheets.client_id and sheets.client_secret or pass --client-id and --client-secret",
			common.ErrMissingConfig)
	}
	return clientID, clientSecret, nil
}

// configDir is $XDG_CONFIG_HOME/advisor or ~/.config/advisor.
func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "advisor")
	}
	return config.ExpandPath("~/.config/advisor")
}

func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = filepath.Join(configDir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0750); err != nil {
		return err
	}
	return viper.WriteConfigAs(configFile)
}
