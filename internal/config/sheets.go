package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/plaid"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration. It follows this
// precedence:
// 1. Viper configuration (from config file or ADVISOR_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = firstNonEmpty(
		ExpandPath(v.GetString("sheets.service_account_path")),
		ExpandPath(os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")),
	)
	config.ClientID = firstNonEmpty(v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	config.ClientSecret = firstNonEmpty(v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	config.RefreshToken = firstNonEmpty(v.GetString("sheets.refresh_token"), os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	config.SpreadsheetID = firstNonEmpty(v.GetString("sheets.spreadsheet_id"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	config.SpreadsheetName = firstNonEmpty(
		v.GetString("sheets.spreadsheet_name"),
		os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"),
		config.SpreadsheetName,
	)
	config.SheetName = firstNonEmpty(v.GetString("sheets.sheet_name"), config.SheetName)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadPlaidConfig loads Plaid credentials from plaid.* keys, falling back
// to the PLAID_* environment variables.
func LoadPlaidConfig(v *viper.Viper) (*plaid.Config, error) {
	config := plaid.Config{
		ClientID:    firstNonEmpty(v.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
		Secret:      firstNonEmpty(v.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
		AccessToken: firstNonEmpty(v.GetString("plaid.access_token"), os.Getenv("PLAID_ACCESS_TOKEN")),
		Environment: firstNonEmpty(os.Getenv("PLAID_ENV"), v.GetString("plaid.environment")),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
