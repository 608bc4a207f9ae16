// Package sheets exports analysis reports to Google Sheets.
package sheets

import (
	"errors"
	"os"
	"time"
)

// Config controls where reports are appended and how the exporter
// authenticates. Exactly one of a service account key or the OAuth2
// client/refresh-token triple must be set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string // empty creates a spreadsheet on first export
	SpreadsheetName    string
	SheetName          string
	TimeZone           string
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultConfig returns the settings used when only credentials are given.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName: "Debt Analysis Reports",
		SheetName:       "Reports",
		TimeZone:        "UTC",
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}
}

// envBindings maps GOOGLE_SHEETS_* variables onto Config fields. Empty
// variables leave the field untouched.
var envBindings = []struct {
	field func(*Config) *string
	name  string
}{
	{name: "GOOGLE_SHEETS_CLIENT_ID", field: func(c *Config) *string { return &c.ClientID }},
	{name: "GOOGLE_SHEETS_CLIENT_SECRET", field: func(c *Config) *string { return &c.ClientSecret }},
	{name: "GOOGLE_SHEETS_REFRESH_TOKEN", field: func(c *Config) *string { return &c.RefreshToken }},
	{name: "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", field: func(c *Config) *string { return &c.ServiceAccountPath }},
	{name: "GOOGLE_SHEETS_SPREADSHEET_ID", field: func(c *Config) *string { return &c.SpreadsheetID }},
	{name: "GOOGLE_SHEETS_SPREADSHEET_NAME", field: func(c *Config) *string { return &c.SpreadsheetName }},
}

var (
	errNoAuth   = errors.New("no authentication method configured")
	errBothAuth = errors.New("multiple authentication methods configured; use either OAuth2 or service account")
)

// LoadFromEnv overlays the GOOGLE_SHEETS_* variables and fails when they
// leave no way to authenticate.
func (c *Config) LoadFromEnv() error {
	for _, b := range envBindings {
		if v := os.Getenv(b.name); v != "" {
			*b.field(c) = v
		}
	}
	if !c.hasOAuth() && c.ServiceAccountPath == "" {
		return errNoAuth
	}
	return nil
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate checks the authentication choice and the retry settings.
func (c *Config) Validate() error {
	switch {
	case !c.hasOAuth() && c.ServiceAccountPath == "":
		return errNoAuth
	case c.hasOAuth() && c.ServiceAccountPath != "":
		return errBothAuth
	case c.SheetName == "":
		return errors.New("sheet name is required")
	case c.RetryAttempts < 0:
		return errors.New("retry attempts cannot be negative")
	case c.RetryDelay < 0:
		return errors.New("retry delay cannot be negative")
	}
	return nil
}
