package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix              = "CREATORDESK"
	defaultHTTPAddress     = "0.0.0.0:4000"
	defaultDatabaseDriver  = DriverSQLite
	defaultDatabasePath    = "users.db"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultTokenTTLMinutes = 120
	defaultSheetsBackend   = SheetsBackendGoogle
	defaultCredentialsFile = "/etc/secrets/google-credentials.json"
	defaultCreatorsSheet   = "Sheet1"
	defaultCalendarSheet   = "Calendário"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Supported spreadsheet backends.
const (
	SheetsBackendGoogle = "google"
	SheetsBackendMemory = "memory"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress string
	LogLevel    string
	LogFormat   string

	SigningSecret string
	TokenTTL      time.Duration

	DatabaseDriver string
	DatabasePath   string
	DatabaseDSN    string

	SheetsBackend         string
	SpreadsheetID         string
	SheetsCredentialsFile string
	CreatorsSheet         string
	CalendarSheet         string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("sheets.backend", defaultSheetsBackend)
	configViper.SetDefault("sheets.credentials_file", defaultCredentialsFile)
	configViper.SetDefault("sheets.creators_sheet", defaultCreatorsSheet)
	configViper.SetDefault("sheets.calendar_sheet", defaultCalendarSheet)
}

// LoadEnvFile exports the variables of a dotenv file into the process environment.
// Variables already set are left untouched. A missing file is an error only when required.
func LoadEnvFile(path string, required bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadDatabase parses only the logging and database settings, for commands that
// never serve HTTP or touch the spreadsheet.
func LoadDatabase(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      configViper.GetString("log.format"),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:   strings.TrimSpace(configViper.GetString("database.path")),
		DatabaseDSN:    strings.TrimSpace(configViper.GetString("database.dsn")),
	}
	if err := cfg.validateDatabase(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:           strings.TrimSpace(configViper.GetString("http.address")),
		LogLevel:              configViper.GetString("log.level"),
		LogFormat:             configViper.GetString("log.format"),
		SigningSecret:         configViper.GetString("auth.signing_secret"),
		TokenTTL:              time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		DatabaseDriver:        strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:          strings.TrimSpace(configViper.GetString("database.path")),
		DatabaseDSN:           strings.TrimSpace(configViper.GetString("database.dsn")),
		SheetsBackend:         strings.ToLower(strings.TrimSpace(configViper.GetString("sheets.backend"))),
		SpreadsheetID:         strings.TrimSpace(configViper.GetString("sheets.spreadsheet_id")),
		SheetsCredentialsFile: strings.TrimSpace(configViper.GetString("sheets.credentials_file")),
		CreatorsSheet:         strings.TrimSpace(configViper.GetString("sheets.creators_sheet")),
		CalendarSheet:         strings.TrimSpace(configViper.GetString("sheets.calendar_sheet")),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	switch c.SheetsBackend {
	case SheetsBackendGoogle:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required for the google backend")
		}
		if c.SheetsCredentialsFile == "" {
			return fmt.Errorf("sheets.credentials_file is required for the google backend")
		}
	case SheetsBackendMemory:
	default:
		return fmt.Errorf("unsupported sheets.backend %q", c.SheetsBackend)
	}
	if c.CreatorsSheet == "" || c.CalendarSheet == "" {
		return fmt.Errorf("sheets.creators_sheet and sheets.calendar_sheet are required")
	}
	return nil
}

func (c AppConfig) validateDatabase() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres, DriverMySQL:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database.dsn is required for the %s driver", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.DatabaseDriver)
	}
	return nil
}
