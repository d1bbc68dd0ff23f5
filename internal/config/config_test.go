package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestViper(t *testing.T, values map[string]any) AppConfig {
	t.Helper()
	configViper := NewViper()
	for key, value := range values {
		configViper.Set(key, value)
	}
	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return cfg
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := newTestViper(t, map[string]any{
		"auth.signing_secret":   "secret",
		"sheets.spreadsheet_id": "sheet-123",
	})

	if cfg.HTTPAddress != "0.0.0.0:4000" {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.TokenTTL)
	}
	if cfg.DatabaseDriver != DriverSQLite || cfg.DatabasePath != "users.db" {
		t.Fatalf("unexpected database config %q %q", cfg.DatabaseDriver, cfg.DatabasePath)
	}
	if cfg.CreatorsSheet != "Sheet1" || cfg.CalendarSheet != "Calendário" {
		t.Fatalf("unexpected sheet titles %q %q", cfg.CreatorsSheet, cfg.CalendarSheet)
	}
	if cfg.SheetsCredentialsFile != "/etc/secrets/google-credentials.json" {
		t.Fatalf("unexpected credentials path %q", cfg.SheetsCredentialsFile)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CREATORDESK_AUTH_SIGNING_SECRET", "from-env")
	t.Setenv("CREATORDESK_SHEETS_BACKEND", "MEMORY")
	t.Setenv("CREATORDESK_TOKEN_TTL_MINUTES", "15")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SigningSecret != "from-env" {
		t.Fatalf("unexpected secret %q", cfg.SigningSecret)
	}
	if cfg.SheetsBackend != SheetsBackendMemory {
		t.Fatalf("unexpected backend %q", cfg.SheetsBackend)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.TokenTTL)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name    string
		values  map[string]any
		message string
	}{
		{
			name:    "missing secret",
			values:  map[string]any{"sheets.backend": "memory"},
			message: "auth.signing_secret",
		},
		{
			name:    "missing spreadsheet id",
			values:  map[string]any{"auth.signing_secret": "s"},
			message: "sheets.spreadsheet_id",
		},
		{
			name: "postgres without dsn",
			values: map[string]any{
				"auth.signing_secret": "s",
				"sheets.backend":      "memory",
				"database.driver":     "postgres",
			},
			message: "database.dsn",
		},
		{
			name: "unknown driver",
			values: map[string]any{
				"auth.signing_secret": "s",
				"sheets.backend":      "memory",
				"database.driver":     "oracle",
			},
			message: "unsupported database.driver",
		},
		{
			name: "non positive ttl",
			values: map[string]any{
				"auth.signing_secret": "s",
				"sheets.backend":      "memory",
				"token.ttl_minutes":   0,
			},
			message: "token.ttl_minutes",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range testCase.values {
				configViper.Set(key, value)
			}
			_, err := Load(configViper)
			if err == nil || !strings.Contains(err.Error(), testCase.message) {
				t.Fatalf("expected error mentioning %q, got %v", testCase.message, err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CREATORDESK_TEST_ENV_FILE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CREATORDESK_TEST_ENV_FILE") })

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("CREATORDESK_TEST_ENV_FILE"); got != "loaded" {
		t.Fatalf("expected variable from env file, got %q", got)
	}

	missing := filepath.Join(t.TempDir(), "absent.env")
	if err := LoadEnvFile(missing, false); err != nil {
		t.Fatalf("optional missing env file must be ignored: %v", err)
	}
	if err := LoadEnvFile(missing, true); err == nil {
		t.Fatalf("required missing env file must fail")
	}
}

func TestLoadDatabaseIgnoresServerSettings(t *testing.T) {
	configViper := NewViper()
	configViper.Set("database.driver", "mysql")
	configViper.Set("database.dsn", "user:pass@tcp(localhost:3306)/creatordesk")

	cfg, err := LoadDatabase(configViper)
	if err != nil {
		t.Fatalf("load database failed: %v", err)
	}
	if cfg.DatabaseDriver != DriverMySQL || cfg.DatabaseDSN == "" {
		t.Fatalf("unexpected database config %+v", cfg)
	}
}
