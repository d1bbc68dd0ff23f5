package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/auth"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/calendar"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/config"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/creators"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/database"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/logging"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/metrics"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/server"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/spreadsheet"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "creatordesk-auth"
	tokenAudience = "creatordesk-api"
)

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "creatordesk-api",
		Short: "Creator contact and calendar backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newStatsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before configuration")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", "", "Postgres or MySQL connection string")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Bearer token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")
	cmd.PersistentFlags().String("sheets-backend", defaults.GetString("sheets.backend"), "Spreadsheet backend (google, memory)")
	cmd.PersistentFlags().String("spreadsheet-id", "", "Google spreadsheet id")
	cmd.PersistentFlags().String("sheets-credentials-file", defaults.GetString("sheets.credentials_file"), "Google service account credentials file")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "sheets.backend", "sheets-backend")
	bindFlag(cmd, "sheets.spreadsheet_id", "spreadsheet-id")
	bindFlag(cmd, "sheets.credentials_file", "sheets-credentials-file")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, closeDB, err := openDatabase(appConfig, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        tokenIssuer,
		Audience:      tokenAudience,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(0)
	if err != nil {
		return err
	}
	userService, err := users.NewService(users.ServiceConfig{Database: db, Hasher: hasher, Logger: logger})
	if err != nil {
		return err
	}

	sheetsClient, err := newSheetsClient(ctx, appConfig)
	if err != nil {
		return err
	}
	creatorsTable, err := spreadsheet.NewTable(sheetsClient, appConfig.CreatorsSheet)
	if err != nil {
		return err
	}
	calendarTable, err := spreadsheet.NewTable(sheetsClient, appConfig.CalendarSheet)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(true)

	mirror, err := creators.NewSheetMirror(creatorsTable, time.Local)
	if err != nil {
		return err
	}
	creatorService, err := creators.NewService(creators.ServiceConfig{
		Database: db,
		Mirror:   mirror,
		Observer: recorder,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	calendarService, err := calendar.NewService(calendarTable, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: tokenManager,
		Users:        userService,
		Creators:     creatorService,
		Calendar:     calendarService,
		Metrics:      recorder,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("sheets_backend", appConfig.SheetsBackend),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func openDatabase(appConfig config.AppConfig, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.Open(database.Config{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return db, func() { sqlDB.Close() }, nil
}

func newSheetsClient(ctx context.Context, appConfig config.AppConfig) (spreadsheet.Client, error) {
	if appConfig.SheetsBackend == config.SheetsBackendMemory {
		memory := spreadsheet.NewMemoryClient()
		memory.AddSheet(appConfig.CreatorsSheet, creators.MirrorHeader...)
		memory.AddSheet(appConfig.CalendarSheet, calendar.Header...)
		return memory, nil
	}
	return spreadsheet.NewGoogleClient(ctx, spreadsheet.GoogleClientConfig{
		SpreadsheetID:   appConfig.SpreadsheetID,
		CredentialsFile: appConfig.SheetsCredentialsFile,
	})
}

type statsOptions struct {
	limit  int
	format string
}

func newStatsCommand() *cobra.Command {
	opts := &statsOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the creator count and the most recent creators",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.format)
			}
			return runStats(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Number of recent creators to print")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format (text, json)")
	return cmd
}

func runStats(ctx context.Context, out io.Writer, opts *statsOptions) error {
	appConfig, err := config.LoadDatabase(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, closeDB, err := openDatabase(appConfig, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	creatorService, err := creators.NewService(creators.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	summary, err := creatorService.Summary(ctx, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}
	return writeSummary(out, summary)
}

func writeSummary(out io.Writer, summary creators.Summary) error {
	if _, err := fmt.Fprintf(out, "creators: %d\n", summary.Total); err != nil {
		return err
	}
	if len(summary.Recent) == 0 {
		return nil
	}
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tOWNER\tNAME\tINSTAGRAM\tCREATED")
	for _, creator := range summary.Recent {
		fmt.Fprintf(writer, "%d\t%s\t%s %s\t%s\t%s\n",
			creator.ID,
			creator.Username,
			creator.FirstName,
			creator.LastName,
			creator.Instagram,
			creator.CreatedAt.Format(time.DateTime),
		)
	}
	return writer.Flush()
}
