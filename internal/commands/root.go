// Package commands implements the finance command line: imports, reports
// and maintenance of the dashboard store.
package commands

import (
	"context"
	"io"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/infra/sqlite"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	dbPath   string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "finance",
		Short: "Import bank statements and report on them",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.init(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database file (defaults to DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (defaults to LOG_LEVEL)")

	rootCmd.AddCommand(
		newImportCommand(a),
		newSummaryCommand(a),
		newClearCommand(a),
		newUploadCommand(a),
		newExportCommand(a),
		newSyncNotionCommand(a),
		newMigrateCommand(a),
	)

	return rootCmd
}

// init loads configuration; flags win over the environment.
func (a *app) init(logOut io.Writer) {
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.RFC3339})
	a.cfg = config.Load(log)

	if a.dbPath == "" {
		a.dbPath = a.cfg.DatabasePath
	}
	if a.logLevel == "" {
		a.logLevel = a.cfg.LogLevel
	}
	a.log = logger.WithLevel(log, a.logLevel)
}

func (a *app) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, a.log)
}

func (a *app) openStore(ctx context.Context) (*sqlite.Repository, error) {
	return sqlite.Open(ctx, a.dbPath, a.log)
}
