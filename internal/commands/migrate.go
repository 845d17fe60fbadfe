package commands

import (
	"fmt"

	"github.com/dvloznov/finance-dashboard/internal/infra/sqlite"
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	var appliedBy string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMigrate(cmd, appliedBy)
		},
	}

	cmd.Flags().StringVar(&appliedBy, "applied-by", "cli", "name recorded with each applied migration")

	return cmd
}

func (a *app) runMigrate(cmd *cobra.Command, appliedBy string) error {
	ctx := a.context(cmd)
	out := cmd.OutOrStdout()

	db, err := sqlite.Client(ctx, a.dbPath)
	if err != nil {
		return err
	}

	n, err := sqlite.Migrate(ctx, db, appliedBy, a.log)
	if err != nil {
		return err
	}
	applied, err := sqlite.AppliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	header(out, "Migrations ("+a.dbPath+")")
	for _, m := range applied {
		fmt.Fprintf(out, "  %04d_%s  %s  by %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"), m.AppliedBy)
	}
	if n == 0 {
		success(out, "Schema is up to date")
	} else {
		success(out, "Applied %d migration(s)", n)
	}
	return nil
}
