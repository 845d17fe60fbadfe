package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every batch and transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the store without --yes")
			}
			return a.runClear(cmd)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}

func (a *app) runClear(cmd *cobra.Command) error {
	ctx := a.context(cmd)

	repo, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if err := repo.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}

	success(cmd.OutOrStdout(), "Cleared %s", a.dbPath)
	return nil
}
