package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoonsio/fieldbatch/internal/base"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the field types that can be added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newRenderer(cmd.OutOrStdout(), a.service.Printer()).types(base.Catalogue())
			return nil
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the base",
		Long:  "List the tables of the base. The selected table is marked with '*'.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newRenderer(cmd.OutOrStdout(), a.service.Printer()).
				tables(a.base.TableMetaList(), a.base.Selection().TableID)
			return nil
		},
	}
	cmd.AddCommand(newTablesCreateCmd(a))
	return cmd
}

func newTablesCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := a.base.CreateTable(args[0])
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			a.logger.Info().Str("table_id", meta.ID).Str("name", meta.Name).Msg("table created")
			fmt.Fprintln(cmd.OutOrStdout(), meta.ID)
			return nil
		},
	}
}
