package cli

import (
	"github.com/spf13/cobra"

	"github.com/yoonsio/fieldbatch/internal/fields"
)

func newSelectCmd(a *app) *cobra.Command {
	var (
		tableRef string
		fieldRef string
		types    []string
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select a table and optionally a target field",
		Long: `Select a table and optionally a target field of it. Commands that take --table
default to the selected table. With --type the target field must be of one of
the given types; without --field the matching candidates are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.resolveTable(tableRef)
			if err != nil {
				return err
			}
			filter, err := parseTypes(types)
			if err != nil {
				return err
			}
			var fieldID string
			if fieldRef != "" {
				f, err := resolveField(table, fieldRef)
				if err != nil {
					return err
				}
				fieldID = f.ID
			}

			sel, err := a.service.SelectTarget(cmd.Context(), table.ID(), fieldID, filter...)
			if err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}

			r := newRenderer(cmd.OutOrStdout(), a.service.Printer())
			r.notice(a.service.Notice(fields.LevelSuccess, fields.KeySelectionSaved))
			if sel.FieldID == "" {
				candidates, err := a.service.Fields(table.ID(), filter...)
				if err != nil {
					return err
				}
				r.fields(candidates, "")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tableRef, "table", "", "table id or name (default: selected table)")
	cmd.Flags().StringVar(&fieldRef, "field", "", "target field id or name")
	cmd.Flags().StringSliceVar(&types, "type", nil, "allowed target field types")
	return cmd
}
