package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yoonsio/fieldbatch/internal/base"
	"github.com/yoonsio/fieldbatch/internal/fields"
)

func newFieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List, add and delete fields of a table",
	}
	cmd.AddCommand(newFieldsListCmd(a), newFieldsAddCmd(a), newFieldsDeleteCmd(a))
	return cmd
}

func newFieldsListCmd(a *app) *cobra.Command {
	var (
		tableRef string
		types    []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the fields of a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := a.resolveTable(tableRef)
			if err != nil {
				return err
			}
			filter, err := parseTypes(types)
			if err != nil {
				return err
			}
			list, err := a.service.Fields(table.ID(), filter...)
			if err != nil {
				return err
			}
			newRenderer(cmd.OutOrStdout(), a.service.Printer()).fields(list, a.base.Selection().FieldID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tableRef, "table", "", "table id or name (default: selected table)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "only list fields of these types")
	return cmd
}

func newFieldsAddCmd(a *app) *cobra.Command {
	var (
		tableRef string
		specs    []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add fields to a table",
		Long: `Add fields to a table. Each --field is NAME or NAME:TYPE; the type defaults to text.
All fields are created concurrently. Fields whose name already exists fail
without affecting the others.`,
		Example: `  fieldctl fields add --table Tasks --field Title --field Estimate:number --field "Due date:date_time"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newFields, err := parseFieldSpecs(specs)
			if err != nil {
				return err
			}
			var tableID string
			if len(newFields) > 0 {
				table, err := a.resolveTable(tableRef)
				if err != nil {
					return err
				}
				tableID = table.ID()
			}
			report, err := a.service.AddFields(cmd.Context(), tableID, newFields)
			if err != nil {
				return err
			}
			return a.finish(cmd, report)
		},
	}
	cmd.Flags().StringVar(&tableRef, "table", "", "table id or name (default: selected table)")
	cmd.Flags().StringArrayVar(&specs, "field", nil, "field to add as NAME[:TYPE], repeatable")
	return cmd
}

func newFieldsDeleteCmd(a *app) *cobra.Command {
	var tableRef string
	cmd := &cobra.Command{
		Use:   "delete FIELD...",
		Short: "Delete fields from a table",
		Long: `Delete fields, given by id or name, from a table. All deletions run concurrently
and a missing field does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.resolveTable(tableRef)
			if err != nil {
				return err
			}
			// unknown refs are passed through as ids so they are counted as failures
			ids := make([]string, len(args))
			for i, ref := range args {
				ids[i] = ref
				if f, err := resolveField(table, ref); err == nil {
					ids[i] = f.ID
				}
			}
			report, err := a.service.DeleteFields(cmd.Context(), table.ID(), ids)
			if err != nil {
				return err
			}
			return a.finish(cmd, report)
		},
	}
	cmd.Flags().StringVar(&tableRef, "table", "", "table id or name (default: selected table)")
	return cmd
}

// finish prints the outcome of a batch, persists the base and turns failed
// items into a non-zero exit.
func (a *app) finish(cmd *cobra.Command, report fields.Report) error {
	r := newRenderer(cmd.OutOrStdout(), a.service.Printer())
	r.notice(report.Notice)
	if report.Batch == nil {
		return nil
	}
	r.failed(report.Failed)
	r.fields(report.Fields, a.base.Selection().FieldID)

	if report.Batch.Succeeded() > 0 {
		if err := a.save(); err != nil {
			return err
		}
	}
	if report.Batch.HasError() {
		return fmt.Errorf("%w: %d of %d", ErrPartialFailure, report.Batch.Failed, report.Batch.Total)
	}
	return nil
}

// parseFieldSpecs parses NAME[:TYPE] specs. The last ':' separates the type
// when what follows is a known type, so names may contain ':'.
func parseFieldSpecs(specs []string) ([]base.FieldConfig, error) {
	out := make([]base.FieldConfig, 0, len(specs))
	for _, spec := range specs {
		cfg := base.FieldConfig{Name: spec, Type: base.Text}
		if i := strings.LastIndex(spec, ":"); i >= 0 {
			if t, err := base.ParseFieldType(spec[i+1:]); err == nil {
				cfg = base.FieldConfig{Name: spec[:i], Type: t}
			}
		}
		if strings.TrimSpace(cfg.Name) == "" {
			return nil, fmt.Errorf("field %q: %w", spec, base.ErrEmptyFieldName)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func parseTypes(names []string) ([]base.FieldType, error) {
	types := make([]base.FieldType, 0, len(names))
	for _, name := range names {
		t, err := base.ParseFieldType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
