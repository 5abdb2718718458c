// Package cli implements the fieldctl command line.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yoonsio/fieldbatch"
	"github.com/yoonsio/fieldbatch/internal/base"
	"github.com/yoonsio/fieldbatch/internal/config"
	"github.com/yoonsio/fieldbatch/internal/fields"
)

// ErrPartialFailure is returned by commands whose batch had failed items.
var ErrPartialFailure = errors.New("some fields failed")

// app is the state shared by subcommands once the root command has run its setup.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	base    *base.Base
	service *fields.Service
}

type rootFlags struct {
	configFile  string
	baseFile    string
	lang        string
	concurrency int
	debug       bool
}

// NewRootCmd creates the root fieldctl command.
func NewRootCmd(ver string) *cobra.Command {
	flags := &rootFlags{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "fieldctl",
		Short:         "Add, delete and select table fields in bulk",
		Long:          "fieldctl manages the fields of the tables in a base. Field changes are applied as one concurrent batch.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default ~/.fieldctl/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.baseFile, "base", "", "base file, overrides config")
	cmd.PersistentFlags().StringVar(&flags.lang, "lang", "", "language of messages, e.g. en or zh")
	cmd.PersistentFlags().
		IntVar(&flags.concurrency, "concurrency", -1, "max in-flight field operations (0 = unlimited, default from config)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newTypesCmd(a), newTablesCmd(a), newFieldsCmd(a), newSelectCmd(a))
	return cmd
}

// setup loads config and base, and wires the logger, printer and runner.
func (a *app) setup(cmd *cobra.Command, flags *rootFlags) error {
	path := flags.configFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if flags.baseFile != "" {
		cfg.Base.File = flags.baseFile
	}
	if flags.lang != "" {
		cfg.Language = flags.lang
	}
	if flags.concurrency >= 0 {
		cfg.Concurrency = flags.concurrency
	}
	if flags.debug {
		cfg.Logging.Level = zerolog.DebugLevel.String()
		cfg.Logging.Format = config.FormatConsole
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = config.NewLogger(cfg.Logging, cmd.ErrOrStderr()).With().Str("component", "cli").Logger()
	cmd.SetContext(a.logger.WithContext(cmd.Context()))

	printer, err := fields.NewPrinter(cfg.Language)
	if err != nil {
		return err
	}
	runner, err := fieldbatch.NewRunner(
		fieldbatch.WithLimit(cfg.Concurrency),
		fieldbatch.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("concurrency: %w", err)
	}

	a.base, err = base.Load(cfg.Base.File)
	if err != nil {
		return err
	}
	a.service = fields.NewService(a.base,
		fields.WithRunner(runner),
		fields.WithLogger(a.logger),
		fields.WithPrinter(printer),
	)

	a.logger.Debug().Str("command", cmd.Name()).Str("base_file", cfg.Base.File).Msg("command started")
	return nil
}

func (a *app) save() error {
	if err := a.base.Save(a.cfg.Base.File); err != nil {
		return err
	}
	a.logger.Debug().Str("base_file", a.cfg.Base.File).Msg("base saved")
	return nil
}

// resolveTable finds a table by id or name, falling back to the current selection.
func (a *app) resolveTable(ref string) (*base.TableHandle, error) {
	if ref == "" {
		ref = a.base.Selection().TableID
		if ref == "" {
			return nil, fields.ErrTableRequired
		}
	}
	if h, err := a.base.TableByID(ref); err == nil {
		return h, nil
	}
	return a.base.TableByName(ref)
}

// resolveField finds a field of table by id or name.
func resolveField(table *base.TableHandle, ref string) (base.Field, error) {
	if f, err := table.FieldByID(ref); err == nil {
		return f, nil
	}
	return table.FieldByName(ref)
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ver string) {
	if err := NewRootCmd(ver).Execute(); err != nil {
		os.Exit(1)
	}
}

const rootCmdExample = `  # List the available field types
  fieldctl types

  # Create a table and select it
  fieldctl tables create Tasks
  fieldctl select --table Tasks

  # Add fields to the selected table
  fieldctl fields add --field Title:text --field Due:date_time --field Done:checkbox

  # Delete fields by name or id
  fieldctl fields delete Done Due

  # Select a target text field of a table
  fieldctl select --table Tasks --field Title --type text`
