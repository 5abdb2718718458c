// Package fields implements the add, delete and select flows of the field
// manager on top of a base. Per-field calls are issued as one concurrent batch.
package fields

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yoonsio/fieldbatch"
	"github.com/yoonsio/fieldbatch/internal/base"
)

// Common flow errors.
var (
	ErrTableRequired       = errors.New("a table must be selected")
	ErrFieldsRequired      = errors.New("at least one field must be selected")
	ErrFieldTypeNotAllowed = errors.New("field type not allowed")
)

// Report describes the outcome of a batch of field changes.
type Report struct {
	TableID string
	// Batch is nil when nothing was submitted.
	Batch  *fieldbatch.BatchResult
	Notice Notice
	// Failed holds the names (add) or ids (delete) of the fields that failed.
	Failed []string
	// Fields is the table's field list after the change.
	Fields []base.Field
}

// Service runs field flows against a base.
type Service struct {
	base    *base.Base
	runner  *fieldbatch.Runner
	logger  zerolog.Logger
	printer *message.Printer
}

// Option configures a Service.
type Option func(*Service)

// WithRunner sets the batch runner, e.g. to cap concurrency.
func WithRunner(r *fieldbatch.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPrinter sets the printer notices are translated with.
func WithPrinter(p *message.Printer) Option {
	return func(s *Service) {
		s.printer = p
	}
}

// NewService creates a Service over b.
func NewService(b *base.Base, opts ...Option) *Service {
	s := &Service{
		base:    b,
		logger:  zerolog.Nop(),
		printer: message.NewPrinter(language.English, message.Catalog(messages)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner, _ = fieldbatch.NewRunner(fieldbatch.WithLogger(s.logger))
	}
	return s
}

// Printer returns the printer notices are translated with.
func (s *Service) Printer() *message.Printer {
	return s.printer
}

// AddFields creates every field of newFields on the table concurrently.
// Fields that fail, typically because the name is taken, do not stop the
// others; the notice reports how many failed.
func (s *Service) AddFields(ctx context.Context, tableID string, newFields []base.FieldConfig) (Report, error) {
	if len(newFields) == 0 {
		return Report{TableID: tableID, Notice: s.Notice(LevelInfo, KeyNoNewFields)}, nil
	}
	table, err := s.table(tableID)
	if err != nil {
		return Report{}, err
	}

	res := fieldbatch.RunWith(ctx, s.runner, newFields, func(ctx context.Context, f base.FieldConfig) error {
		_, err := table.AddField(ctx, f)
		return err
	})

	report := Report{TableID: tableID, Batch: res}
	for _, idx := range res.FailedIndexes() {
		report.Failed = append(report.Failed, newFields[idx].Name)
	}
	if res.Failed == 0 {
		report.Notice = s.Notice(LevelSuccess, KeyAddFieldsDone, res.Total)
	} else {
		report.Notice = s.Notice(LevelError, KeyFieldNameRepeat, res.Failed, res.Total)
	}
	s.logBatch("add fields", tableID, res)

	return s.refresh(table, report)
}

// DeleteFields deletes every field in fieldIDs from the table concurrently.
func (s *Service) DeleteFields(ctx context.Context, tableID string, fieldIDs []string) (Report, error) {
	table, err := s.table(tableID)
	if err != nil {
		return Report{}, err
	}
	if len(fieldIDs) == 0 {
		return Report{}, ErrFieldsRequired
	}

	res := fieldbatch.RunWith(ctx, s.runner, fieldIDs, table.DeleteField)

	report := Report{TableID: tableID, Batch: res}
	for _, idx := range res.FailedIndexes() {
		report.Failed = append(report.Failed, fieldIDs[idx])
	}
	if res.Failed == 0 {
		report.Notice = s.Notice(LevelSuccess, KeyDeleteFieldsSuccess, res.Total)
	} else {
		report.Notice = s.Notice(LevelError, KeyDeleteFieldsFailed, res.Failed, res.Total)
	}
	s.logBatch("delete fields", tableID, res)

	return s.refresh(table, report)
}

// Fields returns the table's fields, restricted to the given types if any.
func (s *Service) Fields(tableID string, types ...base.FieldType) ([]base.Field, error) {
	table, err := s.table(tableID)
	if err != nil {
		return nil, err
	}
	fields, err := table.FieldMetaList()
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return fields, nil
	}
	return slices.DeleteFunc(fields, func(f base.Field) bool {
		return !slices.Contains(types, f.Type)
	}), nil
}

// SelectTarget points the base's selection at a table and, optionally, a
// target field of that table. When types are given the field must be one of them.
func (s *Service) SelectTarget(ctx context.Context, tableID, fieldID string, types ...base.FieldType) (base.Selection, error) {
	if err := ctx.Err(); err != nil {
		return base.Selection{}, err
	}
	table, err := s.table(tableID)
	if err != nil {
		return base.Selection{}, err
	}
	if fieldID != "" {
		f, err := table.FieldByID(fieldID)
		if err != nil {
			return base.Selection{}, err
		}
		if len(types) > 0 && !slices.Contains(types, f.Type) {
			return base.Selection{}, fmt.Errorf("%w: %s is %s", ErrFieldTypeNotAllowed, f.Name, f.Type)
		}
	}
	sel := base.Selection{TableID: tableID, FieldID: fieldID}
	if err := s.base.SetSelection(sel); err != nil {
		return base.Selection{}, err
	}
	s.logger.Info().Str("table_id", tableID).Str("field_id", fieldID).Msg("selection saved")
	return sel, nil
}

// Notice translates a message key for the user.
func (s *Service) Notice(level Level, key string, args ...interface{}) Notice {
	return Notice{Level: level, Key: key, Text: s.printer.Sprintf(key, args...)}
}

func (s *Service) table(tableID string) (*base.TableHandle, error) {
	if tableID == "" {
		return nil, ErrTableRequired
	}
	return s.base.TableByID(tableID)
}

func (s *Service) refresh(table *base.TableHandle, report Report) (Report, error) {
	fields, err := table.FieldMetaList()
	if err != nil {
		return report, fmt.Errorf("refreshing field list: %w", err)
	}
	report.Fields = fields
	return report, nil
}

func (s *Service) logBatch(action, tableID string, res *fieldbatch.BatchResult) {
	event := s.logger.Info()
	if res.HasError() {
		event = s.logger.Warn().Errs("errors", res.Errors())
	}
	event.
		Str("batch_id", res.ID).
		Str("table_id", tableID).
		Int("total", res.Total).
		Int("failed", res.Failed).
		Msg(action)
}
