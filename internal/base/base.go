// Package base provides a local stand-in for the host's base: a set of tables
// whose fields can be listed, added and deleted concurrently.
package base

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Common base errors.
var (
	ErrTableNotFound      = errors.New("table not found")
	ErrFieldNotFound      = errors.New("field not found")
	ErrDuplicateFieldName = errors.New("field name already exists")
	ErrDuplicateTableName = errors.New("table name already exists")
	ErrEmptyFieldName     = errors.New("field name cannot be empty")
	ErrEmptyTableName     = errors.New("table name cannot be empty")
	ErrUnknownFieldType   = errors.New("unknown field type")
)

const (
	tableIDPrefix = "tbl"
	fieldIDPrefix = "fld"
)

// Field describes a single column of a table.
type Field struct {
	ID   string    `yaml:"id"`
	Name string    `yaml:"name"`
	Type FieldType `yaml:"type"`
}

// FieldConfig is the input for creating a field.
type FieldConfig struct {
	Name string    `yaml:"name"`
	Type FieldType `yaml:"type"`
}

// TableMeta identifies a table.
type TableMeta struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Selection is the table and field the user currently points at.
type Selection struct {
	TableID string `yaml:"table_id,omitempty"`
	FieldID string `yaml:"field_id,omitempty"`
}

type table struct {
	meta   TableMeta
	fields []Field
}

// Base is a concurrency-safe collection of tables.
type Base struct {
	mu        sync.RWMutex
	tables    []*table
	selection Selection
}

// New returns an empty base.
func New() *Base {
	return &Base{}
}

// CreateTable adds an empty table with the given name.
func (b *Base) CreateTable(name string) (TableMeta, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TableMeta{}, ErrEmptyTableName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range b.tables {
		if t.meta.Name == name {
			return TableMeta{}, fmt.Errorf("%w: %q", ErrDuplicateTableName, name)
		}
	}
	meta := TableMeta{ID: newID(tableIDPrefix), Name: name}
	b.tables = append(b.tables, &table{meta: meta})
	return meta, nil
}

// TableMetaList returns all tables in creation order.
func (b *Base) TableMetaList() []TableMeta {
	b.mu.RLock()
	defer b.mu.RUnlock()

	metas := make([]TableMeta, len(b.tables))
	for i, t := range b.tables {
		metas[i] = t.meta
	}
	return metas
}

// TableByID returns a handle to the table with the given id.
func (b *Base) TableByID(id string) (*TableHandle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.findTableLocked(id) == nil {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, id)
	}
	return &TableHandle{base: b, id: id}, nil
}

// TableByName returns a handle to the table with the given name.
func (b *Base) TableByName(name string) (*TableHandle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, t := range b.tables {
		if t.meta.Name == name {
			return &TableHandle{base: b, id: t.meta.ID}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
}

// Selection returns the current selection.
func (b *Base) Selection() Selection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selection
}

// SetSelection points the selection at a table and optionally one of its fields.
func (b *Base) SetSelection(sel Selection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sel.TableID != "" {
		t := b.findTableLocked(sel.TableID)
		if t == nil {
			return fmt.Errorf("%w: %q", ErrTableNotFound, sel.TableID)
		}
		if sel.FieldID != "" && t.fieldIndex(sel.FieldID) < 0 {
			return fmt.Errorf("%w: %q", ErrFieldNotFound, sel.FieldID)
		}
	} else if sel.FieldID != "" {
		return fmt.Errorf("%w: field selected without a table", ErrTableNotFound)
	}
	b.selection = sel
	return nil
}

func (b *Base) findTableLocked(id string) *table {
	for _, t := range b.tables {
		if t.meta.ID == id {
			return t
		}
	}
	return nil
}

func (t *table) fieldIndex(id string) int {
	return slices.IndexFunc(t.fields, func(f Field) bool { return f.ID == id })
}

// TableHandle is the per-table API. A handle stays valid after the table is
// gone; its methods then fail with ErrTableNotFound.
type TableHandle struct {
	base *Base
	id   string
}

// ID returns the table id.
func (h *TableHandle) ID() string {
	return h.id
}

// Meta returns the table's id and name.
func (h *TableHandle) Meta() (TableMeta, error) {
	h.base.mu.RLock()
	defer h.base.mu.RUnlock()

	t := h.base.findTableLocked(h.id)
	if t == nil {
		return TableMeta{}, fmt.Errorf("%w: %q", ErrTableNotFound, h.id)
	}
	return t.meta, nil
}

// AddField creates a field and returns its id. Field names are unique per table.
func (h *TableHandle) AddField(ctx context.Context, cfg FieldConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return "", ErrEmptyFieldName
	}
	if !cfg.Type.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownFieldType, int(cfg.Type))
	}

	h.base.mu.Lock()
	defer h.base.mu.Unlock()

	t := h.base.findTableLocked(h.id)
	if t == nil {
		return "", fmt.Errorf("%w: %q", ErrTableNotFound, h.id)
	}
	for _, f := range t.fields {
		if f.Name == name {
			return "", fmt.Errorf("%w: %q", ErrDuplicateFieldName, name)
		}
	}
	f := Field{ID: newID(fieldIDPrefix), Name: name, Type: cfg.Type}
	t.fields = append(t.fields, f)
	return f.ID, nil
}

// DeleteField removes the field with the given id. A selection pointing at
// the field is narrowed to its table.
func (h *TableHandle) DeleteField(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.base.mu.Lock()
	defer h.base.mu.Unlock()

	t := h.base.findTableLocked(h.id)
	if t == nil {
		return fmt.Errorf("%w: %q", ErrTableNotFound, h.id)
	}
	i := t.fieldIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrFieldNotFound, id)
	}
	t.fields = slices.Delete(t.fields, i, i+1)
	if h.base.selection.FieldID == id {
		h.base.selection.FieldID = ""
	}
	return nil
}

// FieldMetaList returns the table's fields in creation order.
func (h *TableHandle) FieldMetaList() ([]Field, error) {
	h.base.mu.RLock()
	defer h.base.mu.RUnlock()

	t := h.base.findTableLocked(h.id)
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, h.id)
	}
	return slices.Clone(t.fields), nil
}

// FieldByID looks up a field by id.
func (h *TableHandle) FieldByID(id string) (Field, error) {
	return h.findField(func(f Field) bool { return f.ID == id }, id)
}

// FieldByName looks up a field by name.
func (h *TableHandle) FieldByName(name string) (Field, error) {
	return h.findField(func(f Field) bool { return f.Name == name }, name)
}

func (h *TableHandle) findField(match func(Field) bool, key string) (Field, error) {
	fields, err := h.FieldMetaList()
	if err != nil {
		return Field{}, err
	}
	if i := slices.IndexFunc(fields, match); i >= 0 {
		return fields[i], nil
	}
	return Field{}, fmt.Errorf("%w: %q", ErrFieldNotFound, key)
}

func newID(prefix string) string {
	return prefix + strings.ToLower(ulid.Make().String())
}
