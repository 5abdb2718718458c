package base

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidBaseFile is returned when a base file decodes but is inconsistent.
var ErrInvalidBaseFile = errors.New("invalid base file")

const fileVersion = 1

type fileTable struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

type fileDocument struct {
	Version   int         `yaml:"version"`
	Selection Selection   `yaml:"selection,omitempty"`
	Tables    []fileTable `yaml:"tables"`
}

// Load reads a base from a YAML file. A missing file yields an empty base.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading base file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing base file %s: %w", path, err)
	}
	b, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Save writes the base to path, replacing any previous content atomically.
func (b *Base) Save(path string) error {
	data, err := yaml.Marshal(b.document())
	if err != nil {
		return fmt.Errorf("encoding base: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating base directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing base file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing base file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing base file: %w", err)
	}
	return nil
}

func (b *Base) document() fileDocument {
	b.mu.RLock()
	defer b.mu.RUnlock()

	doc := fileDocument{
		Version:   fileVersion,
		Selection: b.selection,
		Tables:    make([]fileTable, len(b.tables)),
	}
	for i, t := range b.tables {
		doc.Tables[i] = fileTable{ID: t.meta.ID, Name: t.meta.Name, Fields: t.fields}
	}
	return doc
}

func fromDocument(doc fileDocument) (*Base, error) {
	if doc.Version > fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBaseFile, doc.Version)
	}

	b := New()
	tableIDs := make(map[string]bool)
	tableNames := make(map[string]bool)
	for _, ft := range doc.Tables {
		if ft.ID == "" || ft.Name == "" {
			return nil, fmt.Errorf("%w: table needs an id and a name", ErrInvalidBaseFile)
		}
		if tableIDs[ft.ID] || tableNames[ft.Name] {
			return nil, fmt.Errorf("%w: duplicate table %q", ErrInvalidBaseFile, ft.Name)
		}
		tableIDs[ft.ID], tableNames[ft.Name] = true, true

		fieldIDs := make(map[string]bool)
		fieldNames := make(map[string]bool)
		for _, f := range ft.Fields {
			if f.ID == "" || f.Name == "" {
				return nil, fmt.Errorf("%w: field of table %q needs an id and a name", ErrInvalidBaseFile, ft.Name)
			}
			if fieldIDs[f.ID] || fieldNames[f.Name] {
				return nil, fmt.Errorf("%w: duplicate field %q in table %q", ErrInvalidBaseFile, f.Name, ft.Name)
			}
			fieldIDs[f.ID], fieldNames[f.Name] = true, true
		}
		b.tables = append(b.tables, &table{
			meta:   TableMeta{ID: ft.ID, Name: ft.Name},
			fields: ft.Fields,
		})
	}
	if err := b.SetSelection(doc.Selection); err != nil {
		return nil, fmt.Errorf("%w: selection: %w", ErrInvalidBaseFile, err)
	}
	return b, nil
}
