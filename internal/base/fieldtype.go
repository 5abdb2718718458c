package base

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType identifies the kind of a field. Values match the host's field type codes.
type FieldType int

// Field types offered when adding fields.
const (
	Text         FieldType = 1
	Number       FieldType = 2
	SingleSelect FieldType = 3
	MultiSelect  FieldType = 4
	DateTime     FieldType = 5
	Checkbox     FieldType = 7
	User         FieldType = 11
	Phone        FieldType = 13
	URL          FieldType = 15
	Attachment   FieldType = 17
	SingleLink   FieldType = 18
	Lookup       FieldType = 19
	Formula      FieldType = 20
	DuplexLink   FieldType = 21
	Location     FieldType = 22
	GroupChat    FieldType = 23
	CreatedTime  FieldType = 1001
	ModifiedTime FieldType = 1002
	CreatedUser  FieldType = 1003
	ModifiedUser FieldType = 1004
	AutoNumber   FieldType = 1005
	Barcode      FieldType = 99001
	Progress     FieldType = 99002
	Currency     FieldType = 99003
	Rating       FieldType = 99004
)

type fieldTypeInfo struct {
	name string
	key  string
}

//nolint:gochecknoglobals // catalogue is fixed
var catalogue = []FieldType{
	Text, Number, SingleSelect, MultiSelect, DateTime, Checkbox, User, Phone, URL,
	Attachment, SingleLink, Lookup, Formula, DuplexLink, Location, GroupChat,
	CreatedTime, ModifiedTime, CreatedUser, ModifiedUser, AutoNumber, Barcode,
	Progress, Currency, Rating,
}

//nolint:gochecknoglobals // catalogue is fixed
var fieldTypes = map[FieldType]fieldTypeInfo{
	Text:         {"Text", "text_field"},
	Number:       {"Number", "number_field"},
	SingleSelect: {"SingleSelect", "single_select_field"},
	MultiSelect:  {"MultiSelect", "multi_select_field"},
	DateTime:     {"DateTime", "date_time_field"},
	Checkbox:     {"Checkbox", "checkbox_field"},
	User:         {"User", "user_field"},
	Phone:        {"Phone", "phone_field"},
	URL:          {"Url", "url_field"},
	Attachment:   {"Attachment", "attachment_field"},
	SingleLink:   {"SingleLink", "single_link_field"},
	Lookup:       {"Lookup", "lookup_field"},
	Formula:      {"Formula", "formula_field"},
	DuplexLink:   {"DuplexLink", "duplex_link_field"},
	Location:     {"Location", "location_field"},
	GroupChat:    {"GroupChat", "group_chat_field"},
	CreatedTime:  {"CreatedTime", "created_time_field"},
	ModifiedTime: {"ModifiedTime", "modified_time_field"},
	CreatedUser:  {"CreatedUser", "created_user_field"},
	ModifiedUser: {"ModifiedUser", "modified_user_field"},
	AutoNumber:   {"AutoNumber", "auto_number_field"},
	Barcode:      {"Barcode", "barcode_field"},
	Progress:     {"Progress", "progress_field"},
	Currency:     {"Currency", "currency_field"},
	Rating:       {"Rating", "rating_field"},
}

// Catalogue returns the field types users can pick from, in display order.
func Catalogue() []FieldType {
	out := make([]FieldType, len(catalogue))
	copy(out, catalogue)
	return out
}

// Valid reports whether t is part of the catalogue.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

func (t FieldType) String() string {
	if info, ok := fieldTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// DescriptionKey returns the message key of the type's human readable description.
func (t FieldType) DescriptionKey() string {
	return fieldTypes[t].key
}

// ParseFieldType resolves a type by name. Matching ignores case, '-' and '_',
// so "single_select", "single-select" and "SingleSelect" are the same type.
func ParseFieldType(s string) (FieldType, error) {
	want := normalizeTypeName(s)
	for _, t := range catalogue {
		if normalizeTypeName(fieldTypes[t].name) == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}

func normalizeTypeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// MarshalYAML encodes the type by name.
func (t FieldType) MarshalYAML() (interface{}, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFieldType, int(t))
	}
	return t.String(), nil
}

// UnmarshalYAML accepts a type name or its numeric code.
func (t *FieldType) UnmarshalYAML(value *yaml.Node) error {
	var code int
	if err := value.Decode(&code); err == nil {
		if !FieldType(code).Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownFieldType, code)
		}
		*t = FieldType(code)
		return nil
	}
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseFieldType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
