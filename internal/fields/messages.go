package fields

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/yoonsio/fieldbatch/internal/base"
)

// Message keys of user-facing notices.
const (
	KeyAddFieldsDone       = "add_fields_done"
	KeyFieldNameRepeat     = "field_name_repeat"
	KeyNoNewFields         = "no_new_fields"
	KeyDeleteFieldsSuccess = "delete_fields_success"
	KeyDeleteFieldsFailed  = "delete_fields_failed"
	KeySelectionSaved      = "selection_saved"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Notice is a translated message for the user about the outcome of an action.
type Notice struct {
	Level Level
	Key   string
	Text  string
}

type translation struct {
	en, zh string
}

//nolint:gochecknoglobals // static message table
var translations = map[string]translation{
	KeyAddFieldsDone:       {"Added %d fields", "已添加 %d 个字段"},
	KeyFieldNameRepeat:     {"%d of %d fields could not be added, field names may be repeated", "%d/%d 个字段添加失败，字段名可能重复"},
	KeyNoNewFields:         {"No new fields to add", "没有需要添加的字段"},
	KeyDeleteFieldsSuccess: {"Deleted %d fields", "已删除 %d 个字段"},
	KeyDeleteFieldsFailed:  {"%d of %d fields could not be deleted", "%d/%d 个字段删除失败"},
	KeySelectionSaved:      {"Selection saved", "已保存选择"},

	"text_field":          {"Text", "文本"},
	"number_field":        {"Number", "数字"},
	"single_select_field": {"Single select", "单选"},
	"multi_select_field":  {"Multiple select", "多选"},
	"date_time_field":     {"Date", "日期"},
	"checkbox_field":      {"Checkbox", "复选框"},
	"user_field":          {"Person", "人员"},
	"phone_field":         {"Phone number", "电话号码"},
	"url_field":           {"Link", "超链接"},
	"attachment_field":    {"Attachment", "附件"},
	"single_link_field":   {"One-way link", "单向关联"},
	"lookup_field":        {"Lookup", "查找引用"},
	"formula_field":       {"Formula", "公式"},
	"duplex_link_field":   {"Two-way link", "双向关联"},
	"location_field":      {"Location", "地理位置"},
	"group_chat_field":    {"Group", "群组"},
	"created_time_field":  {"Date created", "创建时间"},
	"modified_time_field": {"Last modified date", "最后更新时间"},
	"created_user_field":  {"Created by", "创建人"},
	"modified_user_field": {"Modified by", "修改人"},
	"auto_number_field":   {"Auto number", "自动编号"},
	"barcode_field":       {"Barcode", "条码"},
	"progress_field":      {"Progress", "进度"},
	"currency_field":      {"Currency", "货币"},
	"rating_field":        {"Rating", "评分"},
}

//nolint:gochecknoglobals // built once, read-only afterwards
var (
	supported = []language.Tag{language.English, language.SimplifiedChinese}
	matcher   = language.NewMatcher(supported)
	messages  = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, tr := range translations {
		// keys and formats are static, SetString only fails on malformed input
		_ = b.SetString(supported[0], key, tr.en)
		_ = b.SetString(supported[1], key, tr.zh)
	}
	return b
}

// NewPrinter returns a printer for the given BCP 47 language tag.
// Unsupported languages fall back to English.
func NewPrinter(lang string) (*message.Printer, error) {
	tag := language.English
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("parsing language %q: %w", lang, err)
		}
		_, idx, _ := matcher.Match(parsed)
		tag = supported[idx]
	}
	return message.NewPrinter(tag, message.Catalog(messages)), nil
}

// Describe returns the translated description of a field type.
func Describe(p *message.Printer, t base.FieldType) string {
	return p.Sprintf(t.DescriptionKey())
}
