package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"golang.org/x/text/message"

	"github.com/yoonsio/fieldbatch/internal/base"
	"github.com/yoonsio/fieldbatch/internal/fields"
)

// Notice colors (ANSI 256).
const (
	colorInfo    = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorError   = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("245")
)

const tabPadding = 2

// isTerminal reports whether w is a terminal; only then output is styled.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type renderer struct {
	w       io.Writer
	printer *message.Printer
	styled  bool
}

func newRenderer(w io.Writer, printer *message.Printer) *renderer {
	return &renderer{w: w, printer: printer, styled: isTerminal(w)}
}

func (r *renderer) style(color lipgloss.Color, bold bool, s string) string {
	if !r.styled {
		return s
	}
	return lipgloss.NewStyle().Foreground(color).Bold(bold).Render(s)
}

func (r *renderer) notice(n fields.Notice) {
	var color lipgloss.Color
	switch n.Level {
	case fields.LevelSuccess:
		color = colorSuccess
	case fields.LevelError:
		color = colorError
	default:
		color = colorInfo
	}
	fmt.Fprintf(r.w, "%s %s\n", r.style(color, true, "["+n.Level.String()+"]"), n.Text)
}

func (r *renderer) failed(items []string) {
	for _, item := range items {
		fmt.Fprintf(r.w, "  %s %s\n", r.style(colorError, false, "✗"), item)
	}
}

func (r *renderer) fields(list []base.Field, selected string) {
	if len(list) == 0 {
		fmt.Fprintln(r.w, r.style(colorMuted, false, "(no fields)"))
		return
	}
	w := tabwriter.NewWriter(r.w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, " \tID\tName\tType")
	for _, f := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker(f.ID == selected), f.ID, f.Name, fields.Describe(r.printer, f.Type))
	}
	_ = w.Flush()
}

func (r *renderer) tables(list []base.TableMeta, selected string) {
	if len(list) == 0 {
		fmt.Fprintln(r.w, r.style(colorMuted, false, "(no tables)"))
		return
	}
	w := tabwriter.NewWriter(r.w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, " \tID\tName")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", marker(t.ID == selected), t.ID, t.Name)
	}
	_ = w.Flush()
}

func (r *renderer) types(list []base.FieldType) {
	w := tabwriter.NewWriter(r.w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "Type\tCode\tDescription")
	for _, t := range list {
		fmt.Fprintf(w, "%s\t%d\t%s\n", toSnake(t.String()), int(t), fields.Describe(r.printer, t))
	}
	_ = w.Flush()
}

func marker(selected bool) string {
	if selected {
		return "*"
	}
	return " "
}

// toSnake turns a type name like SingleSelect into single_select.
func toSnake(s string) string {
	var b strings.Builder
	for i, c := range s {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}
