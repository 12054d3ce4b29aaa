package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette used by task output.
var (
	ColorTitle   = lipgloss.Color("#2CD7C7")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorNote    = lipgloss.Color("#20B9B4")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles groups the lipgloss styles of one Output.
type Styles struct {
	Title   lipgloss.Style
	Comment lipgloss.Style
	Note    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Bullet  lipgloss.Style
}

// NewStyles builds the styles against a renderer bound to the output writer,
// so the colour profile is detected for that writer and not for os.Stdout.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(ColorTitle),
		Comment: r.NewStyle().Foreground(ColorMuted),
		Note:    r.NewStyle().Foreground(ColorNote),
		Success: r.NewStyle().Bold(true).Foreground(ColorSuccess),
		Warning: r.NewStyle().Bold(true).Foreground(ColorWarning),
		Error:   r.NewStyle().Bold(true).Foreground(ColorError),
		Bullet:  r.NewStyle().Foreground(ColorNote),
	}
}

// Output writes task messages.
//
// Every block starts with a one-space indent and a textual marker
// ("[OK]", "[WARNING]", ...) so the output stays readable when colour is
// off, which is the case whenever the writer is not a terminal.
type Output struct {
	w      io.Writer
	styled bool
	styles Styles
}

// NewOutput creates an Output writing to w. Styling is enabled only when w
// is a terminal.
func NewOutput(w io.Writer) *Output {
	w = orDiscard(w)
	return &Output{
		w:      w,
		styled: IsTerminal(w),
		styles: NewStyles(lipgloss.NewRenderer(w)),
	}
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer { return o.w }

func (o *Output) render(s lipgloss.Style, text string) string {
	if !o.styled {
		return text
	}
	return s.Render(text)
}

// Section prints an underlined title surrounded by blank lines.
func (o *Output) Section(title string) {
	underline := strings.Repeat("-", lipgloss.Width(title))
	fmt.Fprintf(o.w, "\n%s\n%s\n\n", o.render(o.styles.Title, title), o.render(o.styles.Title, underline))
}

// Text prints a plain line.
func (o *Output) Text(line string) {
	fmt.Fprintf(o.w, " %s\n", line)
}

// Comment prints a muted "//" line.
func (o *Output) Comment(text string) {
	fmt.Fprintf(o.w, " %s\n", o.render(o.styles.Comment, "// "+text))
}

// Note prints a highlighted note block.
func (o *Output) Note(text string) {
	o.block(o.styles.Note, "! [NOTE]", text)
}

// Success prints a success block.
func (o *Output) Success(text string) {
	o.block(o.styles.Success, "[OK]", text)
}

// Warning prints a warning block.
func (o *Output) Warning(text string) {
	o.block(o.styles.Warning, "[WARNING]", text)
}

// Error prints an error block.
func (o *Output) Error(text string) {
	o.block(o.styles.Error, "[ERROR]", text)
}

// Listing prints one bullet per item followed by a blank line.
func (o *Output) Listing(items []string) {
	for _, item := range items {
		fmt.Fprintf(o.w, " %s %s\n", o.render(o.styles.Bullet, "*"), item)
	}
	fmt.Fprintln(o.w)
}

// JSON prints v as indented JSON.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *Output) block(s lipgloss.Style, marker, text string) {
	fmt.Fprintf(o.w, "\n %s\n\n", o.render(s, marker+" "+text))
}
