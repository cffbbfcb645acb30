package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/wordwrap"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
)

type Mode string

const (
	// ModeStream prints text as it arrives.
	ModeStream Mode = "stream"
	// ModeBox renders the finished summary once.
	ModeBox Mode = "box"
)

const (
	summaryHeader = "✨ AI Summary"
	errorHeader   = "❌ Error"
	defaultWidth  = 80
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStream:
		return ModeStream, nil
	case ModeBox:
		return ModeBox, nil
	default:
		return "", fmt.Errorf("unknown display mode %q", s)
	}
}

type palette struct {
	summaryBox    lipgloss.Style
	summaryHeader lipgloss.Style
	errorBox      lipgloss.Style
	errorHeader   lipgloss.Style
}

func newPalette(r *lipgloss.Renderer) palette {
	return palette{
		summaryBox: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#e2e8f0")).
			Foreground(lipgloss.Color("#4b5563")).
			Background(lipgloss.Color("#f8fafc")).
			Padding(1, 2),
		summaryHeader: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#4b5563")),
		errorBox: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#fecaca")).
			Foreground(lipgloss.Color("#b91c1c")).
			Background(lipgloss.Color("#fef2f2")).
			Padding(1, 2),
		errorHeader: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#b91c1c")),
	}
}

// Markdown renders summary markdown for a terminal of the given width.
type Markdown func(text string, width int) (string, error)

// GlamourMarkdown renders with glamour's light style, matching the light
// summary box.
func GlamourMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// Terminal shows one summary region on a terminal. Each Begin dismisses
// whatever the previous operation left behind.
type Terminal struct {
	out   io.Writer
	mode  Mode
	rich     bool
	width    int
	style    palette
	markdown Markdown

	summary string
	printed string
	header  bool
	failure string
}

type TerminalOption func(*Terminal)

func WithMode(mode Mode) TerminalOption {
	return func(t *Terminal) {
		if mode != "" {
			t.mode = mode
		}
	}
}

// WithPlain turns off boxes and colors.
func WithPlain(plain bool) TerminalOption {
	return func(t *Terminal) {
		if plain {
			t.rich = false
		}
	}
}

// WithMarkdown replaces the markdown renderer used for rich summary boxes.
// A nil renderer shows the raw text.
func WithMarkdown(md Markdown) TerminalOption {
	return func(t *Terminal) {
		t.markdown = md
	}
}

func WithWidth(width int) TerminalOption {
	return func(t *Terminal) {
		if width > 0 {
			t.width = width
		}
	}
}

// NewTerminal renders to f, using colors only when f is a terminal.
func NewTerminal(f *os.File, opts ...TerminalOption) *Terminal {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	var out io.Writer = f
	if tty {
		out = colorable.NewColorable(f)
	}
	return newTerminal(out, tty, opts...)
}

// NewTerminalWriter renders plain text to w.
func NewTerminalWriter(w io.Writer, opts ...TerminalOption) *Terminal {
	return newTerminal(w, false, opts...)
}

func newTerminal(out io.Writer, rich bool, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:      out,
		mode:     ModeStream,
		rich:     rich,
		width:    defaultWidth,
		markdown: GlamourMarkdown,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.style = newPalette(lipgloss.NewRenderer(out))
	return t
}

// Begin dismisses the previous region.
func (t *Terminal) Begin(contractx.Operation) {
	t.summary = ""
	t.printed = ""
	t.header = false
	t.failure = ""
}

func (t *Terminal) Update(summary string) {
	t.summary = summary
	if t.mode != ModeStream {
		return
	}
	// The header waits for content so a failed run shows only the error.
	if !t.header {
		t.writeHeader(summaryHeader, t.style.summaryHeader)
		t.header = true
	}

	if strings.HasPrefix(summary, t.printed) {
		fmt.Fprint(t.out, summary[len(t.printed):])
	} else {
		fmt.Fprint(t.out, "\n"+summary)
	}
	t.printed = summary
}

func (t *Terminal) Fail(message string) {
	t.failure = message
}

func (t *Terminal) End(res contractx.Result) {
	switch t.mode {
	case ModeBox:
		if t.failure != "" {
			t.writeBox(errorHeader, t.failure, t.style.errorBox, t.style.errorHeader, false)
			return
		}
		t.writeBox(summaryHeader, t.summary, t.style.summaryBox, t.style.summaryHeader, true)
	default:
		if t.printed != "" {
			fmt.Fprintln(t.out)
		}
		if t.failure != "" {
			t.writeHeader(errorHeader, t.style.errorHeader)
			fmt.Fprintln(t.out, t.failure)
		}
	}
}

func (t *Terminal) writeHeader(title string, style lipgloss.Style) {
	if t.rich {
		fmt.Fprintln(t.out, style.Render(title))
		return
	}
	fmt.Fprintln(t.out, plainTitle(title))
}

func (t *Terminal) writeBox(title, body string, box, header lipgloss.Style, markdown bool) {
	// Border plus padding take six columns.
	inner := max(t.width-6, 20)
	if !t.rich {
		fmt.Fprintln(t.out, plainTitle(title))
		fmt.Fprintln(t.out, wordwrap.String(body, inner))
		return
	}
	content := header.Render(title) + "\n\n" + t.richBody(body, inner, markdown)
	fmt.Fprintln(t.out, box.Width(t.width-2).Render(content))
}

// richBody renders markdown when asked and falls back to wrapped raw text
// when there is no renderer or it fails.
func (t *Terminal) richBody(body string, width int, markdown bool) string {
	if markdown && t.markdown != nil {
		if rendered, err := t.markdown(body, width); err == nil && strings.TrimSpace(rendered) != "" {
			return rendered
		}
	}
	return wordwrap.String(body, width)
}

// plainTitle drops the leading emoji.
func plainTitle(title string) string {
	if _, rest, ok := strings.Cut(title, " "); ok {
		return rest
	}
	return title
}
