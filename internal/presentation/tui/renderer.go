package tui

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders message markdown using glamour.
// When the renderer cannot be built, text is returned untouched.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// NewAnnotationStyler returns a function that dims annotations (condition labels,
// action summaries) so they read as stage directions rather than bot speech.
func NewAnnotationStyler() func(string) string {
	p := termenv.ColorProfile()
	return func(s string) string {
		return termenv.String(s).Foreground(p.Color("#a78bfa")).Italic().String()
	}
}
