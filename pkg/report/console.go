package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownConsole prints markdown reports to a terminal, styled with glamour
// when color is enabled and verbatim otherwise. It is safe for concurrent
// use: reports from parallel files are printed whole, one at a time.
type MarkdownConsole struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewMarkdownConsole returns a console writing to out.
func NewMarkdownConsole(out io.Writer, useColor bool, width int) *MarkdownConsole {
	c := &MarkdownConsole{out: out}
	if !useColor {
		return c
	}
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		c.renderer = renderer
	}
	return c
}

// Show prints one markdown document.
func (c *MarkdownConsole) Show(markdown string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := markdown
	if c.renderer != nil {
		rendered, err := c.renderer.Render(markdown)
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		text = rendered
	}
	_, err := io.WriteString(c.out, text)
	return err
}
