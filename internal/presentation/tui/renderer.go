// Package tui renders CLI output for terminals.
package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer with automatic light/dark styling.
// Outside a terminal it returns the markdown unchanged.
func NewRenderer(f *os.File) Renderer {
	if !IsTerminal(f) {
		return Plain
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns markdown as is.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
