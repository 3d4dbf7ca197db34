package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowgraph banner, coloured when w supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"   __ _                                    _     ", "#34d399"},
		{"  / _| | _____      ____ _ _ __ __ _ _ __ | |__  ", "#2dd4bf"},
		{" | |_| |/ _ \\ \\ /\\ / / _` | '__/ _` | '_ \\| '_ \\ ", "#22d3ee"},
		{" |  _| | (_) \\ V  V / (_| | | | (_| | |_) | | | |", "#38bdf8"},
		{" |_| |_|\\___/ \\_/\\_/ \\__, |_|  \\__,_| .__/|_| |_|", "#60a5fa"},
		{"                     |___/          |_|          ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
