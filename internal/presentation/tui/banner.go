package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the statecraft ASCII banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	// Teal to indigo gradient
	lines := []struct{ text, color string }{
		{"      _        _                       __ _   ", "#2dd4bf"},
		{"  ___| |_ __ _| |_ ___  ___ _ __ __ _ / _| |_ ", "#38bdf8"},
		{" / __| __/ _` | __/ _ \\/ __| '__/ _` | |_| __|", "#60a5fa"},
		{" \\__ \\ || (_| | ||  __/ (__| | | (_| |  _| |_ ", "#818cf8"},
		{" |___/\\__\\__,_|\\__\\___|\\___|_|  \\__,_|_|  \\__|", "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
