// Package tui holds terminal presentation helpers for the CLI.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the tendril banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{" _                 _      _ _ ", "#86efac"},
		{"| |_ ___ _ __   __| |_ __(_) |", "#4ade80"},
		{"| __/ _ \\ '_ \\ / _` | '__| | |", "#22c55e"},
		{"| ||  __/ | | | (_| | |  | | |", "#16a34a"},
		{" \\__\\___|_| |_|\\__,_|_|  |_|_|", "#15803d"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

// Status colors a run status for terminal output.
func Status(w io.Writer, status string) string {
	out := termenv.NewOutput(w)
	color := "#a3a3a3"
	switch status {
	case "completed":
		color = "#22c55e"
	case "paused":
		color = "#eab308"
	case "failed", "cancelled":
		color = "#ef4444"
	}
	return out.String(status).Foreground(out.Color(color)).Bold().String()
}
