package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Turnstile ASCII banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Teal/Indigo)
	lines := []struct {
		text  string
		color string
	}{
		{"  _____                     _   _ _      ", "#2dd4bf"},
		{" |_   _|   _ _ __ _ __  ___| |_(_) | ___ ", "#22d3ee"},
		{"   | || | | | '__| '_ \\/ __| __| | |/ _ \\", "#38bdf8"},
		{"   | || |_| | |  | | | \\__ \\ |_| | |  __/", "#60a5fa"},
		{"   |_| \\__,_|_|  |_| |_|___/\\__|_|_|\\___|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
