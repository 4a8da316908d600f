package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowfsm banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"  __ _                 __", "#818cf8"},
		{" / _| | _____      __ / _|___ _ __ ___", "#a78bfa"},
		{"| |_| |/ _ \\ \\ /\\ / /| |_/ __| '_ ` _ \\", "#c084fc"},
		{"|  _| | (_) \\ V  V / |  _\\__ \\ | | | | |", "#e879f9"},
		{"|_| |_|\\___/ \\_/\\_/  |_| |___/_| |_| |_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  "+version).Faint())
	fmt.Fprintln(w)
}
