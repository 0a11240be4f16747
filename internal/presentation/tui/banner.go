package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Surface banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___ _   _ _ __ / _| __ _  ___ ___ ", "#818cf8"},
		{" / __| | | | '__| |_ / _` |/ __/ _ \\", "#a78bfa"},
		{" \\__ \\ |_| | |  |  _| (_| | (_|  __/", "#e879f9"},
		{" |___/\\__,_|_|  |_|  \\__,_|\\___\\___|", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
