package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/registry"
	"github.com/charmbracelet/glamour"
	"github.com/mitchellh/mapstructure"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// NewMarkdownRenderer returns a function that renders markdown using glamour.
func NewMarkdownRenderer(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or DefaultWidth.
func Width(f *os.File) int {
	if !IsTerminal(f) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

type choice struct {
	Title    string `mapstructure:"title"`
	Subtitle string `mapstructure:"subtitle"`
}

type slot struct {
	Date     string `mapstructure:"date"`
	Duration int    `mapstructure:"duration"`
}

type pickerProps struct {
	Title     string   `mapstructure:"title"`
	Subtitle  string   `mapstructure:"subtitle"`
	Elements  []choice `mapstructure:"elements"`
	TimeSlots []slot   `mapstructure:"timeslots"`
}

// Register binds terminal renderers for the built-in component types.
func Register(reg *registry.Registry, width int) {
	md := NewMarkdownRenderer(width)
	p := termenv.ColorProfile()

	reg.Register("text", func(props map[string]any) (string, error) {
		content, _ := props["content"].(string)
		return md(content)
	})
	reg.Register("list-picker", func(props map[string]any) (string, error) {
		var pp pickerProps
		if err := decodeProps(props, &pp); err != nil {
			return "", err
		}
		var b strings.Builder
		writeHeader(&b, p, pp)
		for i, e := range pp.Elements {
			fmt.Fprintf(&b, "  %s %s", termenv.String(fmt.Sprintf("%d.", i+1)).Foreground(p.Color("#a78bfa")), e.Title)
			if e.Subtitle != "" {
				fmt.Fprintf(&b, " %s", termenv.String(e.Subtitle).Faint())
			}
			b.WriteByte('\n')
		}
		return b.String(), nil
	})
	reg.Register("time-picker", func(props map[string]any) (string, error) {
		var pp pickerProps
		if err := decodeProps(props, &pp); err != nil {
			return "", err
		}
		var b strings.Builder
		writeHeader(&b, p, pp)
		for i, s := range pp.TimeSlots {
			label := s.Date
			if t, err := time.Parse(time.RFC3339, s.Date); err == nil {
				label = t.Format("Mon Jan 2 15:04")
			}
			if s.Duration > 0 {
				label += fmt.Sprintf(" (%d min)", s.Duration/60)
			}
			fmt.Fprintf(&b, "  %s %s\n", termenv.String(fmt.Sprintf("%d.", i+1)).Foreground(p.Color("#f472b6")), label)
		}
		return b.String(), nil
	})
}

func writeHeader(b *strings.Builder, p termenv.Profile, pp pickerProps) {
	if pp.Title != "" {
		fmt.Fprintln(b, termenv.String(pp.Title).Bold().Foreground(p.Color("#818cf8")))
	}
	if pp.Subtitle != "" {
		fmt.Fprintln(b, termenv.String(pp.Subtitle).Faint())
	}
}

func decodeProps(props map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(props)
}

// Chrome returns the line printed above a component, or "" for workflow content.
func Chrome(c domain.Component) string {
	if c.MetaString(domain.MetaOrigin) != domain.OriginExternal {
		return ""
	}
	name := c.MetaString(domain.MetaAgentName)
	if name == "" {
		name = "Agent"
	}
	return termenv.String("● " + name).Foreground(termenv.ColorProfile().Color("#34d399")).String()
}
