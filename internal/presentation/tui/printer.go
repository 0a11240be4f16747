package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/surface/pkg/client"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/focus"
)

// Printer writes client updates to a terminal as they arrive.
// Text components are printed incrementally; other components are printed
// whole through their bound renderer when they mount or change.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[string]int
	last    string
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, printed: make(map[string]int)}
}

// Handle is a client.WithUpdateHandler callback.
func (p *Printer) Handle(u client.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	comp := u.Component
	switch {
	case u.Kind == client.UpdateRevealed:
		n := p.printed[comp.ID]
		if len(u.Displayed) <= n {
			return
		}
		p.switchTo(comp)
		fmt.Fprint(p.w, u.Displayed[n:])
		p.printed[comp.ID] = len(u.Displayed)
	case comp.ComponentType == client.TextComponent:
		// revealed through the animator
	default:
		p.switchTo(comp)
		fmt.Fprint(p.w, Render(comp))
	}
}

// switchTo starts a new block when output moves to another component.
func (p *Printer) switchTo(comp domain.Component) {
	if p.last == comp.ID {
		return
	}
	if p.last != "" {
		fmt.Fprintln(p.w)
	}
	if chrome := Chrome(comp); chrome != "" {
		fmt.Fprintln(p.w, chrome)
	}
	p.last = comp.ID
}

// Render draws one component with its bound renderer, or a plain fallback.
func Render(comp domain.Component) string {
	if comp.Bound() {
		out, err := comp.Renderer(comp.Props)
		if err == nil {
			return ensureNewline(out)
		}
	}
	return fmt.Sprintf("[%s] %v\n", comp.ComponentType, comp.Props)
}

// RenderView draws the focus-aware view: only the focused component while
// focused, otherwise every turn with a marker on expandable slots.
func RenderView(w io.Writer, v focus.View) {
	if v.HistoryHidden && v.Focused != nil {
		fmt.Fprintf(w, "── focus: %s (/close to return) ──\n", v.Focused.ID)
		fmt.Fprint(w, Render(*v.Focused))
		return
	}
	for _, turn := range v.Turns {
		for _, slot := range turn.Slots {
			if chrome := Chrome(slot.Component); chrome != "" {
				fmt.Fprintln(w, chrome)
			}
			fmt.Fprint(w, Render(slot.Component))
			if slot.Expandable {
				fmt.Fprintf(w, "  ↳ /focus %s\n", slot.Component.ID)
			}
		}
	}
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
