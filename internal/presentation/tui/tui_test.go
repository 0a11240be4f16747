package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/surface/pkg/client"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/focus"
	"github.com/aretw0/surface/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Pickers(t *testing.T) {
	reg := registry.NewRegistry()
	Register(reg, DefaultWidth)

	// 1. List picker decoded from wire-shaped props
	out, err := reg.Render("list-picker", map[string]any{
		"title": "Pick one",
		"elements": []any{
			map[string]any{"title": "Alpha", "subtitle": "first"},
			map[string]any{"title": "Beta"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Pick one")
	assert.Contains(t, out, "1. Alpha")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "2. Beta")

	// 2. Time picker formats RFC3339 slots
	out, err = reg.Render("time-picker", map[string]any{
		"title":     "When?",
		"timeslots": []any{map[string]any{"date": "2026-03-02T15:00:00Z", "duration": float64(1800)}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "When?")
	assert.Contains(t, out, "Mon Mar 2 15:00 (30 min)")
}

func TestRegister_Text(t *testing.T) {
	reg := registry.NewRegistry()
	Register(reg, DefaultWidth)

	out, err := reg.Render("text", map[string]any{"content": "hello **world**"})
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "world")
}

func TestPrinter_RevealsDeltas(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	text := domain.Component{ID: "t1", ComponentType: client.TextComponent}

	// 1. Mount of a text component prints nothing
	p.Handle(client.Update{Kind: client.UpdateMounted, Component: text})
	assert.Empty(t, buf.String())

	// 2. Each reveal prints only the new suffix
	p.Handle(client.Update{Kind: client.UpdateRevealed, Component: text, Displayed: "Hel"})
	p.Handle(client.Update{Kind: client.UpdateRevealed, Component: text, Displayed: "Hello"})
	p.Handle(client.Update{Kind: client.UpdateRevealed, Component: text, Displayed: "Hello"})
	assert.Equal(t, "Hello", buf.String())

	// 3. Switching component starts a new block with chrome
	picker := domain.Component{
		ID:            "p1",
		ComponentType: "list-picker",
		Props:         map[string]any{"title": "x"},
		Metadata:      map[string]any{domain.MetaOrigin: domain.OriginExternal, domain.MetaAgentName: "Ana"},
	}
	p.Handle(client.Update{Kind: client.UpdateMounted, Component: picker})
	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "Hello", lines[0])
	assert.Contains(t, lines[1], "Ana")
	assert.Contains(t, lines[2], "[list-picker]")
}

func TestRenderView_Focused(t *testing.T) {
	var buf bytes.Buffer
	comp := domain.Component{ID: "p1", ComponentType: "list-picker", Props: map[string]any{}}

	RenderView(&buf, focus.View{HistoryHidden: true, Focused: &comp})
	assert.Contains(t, buf.String(), "focus: p1")
	assert.Contains(t, buf.String(), "[list-picker]")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "___")
}
