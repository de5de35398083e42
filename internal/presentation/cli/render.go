// Package cli renders run states and script listings for terminal output.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/aretw0/scriptdeck/internal/discovery"
	"github.com/aretw0/scriptdeck/pkg/domain"
)

var output = termenv.DefaultOutput()

// StatusGlyph returns a colored one-character marker for a run state.
func StatusGlyph(state domain.RunState) string {
	p := output.ColorProfile()
	switch state {
	case domain.StateRunning:
		return output.String("●").Foreground(p.Color("3")).String()
	case domain.StateSuccess:
		return output.String("✔").Foreground(p.Color("2")).String()
	case domain.StateFailed:
		return output.String("✘").Foreground(p.Color("1")).String()
	default:
		return output.String("○").Faint().String()
	}
}

// StatusLine formats one script with its state for the watch output.
func StatusLine(identity domain.ScriptIdentity, state domain.RunState) string {
	return fmt.Sprintf("%s %s  %s", StatusGlyph(state), state, identity)
}

// RenderGroups formats the grouped script listing.
func RenderGroups(groups []discovery.Group) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(output.String(g.Dir).Bold().String())
		b.WriteString("\n")
		for _, s := range g.Scripts {
			if s.Params > 0 {
				fmt.Fprintf(&b, "  %s  (%d params)\n", s.Name, s.Params)
			} else {
				fmt.Fprintf(&b, "  %s\n", s.Name)
			}
		}
	}
	return b.String()
}

// RenderHistory formats recent settled runs, newest first.
func RenderHistory(entries []domain.HistoryEntry) string {
	if len(entries) == 0 {
		return "no recorded runs\n"
	}
	var b strings.Builder
	for _, e := range entries {
		glyph := StatusGlyph(e.Outcome.State())
		fmt.Fprintf(&b, "%s %s  %s  (%s)\n",
			glyph, e.EndedAt.Format("2006-01-02 15:04:05"), e.Identity,
			e.EndedAt.Sub(e.StartedAt).Round(10*time.Millisecond))
	}
	return b.String()
}
