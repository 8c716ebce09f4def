package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/reportory/internal/store"
)

const (
	iconDone  = "✓"
	iconOpen  = "○"
	iconError = "✗"
	iconWarn  = "!"
)

var (
	cPrimary = lipgloss.Color("#14B8A6")
	cGood    = lipgloss.Color("42")
	cWarn    = lipgloss.Color("214")
	cBad     = lipgloss.Color("196")
	cMuted   = lipgloss.Color("244")
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	styleHead  = lipgloss.NewStyle().Bold(true).Foreground(cMuted)
	styleMuted = lipgloss.NewStyle().Foreground(cMuted)
	styleGood  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	styleWarn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	styleBad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	styleDone  = lipgloss.NewStyle().Foreground(cMuted).Strikethrough(true)

	priorityStyle = map[store.Priority]lipgloss.Style{
		store.PriorityHigh:   lipgloss.NewStyle().Bold(true).Foreground(cBad),
		store.PriorityMedium: lipgloss.NewStyle().Foreground(cWarn),
		store.PriorityLow:    lipgloss.NewStyle().Foreground(cMuted),
	}
)

// header styles each cell on its own. Rendering a tab-joined line would
// expand the tabs to spaces and hide the columns from tabwriter.
func header(cells ...string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = styleHead.Render(c)
	}
	return strings.Join(out, "\t")
}

func dot(c *store.Category) string {
	if c == nil || c.Color == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
}

func renderPriority(p store.Priority) string {
	s, ok := priorityStyle[p]
	if !ok {
		return string(p)
	}
	return s.Render(string(p))
}
