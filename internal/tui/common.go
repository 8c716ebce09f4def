package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/sadopc/reportory/internal/backup"
	"github.com/sadopc/reportory/internal/messages"
	"github.com/sadopc/reportory/internal/settings"
	"github.com/sadopc/reportory/internal/store"
)

// Deps is everything the browser reads from and writes to.
type Deps struct {
	Todos      *store.TodoRepo
	Reports    *store.ReportRepo
	Categories *store.CategoryRepo
	Settings   *settings.Service
	Backup     *backup.Service
	Catalog    *messages.Catalog
	Lang       string
	// ExportDir receives files written with the export key.
	ExportDir string

	NewID func() string
	Now   func() time.Time
}

func (d *Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.Must(uuid.NewV7()).String()
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// viewState represents the currently active view.
type viewState int

const (
	viewTodos viewState = iota
	viewReports
	viewCategories
	viewSettings
)

var viewNames = []string{"Todos", "Reports", "Categories", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// actionDoneMsg reports a write and asks the app to reload the view.
type actionDoneMsg struct {
	view   viewState
	status statusMsg
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func (d *Deps) outcome(view viewState, out store.Outcome, err error) actionDoneMsg {
	if err != nil {
		return actionDoneMsg{view: view, status: d.failure(err)}
	}
	return actionDoneMsg{view: view, status: statusMsg{text: d.Catalog.Outcome(d.Lang, out)}}
}

func (d *Deps) failure(err error) statusMsg {
	return statusMsg{text: d.Catalog.Error(d.Lang, err), isError: true}
}

func ctx() context.Context { return context.Background() }

func colorDot(c *store.Category) string {
	if c == nil {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
}

func categoryLabel(c *store.Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}

func priorityBadge(p store.Priority) string {
	style, ok := priorityStyles[string(p)]
	if !ok {
		return string(p)
	}
	return style.Render(fmt.Sprintf("%-6s", p))
}

// findCategory returns a copy of the category with id, or nil.
func findCategory(cats []store.Category, id string) *store.Category {
	for _, c := range cats {
		if c.ID == id {
			snap := c
			return &snap
		}
	}
	return nil
}

func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	return max(0, cursor)
}
