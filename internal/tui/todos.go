package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/reportory/internal/store"
)

var todoPriorities = []store.Priority{store.PriorityHigh, store.PriorityMedium, store.PriorityLow}

type todosModel struct {
	deps   *Deps
	width  int
	height int

	todos      []store.Todo
	categories []store.Category
	cursor     int

	formActive bool
	form       *huh.Form
	editing    *store.Todo // nil while creating

	// Form field pointers (survive value copies)
	formTitle    *string
	formPriority *string
	formCategory *string
	formDue      *string
	formEstimate *string
}

func newTodosModel(d *Deps) todosModel {
	title, prio, cat, due, est := "", string(store.PriorityMedium), "", "", ""
	return todosModel{
		deps:         d,
		formTitle:    &title,
		formPriority: &prio,
		formCategory: &cat,
		formDue:      &due,
		formEstimate: &est,
	}
}

func (m *todosModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type todosDataMsg struct {
	todos      []store.Todo
	categories []store.Category
	err        error
}

func (m todosModel) refresh() tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		todos, err := d.Todos.List(ctx())
		if err != nil {
			return todosDataMsg{err: err}
		}
		cats, err := d.Categories.List(ctx())
		return todosDataMsg{todos: todos, categories: cats, err: err}
	}
}

func (m todosModel) selected() (store.Todo, bool) {
	if m.cursor >= len(m.todos) {
		return store.Todo{}, false
	}
	return m.todos[m.cursor], true
}

func (m todosModel) toggle(id string) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		_, out, err := d.Todos.ToggleComplete(ctx(), id)
		return d.outcome(viewTodos, out, err)
	}
}

func (m todosModel) remove(id string) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		out, err := d.Todos.Delete(ctx(), id)
		return d.outcome(viewTodos, out, err)
	}
}

func (m todosModel) save(t store.Todo, create bool) tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		var out store.Outcome
		var err error
		if create {
			out, err = d.Todos.Create(ctx(), t)
		} else {
			out, err = d.Todos.Update(ctx(), t)
		}
		return d.outcome(viewTodos, out, err)
	}
}

func (m todosModel) update(msg tea.Msg) (todosModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case todosDataMsg:
		if msg.err != nil {
			return m, func() tea.Msg { return m.deps.failure(msg.err) }
		}
		m.todos = msg.todos
		m.categories = msg.categories
		m.cursor = clampCursor(m.cursor, len(m.todos))
		return m, nil

	case tea.KeyMsg:
		return m.updateList(msg)
	}
	return m, nil
}

func (m todosModel) updateList(msg tea.KeyMsg) (todosModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.todos)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Toggle):
		if t, ok := m.selected(); ok {
			return m, m.toggle(t.ID)
		}
	case key.Matches(msg, keys.Delete):
		if t, ok := m.selected(); ok {
			return m, m.remove(t.ID)
		}
	case key.Matches(msg, keys.New):
		return m.showForm(nil)
	case key.Matches(msg, keys.Edit):
		if t, ok := m.selected(); ok {
			return m.showForm(&t)
		}
	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()
	}
	return m, nil
}

func (m todosModel) showForm(t *store.Todo) (todosModel, tea.Cmd) {
	m.editing = t
	*m.formTitle, *m.formPriority, *m.formCategory, *m.formDue, *m.formEstimate =
		"", string(store.PriorityMedium), "", "", ""
	if t != nil {
		*m.formTitle = t.Title
		*m.formPriority = string(t.Priority)
		*m.formDue = t.DueDate
		if t.Category != nil {
			*m.formCategory = t.Category.ID
		}
		if t.EstimatedTime != nil {
			*m.formEstimate = *t.EstimatedTime
		}
	}

	prioOptions := make([]huh.Option[string], len(todoPriorities))
	for i, p := range todoPriorities {
		prioOptions[i] = huh.NewOption(string(p), string(p))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle).Validate(required("title")),
			huh.NewSelect[string]().Title("Priority").Options(prioOptions...).Value(m.formPriority),
			huh.NewSelect[string]().Title("Category").Options(categoryOptions(m.categories)...).Value(m.formCategory),
			huh.NewInput().Title("Due date (YYYY-MM-DD, optional)").Value(m.formDue),
			huh.NewInput().Title("Estimate in minutes (optional)").Value(m.formEstimate),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

// formTodo builds the record the completed form describes.
func (m todosModel) formTodo() store.Todo {
	var t store.Todo
	if m.editing != nil {
		t = *m.editing
	} else {
		t = store.Todo{
			ID:        m.deps.newID(),
			CreatedAt: store.ISOTimestamp(m.deps.now()),
		}
	}
	t.Title = strings.TrimSpace(*m.formTitle)
	t.Priority = store.Priority(*m.formPriority)
	t.Category = findCategory(m.categories, *m.formCategory)
	t.DueDate = strings.TrimSpace(*m.formDue)
	t.EstimatedTime = nil
	if est := strings.TrimSpace(*m.formEstimate); est != "" {
		t.EstimatedTime = &est
	}
	return t
}

func (m todosModel) updateForm(msg tea.Msg) (todosModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		create := m.editing == nil
		t := m.formTodo()
		m.editing = nil
		return m, m.save(t, create)
	}
	return m, cmd
}

func (m todosModel) view() string {
	w := m.width - 4
	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Todo")
		if m.editing != nil {
			title = titleStyle.Render("Edit Todo")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Todos")
	if len(m.todos) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No todos yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	done := 0
	for _, t := range m.todos {
		if t.IsCompleted {
			done++
		}
	}

	var rows []string
	rows = append(rows, title+mutedStyle.Render(fmt.Sprintf("  %d/%d done", done, len(m.todos))))
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-6s  %-32s %-14s %s", "", "Prio", "Title", "Category", "Due")))

	for i, t := range m.todos {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		check := "[ ]"
		if t.IsCompleted {
			check = "[x]"
			style = doneItemStyle
		}
		line := fmt.Sprintf("%s%s ", cursor, check) + priorityBadge(t.Priority) + "  " +
			style.Render(fmt.Sprintf("%-32s", truncate(t.Title, 32))) + " " +
			colorDot(t.Category) + mutedStyle.Render(fmt.Sprintf(" %-12s %s", truncate(categoryLabel(t.Category), 12), t.DueDate))
		rows = append(rows, line)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  space: done/undo  n: new  e: edit  d: delete  r: reload"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func categoryOptions(cats []store.Category) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("(none)", "")}
	for _, c := range cats {
		opts = append(opts, huh.NewOption(colorDot(&c)+" "+c.Name, c.ID))
	}
	return opts
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
