package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/reportory/internal/store"
)

var categoryColors = []string{"#14B8A6", "#6C63FF", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

type categoriesModel struct {
	deps   *Deps
	width  int
	height int

	categories []store.Category
	cursor     int

	formActive bool
	form       *huh.Form
	editing    *store.Category

	formName  *string
	formColor *string
}

func newCategoriesModel(d *Deps) categoriesModel {
	name, color := "", categoryColors[0]
	return categoriesModel{deps: d, formName: &name, formColor: &color}
}

func (c *categoriesModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type categoriesDataMsg struct {
	categories []store.Category
	err        error
}

func (c categoriesModel) refresh() tea.Cmd {
	d := c.deps
	return func() tea.Msg {
		cats, err := d.Categories.List(ctx())
		return categoriesDataMsg{categories: cats, err: err}
	}
}

func (c categoriesModel) remove(id string) tea.Cmd {
	d := c.deps
	return func() tea.Msg {
		out, err := d.Categories.Delete(ctx(), id)
		return d.outcome(viewCategories, out, err)
	}
}

func (c categoriesModel) save(cat store.Category, create bool) tea.Cmd {
	d := c.deps
	return func() tea.Msg {
		var out store.Outcome
		var err error
		if create {
			out, err = d.Categories.Create(ctx(), cat)
		} else {
			out, err = d.Categories.Update(ctx(), cat)
		}
		return d.outcome(viewCategories, out, err)
	}
}

func (c categoriesModel) update(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case categoriesDataMsg:
		if msg.err != nil {
			return c, func() tea.Msg { return c.deps.failure(msg.err) }
		}
		c.categories = msg.categories
		c.cursor = clampCursor(c.cursor, len(c.categories))
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.categories)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.New):
			return c.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if c.cursor < len(c.categories) {
				cat := c.categories[c.cursor]
				return c.showForm(&cat)
			}
		case key.Matches(msg, keys.Delete):
			if c.cursor < len(c.categories) {
				return c, c.remove(c.categories[c.cursor].ID)
			}
		case key.Matches(msg, keys.Refresh):
			return c, c.refresh()
		}
	}
	return c, nil
}

func (c categoriesModel) showForm(cat *store.Category) (categoriesModel, tea.Cmd) {
	c.editing = cat
	*c.formName, *c.formColor = "", categoryColors[0]
	if cat != nil {
		*c.formName = cat.Name
		*c.formColor = cat.Color
	}

	colors := categoryColors
	if cat != nil && !contains(colors, cat.Color) && cat.Color != "" {
		colors = append([]string{cat.Color}, colors...)
	}
	colorOptions := make([]huh.Option[string], len(colors))
	for i, col := range colors {
		colorOptions[i] = huh.NewOption(lipgloss.NewStyle().Foreground(lipgloss.Color(col)).Render("●")+" "+col, col)
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Category Name").Value(c.formName).Validate(required("name")),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(c.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c categoriesModel) updateForm(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		c.formActive = false
		c.form = nil
		return c, nil
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		create := c.editing == nil
		cat := store.Category{ID: c.deps.newID()}
		if !create {
			cat = *c.editing
		}
		cat.Name = strings.TrimSpace(*c.formName)
		cat.Color = *c.formColor
		c.editing = nil
		return c, c.save(cat, create)
	}
	return c, cmd
}

func (c categoriesModel) view() string {
	w := c.width - 4
	if c.formActive && c.form != nil {
		title := titleStyle.Render("New Category")
		if c.editing != nil {
			title = titleStyle.Render("Edit Category")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View()))
	}

	title := titleStyle.Render("Categories")
	if len(c.categories) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No categories yet. Press n to create one."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %s", "", "Name", "Color")))
	for i, cat := range c.categories {
		cursor := "  "
		style := normalItemStyle
		if i == c.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor)+colorDot(&cat)+style.Render(fmt.Sprintf(" %-24s %s", cat.Name, cat.Color)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  Edits apply to new assignments only."))
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  r: reload"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
