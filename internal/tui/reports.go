package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/reportory/internal/store"
)

type reportsModel struct {
	deps   *Deps
	width  int
	height int

	reports    []store.Report
	categories []store.Category
	cursor     int

	formActive bool
	form       *huh.Form
	editing    *store.Report

	formStart    *string
	formEnd      *string
	formContent  *string
	formCategory *string
}

func newReportsModel(d *Deps) reportsModel {
	start, end, content, cat := "", "", "", ""
	return reportsModel{
		deps:         d,
		formStart:    &start,
		formEnd:      &end,
		formContent:  &content,
		formCategory: &cat,
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	reports    []store.Report
	categories []store.Category
	err        error
}

func (r reportsModel) refresh() tea.Cmd {
	d := r.deps
	return func() tea.Msg {
		reports, err := d.Reports.List(ctx())
		if err != nil {
			return reportsDataMsg{err: err}
		}
		cats, err := d.Categories.List(ctx())
		return reportsDataMsg{reports: reports, categories: cats, err: err}
	}
}

func (r reportsModel) remove(id string) tea.Cmd {
	d := r.deps
	return func() tea.Msg {
		out, err := d.Reports.Delete(ctx(), id)
		return d.outcome(viewReports, out, err)
	}
}

func (r reportsModel) save(rep store.Report, create bool) tea.Cmd {
	d := r.deps
	return func() tea.Msg {
		var out store.Outcome
		var err error
		if create {
			out, err = d.Reports.Create(ctx(), rep)
		} else {
			out, err = d.Reports.Update(ctx(), rep)
		}
		return d.outcome(viewReports, out, err)
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	if r.formActive && r.form != nil {
		return r.updateForm(msg)
	}

	switch msg := msg.(type) {
	case reportsDataMsg:
		if msg.err != nil {
			return r, func() tea.Msg { return r.deps.failure(msg.err) }
		}
		r.reports = msg.reports
		r.categories = msg.categories
		r.cursor = clampCursor(r.cursor, len(r.reports))
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if r.cursor > 0 {
				r.cursor--
			}
		case key.Matches(msg, keys.Down):
			if r.cursor < len(r.reports)-1 {
				r.cursor++
			}
		case key.Matches(msg, keys.New):
			return r.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if r.cursor < len(r.reports) {
				rep := r.reports[r.cursor]
				return r.showForm(&rep)
			}
		case key.Matches(msg, keys.Delete):
			if r.cursor < len(r.reports) {
				return r, r.remove(r.reports[r.cursor].ID)
			}
		case key.Matches(msg, keys.Refresh):
			return r, r.refresh()
		}
	}
	return r, nil
}

func validClock(s string) error {
	if !store.ValidClock(strings.TrimSpace(s)) {
		return errors.New("use HH:MM")
	}
	return nil
}

func (r reportsModel) showForm(rep *store.Report) (reportsModel, tea.Cmd) {
	r.editing = rep
	*r.formStart, *r.formEnd, *r.formContent, *r.formCategory = "", "", "", ""
	if rep != nil {
		*r.formStart = rep.StartTime
		*r.formEnd = rep.EndTime
		*r.formContent = rep.Content
		if rep.Category != nil {
			*r.formCategory = rep.Category.ID
		}
	}

	r.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Start (HH:MM)").Value(r.formStart).Validate(validClock),
			huh.NewInput().Title("End (HH:MM)").Value(r.formEnd).Validate(validClock),
			huh.NewText().Title("What did you do?").Value(r.formContent),
			huh.NewSelect[string]().Title("Category").Options(categoryOptions(r.categories)...).Value(r.formCategory),
		),
	).WithShowHelp(true).WithShowErrors(true)

	r.formActive = true
	return r, r.form.Init()
}

func (r reportsModel) formReport() store.Report {
	var rep store.Report
	if r.editing != nil {
		rep = *r.editing
	} else {
		rep = store.Report{ID: r.deps.newID()}
	}
	rep.StartTime = strings.TrimSpace(*r.formStart)
	rep.EndTime = strings.TrimSpace(*r.formEnd)
	rep.Content = strings.TrimSpace(*r.formContent)
	rep.Category = findCategory(r.categories, *r.formCategory)
	return rep
}

func (r reportsModel) updateForm(msg tea.Msg) (reportsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		r.formActive = false
		r.form = nil
		return r, nil
	}

	form, cmd := r.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		r.form = f
	}

	if r.form.State == huh.StateCompleted {
		r.formActive = false
		create := r.editing == nil
		rep := r.formReport()
		r.editing = nil
		return r, r.save(rep, create)
	}
	return r, cmd
}

func reportMinutes(rep store.Report) int {
	start, end := store.ClockMinutes(rep.StartTime), store.ClockMinutes(rep.EndTime)
	if start < 0 || end < start {
		return 0
	}
	return end - start
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

func (r reportsModel) view() string {
	w := r.width - 4
	if r.formActive && r.form != nil {
		title := titleStyle.Render("New Report")
		if r.editing != nil {
			title = titleStyle.Render("Edit Report")
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", r.form.View()))
	}

	title := titleStyle.Render("Reports")
	if len(r.reports) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No reports yet. Press n to log one."),
		))
	}

	total := 0
	for _, rep := range r.reports {
		total += reportMinutes(rep)
	}

	var rows []string
	rows = append(rows, title+mutedStyle.Render("  "+formatMinutes(total)+" logged"))
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-13s %-8s  %-14s %s", "Time", "Length", "Category", "Content")))

	for i, rep := range r.reports {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		content := strings.ReplaceAll(rep.Content, "\n", " ")
		if rep.IsFromTodo {
			content = highlightStyle.Render("✓ ") + content
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%5s-%-5s  %-8s ", cursor, rep.StartTime, rep.EndTime, formatMinutes(reportMinutes(rep))))+
			" "+colorDot(rep.Category)+fmt.Sprintf(" %-12s ", truncate(categoryLabel(rep.Category), 12))+truncate(content, 40))
	}

	if summary := r.renderCategoryTotals(w); summary != "" {
		rows = append(rows, "", summary)
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  r: reload"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// renderCategoryTotals draws one bar per category scaled to the largest total.
func (r reportsModel) renderCategoryTotals(w int) string {
	type total struct {
		cat  *store.Category
		mins int
	}
	byName := map[string]*total{}
	var order []string
	for _, rep := range r.reports {
		name := categoryLabel(rep.Category)
		t, ok := byName[name]
		if !ok {
			t = &total{cat: rep.Category}
			byName[name] = t
			order = append(order, name)
		}
		t.mins += reportMinutes(rep)
	}
	sort.SliceStable(order, func(i, j int) bool { return byName[order[i]].mins > byName[order[j]].mins })

	peak := 0
	for _, t := range byName {
		peak = max(peak, t.mins)
	}
	if peak == 0 {
		return ""
	}

	barWidth := max(10, min(w-40, 40))
	var rows []string
	for _, name := range order {
		t := byName[name]
		label := name
		if label == "" {
			label = "-"
		}
		n := t.mins * barWidth / peak
		color := colorSubtle
		if t.cat != nil && t.cat.Color != "" {
			color = lipgloss.Color(t.cat.Color)
		}
		bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", n))
		rows = append(rows, fmt.Sprintf("  %-12s %s %s", truncate(label, 12), bar, mutedStyle.Render(formatMinutes(t.mins))))
	}
	return strings.Join(rows, "\n")
}
