package tui

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/reportory/internal/backup"
)

var exportFormats = []string{"Backup (JSON)", "Todos (CSV)", "Reports (CSV)"}

// App is the root Bubble Tea model.
type App struct {
	deps   *Deps
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	todos      todosModel
	reports    reportsModel
	categories categoriesModel
	settings   settingsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(d *Deps) App {
	h := help.New()
	h.ShowAll = false

	return App{
		deps:       d,
		activeView: viewTodos,
		todos:      newTodosModel(d),
		reports:    newReportsModel(d),
		categories: newCategoriesModel(d),
		settings:   newSettingsModel(d),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.todos.refresh(), a.settings.refresh())
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.todos.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.categories.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewTodos)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewReports)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewCategories)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case todosDataMsg:
		a.todos, _ = a.todos.update(msg)
		if msg.err != nil {
			a.setStatus(a.deps.failure(msg.err))
		}
		return a, nil

	case reportsDataMsg:
		a.reports, _ = a.reports.update(msg)
		if msg.err != nil {
			a.setStatus(a.deps.failure(msg.err))
		}
		return a, nil

	case categoriesDataMsg:
		a.categories, _ = a.categories.update(msg)
		if msg.err != nil {
			a.setStatus(a.deps.failure(msg.err))
		}
		return a, nil

	case settingsDataMsg:
		a.settings, _ = a.settings.update(msg)
		if msg.err == nil {
			applyPrimary(msg.settings.PrimaryColor)
		}
		return a, nil

	case settingsSavedMsg:
		a.settings.current = msg.settings
		applyPrimary(msg.settings.PrimaryColor)
		a.setStatus(msg.status)
		return a, nil

	case actionDoneMsg:
		a.setStatus(msg.status)
		return a, a.refreshView(msg.view)

	case statusMsg:
		a.setStatus(msg)
		return a, nil

	case exportDoneMsg:
		a.setStatus(statusMsg{text: a.deps.Catalog.Message(a.deps.Lang, "exportDone") + " " + msg.path})
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(s statusMsg) {
	a.status = s.text
	a.statusErr = s.isError
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshView(v)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTodos:
		a.todos, cmd = a.todos.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewCategories:
		a.categories, cmd = a.categories.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTodos:
		return a.todos.formActive
	case viewReports:
		return a.reports.formActive
	case viewCategories:
		return a.categories.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshView(v viewState) tea.Cmd {
	switch v {
	case viewTodos:
		return a.todos.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewCategories:
		return a.categories.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTodos:
		content = a.todos.view()
	case viewReports:
		content = a.reports.view()
	case viewCategories:
		content = a.categories.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("reportory")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	left := footerStyle.Render(a.help.View(keys))

	right := ""
	if a.status != "" {
		style := successStyle
		if a.statusErr {
			style = errorStyle
		}
		right = style.Render(" " + a.status)
	}

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export"), "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	d := a.deps
	return func() tea.Msg {
		dir := d.ExportDir
		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		day := d.now().Format("2006-01-02")

		var (
			path string
			buf  bytes.Buffer
		)
		switch format {
		case 0:
			data, err := d.Backup.Export(ctx())
			if err != nil {
				return statusMsg{text: d.Catalog.Message(d.Lang, "exportFailed"), isError: true}
			}
			buf.Write(data)
			path = filepath.Join(dir, backup.ExportFileName(d.now()))
		case 1:
			todos, err := d.Todos.List(ctx())
			if err == nil {
				err = backup.WriteTodosCSV(&buf, todos)
			}
			if err != nil {
				return statusMsg{text: d.Catalog.Message(d.Lang, "exportFailed"), isError: true}
			}
			path = filepath.Join(dir, fmt.Sprintf("todos-%s.csv", day))
		default:
			reports, err := d.Reports.List(ctx())
			if err == nil {
				err = backup.WriteReportsCSV(&buf, reports)
			}
			if err != nil {
				return statusMsg{text: d.Catalog.Message(d.Lang, "exportFailed"), isError: true}
			}
			path = filepath.Join(dir, fmt.Sprintf("reports-%s.csv", day))
		}

		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return statusMsg{text: d.Catalog.Message(d.Lang, "exportFailed"), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

// Run starts the browser full screen and blocks until the user quits.
func Run(d *Deps) error {
	p := tea.NewProgram(NewApp(d), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
