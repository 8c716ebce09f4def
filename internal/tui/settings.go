package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/reportory/internal/settings"
)

type settingsModel struct {
	deps   *Deps
	width  int
	height int

	current    settings.Settings
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	theme        *string
	primaryColor *string
}

func newSettingsModel(d *Deps) settingsModel {
	theme, color := "", ""
	return settingsModel{
		deps:         d,
		current:      settings.Default(),
		theme:        &theme,
		primaryColor: &color,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings settings.Settings
	err      error
}

type settingsSavedMsg struct {
	settings settings.Settings
	status   statusMsg
}

func (s settingsModel) refresh() tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		v, err := d.Settings.Load()
		return settingsDataMsg{settings: v, err: err}
	}
}

func (s settingsModel) save(v settings.Settings) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		if err := d.Settings.Save(v); err != nil {
			return d.failure(err)
		}
		return settingsSavedMsg{settings: v, status: statusMsg{text: d.Catalog.Message(d.Lang, "settingsSaved")}}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		if msg.err != nil {
			return s, func() tea.Msg { return s.deps.failure(msg.err) }
		}
		s.current = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func validColor(v string) error {
	return settings.Settings{Theme: settings.ThemeLight, PrimaryColor: strings.TrimSpace(v)}.Validate()
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.theme = string(s.current.Theme)
	*s.primaryColor = s.current.PrimaryColor

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Theme").
				Options(
					huh.NewOption("Light", string(settings.ThemeLight)),
					huh.NewOption("Dark", string(settings.ThemeDark)),
					huh.NewOption("Follow system", string(settings.ThemeAuto)),
				).Value(s.theme),
			huh.NewInput().Title("Primary color (#RRGGBB)").Value(s.primaryColor).Validate(validColor),
		).Title("Appearance"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		s.formActive = false
		s.form = nil
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.save(settings.Settings{
			Theme:        settings.Theme(*s.theme),
			PrimaryColor: strings.TrimSpace(*s.primaryColor),
		})
	}
	return s, cmd
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.current.PrimaryColor)).Render("■")
	label := lipgloss.NewStyle().Width(16)
	rows := []string{
		title,
		"",
		fmt.Sprintf("  %s %s", label.Render("Theme"), highlightStyle.Render(string(s.current.Theme))),
		fmt.Sprintf("  %s %s %s", label.Render("Primary color"), swatch, highlightStyle.Render(s.current.PrimaryColor)),
		"",
		mutedStyle.Render("Press enter to edit settings"),
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
