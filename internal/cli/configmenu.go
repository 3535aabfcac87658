package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mfateev/yada-go/internal/config"
)

// configField is one editable setting.
type configField struct {
	name   string
	secret bool
	get    func(*config.Config) string
	set    func(*config.Config, string)
}

func (f configField) Title() string       { return f.name }
func (f configField) Description() string { return "" }
func (f configField) FilterValue() string { return f.name }

var configFields = []configField{
	{
		name:   "API Key",
		secret: true,
		get:    func(c *config.Config) string { return c.APIKey },
		set:    func(c *config.Config, v string) { c.APIKey = v },
	},
	{
		name: "LLM Model Name",
		get:  func(c *config.Config) string { return c.LLMModelName },
		set:  func(c *config.Config, v string) { c.LLMModelName = v },
	},
	{
		name: "Custom Tools Directory",
		get:  func(c *config.Config) string { return c.CustomToolsDir },
		set:  func(c *config.Config, v string) { c.CustomToolsDir = v },
	},
}

var (
	menuStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	menuErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	menuHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// configModel is the bubbletea model of the --config editor.
type configModel struct {
	cfg  *config.Config
	save func(*config.Config) error

	list    list.Model
	input   textinput.Model
	editing *configField

	status string
	err    error
}

func newConfigModel(cfg *config.Config, save func(*config.Config) error) configModel {
	items := make([]list.Item, len(configFields))
	for i, f := range configFields {
		items[i] = f
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	l := list.New(items, delegate, 60, 12)
	l.Title = "Select the configuration to update"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	input := textinput.New()
	input.CharLimit = 512
	input.Width = 60

	return configModel{cfg: cfg, save: save, list: l, input: input}
}

func (m configModel) Init() tea.Cmd {
	return nil
}

func (m configModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.editing != nil {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter":
			field, ok := m.list.SelectedItem().(configField)
			if !ok {
				return m, nil
			}
			m.editing = &field
			m.status = ""
			m.err = nil
			m.input.SetValue(field.get(m.cfg))
			m.input.Placeholder = field.name
			if field.secret {
				m.input.EchoMode = textinput.EchoPassword
			} else {
				m.input.EchoMode = textinput.EchoNormal
			}
			m.input.CursorEnd()
			return m, m.input.Focus()
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m configModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = nil
		m.input.Blur()
		return m, nil
	case "enter":
		field := *m.editing
		field.set(m.cfg, strings.TrimSpace(m.input.Value()))
		m.editing = nil
		m.input.Blur()
		if err := m.save(m.cfg); err != nil {
			m.err = err
			return m, nil
		}
		m.status = fmt.Sprintf("%s updated", field.name)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m configModel) View() string {
	var b strings.Builder
	if m.editing != nil {
		fmt.Fprintf(&b, "%s:\n\n%s\n\n", m.editing.name, m.input.View())
		b.WriteString(menuHelpStyle.Render("enter: save • esc: cancel"))
		return b.String()
	}
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(menuErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(menuStatusStyle.Render(m.status) + "\n")
	}
	b.WriteString(menuHelpStyle.Render("enter: edit • q: quit"))
	return b.String()
}

// RunConfigEditor shows the interactive settings editor. Every confirmed
// edit is passed to save.
func RunConfigEditor(cfg *config.Config, save func(*config.Config) error) error {
	p := tea.NewProgram(newConfigModel(cfg, save))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("config editor: %w", err)
	}
	return nil
}
