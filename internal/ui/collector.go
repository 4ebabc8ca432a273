// Package ui collects variable values in the terminal and renders
// template previews.
package ui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/validation"
)

type fieldKind int

const (
	kindLine fieldKind = iota
	kindArea
	kindChoice
)

const defaultWidth = 60

// choiceItem is one option of a select variable.
type choiceItem string

func (c choiceItem) FilterValue() string { return string(c) }
func (c choiceItem) Title() string       { return string(c) }
func (c choiceItem) Description() string { return "" }

// fieldModel asks for a single variable.
type fieldModel struct {
	req     resolver.Request
	kind    fieldKind
	input   textinput.Model
	area    textarea.Model
	choices list.Model
	problem string
	outcome resolver.Outcome
	done    bool
}

func newFieldModel(req resolver.Request) fieldModel {
	m := fieldModel{req: req, problem: req.Problem}

	switch req.Type {
	case models.VariableMultiline:
		m.kind = kindArea
		ta := textarea.New()
		ta.Placeholder = req.Placeholder
		ta.ShowLineNumbers = false
		ta.SetWidth(defaultWidth)
		ta.SetHeight(6)
		ta.SetValue(req.Default)
		ta.Focus()
		m.area = ta

	case models.VariableSelect:
		m.kind = kindChoice
		items := make([]list.Item, len(req.Options))
		for i, opt := range req.Options {
			items[i] = choiceItem(opt)
		}
		delegate := list.NewDefaultDelegate()
		delegate.ShowDescription = false
		delegate.SetSpacing(0)
		delegate.Styles.SelectedTitle = StyleSelected.
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorAccent).
			Padding(0, 0, 0, 1)
		l := list.New(items, delegate, defaultWidth, min(len(items), 10)+4)
		l.Title = req.Name
		l.Styles.Title = StyleTitle
		l.SetShowStatusBar(false)
		l.SetShowHelp(false)
		l.SetFilteringEnabled(false)
		l.DisableQuitKeybindings()
		if i := slices.Index(req.Options, req.Default); i >= 0 {
			l.Select(i)
		}
		m.choices = l

	default:
		m.kind = kindLine
		ti := textinput.New()
		ti.Placeholder = req.Placeholder
		if ti.Placeholder == "" && req.Type == models.VariableDate {
			ti.Placeholder = "YYYY-MM-DD"
		}
		ti.Width = defaultWidth
		ti.SetValue(req.Default)
		ti.Focus()
		m.input = ti
	}

	return m
}

func (m fieldModel) Init() tea.Cmd {
	switch m.kind {
	case kindArea:
		return textarea.Blink
	case kindLine:
		return textinput.Blink
	default:
		return nil
	}
}

func (m fieldModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := max(msg.Width-4, 20)
		switch m.kind {
		case kindArea:
			m.area.SetWidth(width)
		case kindChoice:
			m.choices.SetWidth(width)
		default:
			m.input.Width = width
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.outcome = resolver.Abort()
			m.done = true
			return m, tea.Quit
		case "esc":
			m.outcome = resolver.Skip()
			m.done = true
			return m, tea.Quit
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.kind != kindArea {
				return m.submit()
			}
		}
	}

	var cmd tea.Cmd
	switch m.kind {
	case kindArea:
		m.area, cmd = m.area.Update(msg)
	case kindChoice:
		m.choices, cmd = m.choices.Update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m fieldModel) value() string {
	switch m.kind {
	case kindArea:
		return m.area.Value()
	case kindChoice:
		if item, ok := m.choices.SelectedItem().(choiceItem); ok {
			return string(item)
		}
		return ""
	default:
		return strings.TrimSpace(m.input.Value())
	}
}

func (m fieldModel) submit() (tea.Model, tea.Cmd) {
	value := m.value()
	if err := validation.ValidateInput(m.req.Type, value); err != nil {
		m.problem = err.Error()
		return m, nil
	}
	m.outcome = resolver.Value(value)
	m.done = true
	return m, tea.Quit
}

func (m fieldModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	label := StyleFormLabel.Render(m.req.Name)
	if m.req.Required {
		label += StyleRequired.Render(" *")
	}
	b.WriteString(label + StyleTextMuted.Render(" ("+string(m.req.Type)+")"))
	b.WriteString("\n")
	if m.req.Description != "" {
		b.WriteString(StyleFormHelp.Render(m.req.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.kind {
	case kindArea:
		b.WriteString(m.area.View())
	case kindChoice:
		b.WriteString(m.choices.View())
	default:
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")

	if m.problem != "" {
		b.WriteString(StyleError.Render(m.problem))
		b.WriteString("\n")
	}

	submit := "enter: accept"
	if m.kind == kindArea {
		submit = "ctrl+s: accept"
	}
	b.WriteString(CreateHelp(submit, "esc: use default", "ctrl+c: cancel all"))

	return StyleCard.Render(b.String())
}

// TerminalCollector asks for each value with a small bubbletea program.
type TerminalCollector struct {
	In  io.Reader
	Out io.Writer
}

// Collect implements resolver.Collector.
func (c *TerminalCollector) Collect(ctx context.Context, req resolver.Request) (resolver.Outcome, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.In != nil {
		opts = append(opts, tea.WithInput(c.In))
	}
	if c.Out != nil {
		opts = append(opts, tea.WithOutput(c.Out))
	}

	final, err := tea.NewProgram(newFieldModel(req), opts...).Run()
	if err != nil {
		return resolver.Outcome{}, fmt.Errorf("input for %s: %w", req.Name, err)
	}

	m, ok := final.(fieldModel)
	if !ok || !m.done {
		return resolver.Skip(), nil
	}
	return m.outcome, nil
}
