package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
)

func typeText(m fieldModel, s string) fieldModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(fieldModel)
}

func press(m fieldModel, k tea.KeyType) (fieldModel, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(fieldModel), cmd
}

func TestTextFieldAcceptsInput(t *testing.T) {
	m := newFieldModel(resolver.Request{Name: "who", Type: models.VariableText})
	m = typeText(m, "world")

	m, cmd := press(m, tea.KeyEnter)
	require.True(t, m.done)
	assert.NotNil(t, cmd)
	assert.Equal(t, resolver.Value("world"), m.outcome)
	assert.Empty(t, m.View())
}

func TestDefaultIsPrefilled(t *testing.T) {
	m := newFieldModel(resolver.Request{Name: "when", Type: models.VariableDate, Default: "2024-05-01"})
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, resolver.Value("2024-05-01"), m.outcome)
}

func TestNumberFieldRejectsText(t *testing.T) {
	m := newFieldModel(resolver.Request{Name: "count", Type: models.VariableNumber})
	m = typeText(m, "lots")

	m, _ = press(m, tea.KeyEnter)
	assert.False(t, m.done)
	assert.Contains(t, m.View(), "not a number")

	m, _ = press(m, tea.KeyBackspace)
	m, _ = press(m, tea.KeyBackspace)
	m, _ = press(m, tea.KeyBackspace)
	m, _ = press(m, tea.KeyBackspace)
	m = typeText(m, "12")
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.done)
	assert.Equal(t, resolver.Value("12"), m.outcome)
}

func TestEscSkipsAndCtrlCAborts(t *testing.T) {
	m := newFieldModel(resolver.Request{Name: "a", Type: models.VariableText})
	m, _ = press(m, tea.KeyEsc)
	assert.Equal(t, resolver.Skipped, m.outcome.Kind)

	m = newFieldModel(resolver.Request{Name: "a", Type: models.VariableText})
	m, _ = press(m, tea.KeyCtrlC)
	assert.Equal(t, resolver.Aborted, m.outcome.Kind)
}

func TestMultilineUsesCtrlS(t *testing.T) {
	m := newFieldModel(resolver.Request{Name: "body", Type: models.VariableMultiline})
	m = typeText(m, "one")
	m, _ = press(m, tea.KeyEnter)
	assert.False(t, m.done, "enter inserts a newline")
	m = typeText(m, "two")

	m, _ = press(m, tea.KeyCtrlS)
	require.True(t, m.done)
	assert.Equal(t, resolver.Value("one\ntwo"), m.outcome)
}

func TestSelectPicksOption(t *testing.T) {
	m := newFieldModel(resolver.Request{
		Name:    "lang",
		Type:    models.VariableSelect,
		Options: []string{"go", "rust", "zig"},
		Default: "rust",
	})
	assert.Equal(t, "rust", m.value())

	m, _ = press(m, tea.KeyDown)
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.done)
	assert.Equal(t, resolver.Value("zig"), m.outcome)
}

func TestViewShowsRequiredAndProblem(t *testing.T) {
	m := newFieldModel(resolver.Request{
		Name:        "title",
		Type:        models.VariableText,
		Description: "Short title",
		Required:    true,
		Problem:     "previous value was rejected",
	})
	view := m.View()
	assert.Contains(t, view, "title")
	assert.Contains(t, view, "*")
	assert.Contains(t, view, "Short title")
	assert.Contains(t, view, "previous value was rejected")
}

func TestLineCollector(t *testing.T) {
	in := strings.NewReader("Alice\nfirst\nsecond\n.\n")
	var out bytes.Buffer
	c := NewLineCollector(in, &out)
	ctx := context.Background()

	got, err := c.Collect(ctx, resolver.Request{Name: "name", Type: models.VariableText, Default: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, resolver.Value("Alice"), got)
	assert.Contains(t, out.String(), "name (default Bob): ")

	got, err = c.Collect(ctx, resolver.Request{Name: "body", Type: models.VariableMultiline})
	require.NoError(t, err)
	assert.Equal(t, resolver.Value("first\nsecond"), got)

	got, err = c.Collect(ctx, resolver.Request{Name: "more", Type: models.VariableText})
	require.NoError(t, err)
	assert.Equal(t, resolver.Skipped, got.Kind, "end of input skips")
}

func TestRenderMarkdownFallsBack(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "notty")
	out := RenderMarkdown("# Title\n\nbody", 40)
	assert.Contains(t, out, "Title")
}

func TestWindowResizeOnEveryFieldKind(t *testing.T) {
	requests := []resolver.Request{
		{Name: "who", Type: models.VariableText},
		{Name: "body", Type: models.VariableMultiline},
		{Name: "pick", Type: models.VariableSelect, Options: []string{"a", "b"}},
	}

	for _, req := range requests {
		t.Run(string(req.Type), func(t *testing.T) {
			m := newFieldModel(req)
			require.NotPanics(t, func() {
				next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
				m = next.(fieldModel)
			})
			assert.False(t, m.done)
			assert.NotEmpty(t, m.View())
		})
	}
}
