package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains("Hi {{name}}!", "name"))
	assert.False(t, Contains("Hi {{Name}}!", "name"), "matching is case-sensitive")
	assert.False(t, Contains("Hi {{ name }}!", "name"))
	assert.False(t, Contains("Hi {name}!", "name"))
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name    string
		content string
		token   string
		value   string
		want    string
	}{
		{"single", "Hi {{name}}", "name", "Bob", "Hi Bob"},
		{"all occurrences", "{{a}}-{{a}}-{{a}}", "a", "x", "x-x-x"},
		{"empty value removes token", "[{{a}}]", "a", "", "[]"},
		{"other tokens untouched", "{{a}} {{b}}", "a", "1", "1 {{b}}"},
		{"absent token is a no-op", "plain text", "a", "1", "plain text"},
		{"value containing braces is literal", "{{a}}", "a", "{{b}}", "{{b}}"},
		{"special characters in name", "{{a.b*}}", "a.b*", "ok", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Replace(tt.content, tt.token, tt.value))
		})
	}
}

func TestReplaceIsNotRecursive(t *testing.T) {
	out := Replace("{{a}}{{b}}", "a", "{{b}}")
	assert.Equal(t, "{{b}}{{b}}", out)
	assert.Equal(t, 2, Count(out, "b"))
}

func TestNames(t *testing.T) {
	names := Names("{{selection}} and {{name}} then {{selection}} and {{}} {x}")
	assert.Equal(t, []string{"selection", "name", ""}, names)
	assert.Nil(t, Names("no tokens here"))
}
