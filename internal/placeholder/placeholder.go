// Package placeholder finds and replaces {{name}} tokens in template content.
//
// A token is the literal "{{", a run of characters other than '}', and the
// literal "}}". Matching is case-sensitive, global and non-overlapping. There
// is no escape sequence, so a literal "{{name}}" cannot be emitted verbatim.
package placeholder

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// Token returns the placeholder text for name.
func Token(name string) string {
	return "{{" + name + "}}"
}

// Contains reports whether content holds at least one {{name}} token.
func Contains(content, name string) bool {
	return strings.Contains(content, Token(name))
}

// Count returns the number of non-overlapping {{name}} tokens in content.
func Count(content, name string) int {
	return strings.Count(content, Token(name))
}

// Replace substitutes every {{name}} token in content with value. An empty
// value removes the tokens.
func Replace(content, name, value string) string {
	return strings.ReplaceAll(content, Token(name), value)
}

// Names returns the distinct token names in content in order of first
// appearance.
func Names(content string) []string {
	matches := tokenPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}
