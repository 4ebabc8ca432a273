package models

import (
	"strconv"
	"strings"
	"time"
)

// Template is a stored reusable text body with declared substitution points
type Template struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Content     string     `json:"content" yaml:"content"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string     `json:"category" yaml:"category"`
	Tags        []string   `json:"tags" yaml:"tags"`
	Variables   []Variable `json:"variables" yaml:"variables"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updated_at"`
	UsageCount  int        `json:"usageCount" yaml:"usage_count"`
	IsFavorite  bool       `json:"isFavorite" yaml:"is_favorite"`
}

// CreateInput carries the caller-supplied fields of a new template
type CreateInput struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	ID          string      `json:"id"`
	Title       *string     `json:"title,omitempty"`
	Content     *string     `json:"content,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Variables   *[]Variable `json:"variables,omitempty"`
	IsFavorite  *bool       `json:"isFavorite,omitempty"`
}

// Library is the import/export document
type Library struct {
	Prompts    []*Template `json:"prompts" yaml:"prompts"`
	Categories []string    `json:"categories" yaml:"categories"`
	Version    string      `json:"version" yaml:"version"`
	ExportedAt time.Time   `json:"exportedAt" yaml:"exported_at"`
}

// Clone returns a deep copy so callers cannot mutate store state.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Variables = make([]Variable, len(t.Variables))
	for i, v := range t.Variables {
		v.Options = append([]string(nil), v.Options...)
		c.Variables[i] = v
	}
	return &c
}

// Apply merges the non-nil fields of in into t. It does not touch timestamps.
func (t *Template) Apply(in UpdateInput) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Content != nil {
		t.Content = *in.Content
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.Tags != nil {
		t.Tags = append([]string(nil), (*in.Tags)...)
	}
	if in.Variables != nil {
		t.Variables = append([]Variable(nil), (*in.Variables)...)
	}
	if in.IsFavorite != nil {
		t.IsFavorite = *in.IsFavorite
	}
}

// UserVariables returns the declarations that are collected interactively
func (t *Template) UserVariables() []Variable {
	var out []Variable
	for _, v := range t.Variables {
		if !v.Type.IsSystem() {
			out = append(out, v)
		}
	}
	return out
}

// Summary returns a single line describing the template for list views
func (t *Template) Summary() string {
	var parts []string

	if t.Description != "" {
		summary := cleanString(t.Description)
		maxSummaryLength := 60
		if len(summary) > maxSummaryLength {
			summary = summary[:maxSummaryLength-3] + "..."
		}
		if summary != "" {
			parts = append(parts, summary)
		}
	}

	if t.Category != "" {
		parts = append(parts, "Category: "+cleanString(t.Category))
	}

	if len(t.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(t.Tags, ", "))
	}

	if t.UsageCount > 0 {
		parts = append(parts, "Used: "+strconv.Itoa(t.UsageCount))
	}

	result := strings.Join(parts, " • ")

	// Leave space for list indicator and margins
	maxTotalLength := 100
	if len(result) > maxTotalLength {
		result = result[:maxTotalLength-3] + "..."
	}

	return cleanString(result)
}

// cleanString removes characters that break single-line rendering
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
		} else if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
