package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/placeholder"
	"github.com/dpshade/prompt-manager/internal/ui"
)

// formatOutput writes templates in one of the list formats
func formatOutput(w io.Writer, templates []*models.Template, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(templates)
	case "ids":
		for _, t := range templates {
			fmt.Fprintln(w, t.ID)
		}
	case "table":
		tbl := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(ui.StyleTextDim).
			Headers("ID", "TITLE", "CATEGORY", "USES", "UPDATED")
		for _, t := range templates {
			tbl.Row(t.ID, truncate(t.Title, 30), t.Category, strconv.Itoa(t.UsageCount), t.UpdatedAt.Format("2006-01-02"))
		}
		fmt.Fprintln(w, tbl.Render())
	case "text", "":
		for _, t := range templates {
			fmt.Fprintf(w, "%s - %s\n", t.ID, t.Title)
			fmt.Fprintf(w, "  %s\n", t.Summary())
			if uv := t.UserVariables(); len(uv) > 0 {
				names := make([]string, len(uv))
				for i, v := range uv {
					names[i] = v.Name
				}
				fmt.Fprintf(w, "  Asks for: %s\n", strings.Join(names, ", "))
			}
			fmt.Fprintln(w)
		}
	default:
		return errors.ValidationError(fmt.Sprintf("unknown format %q (want text, table, json or ids)", format))
	}
	return nil
}

// formatSingleTemplate writes one template with its declarations
func formatSingleTemplate(w io.Writer, t *models.Template, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	fmt.Fprintf(w, "ID: %s\n", t.ID)
	fmt.Fprintf(w, "Title: %s\n", t.Title)
	fmt.Fprintf(w, "Category: %s\n", t.Category)
	if t.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", t.Description)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if len(t.Variables) > 0 {
		fmt.Fprintln(w, "Variables:")
		for _, v := range t.Variables {
			line := fmt.Sprintf("  %s (%s)", v.Token(), v.Type)
			if v.Required {
				line += " required"
			}
			if v.DefaultValue != "" {
				line += fmt.Sprintf(" default=%q", v.DefaultValue)
			}
			if len(v.Options) > 0 {
				line += " options=" + strings.Join(v.Options, "|")
			}
			fmt.Fprintln(w, line)
		}
	}
	if names := placeholder.Names(t.Content); len(names) > 0 {
		fmt.Fprintf(w, "Placeholders: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Uses: %d\n", t.UsageCount)
	fmt.Fprintf(w, "Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Updated: %s\n", t.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "\nContent:\n%s\n", t.Content)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
