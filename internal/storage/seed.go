package storage

import "github.com/dpshade/prompt-manager/internal/models"

func selectionVar(description string) []models.Variable {
	return []models.Variable{{
		Name:        "selection",
		Description: description,
		Type:        models.VariableSelection,
	}}
}

// DefaultTemplates is the library written on first run.
var DefaultTemplates = []models.CreateInput{
	{
		Title: "Code Review",
		Content: "Review the following code and point out:\n" +
			"- quality issues and departures from common practice\n" +
			"- likely bugs\n" +
			"- performance problems\n" +
			"- security concerns\n\n" +
			"Code:\n{{selection}}",
		Description: "Ask for a thorough review of the selected code",
		Category:    "Code Review",
		Tags:        []string{"review", "quality", "best-practices"},
		Variables:   selectionVar("Code to review"),
	},
	{
		Title: "Bug Fix",
		Content: "This code has a bug. Help me find and fix it:\n\n{{selection}}\n\n" +
			"Expected behavior: [describe]\n" +
			"Actual behavior: [describe]",
		Description: "Get help tracking down a bug",
		Category:    "Debugging",
		Tags:        []string{"bug", "fix", "debug"},
		Variables:   selectionVar("Code containing the bug"),
	},
	{
		Title:       "Explain Code",
		Content:     "Explain in plain terms what this code does:\n\n{{selection}}",
		Description: "Get an explanation of unfamiliar code",
		Category:    "Documentation",
		Tags:        []string{"explain", "documentation", "understanding"},
		Variables:   selectionVar("Code to explain"),
	},
	{
		Title: "Refactor Code",
		Content: "Refactor this code for readability, performance and maintainability, " +
			"keeping its behavior unchanged.\n\nOriginal code:\n{{selection}}",
		Description: "Ask for refactoring suggestions",
		Category:    "Refactoring",
		Tags:        []string{"refactor", "improve", "clean-code"},
		Variables:   selectionVar("Code to refactor"),
	},
}
