package resolver

import (
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/placeholder"
)

// SystemNames are the reserved token names filled from the editing context.
var SystemNames = []string{
	string(models.VariableSelection),
	string(models.VariableFilename),
	string(models.VariableFilepath),
}

// EmptySelectionAdvisory is reported when content uses {{selection}} but
// nothing is selected.
const EmptySelectionAdvisory = "No text selected; {{selection}} will be empty"

// ResolveSystem substitutes the three system tokens from rc. It never
// consults declarations and is deterministic for a given content and
// context. It returns the new content and how many of the system names
// were present.
func ResolveSystem(content string, rc Context, n Notifier) (string, int) {
	if n == nil {
		n = discardNotifier{}
	}

	values := map[string]string{
		string(models.VariableSelection): rc.Selection,
		string(models.VariableFilename):  rc.File.Name(),
		string(models.VariableFilepath):  rc.File.FullPath(),
	}

	if rc.Selection == "" && placeholder.Contains(content, string(models.VariableSelection)) {
		n.Warn(EmptySelectionAdvisory)
	}

	substituted := 0
	for _, name := range SystemNames {
		if !placeholder.Contains(content, name) {
			continue
		}
		content = placeholder.Replace(content, name, values[name])
		substituted++
	}
	return content, substituted
}
