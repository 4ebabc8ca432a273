package models

// VariableType identifies how a placeholder receives its value.
type VariableType string

const (
	VariableText      VariableType = "text"
	VariableMultiline VariableType = "multiline"
	VariableSelect    VariableType = "select"
	VariableNumber    VariableType = "number"
	VariableDate      VariableType = "date"
	VariableSelection VariableType = "selection"
	VariableFilename  VariableType = "filename"
	VariableFilepath  VariableType = "filepath"
	VariableCustom    VariableType = "custom"
)

// VariableTypes lists every known type in declaration order of the enum.
var VariableTypes = []VariableType{
	VariableText,
	VariableMultiline,
	VariableSelect,
	VariableNumber,
	VariableDate,
	VariableSelection,
	VariableFilename,
	VariableFilepath,
	VariableCustom,
}

// IsSystem reports whether the value is derived from the editing context
// rather than collected from the user.
func (t VariableType) IsSystem() bool {
	switch t {
	case VariableSelection, VariableFilename, VariableFilepath:
		return true
	default:
		return false
	}
}

// IsValid reports whether t is one of the known types.
func (t VariableType) IsValid() bool {
	for _, known := range VariableTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Variable declares one substitution point of a template
type Variable struct {
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	DefaultValue string       `json:"defaultValue,omitempty" yaml:"default_value,omitempty"`
	Type         VariableType `json:"type" yaml:"type"`
	Placeholder  string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required     bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Options      []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// Token returns the literal placeholder text for the variable, e.g. {{name}}.
func (v Variable) Token() string {
	return "{{" + v.Name + "}}"
}
