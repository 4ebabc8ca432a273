package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/ui"
)

func (a *app) newListCmd() *cobra.Command {
	var category, format string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates",
		GroupID: "library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return formatOutput(a.out(), a.svc.ListTemplates(category), format)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only templates in this category")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, table, json or ids")
	return cmd
}

func (a *app) newSearchCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Search title, content, description and tags",
		GroupID: "library",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return formatOutput(a.out(), a.svc.SearchTemplates(strings.Join(args, " ")), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, table, json or ids")
	return cmd
}

func (a *app) newFindCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "find <query>",
		Short:   "Fuzzy-find templates, best match first",
		GroupID: "library",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return formatOutput(a.out(), a.svc.FindTemplates(strings.Join(args, " ")), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, table, json or ids")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	var format string
	var render bool
	cmd := &cobra.Command{
		Use:               "show <id>",
		Short:             "Show one template",
		GroupID:           "library",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.templateIDCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.svc.GetTemplate(args[0])
			if err != nil {
				return err
			}
			if render {
				fmt.Fprint(a.out(), ui.RenderMarkdown(t.Content, 80))
				return nil
			}
			return formatSingleTemplate(a.out(), t, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().BoolVar(&render, "render", false, "render the content as markdown")
	return cmd
}

func (a *app) newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "categories",
		Short:   "List category names",
		GroupID: "library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range a.svc.Categories() {
				fmt.Fprintln(a.out(), c)
			}
			return nil
		},
	}
}

// templateFlags holds the flags shared by create and update.
type templateFlags struct {
	title         string
	category      string
	content       string
	contentFile   string
	description   string
	tags          []string
	vars          []string
	required      []string
	options       []string
	variablesFile string
	favorite      bool
}

func (f *templateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "template title")
	cmd.Flags().StringVar(&f.category, "category", "", "category name")
	cmd.Flags().StringVar(&f.content, "content", "", "template content")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "read content from a file (- for stdin)")
	cmd.Flags().StringVar(&f.description, "description", "", "short description")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringArrayVar(&f.vars, "var", nil, "variable as name:type[:default] (repeatable)")
	cmd.Flags().StringArrayVar(&f.required, "required", nil, "mark a variable as required (repeatable)")
	cmd.Flags().StringArrayVar(&f.options, "option", nil, "select options as name=a|b|c (repeatable)")
	cmd.Flags().StringVar(&f.variablesFile, "variables-file", "", "read variable declarations from a YAML or JSON file")
}

func (f *templateFlags) readContent(in io.Reader) (string, error) {
	if f.contentFile == "" {
		return f.content, nil
	}
	var data []byte
	var err error
	if f.contentFile == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(f.contentFile)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return string(data), nil
}

// variables builds the declaration list from --variables-file and --var,
// then applies --required and --option.
func (f *templateFlags) variables() ([]models.Variable, error) {
	var vars []models.Variable

	if f.variablesFile != "" {
		fileVars, err := readVariablesFile(f.variablesFile)
		if err != nil {
			return nil, err
		}
		vars = append(vars, fileVars...)
	}

	for _, spec := range f.vars {
		v, err := parseVarSpec(spec)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}

	return f.decorate(vars)
}

// decorate applies --required and --option to vars in place.
func (f *templateFlags) decorate(vars []models.Variable) ([]models.Variable, error) {
	for _, name := range f.required {
		i := indexOfVar(vars, name)
		if i < 0 {
			return nil, errors.ValidationError(fmt.Sprintf("--required %s: no such variable", name))
		}
		vars[i].Required = true
	}

	for _, spec := range f.options {
		name, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, errors.ValidationError(fmt.Sprintf("invalid --option %q, want name=a|b", spec))
		}
		i := indexOfVar(vars, name)
		if i < 0 {
			return nil, errors.ValidationError(fmt.Sprintf("--option %s: no such variable", name))
		}
		vars[i].Options = strings.Split(list, "|")
	}

	return vars, nil
}

func indexOfVar(vars []models.Variable, name string) int {
	for i := len(vars) - 1; i >= 0; i-- {
		if vars[i].Name == name {
			return i
		}
	}
	return -1
}

// parseVarSpec parses name:type[:default]. The type defaults to text.
func parseVarSpec(spec string) (models.Variable, error) {
	parts := strings.SplitN(spec, ":", 3)
	v := models.Variable{Name: parts[0], Type: models.VariableText}
	if v.Name == "" {
		return v, errors.ValidationError(fmt.Sprintf("invalid --var %q, want name:type[:default]", spec))
	}
	if len(parts) > 1 && parts[1] != "" {
		v.Type = models.VariableType(parts[1])
	}
	if len(parts) > 2 {
		v.DefaultValue = parts[2]
	}
	return v, nil
}

func readVariablesFile(path string) ([]models.Variable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables file: %w", err)
	}

	var vars []models.Variable
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &vars)
	} else {
		err = yaml.Unmarshal(data, &vars)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "variables file is not a list of variables")
	}
	return vars, nil
}

func (a *app) newCreateCmd() *cobra.Command {
	var flags templateFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a template",
		GroupID: "library",
		Args:    cobra.NoArgs,
		Example: `  prompt-manager create --title "Summarize" --category Writing \
    --content "Summarize for {{audience}}:\n{{selection}}" \
    --var audience:select:engineers --option "audience=engineers|managers"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := flags.readContent(cmd.InOrStdin())
			if err != nil {
				return err
			}
			vars, err := flags.variables()
			if err != nil {
				return err
			}

			t, err := a.svc.CreateTemplate(models.CreateInput{
				Title:       flags.title,
				Content:     content,
				Description: flags.description,
				Category:    flags.category,
				Tags:        flags.tags,
				Variables:   vars,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out(), "Created template %s (%s)\n", t.ID, t.Title)
			return nil
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	return cmd
}

func (a *app) newUpdateCmd() *cobra.Command {
	var flags templateFlags
	cmd := &cobra.Command{
		Use:               "update <id>",
		Short:             "Update fields of a template",
		GroupID:           "library",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.templateIDCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.UpdateInput{ID: args[0]}
			changed := cmd.Flags().Changed

			if changed("title") {
				in.Title = &flags.title
			}
			if changed("category") {
				in.Category = &flags.category
			}
			if changed("description") {
				in.Description = &flags.description
			}
			if changed("content") || changed("content-file") {
				content, err := flags.readContent(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in.Content = &content
			}
			if changed("tag") {
				in.Tags = &flags.tags
			}
			if changed("var") || changed("variables-file") {
				vars, err := flags.variables()
				if err != nil {
					return err
				}
				in.Variables = &vars
			} else if changed("required") || changed("option") {
				current, err := a.svc.GetTemplate(args[0])
				if err != nil {
					return err
				}
				vars, err := flags.decorate(append([]models.Variable(nil), current.Variables...))
				if err != nil {
					return err
				}
				in.Variables = &vars
			}
			if changed("favorite") {
				in.IsFavorite = &flags.favorite
			}

			t, err := a.svc.UpdateTemplate(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out(), "Updated template %s (%s)\n", t.ID, t.Title)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.favorite, "favorite", false, "mark or unmark as favorite")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <id>",
		Aliases:           []string{"rm"},
		Short:             "Delete a template",
		GroupID:           "library",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.templateIDCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteTemplate(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out(), "Deleted template %s\n", args[0])
			return nil
		},
	}
}
