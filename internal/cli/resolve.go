package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-manager/internal/editor"
	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/ui"
)

// resolveFlags describe the editing context and how values are collected.
type resolveFlags struct {
	file               string
	untitled           string
	uri                string
	selection          string
	selectionLines     string
	selectionClipboard bool
	at                 string
	set                []string
	noInput            bool
}

func (f *resolveFlags) register(cmd *cobra.Command, insert bool) {
	cmd.Flags().StringVar(&f.file, "file", "", "active file on disk")
	cmd.Flags().StringVar(&f.untitled, "untitled", "", "active buffer is unsaved, with this label")
	cmd.Flags().StringVar(&f.uri, "uri", "", "active buffer is a non-file resource")
	cmd.Flags().StringVar(&f.selection, "selection", "", "selected text")
	cmd.Flags().StringVar(&f.selectionLines, "selection-lines", "", "select lines a-b of --file")
	cmd.Flags().BoolVar(&f.selectionClipboard, "selection-clipboard", false, "use the clipboard text as the selection")
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "answer a variable as name=value (repeatable)")
	cmd.Flags().BoolVar(&f.noInput, "no-input", false, "never prompt; unanswered variables use their defaults")
	cmd.MarkFlagsMutuallyExclusive("file", "untitled", "uri")
	cmd.MarkFlagsMutuallyExclusive("selection", "selection-lines", "selection-clipboard")
	if insert {
		cmd.Flags().StringVar(&f.at, "at", "", "insert at line:col of --file (default end of file)")
	}
}

func (f *resolveFlags) presets() (resolver.PresetCollector, error) {
	presets := resolver.PresetCollector{}
	for _, kv := range f.set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, errors.ValidationError(fmt.Sprintf("invalid --set %q, want name=value", kv))
		}
		presets[name] = value
	}
	return presets, nil
}

// collector answers from --set first, then asks the user: a form on a
// terminal, plain lines otherwise.
func (a *app) collector(f *resolveFlags) (resolver.Collector, error) {
	presets, err := f.presets()
	if err != nil {
		return nil, err
	}
	if f.noInput {
		return presets, nil
	}

	var ask resolver.Collector
	if file, ok := a.streams.In.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		ask = &ui.TerminalCollector{In: file, Out: a.streams.Err}
	} else {
		ask = ui.NewLineCollector(a.streams.In, a.streams.Err)
	}

	return resolver.CollectorFunc(func(ctx context.Context, req resolver.Request) (resolver.Outcome, error) {
		if v, ok := presets[req.Name]; ok && req.Attempt == 1 {
			return resolver.Value(v), nil
		}
		return ask.Collect(ctx, req)
	}), nil
}

func (a *app) selectionText(f *resolveFlags) (string, error) {
	if f.selectionClipboard {
		return a.svc.ReadClipboard()
	}
	return f.selection, nil
}

// surface builds the insertion target from the context flags.
func (a *app) surface(f *resolveFlags) (editor.Surface, error) {
	if f.selectionLines != "" && f.file == "" {
		return nil, errors.ValidationError("--selection-lines needs --file")
	}
	if f.at != "" && f.file == "" {
		return nil, errors.ValidationError("--at needs --file")
	}

	selection, err := a.selectionText(f)
	if err != nil {
		return nil, err
	}

	if f.file == "" {
		return &editor.StreamSurface{W: a.out(), Selection: selection, File: f.fileRef()}, nil
	}

	fs, err := editor.OpenFile(f.file)
	if err != nil {
		return nil, err
	}
	fs.Selection = selection
	if f.selectionLines != "" {
		r, err := editor.ParseLineRange(f.selectionLines)
		if err != nil {
			return nil, err
		}
		if err := fs.SelectLines(r); err != nil {
			return nil, err
		}
	}
	if f.at != "" {
		if fs.Caret, err = editor.ParseCaret(f.at); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func (f *resolveFlags) fileRef() resolver.FileRef {
	switch {
	case f.file != "":
		return resolver.DiskFile(f.file)
	case f.untitled != "":
		return resolver.UntitledFile(f.untitled)
	case f.uri != "":
		return resolver.ResourceFile(f.uri)
	default:
		return resolver.FileRef{}
	}
}

// context builds the editing context without an insertion target.
func (a *app) context(f *resolveFlags) (resolver.Context, error) {
	s, err := a.surface(f)
	if err != nil {
		return resolver.Context{}, err
	}
	return s.Context(), nil
}

func (a *app) report(res resolver.Result) {
	if res.Cancelled {
		fmt.Fprintln(a.streams.Err, ui.StyleWarning.Render("Cancelled, nothing inserted"))
		return
	}
	fmt.Fprintln(a.streams.Err, ui.StyleTextMuted.Render(fmt.Sprintf("(%d variables processed)", res.Substituted)))
}

func (a *app) newInsertCmd() *cobra.Command {
	var flags resolveFlags
	cmd := &cobra.Command{
		Use:               "insert <id>",
		Short:             "Resolve a template and insert it into the active buffer",
		Long:              "Resolve a template and insert it at --at in --file, or at its end.\nWithout --file the text is written to stdout.",
		GroupID:           "use",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.templateIDCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			collector, err := a.collector(&flags)
			if err != nil {
				return err
			}
			surface, err := a.surface(&flags)
			if err != nil {
				return err
			}

			res, err := a.svc.ResolveAndInsert(cmd.Context(), args[0], surface, collector)
			if err != nil {
				return err
			}
			a.report(res)
			log.Debug().Str("id", args[0]).Bool("cancelled", res.Cancelled).Msg("Insert finished")
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (a *app) newCopyCmd() *cobra.Command {
	var flags resolveFlags
	cmd := &cobra.Command{
		Use:               "copy <id>",
		Short:             "Resolve a template and copy it to the clipboard",
		GroupID:           "use",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.templateIDCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			collector, err := a.collector(&flags)
			if err != nil {
				return err
			}
			rc, err := a.context(&flags)
			if err != nil {
				return err
			}

			res, err := a.svc.ResolveToClipboard(cmd.Context(), args[0], rc, collector)
			if err != nil {
				return err
			}
			a.report(res)
			if !res.Cancelled {
				fmt.Fprintln(a.streams.Err, ui.StyleSuccess.Render("Copied to clipboard"))
			}
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (a *app) newPreviewCmd() *cobra.Command {
	var flags resolveFlags
	var render bool
	cmd := &cobra.Command{
		Use:               "preview <id>",
		Short:             "Resolve a template and print it without recording a use",
		GroupID:           "use",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.templateIDCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			collector, err := a.collector(&flags)
			if err != nil {
				return err
			}
			rc, err := a.context(&flags)
			if err != nil {
				return err
			}

			res, err := a.svc.Preview(cmd.Context(), args[0], rc, collector)
			if err != nil {
				return err
			}
			a.report(res)
			if res.Cancelled {
				return nil
			}
			if render {
				fmt.Fprint(a.out(), ui.RenderMarkdown(res.Content, 80))
				return nil
			}
			fmt.Fprintln(a.out(), res.Content)
			return nil
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&render, "render", false, "render the result as markdown")
	return cmd
}
