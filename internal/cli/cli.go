// Package cli defines the prompt-manager command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-manager/internal/config"
	"github.com/dpshade/prompt-manager/internal/logging"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/service"
	"github.com/dpshade/prompt-manager/internal/storage"
	"github.com/dpshade/prompt-manager/internal/ui"
)

// Streams are the standard streams a command uses.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// app carries what PersistentPreRunE sets up for the subcommands.
type app struct {
	streams Streams
	cfg     *config.Config
	svc     *service.Service

	configFile string
	storePath  string
	verbosity  int

	// serviceOptions lets tests swap collaborators such as the clipboard.
	serviceOptions []service.Option
}

// Option customizes the command tree.
type Option func(*app)

// WithServiceOptions passes options through to the service.
func WithServiceOptions(opts ...service.Option) Option {
	return func(a *app) { a.serviceOptions = append(a.serviceOptions, opts...) }
}

// NewRootCmd creates the root command
func NewRootCmd(version string, streams Streams, opts ...Option) *cobra.Command {
	a := &app{streams: streams}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:     "prompt-manager",
		Short:   "Manage reusable prompt templates with {{variables}}",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	rootCmd.SetIn(streams.In)
	rootCmd.SetOut(streams.Out)
	rootCmd.SetErr(streams.Err)

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/prompt-manager/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.storePath, "store", "", "template file (overrides storage.path)")
	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "library", Title: "Library:"},
		&cobra.Group{ID: "use", Title: "Using templates:"},
		&cobra.Group{ID: "sync", Title: "Sharing and sync:"},
	)

	rootCmd.AddCommand(
		a.newListCmd(),
		a.newSearchCmd(),
		a.newFindCmd(),
		a.newShowCmd(),
		a.newCategoriesCmd(),
		a.newCreateCmd(),
		a.newUpdateCmd(),
		a.newDeleteCmd(),
		a.newInsertCmd(),
		a.newCopyCmd(),
		a.newPreviewCmd(),
		a.newImportCmd(),
		a.newExportCmd(),
		a.newSyncCmd(),
		a.newWatchCmd(),
		a.newServeCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.storePath != "" {
		cfg.Storage.Path = a.storePath
	}
	a.cfg = cfg

	logging.SetupLogger(max(a.verbosity, cfg.Log.Verbosity))
	log.Debug().Str("command", cmd.Name()).Str("store", cfg.Storage.Path).Msg("Command started")

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	opts := append([]service.Option{service.WithNotifier(a.notifier())}, a.serviceOptions...)
	a.svc = service.New(store, opts...)
	return nil
}

func (a *app) out() io.Writer {
	return a.streams.Out
}

// templateIDCompletion completes template ids, showing titles as hints.
func (a *app) templateIDCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if a.svc == nil {
		if err := a.setup(cmd); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
	}

	var ids []string
	for _, t := range a.svc.ListTemplates("") {
		ids = append(ids, t.ID+"\t"+t.Title)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// streamNotifier prints resolution advisories on the error stream.
type streamNotifier struct {
	w io.Writer
}

func (n streamNotifier) Warn(msg string) {
	fmt.Fprintln(n.w, ui.StyleWarning.Render("Warning: "+msg))
}

func (n streamNotifier) Error(msg string) {
	fmt.Fprintln(n.w, ui.StyleError.Render("Error: "+msg))
}

func (a *app) notifier() resolver.Notifier {
	return streamNotifier{w: a.streams.Err}
}

func (a *app) cliLogger() zerolog.Logger {
	return logging.GetLogger("cli")
}
