package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-manager/internal/service"
	"github.com/dpshade/prompt-manager/internal/storage"
	"github.com/dpshade/prompt-manager/internal/ui"
)

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "import <file>",
		Short:   "Add the templates of an export document (JSON or YAML)",
		GroupID: "sync",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imported, err := a.svc.Import(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out(), "Imported %d templates\n", len(imported))
			return nil
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "export [file]",
		Short:   "Write every template to an export document",
		Long:    "Write every template to an export document. Without a file, or with -, the document goes to stdout.",
		GroupID: "sync",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := storage.ParseFormat(format)
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				return a.svc.WriteLibrary(a.out(), f)
			}
			if err := a.svc.Export(args[0], f); err != nil {
				return err
			}
			fmt.Fprintf(a.streams.Err, "Exported to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "document format: json or yaml")
	return cmd
}

func (a *app) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Short:   "Reload the template file from disk",
		GroupID: "sync",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.ForceSync(); err != nil {
				return err
			}
			fmt.Fprintln(a.out(), ui.CreateStatus(fmt.Sprintf("Synced %d templates", len(a.svc.ListTemplates(""))), "success"))
			return nil
		},
	}
}

func (a *app) newWatchCmd() *cobra.Command {
	var noNotify bool
	var poll, debounce time.Duration
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Follow changes made to the template file by other instances",
		GroupID: "sync",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := service.WatchOptions{
				Notify:       a.cfg.Sync.Watch && !noNotify,
				PollInterval: a.cfg.Sync.PollInterval,
				Debounce:     a.cfg.Sync.Debounce,
			}
			if cmd.Flags().Changed("poll") {
				opts.PollInterval = poll
			}
			if cmd.Flags().Changed("debounce") {
				opts.Debounce = debounce
			}

			a.svc.Store().OnChange(func(ev storage.ChangeEvent) {
				fmt.Fprintf(a.streams.Err, "%s reload: %d templates\n", ev.Reason, ev.Count)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(a.streams.Err, "Watching %s (ctrl+c to stop)\n", a.svc.Store().Path())
			return a.svc.Watch(ctx, opts)
		},
	}
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "disable filesystem notifications and rely on polling")
	cmd.Flags().DurationVar(&poll, "poll", 0, "polling interval, 0 disables polling")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "delay that coalesces bursts of changes")
	return cmd
}
