package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-manager/internal/api"
	"github.com/dpshade/prompt-manager/internal/service"
)

func (a *app) newServeCmd() *cobra.Command {
	var port int
	var host string
	var watchFile bool
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the library over a JSON HTTP API",
		GroupID: "sync",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiCfg := a.cfg.API
			if cmd.Flags().Changed("port") {
				apiCfg.Port = port
			}
			if cmd.Flags().Changed("host") {
				apiCfg.Host = host
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := a.cliLogger()
			if watchFile {
				go func() {
					err := a.svc.Watch(ctx, service.WatchOptions{
						Notify:       a.cfg.Sync.Watch,
						PollInterval: a.cfg.Sync.PollInterval,
						Debounce:     a.cfg.Sync.Debounce,
					})
					if err != nil {
						logger.Warn().Err(err).Msg("Watcher stopped")
					}
				}()
			}

			server := api.NewAPIServer(a.svc, apiCfg.Addr())
			logger.Info().Str("addr", apiCfg.Addr()).Msg("Serving")
			return server.Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to bind")
	cmd.Flags().BoolVar(&watchFile, "watch", true, "follow changes made by other instances while serving")
	return cmd
}
