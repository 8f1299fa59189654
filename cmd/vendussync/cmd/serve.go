package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iurnickita/vendussync/internal/handler"
)

func (r *root) newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := r.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			return handler.Serve(ctx, app.cfg.Handler, app.service, app.zaplog)
		},
	}

	serveCmd.Flags().StringP("addr", "a", "", "listen address")
	r.v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	return serveCmd
}
