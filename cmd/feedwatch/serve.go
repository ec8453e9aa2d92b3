package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pevans/feedwatch/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregated feed over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			c, closeCache, err := openCache(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCache()

			source, closeSource, err := openSource(a.cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			// SIGTERM/SIGINT: graceful shutdown
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			go runJanitor(ctx, c, a.cfg.Cache.TTL, a.logger)

			srv := server.NewAPIServer(newService(a.cfg, c, a.logger), source, a.cfg.Cache.TTL, a.logger)
			if err := srv.Run(ctx, addr); err != nil {
				return err
			}

			a.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
