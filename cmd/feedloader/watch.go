package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-feed-loader/internal/app"
	"github.com/samvad-hq/samvad-feed-loader/internal/config"
	"github.com/samvad-hq/samvad-feed-loader/internal/logger"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll configured sources and publish new items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(root.envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Close()

			log.InfoObj("watcher starting", "config", cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcher, err := app.NewWatcher(ctx, cfg, log)
			if err != nil {
				log.ErrorObj("failed to initialize watcher", "error", err.Error())
				return err
			}
			if err := watcher.Run(ctx); err != nil {
				return fmt.Errorf("watcher run: %w", err)
			}
			return nil
		},
	}
}
