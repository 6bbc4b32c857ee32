package main

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-feed-loader/internal/config"
)

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "feedloader",
		Short:         "Load and watch remote JSON feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file read before the environment")

	cmd.AddCommand(newLoadCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	return cmd
}
