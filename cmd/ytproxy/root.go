package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "ytproxy",
		Short:         "YouTube metadata and download proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "ytproxy.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "L", "", "Log level (error, warn, info, debug)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newAnalyzeCommand(opts))

	return rootCmd
}
