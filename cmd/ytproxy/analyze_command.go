package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand(opts *globalOptions) *cobra.Command {
	var playlist bool
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Print video or playlist metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			svc := newService(cfg, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var res any
			if playlist {
				res, err = svc.Playlist(ctx, args[0])
			} else {
				res, err = svc.Analyze(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().BoolVarP(&playlist, "playlist", "p", false, "Treat the URL as a playlist and list its entries")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
