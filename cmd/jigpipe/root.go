package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	flags := &rootFlags{}

	ctx := newCommandContext(&configFlag, flags)

	rootCmd := &cobra.Command{
		Use:           "jigpipe",
		Short:         "Legacy album ingestion and transcoding pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	persistent.BoolVar(&flags.dryRun, "dry-run", false, "Resolve and transcode without provisioning")
	persistent.BoolVar(&flags.verbose, "verbose", true, "Enable debug logging")
	persistent.BoolVar(&flags.hidden, "hidden", false, "Suppress progress rendering")
	persistent.StringVar(&flags.token, "token", "", "Platform bearer token (else AUTH_OVERRIDE)")
	persistent.StringVar(&flags.remoteTarget, "remote-target", "release", "Platform target: local, sandbox, or release")
	persistent.StringVar(&flags.outputDir, "output-dir", "", "Root of the output tree")
	persistent.StringVar(&flags.inputCSV, "input-csv", "", "Work-item CSV path")
	persistent.StringVar(&flags.outputCSV, "output-csv", "", "Record CSV path")
	persistent.IntVar(&flags.maxTasks, "max-tasks", 0, "Worker-pool width (0 runs sequentially)")
	persistent.BoolVar(&flags.loadGameRemote, "load-game-remote", false, "Fetch album documents from the store instead of disk")
	persistent.IntVar(&flags.albumsPerPage, "download-albums-per-page", 100, "Album listing page size")
	persistent.IntVar(&flags.jigsBatch, "download-jigs-batch-size", 0, "Concurrent remote jig pushes (0 is sequential)")
	persistent.IntVar(&flags.modulesBatch, "download-modules-batch-size", 0, "Concurrent remote module pushes (0 is sequential)")

	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newRefreshCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
