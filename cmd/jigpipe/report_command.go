package main

import (
	"github.com/spf13/cobra"

	"jigpipe/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Reconcile provisioned jigs against albums and emit set reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			result, err := report.New(cfg.OutputDir, ctx.loggerValue()).Run()
			if err != nil {
				return err
			}
			result.RenderSummary(cmd.OutOrStdout())
			return nil
		},
	}
}
