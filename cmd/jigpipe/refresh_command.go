package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jigpipe/internal/faults"
	"jigpipe/internal/httpx"
	"jigpipe/internal/platform"
	"jigpipe/internal/progress"
	"jigpipe/internal/records"
	"jigpipe/internal/refresh"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var inputJSON string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Drive server-side reprocessing of stored media",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.loggerValue()

			items, err := loadRefreshItems(inputJSON, cfg.InputCSV, cfg.Verbose && !cfg.Hidden)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return faults.Configf("no media items: pass --input-json or set --input-csv")
			}

			baseURL, err := cfg.APIBaseURL()
			if err != nil {
				return faults.Configf("%v", err)
			}
			if !cfg.DryRun {
				if err := cfg.RequireToken(); err != nil {
					return faults.Configf("%v", err)
				}
			}

			client := httpx.New(httpx.Config{
				Token:    cfg.Platform.Token,
				Timeout:  time.Duration(cfg.Platform.RequestTimeout) * time.Second,
				Attempts: cfg.Platform.RetryAttempts,
				Logger:   logger,
			})

			recordStore, err := records.Open(cfg.OutputCSV, logger)
			if err != nil {
				return err
			}

			reporter := progress.New("refreshing media", len(items), progress.Hidden(cfg.Hidden))
			engine := refresh.New(refresh.Config{
				Platform: platform.New(client, baseURL, logger),
				Records:  recordStore,
				Progress: reporter,
				Width:    cfg.Workflow.MaxTasks,
				DryRun:   cfg.DryRun,
				Logger:   logger,
			})

			stats, runErr := engine.Run(cmd.Context(), items)
			reporter.Finish()
			if err := recordStore.Close(); err != nil && runErr == nil {
				runErr = err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed: %d\n", stats.Processed)
			fmt.Fprintf(out, "Recorded:  %d\n", stats.Recorded)
			fmt.Fprintf(out, "Skipped:   %d\n", stats.Skipped)
			return runErr
		},
	}

	cmd.Flags().StringVar(&inputJSON, "input-json", "", "Media inventory JSON path")
	return cmd
}

// loadRefreshItems prefers the JSON inventory; the work-item CSV is the
// etag-less fallback.
func loadRefreshItems(inputJSON, inputCSV string, showProgress bool) ([]refresh.Item, error) {
	if strings.TrimSpace(inputJSON) != "" {
		return refresh.LoadInventory(inputJSON)
	}
	if strings.TrimSpace(inputCSV) == "" {
		return nil, nil
	}
	workItems, err := records.LoadInput(inputCSV, showProgress)
	if err != nil {
		return nil, err
	}
	items := make([]refresh.Item, 0, len(workItems))
	for _, item := range workItems {
		items = append(items, refresh.Item{ID: item.ID, Library: string(item.Library)})
	}
	return items, nil
}
