package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jigpipe/internal/album"
	"jigpipe/internal/config"
	"jigpipe/internal/faults"
	"jigpipe/internal/httpx"
	"jigpipe/internal/jig"
	"jigpipe/internal/modules"
	"jigpipe/internal/pipeline"
	"jigpipe/internal/platform"
	"jigpipe/internal/progress"
	"jigpipe/internal/records"
	"jigpipe/internal/transcode"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ingest [game-id...]",
		Short: "Download, transcode, and provision games as jigs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.loggerValue()

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

			mode := album.ModeDisk
			if cfg.Albums.LoadGameRemote {
				mode = album.ModeRemote
			}
			loader := album.NewLoader(cfg.Albums.Origin, cfg.OutputDir, mode, client, logger)

			gameIDs := args
			switch {
			case len(gameIDs) > 0:
			case all:
				gameIDs, err = loader.ListAlbums(cmd.Context(), cfg.Albums.PerPage)
				if err != nil {
					return err
				}
			case strings.TrimSpace(cfg.InputCSV) != "":
				gameIDs, err = loadGameIDs(cfg.InputCSV)
				if err != nil {
					return err
				}
			}
			if len(gameIDs) == 0 {
				return faults.Configf("no game ids: pass them as arguments, via --input-csv, or with --all")
			}

			store, err := jig.Open(filepath.Join(cfg.OutputDir, "jigs.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			recordStore, err := records.Open(cfg.OutputCSV, logger)
			if err != nil {
				return err
			}

			reporter := progress.New("ingesting games", len(gameIDs), progress.Hidden(cfg.Hidden))

			var platformClient *platform.Client
			if !cfg.DryRun {
				platformClient = platform.New(client, baseURL, logger)
			}

			run := pipeline.New(pipeline.Config{
				OutputDir:    cfg.OutputDir,
				Loader:       loader,
				Transcoder:   transcode.New(cfg.OutputDir, client, audioEncoder(cfg), logger),
				Builder:      modules.NewBuilder(logger),
				Store:        store,
				Platform:     platformClient,
				Records:      recordStore,
				Progress:     reporter,
				Width:        cfg.Workflow.MaxTasks,
				JIGsBatch:    cfg.Workflow.JigsBatchSize,
				ModulesBatch: cfg.Workflow.ModulesBatchSize,
				DryRun:       cfg.DryRun,
				CreatorID:    "jigpipe",
				Logger:       logger,
			})

			summary, runErr := run.Run(cmd.Context(), gameIDs)
			reporter.Finish()
			if err := recordStore.Close(); err != nil && runErr == nil {
				runErr = err
			}
			summary.Render(cmd.OutOrStdout())
			return runErr
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "ingest every album in the store index")
	return cmd
}

func audioEncoder(cfg *config.Config) transcode.AudioEncoder {
	return transcode.AudioEncoder{
		Binary:     cfg.Media.FFmpegBinary,
		SampleRate: cfg.Media.SampleRate,
	}
}

// loadGameIDs reads the first column of the CSV at path, skipping a header
// row when present.
func loadGameIDs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input csv %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var ids []string
	line := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input csv %s: %w", path, err)
		}
		line++
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(row[0])
		if line == 1 && strings.EqualFold(id, "id") {
			continue
		}
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
