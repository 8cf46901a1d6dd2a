// Package refresh walks an inventory of stored media and drives server-side
// reprocessing with conditional requests. Each item yields at most one record
// line; transport exhaustion and unmapped statuses only warn.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"jigpipe/internal/httpx"
	"jigpipe/internal/logging"
	"jigpipe/internal/media"
	"jigpipe/internal/platform"
	"jigpipe/internal/pool"
	"jigpipe/internal/progress"
	"jigpipe/internal/records"
)

// Item is one stored media entry from the inventory file.
type Item struct {
	ID      string `json:"id"`
	Library string `json:"library"`
	ETag    string `json:"etag,omitempty"`
}

type inventory struct {
	Media []Item `json:"media"`
}

// LoadInventory reads and validates the inventory JSON at path.
func LoadInventory(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	var inv inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	for i, item := range inv.Media {
		if _, err := uuid.Parse(item.ID); err != nil {
			return nil, fmt.Errorf("inventory item %d: invalid media id %q", i, item.ID)
		}
		if _, err := media.ParseLibrary(item.Library); err != nil {
			return nil, fmt.Errorf("inventory item %d: %w", i, err)
		}
	}
	return inv.Media, nil
}

// Stats summarises one engine run.
type Stats struct {
	Processed int64
	Recorded  int64
	Skipped   int64
}

// Config wires an Engine.
type Config struct {
	Platform *platform.Client
	Records  *records.Store
	Progress *progress.Reporter
	Width    int
	DryRun   bool
	Logger   *slog.Logger
}

// Engine fans inventory items across the worker pool and classifies each
// conditional refresh response.
type Engine struct {
	platform *platform.Client
	records  *records.Store
	progress *progress.Reporter
	width    int
	dryRun   bool
	logger   *slog.Logger

	processed atomic.Int64
	recorded  atomic.Int64
	skipped   atomic.Int64
}

// New constructs an Engine from cfg.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		platform: cfg.Platform,
		records:  cfg.Records,
		progress: cfg.Progress,
		width:    cfg.Width,
		dryRun:   cfg.DryRun,
		logger:   logger.With(logging.String(logging.FieldComponent, "refresh")),
	}
}

// Run refreshes every item. Per-item failures are absorbed as warnings so
// one bad item never tears down its siblings; only submission-level
// cancellation surfaces as an error.
func (e *Engine) Run(ctx context.Context, items []Item) (Stats, error) {
	workers := pool.New(e.width)
	for _, item := range items {
		item := item
		if err := workers.Submit(ctx, func(ctx context.Context) error {
			e.process(ctx, item)
			return nil
		}); err != nil {
			_ = workers.Wait()
			return e.stats(), err
		}
	}
	if err := workers.Wait(); err != nil {
		return e.stats(), err
	}
	return e.stats(), nil
}

func (e *Engine) process(ctx context.Context, item Item) {
	defer e.processed.Add(1)
	if e.progress != nil {
		defer e.progress.Increment()
		done := e.progress.StartTask(item.ID)
		defer done()
	}

	if e.dryRun {
		e.skipped.Add(1)
		e.logger.Info("dry run, skipping refresh",
			logging.String(logging.FieldMediaID, item.ID),
			logging.String(logging.FieldLibrary, item.Library))
		return
	}

	status, err := e.platform.RefreshMedia(ctx, media.Library(item.Library), item.ID, item.ETag)
	if err != nil {
		e.skipped.Add(1)
		e.logger.Warn("refresh failed after retries",
			logging.String(logging.FieldMediaID, item.ID),
			logging.String(logging.FieldLibrary, item.Library),
			logging.Error(err))
		return
	}

	if httpx.IsAuthDenied(status) {
		e.skipped.Add(1)
		e.logger.Warn("refresh denied by platform",
			logging.String(logging.FieldMediaID, item.ID),
			logging.Int("status", status))
		return
	}

	res, ok := httpx.Classify(status)
	if !ok {
		e.skipped.Add(1)
		e.logger.Warn("unmapped refresh status",
			logging.String(logging.FieldMediaID, item.ID),
			logging.Int("status", status))
		return
	}

	e.records.Append(records.Record{
		ID:         item.ID,
		Resolution: res,
		Library:    media.Library(item.Library),
	})
	e.recorded.Add(1)
}

func (e *Engine) stats() Stats {
	return Stats{
		Processed: e.processed.Load(),
		Recorded:  e.recorded.Load(),
		Skipped:   e.skipped.Load(),
	}
}
