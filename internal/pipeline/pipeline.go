// Package pipeline runs the per-game ingestion sequence: album load, asset
// resolution, transcoding, module building, and jig provisioning. One bad
// game never tears down its siblings.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"

	"jigpipe/internal/album"
	"jigpipe/internal/faults"
	"jigpipe/internal/fileutil"
	"jigpipe/internal/jig"
	"jigpipe/internal/logging"
	"jigpipe/internal/media"
	"jigpipe/internal/modules"
	"jigpipe/internal/platform"
	"jigpipe/internal/pool"
	"jigpipe/internal/progress"
	"jigpipe/internal/records"
	"jigpipe/internal/resolve"
	"jigpipe/internal/transcode"
)

// Config wires a Pipeline.
type Config struct {
	OutputDir    string
	Loader       *album.Loader
	Transcoder   *transcode.Transcoder
	Builder      *modules.Builder
	Store        *jig.Store
	Platform     *platform.Client // nil disables remote provisioning
	Records      *records.Store
	Progress     *progress.Reporter
	Width        int
	JIGsBatch    int // concurrent remote jig pushes; 0 is sequential
	ModulesBatch int // concurrent remote module pushes per jig; 0 is sequential
	DryRun       bool
	CreatorID    string
	Logger       *slog.Logger
}

// Pipeline orchestrates ingestion for a batch of games.
type Pipeline struct {
	cfg     Config
	jigGate *semaphore.Weighted
	logger  *slog.Logger

	games        atomic.Int64
	failed       atomic.Int64
	provisioned  atomic.Int64
	mediaWritten atomic.Int64
	mediaSkipped atomic.Int64
	mediaMissing atomic.Int64
}

// New constructs a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
	if cfg.JIGsBatch > 0 {
		p.jigGate = semaphore.NewWeighted(int64(cfg.JIGsBatch))
	}
	return p
}

// Run ingests every game id. The output directory is guarded by a file lock
// so two runs never interleave writes. Per-game failures are localised; the
// first one is returned after all siblings finish.
func (p *Pipeline) Run(ctx context.Context, gameIDs []string) (Summary, error) {
	lock := flock.New(filepath.Join(p.cfg.OutputDir, ".jigpipe.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return p.summary(), fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return p.summary(), faults.Configf("another run holds the lock on %s", p.cfg.OutputDir)
	}
	defer func() { _ = lock.Unlock() }()

	workers := pool.New(p.cfg.Width)
	for _, gameID := range gameIDs {
		gameID := gameID
		if err := workers.Submit(ctx, func(ctx context.Context) error {
			return p.runGame(ctx, gameID)
		}); err != nil {
			_ = workers.Wait()
			return p.summary(), err
		}
	}
	err = workers.Wait()
	return p.summary(), err
}

func (p *Pipeline) runGame(ctx context.Context, gameID string) error {
	p.games.Add(1)
	logger := p.logger.With(logging.String(logging.FieldGameID, gameID))
	if p.cfg.Progress != nil {
		defer p.cfg.Progress.Increment()
		done := p.cfg.Progress.StartTask(gameID)
		defer done()
	}

	if err := p.ingestGame(ctx, gameID, logger); err != nil {
		p.failed.Add(1)
		logger.Error("game ingestion failed",
			logging.String("class", classOf(err)),
			logging.Error(err))
		return err
	}
	return nil
}

func (p *Pipeline) ingestGame(ctx context.Context, gameID string, logger *slog.Logger) error {
	manifest, err := p.cfg.Loader.LoadManifest(ctx, gameID)
	if err != nil {
		return err
	}
	if err := p.writeAlbumDescriptor(manifest); err != nil {
		return err
	}

	p.loadSlideDocuments(ctx, manifest, logger)

	resolver := resolve.New(manifest)
	failedSlides := make(map[string]string)
	for _, slide := range manifest.Slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		if reason := p.processSlide(ctx, manifest, resolver, slide, logger); reason != "" {
			failedSlides[slide.ID.String()] = reason
		}
	}

	built, err := p.cfg.Builder.Build(manifest, failedSlides)
	if err != nil {
		return faults.ManifestInvalidf("build modules for album %s: %w", gameID, err)
	}

	if p.cfg.DryRun {
		logger.Info("dry run, skipping provisioning",
			logging.Int("modules", len(built)))
		return nil
	}
	return p.provision(ctx, manifest, built, logger)
}

// loadSlideDocuments fetches each slide's standalone document after the
// manifest itself, never before, and replaces the embedded slide with the
// fetched one. A slide document that cannot be fetched or parsed is a
// warning; the embedded slide still drives the build.
func (p *Pipeline) loadSlideDocuments(ctx context.Context, manifest *album.SrcManifest, logger *slog.Logger) {
	if p.cfg.Loader.Mode() != album.ModeRemote {
		return
	}
	for i := range manifest.Slides {
		slideID := manifest.Slides[i].ID.String()
		slide, err := p.cfg.Loader.LoadSlide(ctx, manifest.GameID, slideID)
		if err != nil {
			logger.Warn("slide document unavailable, using embedded slide",
				logging.String(logging.FieldSlideID, slideID),
				logging.Error(err))
			continue
		}
		manifest.Slides[i] = *slide
	}
}

// processSlide resolves and transcodes every asset on the slide. Asset
// failures degrade: missing sources are recorded, transport exhaustion
// warns, and the slide still reaches the module builder. A transcode
// failure additionally returns a non-empty reason so the builder emits the
// owning slide as legacy passthrough.
func (p *Pipeline) processSlide(ctx context.Context, manifest *album.SrcManifest, resolver *resolve.Resolver, slide album.Slide, logger *slog.Logger) (failReason string) {
	slideID := slide.ID.String()
	for _, ref := range assetRefs(slide) {
		resolved, err := resolver.Resolve(ref.path, ref.kind)
		if err != nil {
			logger.Warn("unresolvable asset reference",
				logging.String(logging.FieldSlideID, slideID),
				logging.String("ref", ref.path),
				logging.Error(err))
			continue
		}

		result, err := p.cfg.Transcoder.Process(ctx, manifest.GameID, slideID, resolved, ref.activity)
		if err != nil {
			if res, ok := faults.ResolutionOf(err); ok && res.Recordable() {
				p.mediaMissing.Add(1)
				p.record(resolved, res)
				continue
			}
			p.mediaMissing.Add(1)
			logger.Warn("asset transcode failed",
				logging.String(logging.FieldSlideID, slideID),
				logging.String(logging.FieldMediaID, resolved.UUID.String()),
				logging.Error(err))
			if class, ok := faults.ClassOf(err); ok && class == faults.TranscodeFailure && failReason == "" {
				failReason = fmt.Sprintf("transcode failed for %s: %v", ref.path, err)
			}
			continue
		}
		if resolved.Library == media.LibraryWeb || resolved.Kind == media.KindVideo {
			continue
		}
		if result.Skipped {
			p.mediaSkipped.Add(1)
			p.record(resolved, media.ResolutionAlreadyUpdated)
		} else {
			p.mediaWritten.Add(1)
			p.record(resolved, media.ResolutionSuccess)
		}
	}
	return failReason
}

func (p *Pipeline) record(asset resolve.Resolved, res media.Resolution) {
	if p.cfg.Records == nil {
		return
	}
	p.cfg.Records.Append(records.Record{
		ID:         asset.UUID.String(),
		Resolution: res,
		Library:    asset.Library,
	})
}

// provision creates the jig locally, persists its module documents, and
// optionally pushes the jig to the platform.
func (p *Pipeline) provision(ctx context.Context, manifest *album.SrcManifest, built []modules.Module, logger *slog.Logger) error {
	var cover *modules.Module
	inner := built
	if len(built) > 0 && built[0].Kind == modules.KindCover {
		cover = &built[0]
		inner = built[1:]
	}

	jigID, err := p.cfg.Store.CreateJIG(ctx, jig.CreateParams{
		DisplayName: displayName(manifest),
		Cover:       cover,
		Modules:     inner,
		CreatorID:   p.cfg.CreatorID,
	})
	if err != nil {
		return err
	}

	created, err := p.cfg.Store.GetJIG(ctx, jigID)
	if err != nil {
		return err
	}
	if err := p.writeJIGDocument(manifest.GameID, created); err != nil {
		return err
	}
	if err := p.writeModuleDocuments(manifest.GameID, created); err != nil {
		return err
	}
	p.provisioned.Add(1)
	logger.Info("provisioned jig",
		logging.String(logging.FieldJigID, jigID.String()),
		logging.Int("modules", len(created.Modules)))

	if p.cfg.Platform == nil {
		return nil
	}
	return p.pushRemote(ctx, manifest, created)
}

func (p *Pipeline) pushRemote(ctx context.Context, manifest *album.SrcManifest, created *jig.JIG) error {
	if p.jigGate != nil {
		if err := p.jigGate.Acquire(ctx, 1); err != nil {
			return err
		}
		defer p.jigGate.Release(1)
	}

	remoteID, err := p.cfg.Platform.CreateJIG(ctx, platform.CreateJIGRequest{
		DisplayName: created.DisplayName,
		CreatorID:   created.CreatorID,
		PublishAt:   created.PublishAt,
	})
	if err != nil {
		return err
	}

	workers := pool.New(p.cfg.ModulesBatch)
	for _, m := range created.Modules {
		m := m
		if err := workers.Submit(ctx, func(ctx context.Context) error {
			draftID, err := p.cfg.Platform.CreateModuleDraft(ctx, remoteID, m.Kind)
			if err != nil {
				return err
			}
			body := m.Body
			index := m.Index
			complete := m.Complete
			return p.cfg.Platform.UpdateModuleDraft(ctx, draftID, platform.ModuleDraftPatch{
				Body:     &body,
				Index:    &index,
				Complete: &complete,
			})
		}); err != nil {
			_ = workers.Wait()
			return err
		}
	}
	if err := workers.Wait(); err != nil {
		return err
	}
	p.logger.Info("pushed jig to platform",
		logging.String(logging.FieldGameID, manifest.GameID),
		logging.String(logging.FieldJigID, remoteID.String()))
	return nil
}

// writeAlbumDescriptor persists the reconciler-facing album summary.
func (p *Pipeline) writeAlbumDescriptor(manifest *album.SrcManifest) error {
	descriptor := struct {
		GameID   string `json:"game_id"`
		Name     string `json:"name,omitempty"`
		Language string `json:"language,omitempty"`
		Slides   int    `json:"slides"`
	}{
		GameID:   manifest.GameID,
		Name:     manifest.Name,
		Language: manifest.Language,
		Slides:   len(manifest.Slides),
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode album descriptor %s: %w", manifest.GameID, err)
	}
	path := filepath.Join(p.cfg.OutputDir, "albums", manifest.GameID+".json")
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("persist album descriptor %s: %w", manifest.GameID, err)
	}
	return nil
}

func (p *Pipeline) writeJIGDocument(gameID string, created *jig.JIG) error {
	doc := struct {
		ID          string   `json:"id"`
		GameID      string   `json:"game_id"`
		DisplayName string   `json:"display_name"`
		CreatorID   string   `json:"creator_id"`
		Modules     []string `json:"modules"`
	}{
		ID:          created.ID.String(),
		GameID:      gameID,
		DisplayName: created.DisplayName,
		CreatorID:   created.CreatorID,
	}
	for _, m := range created.Modules {
		doc.Modules = append(doc.Modules, m.ID.String())
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode jig document %s: %w", created.ID, err)
	}
	path := filepath.Join(p.cfg.OutputDir, "jigs", created.ID.String(), "jig.json")
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("persist jig document %s: %w", created.ID, err)
	}
	return nil
}

func (p *Pipeline) writeModuleDocuments(gameID string, created *jig.JIG) error {
	for _, m := range created.Modules {
		stored := modules.Stored{GameID: gameID, JIGID: created.ID, Module: m}
		data, err := json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return fmt.Errorf("encode module %s: %w", m.ID, err)
		}
		path := filepath.Join(p.cfg.OutputDir, "modules", created.ID.String(), m.ID.String()+".json")
		if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("persist module %s: %w", m.ID, err)
		}
	}
	return nil
}

func displayName(manifest *album.SrcManifest) string {
	if name := strings.TrimSpace(manifest.Name); name != "" {
		return name
	}
	return "Game " + manifest.GameID
}

func classOf(err error) string {
	class, _ := faults.ClassOf(err)
	return class.String()
}
