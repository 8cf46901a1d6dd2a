package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"jigpipe/internal/faults"
	"jigpipe/internal/fileutil"
	"jigpipe/internal/httpx"
	"jigpipe/internal/logging"
	"jigpipe/internal/media"
	"jigpipe/internal/resolve"
)

// Transcoder converts source assets into platform formats under the
// deterministic output layout.
type Transcoder struct {
	outputDir string
	client    *httpx.Client
	audio     AudioEncoder
	logger    *slog.Logger
}

// Result reports what one asset produced.
type Result struct {
	Written []string
	Skipped bool // every output already present with matching content
}

// New constructs a Transcoder rooted at outputDir.
func New(outputDir string, client *httpx.Client, audio AudioEncoder, logger *slog.Logger) *Transcoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcoder{
		outputDir: outputDir,
		client:    client,
		audio:     audio,
		logger:    logger.With(logging.String(logging.FieldComponent, "transcode")),
	}
}

// Process downloads and converts one resolved asset. Web-library assets and
// video references carry no bytes and return immediately.
func (t *Transcoder) Process(ctx context.Context, gameID, slideID string, asset resolve.Resolved, activity bool) (Result, error) {
	if asset.Library == media.LibraryWeb || asset.Kind == media.KindVideo {
		return Result{Skipped: true}, nil
	}
	if asset.TargetPath == "" {
		return Result{}, faults.TranscodeErr(fmt.Errorf("asset %s has no target path", asset.UUID))
	}

	data, err := t.download(ctx, asset.SourceURL)
	if err != nil {
		return Result{}, err
	}

	switch asset.Kind {
	case media.KindImage:
		return t.processStill(gameID, slideID, asset, activity, data)
	case media.KindAnimation:
		return t.processAnimation(gameID, slideID, asset, activity, data)
	case media.KindAudio:
		return t.processAudio(ctx, gameID, slideID, asset, activity, data)
	case media.KindPDF:
		dest := OutputPath(t.outputDir, gameID, slideID, asset.TargetPath, activity)
		return t.writeIdempotent(dest, data)
	default:
		return Result{}, faults.TranscodeErr(fmt.Errorf("unsupported asset kind %q", asset.Kind))
	}
}

func (t *Transcoder) processStill(gameID, slideID string, asset resolve.Resolved, activity bool, data []byte) (Result, error) {
	still, err := CanonicalizeStill(data)
	if err != nil {
		return Result{}, err
	}
	dest := OutputPath(t.outputDir, gameID, slideID, CanonicalRelPath(asset.TargetPath, still), activity)
	res, err := t.writeIdempotent(dest, still.Data)
	if err == nil && still.Reencoded {
		t.logger.Debug("re-encoded still image",
			logging.String(logging.FieldGameID, gameID),
			logging.String("path", dest))
	}
	return res, err
}

func (t *Transcoder) processAnimation(gameID, slideID string, asset resolve.Resolved, activity bool, data []byte) (Result, error) {
	anim, err := DecodeAnimation(data)
	if err != nil {
		return Result{}, err
	}

	stem := strings.TrimSuffix(asset.TargetPath, filepath.Ext(asset.TargetPath))
	var combined Result
	combined.Skipped = true

	merge := func(res Result, err error) error {
		if err != nil {
			return err
		}
		combined.Written = append(combined.Written, res.Written...)
		if !res.Skipped {
			combined.Skipped = false
		}
		return nil
	}

	streamDest := OutputPath(t.outputDir, gameID, slideID, asset.TargetPath, activity)
	if err := merge(t.writeIdempotent(streamDest, anim.Stream)); err != nil {
		return Result{}, err
	}

	timing, err := anim.TimingJSON()
	if err != nil {
		return Result{}, faults.TranscodeErr(fmt.Errorf("timing artifact: %w", err))
	}
	if err := merge(t.writeIdempotent(OutputPath(t.outputDir, gameID, slideID, stem+".timing.json", activity), timing)); err != nil {
		return Result{}, err
	}

	for i, frame := range anim.Frames {
		frameRel := fmt.Sprintf("%s/frame-%03d.png", stem, i)
		if err := merge(t.writeIdempotent(OutputPath(t.outputDir, gameID, slideID, frameRel, activity), frame.Data)); err != nil {
			return Result{}, err
		}
	}
	return combined, nil
}

func (t *Transcoder) processAudio(ctx context.Context, gameID, slideID string, asset resolve.Resolved, activity bool, data []byte) (Result, error) {
	dest := OutputPath(t.outputDir, gameID, slideID, asset.TargetPath, activity)
	if _, err := os.Stat(dest); err == nil {
		// Lossy encodes are not byte-stable, so presence is the skip signal.
		return Result{Skipped: true}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("create media directory: %w", err)
	}

	src, err := os.CreateTemp(filepath.Dir(dest), ".source-*")
	if err != nil {
		return Result{}, fmt.Errorf("stage source audio: %w", err)
	}
	srcName := src.Name()
	defer func() { _ = os.Remove(srcName) }()
	if _, err := src.Write(data); err != nil {
		_ = src.Close()
		return Result{}, fmt.Errorf("stage source audio: %w", err)
	}
	if err := src.Close(); err != nil {
		return Result{}, fmt.Errorf("stage source audio: %w", err)
	}

	if err := t.audio.Encode(ctx, srcName, dest); err != nil {
		return Result{}, err
	}
	return Result{Written: []string{dest}}, nil
}

func (t *Transcoder) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := t.client.Do(ctx, http.MethodGet, url, httpx.RequestOptions{NoAuth: true})
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		return nil, faults.ClassifiedErr(media.ResolutionNotFound, resp.Status)
	default:
		return nil, faults.TransportErr(fmt.Errorf("download %s: unexpected status %d", url, resp.Status))
	}
}

func (t *Transcoder) writeIdempotent(dest string, data []byte) (Result, error) {
	match, err := fileutil.ContentMatches(dest, data)
	if err != nil {
		return Result{}, fmt.Errorf("check existing output %s: %w", dest, err)
	}
	if match {
		return Result{Skipped: true}, nil
	}
	if err := fileutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return Result{}, err
	}
	return Result{Written: []string{dest}}, nil
}
