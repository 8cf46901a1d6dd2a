package album

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"jigpipe/internal/faults"
	"jigpipe/internal/fileutil"
	"jigpipe/internal/httpx"
	"jigpipe/internal/logging"
)

// Mode selects where album documents come from.
type Mode int

const (
	// ModeDisk reads previously persisted documents from the output tree.
	ModeDisk Mode = iota
	// ModeRemote fetches documents from the album store and persists them.
	ModeRemote
)

// Loader fetches or reads album documents and resolves them into manifests.
type Loader struct {
	origin    string
	outputDir string
	mode      Mode
	client    *httpx.Client
	logger    *slog.Logger
}

// NewLoader constructs a Loader. client may be nil in ModeDisk.
func NewLoader(origin, outputDir string, mode Mode, client *httpx.Client, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{
		origin:    origin,
		outputDir: outputDir,
		mode:      mode,
		client:    client,
		logger:    logger.With(logging.String(logging.FieldComponent, "album")),
	}
}

// Mode reports where this loader sources its documents.
func (l *Loader) Mode() Mode {
	return l.mode
}

// GamePath returns the persisted location of an album document.
func GamePath(outputDir, gameID string) string {
	return filepath.Join(outputDir, "games", gameID, "json", "game.json")
}

// SlidePath returns the persisted location of a slide document.
func SlidePath(outputDir, gameID, slideID string) string {
	return filepath.Join(outputDir, "games", gameID, "json", "slides", slideID+".json")
}

// LoadManifest loads and parses the album document for gameID. In remote
// mode the raw text is persisted atomically on success.
func (l *Loader) LoadManifest(ctx context.Context, gameID string) (*SrcManifest, error) {
	text, err := l.fetch(ctx, l.manifestURL(gameID), GamePath(l.outputDir, gameID), gameID)
	if err != nil {
		return nil, err
	}
	warn := func(msg string) {
		l.logger.Warn(msg, logging.String(logging.FieldGameID, gameID))
	}
	manifest, err := Parse(gameID, text, warn)
	if err != nil {
		return nil, err
	}
	if l.mode == ModeRemote {
		if err := fileutil.WriteFileAtomic(GamePath(l.outputDir, gameID), []byte(text), 0o644); err != nil {
			return nil, fmt.Errorf("persist album %s: %w", gameID, err)
		}
	}
	l.logger.Info("loaded album manifest",
		logging.String(logging.FieldGameID, gameID),
		logging.Int("slides", len(manifest.Slides)),
		logging.String("language", manifest.Language))
	return manifest, nil
}

// LoadSlide loads and parses one slide document of the album.
func (l *Loader) LoadSlide(ctx context.Context, gameID, slideID string) (*Slide, error) {
	text, err := l.fetch(ctx, l.slideURL(gameID, slideID), SlidePath(l.outputDir, gameID, slideID), gameID)
	if err != nil {
		return nil, err
	}
	slide, err := ParseSlide(gameID, slideID, text)
	if err != nil {
		return nil, err
	}
	if l.mode == ModeRemote {
		if err := fileutil.WriteFileAtomic(SlidePath(l.outputDir, gameID, slideID), []byte(text), 0o644); err != nil {
			return nil, fmt.Errorf("persist slide %s of album %s: %w", slideID, gameID, err)
		}
	}
	return slide, nil
}

type albumListPage struct {
	Albums []struct {
		PK json.Number `json:"pk"`
	} `json:"albums"`
	Pages int `json:"pages"`
}

// ListAlbums walks the store's paginated album index and returns every
// album id. Listing always goes to the store, regardless of mode.
func (l *Loader) ListAlbums(ctx context.Context, perPage int) ([]string, error) {
	if l.client == nil {
		return nil, faults.Configf("album listing requires a remote client")
	}
	if perPage < 1 {
		perPage = 100
	}
	var ids []string
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/store/api/album/?page=%d&per_page=%d", l.origin, page, perPage)
		resp, err := l.client.Do(ctx, http.MethodGet, url, httpx.RequestOptions{NoAuth: true})
		if err != nil {
			return nil, err
		}
		if resp.Status != http.StatusOK {
			return nil, faults.TransportErr(fmt.Errorf("list albums page %d: unexpected status %d", page, resp.Status))
		}
		var doc albumListPage
		if err := json.Unmarshal(resp.Body, &doc); err != nil {
			return nil, faults.ManifestInvalidf("album listing page %d: %w", page, err)
		}
		for _, entry := range doc.Albums {
			ids = append(ids, entry.PK.String())
		}
		if len(doc.Albums) == 0 || page >= doc.Pages {
			break
		}
	}
	l.logger.Info("listed albums", logging.Int("count", len(ids)))
	return ids, nil
}

func (l *Loader) manifestURL(gameID string) string {
	return fmt.Sprintf("%s/store/api/album/%s/structure/", l.origin, gameID)
}

func (l *Loader) slideURL(gameID, slideID string) string {
	return fmt.Sprintf("%s/store/api/album/%s/slide/%s/structure/", l.origin, gameID, slideID)
}

func (l *Loader) fetch(ctx context.Context, url, diskPath, gameID string) (string, error) {
	if l.mode == ModeDisk {
		data, err := os.ReadFile(diskPath)
		if err != nil {
			return "", fmt.Errorf("read album document %s: %w", diskPath, err)
		}
		return string(data), nil
	}

	resp, err := l.client.Do(ctx, http.MethodGet, url, httpx.RequestOptions{NoAuth: true})
	if err != nil {
		return "", err
	}
	switch resp.Status {
	case http.StatusOK:
		return string(resp.Body), nil
	case http.StatusNotFound:
		return "", faults.ManifestInvalidf("album %s: document missing at %s", gameID, url)
	default:
		return "", faults.TransportErr(fmt.Errorf("fetch %s: unexpected status %d", url, resp.Status))
	}
}
