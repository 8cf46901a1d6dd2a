package pipeline_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"jigpipe/internal/album"
	"jigpipe/internal/httpx"
	"jigpipe/internal/jig"
	"jigpipe/internal/modules"
	"jigpipe/internal/pipeline"
	"jigpipe/internal/records"
	"jigpipe/internal/transcode"
)

const gameID = "1234"

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func slideDocument(baseURL, slideID string) (string, bool) {
	switch slideID {
	case "1":
		return `{"pk": 1, "filePath": "` + baseURL + `/bg.png"}`, true
	case "2":
		return `{"pk": 2, "filePath": "` + baseURL + `/bg.png", "layers": [
			{"type": "img", "filename": "` + baseURL + `/sticker.png", "transform": [1,0,0,1,10,20]}
		]}`, true
	}
	return "", false
}

func albumDocument(baseURL string) string {
	first, _ := slideDocument(baseURL, "1")
	second, _ := slideDocument(baseURL, "2")
	return `{
		"base_url": "` + baseURL + `",
		"structure": {
			"pk": ` + gameID + `,
			"slides": [` + first + `, ` + second + `]
		},
		"album_store": {"album": {"pk": ` + gameID + `, "fields": {"language": 2, "name": "Alef Bet"}}}
	}`
}

type env struct {
	outputDir  string
	store      *jig.Store
	records    *records.Store
	recordPath string
	pipeline   *pipeline.Pipeline
}

func newEnv(t *testing.T, dryRun bool) *env {
	t.Helper()
	return newEnvServing(t, dryRun, pngBytes(t))
}

func newEnvServing(t *testing.T, dryRun bool, still []byte) *env {
	t.Helper()

	slidePrefix := "/store/api/album/" + gameID + "/slide/"
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/store/api/album/"+gameID+"/structure/":
			_, _ = w.Write([]byte(albumDocument(server.URL + "/media")))
		case strings.HasPrefix(r.URL.Path, slidePrefix):
			slideID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, slidePrefix), "/structure/")
			doc, ok := slideDocument(server.URL+"/media", slideID)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(doc))
		case strings.HasPrefix(r.URL.Path, "/media/"):
			_, _ = w.Write(still)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	outputDir := t.TempDir()
	client := httpx.New(httpx.Config{Attempts: 2, BaseDelay: time.Millisecond})
	store, err := jig.Open(filepath.Join(outputDir, "jigs.db"))
	if err != nil {
		t.Fatalf("open jig store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	recordPath := filepath.Join(outputDir, "records.csv")
	recordStore, err := records.Open(recordPath, nil)
	if err != nil {
		t.Fatalf("open record store: %v", err)
	}

	p := pipeline.New(pipeline.Config{
		OutputDir:  outputDir,
		Loader:     album.NewLoader(server.URL, outputDir, album.ModeRemote, client, nil),
		Transcoder: transcode.New(outputDir, client, transcode.AudioEncoder{}, nil),
		Builder:    modules.NewBuilder(nil),
		Store:      store,
		Records:    recordStore,
		Width:      2,
		DryRun:     dryRun,
		CreatorID:  "importer",
	})
	return &env{outputDir: outputDir, store: store, records: recordStore, recordPath: recordPath, pipeline: p}
}

func TestIngestEndToEnd(t *testing.T) {
	e := newEnv(t, false)

	summary, err := e.pipeline.Run(context.Background(), []string{gameID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := e.records.Close(); err != nil {
		t.Fatalf("close records: %v", err)
	}

	if summary.Games != 1 || summary.Failed != 0 || summary.Provisioned != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	// The raw album document is persisted next to the descriptor, and each
	// slide document lands after it.
	if _, err := os.Stat(album.GamePath(e.outputDir, gameID)); err != nil {
		t.Fatalf("album document not persisted: %v", err)
	}
	for _, slideID := range []string{"1", "2"} {
		if _, err := os.Stat(album.SlidePath(e.outputDir, gameID, slideID)); err != nil {
			t.Fatalf("slide document %s not persisted: %v", slideID, err)
		}
	}
	if _, err := os.Stat(filepath.Join(e.outputDir, "albums", gameID+".json")); err != nil {
		t.Fatalf("album descriptor not written: %v", err)
	}

	// The background lands once per slide plus the sticker, all Success.
	csv, err := os.ReadFile(e.recordPath)
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	lines := strings.Fields(strings.TrimSpace(string(csv)))
	if len(lines) != 3 {
		t.Fatalf("expected 3 record lines, got %q", string(csv))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, ",Success,Global") {
			t.Fatalf("unexpected record line %q", line)
		}
	}

	// Module documents land under modules/<jig_id>/ and include the game id.
	moduleDirs, err := os.ReadDir(filepath.Join(e.outputDir, "modules"))
	if err != nil || len(moduleDirs) != 1 {
		t.Fatalf("expected one jig module directory, got %v (%v)", moduleDirs, err)
	}
	docs, err := os.ReadDir(filepath.Join(e.outputDir, "modules", moduleDirs[0].Name()))
	if err != nil {
		t.Fatalf("read module documents: %v", err)
	}
	// Cover from slide one, poster from slide two, materialised ending.
	if len(docs) != 3 {
		t.Fatalf("expected 3 module documents, got %d", len(docs))
	}

	jigPath := filepath.Join(e.outputDir, "jigs", moduleDirs[0].Name(), "jig.json")
	if _, err := os.Stat(jigPath); err != nil {
		t.Fatalf("jig document not written: %v", err)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	e := newEnv(t, false)

	if _, err := e.pipeline.Run(context.Background(), []string{gameID}); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	summary, err := e.pipeline.Run(context.Background(), []string{gameID})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	_ = e.records.Close()

	// Media outputs already match by hash, so the rerun records AlreadyUpdated.
	if summary.MediaWritten != 3 || summary.MediaSkipped != 3 {
		t.Fatalf("unexpected summary after rerun %+v", summary)
	}
	csv, _ := os.ReadFile(e.recordPath)
	if !strings.Contains(string(csv), ",AlreadyUpdated,Global") {
		t.Fatalf("rerun should record AlreadyUpdated, got %q", string(csv))
	}
}

func TestUndecodableMediaEmitsSlidesAsLegacy(t *testing.T) {
	e := newEnvServing(t, false, []byte("these bytes are not an image"))

	summary, err := e.pipeline.Run(context.Background(), []string{gameID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	_ = e.records.Close()

	// The game still provisions, but every slide whose media failed to
	// transcode comes through as an incomplete legacy module.
	if summary.Provisioned != 1 || summary.MediaMissing == 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	moduleDirs, err := os.ReadDir(filepath.Join(e.outputDir, "modules"))
	if err != nil || len(moduleDirs) != 1 {
		t.Fatalf("expected one jig module directory, got %v (%v)", moduleDirs, err)
	}
	jigDir := filepath.Join(e.outputDir, "modules", moduleDirs[0].Name())
	docs, err := os.ReadDir(jigDir)
	if err != nil {
		t.Fatalf("read module documents: %v", err)
	}

	legacy := 0
	for _, doc := range docs {
		data, err := os.ReadFile(filepath.Join(jigDir, doc.Name()))
		if err != nil {
			t.Fatalf("read module %s: %v", doc.Name(), err)
		}
		var stored modules.Stored
		if err := json.Unmarshal(data, &stored); err != nil {
			t.Fatalf("decode module %s: %v", doc.Name(), err)
		}
		switch stored.Module.Kind {
		case modules.KindCover, modules.KindPoster:
			t.Fatalf("slide with failed media kept kind %s", stored.Module.Kind)
		case modules.KindLegacy:
			legacy++
			if stored.Module.Complete {
				t.Fatalf("legacy module %s marked complete", doc.Name())
			}
			if stored.Module.Body.Legacy == nil || stored.Module.Body.Legacy.Reason == "" {
				t.Fatalf("legacy module %s has no failure reason", doc.Name())
			}
		}
	}
	if legacy != 2 {
		t.Fatalf("both slides should degrade to legacy, got %d", legacy)
	}
}

func TestDryRunSkipsProvisioning(t *testing.T) {
	e := newEnv(t, true)

	summary, err := e.pipeline.Run(context.Background(), []string{gameID})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	_ = e.records.Close()

	if summary.Provisioned != 0 {
		t.Fatalf("dry run must not provision, got %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(e.outputDir, "modules")); !os.IsNotExist(err) {
		t.Fatal("dry run must not write module documents")
	}
}

func TestMissingAlbumIsLocalisedFailure(t *testing.T) {
	e := newEnv(t, false)

	summary, err := e.pipeline.Run(context.Background(), []string{"9999", gameID})
	_ = e.records.Close()
	if err == nil {
		t.Fatal("expected the missing album to surface an error")
	}
	// The healthy sibling still completes.
	if summary.Failed != 1 || summary.Provisioned != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
