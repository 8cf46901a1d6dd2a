package modules_test

import (
	"testing"

	json "github.com/goccy/go-json"

	"jigpipe/internal/album"
	"jigpipe/internal/modules"
)

func manifestWith(slides ...album.Slide) *album.SrcManifest {
	return &album.SrcManifest{GameID: "42", BaseURL: "https://cdn.example.com/albums/42", Slides: slides}
}

func TestFirstSlideWithoutActivityBecomesCover(t *testing.T) {
	built, err := modules.NewBuilder(nil).Build(manifestWith(
		album.Slide{ID: "1", FilePath: "cover.jpg"},
		album.Slide{ID: "2", FilePath: "poster.jpg"},
	), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if built[0].Kind != modules.KindCover {
		t.Fatalf("first slide should be cover, got %s", built[0].Kind)
	}
	if built[1].Kind != modules.KindPoster {
		t.Fatalf("later decorative slide should be poster, got %s", built[1].Kind)
	}
}

func TestActivityMappingTable(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	slides := []album.Slide{
		{ID: "1"},
		{ID: "2", Activity: &album.Activity{Kind: album.ActivityTapReveal, Traces: []album.Trace{
			{Kind: "ellipse", Ellipse: &album.Ellipse{X: 1, Y: 2, W: 3, H: 4}},
		}}},
		{ID: "3", Activity: &album.Activity{Kind: album.ActivityMatching, Pairs: []album.Pair{{Left: "a", Right: "b"}}}},
		{ID: "4", Activity: &album.Activity{Kind: album.ActivityMatching, Memory: true}},
		{ID: "5", Activity: &album.Activity{Kind: album.ActivityVideo, Video: &album.VideoSource{YouTubeID: "abc", ClipStart: f(0), ClipEnd: f(10)}}},
		{ID: "6", Activity: &album.Activity{Kind: album.ActivityQuiz, Cards: []album.QuizCard{{Question: "q", Answers: []string{"a"}, Correct: 0}}}},
	}
	built, err := modules.NewBuilder(nil).Build(manifestWith(slides...), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []modules.Kind{
		modules.KindCover,
		modules.KindTappingBoard,
		modules.KindMatching,
		modules.KindMemory,
		modules.KindVideo,
		modules.KindCardQuiz,
	}
	for i, kind := range want {
		if built[i].Kind != kind {
			t.Fatalf("slide %d: want %s, got %s", i, kind, built[i].Kind)
		}
	}
}

func TestIndicesDenseInSlideOrder(t *testing.T) {
	built, err := modules.NewBuilder(nil).Build(manifestWith(
		album.Slide{ID: "1"}, album.Slide{ID: "2"}, album.Slide{ID: "3"},
	), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i, module := range built {
		if module.Index != uint16(i) {
			t.Fatalf("module %d has index %d", i, module.Index)
		}
	}
}

func TestUnknownActivityDegradesToLegacy(t *testing.T) {
	built, err := modules.NewBuilder(nil).Build(manifestWith(
		album.Slide{ID: "1", Activity: &album.Activity{Kind: "soundboard"}},
	), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	m := built[0]
	if m.Kind != modules.KindLegacy {
		t.Fatalf("unknown activity should degrade to legacy, got %s", m.Kind)
	}
	if m.Body.Legacy == nil || m.Body.Legacy.GameID != "42" || m.Body.Legacy.SlideID != "1" {
		t.Fatalf("legacy body incomplete: %+v", m.Body.Legacy)
	}
	var raw map[string]any
	if err := json.Unmarshal(m.Body.Legacy.Raw, &raw); err != nil {
		t.Fatalf("legacy raw payload must embed the slide document: %v", err)
	}
}

func TestTranscodeFailedSlidesDegradeToLegacy(t *testing.T) {
	built, err := modules.NewBuilder(nil).Build(manifestWith(
		album.Slide{ID: "1", FilePath: "cover.jpg"},
		album.Slide{ID: "2", FilePath: "poster.jpg"},
	), map[string]string{"2": "transcode failed for poster.jpg: short read"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if built[0].Kind != modules.KindCover {
		t.Fatalf("healthy slide should keep its kind, got %s", built[0].Kind)
	}
	m := built[1]
	if m.Kind != modules.KindLegacy || m.Complete {
		t.Fatalf("failed slide should be incomplete legacy, got %s complete=%v", m.Kind, m.Complete)
	}
	if m.Body.Legacy == nil || m.Body.Legacy.Reason != "transcode failed for poster.jpg: short read" {
		t.Fatalf("legacy body should carry the failure reason: %+v", m.Body.Legacy)
	}
	if m.Index != 1 {
		t.Fatalf("legacy module keeps the slide's index, got %d", m.Index)
	}
}

func TestInvalidVideoClipDegradesToLegacy(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	built, err := modules.NewBuilder(nil).Build(manifestWith(
		album.Slide{ID: "1", Activity: &album.Activity{Kind: album.ActivityVideo, Video: &album.VideoSource{YouTubeID: "abc", ClipStart: f(9), ClipEnd: f(3)}}},
	), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if built[0].Kind != modules.KindLegacy {
		t.Fatalf("invalid clip should degrade to legacy, got %s", built[0].Kind)
	}
}

func TestTextStickerKeepsHTMLVerbatim(t *testing.T) {
	payload := `<p style="color:red">שלום <b>world</b></p>`
	built, err := modules.NewBuilder(nil).Build(manifestWith(
		album.Slide{ID: "1", Layers: []album.Layer{
			{Kind: album.LayerText, HTML: payload, Transform: album.Matrix{2, 0, 0, 2, 5, 6}},
		}},
	), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	body := built[0].Body.Cover
	if body == nil || len(body.Stickers) != 1 {
		t.Fatalf("expected one sticker, got %+v", body)
	}
	if body.Stickers[0].HTML != payload {
		t.Fatalf("rich text must survive verbatim, got %q", body.Stickers[0].HTML)
	}
	if body.Stickers[0].Transform != (modules.Transform{ScaleX: 2, ScaleY: 2, TranslateX: 5, TranslateY: 6}) {
		t.Fatalf("unexpected transform %+v", body.Stickers[0].Transform)
	}
}

func TestShapeFromTrace(t *testing.T) {
	ellipse, ok := modules.ShapeFromTrace(album.Trace{Kind: "ellipse", Ellipse: &album.Ellipse{X: 1, Y: 2, W: 3, H: 4}})
	if !ok || ellipse.Ellipse == nil || ellipse.Ellipse.W != 3 {
		t.Fatalf("ellipse conversion failed: %+v %v", ellipse, ok)
	}

	path, ok := modules.ShapeFromTrace(album.Trace{Kind: "path", Path: []album.PathPoint{{X: 1, Y: 1}, {X: 2, Y: 2}}})
	if !ok || path.Path == nil || len(path.Path.Points) != 2 {
		t.Fatalf("path conversion failed: %+v %v", path, ok)
	}

	if _, ok := modules.ShapeFromTrace(album.Trace{Kind: "star"}); ok {
		t.Fatal("unknown trace kinds must not convert")
	}
}

func TestNewDesignPageIsEmptyAndComplete(t *testing.T) {
	page := modules.NewDesignPage(0)
	if page.Kind != modules.KindDesignPage || !page.Complete {
		t.Fatalf("unexpected design page %+v", page)
	}
	if page.Body.DesignPage == nil || len(page.Body.DesignPage.Stickers) != 0 {
		t.Fatalf("design page body should be empty, got %+v", page.Body.DesignPage)
	}
}
