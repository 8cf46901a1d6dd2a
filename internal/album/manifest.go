package album

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"jigpipe/internal/faults"
)

// Matrix is a 2-D affine transform as the 6-tuple (a, b, c, d, tx, ty).
type Matrix [6]float64

// Identity is the no-op transform.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// UnmarshalJSON accepts a 6-element array or JSON null; null and absent
// values both decode to the identity transform.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*m = Identity
		return nil
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("transform matrix: %w", err)
	}
	if len(values) != 6 {
		return fmt.Errorf("transform matrix: want 6 values, got %d", len(values))
	}
	copy(m[:], values)
	return nil
}

// PathPoint is one vertex of a trace outline.
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ellipse is a trace shape described by its bounding box.
type Ellipse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Trace is one interactive region on a slide.
type Trace struct {
	Kind      string      `json:"kind"` // ellipse, path
	Ellipse   *Ellipse    `json:"ellipse,omitempty"`
	Path      []PathPoint `json:"path"`
	Transform Matrix      `json:"transform"`
	Audio     string      `json:"audio,omitempty"`
	Text      string      `json:"text,omitempty"`
}

// Pair is one matching-pair entry.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	Audio string `json:"audio,omitempty"`
}

// VideoSource references the played video; bytes are never downloaded.
type VideoSource struct {
	YouTubeID string   `json:"youtube_id,omitempty"`
	URL       string   `json:"url,omitempty"`
	ClipStart *float64 `json:"clip_start,omitempty"`
	ClipEnd   *float64 `json:"clip_end,omitempty"`
}

// QuizCard is one card of a card-based quiz activity.
type QuizCard struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Correct  int      `json:"correct"`
	Image    string   `json:"image,omitempty"`
	Audio    string   `json:"audio,omitempty"`
}

// Activity kinds found in album documents.
const (
	ActivityTapReveal = "tap-reveal"
	ActivityMatching  = "matching"
	ActivityVideo     = "video"
	ActivityQuiz      = "quiz"
)

// Activity is the optional interactive descriptor on a slide.
type Activity struct {
	Kind   string       `json:"kind"`
	Traces []Trace      `json:"traces,omitempty"`
	Pairs  []Pair       `json:"pairs,omitempty"`
	Memory bool         `json:"memory,omitempty"` // matching plays as memory when set
	Video  *VideoSource `json:"video,omitempty"`
	Cards  []QuizCard   `json:"cards,omitempty"`
	Audio  string       `json:"audio,omitempty"`
}

// Layer kinds found in album documents.
const (
	LayerBackground = "bg"
	LayerSticker    = "img"
	LayerText       = "txt"
	LayerAnimation  = "anim"
)

// Layer is one design element of a slide.
type Layer struct {
	Kind            string `json:"type"`
	Filename        string `json:"filename,omitempty"`
	HTML            string `json:"html,omitempty"` // serialised rich text, kept verbatim
	Audio           string `json:"audio,omitempty"`
	Loop            bool   `json:"loop,omitempty"`
	Transform       Matrix `json:"transform"`
	OriginTransform Matrix `json:"originTransform"`
}

// Slide is one screen of an album. The pk arrives numeric in some documents
// and quoted in others.
type Slide struct {
	ID       json.Number `json:"pk"`
	FilePath string      `json:"filePath,omitempty"`
	Layers   []Layer     `json:"layers,omitempty"`
	Activity *Activity   `json:"activity,omitempty"`
}

// SrcManifest is the resolved internal form of a third-party album. Slides
// start as the manifest-embedded copies and may be replaced by their
// standalone documents before processing.
type SrcManifest struct {
	GameID   string
	BaseURL  string
	Name     string
	Language string // ISO tag, empty when the source code is unknown
	Slides   []Slide
}

type rawAlbumFields struct {
	Language *int   `json:"language"`
	Name     string `json:"name"`
}

type rawAlbum struct {
	PK     json.Number    `json:"pk"`
	Fields rawAlbumFields `json:"fields"`
}

type rawAlbumStore struct {
	Album rawAlbum `json:"album"`
}

type rawStructure struct {
	PK     json.Number `json:"pk"`
	Slides []Slide     `json:"slides"`
}

type rawDocument struct {
	BaseURL    string        `json:"base_url"`
	Structure  rawStructure  `json:"structure"`
	AlbumStore rawAlbumStore `json:"album_store"`
}

// Normalize applies the textual quirk fixes third-party album documents
// need before they parse as JSON. Order matters.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, `"path": {}`, `"path": []`)
	text = strings.ReplaceAll(text, `"originTransform": "null"`, `"originTransform": [1,0,0,1,0,0]`)
	text = strings.ReplaceAll(text, `"transform": "null"`, `"transform": [1,0,0,1,0,0]`)
	return text
}

// Parse normalises and decodes an album document, asserting that the
// document describes the requested game.
func Parse(gameID string, text string, warn func(msg string)) (*SrcManifest, error) {
	var doc rawDocument
	if err := json.Unmarshal([]byte(Normalize(text)), &doc); err != nil {
		return nil, faults.ManifestInvalidf("parse album %s: %w", gameID, err)
	}
	if doc.BaseURL == "" {
		return nil, faults.ManifestInvalidf("album %s: missing base_url", gameID)
	}
	albumPK := doc.AlbumStore.Album.PK.String()
	if albumPK != gameID {
		return nil, faults.ManifestInvalidf("album id mismatch: requested %s, document says %s", gameID, albumPK)
	}

	lang := ""
	if doc.AlbumStore.Album.Fields.Language != nil {
		lang = LanguageTag(*doc.AlbumStore.Album.Fields.Language, warn)
	}

	return &SrcManifest{
		GameID:   gameID,
		BaseURL:  strings.TrimRight(doc.BaseURL, "/"),
		Name:     doc.AlbumStore.Album.Fields.Name,
		Language: lang,
		Slides:   doc.Structure.Slides,
	}, nil
}

// ParseSlide normalises and decodes a standalone slide document.
func ParseSlide(gameID, slideID string, text string) (*Slide, error) {
	var slide Slide
	if err := json.Unmarshal([]byte(Normalize(text)), &slide); err != nil {
		return nil, faults.ManifestInvalidf("parse slide %s of album %s: %w", slideID, gameID, err)
	}
	if slide.ID == "" {
		slide.ID = json.Number(slideID)
	}
	return &slide, nil
}
