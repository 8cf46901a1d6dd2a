package modules

import (
	"github.com/google/uuid"

	"jigpipe/internal/transcode"
)

// Kind tags a module by the activity it plays.
type Kind string

const (
	KindCover        Kind = "cover"
	KindTappingBoard Kind = "tapping-board"
	KindMatching     Kind = "matching"
	KindMemory       Kind = "memory"
	KindVideo        Kind = "video"
	KindCardQuiz     Kind = "card-quiz"
	KindPoster       Kind = "poster"
	KindLegacy       Kind = "legacy"
	KindDesignPage   Kind = "design-page"
)

// Module is one playable unit of a jig.
type Module struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	Index    uint16    `json:"index"`
	Complete bool      `json:"complete"`
	Body     Body      `json:"body"`
}

// Stored is the on-disk form of a provisioned module, written under
// modules/<jig_id>/<module_id>.json. The game id travels with every
// module so the reconciler can cross-reference jigs against albums.
type Stored struct {
	GameID string    `json:"game_id"`
	JIGID  uuid.UUID `json:"jig_id"`
	Module Module    `json:"module"`
}

// Body is the kind-typed payload. Exactly one field is set, matching Kind.
type Body struct {
	Cover        *DesignBody       `json:"cover,omitempty"`
	TappingBoard *TappingBoardBody `json:"tapping_board,omitempty"`
	Matching     *MatchingBody     `json:"matching,omitempty"`
	Video        *VideoBody        `json:"video,omitempty"`
	CardQuiz     *CardQuizBody     `json:"card_quiz,omitempty"`
	Poster       *DesignBody       `json:"poster,omitempty"`
	Legacy       *LegacyBody       `json:"legacy,omitempty"`
	DesignPage   *DesignBody       `json:"design_page,omitempty"`
}

// Sticker is one placed design element.
type Sticker struct {
	Filename  string    `json:"filename,omitempty"`
	HTML      string    `json:"html,omitempty"` // rich text payload, verbatim from the source
	Audio     string    `json:"audio,omitempty"`
	Loop      bool      `json:"loop,omitempty"`
	Transform Transform `json:"transform"`
}

// DesignBody is the shared payload of cover, poster, and design-page modules.
type DesignBody struct {
	Background string    `json:"background,omitempty"`
	Stickers   []Sticker `json:"stickers,omitempty"`
	Audio      string    `json:"audio,omitempty"`
}

// TapTarget is one revealable trace on a tapping board.
type TapTarget struct {
	Shape     Shape     `json:"shape"`
	Transform Transform `json:"transform"`
	Audio     string    `json:"audio,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// TappingBoardBody holds the design plus its tap targets.
type TappingBoardBody struct {
	Design  DesignBody  `json:"design"`
	Targets []TapTarget `json:"targets"`
}

// MatchPair is one card pair for matching or memory play.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	Audio string `json:"audio,omitempty"`
}

// MatchingBody holds the pairs; the module kind decides matching vs memory.
type MatchingBody struct {
	Design DesignBody  `json:"design"`
	Pairs  []MatchPair `json:"pairs"`
}

// VideoBody links the played video; no bytes are stored.
type VideoBody struct {
	Design    DesignBody `json:"design"`
	YouTubeID string     `json:"youtube_id,omitempty"`
	URL       string     `json:"url,omitempty"`
	ClipStart *float64   `json:"clip_start,omitempty"`
	ClipEnd   *float64   `json:"clip_end,omitempty"`
}

// CardQuizBody holds the quiz cards.
type CardQuizBody struct {
	Design DesignBody `json:"design"`
	Cards  []QuizCard `json:"cards"`
}

// QuizCard is one question with its answer set.
type QuizCard struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Correct  int      `json:"correct"`
	Image    string   `json:"image,omitempty"`
	Audio    string   `json:"audio,omitempty"`
}

// LegacyBody embeds the raw slide document when a slide cannot be converted.
// This is a non-fatal degradation, not an error path.
type LegacyBody struct {
	GameID  string `json:"game_id"`
	SlideID string `json:"slide_id"`
	Raw     []byte `json:"raw"`
	Reason  string `json:"reason,omitempty"`
}

// NewDesignPage materialises an empty design-page module for a missing
// cover or ending.
func NewDesignPage(index uint16) Module {
	return Module{
		ID:       uuid.New(),
		Kind:     KindDesignPage,
		Index:    index,
		Complete: true,
		Body:     Body{DesignPage: &DesignBody{}},
	}
}

// VideoBodyFromRef builds a video body from a validated reference.
func VideoBodyFromRef(design DesignBody, ref transcode.VideoRef) *VideoBody {
	return &VideoBody{
		Design:    design,
		YouTubeID: ref.YouTubeID,
		URL:       ref.URL,
		ClipStart: ref.ClipStart,
		ClipEnd:   ref.ClipEnd,
	}
}
