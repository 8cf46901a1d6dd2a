package modules

import (
	"fmt"
	"log/slog"
	"math"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"jigpipe/internal/album"
	"jigpipe/internal/logging"
	"jigpipe/internal/transcode"
)

// Builder maps resolved slides to target modules.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{logger: logger.With(logging.String(logging.FieldComponent, "modules"))}
}

// Build converts every slide of the manifest into a module. Module order
// equals slide order and indices are dense from zero. Slides that cannot be
// converted, and slides listed in failed (slide id to reason, typically from
// transcode failures upstream), degrade to legacy passthrough instead of
// failing the game.
func (b *Builder) Build(manifest *album.SrcManifest, failed map[string]string) ([]Module, error) {
	if len(manifest.Slides) > math.MaxUint16 {
		return nil, fmt.Errorf("album %s has %d slides, index space is 16-bit", manifest.GameID, len(manifest.Slides))
	}

	out := make([]Module, 0, len(manifest.Slides))
	for i, slide := range manifest.Slides {
		module := b.buildSlide(manifest, i, slide, failed)
		module.Index = uint16(i)
		out = append(out, module)
	}
	return out, nil
}

func (b *Builder) buildSlide(manifest *album.SrcManifest, index int, slide album.Slide, failed map[string]string) Module {
	if reason, ok := failed[slide.ID.String()]; ok {
		return b.legacy(manifest, slide, reason)
	}

	module := Module{ID: uuid.New(), Complete: true}

	design, ok := designFromLayers(slide)
	if !ok {
		return b.legacy(manifest, slide, "unknown design element")
	}

	if slide.Activity == nil {
		if index == 0 {
			module.Kind = KindCover
			module.Body = Body{Cover: &design}
		} else {
			module.Kind = KindPoster
			module.Body = Body{Poster: &design}
		}
		return module
	}

	switch slide.Activity.Kind {
	case album.ActivityTapReveal:
		body, ok := tappingBoardFromActivity(design, slide.Activity)
		if !ok {
			return b.legacy(manifest, slide, "unconvertible trace geometry")
		}
		module.Kind = KindTappingBoard
		module.Body = Body{TappingBoard: body}
	case album.ActivityMatching:
		module.Kind = KindMatching
		if slide.Activity.Memory {
			module.Kind = KindMemory
		}
		module.Body = Body{Matching: matchingFromActivity(design, slide.Activity)}
	case album.ActivityVideo:
		ref, err := transcode.ResolveVideo(slide.Activity.Video)
		if err != nil {
			return b.legacy(manifest, slide, err.Error())
		}
		module.Kind = KindVideo
		module.Body = Body{Video: VideoBodyFromRef(design, ref)}
	case album.ActivityQuiz:
		module.Kind = KindCardQuiz
		module.Body = Body{CardQuiz: quizFromActivity(design, slide.Activity)}
	default:
		return b.legacy(manifest, slide, fmt.Sprintf("unknown activity kind %q", slide.Activity.Kind))
	}
	return module
}

func (b *Builder) legacy(manifest *album.SrcManifest, slide album.Slide, reason string) Module {
	raw, err := json.Marshal(slide)
	if err != nil {
		raw = []byte("{}")
	}
	b.logger.Warn("emitting slide as legacy passthrough",
		logging.String(logging.FieldGameID, manifest.GameID),
		logging.String(logging.FieldSlideID, slide.ID.String()),
		logging.String("reason", reason))
	return Module{
		ID:       uuid.New(),
		Kind:     KindLegacy,
		Complete: false,
		Body: Body{Legacy: &LegacyBody{
			GameID:  manifest.GameID,
			SlideID: slide.ID.String(),
			Raw:     raw,
			Reason:  reason,
		}},
	}
}

func designFromLayers(slide album.Slide) (DesignBody, bool) {
	design := DesignBody{Background: slide.FilePath}
	for _, layer := range slide.Layers {
		switch layer.Kind {
		case album.LayerBackground:
			design.Background = layer.Filename
		case album.LayerSticker, album.LayerAnimation:
			design.Stickers = append(design.Stickers, Sticker{
				Filename:  layer.Filename,
				Audio:     layer.Audio,
				Loop:      layer.Loop,
				Transform: FromMatrix(layer.Transform),
			})
		case album.LayerText:
			design.Stickers = append(design.Stickers, Sticker{
				HTML:      layer.HTML,
				Audio:     layer.Audio,
				Transform: FromMatrix(layer.Transform),
			})
		default:
			return DesignBody{}, false
		}
	}
	return design, true
}

func tappingBoardFromActivity(design DesignBody, activity *album.Activity) (*TappingBoardBody, bool) {
	body := &TappingBoardBody{Design: design}
	for _, trace := range activity.Traces {
		shape, ok := ShapeFromTrace(trace)
		if !ok {
			return nil, false
		}
		body.Targets = append(body.Targets, TapTarget{
			Shape:     shape,
			Transform: FromMatrix(trace.Transform),
			Audio:     trace.Audio,
			Text:      trace.Text,
		})
	}
	return body, true
}

func matchingFromActivity(design DesignBody, activity *album.Activity) *MatchingBody {
	body := &MatchingBody{Design: design}
	for _, pair := range activity.Pairs {
		body.Pairs = append(body.Pairs, MatchPair{Left: pair.Left, Right: pair.Right, Audio: pair.Audio})
	}
	return body
}

func quizFromActivity(design DesignBody, activity *album.Activity) *CardQuizBody {
	body := &CardQuizBody{Design: design}
	for _, card := range activity.Cards {
		body.Cards = append(body.Cards, QuizCard{
			Question: card.Question,
			Answers:  card.Answers,
			Correct:  card.Correct,
			Image:    card.Image,
			Audio:    card.Audio,
		})
	}
	return body
}
