package pipeline

import (
	"path"
	"strings"

	"jigpipe/internal/album"
	"jigpipe/internal/media"
)

// assetRef is one raw media reference found on a slide. activity marks
// references that live under the slide's activity output directory.
type assetRef struct {
	path     string
	kind     media.Kind
	activity bool
}

// assetRefs collects every media reference on the slide: the background,
// design layers, and the assets embedded in the activity descriptor.
func assetRefs(slide album.Slide) []assetRef {
	var refs []assetRef
	add := func(ref string, kind media.Kind, activity bool) {
		if strings.TrimSpace(ref) == "" {
			return
		}
		refs = append(refs, assetRef{path: ref, kind: kind, activity: activity})
	}

	add(slide.FilePath, media.KindImage, false)
	for _, layer := range slide.Layers {
		switch layer.Kind {
		case album.LayerBackground, album.LayerSticker:
			add(layer.Filename, kindForRef(layer.Filename), false)
		case album.LayerAnimation:
			add(layer.Filename, media.KindAnimation, false)
		}
		add(layer.Audio, media.KindAudio, false)
	}

	activity := slide.Activity
	if activity == nil {
		return refs
	}
	add(activity.Audio, media.KindAudio, true)
	for _, trace := range activity.Traces {
		add(trace.Audio, media.KindAudio, true)
	}
	for _, pair := range activity.Pairs {
		add(pair.Left, kindForRef(pair.Left), true)
		add(pair.Right, kindForRef(pair.Right), true)
		add(pair.Audio, media.KindAudio, true)
	}
	for _, card := range activity.Cards {
		add(card.Image, kindForRef(card.Image), true)
		add(card.Audio, media.KindAudio, true)
	}
	if activity.Video != nil && activity.Video.URL != "" {
		add(activity.Video.URL, media.KindVideo, true)
	}
	return refs
}

// kindForRef classifies a reference by file extension. Unknown extensions
// are treated as still images, the dominant asset class in albums.
func kindForRef(ref string) media.Kind {
	ext := strings.ToLower(path.Ext(stripRefQuery(ref)))
	switch ext {
	case ".gif":
		return media.KindAnimation
	case ".mp3", ".wav", ".ogg", ".m4a", ".aac":
		return media.KindAudio
	case ".pdf":
		return media.KindPDF
	case ".mp4", ".webm", ".mov":
		return media.KindVideo
	default:
		return media.KindImage
	}
}

func stripRefQuery(ref string) string {
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		return ref[:i]
	}
	return ref
}
