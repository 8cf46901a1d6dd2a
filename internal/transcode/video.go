package transcode

import (
	"fmt"
	"net/url"
	"strings"

	"jigpipe/internal/album"
	"jigpipe/internal/faults"
)

// VideoRef is the linked, never-downloaded representation of a video asset.
type VideoRef struct {
	YouTubeID string
	URL       string
	ClipStart *float64
	ClipEnd   *float64
}

// ResolveVideo validates a video source and extracts the playable reference.
func ResolveVideo(src *album.VideoSource) (VideoRef, error) {
	if src == nil {
		return VideoRef{}, faults.TranscodeErr(fmt.Errorf("video activity without a source"))
	}
	ref := VideoRef{ClipStart: src.ClipStart, ClipEnd: src.ClipEnd}

	switch {
	case src.YouTubeID != "":
		ref.YouTubeID = src.YouTubeID
	case src.URL != "":
		if id := youTubeIDFromURL(src.URL); id != "" {
			ref.YouTubeID = id
		} else {
			ref.URL = src.URL
		}
	default:
		return VideoRef{}, faults.TranscodeErr(fmt.Errorf("video source has neither youtube id nor url"))
	}

	if err := validateClip(src.ClipStart, src.ClipEnd); err != nil {
		return VideoRef{}, err
	}
	return ref, nil
}

func validateClip(start, end *float64) error {
	if start == nil && end == nil {
		return nil
	}
	if start == nil || end == nil {
		return faults.TranscodeErr(fmt.Errorf("video clip needs both start and end"))
	}
	if *start < 0 || *start >= *end {
		return faults.TranscodeErr(fmt.Errorf("video clip invalid: start %v, end %v", *start, *end))
	}
	return nil
}

func youTubeIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if strings.HasPrefix(u.Path, "/embed/") {
			return strings.TrimPrefix(u.Path, "/embed/")
		}
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}
