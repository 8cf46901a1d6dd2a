package media

import (
	"fmt"
	"strings"
)

// Library partitions media ownership on the platform.
type Library string

const (
	LibraryGlobal Library = "Global"
	LibraryUser   Library = "User"
	LibraryWeb    Library = "Web"
)

var libraries = map[Library]struct{}{
	LibraryGlobal: {},
	LibraryUser:   {},
	LibraryWeb:    {},
}

// ParseLibrary validates a library tag from external input.
func ParseLibrary(value string) (Library, error) {
	lib := Library(strings.TrimSpace(value))
	if _, ok := libraries[lib]; !ok {
		return "", fmt.Errorf("unknown media library %q", value)
	}
	return lib, nil
}

// Kind classifies an asset by how the transcoder must treat it.
type Kind string

const (
	KindImage     Kind = "image"
	KindAnimation Kind = "animation"
	KindAudio     Kind = "audio"
	KindPDF       Kind = "pdf"
	KindVideo     Kind = "video"
)

// Resolution is the classified outcome of one work item. Only Success,
// AlreadyUpdated, and NotFound are persisted; transport failures retry and,
// when exhausted, surface as a warning without a record line.
type Resolution string

const (
	ResolutionSuccess        Resolution = "Success"
	ResolutionAlreadyUpdated Resolution = "AlreadyUpdated"
	ResolutionNotFound       Resolution = "NotFound"
	ResolutionTransportError Resolution = "TransportError"
)

// Recordable reports whether the resolution produces a record line.
func (r Resolution) Recordable() bool {
	switch r {
	case ResolutionSuccess, ResolutionAlreadyUpdated, ResolutionNotFound:
		return true
	default:
		return false
	}
}
