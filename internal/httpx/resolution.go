package httpx

import (
	"net/http"

	"jigpipe/internal/media"
)

// Classify maps an HTTP status to a per-item resolution. The second return
// is false for statuses that never produce a record line: auth denials,
// server errors, and anything unmapped.
func Classify(status int) (media.Resolution, bool) {
	switch status {
	case http.StatusNoContent:
		return media.ResolutionSuccess, true
	case http.StatusPreconditionFailed:
		return media.ResolutionAlreadyUpdated, true
	case http.StatusNotFound:
		return media.ResolutionNotFound, true
	default:
		return "", false
	}
}

// IsAuthDenied reports whether the status is a credential failure.
func IsAuthDenied(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
