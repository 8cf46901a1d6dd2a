package transcode

import "path/filepath"

// SlideMediaDir returns the media directory for one slide.
func SlideMediaDir(outputDir, gameID, slideID string) string {
	return filepath.Join(outputDir, "games", gameID, "media", "slides", slideID)
}

// OutputPath returns the deterministic destination for one derived asset.
// Activity assets live under an activity/ subdirectory of the slide.
func OutputPath(outputDir, gameID, slideID, relpath string, activity bool) string {
	dir := SlideMediaDir(outputDir, gameID, slideID)
	if activity {
		return filepath.Join(dir, "activity", filepath.FromSlash(relpath))
	}
	return filepath.Join(dir, filepath.FromSlash(relpath))
}
