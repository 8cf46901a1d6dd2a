package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"jigpipe/internal/faults"
)

// AudioEncoder re-encodes source audio at the platform sample rate by
// driving ffmpeg. Silence trimming stays off so round trips never alter
// perceived length.
type AudioEncoder struct {
	Binary     string
	SampleRate int
}

// Encode writes the re-encoded audio for src to dst. The destination's
// parent directory must exist; the write itself goes through a temp file
// so readers never observe a partial encode.
func (e AudioEncoder) Encode(ctx context.Context, src, dst string) error {
	binary := strings.TrimSpace(e.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	rate := e.SampleRate
	if rate <= 0 {
		rate = 44100
	}

	tmp := dst + ".tmp" + filepathExt(dst)
	defer func() { _ = os.Remove(tmp) }()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-ar", strconv.Itoa(rate),
		"-map_metadata", "-1",
		"-y", tmp,
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return faults.TranscodeErr(fmt.Errorf("ffmpeg encode %s: %w: %s", src, err, strings.TrimSpace(string(output))))
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("rename encoded audio into place: %w", err)
	}
	return nil
}

func filepathExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
