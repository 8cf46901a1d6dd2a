// Package transcode converts heterogeneous source assets into platform
// formats: canonical still encodings, exploded animations with preserved
// timing, resampled audio, and validated video references. All writes land
// atomically under the deterministic games/<id>/media layout, and matching
// content is skipped so re-runs never duplicate bytes.
package transcode
