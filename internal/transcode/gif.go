package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/png"

	json "github.com/goccy/go-json"
	xdraw "golang.org/x/image/draw"

	"jigpipe/internal/faults"
)

// Frame is one coalesced frame of an animation.
type Frame struct {
	Data    []byte // PNG bytes
	DelayCS int    // delay in 1/100ths of a second, as stored by GIF
}

// Animation is a decoded and re-encoded animated image.
type Animation struct {
	Frames  []Frame
	Stream  []byte // re-encoded animated stream
	Width   int
	Height  int
	TotalCS int // total duration in 1/100ths of a second
}

// Timing is the derived JSON artifact written next to the animation.
type Timing struct {
	FrameCount int   `json:"frame_count"`
	DelaysCS   []int `json:"delays_cs"`
	TotalCS    int   `json:"total_cs"`
}

// DecodeAnimation explodes an animated GIF into coalesced frames and a
// re-encoded stream. Frame count and per-frame delays are preserved.
func DecodeAnimation(data []byte) (*Animation, error) {
	decoded, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, faults.TranscodeErr(fmt.Errorf("decode gif: %w", err))
	}
	if len(decoded.Image) == 0 {
		return nil, faults.TranscodeErr(fmt.Errorf("gif has no frames"))
	}

	width := decoded.Config.Width
	height := decoded.Config.Height
	if width == 0 || height == 0 {
		bounds := decoded.Image[0].Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	// GIF frames are often partial updates; coalesce each one over the
	// running canvas so every exported frame is complete.
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	anim := &Animation{Width: width, Height: height}
	for i, frame := range decoded.Image {
		xdraw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, xdraw.Over)

		snapshot := image.NewRGBA(canvas.Bounds())
		xdraw.Copy(snapshot, image.Point{}, canvas, canvas.Bounds(), xdraw.Src, nil)

		var buf bytes.Buffer
		if err := png.Encode(&buf, snapshot); err != nil {
			return nil, faults.TranscodeErr(fmt.Errorf("encode frame %d: %w", i, err))
		}
		delay := 0
		if i < len(decoded.Delay) {
			delay = decoded.Delay[i]
		}
		anim.Frames = append(anim.Frames, Frame{Data: buf.Bytes(), DelayCS: delay})
		anim.TotalCS += delay
	}

	var stream bytes.Buffer
	if err := gif.EncodeAll(&stream, decoded); err != nil {
		return nil, faults.TranscodeErr(fmt.Errorf("re-encode gif: %w", err))
	}
	anim.Stream = stream.Bytes()
	return anim, nil
}

// TimingJSON serialises the animation's timing artifact.
func (a *Animation) TimingJSON() ([]byte, error) {
	timing := Timing{
		FrameCount: len(a.Frames),
		TotalCS:    a.TotalCS,
		DelaysCS:   make([]int, 0, len(a.Frames)),
	}
	for _, frame := range a.Frames {
		timing.DelaysCS = append(timing.DelaysCS, frame.DelayCS)
	}
	return json.MarshalIndent(timing, "", "  ")
}
