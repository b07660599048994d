package mosaic

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/mosaic/events"
)

// CaptureFormat selects the still-image encoding of a captured frame.
type CaptureFormat int

const (
	// CaptureFormatPNG encodes losslessly.
	CaptureFormatPNG CaptureFormat = iota

	// CaptureFormatJPEG encodes lossily with the quality factor set at
	// renderer construction (WithJPEGQuality, default 0.95).
	CaptureFormatJPEG
)

// String returns the capture format name.
func (f CaptureFormat) String() string {
	switch f {
	case CaptureFormatPNG:
		return "png"
	case CaptureFormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// CaptureOption configures one CaptureFrame call.
type CaptureOption func(*captureOptions)

type captureOptions struct {
	wallClock       time.Time
	playbackSeconds float64
	hasWallClock    bool
	hasPlayback     bool
}

// WithCaptureTimestamp overlays the wall-clock time, formatted as
// "2006-01-02 15:04:05", onto the captured image.
func WithCaptureTimestamp(t time.Time) CaptureOption {
	return func(o *captureOptions) {
		o.wallClock = t
		o.hasWallClock = true
	}
}

// WithPlaybackTime overlays the playback position, formatted as
// HH:MM:SS.mmm, onto the captured image.
func WithPlaybackTime(seconds float64) CaptureOption {
	return func(o *captureOptions) {
		o.playbackSeconds = seconds
		o.hasPlayback = true
	}
}

// CaptureFrame encodes the most recently composited frame as a still
// image. The frame is read back from the GPU on demand; the compositor
// caches the readback until the next Render, so repeated captures of
// the same frame cost one GPU round trip.
//
// Without a composited frame (never rendered, render failed, or the
// renderer is uninitialized) it returns ErrNoFrameAvailable; a failed
// readback returns ErrNoFrameAvailable wrapping the cause. Encoding
// failures return an error wrapping ErrEncodingFailed. CaptureFrame
// serializes against Render and Close on the renderer mutex.
func (r *Renderer) CaptureFrame(format CaptureFormat, opts ...CaptureOption) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRendererClosed
	}
	data, w, h, err := r.lastFrame()
	if err != nil {
		return nil, err
	}

	var o captureOptions
	for _, opt := range opts {
		opt(&o)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, data)

	lines := make([]string, 0, 2)
	if o.hasWallClock {
		lines = append(lines, o.wallClock.Format("2006-01-02 15:04:05"))
	}
	if o.hasPlayback {
		lines = append(lines, formatPlaybackTime(o.playbackSeconds))
	}
	if len(lines) > 0 {
		if err := drawTimestampOverlay(img, lines); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
		}
	}

	encoded, err := encodeCapture(img, format, r.jpegQuality)
	if err != nil {
		return nil, err
	}

	Logger().Debug("frame captured", "format", format.String(), "bytes", len(encoded))
	if r.bus != nil {
		r.bus.Publish(events.CaptureCompletedEvent{
			Format: format.String(),
			Bytes:  len(encoded),
			Width:  w,
			Height: h,
		})
	}
	return encoded, nil
}

// FramePixmap returns a copy of the most recently composited frame, or
// ErrNoFrameAvailable when none exists. The pixmap is independent of
// the renderer and stays valid after further renders.
func (r *Renderer) FramePixmap() (*Pixmap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRendererClosed
	}
	data, w, h, err := r.lastFrame()
	if err != nil {
		return nil, err
	}
	pm := NewPixmap(w, h)
	copy(pm.data, data)
	return pm, nil
}

// lastFrame reads the most recent composited frame back from the GPU
// as tightly packed RGBA. Without one it returns ErrNoFrameAvailable;
// a failed readback returns the same sentinel wrapping the cause. The
// slice is owned by the compositor and reused by later readbacks, so
// callers copy before releasing r.mu.
func (r *Renderer) lastFrame() ([]byte, int, int, error) {
	if r.comp == nil || !r.hasFrame {
		return nil, 0, 0, ErrNoFrameAvailable
	}
	data, w, h, err := r.comp.ReadFrame()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %w", ErrNoFrameAvailable, err)
	}
	if len(data) == 0 || w <= 0 || h <= 0 {
		return nil, 0, 0, ErrNoFrameAvailable
	}
	return data, w, h, nil
}

// encodeCapture encodes img per the requested format. JPEG quality is
// the renderer's configured factor mapped to the stdlib 1-100 scale.
func encodeCapture(img *image.RGBA, format CaptureFormat, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case CaptureFormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
		}
	case CaptureFormatJPEG:
		q := int(quality*100 + 0.5)
		if q < 1 {
			q = 1
		}
		if q > 100 {
			q = 100
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown capture format %d", ErrEncodingFailed, int(format))
	}
	return buf.Bytes(), nil
}

// formatPlaybackTime renders a playback position in seconds as
// HH:MM:SS.mmm. Negative positions clamp to zero.
func formatPlaybackTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		ms/3600000, (ms/60000)%60, (ms/1000)%60, ms%1000)
}

// Overlay label geometry, in pixels at the fixed 14pt face size.
const (
	overlayPadX   = 8
	overlayPadY   = 6
	overlayMargin = 10
)

var (
	overlayFaceOnce sync.Once
	overlayFace     font.Face
	overlayFaceErr  error
)

// loadOverlayFace parses the embedded Go Regular face once.
func loadOverlayFace() (font.Face, error) {
	overlayFaceOnce.Do(func() {
		ft, err := opentype.Parse(goregular.TTF)
		if err != nil {
			overlayFaceErr = err
			return
		}
		overlayFace, overlayFaceErr = opentype.NewFace(ft, &opentype.FaceOptions{
			Size:    14,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	})
	return overlayFace, overlayFaceErr
}

// drawTimestampOverlay draws the label lines over a semi-transparent
// dark box anchored to the image's bottom-right corner. Images smaller
// than the box get a clipped overlay rather than an error.
func drawTimestampOverlay(img *image.RGBA, lines []string) error {
	face, err := loadOverlayFace()
	if err != nil {
		return fmt.Errorf("overlay font: %w", err)
	}

	metrics := face.Metrics()
	lineH := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	maxW := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > maxW {
			maxW = w
		}
	}
	boxW := maxW + 2*overlayPadX
	boxH := lineH*len(lines) + 2*overlayPadY

	bounds := img.Bounds()
	x1 := bounds.Max.X - overlayMargin
	y1 := bounds.Max.Y - overlayMargin
	x0 := x1 - boxW
	y0 := y1 - boxH
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	box := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	if box.Empty() {
		return nil
	}
	draw.Draw(img, box, image.NewUniform(color.RGBA{A: 192}), image.Point{}, draw.Over)

	d := font.Drawer{Dst: img, Src: image.White, Face: face}
	for i, line := range lines {
		d.Dot = fixed.P(x0+overlayPadX, y0+overlayPadY+ascent+i*lineH)
		d.DrawString(line)
	}
	return nil
}
