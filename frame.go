package mosaic

import "fmt"

// PixelFormat identifies the pixel layout of a decoded frame.
type PixelFormat int

const (
	// PixelFormatRGB24 is packed 8-bit RGB, 3 bytes per pixel.
	PixelFormatRGB24 PixelFormat = iota

	// PixelFormatRGBA32 is packed 8-bit RGBA, 4 bytes per pixel.
	PixelFormatRGBA32

	// PixelFormatYUV420P is planar 8-bit YUV with 2x2 chroma subsampling:
	// a full-size luma plane followed by quarter-size U and V planes.
	PixelFormatYUV420P

	// PixelFormatNV12 is bi-planar 8-bit YUV with 2x2 chroma subsampling:
	// a full-size luma plane followed by one interleaved UV plane.
	PixelFormatNV12
)

// String returns the pixel format name.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatRGBA32:
		return "RGBA32"
	case PixelFormatYUV420P:
		return "YUV420P"
	case PixelFormatNV12:
		return "NV12"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the packed bytes per pixel for RGB formats and
// the luma-plane bytes per pixel (1) for YUV formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB24:
		return 3
	case PixelFormatRGBA32:
		return 4
	case PixelFormatYUV420P, PixelFormatNV12:
		return 1
	default:
		return 0
	}
}

// valid reports whether f is one of the defined pixel formats.
func (f PixelFormat) valid() bool {
	return f >= PixelFormatRGB24 && f <= PixelFormatNV12
}

// DecodedFrame is one decoded video frame handed in by an external
// decoder. It is an immutable value: the compositor reads Bytes during a
// single Render call and never retains the slice afterwards.
//
// StrideBytes is the byte distance between the starts of consecutive rows
// of the first (or only) plane. For YUV formats it is the luma stride;
// chroma strides are derived (half for YUV420P, equal for NV12's
// interleaved plane).
type DecodedFrame struct {
	TimestampSeconds float64
	Width            int
	Height           int
	PixelFormat      PixelFormat
	Bytes            []byte
	StrideBytes      int
	SequenceNumber   int64
	IsKeyFrame       bool
}

// Validate checks the frame invariants: positive dimensions, a known
// pixel format, a stride no smaller than the packed row width, and a byte
// slice long enough to hold every plane. It returns ErrInvalidFrame
// (wrapped with detail) when any invariant fails.
func (f *DecodedFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if !f.PixelFormat.valid() {
		return fmt.Errorf("%w: pixel format %d", ErrInvalidFrame, int(f.PixelFormat))
	}
	minStride := f.Width * f.PixelFormat.BytesPerPixel()
	if f.StrideBytes < minStride {
		return fmt.Errorf("%w: stride %d below row width %d", ErrInvalidFrame, f.StrideBytes, minStride)
	}
	need := minFrameBytes(f.PixelFormat, f.StrideBytes, f.Height)
	if len(f.Bytes) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrInvalidFrame, len(f.Bytes), need)
	}
	return nil
}

// minFrameBytes returns the smallest byte slice that can hold a frame of
// the given format, stride and height across all of its planes.
func minFrameBytes(format PixelFormat, stride, height int) int {
	switch format {
	case PixelFormatRGB24, PixelFormatRGBA32:
		return stride * height
	case PixelFormatYUV420P:
		cStride := (stride + 1) / 2
		cRows := (height + 1) / 2
		return stride*height + 2*cStride*cRows
	case PixelFormatNV12:
		cRows := (height + 1) / 2
		return stride*height + stride*cRows
	default:
		return 0
	}
}

// ChannelFrames maps channel positions to the frame to composite this
// tick. The renderer reads it during one Render call and never retains
// it; callers build a fresh map each tick with whatever frames their
// decoders have ready.
type ChannelFrames map[ChannelPosition]DecodedFrame
