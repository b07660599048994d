package mosaic

import "errors"

// Renderer errors. Per-channel failures (conversion, texture creation)
// are logged and skipped inside Render rather than returned; the
// sentinels below surface where a caller can act on them.
var (
	// ErrDeviceUnavailable is returned by NewRenderer when no compatible
	// GPU device could be acquired. The renderer stays uninitialized and
	// every subsequent call is a no-op; construction is not retried.
	ErrDeviceUnavailable = errors.New("mosaic: no compatible GPU device")

	// ErrInvalidFrame is returned when a decoded frame violates its
	// invariants (dimensions, stride, byte length, pixel format).
	ErrInvalidFrame = errors.New("mosaic: invalid decoded frame")

	// ErrConversionFailed is returned when a frame could not be converted
	// into a GPU-importable pixel buffer.
	ErrConversionFailed = errors.New("mosaic: frame conversion failed")

	// ErrTextureCreation is returned when a pixel buffer could not be
	// turned into a GPU texture.
	ErrTextureCreation = errors.New("mosaic: texture creation failed")

	// ErrNoFrameAvailable is returned by CaptureFrame when no frame has
	// been composited yet.
	ErrNoFrameAvailable = errors.New("mosaic: no composited frame available")

	// ErrEncodingFailed is returned by CaptureFrame when still-image
	// encoding fails.
	ErrEncodingFailed = errors.New("mosaic: image encoding failed")

	// ErrRendererClosed is returned when operating on a closed renderer.
	ErrRendererClosed = errors.New("mosaic: renderer is closed")
)
