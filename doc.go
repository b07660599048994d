// Package mosaic composites multiple decoded video channels into one
// output surface in real time.
//
// # Overview
//
// mosaic takes the current frame of up to five independently decoded
// dash-camera feeds (front, rear, left, right, interior), places each
// into a sub-region of a single surface according to a selectable
// layout, applies GPU-resident visual transforms (brightness, flips,
// digital zoom) uniformly to every channel, and reads the result back
// for still-image capture. Rendering runs on gogpu/wgpu; decoding is
// the caller's job.
//
// # Quick Start
//
//	import "github.com/gogpu/mosaic"
//
//	r, err := mosaic.NewRenderer()
//	if err != nil {
//		// No GPU: r is still usable as a no-op.
//	}
//	defer r.Close()
//
//	// Once per display tick, with whatever frames are decoded:
//	r.Render(mosaic.ChannelFrames{
//		mosaic.ChannelFront: frontFrame,
//		mosaic.ChannelRear:  rearFrame,
//	}, 1280, 720)
//
//	// On demand:
//	pngBytes, err := r.CaptureFrame(mosaic.CaptureFormatPNG)
//
// # Architecture
//
// The pipeline is driven once per display tick, never by an internal
// goroutine:
//   - Converter reconciles decoder strides and pixel formats into
//     GPU-importable buffers (RGB24/RGBA32 → packed RGBA; YUV420P/NV12 →
//     three 8-bit planes).
//   - An internal texture cache keyed by buffer identity keeps channel
//     textures GPU-resident across frames.
//   - ComputeViewports assigns each channel a rectangle per the layout
//     mode, always in the fixed ChannelPosition order.
//   - The compositor draws one textured quad per channel with the
//     shared TransformState snapshot and reads the surface back.
//
// # Concurrency
//
// Render, CaptureFrame, FramePixmap, and Close serialize on one mutex.
// TransformState setters and the layout controls are lock-free and safe
// from any goroutine; they apply on the next frame.
//
// # Degraded Operation
//
// A channel whose frame fails conversion or upload is skipped for that
// frame; the rest still render. Construction without a usable GPU
// returns ErrDeviceUnavailable together with an inert renderer on which
// every call is a safe no-op.
package mosaic

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
