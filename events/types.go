package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeFrameRendered uint32 = iota + 1
	TypeChannelSkipped
	TypeCaptureCompleted
	TypeDeviceLost
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FrameRenderedEvent is published after each successfully composited
// frame.
type FrameRenderedEvent struct {
	Sequence uint64        // monotonic frame counter
	Width    int           // output surface width in pixels
	Height   int           // output surface height in pixels
	Channels int           // channels drawn this frame
	Skipped  int           // channels skipped this frame
	Duration time.Duration // wall time spent composing the frame
}

// Type returns the event type identifier for FrameRenderedEvent.
func (e FrameRenderedEvent) Type() uint32 { return TypeFrameRendered }

// ChannelSkippedEvent is published when one channel could not be
// prepared for a frame. The remaining channels still render; the frame
// is degraded, not aborted.
type ChannelSkippedEvent struct {
	Channel string // channel position name, e.g. "Front"
	Reason  string // failure detail
}

// Type returns the event type identifier for ChannelSkippedEvent.
func (e ChannelSkippedEvent) Type() uint32 { return TypeChannelSkipped }

// CaptureCompletedEvent is published after a still-image capture has
// been encoded.
type CaptureCompletedEvent struct {
	Format string // encoded image format, "png" or "jpeg"
	Bytes  int    // encoded size in bytes
	Width  int    // captured surface width in pixels
	Height int    // captured surface height in pixels
}

// Type returns the event type identifier for CaptureCompletedEvent.
func (e CaptureCompletedEvent) Type() uint32 { return TypeCaptureCompleted }

// DeviceLostEvent is published when a frame-level GPU failure aborts a
// render. The renderer itself keeps running; the next tick re-drives
// the whole pipeline.
type DeviceLostEvent struct {
	Reason string // failure detail
}

// Type returns the event type identifier for DeviceLostEvent.
func (e DeviceLostEvent) Type() uint32 { return TypeDeviceLost }
