package mosaic

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/mosaic/events"
	"github.com/gogpu/mosaic/internal/gpu"
)

// Renderer composites multiple decoded video channels into one output
// surface. It owns the GPU pipeline, the per-channel conversion rings,
// the texture cache, the shared transform state, and the most recently
// composited frame (the capture source).
//
// A Renderer has two states. When construction succeeds it is ready:
// Render composites frames and CaptureFrame encodes them. When GPU
// device acquisition or pipeline construction fails, NewRenderer
// returns the error together with a permanently uninitialized renderer
// on which every operation is a safe no-op; construction is never
// retried.
//
// Render, CaptureFrame, FramePixmap, and Close serialize on one mutex.
// Transform setters and the layout controls are lock-free and may be
// called from any goroutine, including concurrently with Render; they
// take effect on the next frame.
type Renderer struct {
	mu sync.Mutex

	// comp is nil when the renderer is uninitialized or closed.
	comp *gpu.Compositor

	// converters holds one conversion ring per channel. Rings are never
	// shared across channels: a shared ring would alias texture uploads
	// within one frame.
	converters map[ChannelPosition]*Converter

	// synced tracks the source geometry last uploaded per channel so a
	// resolution switch releases the superseded textures immediately.
	synced map[ChannelPosition]syncedChannel

	transforms  *TransformState
	bus         *events.Bus
	jpegQuality float64

	layoutMode atomic.Int32
	focused    atomic.Int32

	frameSeq uint64
	hasFrame bool
	closed   bool
}

// syncedChannel records which pixel buffers of one channel currently
// back GPU textures, plus the geometry they were created with.
type syncedChannel struct {
	width  int
	height int
	format PixelFormat
	keys   []any
}

// NewRenderer builds a renderer: it acquires a GPU device (its own
// Vulkan instance, or a shared device when WithDeviceProvider is
// given), compiles the composite shader, and creates the pipelines,
// sampler, and quad buffer. The output surface is allocated lazily on
// the first Render call, sized to that call's canvas.
//
// On failure NewRenderer returns an error wrapping ErrDeviceUnavailable
// together with a non-nil, permanently uninitialized renderer: every
// method on it is a safe no-op, so hosts on GPU-less machines degrade
// to blank output instead of crashing.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		converters:  make(map[ChannelPosition]*Converter),
		synced:      make(map[ChannelPosition]syncedChannel),
		transforms:  NewTransformState(),
		bus:         o.bus,
		jpegQuality: o.jpegQuality,
	}
	r.layoutMode.Store(int32(LayoutGrid))
	r.focused.Store(int32(ChannelFront))

	comp, err := gpu.NewCompositor(o.provider, o.cacheCapacity, o.useSPIRV)
	if err != nil {
		return r, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	r.comp = comp
	Logger().Info("renderer ready", "adapter", comp.AdapterName())
	return r, nil
}

// Ready reports whether the renderer holds a live GPU pipeline. An
// uninitialized or closed renderer is not ready and treats Render as a
// no-op.
func (r *Renderer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comp != nil
}

// AdapterName returns the name of the GPU adapter rendering frames, or
// "" when the renderer is uninitialized or closed.
func (r *Renderer) AdapterName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.comp == nil {
		return ""
	}
	return r.comp.AdapterName()
}

// Transforms returns the shared transform state. Setters clamp and may
// be called from any goroutine; changes apply from the next Render.
func (r *Renderer) Transforms() *TransformState {
	return r.transforms
}

// SetLayoutMode selects the viewport layout, effective next render.
func (r *Renderer) SetLayoutMode(mode LayoutMode) {
	r.layoutMode.Store(int32(mode))
}

// LayoutMode returns the active viewport layout.
func (r *Renderer) LayoutMode() LayoutMode {
	return LayoutMode(r.layoutMode.Load())
}

// SetFocusedChannel selects the channel LayoutFocus enlarges, effective
// next render. Focusing a channel that is absent from the rendered set
// is allowed; the frame simply has no main viewport.
func (r *Renderer) SetFocusedChannel(pos ChannelPosition) {
	r.focused.Store(int32(pos))
}

// FocusedChannel returns the channel LayoutFocus enlarges.
func (r *Renderer) FocusedChannel() ChannelPosition {
	return ChannelPosition(r.focused.Load())
}

// Render composites the given channel frames into a canvasW x canvasH
// surface, replacing the previous frame. Channels are laid out and
// drawn in the fixed ChannelPosition order under the active layout
// mode, with the current transform snapshot applied uniformly.
//
// A channel whose frame fails conversion or texture upload is skipped
// with a warning and a ChannelSkippedEvent; the remaining channels
// still render. Only frame-level GPU failures (encoding, submit, fence)
// return an error; the previous frame then remains the capture source.
//
// Render is a no-op returning nil when the renderer is uninitialized,
// channels is empty, or the canvas is not positive. A closed renderer
// returns ErrRendererClosed.
func (r *Renderer) Render(channels ChannelFrames, canvasW, canvasH int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if r.comp == nil || len(channels) == 0 || canvasW <= 0 || canvasH <= 0 {
		return nil
	}

	start := time.Now()
	positions := sortedPositions(channels)
	viewports := ComputeViewports(positions, float64(canvasW), float64(canvasH),
		r.LayoutMode(), r.FocusedChannel())

	items := make([]gpu.RenderItem, 0, len(positions))
	skipped := 0
	for _, pos := range positions {
		vp, ok := viewports[pos]
		if !ok {
			continue
		}
		frame := channels[pos]

		conv := r.converters[pos]
		if conv == nil {
			conv = NewConverter()
			r.converters[pos] = conv
		}
		buf, err := conv.Convert(frame)
		if err != nil {
			skipped++
			r.skipChannel(pos, err)
			continue
		}

		tex, err := r.syncChannel(pos, buf)
		if err != nil {
			skipped++
			r.skipChannel(pos, fmt.Errorf("%w: %w", ErrTextureCreation, err))
			continue
		}

		items = append(items, gpu.RenderItem{
			Texture: tex,
			Viewport: gpu.Viewport{
				X: float32(vp.X),
				Y: float32(vp.Y),
				W: float32(vp.Width),
				H: float32(vp.Height),
			},
		})
	}

	//nolint:gosec // canvas dimensions are validated positive above
	w, h := uint32(canvasW), uint32(canvasH)
	if err := r.comp.RenderFrame(w, h, items, r.transforms.Snapshot()); err != nil {
		if r.bus != nil {
			r.bus.Publish(events.DeviceLostEvent{Reason: err.Error()})
		}
		return fmt.Errorf("mosaic: render: %w", err)
	}

	r.frameSeq++
	r.hasFrame = true
	Logger().Debug("frame composed",
		"sequence", r.frameSeq,
		"channels", len(items),
		"skipped", skipped,
		"cached_textures", r.comp.CachedChannels(),
		"duration", time.Since(start))
	if r.bus != nil {
		r.bus.Publish(events.FrameRenderedEvent{
			Sequence: r.frameSeq,
			Width:    canvasW,
			Height:   canvasH,
			Channels: len(items),
			Skipped:  skipped,
			Duration: time.Since(start),
		})
	}
	return nil
}

// syncChannel uploads one channel's pixel buffer, releasing the
// channel's previous textures first when the source geometry changed
// (a resolution or format switch makes every buffer of the old ring
// stale at once).
func (r *Renderer) syncChannel(pos ChannelPosition, buf *PixelBuffer) (*gpu.ChannelTexture, error) {
	state, ok := r.synced[pos]
	if ok && (state.width != buf.Width || state.height != buf.Height || state.format != buf.Format) {
		for _, key := range state.keys {
			r.comp.ForgetChannel(key)
		}
		ok = false
	}
	if !ok {
		state = syncedChannel{width: buf.Width, height: buf.Height, format: buf.Format}
	}

	tex, err := r.comp.SyncChannel(uploadForBuffer(buf))
	if err != nil {
		r.synced[pos] = state
		return nil, err
	}

	known := false
	for _, key := range state.keys {
		if key == any(buf) {
			known = true
			break
		}
	}
	if !known {
		state.keys = append(state.keys, buf)
	}
	r.synced[pos] = state
	return tex, nil
}

// uploadForBuffer maps a pixel buffer onto the GPU upload contract.
// The buffer pointer is the cache key: a conversion ring of N buffers
// occupies N texture sets, and re-seeing a buffer re-uses its textures.
func uploadForBuffer(buf *PixelBuffer) gpu.Upload {
	kind := gpu.UploadRGBA
	if buf.Format == PixelFormatYUV420P {
		kind = gpu.UploadYUV
	}
	planes := make([]gpu.Plane, len(buf.Planes))
	for i, p := range buf.Planes {
		planes[i] = gpu.Plane{
			Bytes:  p.Bytes,
			Width:  p.Width,
			Height: p.Height,
			Stride: p.Stride,
		}
	}
	return gpu.Upload{
		Key:        buf,
		Generation: buf.Generation,
		Kind:       kind,
		Planes:     planes,
	}
}

// skipChannel logs one channel's per-frame failure and publishes the
// skip event. Callers continue with the remaining channels.
func (r *Renderer) skipChannel(pos ChannelPosition, err error) {
	Logger().Warn("channel skipped", "channel", pos.String(), "error", err)
	if r.bus != nil {
		r.bus.Publish(events.ChannelSkippedEvent{
			Channel: pos.String(),
			Reason:  err.Error(),
		})
	}
}

// FrameSequence returns how many frames have been composited.
func (r *Renderer) FrameSequence() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameSeq
}

// Close releases the GPU pipeline, the texture cache, and the output
// surface. A device obtained from WithDeviceProvider stays alive; owned
// devices are destroyed. Close is idempotent, and every operation on a
// closed renderer is a guarded no-op or returns ErrRendererClosed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.comp != nil {
		r.comp.Destroy()
		r.comp = nil
		Logger().Info("renderer closed")
	}
	r.converters = nil
	r.synced = nil
	r.hasFrame = false
	return nil
}
