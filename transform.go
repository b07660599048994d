package mosaic

import "sync/atomic"

// Transform parameter ranges. Setters clamp to these bounds instead of
// rejecting input: the state is continuously driven by UI sliders, where
// transient out-of-range values are normal during interaction.
const (
	// MinBrightness and MaxBrightness bound the additive brightness offset.
	MinBrightness = -1.0
	MaxBrightness = 1.0

	// MinZoomLevel and MaxZoomLevel bound the digital zoom factor.
	MinZoomLevel = 1.0
	MaxZoomLevel = 5.0
)

// transformValues is one immutable generation of the transform state.
// Mutation always replaces the whole record, so a reader holding a pointer
// sees six values from a single generation.
type transformValues struct {
	brightness  float64
	flipH       bool
	flipV       bool
	zoomLevel   float64
	zoomCenterX float64
	zoomCenterY float64
}

// TransformState is the shared visual transform applied identically to
// every channel in a frame: additive brightness, horizontal/vertical
// mirroring, and digital zoom about a normalized center point.
//
// One instance is owned by the Renderer and mutated by UI controls on
// their own goroutines; the render path reads it once per frame through
// Snapshot. Reads and writes are lock-free: the six fields live behind a
// single atomic pointer, so a snapshot can never pair a zoom level from
// one update with a zoom center from another.
type TransformState struct {
	v atomic.Pointer[transformValues]
}

// NewTransformState returns a transform state at identity: brightness 0,
// no flips, zoom 1.0 centered at (0.5, 0.5).
func NewTransformState() *TransformState {
	t := &TransformState{}
	t.v.Store(defaultTransformValues())
	return t
}

func defaultTransformValues() *transformValues {
	return &transformValues{
		zoomLevel:   MinZoomLevel,
		zoomCenterX: 0.5,
		zoomCenterY: 0.5,
	}
}

// update applies fn to a copy of the current record and swaps it in,
// retrying on contention so concurrent setters never lose each other's
// fields.
func (t *TransformState) update(fn func(*transformValues)) {
	for {
		old := t.v.Load()
		next := *old
		fn(&next)
		if t.v.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetBrightness stores the additive brightness offset, clamped to
// [MinBrightness, MaxBrightness].
func (t *TransformState) SetBrightness(b float64) {
	b = clampFloat(b, MinBrightness, MaxBrightness)
	t.update(func(v *transformValues) { v.brightness = b })
}

// Brightness returns the current additive brightness offset.
func (t *TransformState) Brightness() float64 { return t.v.Load().brightness }

// SetFlipHorizontal sets horizontal mirroring.
func (t *TransformState) SetFlipHorizontal(on bool) {
	t.update(func(v *transformValues) { v.flipH = on })
}

// ToggleFlipHorizontal inverts horizontal mirroring and returns the new
// value.
func (t *TransformState) ToggleFlipHorizontal() bool {
	var now bool
	t.update(func(v *transformValues) {
		v.flipH = !v.flipH
		now = v.flipH
	})
	return now
}

// FlipHorizontal returns whether horizontal mirroring is active.
func (t *TransformState) FlipHorizontal() bool { return t.v.Load().flipH }

// SetFlipVertical sets vertical mirroring.
func (t *TransformState) SetFlipVertical(on bool) {
	t.update(func(v *transformValues) { v.flipV = on })
}

// ToggleFlipVertical inverts vertical mirroring and returns the new value.
func (t *TransformState) ToggleFlipVertical() bool {
	var now bool
	t.update(func(v *transformValues) {
		v.flipV = !v.flipV
		now = v.flipV
	})
	return now
}

// FlipVertical returns whether vertical mirroring is active.
func (t *TransformState) FlipVertical() bool { return t.v.Load().flipV }

// SetZoomLevel stores the zoom factor, clamped to
// [MinZoomLevel, MaxZoomLevel].
func (t *TransformState) SetZoomLevel(z float64) {
	z = clampFloat(z, MinZoomLevel, MaxZoomLevel)
	t.update(func(v *transformValues) { v.zoomLevel = z })
}

// ZoomLevel returns the current zoom factor.
func (t *TransformState) ZoomLevel() float64 { return t.v.Load().zoomLevel }

// SetZoomCenter stores the normalized zoom center, each coordinate
// clamped to [0, 1]. Both coordinates are stored together: a snapshot
// never observes an X from one call paired with a Y from another.
func (t *TransformState) SetZoomCenter(x, y float64) {
	x = clampFloat(x, 0, 1)
	y = clampFloat(y, 0, 1)
	t.update(func(v *transformValues) {
		v.zoomCenterX = x
		v.zoomCenterY = y
	})
}

// ZoomCenter returns the normalized zoom center.
func (t *TransformState) ZoomCenter() (x, y float64) {
	v := t.v.Load()
	return v.zoomCenterX, v.zoomCenterY
}

// Reset restores the identity transform.
func (t *TransformState) Reset() {
	t.v.Store(defaultTransformValues())
}

// Snapshot returns the six transform parameters in the fixed order the
// GPU parameter block expects:
//
//	[brightness, flipH(0/1), flipV(0/1), zoomLevel, zoomCenterX, zoomCenterY]
//
// The values come from a single generation of the state; concurrent
// setters can never tear a snapshot.
func (t *TransformState) Snapshot() [6]float32 {
	v := t.v.Load()
	return [6]float32{
		float32(v.brightness),
		boolFloat(v.flipH),
		boolFloat(v.flipV),
		float32(v.zoomLevel),
		float32(v.zoomCenterX),
		float32(v.zoomCenterY),
	}
}

func boolFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
