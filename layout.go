package mosaic

import (
	"math"
	"sort"
)

// LayoutMode selects how channel viewports tile the output surface.
type LayoutMode int

const (
	// LayoutGrid arranges channels in a near-square grid.
	LayoutGrid LayoutMode = iota

	// LayoutFocus gives one channel 75% of the width and stacks the rest
	// in the remaining strip.
	LayoutFocus

	// LayoutHorizontal arranges channels in equal full-height columns.
	LayoutHorizontal
)

// String returns the layout mode name.
func (m LayoutMode) String() string {
	switch m {
	case LayoutGrid:
		return "Grid"
	case LayoutFocus:
		return "Focus"
	case LayoutHorizontal:
		return "Horizontal"
	default:
		return "Unknown"
	}
}

// Viewport is a rectangular sub-region of the output surface, in pixels.
// Viewports produced by one ComputeViewports call never overlap; they need
// not tile the full canvas (Grid may leave trailing cells empty).
type Viewport struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ComputeViewports maps each active channel to its viewport for the given
// canvas and layout mode. It is pure and deterministic: positions are
// sorted into the fixed ChannelPosition order before assignment, so the
// result is independent of input order.
//
// focused is only consulted in LayoutFocus mode. A focused channel absent
// from positions simply produces no main viewport; the channels that are
// present still receive strip viewports.
func ComputeViewports(positions []ChannelPosition, canvasW, canvasH float64, mode LayoutMode, focused ChannelPosition) map[ChannelPosition]Viewport {
	out := make(map[ChannelPosition]Viewport, len(positions))
	if len(positions) == 0 || canvasW <= 0 || canvasH <= 0 {
		return out
	}

	ordered := make([]ChannelPosition, len(positions))
	copy(ordered, positions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	switch mode {
	case LayoutFocus:
		layoutFocus(out, ordered, canvasW, canvasH, focused)
	case LayoutHorizontal:
		layoutHorizontal(out, ordered, canvasW, canvasH)
	default:
		layoutGrid(out, ordered, canvasW, canvasH)
	}
	return out
}

// layoutGrid places channel i at grid cell (i%cols, i/cols) with
// cols = ceil(sqrt(N)) and rows = ceil(N/cols). Trailing cells stay empty.
func layoutGrid(out map[ChannelPosition]Viewport, ordered []ChannelPosition, w, h float64) {
	n := len(ordered)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	cellW := w / float64(cols)
	cellH := h / float64(rows)
	for i, pos := range ordered {
		col := i % cols
		row := i / cols
		out[pos] = Viewport{
			X:      float64(col) * cellW,
			Y:      float64(row) * cellH,
			Width:  cellW,
			Height: cellH,
		}
	}
}

// layoutFocus gives the focused channel the left 75% of the canvas at full
// height and stacks every other channel, in ordinal order, in the right
// strip. With a single channel there are no thumbnails.
func layoutFocus(out map[ChannelPosition]Viewport, ordered []ChannelPosition, w, h float64, focused ChannelPosition) {
	n := len(ordered)
	mainW := w * 0.75
	for _, pos := range ordered {
		if pos == focused {
			out[pos] = Viewport{X: 0, Y: 0, Width: mainW, Height: h}
			break
		}
	}
	if n < 2 {
		return
	}
	thumbH := h / float64(n-1)
	thumbW := w - mainW
	i := 0
	for _, pos := range ordered {
		if pos == focused {
			continue
		}
		out[pos] = Viewport{
			X:      mainW,
			Y:      float64(i) * thumbH,
			Width:  thumbW,
			Height: thumbH,
		}
		i++
	}
}

// layoutHorizontal splits the canvas into equal full-height columns in
// ordinal order.
func layoutHorizontal(out map[ChannelPosition]Viewport, ordered []ChannelPosition, w, h float64) {
	n := len(ordered)
	colW := w / float64(n)
	for i, pos := range ordered {
		out[pos] = Viewport{
			X:      float64(i) * colW,
			Y:      0,
			Width:  colW,
			Height: h,
		}
	}
}
