package mosaic

// ChannelPosition identifies one camera feed in the composited output.
// The numeric values define a fixed total order: layout assignment and
// draw order always walk channels in this order, never in map iteration
// order, so a given channel set produces the same composition on every
// frame and on every platform.
type ChannelPosition int

const (
	// ChannelFront is the forward-facing camera.
	ChannelFront ChannelPosition = iota

	// ChannelRear is the rear-facing camera.
	ChannelRear

	// ChannelLeft is the left side camera.
	ChannelLeft

	// ChannelRight is the right side camera.
	ChannelRight

	// ChannelInterior is the cabin camera.
	ChannelInterior

	channelCount
)

// AllChannels returns every channel position in canonical order.
// The returned slice is freshly allocated; callers may reorder it.
func AllChannels() []ChannelPosition {
	return []ChannelPosition{
		ChannelFront,
		ChannelRear,
		ChannelLeft,
		ChannelRight,
		ChannelInterior,
	}
}

// Valid reports whether p is one of the defined channel positions.
func (p ChannelPosition) Valid() bool {
	return p >= ChannelFront && p < channelCount
}

// String returns the channel position name.
func (p ChannelPosition) String() string {
	switch p {
	case ChannelFront:
		return "Front"
	case ChannelRear:
		return "Rear"
	case ChannelLeft:
		return "Left"
	case ChannelRight:
		return "Right"
	case ChannelInterior:
		return "Interior"
	default:
		return "Unknown"
	}
}

// sortedPositions returns the channel positions present in the set, in
// canonical order. This is the single place where the unordered map is
// flattened to a deterministic sequence.
func sortedPositions(channels ChannelFrames) []ChannelPosition {
	out := make([]ChannelPosition, 0, len(channels))
	for _, pos := range AllChannels() {
		if _, ok := channels[pos]; ok {
			out = append(out, pos)
		}
	}
	return out
}
