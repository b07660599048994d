package mosaic

import "testing"

func TestAllChannelsOrder(t *testing.T) {
	want := []ChannelPosition{ChannelFront, ChannelRear, ChannelLeft, ChannelRight, ChannelInterior}
	got := AllChannels()
	if len(got) != len(want) {
		t.Fatalf("AllChannels() returned %d positions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllChannels()[%d] = %v, want %v", i, got[i], want[i])
		}
		if !got[i].Valid() {
			t.Errorf("%v.Valid() = false", got[i])
		}
	}
	if ChannelPosition(channelCount).Valid() {
		t.Error("channelCount sentinel reported valid")
	}
	if ChannelPosition(-1).Valid() {
		t.Error("negative position reported valid")
	}
}

func TestChannelPositionString(t *testing.T) {
	tests := []struct {
		pos  ChannelPosition
		want string
	}{
		{ChannelFront, "Front"},
		{ChannelRear, "Rear"},
		{ChannelLeft, "Left"},
		{ChannelRight, "Right"},
		{ChannelInterior, "Interior"},
		{ChannelPosition(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.pos.String(); got != tt.want {
			t.Errorf("ChannelPosition(%d).String() = %q, want %q", int(tt.pos), got, tt.want)
		}
	}
}

// TestSortedPositions checks the single map-flattening point always
// yields the canonical order regardless of map contents.
func TestSortedPositions(t *testing.T) {
	frames := ChannelFrames{
		ChannelInterior: {},
		ChannelFront:    {},
		ChannelRight:    {},
	}
	want := []ChannelPosition{ChannelFront, ChannelRight, ChannelInterior}
	got := sortedPositions(frames)
	if len(got) != len(want) {
		t.Fatalf("got %d positions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sortedPositions()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := sortedPositions(ChannelFrames{}); len(got) != 0 {
		t.Errorf("empty set produced %d positions", len(got))
	}
}
