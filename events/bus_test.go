package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	got := make(chan FrameRenderedEvent, 1)
	unsub := bus.Subscribe(func(e FrameRenderedEvent) { got <- e })
	defer unsub()

	bus.Publish(FrameRenderedEvent{Sequence: 7, Width: 800, Height: 600, Channels: 3})

	select {
	case e := <-got:
		if e.Sequence != 7 {
			t.Errorf("Sequence = %d, want 7", e.Sequence)
		}
		if e.Channels != 3 {
			t.Errorf("Channels = %d, want 3", e.Channels)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusSubscriberTypeIsolation(t *testing.T) {
	bus := New()
	skips := make(chan ChannelSkippedEvent, 1)
	unsub := bus.Subscribe(func(e ChannelSkippedEvent) { skips <- e })
	defer unsub()

	// A frame event must not reach a skip subscriber.
	bus.Publish(FrameRenderedEvent{Sequence: 1})
	bus.Publish(ChannelSkippedEvent{Channel: "Rear", Reason: "conversion failed"})

	select {
	case e := <-skips:
		if e.Channel != "Rear" {
			t.Errorf("Channel = %q, want %q", e.Channel, "Rear")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case e := <-skips:
		t.Errorf("unexpected second delivery: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	got := make(chan DeviceLostEvent, 1)
	unsub := bus.Subscribe(func(e DeviceLostEvent) { got <- e })
	unsub()

	bus.Publish(DeviceLostEvent{Reason: "submit failed"})

	select {
	case e := <-got:
		t.Errorf("delivery after unsubscribe: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusSubscribeUnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	if unsub == nil {
		t.Fatal("Subscribe returned nil for unknown handler type")
	}
	unsub() // must not panic
}

func TestEventTypesDistinct(t *testing.T) {
	evs := []Event{
		FrameRenderedEvent{},
		ChannelSkippedEvent{},
		CaptureCompletedEvent{},
		DeviceLostEvent{},
	}
	seen := make(map[uint32]Event, len(evs))
	for _, ev := range evs {
		if ev.Type() == 0 {
			t.Errorf("%T.Type() = 0, want non-zero", ev)
		}
		if prev, dup := seen[ev.Type()]; dup {
			t.Errorf("%T and %T share type %d", ev, prev, ev.Type())
		}
		seen[ev.Type()] = ev
	}
}
