package mosaic

import (
	"testing"

	"github.com/gogpu/mosaic/events"
)

// TestDefaultRendererOptions tests the documented defaults.
func TestDefaultRendererOptions(t *testing.T) {
	o := defaultRendererOptions()

	if o.provider != nil {
		t.Error("default provider is not nil")
	}
	if o.bus != nil {
		t.Error("default bus is not nil")
	}
	if o.jpegQuality != defaultJPEGQuality {
		t.Errorf("default jpegQuality = %g, want %g", o.jpegQuality, defaultJPEGQuality)
	}
	if o.cacheCapacity != 0 {
		t.Errorf("default cacheCapacity = %d, want 0", o.cacheCapacity)
	}
	if o.useSPIRV {
		t.Error("default useSPIRV is true")
	}
}

// TestWithJPEGQuality tests quality clamping.
func TestWithJPEGQuality(t *testing.T) {
	tests := []struct {
		name    string
		quality float64
		want    float64
	}{
		{"in range", 0.5, 0.5},
		{"upper bound", 1.0, 1.0},
		{"above range clamps", 2.0, 1.0},
		{"zero falls back to default", 0, defaultJPEGQuality},
		{"negative falls back to default", -0.3, defaultJPEGQuality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultRendererOptions()
			WithJPEGQuality(tt.quality)(&o)
			if o.jpegQuality != tt.want {
				t.Errorf("jpegQuality = %g, want %g", o.jpegQuality, tt.want)
			}
		})
	}
}

// TestOptionsApplied tests that constructor options reach the renderer.
func TestOptionsApplied(t *testing.T) {
	bus := events.New()
	r, err := NewRenderer(
		WithDeviceProvider(brokenProvider{}),
		WithEventBus(bus),
		WithJPEGQuality(0.7),
	)
	if err == nil {
		t.Fatal("expected device error from broken provider")
	}
	t.Cleanup(func() { _ = r.Close() })

	if r.bus != bus {
		t.Error("bus is not the injected event bus")
	}
	if r.jpegQuality != 0.7 {
		t.Errorf("jpegQuality = %g, want 0.7", r.jpegQuality)
	}
}

func TestWithTextureCacheCapacity(t *testing.T) {
	o := defaultRendererOptions()
	WithTextureCacheCapacity(32)(&o)
	if o.cacheCapacity != 32 {
		t.Errorf("cacheCapacity = %d, want 32", o.cacheCapacity)
	}
}

func TestWithSPIRV(t *testing.T) {
	o := defaultRendererOptions()
	WithSPIRV()(&o)
	if !o.useSPIRV {
		t.Error("useSPIRV = false after WithSPIRV")
	}
}

func TestWithDeviceProvider(t *testing.T) {
	p := brokenProvider{}
	o := defaultRendererOptions()
	WithDeviceProvider(p)(&o)
	if o.provider != p {
		t.Error("provider is not the injected value")
	}
}
