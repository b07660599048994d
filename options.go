package mosaic

import "github.com/gogpu/mosaic/events"

// defaultJPEGQuality is the lossy capture quality factor used when
// WithJPEGQuality is not given.
const defaultJPEGQuality = 0.95

// Option configures a Renderer during creation.
// Use functional options to customize Renderer behavior.
//
// Example:
//
//	// Default: own GPU device, silent operation
//	r, err := mosaic.NewRenderer()
//
//	// Shared device and an event bus for host notifications
//	r, err := mosaic.NewRenderer(
//		mosaic.WithDeviceProvider(host),
//		mosaic.WithEventBus(bus),
//	)
type Option func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	provider      any
	bus           *events.Bus
	jpegQuality   float64
	cacheCapacity int
	useSPIRV      bool
}

// defaultRendererOptions returns the default renderer options.
func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		jpegQuality:   defaultJPEGQuality,
		cacheCapacity: 0, // texture cache picks its default
	}
}

// WithDeviceProvider shares a host application's GPU device instead of
// opening a dedicated one. The provider should implement HalDevice() any
// and HalQueue() any methods that return wgpu/hal types; gogpu
// application contexts do. Shared devices are never destroyed on Close.
//
// Example:
//
//	r, err := mosaic.NewRenderer(mosaic.WithDeviceProvider(hostApp))
func WithDeviceProvider(provider any) Option {
	return func(o *rendererOptions) {
		o.provider = provider
	}
}

// WithEventBus attaches an event bus the renderer publishes lifecycle
// events to: frames rendered, channels skipped, captures completed,
// device loss. Without a bus no events are published.
//
// Example:
//
//	bus := events.New()
//	bus.Subscribe(func(e events.ChannelSkippedEvent) { log.Print(e) })
//	r, err := mosaic.NewRenderer(mosaic.WithEventBus(bus))
func WithEventBus(bus *events.Bus) Option {
	return func(o *rendererOptions) {
		o.bus = bus
	}
}

// WithJPEGQuality sets the lossy capture quality factor in (0, 1].
// The default is 0.95. Values outside the range are clamped.
func WithJPEGQuality(quality float64) Option {
	return func(o *rendererOptions) {
		if quality <= 0 {
			quality = defaultJPEGQuality
		}
		if quality > 1 {
			quality = 1
		}
		o.jpegQuality = quality
	}
}

// WithTextureCacheCapacity bounds how many channel texture sets stay
// GPU-resident. Zero or negative selects the default, which covers five
// channels triple-buffered.
func WithTextureCacheCapacity(n int) Option {
	return func(o *rendererOptions) {
		o.cacheCapacity = n
	}
}

// WithSPIRV precompiles the composite shader to SPIR-V at construction
// instead of handing WGSL source to the backend. Construction fails if
// the shader does not compile.
func WithSPIRV() Option {
	return func(o *rendererOptions) {
		o.useSPIRV = true
	}
}
