package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mosaic/internal/cache"
)

// defaultTextureCacheCapacity bounds the number of channel texture sets
// kept alive. Five camera channels fit comfortably; the headroom covers
// callers that key uploads by stream identity rather than position.
const defaultTextureCacheCapacity = 16

// UploadKind selects the fragment path a channel texture is sampled with.
type UploadKind int

const (
	// UploadRGBA is a single interleaved RGBA plane.
	UploadRGBA UploadKind = iota
	// UploadYUV is three planar single-byte planes (Y, U, V).
	UploadYUV
)

// Plane is one plane of pixel data staged for GPU upload.
// Stride is in bytes and covers any row alignment padding.
type Plane struct {
	Bytes  []byte
	Width  int
	Height int
	Stride int
}

// Upload describes one channel's current frame content. Generation
// increments whenever the plane bytes change; the cache compares it to
// skip redundant uploads when a channel repeats a frame.
type Upload struct {
	Key        any
	Generation uint64
	Kind       UploadKind
	Planes     []Plane
}

// ChannelTexture holds the GPU textures for one channel. RGBA content
// uses a single texture; planar YUV uses three single-channel textures
// (chroma planes at half resolution).
type ChannelTexture struct {
	kind       UploadKind
	width      int
	height     int
	generation uint64
	planeCount int
	textures   [3]hal.Texture
	views      [3]hal.TextureView
}

// Generation returns the content generation currently on the GPU.
func (t *ChannelTexture) Generation() uint64 { return t.generation }

// matches reports whether the cached textures can hold the upload
// without reallocation.
func (t *ChannelTexture) matches(up Upload) bool {
	return t.kind == up.Kind &&
		t.planeCount == len(up.Planes) &&
		t.width == up.Planes[0].Width &&
		t.height == up.Planes[0].Height
}

// planeView returns the texture view handle for a plane slot. RGBA
// entries have a single view; the unused slots alias it so one bind
// group layout serves both pipelines.
func (t *ChannelTexture) planeView(i int) uintptr {
	if i < t.planeCount && t.views[i] != nil {
		return t.views[i].NativeHandle()
	}
	return t.views[0].NativeHandle()
}

// upload writes all plane bytes into the existing textures.
func (t *ChannelTexture) upload(queue hal.Queue, up Upload) {
	for i, plane := range up.Planes {
		w, h := uint32(plane.Width), uint32(plane.Height) //nolint:gosec // dimensions always fit uint32
		queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: t.textures[i], MipLevel: 0},
			plane.Bytes,
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(plane.Stride), //nolint:gosec // strides always fit uint32
				RowsPerImage: h,
			},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
	}
}

// destroy releases the GPU resources held by the texture set.
func (t *ChannelTexture) destroy(device hal.Device) {
	for i := range t.views {
		if t.views[i] != nil {
			device.DestroyTextureView(t.views[i])
			t.views[i] = nil
		}
	}
	for i := range t.textures {
		if t.textures[i] != nil {
			device.DestroyTexture(t.textures[i])
			t.textures[i] = nil
		}
	}
}

// TextureCache keeps per-channel GPU textures alive across frames so a
// channel with unchanged content costs nothing and a changed channel
// costs one WriteTexture per plane. Textures are reallocated only when
// a channel's geometry or pixel format changes. Displaced entries have
// their GPU resources destroyed.
//
// TextureCache is not safe for concurrent use; the compositor
// serializes access.
type TextureCache struct {
	device  hal.Device
	queue   hal.Queue
	entries *cache.Cache[any, *ChannelTexture]
}

// NewTextureCache creates a cache bound to a device and queue.
// A capacity <= 0 selects the default.
func NewTextureCache(device hal.Device, queue hal.Queue, capacity int) *TextureCache {
	if capacity <= 0 {
		capacity = defaultTextureCacheCapacity
	}
	tc := &TextureCache{device: device, queue: queue}
	tc.entries = cache.New[any, *ChannelTexture](capacity, func(_ any, t *ChannelTexture) {
		t.destroy(tc.device)
	})
	return tc
}

// Sync returns GPU textures holding the upload's content, creating or
// updating them as needed:
//
//   - same generation: the cached entry is returned untouched
//   - newer generation, same geometry: planes are rewritten in place
//   - geometry or kind change: textures are recreated
func (tc *TextureCache) Sync(up Upload) (*ChannelTexture, error) {
	if len(up.Planes) == 0 || len(up.Planes) > 3 {
		return nil, fmt.Errorf("upload has %d planes", len(up.Planes))
	}

	if entry, ok := tc.entries.Get(up.Key); ok && entry.matches(up) {
		if entry.generation == up.Generation {
			return entry, nil
		}
		entry.upload(tc.queue, up)
		entry.generation = up.Generation
		return entry, nil
	}

	entry, err := tc.create(up)
	if err != nil {
		return nil, err
	}
	entry.upload(tc.queue, up)
	entry.generation = up.Generation

	// Set displaces any stale entry for this key, destroying its textures.
	tc.entries.Set(up.Key, entry)
	return entry, nil
}

// create allocates textures and views for every plane of the upload.
func (tc *TextureCache) create(up Upload) (*ChannelTexture, error) {
	format := gputypes.TextureFormatRGBA8Unorm
	if up.Kind == UploadYUV {
		format = gputypes.TextureFormatR8Unorm
	}

	entry := &ChannelTexture{
		kind:       up.Kind,
		width:      up.Planes[0].Width,
		height:     up.Planes[0].Height,
		planeCount: len(up.Planes),
	}

	for i, plane := range up.Planes {
		w, h := uint32(plane.Width), uint32(plane.Height) //nolint:gosec // dimensions always fit uint32
		tex, err := tc.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("channel_plane_%d", i),
			Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			entry.destroy(tc.device)
			return nil, fmt.Errorf("create channel texture %d: %w", i, err)
		}
		entry.textures[i] = tex

		view, err := tc.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         fmt.Sprintf("channel_plane_%d_view", i),
			Format:        format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			entry.destroy(tc.device)
			return nil, fmt.Errorf("create channel texture view %d: %w", i, err)
		}
		entry.views[i] = view
	}

	return entry, nil
}

// Forget drops one channel's textures, releasing their GPU memory.
func (tc *TextureCache) Forget(key any) bool {
	return tc.entries.Delete(key)
}

// Len returns the number of cached channel texture sets.
func (tc *TextureCache) Len() int { return tc.entries.Len() }

// Destroy releases every cached texture set.
func (tc *TextureCache) Destroy() {
	tc.entries.Clear()
}
