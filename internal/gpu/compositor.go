package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// gpuWaitTimeout bounds the fence wait after each frame submit.
const gpuWaitTimeout = 5 * time.Second

// Viewport is a rectangular region of the render target in pixels.
type Viewport struct {
	X, Y, W, H float32
}

// RenderItem pairs one channel's GPU textures with the viewport it
// draws into.
type RenderItem struct {
	Texture  *ChannelTexture
	Viewport Viewport
}

// Compositor owns the GPU pipeline that draws channel textures into
// their viewports on a BGRA8 render target, and reads the composed
// frame back to CPU memory as RGBA on demand.
//
// The two render pipelines share one shader module and bind group
// layout; they differ only in the fragment entry point (direct RGBA
// sampling vs planar YUV conversion). Per-channel textures are managed
// by a TextureCache so unchanged channels upload nothing.
//
// Compositor is not safe for concurrent use; the caller serializes
// frame rendering.
type Compositor struct {
	dc     *deviceContext
	device hal.Device
	queue  hal.Queue

	cache *TextureCache

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeRGBA   hal.RenderPipeline
	pipeYUV    hal.RenderPipeline
	sampler    hal.Sampler
	quadBuf    hal.Buffer

	target     hal.Texture
	targetView hal.TextureView
	width      uint32
	height     uint32

	// frame caches the last ReadFrame result as tightly packed RGBA;
	// frameValid marks it current. RenderFrame invalidates it.
	frame      []byte
	frameValid bool

	useSPIRV bool
}

// NewCompositor opens a GPU device (or borrows one from provider) and
// builds all static pipeline resources. On any failure the partially
// created resources are released and an error returned.
func NewCompositor(provider any, cacheCapacity int, useSPIRV bool) (*Compositor, error) {
	dc, err := acquireDevice(provider)
	if err != nil {
		return nil, fmt.Errorf("acquire device: %w", err)
	}
	c := &Compositor{
		dc:       dc,
		device:   dc.device,
		queue:    dc.queue,
		useSPIRV: useSPIRV,
	}
	if err := c.createResources(); err != nil {
		c.Destroy()
		return nil, err
	}
	c.cache = NewTextureCache(c.device, c.queue, cacheCapacity)
	return c, nil
}

// AdapterName returns the name of the adapter the compositor renders on.
func (c *Compositor) AdapterName() string {
	if c.dc == nil {
		return ""
	}
	return c.dc.adapterName
}

// SyncChannel uploads one channel's frame content, reusing cached
// textures where possible.
func (c *Compositor) SyncChannel(up Upload) (*ChannelTexture, error) {
	return c.cache.Sync(up)
}

// ForgetChannel drops one channel's cached textures.
func (c *Compositor) ForgetChannel(key any) bool {
	return c.cache.Forget(key)
}

// CachedChannels returns the number of channels with live GPU textures.
func (c *Compositor) CachedChannels() int {
	return c.cache.Len()
}

// createResources builds the static GPU objects in pipeline order:
// shader module, bind group layout, pipeline layout, render pipelines,
// sampler, quad vertex buffer.
func (c *Compositor) createResources() error {
	if compositeShaderSource == "" {
		return fmt.Errorf("composite shader source is empty")
	}

	source := hal.ShaderSource{WGSL: compositeShaderSource}
	if c.useSPIRV {
		code, err := compileShaderSPIRV(compositeShaderSource)
		if err != nil {
			return fmt.Errorf("compile composite shader: %w", err)
		}
		source = hal.ShaderSource{SPIRV: code}
	}
	shader, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "composite_shader",
		Source: source,
	})
	if err != nil {
		return fmt.Errorf("compile composite shader: %w", err)
	}
	c.shader = shader

	// Bind group layout:
	//   Binding 0: Params (uniform buffer, vertex+fragment)
	//   Binding 1: plane 0 texture (RGBA or Y, fragment)
	//   Binding 2: plane 1 texture (U, fragment; aliases plane 0 for RGBA)
	//   Binding 3: plane 2 texture (V, fragment; aliases plane 0 for RGBA)
	//   Binding 4: sampler (fragment)
	planeTexture := gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "composite_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: &planeTexture},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Texture: &planeTexture},
			{Binding: 3, Visibility: gputypes.ShaderStageFragment, Texture: &planeTexture},
			{
				Binding:    4,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create composite bind layout: %w", err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "composite_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create composite pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout

	pipeRGBA, err := c.createPipeline("composite_rgba_pipeline", "fs_rgba")
	if err != nil {
		return err
	}
	c.pipeRGBA = pipeRGBA

	pipeYUV, err := c.createPipeline("composite_yuv_pipeline", "fs_yuv")
	if err != nil {
		return err
	}
	c.pipeYUV = pipeYUV

	// Linear filtering for viewport scaling; clamp so zoomed sampling
	// never wraps to the opposite frame edge.
	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "composite_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create composite sampler: %w", err)
	}
	c.sampler = sampler

	quadBuf, err := c.createAndUploadBuffer("composite_quad", quadVertexData(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	c.quadBuf = quadBuf

	return nil
}

// createPipeline builds one render pipeline variant. Both variants share
// the shader module, vertex stage, and pipeline layout; only the
// fragment entry point differs.
func (c *Compositor) createPipeline(label, fragmentEntry string) (hal.RenderPipeline, error) {
	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: c.pipeLayout,
		Vertex: hal.VertexState{
			Module:     c.shader,
			EntryPoint: "vs_main",
			Buffers:    compositeVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     c.shader,
			EntryPoint: fragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatBGRA8Unorm,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return pipeline, nil
}

// ensureTarget creates or recreates the render target if the requested
// dimensions differ from the current size. If dimensions match and the
// target exists, this is a no-op.
func (c *Compositor) ensureTarget(w, h uint32) error {
	if c.width == w && c.height == h && c.target != nil {
		return nil
	}
	c.destroyTarget()

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "composite_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create render target: %w", err)
	}
	c.target = tex

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "composite_target_view",
	})
	if err != nil {
		c.destroyTarget()
		return fmt.Errorf("create render target view: %w", err)
	}
	c.targetView = view

	c.width = w
	c.height = h
	return nil
}

// RenderFrame composes the items into a w x h frame: the target is
// cleared to opaque black and every item is drawn into its viewport
// with the transform snapshot applied. The composed frame stays on the
// GPU; ReadFrame fetches it when a capture needs CPU pixels.
//
// An item whose bind group cannot be built is skipped so the remaining
// channels still render. Frame-level failures (encoding, submit, fence)
// abort the frame with an error.
func (c *Compositor) RenderFrame(w, h uint32, items []RenderItem, snapshot [6]float32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("render target is empty: %dx%d", w, h)
	}
	if err := c.ensureTarget(w, h); err != nil {
		return err
	}

	uniformBuf, err := c.createAndUploadBuffer("composite_params",
		packCompositeUniform(snapshot),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer c.device.DestroyBuffer(uniformBuf)

	type draw struct {
		bindGroup hal.BindGroup
		viewport  Viewport
		kind      UploadKind
	}
	draws := make([]draw, 0, len(items))
	defer func() {
		for _, d := range draws {
			c.device.DestroyBindGroup(d.bindGroup)
		}
	}()

	for _, item := range items {
		if item.Texture == nil {
			continue
		}
		vp := clampViewport(item.Viewport, float32(w), float32(h))
		if vp.W <= 0 || vp.H <= 0 {
			continue
		}
		bg, err := c.createItemBindGroup(uniformBuf, item.Texture)
		if err != nil {
			slogger().Warn("channel bind group failed, skipping", "error", err)
			continue
		}
		draws = append(draws, draw{bindGroup: bg, viewport: vp, kind: item.Texture.kind})
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "composite_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("composite_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "composite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       c.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	for _, d := range draws {
		if d.kind == UploadYUV {
			rp.SetPipeline(c.pipeYUV)
		} else {
			rp.SetPipeline(c.pipeRGBA)
		}
		rp.SetBindGroup(0, d.bindGroup, nil)
		rp.SetVertexBuffer(0, c.quadBuf, 0)
		rp.SetViewport(d.viewport.X, d.viewport.Y, d.viewport.W, d.viewport.H, 0, 1)
		rp.Draw(4, 1, 0, 0)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	// The fence wait bounds the per-frame resource lifetimes: the
	// deferred bind group and uniform buffer destruction is safe only
	// once the commands referencing them have executed.
	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := c.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	c.frameValid = false
	return nil
}

// ReadFrame copies the composed target back to CPU memory and returns
// it as tightly packed RGBA with its dimensions. Repeated calls between
// frames return the cached copy; only the first after a RenderFrame
// performs the GPU round trip. The slice is reused by later readbacks,
// so callers that hold the data must copy it.
func (c *Compositor) ReadFrame() ([]byte, int, int, error) {
	if c.target == nil {
		return nil, 0, 0, fmt.Errorf("no composed frame")
	}
	w, h := c.width, c.height
	pixelCount := int(w) * int(h)
	if c.frameValid && len(c.frame) == pixelCount*4 {
		return c.frame, int(w), int(h), nil
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "readback_encoder",
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, 0, 0, fmt.Errorf("begin readback encoding: %w", err)
	}

	// The last render pass left the target in render attachment layout;
	// CopyTextureToBuffer requires copy source. Transition explicitly
	// (no-op on backends without layout tracking).
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: c.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	// Copy to staging for CPU readback. WebGPU (and DX12) requires
	// BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingBufSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  stagingBufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, 0, 0, fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(c.target, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: c.target, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Transition back so the next frame's render pass starts from the
	// layout it expects.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: c.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("end readback encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create readback fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, 0, 0, fmt.Errorf("submit readback: %w", err)
	}
	fenceOK, err := c.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return nil, 0, 0, fmt.Errorf("wait for readback: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingBufSize)
	if err := c.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, 0, 0, fmt.Errorf("readback: %w", err)
	}

	// Strip row padding (if any) and convert BGRA to RGBA.
	if len(c.frame) != pixelCount*4 {
		c.frame = make([]byte, pixelCount*4)
	}
	if alignedBytesPerRow == bytesPerRow {
		convertBGRAToRGBA(readback, c.frame, pixelCount)
	} else {
		tight := make([]byte, uint64(bytesPerRow)*uint64(h))
		for row := uint32(0); row < h; row++ {
			srcOff := int(row) * int(alignedBytesPerRow)
			dstOff := int(row) * int(bytesPerRow)
			copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
		}
		convertBGRAToRGBA(tight, c.frame, pixelCount)
	}
	c.frameValid = true
	return c.frame, int(w), int(h), nil
}

// createItemBindGroup binds the shared uniform buffer, one channel's
// plane views, and the sampler. The bind group is frame-scoped; the
// caller destroys it after submit.
func (c *Compositor) createItemBindGroup(uniformBuf hal.Buffer, tex *ChannelTexture) (hal.BindGroup, error) {
	return c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "composite_bind",
		Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: compositeUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: tex.planeView(0)}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: tex.planeView(1)}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{TextureView: tex.planeView(2)}},
			{Binding: 4, Resource: gputypes.SamplerBinding{Sampler: c.sampler.NativeHandle()}},
		},
	})
}

// Size returns the current render target dimensions.
func (c *Compositor) Size() (uint32, uint32) {
	return c.width, c.height
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (c *Compositor) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	c.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// destroyTarget releases the render target texture and view.
func (c *Compositor) destroyTarget() {
	if c.targetView != nil {
		c.device.DestroyTextureView(c.targetView)
		c.targetView = nil
	}
	if c.target != nil {
		c.device.DestroyTexture(c.target)
		c.target = nil
	}
	c.width = 0
	c.height = 0
}

// Destroy releases all GPU resources in reverse creation order. Safe to
// call multiple times or on a partially constructed compositor.
func (c *Compositor) Destroy() {
	if c.device != nil {
		if c.cache != nil {
			c.cache.Destroy()
			c.cache = nil
		}
		c.destroyTarget()
		if c.quadBuf != nil {
			c.device.DestroyBuffer(c.quadBuf)
			c.quadBuf = nil
		}
		if c.sampler != nil {
			c.device.DestroySampler(c.sampler)
			c.sampler = nil
		}
		if c.pipeYUV != nil {
			c.device.DestroyRenderPipeline(c.pipeYUV)
			c.pipeYUV = nil
		}
		if c.pipeRGBA != nil {
			c.device.DestroyRenderPipeline(c.pipeRGBA)
			c.pipeRGBA = nil
		}
		if c.pipeLayout != nil {
			c.device.DestroyPipelineLayout(c.pipeLayout)
			c.pipeLayout = nil
		}
		if c.bindLayout != nil {
			c.device.DestroyBindGroupLayout(c.bindLayout)
			c.bindLayout = nil
		}
		if c.shader != nil {
			c.device.DestroyShaderModule(c.shader)
			c.shader = nil
		}
	}
	c.dc.close()
	c.device = nil
	c.queue = nil
	c.frame = nil
	c.frameValid = false
}

// clampViewport clips a viewport to the render target bounds. SetViewport
// rejects regions extending past the attachment, so oversized layout
// rectangles (Focus mode with an absent focused channel) are trimmed
// rather than dropped.
func clampViewport(vp Viewport, w, h float32) Viewport {
	if vp.X < 0 {
		vp.W += vp.X
		vp.X = 0
	}
	if vp.Y < 0 {
		vp.H += vp.Y
		vp.Y = 0
	}
	if vp.X > w {
		vp.X = w
	}
	if vp.Y > h {
		vp.Y = h
	}
	if vp.X+vp.W > w {
		vp.W = w - vp.X
	}
	if vp.Y+vp.H > h {
		vp.H = h - vp.Y
	}
	return vp
}
