package uiwgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/uiwgpu/internal/shader"
)

// Embedded UI mesh shader source.
//
//go:embed shaders/ui.wgsl
var uiShaderSource string

// uiUniformSize is the byte size of the UI uniform buffer.
// Layout: screen_size_in_points (vec2<f32>) = 8 bytes +
// dithering (u32) = 4 bytes + padding (u32) = 4 bytes = 16 bytes.
const uiUniformSize = 16

// RendererOptions configures the UI render pipeline.
type RendererOptions struct {
	// TargetFormat is the color format of the render target.
	TargetFormat gputypes.TextureFormat

	// DepthFormat adds a pass-through depth/stencil state when not
	// DepthFormatNone, so the UI can share a render pass that carries a
	// depth attachment. The UI itself neither tests nor writes depth.
	DepthFormat gputypes.TextureFormat

	// MSAASamples is the sample count of the render target (1 = no
	// multisampling).
	MSAASamples uint32

	// Dithering enables fragment dithering against gradient banding.
	Dithering bool
}

// boundTexture is one entry of the renderer's texture cache.
type boundTexture struct {
	texture   hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup
	width     int
	height    int
	options   TextureOptions
}

// meshDraw is one recorded draw of the current frame, produced by
// UpdateBuffers and consumed by Render.
type meshDraw struct {
	clipRect     Rect
	texture      TextureID
	indexCount   uint32
	indexOffset  uint64
	vertexOffset uint64
}

// Renderer owns the GPU resources of the UI pipeline: shader, layouts,
// samplers, the growable vertex/index buffers, and the texture cache.
//
// Renderer is not safe for concurrent use; RenderState.WithRenderer,
// RenderFrame, and RenderOffscreen serialize access to it.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	opts   RendererOptions

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	textureLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	nearestSampler hal.Sampler
	linearSampler  hal.Sampler

	uniformBuf       hal.Buffer
	uniformBindGroup hal.BindGroup

	// Vertex/index buffers persist across frames and grow on demand.
	vertexBuf hal.Buffer
	vertexCap uint64
	indexBuf  hal.Buffer
	indexCap  uint64

	textures map[TextureID]*boundTexture

	// draws is rebuilt by UpdateBuffers each frame.
	draws []meshDraw
}

// NewRenderer builds the UI pipeline on the given device.
func NewRenderer(device hal.Device, queue hal.Queue, opts RendererOptions) (*Renderer, error) {
	if opts.MSAASamples == 0 {
		opts.MSAASamples = 1
	}
	r := &Renderer{
		device:   device,
		queue:    queue,
		opts:     opts,
		textures: make(map[TextureID]*boundTexture),
	}
	if err := r.createPipeline(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// createPipeline compiles the UI shader and creates the render pipeline
// with premultiplied alpha blending.
func (r *Renderer) createPipeline() error {
	shaderModule, err := shader.CreateModule(r.device, "ui_shader", uiShaderSource)
	if err != nil {
		return fmt.Errorf("compile ui shader: %w", err)
	}
	r.shader = shaderModule

	// Group 0: frame uniforms (screen size, dithering).
	uniformLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "ui_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create ui uniform layout: %w", err)
	}
	r.uniformLayout = uniformLayout

	// Group 1: per-texture binding (texture + sampler).
	textureLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "ui_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create ui texture layout: %w", err)
	}
	r.textureLayout = textureLayout

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "ui_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.uniformLayout, r.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create ui pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	if err := r.createSamplers(); err != nil {
		return err
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	desc := &hal.RenderPipelineDescriptor{
		Label:  "ui_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    uiVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    r.opts.TargetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: r.opts.MSAASamples,
			Mask:  0xFFFFFFFF,
		},
	}
	if r.opts.DepthFormat != DepthFormatNone {
		// Pass-through state: the UI draws over whatever 3D content
		// shares the pass without touching depth or stencil.
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            r.opts.DepthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0x00,
			StencilWriteMask: 0x00,
		}
	}
	pipeline, err := r.device.CreateRenderPipeline(desc)
	if err != nil {
		return fmt.Errorf("create ui pipeline: %w", err)
	}
	r.pipeline = pipeline

	// Persistent frame uniform buffer and its bind group.
	uniformBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ui_uniform",
		Size:  uiUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create ui uniform buffer: %w", err)
	}
	r.uniformBuf = uniformBuf

	uniformBindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "ui_uniform_bind",
		Layout: r.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: uiUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create ui uniform bind group: %w", err)
	}
	r.uniformBindGroup = uniformBindGroup

	return nil
}

// createSamplers builds the two shared samplers textures choose between.
func (r *Renderer) createSamplers() error {
	nearest, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ui_sampler_nearest",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create nearest sampler: %w", err)
	}
	r.nearestSampler = nearest

	linear, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ui_sampler_linear",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create linear sampler: %w", err)
	}
	r.linearSampler = linear
	return nil
}

// samplerFor picks the shared sampler matching the texture options.
func (r *Renderer) samplerFor(opts TextureOptions) hal.Sampler {
	if opts.MagFilter == FilterNearest && opts.MinFilter == FilterNearest {
		return r.nearestSampler
	}
	return r.linearSampler
}

// UpdateTexture applies one texture delta: a full (re)allocation when
// delta.Pos is nil, or an in-place patch of an existing texture otherwise.
func (r *Renderer) UpdateTexture(id TextureID, delta *ImageDelta) error {
	img := &delta.Image
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("uiwgpu: texture %d delta has invalid size %dx%d", id, img.Width, img.Height)
	}
	if len(img.Pixels) != img.Width*img.Height*4 {
		return fmt.Errorf("uiwgpu: texture %d delta pixel data is %d bytes, want %d",
			id, len(img.Pixels), img.Width*img.Height*4)
	}

	if delta.Pos == nil {
		return r.allocateTexture(id, img, delta.Options)
	}
	return r.patchTexture(id, img, *delta.Pos)
}

// allocateTexture creates (or replaces) the texture and uploads the whole
// image.
func (r *Renderer) allocateTexture(id TextureID, img *Image, opts TextureOptions) error {
	if old, ok := r.textures[id]; ok {
		r.destroyBoundTexture(old)
		delete(r.textures, id)
	}

	w, h := uint32(img.Width), uint32(img.Height)
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("ui_texture_%d", id),
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create texture %d: %w", id, err)
	}

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         fmt.Sprintf("ui_texture_%d_view", id),
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return fmt.Errorf("create texture %d view: %w", id, err)
	}

	sampler := r.samplerFor(opts)
	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("ui_texture_%d_bind", id),
		Layout: r.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()}},
		},
	})
	if err != nil {
		r.device.DestroyTextureView(view)
		r.device.DestroyTexture(tex)
		return fmt.Errorf("create texture %d bind group: %w", id, err)
	}

	r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		img.Pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	r.textures[id] = &boundTexture{
		texture:   tex,
		view:      view,
		bindGroup: bindGroup,
		width:     img.Width,
		height:    img.Height,
		options:   opts,
	}
	return nil
}

// patchTexture uploads a subregion into the already-allocated texture.
func (r *Renderer) patchTexture(id TextureID, img *Image, pos [2]int) error {
	bound, ok := r.textures[id]
	if !ok {
		return fmt.Errorf("uiwgpu: patch for unallocated texture %d", id)
	}
	if pos[0] < 0 || pos[1] < 0 ||
		pos[0]+img.Width > bound.width || pos[1]+img.Height > bound.height {
		return fmt.Errorf("uiwgpu: patch %dx%d at (%d,%d) exceeds texture %d bounds %dx%d",
			img.Width, img.Height, pos[0], pos[1], id, bound.width, bound.height)
	}

	w, h := uint32(img.Width), uint32(img.Height)
	r.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  bound.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(pos[0]), Y: uint32(pos[1]), Z: 0},
		},
		img.Pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// FreeTexture releases a texture and its bindings. Callers must ensure the
// last submission sampling it has completed; the frame paths do this by
// freeing only once the queue reports that submission done.
func (r *Renderer) FreeTexture(id TextureID) {
	if bound, ok := r.textures[id]; ok {
		r.destroyBoundTexture(bound)
		delete(r.textures, id)
	}
}

// Texture reports the size of a cached texture.
func (r *Renderer) Texture(id TextureID) (width, height int, ok bool) {
	bound, ok := r.textures[id]
	if !ok {
		return 0, 0, false
	}
	return bound.width, bound.height, true
}

func (r *Renderer) destroyBoundTexture(b *boundTexture) {
	r.device.DestroyBindGroup(b.bindGroup)
	r.device.DestroyTextureView(b.view)
	r.device.DestroyTexture(b.texture)
}

// UpdateBuffers uploads the frame's vertex, index, and uniform data and
// records the draw list for Render. The returned command buffers, if any,
// must be submitted before the frame's primary command buffer.
//
// All uploads currently go through queue writes, which the queue orders
// ahead of the submission; the return value exists for backends that hand
// back staging copy encoders instead.
func (r *Renderer) UpdateBuffers(primitives []ClippedPrimitive, screen *ScreenDescriptor) ([]hal.CommandBuffer, error) {
	r.draws = r.draws[:0]

	var vertexBytes, indexBytes int
	for i := range primitives {
		vertexBytes += len(primitives[i].Mesh.Vertices) * gpuVertexStride
		indexBytes += len(primitives[i].Mesh.Indices) * 4
	}

	vertexData := make([]byte, 0, vertexBytes)
	indexData := make([]byte, 0, indexBytes)
	for i := range primitives {
		prim := &primitives[i]
		if len(prim.Mesh.Indices) == 0 {
			continue
		}
		r.draws = append(r.draws, meshDraw{
			clipRect:     prim.ClipRect,
			texture:      prim.Mesh.Texture,
			indexCount:   uint32(len(prim.Mesh.Indices)),
			indexOffset:  uint64(len(indexData)),
			vertexOffset: uint64(len(vertexData)),
		})
		vertexData = append(vertexData, buildVertexData(prim.Mesh.Vertices)...)
		indexData = append(indexData, buildIndexData(prim.Mesh.Indices)...)
	}

	if len(vertexData) > 0 {
		if err := r.ensureBufferCapacity(&r.vertexBuf, &r.vertexCap, uint64(len(vertexData)),
			"ui_vertices", gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst); err != nil {
			return nil, err
		}
		r.queue.WriteBuffer(r.vertexBuf, 0, vertexData)
	}
	if len(indexData) > 0 {
		if err := r.ensureBufferCapacity(&r.indexBuf, &r.indexCap, uint64(len(indexData)),
			"ui_indices", gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst); err != nil {
			return nil, err
		}
		r.queue.WriteBuffer(r.indexBuf, 0, indexData)
	}

	r.queue.WriteBuffer(r.uniformBuf, 0, makeUIUniform(screen, r.opts.Dithering))

	return nil, nil
}

// ensureBufferCapacity grows a persistent buffer to hold at least size
// bytes. Growth doubles to amortize reallocation across frames.
func (r *Renderer) ensureBufferCapacity(buf *hal.Buffer, capacity *uint64, size uint64, label string, usage gputypes.BufferUsage) error {
	if *buf != nil && *capacity >= size {
		return nil
	}
	newCap := *capacity
	if newCap == 0 {
		newCap = 1 << 16
	}
	for newCap < size {
		newCap *= 2
	}
	if *buf != nil {
		r.device.DestroyBuffer(*buf)
		*buf = nil
	}
	newBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  newCap,
		Usage: usage,
	})
	if err != nil {
		*capacity = 0
		return fmt.Errorf("create %s (%d bytes): %w", label, newCap, err)
	}
	Logger().Debug("uiwgpu: grew buffer", "label", label, "bytes", newCap)
	*buf = newBuf
	*capacity = newCap
	return nil
}

// makeUIUniform serializes the frame uniforms.
func makeUIUniform(screen *ScreenDescriptor, dithering bool) []byte {
	points := screen.ScreenSizeInPoints()
	data := make([]byte, uiUniformSize)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(points[0]))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(points[1]))
	if dithering {
		binary.LittleEndian.PutUint32(data[8:], 1)
	}
	return data
}

// Render records the frame's draws into an open render pass, in the order
// the primitives were given: later batches composite over earlier ones.
// Batches whose texture is missing or whose clip rect is empty are
// skipped. UpdateBuffers must have run for the same primitives first.
func (r *Renderer) Render(rp hal.RenderPassEncoder, screen *ScreenDescriptor) {
	if len(r.draws) == 0 {
		return
	}
	rp.SetPipeline(r.pipeline)
	rp.SetBindGroup(0, r.uniformBindGroup, nil)

	for i := range r.draws {
		draw := &r.draws[i]
		bound, ok := r.textures[draw.texture]
		if !ok {
			Logger().Warn("uiwgpu: draw references missing texture", "texture", draw.texture)
			continue
		}
		x, y, w, h, ok := scissorRect(draw.clipRect, screen)
		if !ok {
			continue
		}
		rp.SetScissorRect(x, y, w, h)
		rp.SetBindGroup(1, bound.bindGroup, nil)
		rp.SetVertexBuffer(0, r.vertexBuf, draw.vertexOffset)
		rp.SetIndexBuffer(r.indexBuf, gputypes.IndexFormatUint32, draw.indexOffset)
		rp.DrawIndexed(draw.indexCount, 1, 0, 0, 0)
	}

	// Restore the full-target scissor for whatever shares the pass.
	rp.SetScissorRect(0, 0, screen.SizeInPixels[0], screen.SizeInPixels[1])
}

// scissorRect converts a clip rect in points to a pixel scissor clamped to
// the target. ok is false when nothing would pass the scissor.
func scissorRect(clip Rect, screen *ScreenDescriptor) (x, y, w, h uint32, ok bool) {
	ppp := screen.PixelsPerPoint
	minX := int64(math.Round(float64(clip.MinX * ppp)))
	minY := int64(math.Round(float64(clip.MinY * ppp)))
	maxX := int64(math.Round(float64(clip.MaxX * ppp)))
	maxY := int64(math.Round(float64(clip.MaxY * ppp)))

	minX = clampInt64(minX, 0, int64(screen.SizeInPixels[0]))
	minY = clampInt64(minY, 0, int64(screen.SizeInPixels[1]))
	maxX = clampInt64(maxX, minX, int64(screen.SizeInPixels[0]))
	maxY = clampInt64(maxY, minY, int64(screen.SizeInPixels[1]))

	if maxX <= minX || maxY <= minY {
		return 0, 0, 0, 0, false
	}
	return uint32(minX), uint32(minY), uint32(maxX - minX), uint32(maxY - minY), true
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// uiVertexLayout returns the vertex buffer layout for the UI pipeline.
// Matches VertexInput in shaders/ui.wgsl.
func uiVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: gpuVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
			},
		},
	}
}

// Destroy releases all GPU resources held by the renderer. Safe to call
// multiple times.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	for id, bound := range r.textures {
		r.destroyBoundTexture(bound)
		delete(r.textures, id)
	}
	if r.vertexBuf != nil {
		r.device.DestroyBuffer(r.vertexBuf)
		r.vertexBuf = nil
		r.vertexCap = 0
	}
	if r.indexBuf != nil {
		r.device.DestroyBuffer(r.indexBuf)
		r.indexBuf = nil
		r.indexCap = 0
	}
	if r.uniformBindGroup != nil {
		r.device.DestroyBindGroup(r.uniformBindGroup)
		r.uniformBindGroup = nil
	}
	if r.uniformBuf != nil {
		r.device.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
	if r.nearestSampler != nil {
		r.device.DestroySampler(r.nearestSampler)
		r.nearestSampler = nil
	}
	if r.linearSampler != nil {
		r.device.DestroySampler(r.linearSampler)
		r.linearSampler = nil
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.textureLayout != nil {
		r.device.DestroyBindGroupLayout(r.textureLayout)
		r.textureLayout = nil
	}
	if r.uniformLayout != nil {
		r.device.DestroyBindGroupLayout(r.uniformLayout)
		r.uniformLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}
