package uiwgpu

import (
	"encoding/binary"
	"math"
)

// TextureID identifies a texture managed by the Renderer. IDs are assigned
// by the UI layer (font atlas, user images) and are opaque to uiwgpu.
type TextureID uint64

// Rect is an axis-aligned rectangle in logical points.
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Vertex is a single tessellated UI vertex.
//
// Position and UV are in logical points and normalized texture coordinates
// respectively. Color is premultiplied sRGBA.
type Vertex struct {
	PosX, PosY float32
	U, V       float32
	Color      [4]uint8
}

// Mesh is one triangle batch produced by the tessellator. Indices address
// Vertices in triangle-list order. All triangles in a mesh sample the same
// texture.
type Mesh struct {
	Indices  []uint32
	Vertices []Vertex
	Texture  TextureID
}

// ClippedPrimitive pairs a mesh with the clip rectangle (in points) that
// scissors its draw call.
type ClippedPrimitive struct {
	ClipRect Rect
	Mesh     Mesh
}

// ScreenDescriptor describes the render target's size and scale factor for
// one frame.
type ScreenDescriptor struct {
	// SizeInPixels is the physical width and height of the target.
	SizeInPixels [2]uint32

	// PixelsPerPoint is the ratio of physical pixels per logical point
	// (HiDPI scale factor).
	PixelsPerPoint float32
}

// ScreenSizeInPoints returns the logical size of the target.
func (s *ScreenDescriptor) ScreenSizeInPoints() [2]float32 {
	return [2]float32{
		float32(s.SizeInPixels[0]) / s.PixelsPerPoint,
		float32(s.SizeInPixels[1]) / s.PixelsPerPoint,
	}
}

// Image is a block of RGBA8 pixel data with premultiplied alpha, row-major,
// no row padding. len(Pixels) must be Width*Height*4.
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

// FilterMode selects the sampler filter for a texture.
type FilterMode uint8

const (
	// FilterNearest samples the nearest texel (crisp pixel art, font
	// atlases rendered at native scale).
	FilterNearest FilterMode = iota

	// FilterLinear interpolates between texels.
	FilterLinear
)

// TextureOptions selects sampler behavior for a texture.
type TextureOptions struct {
	MagFilter FilterMode
	MinFilter FilterMode
}

// ImageDelta describes a texture allocation or an in-place patch.
//
// When Pos is nil the delta (re)allocates the whole texture at the image's
// size. When Pos is set the image patches the existing texture at that
// origin; the texture must already exist and the patch must fit inside it.
type ImageDelta struct {
	Image   Image
	Pos     *[2]int
	Options TextureOptions
}

// TextureUpdate binds an ImageDelta to the texture it targets.
type TextureUpdate struct {
	ID    TextureID
	Delta ImageDelta
}

// TexturesDelta carries the texture changes of one UI pass. Set entries are
// applied before the frame's draws; Free ids are released only after the
// frame's submission has completed, since the draws may still sample them.
type TexturesDelta struct {
	Set  []TextureUpdate
	Free []TextureID
}

// gpuVertexStride is the byte stride per vertex as uploaded to the GPU.
// Layout per vertex (matches VertexInput in shaders/ui.wgsl):
//
//	position (vec2<f32>) = 8 bytes  (location 0)
//	uv       (vec2<f32>) = 8 bytes  (location 1)
//	color    (vec4<f32>) = 16 bytes (location 2)
//
// Total = 32 bytes per vertex.
const gpuVertexStride = 32

// buildVertexData serializes mesh vertices into the GPU vertex layout.
// Colors are expanded from premultiplied sRGBA bytes to normalized floats;
// the shader blends in gamma space, so no linearization happens here.
func buildVertexData(vertices []Vertex) []byte {
	data := make([]byte, len(vertices)*gpuVertexStride)
	off := 0
	put := func(f float32) {
		binary.LittleEndian.PutUint32(data[off:], math.Float32bits(f))
		off += 4
	}
	for i := range vertices {
		v := &vertices[i]
		put(v.PosX)
		put(v.PosY)
		put(v.U)
		put(v.V)
		put(float32(v.Color[0]) / 255.0)
		put(float32(v.Color[1]) / 255.0)
		put(float32(v.Color[2]) / 255.0)
		put(float32(v.Color[3]) / 255.0)
	}
	return data
}

// buildIndexData serializes mesh indices as little-endian uint32.
func buildIndexData(indices []uint32) []byte {
	data := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], idx)
	}
	return data
}
