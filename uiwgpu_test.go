package uiwgpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopInstance creates a noop instance for testing.
// Returns the instance and a cleanup function.
func createNoopInstance(t *testing.T) (hal.Instance, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	return instance, instance.Destroy
}

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// createNoopState builds a headless RenderState on the noop backend.
func createNoopState(t *testing.T, surface Surface) (*RenderState, func()) {
	t.Helper()
	instance, cleanup := createNoopInstance(t)
	state, err := NewRenderState(DefaultConfiguration(), instance, surface, DepthFormatNone, 1, false)
	if err != nil {
		cleanup()
		t.Fatalf("NewRenderState failed: %v", err)
	}
	return state, func() {
		state.Destroy()
		cleanup()
	}
}

// fakeSurface is a Surface test double.
type fakeSurface struct {
	formats    []gputypes.TextureFormat
	view       hal.TextureView
	acquireErr error
	presentErr error
	acquired   int
	presented  int
}

func (s *fakeSurface) Capabilities(*hal.ExposedAdapter) SurfaceCapabilities {
	return SurfaceCapabilities{Formats: s.formats}
}

func (s *fakeSurface) AcquireTexture() (hal.TextureView, error) {
	s.acquired++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.view, nil
}

func (s *fakeSurface) Present() error {
	s.presented++
	return s.presentErr
}

// solidImage builds a Width x Height image filled with one RGBA color.
func solidImage(width, height int, rgba [4]uint8) Image {
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = rgba[0]
		pixels[i+1] = rgba[1]
		pixels[i+2] = rgba[2]
		pixels[i+3] = rgba[3]
	}
	return Image{Width: width, Height: height, Pixels: pixels}
}

// fullScreenQuad builds a primitive covering the whole screen with the
// given texture.
func fullScreenQuad(tex TextureID, screen *ScreenDescriptor) ClippedPrimitive {
	size := screen.ScreenSizeInPoints()
	w, h := size[0], size[1]
	white := [4]uint8{255, 255, 255, 255}
	return ClippedPrimitive{
		ClipRect: Rect{MinX: 0, MinY: 0, MaxX: w, MaxY: h},
		Mesh: Mesh{
			Texture: tex,
			Vertices: []Vertex{
				{PosX: 0, PosY: 0, U: 0, V: 0, Color: white},
				{PosX: w, PosY: 0, U: 1, V: 0, Color: white},
				{PosX: w, PosY: h, U: 1, V: 1, Color: white},
				{PosX: 0, PosY: h, U: 0, V: 1, Color: white},
			},
			Indices: []uint32{0, 1, 2, 0, 2, 3},
		},
	}
}
