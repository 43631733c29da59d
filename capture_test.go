package uiwgpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRenderOffscreenImageBounds(t *testing.T) {
	state, cleanup := createNoopState(t, nil)
	defer cleanup()

	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{37, 21}, PixelsPerPoint: 1}
	img, err := state.RenderOffscreen(nil, nil, screen)
	if err != nil {
		t.Fatalf("RenderOffscreen failed: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 37 || got.Dy() != 21 {
		t.Errorf("image bounds = %v, want 37x21", got)
	}
}

func TestRenderOffscreenZeroSize(t *testing.T) {
	state, cleanup := createNoopState(t, nil)
	defer cleanup()

	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{0, 16}, PixelsPerPoint: 1}
	_, err := state.RenderOffscreen(nil, nil, screen)
	if err == nil || !strings.Contains(err.Error(), "zero size") {
		t.Fatalf("err = %v, want zero size error", err)
	}
}

func TestRenderOffscreenDeterministic(t *testing.T) {
	state, cleanup := createNoopState(t, nil)
	defer cleanup()

	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{32, 32}, PixelsPerPoint: 1}
	deltas := &TexturesDelta{Set: []TextureUpdate{
		{ID: 1, Delta: ImageDelta{Image: solidImage(4, 4, [4]uint8{200, 50, 25, 255})}},
	}}
	primitives := []ClippedPrimitive{fullScreenQuad(1, screen)}

	first, err := state.RenderOffscreen(deltas, primitives, screen)
	if err != nil {
		t.Fatalf("first render failed: %v", err)
	}
	second, err := state.RenderOffscreen(nil, primitives, screen)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("identical frames produced different pixels")
	}
}

func TestRenderOffscreenFreesTextures(t *testing.T) {
	state, cleanup := createNoopState(t, nil)
	defer cleanup()

	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{16, 16}, PixelsPerPoint: 1}
	alloc := &TexturesDelta{Set: []TextureUpdate{
		{ID: 9, Delta: ImageDelta{Image: solidImage(2, 2, [4]uint8{})}},
	}}
	if _, err := state.RenderOffscreen(alloc, nil, screen); err != nil {
		t.Fatalf("allocating frame failed: %v", err)
	}

	free := &TexturesDelta{Free: []TextureID{9}}
	if _, err := state.RenderOffscreen(free, nil, screen); err != nil {
		t.Fatalf("freeing frame failed: %v", err)
	}

	if err := state.WithRenderer(func(r *Renderer) error {
		if _, _, ok := r.Texture(9); ok {
			t.Error("texture 9 still cached after free delta")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRenderOffscreenDrainsLiveFrames(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	alloc := &TexturesDelta{Set: []TextureUpdate{
		{ID: 3, Delta: ImageDelta{Image: solidImage(2, 2, [4]uint8{})}},
	}}
	if _, err := state.RenderFrame(surface, alloc, nil, screen); err != nil {
		t.Fatalf("allocating frame failed: %v", err)
	}

	// Park a frame by failing its present, then capture. The capture
	// shares the mesh buffers with the live path, so it must wait out
	// and release the parked frame before rendering.
	surface.presentErr = errors.New("swapchain gone")
	free := &TexturesDelta{Free: []TextureID{3}}
	if _, err := state.RenderFrame(surface, free, nil, screen); err == nil {
		t.Fatal("expected present error")
	}

	if _, err := state.RenderOffscreen(nil, nil, screen); err != nil {
		t.Fatalf("RenderOffscreen failed: %v", err)
	}
	if err := state.WithRenderer(func(r *Renderer) error {
		if _, _, ok := r.Texture(3); ok {
			t.Error("texture 3 still cached after capture drained the queue")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestSwapBGRA(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	swapBGRA(pix)
	want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
	if !bytes.Equal(pix, want) {
		t.Errorf("swapBGRA = %v, want %v", pix, want)
	}
}
