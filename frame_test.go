package uiwgpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// attachSurfaceView gives the fake surface a real texture view to hand out
// from AcquireTexture. The returned cleanup must run before the state is
// destroyed.
func attachSurfaceView(t *testing.T, state *RenderState, surface *fakeSurface, w, h uint32) func() {
	t.Helper()
	device := state.Device
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_surface_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        state.TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("create surface texture: %v", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "test_surface_target_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		t.Fatalf("create surface view: %v", err)
	}
	surface.view = view
	return func() {
		device.DestroyTextureView(view)
		device.DestroyTexture(tex)
	}
}

func presentableState(t *testing.T) (*RenderState, *fakeSurface, *ScreenDescriptor, func()) {
	t.Helper()
	surface := &fakeSurface{formats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm}}
	state, stateCleanup := createNoopState(t, surface)
	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{64, 48}, PixelsPerPoint: 1}
	viewCleanup := attachSurfaceView(t, state, surface, 64, 48)
	return state, surface, screen, func() {
		viewCleanup()
		stateCleanup()
	}
}

func TestRenderFramePresents(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	deltas := &TexturesDelta{Set: []TextureUpdate{
		{ID: 1, Delta: ImageDelta{Image: solidImage(4, 4, [4]uint8{255, 255, 255, 255})}},
	}}
	primitives := []ClippedPrimitive{fullScreenQuad(1, screen)}

	outcome, err := state.RenderFrame(surface, deltas, primitives, screen)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if outcome != FramePresented {
		t.Errorf("outcome = %v, want FramePresented", outcome)
	}
	if surface.acquired != 1 || surface.presented != 1 {
		t.Errorf("acquired/presented = %d/%d, want 1/1", surface.acquired, surface.presented)
	}
}

func TestRenderFrameNoDeltasNoPrimitives(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	outcome, err := state.RenderFrame(surface, nil, nil, screen)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if outcome != FramePresented {
		t.Errorf("outcome = %v, want FramePresented", outcome)
	}
}

func TestRenderFrameAcquireFailureSkips(t *testing.T) {
	installRecorder(t)
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	surface.acquireErr = ErrSurfaceOutdated
	outcome, err := state.RenderFrame(surface, nil, nil, screen)
	if err != nil {
		t.Fatalf("RenderFrame returned error: %v", err)
	}
	if outcome != FrameSkipped {
		t.Errorf("outcome = %v, want FrameSkipped", outcome)
	}
	if surface.presented != 0 {
		t.Errorf("presented = %d, want 0 after failed acquire", surface.presented)
	}
}

func TestRenderFrameAcquireFailureRecreate(t *testing.T) {
	surface := &fakeSurface{
		formats:    []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		acquireErr: ErrSurfaceLost,
	}
	instance, instCleanup := createNoopInstance(t)
	defer instCleanup()

	config := DefaultConfiguration()
	config.OnSurfaceError = func(error) SurfaceErrorAction { return SurfaceErrorRecreateSurface }
	state, err := NewRenderState(config, instance, surface, DepthFormatNone, 1, false)
	if err != nil {
		t.Fatalf("NewRenderState failed: %v", err)
	}
	defer state.Destroy()

	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{64, 48}, PixelsPerPoint: 1}
	outcome, err := state.RenderFrame(surface, nil, nil, screen)
	if err != nil {
		t.Fatalf("RenderFrame returned error: %v", err)
	}
	if outcome != FrameNeedsSurfaceRecreate {
		t.Errorf("outcome = %v, want FrameNeedsSurfaceRecreate", outcome)
	}
}

func TestRenderFrameBadDeltaFailsBeforeAcquire(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	deltas := &TexturesDelta{Set: []TextureUpdate{
		{ID: 1, Delta: ImageDelta{Image: Image{Width: 0, Height: 0}}},
	}}
	outcome, err := state.RenderFrame(surface, deltas, nil, screen)
	if err == nil {
		t.Fatal("expected error for invalid delta")
	}
	if outcome != FrameSkipped {
		t.Errorf("outcome = %v, want FrameSkipped", outcome)
	}
	if surface.acquired != 0 {
		t.Errorf("acquired = %d, want 0 when deltas fail", surface.acquired)
	}
}

func TestRenderFramePresentErrorIsReturned(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	surface.presentErr = errors.New("swapchain gone")
	outcome, err := state.RenderFrame(surface, nil, nil, screen)
	if err == nil || !strings.Contains(err.Error(), "present") {
		t.Fatalf("err = %v, want present error", err)
	}
	if outcome != FrameSkipped {
		t.Errorf("outcome = %v, want FrameSkipped", outcome)
	}
}

func TestRenderFrameFreesTexturesAfterPresent(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	alloc := &TexturesDelta{Set: []TextureUpdate{
		{ID: 5, Delta: ImageDelta{Image: solidImage(4, 4, [4]uint8{})}},
	}}
	if _, err := state.RenderFrame(surface, alloc, nil, screen); err != nil {
		t.Fatalf("allocating frame failed: %v", err)
	}

	free := &TexturesDelta{Free: []TextureID{5}}
	if _, err := state.RenderFrame(surface, free, nil, screen); err != nil {
		t.Fatalf("freeing frame failed: %v", err)
	}

	if err := state.WithRenderer(func(r *Renderer) error {
		if _, _, ok := r.Texture(5); ok {
			t.Error("texture 5 still cached after free delta")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRenderFramePresentFailureDefersFrees(t *testing.T) {
	state, surface, screen, cleanup := presentableState(t)
	defer cleanup()

	alloc := &TexturesDelta{Set: []TextureUpdate{
		{ID: 9, Delta: ImageDelta{Image: solidImage(4, 4, [4]uint8{})}},
	}}
	if _, err := state.RenderFrame(surface, alloc, nil, screen); err != nil {
		t.Fatalf("allocating frame failed: %v", err)
	}

	// A failed present returns before the frame's resources are
	// reclaimed, so the free stays parked with the submission.
	surface.presentErr = errors.New("swapchain gone")
	free := &TexturesDelta{Free: []TextureID{9}}
	if _, err := state.RenderFrame(surface, free, nil, screen); err == nil {
		t.Fatal("expected present error")
	}
	if err := state.WithRenderer(func(r *Renderer) error {
		if _, _, ok := r.Texture(9); !ok {
			t.Error("texture 9 released while its frame was still parked")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	surface.presentErr = nil
	if _, err := state.RenderFrame(surface, nil, nil, screen); err != nil {
		t.Fatalf("follow-up frame failed: %v", err)
	}
	if err := state.WithRenderer(func(r *Renderer) error {
		if _, _, ok := r.Texture(9); ok {
			t.Error("texture 9 still cached after its submission completed")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRenderFrameWithMSAAAndDepth(t *testing.T) {
	surface := &fakeSurface{formats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm}}
	instance, instCleanup := createNoopInstance(t)
	defer instCleanup()

	state, err := NewRenderState(DefaultConfiguration(), instance, surface,
		gputypes.TextureFormatDepth24PlusStencil8, 4, false)
	if err != nil {
		t.Fatalf("NewRenderState failed: %v", err)
	}
	defer state.Destroy()

	screen := &ScreenDescriptor{SizeInPixels: [2]uint32{64, 48}, PixelsPerPoint: 1}
	viewCleanup := attachSurfaceView(t, state, surface, 64, 48)
	defer viewCleanup()

	outcome, err := state.RenderFrame(surface, nil, nil, screen)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if outcome != FramePresented {
		t.Errorf("outcome = %v, want FramePresented", outcome)
	}
}
