package uiwgpu

import "errors"

// Lifecycle errors returned while acquiring the GPU.
var (
	// ErrNoSuitableAdapter is returned when adapter resolution cannot
	// produce a usable GPU adapter. The wrapped message describes the
	// candidates that were considered.
	ErrNoSuitableAdapter = errors.New("uiwgpu: no suitable GPU adapter found")

	// ErrNoSurfaceFormats is returned when a surface reports an empty
	// set of supported framebuffer formats for the chosen adapter.
	ErrNoSurfaceFormats = errors.New("uiwgpu: surface reported no supported texture formats")

	// ErrDeviceRequest is returned when opening a logical device on the
	// selected adapter fails.
	ErrDeviceRequest = errors.New("uiwgpu: device request failed")

	// ErrSurfaceCreation is returned when the windowing layer cannot
	// create or configure a rendering surface.
	ErrSurfaceCreation = errors.New("uiwgpu: surface creation failed")
)

// Presentation errors a Surface implementation reports from AcquireTexture
// or Present. The surface error policy maps these to a per-frame action;
// see DefaultSurfaceErrorPolicy.
var (
	// ErrSurfaceOutdated indicates the surface no longer matches the
	// window (typically mid-resize). Expected during interactive use.
	ErrSurfaceOutdated = errors.New("uiwgpu: surface outdated")

	// ErrSurfaceLost indicates the swapchain was lost and must be
	// recreated before the next frame.
	ErrSurfaceLost = errors.New("uiwgpu: surface lost")

	// ErrSurfaceTimeout indicates the next surface texture was not
	// available in time.
	ErrSurfaceTimeout = errors.New("uiwgpu: surface acquire timed out")

	// ErrSurfaceOutOfMemory indicates the backend could not allocate
	// the next surface texture.
	ErrSurfaceOutOfMemory = errors.New("uiwgpu: surface out of memory")
)
