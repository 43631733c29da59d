// Package uiwgpu bridges an immediate-mode GUI to the GoGPU wgpu backend.
//
// # Overview
//
// uiwgpu sits between a UI tessellator and the GPU. Each UI pass produces
// texture deltas and clipped triangle meshes; uiwgpu uploads them, records
// a single render pass, and either presents to a window surface or reads
// the frame back as pixels.
//
// The package has three layers:
//
//   - [Setup] and [Configuration] describe how the GPU is acquired:
//     either uiwgpu creates an instance/adapter/device itself
//     ([SetupCreateNew]), or the host application hands over an existing
//     set of handles ([SetupExisting]).
//   - [RenderState] owns the adapter, device, queue, target format, and
//     the [Renderer]. It is the long-lived object a window (or offscreen
//     harness) keeps around.
//   - [Renderer] owns the GPU resources of the UI pipeline itself:
//     shader, bind group layouts, samplers, growable vertex/index
//     buffers, and the texture cache.
//
// # Quick Start
//
//	import "github.com/gogpu/uiwgpu"
//
//	state, err := uiwgpu.NewRenderState(uiwgpu.DefaultConfiguration(),
//	    instance, surface, uiwgpu.DepthFormatNone, 1, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer state.Destroy()
//
//	// Every frame:
//	outcome, err := state.RenderFrame(surface, deltas, primitives, screen)
//
// For tests and headless rendering, [RenderState.RenderOffscreen] runs the
// same frame protocol against a transient texture and returns the pixels.
//
// # Logging
//
// uiwgpu is silent by default. Call [SetLogger] to enable structured
// logging via log/slog.
package uiwgpu
