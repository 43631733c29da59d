package uiwgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderState carries the long-lived GPU handles of one render target:
// adapter, device, queue, target format, and the Renderer. A window keeps
// one RenderState for its lifetime; offscreen harnesses do the same
// without a surface.
type RenderState struct {
	// Adapter is the adapter the device was opened on. Nil when the
	// state was built from a SetupExisting without an adapter.
	Adapter *hal.ExposedAdapter

	// AvailableAdapters lists every adapter that was enumerated during
	// creation, for diagnostics and for callers that present on
	// additional surfaces.
	AvailableAdapters []hal.ExposedAdapter

	// Device and Queue are the logical device and its queue.
	Device hal.Device
	Queue  hal.Queue

	// TargetFormat is the framebuffer format the UI pipeline renders
	// into.
	TargetFormat gputypes.TextureFormat

	ownsDevice     bool
	onSurfaceError SurfaceErrorPolicy

	// mu guards renderer, targets, and pending. All frame work runs
	// under it; see WithRenderer.
	mu       sync.Mutex
	renderer *Renderer
	targets  frameTargets

	// pending holds submitted frames whose command buffers and freed
	// textures wait for GPU completion. Ordered by submission index.
	pending []pendingFrame
}

// NewRenderState negotiates GPU access per the configuration and builds
// the UI renderer.
//
// The instance is owned by the caller and is only used to enumerate
// adapters; it may be nil when config.Setup is a SetupExisting. surface
// may be nil for headless rendering, in which case the target format is
// RGBA8. depthFormat is DepthFormatNone or a format from
// DepthFormatFromBits; msaaSamples of 0 or 1 disables multisampling.
func NewRenderState(
	config *Configuration,
	instance hal.Instance,
	surface Surface,
	depthFormat gputypes.TextureFormat,
	msaaSamples uint32,
	dithering bool,
) (*RenderState, error) {
	if msaaSamples == 0 {
		msaaSamples = 1
	}

	state := &RenderState{onSurfaceError: config.OnSurfaceError}
	if state.onSurfaceError == nil {
		state.onSurfaceError = DefaultSurfaceErrorPolicy
	}

	switch setup := config.Setup.(type) {
	case *SetupCreateNew:
		if instance == nil {
			return nil, fmt.Errorf("%w: no instance to enumerate adapters on", ErrNoSuitableAdapter)
		}
		adapters := enumerateAdapters(instance, setup.SupportedBackends)
		state.AvailableAdapters = adapters

		var err error
		if setup.AdapterSelector != nil {
			state.Adapter, err = setup.AdapterSelector(adapters, surface)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNoSuitableAdapter, err)
			}
		} else {
			state.Adapter, err = requestAdapter(adapters, setup.PowerPreference, surface)
			if err != nil {
				return nil, err
			}
		}
		Logger().Info("uiwgpu: adapter selected",
			"adapter", AdapterInfoSummary(&state.Adapter.Info),
			"candidates", len(adapters))

		descFn := setup.DeviceDescriptor
		if descFn == nil {
			descFn = DefaultDeviceDescriptor
		}
		desc := descFn(state.Adapter)
		if setup.TracePath != "" {
			// hal has no trace sink yet; record the intent so a
			// missing capture is explainable.
			Logger().Debug("uiwgpu: WGPU_TRACE set but tracing is not supported by this backend",
				"path", setup.TracePath)
		}
		open, err := state.Adapter.Adapter.Open(desc.RequiredFeatures, desc.RequiredLimits)
		if err != nil {
			return nil, fmt.Errorf("%w: open %q on %s: %v",
				ErrDeviceRequest, desc.Label, AdapterInfoSummary(&state.Adapter.Info), err)
		}
		state.Device = open.Device
		state.Queue = open.Queue
		state.ownsDevice = true

	case *SetupExisting:
		state.Adapter = setup.Adapter
		state.Device = setup.Device
		state.Queue = setup.Queue
		if instance == nil {
			instance = setup.Instance
		}
		if instance != nil {
			state.AvailableAdapters = instance.EnumerateAdapters(nil)
		} else if setup.Adapter != nil {
			state.AvailableAdapters = []hal.ExposedAdapter{*setup.Adapter}
		}

	default:
		return nil, fmt.Errorf("uiwgpu: unknown setup type %T", config.Setup)
	}

	if surface != nil {
		caps := surface.Capabilities(state.Adapter)
		format, err := PreferredFramebufferFormat(caps.Formats)
		if err != nil {
			state.releaseDevice()
			return nil, err
		}
		state.TargetFormat = format
	} else {
		state.TargetFormat = gputypes.TextureFormatRGBA8Unorm
	}

	renderer, err := NewRenderer(state.Device, state.Queue, RendererOptions{
		TargetFormat: state.TargetFormat,
		DepthFormat:  depthFormat,
		MSAASamples:  msaaSamples,
		Dithering:    dithering,
	})
	if err != nil {
		state.releaseDevice()
		return nil, err
	}
	state.renderer = renderer

	return state, nil
}

// enumerateAdapters lists the instance's adapters restricted to the
// backend mask. A zero mask allows everything.
func enumerateAdapters(instance hal.Instance, mask gputypes.Backends) []hal.ExposedAdapter {
	all := instance.EnumerateAdapters(nil)
	if mask == 0 {
		return all
	}
	filtered := all[:0:0]
	for _, a := range all {
		if backendAllowed(mask, a.Info.Backend) {
			filtered = append(filtered, a)
		} else {
			Logger().Debug("uiwgpu: adapter excluded by backend mask",
				"adapter", AdapterInfoSummary(&a.Info))
		}
	}
	return filtered
}

// WithRenderer runs fn with exclusive access to the Renderer. The renderer
// must not be retained beyond fn.
//
// RenderFrame and RenderOffscreen take the same lock, so UI-side texture
// management can interleave safely with frame rendering.
func (s *RenderState) WithRenderer(fn func(*Renderer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.renderer)
}

// Destroy releases the renderer and, when the state opened the device
// itself, the device. Adopted handles stay alive; they belong to whoever
// passed them in.
func (s *RenderState) Destroy() {
	s.mu.Lock()
	if len(s.pending) > 0 {
		if err := s.drainPending(); err != nil {
			Logger().Warn("uiwgpu: destroying with GPU work still pending", "err", err)
			s.pending = nil
		}
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.Device != nil {
		s.targets.destroy(s.Device)
	}
	s.mu.Unlock()
	s.releaseDevice()
}

func (s *RenderState) releaseDevice() {
	if s.ownsDevice && s.Device != nil {
		s.Device.Destroy()
		s.Device = nil
		s.ownsDevice = false
	}
}
