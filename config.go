package uiwgpu

// PresentMode selects how surface presentation is paced. uiwgpu does not
// configure the surface itself; the windowing layer reads this value when
// it (re)configures its swapchain.
type PresentMode uint8

const (
	// PresentModeAutoVsync picks the best vsynced mode the surface
	// supports. Default.
	PresentModeAutoVsync PresentMode = iota

	// PresentModeFifo queues frames strictly in order (classic vsync).
	PresentModeFifo

	// PresentModeMailbox replaces the queued frame with the newest one.
	PresentModeMailbox

	// PresentModeImmediate presents without waiting for vblank.
	PresentModeImmediate
)

// String returns the present mode name.
func (m PresentMode) String() string {
	switch m {
	case PresentModeAutoVsync:
		return "auto-vsync"
	case PresentModeFifo:
		return "fifo"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// Configuration bundles everything needed to build a RenderState. The zero
// value is not usable; start from DefaultConfiguration.
type Configuration struct {
	// PresentMode is the presentation pacing requested from the
	// windowing layer.
	PresentMode PresentMode

	// DesiredMaximumFrameLatency is the number of frames the surface is
	// asked to buffer ahead. Zero keeps the surface's default.
	DesiredMaximumFrameLatency uint32

	// Setup describes how GPU handles are acquired.
	Setup Setup

	// OnSurfaceError maps a failed surface acquire to a per-frame
	// action. Nil means DefaultSurfaceErrorPolicy.
	OnSurfaceError SurfaceErrorPolicy
}

// DefaultConfiguration returns the default configuration: auto-vsync, a
// frame latency of 2, a fresh SetupCreateNew honoring the WGPU_* environment
// variables, and the default surface error policy.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		PresentMode:                PresentModeAutoVsync,
		DesiredMaximumFrameLatency: 2,
		Setup:                      NewSetupCreateNew(),
		OnSurfaceError:             DefaultSurfaceErrorPolicy,
	}
}
