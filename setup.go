package uiwgpu

import (
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Setup describes how uiwgpu acquires its GPU handles. It is a closed sum:
// the only implementations are SetupCreateNew and SetupExisting.
type Setup interface {
	// isSetup restricts implementations to this package.
	isSetup()
}

// DeviceDescriptor describes the logical device requested from an adapter.
type DeviceDescriptor struct {
	// Label names the device in backend debug output.
	Label string

	// RequiredFeatures are the features the device must support.
	RequiredFeatures gputypes.Features

	// RequiredLimits are the limits the device is opened with.
	RequiredLimits gputypes.Limits
}

// AdapterSelector picks an adapter from the enumerated candidates.
// The surface may be nil for headless setups. Returning an error aborts
// render state creation; the error is surfaced verbatim to the caller so
// selector-specific detail is preserved.
type AdapterSelector func(adapters []hal.ExposedAdapter, surface Surface) (*hal.ExposedAdapter, error)

// DeviceDescriptorFunc produces the device descriptor for the chosen
// adapter. Inspecting the adapter lets callers scale limits to what the
// hardware actually supports.
type DeviceDescriptorFunc func(adapter *hal.ExposedAdapter) DeviceDescriptor

// SetupCreateNew instructs uiwgpu to create its own instance, pick an
// adapter, and open a device. This is the default mode.
type SetupCreateNew struct {
	// SupportedBackends restricts adapter enumeration to these backends.
	SupportedBackends gputypes.Backends

	// PowerPreference biases adapter selection when no AdapterSelector
	// is set.
	PowerPreference gputypes.PowerPreference

	// AdapterSelector, when non-nil, replaces the built-in selection
	// heuristics entirely.
	AdapterSelector AdapterSelector

	// DeviceDescriptor produces the descriptor used to open the device.
	// Nil means DefaultDeviceDescriptor.
	DeviceDescriptor DeviceDescriptorFunc

	// TracePath, when non-empty, requests an API trace to this
	// directory on backends that support tracing.
	TracePath string
}

func (*SetupCreateNew) isSetup() {}

// SetupExisting adopts GPU handles owned by the host application. uiwgpu
// performs no validation of the handles; the adapter must be the one the
// device was opened on, and the queue must belong to the device.
type SetupExisting struct {
	Instance hal.Instance
	Adapter  *hal.ExposedAdapter
	Device   hal.Device
	Queue    hal.Queue
}

func (*SetupExisting) isSetup() {}

// NewSetupCreateNew returns the default create-new setup, honoring the
// WGPU_BACKEND, WGPU_POWER_PREF, and WGPU_TRACE environment variables.
func NewSetupCreateNew() *SetupCreateNew {
	return &SetupCreateNew{
		SupportedBackends: backendsFromEnv(),
		PowerPreference:   powerPreferenceFromEnv(),
		DeviceDescriptor:  DefaultDeviceDescriptor,
		TracePath:         os.Getenv("WGPU_TRACE"),
	}
}

// SetupFromProvider adopts the device and queue of a gpucontext provider
// (for example gogpu.App's GPU context). The provider must expose the
// underlying HAL handles via HalDevice() any and HalQueue() any.
//
// The returned setup has no instance or adapter: surface-compatible
// formats cannot be queried, so render state creation falls back to the
// surface's own capability report with a nil adapter.
func SetupFromProvider(provider gpucontext.DeviceProvider) (*SetupExisting, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("uiwgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("uiwgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("uiwgpu: provider HalQueue is not hal.Queue")
	}
	return &SetupExisting{Device: device, Queue: queue}, nil
}

// maxTextureSide is the smallest max_texture_dimension_2d uiwgpu asks for.
// UIs render into window-sized textures; 8k covers common displays.
const maxTextureSide = 8192

// glMaxBufferSize caps buffer allocations on the GL-compatibility backend,
// which cannot serve the full default limit.
const glMaxBufferSize = 256 << 20

// DefaultDeviceDescriptor returns the device descriptor used when
// SetupCreateNew.DeviceDescriptor is nil: default limits with the 2D
// texture dimension raised to at least 8192, constrained further on the
// GL-compatibility backend.
func DefaultDeviceDescriptor(adapter *hal.ExposedAdapter) DeviceDescriptor {
	limits := gputypes.DefaultLimits()
	if limits.MaxTextureDimension2D < maxTextureSide {
		limits.MaxTextureDimension2D = maxTextureSide
	}
	if adapter != nil && adapter.Info.Backend == gputypes.BackendGL {
		limits.MaxTextureDimension2D = maxTextureSide
		if limits.MaxBufferSize > glMaxBufferSize {
			limits.MaxBufferSize = glMaxBufferSize
		}
	}
	return DeviceDescriptor{
		Label:          "uiwgpu device",
		RequiredLimits: limits,
	}
}

// backendsFromEnv reads WGPU_BACKEND: a comma-separated, case-insensitive
// list of backend names. Empty or unset selects the primary backends.
func backendsFromEnv() gputypes.Backends {
	env := os.Getenv("WGPU_BACKEND")
	if env == "" {
		return gputypes.BackendsPrimary | gputypes.BackendsGL
	}
	var backends gputypes.Backends
	for _, name := range strings.Split(env, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "":
			continue
		case "vulkan", "vk":
			backends |= gputypes.BackendsVulkan
		case "metal", "mtl":
			backends |= gputypes.BackendsMetal
		case "dx12", "d3d12":
			backends |= gputypes.BackendsDX12
		case "opengl", "gles", "gl":
			backends |= gputypes.BackendsGL
		case "primary":
			backends |= gputypes.BackendsPrimary
		case "all":
			backends |= gputypes.BackendsAll
		default:
			Logger().Warn("uiwgpu: unknown backend in WGPU_BACKEND", "name", name)
		}
	}
	if backends == 0 {
		return gputypes.BackendsPrimary | gputypes.BackendsGL
	}
	return backends
}

// powerPreferenceFromEnv reads WGPU_POWER_PREF ("low", "high", or "none").
// Unset or unrecognized values default to high performance.
func powerPreferenceFromEnv() gputypes.PowerPreference {
	switch strings.ToLower(os.Getenv("WGPU_POWER_PREF")) {
	case "low":
		return gputypes.PowerPreferenceLowPower
	case "none":
		return gputypes.PowerPreference(0)
	case "high", "":
		return gputypes.PowerPreferenceHighPerformance
	default:
		return gputypes.PowerPreferenceHighPerformance
	}
}

// backendAllowed reports whether an adapter's backend is in the mask.
// Backends uiwgpu does not know about (the noop test backend in
// particular) are always allowed.
func backendAllowed(mask gputypes.Backends, backend gputypes.Backend) bool {
	switch backend {
	case gputypes.BackendVulkan:
		return mask&gputypes.BackendsVulkan != 0
	case gputypes.BackendMetal:
		return mask&gputypes.BackendsMetal != 0
	case gputypes.BackendDX12:
		return mask&gputypes.BackendsDX12 != 0
	case gputypes.BackendGL:
		return mask&gputypes.BackendsGL != 0
	default:
		return true
	}
}
