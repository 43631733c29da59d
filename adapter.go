package uiwgpu

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// AdapterInfoSummary formats a one-line human-readable description of an
// adapter, skipping fields the backend left empty.
func AdapterInfoSummary(info *gputypes.AdapterInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v (%v)", info.Backend, info.DeviceType)
	if info.Name != "" {
		fmt.Fprintf(&sb, " %q", info.Name)
	}
	if info.Vendor != "" {
		fmt.Fprintf(&sb, " vendor %s", info.Vendor)
	}
	if info.Driver != "" {
		fmt.Fprintf(&sb, " driver %s", info.Driver)
	}
	return sb.String()
}

// describeAdapters lists adapter summaries for multi-candidate diagnostics.
func describeAdapters(adapters []hal.ExposedAdapter) string {
	if len(adapters) == 0 {
		return "(none)"
	}
	summaries := make([]string, len(adapters))
	for i := range adapters {
		summaries[i] = AdapterInfoSummary(&adapters[i].Info)
	}
	return strings.Join(summaries, "; ")
}

// surfaceCompatible reports whether the surface can present from the
// adapter. A nil surface (headless) accepts every adapter.
func surfaceCompatible(surface Surface, adapter *hal.ExposedAdapter) bool {
	if surface == nil {
		return true
	}
	return len(surface.Capabilities(adapter).Formats) > 0
}

// requestAdapter picks an adapter from the candidates, honoring the power
// preference and, when a surface is given, presentation compatibility.
//
// Hardware adapters always win: a CPU implementation is chosen only when
// it is the last compatible candidate standing, and that fallback is
// logged so a silently slow UI is explainable.
func requestAdapter(adapters []hal.ExposedAdapter, power gputypes.PowerPreference, surface Surface) (*hal.ExposedAdapter, error) {
	candidates := make([]*hal.ExposedAdapter, 0, len(adapters))
	for i := range adapters {
		if surfaceCompatible(surface, &adapters[i]) {
			candidates = append(candidates, &adapters[i])
		}
	}
	if len(candidates) == 0 {
		return nil, adapterNotFound(adapters, "no adapter is compatible with the surface")
	}

	var primary, secondary gputypes.DeviceType
	switch power {
	case gputypes.PowerPreferenceLowPower:
		primary, secondary = gputypes.DeviceTypeIntegratedGPU, gputypes.DeviceTypeDiscreteGPU
	default:
		primary, secondary = gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU
	}
	for _, want := range []gputypes.DeviceType{primary, secondary} {
		for _, a := range candidates {
			if a.Info.DeviceType == want {
				return a, nil
			}
		}
	}
	// No discrete or integrated GPU among the compatible candidates.
	// Prefer whatever is not an outright CPU rasterizer (virtual GPUs,
	// the noop test backend) before falling back to software.
	for _, a := range candidates {
		if a.Info.DeviceType != gputypes.DeviceTypeCPU {
			return a, nil
		}
	}
	Logger().Warn("uiwgpu: falling back to a software adapter",
		"adapter", AdapterInfoSummary(&candidates[0].Info))
	return candidates[0], nil
}

// adapterNotFound builds an ErrNoSuitableAdapter whose detail is
// proportional to the number of candidates considered.
func adapterNotFound(adapters []hal.ExposedAdapter, reason string) error {
	switch len(adapters) {
	case 0:
		return fmt.Errorf("%w: no adapters were enumerated; "+
			"check backend support and WGPU_BACKEND", ErrNoSuitableAdapter)
	case 1:
		return fmt.Errorf("%w: %s; the only adapter is %s",
			ErrNoSuitableAdapter, reason, AdapterInfoSummary(&adapters[0].Info))
	default:
		return fmt.Errorf("%w: %s; %d adapters were considered: %s",
			ErrNoSuitableAdapter, reason, len(adapters), describeAdapters(adapters))
	}
}
