package uiwgpu

import (
	"errors"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceCapabilities reports what a surface supports on a given adapter.
type SurfaceCapabilities struct {
	// Formats are the texture formats the surface can present, in the
	// surface's order of preference.
	Formats []gputypes.TextureFormat
}

// Surface is the presentation target a windowing layer provides. uiwgpu
// never creates or reconfigures surfaces; it only queries capabilities,
// acquires the next texture, and presents.
//
// An adapter is considered compatible with the surface when Capabilities
// reports at least one format for it.
type Surface interface {
	// Capabilities returns what the surface supports on the adapter.
	Capabilities(adapter *hal.ExposedAdapter) SurfaceCapabilities

	// AcquireTexture returns the view of the next presentable texture.
	// Failures should wrap one of the ErrSurface* sentinels so the
	// error policy can classify them.
	AcquireTexture() (hal.TextureView, error)

	// Present schedules the acquired texture for display.
	Present() error
}

// SurfaceErrorAction is what a frame does about a failed surface acquire.
type SurfaceErrorAction uint8

const (
	// SurfaceErrorSkipFrame drops the frame and carries on. The UI is
	// typically redrawn a few milliseconds later anyway.
	SurfaceErrorSkipFrame SurfaceErrorAction = iota

	// SurfaceErrorRecreateSurface asks the caller to rebuild the
	// surface before the next frame.
	SurfaceErrorRecreateSurface
)

// SurfaceErrorPolicy maps a surface acquire failure to an action. It is
// consulted only on the live presentation path.
type SurfaceErrorPolicy func(err error) SurfaceErrorAction

// DefaultSurfaceErrorPolicy skips the frame on any acquire failure.
// An outdated surface is routine during window resizing and is dropped
// silently; every other failure is logged at warning level first.
func DefaultSurfaceErrorPolicy(err error) SurfaceErrorAction {
	if !errors.Is(err, ErrSurfaceOutdated) {
		Logger().Warn("uiwgpu: dropped frame after surface acquire failure", "err", err)
	}
	return SurfaceErrorSkipFrame
}
