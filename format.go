package uiwgpu

import (
	"github.com/gogpu/gputypes"
)

// DepthFormatNone indicates that no depth/stencil attachment is used.
const DepthFormatNone = gputypes.TextureFormatUndefined

// PreferredFramebufferFormat picks the framebuffer format for the UI from
// the list of formats a surface supports.
//
// 8-bit unsigned normalized formats are preferred because the UI pipeline
// blends in non-linear (gamma) space: RGBA8 first, then BGRA8, regardless
// of where they appear in the list. If neither is supported the first
// listed format is used as-is. An empty list yields ErrNoSurfaceFormats.
func PreferredFramebufferFormat(formats []gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	if len(formats) == 0 {
		return gputypes.TextureFormatUndefined, ErrNoSurfaceFormats
	}
	for _, want := range []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatBGRA8Unorm,
	} {
		for _, f := range formats {
			if f == want {
				return f, nil
			}
		}
	}
	return formats[0], nil
}

// DepthFormatFromBits maps a requested depth/stencil bit configuration to
// a texture format. The second return value reports whether the
// combination maps to a supported format; (0, 0) deliberately maps to
// nothing so callers can express "no depth buffer" uniformly.
func DepthFormatFromBits(depthBits, stencilBits uint8) (gputypes.TextureFormat, bool) {
	switch {
	case depthBits == 0 && stencilBits == 8:
		return gputypes.TextureFormatStencil8, true
	case depthBits == 16 && stencilBits == 0:
		return gputypes.TextureFormatDepth16Unorm, true
	case depthBits == 24 && stencilBits == 0:
		return gputypes.TextureFormatDepth24Plus, true
	case depthBits == 24 && stencilBits == 8:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	case depthBits == 32 && stencilBits == 0:
		return gputypes.TextureFormatDepth32Float, true
	case depthBits == 32 && stencilBits == 8:
		return gputypes.TextureFormatDepth32FloatStencil8, true
	}
	return gputypes.TextureFormatUndefined, false
}
