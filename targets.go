package uiwgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// frameTargets holds the auxiliary attachments a frame may need besides
// the color target itself: a multisampled color texture when the pipeline
// uses MSAA, and a depth/stencil texture when the pipeline carries a
// depth/stencil state. They are cached across frames and recreated on
// resize.
type frameTargets struct {
	msaaTex   hal.Texture
	msaaView  hal.TextureView
	depthTex  hal.Texture
	depthView hal.TextureView
	width     uint32
	height    uint32
}

// ensure creates or recreates the attachments for the given target size.
// A no-op when the size is unchanged and the attachments exist (or none
// are needed).
func (ft *frameTargets) ensure(device hal.Device, w, h uint32, opts RendererOptions) error {
	needMSAA := opts.MSAASamples > 1
	needDepth := opts.DepthFormat != DepthFormatNone
	if !needMSAA && !needDepth {
		return nil
	}
	if ft.width == w && ft.height == h &&
		(!needMSAA || ft.msaaTex != nil) && (!needDepth || ft.depthTex != nil) {
		return nil
	}
	ft.destroy(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if needMSAA {
		msaaTex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         "ui_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   opts.MSAASamples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        opts.TargetFormat,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create MSAA color texture: %w", err)
		}
		ft.msaaTex = msaaTex

		msaaView, err := device.CreateTextureView(msaaTex, &hal.TextureViewDescriptor{
			Label: "ui_msaa_color_view",
		})
		if err != nil {
			ft.destroy(device)
			return fmt.Errorf("create MSAA color view: %w", err)
		}
		ft.msaaView = msaaView
	}

	if needDepth {
		depthTex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         "ui_depth_stencil",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   opts.MSAASamples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        opts.DepthFormat,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			ft.destroy(device)
			return fmt.Errorf("create depth/stencil texture: %w", err)
		}
		ft.depthTex = depthTex

		depthView, err := device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
			Label: "ui_depth_stencil_view",
		})
		if err != nil {
			ft.destroy(device)
			return fmt.Errorf("create depth/stencil view: %w", err)
		}
		ft.depthView = depthView
	}

	ft.width = w
	ft.height = h
	return nil
}

// colorAttachment builds the frame's color attachment: the final view
// directly for single-sample pipelines, or the MSAA texture resolving
// into the final view.
func (ft *frameTargets) colorAttachment(finalView hal.TextureView, opts RendererOptions) hal.RenderPassColorAttachment {
	att := hal.RenderPassColorAttachment{
		View:       finalView,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
	}
	if opts.MSAASamples > 1 {
		att.View = ft.msaaView
		att.ResolveTarget = finalView
	}
	return att
}

// depthAttachment builds the pass-through depth/stencil attachment, or nil
// when the pipeline has no depth/stencil state.
func (ft *frameTargets) depthAttachment(opts RendererOptions) *hal.RenderPassDepthStencilAttachment {
	if opts.DepthFormat == DepthFormatNone {
		return nil
	}
	return &hal.RenderPassDepthStencilAttachment{
		View:              ft.depthView,
		DepthLoadOp:       gputypes.LoadOpClear,
		DepthStoreOp:      gputypes.StoreOpDiscard,
		DepthClearValue:   1.0,
		StencilLoadOp:     gputypes.LoadOpClear,
		StencilStoreOp:    gputypes.StoreOpDiscard,
		StencilClearValue: 0,
	}
}

func (ft *frameTargets) destroy(device hal.Device) {
	if ft.msaaView != nil {
		device.DestroyTextureView(ft.msaaView)
		ft.msaaView = nil
	}
	if ft.msaaTex != nil {
		device.DestroyTexture(ft.msaaTex)
		ft.msaaTex = nil
	}
	if ft.depthView != nil {
		device.DestroyTextureView(ft.depthView)
		ft.depthView = nil
	}
	if ft.depthTex != nil {
		device.DestroyTexture(ft.depthTex)
		ft.depthTex = nil
	}
	ft.width = 0
	ft.height = 0
}
