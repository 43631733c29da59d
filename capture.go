package uiwgpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the BytesPerRow alignment WebGPU (and DX12)
// require for texture-to-buffer copies.
const copyPitchAlignment = 256

// RenderOffscreen runs one complete frame against a transient texture and
// reads the pixels back.
//
// The protocol matches RenderFrame: texture deltas, buffer uploads, one
// render pass cleared to transparent, draws in batch order, submission,
// texture frees once the GPU is done. Instead of presenting, the color
// target is copied into a staging buffer and returned as a row-major RGBA
// image of screen.SizeInPixels.
//
// The call blocks until the GPU has finished. Rendering the same inputs
// twice yields the same pixels; the transient target is created and
// destroyed within the call.
func (s *RenderState) RenderOffscreen(
	deltas *TexturesDelta,
	primitives []ClippedPrimitive,
	screen *ScreenDescriptor,
) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := screen.SizeInPixels[0], screen.SizeInPixels[1]
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("uiwgpu: offscreen target has zero size %dx%d", w, h)
	}

	// The vertex, index, and uniform buffers are shared with the live
	// path; in-flight frames must be done with them before UpdateBuffers
	// overwrites them.
	if err := s.drainPending(); err != nil {
		return nil, err
	}

	if deltas != nil {
		for i := range deltas.Set {
			if err := s.renderer.UpdateTexture(deltas.Set[i].ID, &deltas.Set[i].Delta); err != nil {
				return nil, err
			}
		}
	}

	// Transient color target in the state's format so the one pipeline
	// serves both paths.
	targetTex, err := s.Device.CreateTexture(&hal.TextureDescriptor{
		Label:         "ui_offscreen_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        s.TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create offscreen target: %w", err)
	}
	defer s.Device.DestroyTexture(targetTex)

	targetView, err := s.Device.CreateTextureView(targetTex, &hal.TextureViewDescriptor{
		Label: "ui_offscreen_target_view",
	})
	if err != nil {
		return nil, fmt.Errorf("create offscreen target view: %w", err)
	}
	defer s.Device.DestroyTextureView(targetView)

	if err := s.targets.ensure(s.Device, w, h, s.renderer.opts); err != nil {
		return nil, err
	}

	aux, err := s.renderer.UpdateBuffers(primitives, screen)
	if err != nil {
		return nil, err
	}

	encoder, err := s.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "ui_offscreen_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("ui_offscreen_frame"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "ui_offscreen_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			s.targets.colorAttachment(targetView, s.renderer.opts),
		},
		DepthStencilAttachment: s.targets.depthAttachment(s.renderer.opts),
	})
	s.renderer.Render(rp, screen)
	rp.End()

	// After the pass the target is in attachment layout;
	// CopyTextureToBuffer needs it as a transfer source. No-op on
	// backends without explicit layouts.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: targetTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := s.Device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ui_offscreen_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer s.Device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(targetTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: targetTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer s.Device.FreeCommandBuffer(cmdBuf)

	submission, err := s.Queue.Submit(append(aux, cmdBuf))
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if err := s.waitForSubmission(submission); err != nil {
		return nil, err
	}

	mapping, err := s.Device.MapBuffer(stagingBuf, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	readback := make([]byte, stagingSize)
	copy(readback, unsafe.Slice((*byte)(mapping.Ptr), stagingSize))
	if err := s.Device.UnmapBuffer(stagingBuf); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}

	// The submission has completed; freed textures are no longer
	// referenced by GPU work.
	s.freeTextures(deltas)

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := uint32(0); row < h; row++ {
		src := readback[row*alignedBytesPerRow:][:bytesPerRow]
		dst := img.Pix[int(row)*img.Stride:][:bytesPerRow]
		copy(dst, src)
	}
	if s.TargetFormat == gputypes.TextureFormatBGRA8Unorm {
		swapBGRA(img.Pix)
	}
	return img, nil
}

// swapBGRA converts BGRA pixel data to RGBA in place.
func swapBGRA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
