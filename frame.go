package uiwgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// gpuWaitTimeout bounds blocking waits for GPU completion. Only the
// offscreen capture path and teardown wait; the live path never blocks.
const gpuWaitTimeout = 5 * time.Second

// gpuPollInterval is how often a blocking wait re-polls the queue.
const gpuPollInterval = 100 * time.Microsecond

// FrameOutcome reports what RenderFrame did with a frame.
type FrameOutcome uint8

const (
	// FramePresented: the frame was rendered and handed to the surface.
	FramePresented FrameOutcome = iota

	// FrameSkipped: the frame was dropped. With a nil error this was
	// the surface error policy's decision after a failed acquire.
	FrameSkipped

	// FrameNeedsSurfaceRecreate: the surface error policy asks the
	// caller to rebuild the surface before the next frame.
	FrameNeedsSurfaceRecreate
)

// pendingFrame holds what a submitted frame still owes the GPU: its
// command buffers go back to the pool and its freed texture ids are
// destroyed, both only after the queue reports the submission complete.
type pendingFrame struct {
	submission uint64
	cmdBufs    []hal.CommandBuffer
	free       []TextureID
}

// RenderFrame runs the whole frame protocol against the surface: texture
// deltas, buffer uploads, one render pass cleared to transparent, draws in
// batch order, submission, presentation, and deferred texture frees.
//
// The submission is not waited on. Command buffers and freed texture ids
// are parked with the frame's submission index and released on a later
// call once Queue.PollCompleted reports the index done, so presentation
// never blocks behind a GPU sync.
//
// When acquiring the surface texture fails, the configured surface error
// policy decides between skipping the frame (FrameSkipped, nil error) and
// asking for a surface rebuild (FrameNeedsSurfaceRecreate). Every other
// failure is returned as an error with the frame skipped.
//
// deltas may be nil when the UI pass changed no textures.
func (s *RenderState) RenderFrame(
	surface Surface,
	deltas *TexturesDelta,
	primitives []ClippedPrimitive,
	screen *ScreenDescriptor,
) (FrameOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reclaimCompleted()

	if deltas != nil {
		for i := range deltas.Set {
			if err := s.renderer.UpdateTexture(deltas.Set[i].ID, &deltas.Set[i].Delta); err != nil {
				return FrameSkipped, err
			}
		}
	}

	view, err := surface.AcquireTexture()
	if err != nil {
		switch s.onSurfaceError(err) {
		case SurfaceErrorRecreateSurface:
			return FrameNeedsSurfaceRecreate, nil
		default:
			return FrameSkipped, nil
		}
	}

	w, h := screen.SizeInPixels[0], screen.SizeInPixels[1]
	if err := s.targets.ensure(s.Device, w, h, s.renderer.opts); err != nil {
		return FrameSkipped, err
	}

	aux, err := s.renderer.UpdateBuffers(primitives, screen)
	if err != nil {
		return FrameSkipped, err
	}

	encoder, err := s.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "ui_frame_encoder",
	})
	if err != nil {
		return FrameSkipped, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("ui_frame"); err != nil {
		return FrameSkipped, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "ui_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			s.targets.colorAttachment(view, s.renderer.opts),
		},
		DepthStencilAttachment: s.targets.depthAttachment(s.renderer.opts),
	})
	s.renderer.Render(rp, screen)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return FrameSkipped, fmt.Errorf("end encoding: %w", err)
	}

	cmdBufs := append(aux, cmdBuf)
	submission, err := s.Queue.Submit(cmdBufs)
	if err != nil {
		for _, cb := range cmdBufs {
			s.Device.FreeCommandBuffer(cb)
		}
		return FrameSkipped, fmt.Errorf("submit: %w", err)
	}

	pending := pendingFrame{submission: submission, cmdBufs: cmdBufs}
	if deltas != nil && len(deltas.Free) > 0 {
		pending.free = append([]TextureID(nil), deltas.Free...)
	}
	s.pending = append(s.pending, pending)

	if err := surface.Present(); err != nil {
		return FrameSkipped, fmt.Errorf("present: %w", err)
	}

	// On backends that retire work eagerly this releases the frame we
	// just parked; elsewhere it trails by however deep the queue runs.
	s.reclaimCompleted()

	return FramePresented, nil
}

// reclaimCompleted releases the resources of every pending frame whose
// submission the queue reports complete. Submissions complete in order,
// so the scan stops at the first one still in flight. Never blocks.
func (s *RenderState) reclaimCompleted() {
	if len(s.pending) == 0 {
		return
	}
	completed := s.Queue.PollCompleted()
	n := 0
	for i := range s.pending {
		if s.pending[i].submission > completed {
			break
		}
		s.releasePending(&s.pending[i])
		n++
	}
	if n > 0 {
		s.pending = append(s.pending[:0], s.pending[n:]...)
	}
}

// drainPending blocks until every pending submission has completed, then
// releases their resources. Only the capture and teardown paths call it.
func (s *RenderState) drainPending() error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.waitForSubmission(s.pending[len(s.pending)-1].submission); err != nil {
		return err
	}
	s.reclaimCompleted()
	return nil
}

// waitForSubmission polls the queue until the submission index is
// reported complete, up to gpuWaitTimeout.
func (s *RenderState) waitForSubmission(submission uint64) error {
	deadline := time.Now().Add(gpuWaitTimeout)
	for s.Queue.PollCompleted() < submission {
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for GPU: submission %d still pending after %v",
				submission, gpuWaitTimeout)
		}
		time.Sleep(gpuPollInterval)
	}
	return nil
}

func (s *RenderState) releasePending(pf *pendingFrame) {
	for _, cb := range pf.cmdBufs {
		s.Device.FreeCommandBuffer(cb)
	}
	if s.renderer != nil {
		for _, id := range pf.free {
			s.renderer.FreeTexture(id)
		}
	}
	pf.cmdBufs = nil
	pf.free = nil
}

func (s *RenderState) freeTextures(deltas *TexturesDelta) {
	if deltas == nil {
		return
	}
	for _, id := range deltas.Free {
		s.renderer.FreeTexture(id)
	}
}
