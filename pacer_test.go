package ignis

import (
	"sync"
	"testing"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgfx/ignis/internal/config"
)

// fakeGPUContext is a hand-written GPUContext test double: no real Vulkan
// calls, just enough in-memory bookkeeping to drive the Pacer's state
// machine deterministically. Submit signals its fence immediately unless
// autoSignal is disabled; with it disabled, fence signalling is explicit
// (via signalFence), so tests can model a stalled GPU.
type fakeGPUContext struct {
	mu sync.Mutex

	imageCount  int
	extent      vk.Extent2D
	format      vk.Format
	nextHandle  uint64
	fenceChans  map[vk.Fence]chan struct{}
	autoSignal  bool
	acquireSeq  []fakeAcquireResult
	acquireIdx  int
	presentSeq  []fakePresentResult
	presentIdx  int
	submits     int
	resizeCalls int
	pendingSize int
}

type fakeAcquireResult struct {
	index  uint32
	status AcquireStatus
	err    error
}

type fakePresentResult struct {
	status AcquireStatus
	err    error
}

func newFakeGPUContext(imageCount int) *fakeGPUContext {
	return &fakeGPUContext{
		imageCount: imageCount,
		extent:     vk.Extent2D{Width: 1280, Height: 720},
		format:     vk.FormatB8g8r8a8Unorm,
		fenceChans: make(map[vk.Fence]chan struct{}),
		autoSignal: true,
	}
}

func (f *fakeGPUContext) alloc() uint64 {
	f.nextHandle++
	return f.nextHandle
}

func (f *fakeGPUContext) Device() vk.Device          { return vk.Device(0) }
func (f *fakeGPUContext) GraphicsQueue() vk.Queue     { return vk.Queue(0) }
func (f *fakeGPUContext) GraphicsQueueFamily() uint32 { return 0 }

func (f *fakeGPUContext) SwapchainImageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCount
}
func (f *fakeGPUContext) SwapchainExtent() vk.Extent2D { return f.extent }
func (f *fakeGPUContext) SwapchainFormat() vk.Format   { return f.format }

func (f *fakeGPUContext) SwapchainImage(index int) (vk.Image, vk.ImageView) {
	return vk.Image(uint64(index) + 1), vk.ImageView(uint64(index) + 1)
}

func (f *fakeGPUContext) CreateFence(signaled bool) (vk.Fence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := vk.Fence(f.alloc())
	ch := make(chan struct{})
	if signaled {
		close(ch)
	}
	f.fenceChans[id] = ch
	return id, nil
}
func (f *fakeGPUContext) DestroyFence(fence vk.Fence) {}

func (f *fakeGPUContext) WaitForFence(fence vk.Fence) error {
	f.mu.Lock()
	ch := f.fenceChans[fence]
	f.mu.Unlock()
	<-ch
	return nil
}

func (f *fakeGPUContext) ResetFence(fence vk.Fence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fenceChans[fence] = make(chan struct{})
	return nil
}

// signalFence marks fence as complete, unblocking any WaitForFence call.
func (f *fakeGPUContext) signalFence(fence vk.Fence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.fenceChans[fence]:
	default:
		close(f.fenceChans[fence])
	}
}

func (f *fakeGPUContext) CreateSemaphore() (vk.Semaphore, error) {
	return vk.Semaphore(f.alloc()), nil
}
func (f *fakeGPUContext) DestroySemaphore(s vk.Semaphore) {}

func (f *fakeGPUContext) NewCommandPool() (vk.CommandPool, error) {
	return vk.CommandPool(f.alloc()), nil
}
func (f *fakeGPUContext) DestroyCommandPool(p vk.CommandPool) {}

func (f *fakeGPUContext) AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error) {
	return vk.CommandBuffer(f.alloc()), nil
}
func (f *fakeGPUContext) ResetCommandPool(pool vk.CommandPool) error { return nil }

func (f *fakeGPUContext) BeginCommandBuffer(cmd vk.CommandBuffer, oneTimeSubmit bool) error {
	return nil
}
func (f *fakeGPUContext) EndCommandBuffer(cmd vk.CommandBuffer) error { return nil }

func (f *fakeGPUContext) AcquireNextImage(semaphore vk.Semaphore) (uint32, AcquireStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireIdx < len(f.acquireSeq) {
		r := f.acquireSeq[f.acquireIdx]
		f.acquireIdx++
		return r.index, r.status, r.err
	}
	idx := uint32(f.acquireIdx % f.imageCount)
	f.acquireIdx++
	return idx, StatusOK, nil
}

func (f *fakeGPUContext) Submit(cmd vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error {
	f.mu.Lock()
	f.submits++
	auto := f.autoSignal
	f.mu.Unlock()
	if auto {
		f.signalFence(fence)
	}
	return nil
}

func (f *fakeGPUContext) Present(wait vk.Semaphore, imageIndex uint32) (AcquireStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presentIdx < len(f.presentSeq) {
		r := f.presentSeq[f.presentIdx]
		f.presentIdx++
		return r.status, r.err
	}
	return StatusOK, nil
}

func (f *fakeGPUContext) DeviceWaitIdle() error { return nil }

func (f *fakeGPUContext) RecreateSwapchain(width, height uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizeCalls++
	f.extent = vk.Extent2D{Width: width, Height: height}
	if f.pendingSize > 0 {
		f.imageCount = f.pendingSize
	}
	return nil
}

var _ GPUContext = (*fakeGPUContext)(nil)

// noopExecution satisfies Execution without recording any real Vulkan
// commands, since pacer tests never have a live device/command buffer to
// record against.
type noopExecution struct{}

func (noopExecution) Execute(vk.CommandBuffer) {}

func drivePacerFrame(t *testing.T, p *Pacer) bool {
	t.Helper()
	handle, err := p.Begin()
	if err != nil {
		if IsRecoverable(err) {
			return false
		}
		t.Fatalf("Begin failed: %v", err)
	}
	handle.Builder.AddRenderPass("clear").
		SetColorAttachment(Attachment{Image: handle.SwapchainImageID, LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore}).
		Execute(func(vk.CommandBuffer) {})
	if _, err := handle.Builder.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ok, err := p.End(noopExecution{})
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	return ok
}

func TestSwapchainRecreateAfterOutOfDate(t *testing.T) {
	ctx := newFakeGPUContext(2)
	p, err := NewPacer(ctx, config.PacerConfig{FramesInFlight: 2}, nil)
	if err != nil {
		t.Fatalf("NewPacer failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !drivePacerFrame(t, p) {
			t.Fatalf("frame %d did not complete", i+1)
		}
	}

	ctx.acquireSeq = []fakeAcquireResult{{status: StatusOutOfDate}}
	ctx.acquireIdx = 0
	ctx.pendingSize = 3

	if drivePacerFrame(t, p) {
		t.Fatal("frame 4 should have reported out-of-date")
	}
	p.OnResize(1920, 1080)

	ctx.acquireSeq = nil
	ctx.acquireIdx = 0
	if !drivePacerFrame(t, p) {
		t.Fatal("frame 5 should complete after resize")
	}

	if p.slot != 0 {
		t.Errorf("frame slot = %d, want 0 (3 successful advances to 1, then a 4th successful advance to 0; the failed out-of-date frame does not advance)", p.slot)
	}
	if len(p.present) != 3 {
		t.Errorf("present semaphore count = %d, want 3 (new swapchain image count)", len(p.present))
	}
}

// Third Begin on N=2 frames in flight blocks until the first frame's fence
// is signalled.
func TestBoundedInFlightBlocksUntilFenceSignalled(t *testing.T) {
	ctx := newFakeGPUContext(2)
	ctx.autoSignal = false
	p, err := NewPacer(ctx, config.PacerConfig{FramesInFlight: 2}, nil)
	if err != nil {
		t.Fatalf("NewPacer failed: %v", err)
	}

	fence0 := p.slots[0].inFlight
	fence1 := p.slots[1].inFlight

	if !drivePacerFrame(t, p) {
		t.Fatal("frame 1 failed")
	}
	if !drivePacerFrame(t, p) {
		t.Fatal("frame 2 failed")
	}

	done := make(chan struct{})
	go func() {
		drivePacerFrame(t, p)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Begin returned before slot 0's fence was signalled")
	case <-time.After(100 * time.Millisecond):
	}

	ctx.signalFence(fence0)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Begin did not unblock after fence signal")
	}

	_ = fence1
}

func TestSwapchainRecoveryAfterOutOfDateThenResize(t *testing.T) {
	ctx := newFakeGPUContext(2)
	p, err := NewPacer(ctx, config.PacerConfig{FramesInFlight: 2}, nil)
	if err != nil {
		t.Fatalf("NewPacer failed: %v", err)
	}

	ctx.acquireSeq = []fakeAcquireResult{{status: StatusOutOfDate}}
	_, err = p.Begin()
	if !IsRecoverable(err) {
		t.Fatalf("expected recoverable error, got %v", err)
	}

	p.OnResize(800, 600)

	ctx.acquireSeq = nil
	ctx.acquireIdx = 0
	if _, err := p.Begin(); err != nil {
		t.Fatalf("Begin after resize should succeed, got %v", err)
	}
}

func TestResizeIdempotentWithSameExtent(t *testing.T) {
	ctx := newFakeGPUContext(2)
	p, err := NewPacer(ctx, config.PacerConfig{FramesInFlight: 2}, nil)
	if err != nil {
		t.Fatalf("NewPacer failed: %v", err)
	}

	before := len(p.present)
	p.OnResize(1280, 720)
	p.OnResize(1280, 720)

	if len(p.present) != before {
		t.Errorf("present semaphore count changed across idempotent resizes: %d -> %d", before, len(p.present))
	}
	if ctx.resizeCalls != 2 {
		t.Errorf("expected 2 RecreateSwapchain calls, got %d", ctx.resizeCalls)
	}

	if _, err := p.Begin(); err != nil {
		t.Fatalf("Pacer should remain usable after idempotent resize, got %v", err)
	}
}

func TestNewPacerDefaultsFramesInFlightToOne(t *testing.T) {
	ctx := newFakeGPUContext(1)
	p, err := NewPacer(ctx, config.PacerConfig{FramesInFlight: 0}, nil)
	if err != nil {
		t.Fatalf("NewPacer failed: %v", err)
	}
	if p.frameN != 1 {
		t.Errorf("frameN = %d, want 1", p.frameN)
	}
}
