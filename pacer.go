package ignis

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgfx/ignis/internal/config"
	"github.com/kestrelgfx/ignis/internal/enginelog"
)

// frameSlot is one ring-buffered frame context: a command pool and its
// single primary command buffer, the semaphore the swapchain signals on
// acquire, and the fence that marks the slot retired.
type frameSlot struct {
	pool       vk.CommandPool
	cmd        vk.CommandBuffer
	acquire    vk.Semaphore
	inFlight   vk.Fence
	imageIndex uint32
}

// FrameHandle is what Pacer.Begin hands to the caller: a fresh Builder
// already holding the swapchain image, plus the metadata higher layers
// need to size their passes.
type FrameHandle struct {
	Builder          *Builder
	SwapchainImageID ImageID
	Extent           vk.Extent2D
	Format           vk.Format
}

// Pacer drives the frame graph across frames with bounded CPU/GPU
// pipelining. It owns N frame slots and one present semaphore per
// swapchain image, and is the only component in this package that talks
// to GPUContext directly.
type Pacer struct {
	ctx    GPUContext
	log    *enginelog.Logger
	slots  []frameSlot
	frameN int
	slot   int

	present []vk.Semaphore
}

// NewPacer builds the N frame slots and the per-swapchain-image present
// semaphores. Frame slots start with a signaled fence so the first Begin
// for each slot does not block.
func NewPacer(ctx GPUContext, cfg config.PacerConfig, log *enginelog.Logger) (*Pacer, error) {
	n := cfg.FramesInFlight
	if n < 1 {
		n = 1
	}
	if log == nil {
		log = enginelog.Nop()
	}

	p := &Pacer{ctx: ctx, log: log, frameN: n}

	p.slots = make([]frameSlot, n)
	for i := 0; i < n; i++ {
		pool, err := ctx.NewCommandPool()
		if err != nil {
			return nil, wrapGraphError(KindDeviceLost, err, "creating frame slot %d command pool", i)
		}
		cmd, err := ctx.AllocateCommandBuffer(pool)
		if err != nil {
			return nil, wrapGraphError(KindDeviceLost, err, "allocating frame slot %d command buffer", i)
		}
		acquire, err := ctx.CreateSemaphore()
		if err != nil {
			return nil, wrapGraphError(KindDeviceLost, err, "creating frame slot %d acquire semaphore", i)
		}
		fence, err := ctx.CreateFence(true)
		if err != nil {
			return nil, wrapGraphError(KindDeviceLost, err, "creating frame slot %d fence", i)
		}
		p.slots[i] = frameSlot{pool: pool, cmd: cmd, acquire: acquire, inFlight: fence}
	}

	if err := p.allocatePresentSemaphores(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Pacer) allocatePresentSemaphores() error {
	count := p.ctx.SwapchainImageCount()
	sems := make([]vk.Semaphore, count)
	for i := range sems {
		s, err := p.ctx.CreateSemaphore()
		if err != nil {
			return wrapGraphError(KindDeviceLost, err, "creating present semaphore %d", i)
		}
		sems[i] = s
	}
	p.present = sems
	return nil
}

// Begin waits for the next frame slot to retire, acquires a swapchain
// image into it, and returns a fresh Builder with that image imported. A
// recoverable KindSwapchainOutOfDate error means the caller must call
// OnResize before trying again.
//
// The slot's fence is reset only once acquire has confirmed this frame will
// actually be submitted: resetting it unconditionally before acquire would
// leave the fence unsignalled with no pending submit to signal it whenever
// acquire comes back OUT_OF_DATE, deadlocking the next Begin on this slot.
func (p *Pacer) Begin() (*FrameHandle, error) {
	slot := &p.slots[p.currentSlot()]

	if err := p.ctx.WaitForFence(slot.inFlight); err != nil {
		return nil, wrapGraphError(KindDeviceLost, err, "waiting on frame slot fence")
	}

	imageIndex, status, err := p.ctx.AcquireNextImage(slot.acquire)
	if err != nil {
		return nil, wrapGraphError(KindDeviceLost, err, "acquiring swapchain image")
	}
	if status == StatusOutOfDate {
		return nil, newGraphError(KindSwapchainOutOfDate, "acquire reported out of date")
	}
	if status == StatusSuboptimal {
		p.log.Warn.Println("swapchain suboptimal on acquire, continuing")
	}

	if err := p.ctx.ResetFence(slot.inFlight); err != nil {
		return nil, wrapGraphError(KindDeviceLost, err, "resetting frame slot fence")
	}

	slot.imageIndex = imageIndex

	extent := p.ctx.SwapchainExtent()
	format := p.ctx.SwapchainFormat()
	image, view := p.ctx.SwapchainImage(int(imageIndex))

	builder := NewBuilder()
	id, err := builder.ImportSwapchainImage(image, view, vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}, format)
	if err != nil {
		return nil, err
	}

	return &FrameHandle{Builder: builder, SwapchainImageID: id, Extent: extent, Format: format}, nil
}

// End records and submits exec against the current frame slot's command
// buffer, then presents. It returns false (with a nil error) when the
// swapchain went out of date during present, in which case the caller
// must call OnResize before the next Begin; any other error is fatal.
func (p *Pacer) End(exec Execution) (bool, error) {
	slot := &p.slots[p.currentSlot()]

	if err := p.ctx.ResetCommandPool(slot.pool); err != nil {
		return false, wrapGraphError(KindDeviceLost, err, "resetting frame slot command pool")
	}
	if err := p.ctx.BeginCommandBuffer(slot.cmd, true); err != nil {
		return false, wrapGraphError(KindDeviceLost, err, "beginning frame slot command buffer")
	}

	exec.Execute(slot.cmd)

	if err := p.ctx.EndCommandBuffer(slot.cmd); err != nil {
		return false, wrapGraphError(KindDeviceLost, err, "ending frame slot command buffer")
	}

	signal := p.present[slot.imageIndex]
	if err := p.ctx.Submit(slot.cmd, slot.acquire, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), signal, slot.inFlight); err != nil {
		return false, wrapGraphError(KindDeviceLost, err, "submitting frame")
	}

	status, err := p.ctx.Present(signal, slot.imageIndex)
	if err != nil {
		return false, wrapGraphError(KindDeviceLost, err, "presenting frame")
	}
	if status == StatusOutOfDate {
		return false, nil
	}
	if status == StatusSuboptimal {
		p.log.Warn.Println("swapchain suboptimal on present, continuing")
	}

	p.advance()
	return true, nil
}

// OnResize blocks until the device is idle, recreates the swapchain at the
// new extent, and reallocates present semaphores to match the new
// swapchain image count. The current frame slot index is left untouched so in-flight slots
// keep their identity across the resize.
func (p *Pacer) OnResize(width, height uint32) {
	if err := p.ctx.DeviceWaitIdle(); err != nil {
		p.log.Error.Printf("device wait idle failed during resize: %v", err)
		return
	}
	if err := p.ctx.RecreateSwapchain(width, height); err != nil {
		p.log.Error.Printf("swapchain recreate failed: %v", err)
		return
	}

	for _, s := range p.present {
		p.ctx.DestroySemaphore(s)
	}
	if err := p.allocatePresentSemaphores(); err != nil {
		p.log.Error.Printf("present semaphore reallocation failed: %v", err)
	}
}

// Close waits for the device to go idle and destroys every object the
// Pacer owns. The Pacer must not be used after Close returns.
func (p *Pacer) Close() {
	_ = p.ctx.DeviceWaitIdle()
	for _, s := range p.slots {
		p.ctx.DestroyFence(s.inFlight)
		p.ctx.DestroySemaphore(s.acquire)
		p.ctx.DestroyCommandPool(s.pool)
	}
	for _, s := range p.present {
		p.ctx.DestroySemaphore(s)
	}
}

var _ ResizeSink = (*Pacer)(nil)

func (p *Pacer) currentSlot() int { return p.slot }

func (p *Pacer) advance() { p.slot = (p.slot + 1) % p.frameN }
