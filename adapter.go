package ignis

import vk "github.com/vulkan-go/vulkan"

// AcquireStatus is the three-valued result of acquiring or presenting a
// swapchain image, replacing raw vk.Result checks at the Pacer boundary.
type AcquireStatus int

const (
	// StatusOK means the operation succeeded with no caveats.
	StatusOK AcquireStatus = iota
	// StatusSuboptimal means the swapchain can still be used this frame but
	// should be recreated soon; the Pacer treats it as success.
	StatusSuboptimal
	// StatusOutOfDate means the swapchain must be recreated before the next
	// acquire; the Pacer surfaces this as a recoverable failure.
	StatusOutOfDate
)

// GPUContext is the narrow surface the Frame Pacer depends on. It owns the
// device, the swapchain, and every GPU object keyed only by device/queue
// identity; the Pacer owns per-frame synchronization objects and command
// pools on top of it. vkcontext.Context is this repository's only
// implementation, but the Pacer never assumes that concretely.
type GPUContext interface {
	Device() vk.Device
	GraphicsQueue() vk.Queue
	GraphicsQueueFamily() uint32

	SwapchainImageCount() int
	SwapchainExtent() vk.Extent2D
	SwapchainFormat() vk.Format
	SwapchainImage(index int) (vk.Image, vk.ImageView)

	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(f vk.Fence)
	WaitForFence(f vk.Fence) error
	ResetFence(f vk.Fence) error

	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(s vk.Semaphore)

	NewCommandPool() (vk.CommandPool, error)
	DestroyCommandPool(p vk.CommandPool)
	AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error)
	ResetCommandPool(pool vk.CommandPool) error

	BeginCommandBuffer(cmd vk.CommandBuffer, oneTimeSubmit bool) error
	EndCommandBuffer(cmd vk.CommandBuffer) error

	AcquireNextImage(semaphore vk.Semaphore) (imageIndex uint32, status AcquireStatus, err error)
	Submit(cmd vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error
	Present(wait vk.Semaphore, imageIndex uint32) (AcquireStatus, error)

	DeviceWaitIdle() error
	RecreateSwapchain(width, height uint32) error
}

// ResizeSink receives window-resize notifications. Pacer implements it so a
// window-system callback can be wired directly to Pacer.OnResize.
type ResizeSink interface {
	OnResize(width, height uint32)
}
