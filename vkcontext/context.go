// Package vkcontext is the concrete Vulkan adapter: it owns the instance,
// device, queues, window surface, and swapchain, and implements
// ignis.GPUContext on top of them. The frame graph and frame pacer in the
// parent package never import this package directly; they only see the
// interface.
package vkcontext

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgfx/ignis"
	"github.com/kestrelgfx/ignis/internal/config"
	"github.com/kestrelgfx/ignis/internal/enginelog"
)

// Context is the engine's Vulkan device context: one instance, one chosen
// GPU, one logical device, a graphics queue (and a present queue, which on
// most desktop drivers is the same queue), and the swapchain bound to
// window.
type Context struct {
	log *enginelog.Logger

	instance vk.Instance
	gpu      vk.PhysicalDevice
	device   vk.Device

	memProps vk.PhysicalDeviceMemoryProperties

	window  *Window
	surface vk.Surface

	queues        queueFamilies
	transientPool vk.CommandPool

	sc *swapchain
}

var _ ignis.GPUContext = (*Context)(nil)

// New bootstraps a full Vulkan context against window: instance, surface,
// physical device selection, logical device, and the initial swapchain,
// collapsed into one constructor.
func New(cfg config.GPUContextConfig, window *Window, log *enginelog.Logger) (*Context, error) {
	if log == nil {
		log = enginelog.Nop()
	}

	instance, err := createInstance(cfg, window.handle)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	surface, err := window.CreateSurface(instance)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	gpu, err := pickPhysicalDevice(instance, cfg.DeviceExtensions)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	queues, err := findQueueFamilies(gpu, surface)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	deviceSet, err := newDeviceExtensionSet(cfg.DeviceExtensions, cfg.DeviceExtensions, gpu)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	device, err := createLogicalDevice(gpu, queues, deviceSet.resolve())
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	vk.GetDeviceQueue(device, queues.graphics, 0, &queues.graphicsQueue)
	if queues.hasSeparate {
		vk.GetDeviceQueue(device, queues.present, 0, &queues.presentQueue)
	} else {
		queues.presentQueue = queues.graphicsQueue
	}

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
	memProps.Deref()

	transientPool, err := newCommandPool(device, queues.graphics)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	sc, err := createSwapchain(gpu, device, surface, 3, vk.NullSwapchain)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: %w", err)
	}

	return &Context{
		log:           log,
		instance:      instance,
		gpu:           gpu,
		device:        device,
		memProps:      memProps,
		window:        window,
		surface:       surface,
		queues:        queues,
		transientPool: transientPool,
		sc:            sc,
	}, nil
}

// MemoryProperties exposes the physical device's memory properties for
// callers building resources outside the frame graph (vertex/index/uniform
// buffer uploads via vkcontext.CreateBuffer).
func (c *Context) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return c.memProps }

// ImmediateSubmit runs fn synchronously on the graphics queue via a
// throwaway command buffer, for one-shot uploads outside the steady-state
// frame graph.
func (c *Context) ImmediateSubmit(fn func(cmd vk.CommandBuffer)) error {
	return immediateSubmit(c.device, c.transientPool, c.queues.graphicsQueue, fn)
}

func (c *Context) Device() vk.Device          { return c.device }
func (c *Context) GraphicsQueue() vk.Queue     { return c.queues.graphicsQueue }
func (c *Context) GraphicsQueueFamily() uint32 { return c.queues.graphics }

func (c *Context) SwapchainImageCount() int     { return len(c.sc.images) }
func (c *Context) SwapchainExtent() vk.Extent2D { return c.sc.extent }
func (c *Context) SwapchainFormat() vk.Format   { return c.sc.format.Format }

func (c *Context) SwapchainImage(index int) (vk.Image, vk.ImageView) {
	return c.sc.images[index], c.sc.views[index]
}

func (c *Context) CreateFence(signaled bool) (vk.Fence, error) { return newFence(c.device, signaled) }
func (c *Context) DestroyFence(f vk.Fence)                     { vk.DestroyFence(c.device, f, nil) }

func (c *Context) WaitForFence(f vk.Fence) error {
	ret := vk.WaitForFences(c.device, 1, []vk.Fence{f}, vk.True, vk.MaxUint64)
	if isError(ret) {
		return newError(ret, "waiting on fence")
	}
	return nil
}

func (c *Context) ResetFence(f vk.Fence) error {
	ret := vk.ResetFences(c.device, 1, []vk.Fence{f})
	if isError(ret) {
		return newError(ret, "resetting fence")
	}
	return nil
}

func (c *Context) CreateSemaphore() (vk.Semaphore, error) { return newSemaphore(c.device) }
func (c *Context) DestroySemaphore(s vk.Semaphore)        { vk.DestroySemaphore(c.device, s, nil) }

func (c *Context) NewCommandPool() (vk.CommandPool, error) {
	return newCommandPool(c.device, c.queues.graphics)
}
func (c *Context) DestroyCommandPool(p vk.CommandPool) { vk.DestroyCommandPool(c.device, p, nil) }

func (c *Context) AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error) {
	return allocateCommandBuffer(c.device, pool)
}

func (c *Context) ResetCommandPool(pool vk.CommandPool) error {
	ret := vk.ResetCommandPool(c.device, pool, 0)
	if isError(ret) {
		return newError(ret, "resetting command pool")
	}
	return nil
}

func (c *Context) BeginCommandBuffer(cmd vk.CommandBuffer, oneTimeSubmit bool) error {
	var flags vk.CommandBufferUsageFlags
	if oneTimeSubmit {
		flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	})
	if isError(ret) {
		return newError(ret, "beginning command buffer")
	}
	return nil
}

func (c *Context) EndCommandBuffer(cmd vk.CommandBuffer) error {
	ret := vk.EndCommandBuffer(cmd)
	if isError(ret) {
		return newError(ret, "ending command buffer")
	}
	return nil
}

// AcquireNextImage treats vk.ErrorOutOfDate/vk.Suboptimal as distinguished
// statuses rather than raw errors.
func (c *Context) AcquireNextImage(semaphore vk.Semaphore) (uint32, ignis.AcquireStatus, error) {
	var index uint32
	ret := vk.AcquireNextImage(c.device, c.sc.handle, vk.MaxUint64, semaphore, vk.NullFence, &index)
	switch ret {
	case vk.Success:
		return index, ignis.StatusOK, nil
	case vk.Suboptimal:
		return index, ignis.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return index, ignis.StatusOutOfDate, nil
	default:
		return index, ignis.StatusOK, newError(ret, "acquiring swapchain image")
	}
}

func (c *Context) Submit(cmd vk.CommandBuffer, wait vk.Semaphore, waitStage vk.PipelineStageFlags, signal vk.Semaphore, fence vk.Fence) error {
	ret := vk.QueueSubmit(c.queues.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}}, fence)
	if isError(ret) {
		return newError(ret, "submitting command buffer")
	}
	return nil
}

func (c *Context) Present(wait vk.Semaphore, imageIndex uint32) (ignis.AcquireStatus, error) {
	ret := vk.QueuePresent(c.queues.presentQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.sc.handle},
		PImageIndices:      []uint32{imageIndex},
	})
	switch ret {
	case vk.Success:
		return ignis.StatusOK, nil
	case vk.Suboptimal:
		return ignis.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return ignis.StatusOutOfDate, nil
	default:
		return ignis.StatusOK, newError(ret, "presenting swapchain image")
	}
}

func (c *Context) DeviceWaitIdle() error {
	ret := vk.DeviceWaitIdle(c.device)
	if isError(ret) {
		return newError(ret, "waiting on device idle")
	}
	return nil
}

// RecreateSwapchain rebuilds the swapchain at the surface's current extent,
// which on most platforms tracks width/height automatically; the arguments
// are kept to satisfy the interface and are only used in the log line that
// reports the recreation.
func (c *Context) RecreateSwapchain(width, height uint32) error {
	old := c.sc
	sc, err := createSwapchain(c.gpu, c.device, c.surface, len(old.images), old.handle)
	if err != nil {
		return fmt.Errorf("vkcontext: recreating swapchain: %w", err)
	}
	for _, v := range old.views {
		vk.DestroyImageView(c.device, v, nil)
	}
	c.sc = sc
	c.log.Info.Printf("swapchain recreated at %dx%d", width, height)
	return nil
}

// Destroy tears down every Vulkan object the context owns, in dependency
// order. There is no sensible recovery from the device refusing to go idle
// here, so a failure panics rather than tearing down objects it may still
// be using.
func (c *Context) Destroy() {
	orPanic(c.DeviceWaitIdle())
	c.sc.destroy(c.device)
	vk.DestroyCommandPool(c.device, c.transientPool, nil)
	vk.DestroyDevice(c.device, nil)
	vk.DestroySurface(c.instance, c.surface, nil)
	vk.DestroyInstance(c.instance, nil)
}
