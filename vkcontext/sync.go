package vkcontext

import vk "github.com/vulkan-go/vulkan"

// newCommandPool creates a command pool whose buffers may be reset
// individually.
func newCommandPool(device vk.Device, queueFamily uint32) (vk.CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if isError(ret) {
		return nil, newError(ret, "creating command pool")
	}
	return pool, nil
}

func allocateCommandBuffer(device vk.Device, pool vk.CommandPool) (vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)
	if isError(ret) {
		return nil, newError(ret, "allocating command buffer")
	}
	return buffers[0], nil
}

func newFence(device vk.Device, signaled bool) (vk.Fence, error) {
	var flags vk.FenceCreateFlags
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	ret := vk.CreateFence(device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &fence)
	if isError(ret) {
		return nil, newError(ret, "creating fence")
	}
	return fence, nil
}

func newSemaphore(device vk.Device) (vk.Semaphore, error) {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if isError(ret) {
		return nil, newError(ret, "creating semaphore")
	}
	return sem, nil
}

// immediateSubmit runs fn against a fresh one-shot command buffer from pool
// and blocks until it completes, the pattern the Ignis render layer uses
// for uploads that do not belong in the steady-state frame graph.
func immediateSubmit(device vk.Device, pool vk.CommandPool, queue vk.Queue, fn func(cmd vk.CommandBuffer)) error {
	cmd, err := allocateCommandBuffer(device, pool)
	if err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{cmd})

	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if isError(ret) {
		return newError(ret, "beginning immediate command buffer")
	}

	fn(cmd)

	if ret := vk.EndCommandBuffer(cmd); isError(ret) {
		return newError(ret, "ending immediate command buffer")
	}

	fence, err := newFence(device, false)
	if err != nil {
		return err
	}
	defer vk.DestroyFence(device, fence, nil)

	ret = vk.QueueSubmit(queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, fence)
	if isError(ret) {
		return newError(ret, "submitting immediate command buffer")
	}

	if ret := vk.WaitForFences(device, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64); isError(ret) {
		return newError(ret, "waiting on immediate submit fence")
	}
	return nil
}
