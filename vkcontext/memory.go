package vkcontext

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer is a device buffer plus the memory backing it.
type Buffer struct {
	device vk.Device
	Handle vk.Buffer
	Memory vk.DeviceMemory
}

func (b *Buffer) Destroy() {
	vk.DestroyBuffer(b.device, b.Handle, nil)
	vk.FreeMemory(b.device, b.Memory, nil)
}

// CreateBuffer allocates a host-visible, host-coherent buffer of usage and
// optionally uploads data into it immediately.
func CreateBuffer(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, size vk.DeviceSize, usage vk.BufferUsageFlagBits, data []byte) (*Buffer, error) {
	var handle vk.Buffer
	ret := vk.CreateBuffer(device, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Usage: vk.BufferUsageFlags(usage),
		Size:  size,
	}, nil, &handle)
	if isError(ret) {
		return nil, newError(ret, "creating buffer")
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &req)
	req.Deref()

	memType, ok := findRequiredMemoryType(memProps, req.MemoryTypeBits,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if !ok {
		vk.DestroyBuffer(device, handle, nil)
		return nil, newError(vk.ErrorOutOfDeviceMemory, "no host-visible memory type for buffer")
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if isError(ret) {
		vk.DestroyBuffer(device, handle, nil)
		return nil, newError(ret, "allocating buffer memory")
	}
	vk.BindBufferMemory(device, handle, memory, 0)

	b := &Buffer{device: device, Handle: handle, Memory: memory}

	if len(data) > 0 {
		var mapped unsafe.Pointer
		if ret := vk.MapMemory(device, memory, 0, size, 0, &mapped); isError(ret) {
			return b, newError(ret, "mapping buffer memory")
		}
		vk.Memcopy(mapped, data)
		vk.UnmapMemory(device, memory)
	}
	return b, nil
}

// Image is a device-local image, its memory, and a default view over it,
// used for frame graph resources that are not the swapchain itself (an
// offscreen color target or a depth buffer).
type Image struct {
	device vk.Device
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
}

func (i *Image) Destroy() {
	vk.DestroyImageView(i.device, i.View, nil)
	vk.DestroyImage(i.device, i.Handle, nil)
	vk.FreeMemory(i.device, i.Memory, nil)
}

// CreateImage allocates a device-local 2D image sized extent with usage and
// aspect, and creates a matching image view over it.
func CreateImage(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, extent vk.Extent3D, format vk.Format, usage vk.ImageUsageFlagBits, aspect vk.ImageAspectFlags) (*Image, error) {
	var handle vk.Image
	ret := vk.CreateImage(device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        extent,
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &handle)
	if isError(ret) {
		return nil, newError(ret, "creating image")
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &req)
	req.Deref()

	memType, ok := findRequiredMemoryType(memProps, req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyImage(device, handle, nil)
		return nil, newError(vk.ErrorOutOfDeviceMemory, "no device-local memory type for image")
	}

	var memory vk.DeviceMemory
	ret = vk.AllocateMemory(device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if isError(ret) {
		vk.DestroyImage(device, handle, nil)
		return nil, newError(ret, "allocating image memory")
	}
	vk.BindImageMemory(device, handle, memory, 0)

	view, err := createImageView(device, handle, format, aspect)
	if err != nil {
		vk.FreeMemory(device, memory, nil)
		vk.DestroyImage(device, handle, nil)
		return nil, err
	}

	return &Image{device: device, Handle: handle, Memory: memory, View: view}, nil
}
