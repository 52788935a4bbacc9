package ignis

import vk "github.com/vulkan-go/vulkan"

// imageBarrierRecord is one accumulated image transition.
type imageBarrierRecord struct {
	image     vk.Image
	oldLayout vk.ImageLayout
	newLayout vk.ImageLayout
	srcStage  vk.PipelineStageFlags
	srcAccess vk.AccessFlags
	dstStage  vk.PipelineStageFlags
	dstAccess vk.AccessFlags
	aspect    vk.ImageAspectFlags
}

// bufferBarrierRecord is one accumulated buffer transition.
type bufferBarrierRecord struct {
	buffer    vk.Buffer
	offset    vk.DeviceSize
	size      vk.DeviceSize
	srcStage  vk.PipelineStageFlags
	srcAccess vk.AccessFlags
	dstStage  vk.PipelineStageFlags
	dstAccess vk.AccessFlags
}

// BarrierMerger accumulates image and buffer memory barriers and flushes
// them to a command buffer as a single vkCmdPipelineBarrier call. It holds
// no reference to a command buffer until flush is called, so the same
// merger can be built up across several decisions before it touches the GPU.
type BarrierMerger struct {
	images  []imageBarrierRecord
	buffers []bufferBarrierRecord
}

// transitionImage appends an image barrier, coalescing it into the previous
// record when every field but the aspect mask matches (the aspect mask is
// derived from newLayout and therefore always agrees when the tuple does).
func (m *BarrierMerger) transitionImage(image vk.Image, oldLayout, newLayout vk.ImageLayout, srcStage vk.PipelineStageFlags, srcAccess vk.AccessFlags, dstStage vk.PipelineStageFlags, dstAccess vk.AccessFlags) {
	rec := imageBarrierRecord{
		image:     image,
		oldLayout: oldLayout,
		newLayout: newLayout,
		srcStage:  srcStage,
		srcAccess: srcAccess,
		dstStage:  dstStage,
		dstAccess: dstAccess,
		aspect:    aspectMaskForLayout(newLayout),
	}
	if n := len(m.images); n > 0 && sameImageTransition(m.images[n-1], rec) {
		return
	}
	m.images = append(m.images, rec)
}

// bufferBarrier appends a buffer barrier, coalescing on the same rule as
// transitionImage.
func (m *BarrierMerger) bufferBarrier(buffer vk.Buffer, offset, size vk.DeviceSize, srcStage vk.PipelineStageFlags, srcAccess vk.AccessFlags, dstStage vk.PipelineStageFlags, dstAccess vk.AccessFlags) {
	rec := bufferBarrierRecord{
		buffer:    buffer,
		offset:    offset,
		size:      size,
		srcStage:  srcStage,
		srcAccess: srcAccess,
		dstStage:  dstStage,
		dstAccess: dstAccess,
	}
	if n := len(m.buffers); n > 0 && m.buffers[n-1] == rec {
		return
	}
	m.buffers = append(m.buffers, rec)
}

// empty reports whether flush would have nothing to record.
func (m *BarrierMerger) empty() bool {
	return len(m.images) == 0 && len(m.buffers) == 0
}

// flush emits one vkCmdPipelineBarrier call covering every accumulated
// record and clears the merger. Calling flush on an empty merger is a no-op;
// the caller need not guard against it.
func (m *BarrierMerger) flush(cmd vk.CommandBuffer) {
	if m.empty() {
		return
	}

	var srcStage, dstStage vk.PipelineStageFlags
	imgBarriers := make([]vk.ImageMemoryBarrier, len(m.images))
	for i, r := range m.images {
		srcStage |= r.srcStage
		dstStage |= r.dstStage
		imgBarriers[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       r.srcAccess,
			DstAccessMask:       r.dstAccess,
			OldLayout:           r.oldLayout,
			NewLayout:           r.newLayout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               r.image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     r.aspect,
				BaseMipLevel:   0,
				LevelCount:     vk.RemainingMipLevels,
				BaseArrayLayer: 0,
				LayerCount:     vk.RemainingArrayLayers,
			},
		}
	}

	bufBarriers := make([]vk.BufferMemoryBarrier, len(m.buffers))
	for i, r := range m.buffers {
		srcStage |= r.srcStage
		dstStage |= r.dstStage
		bufBarriers[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       r.srcAccess,
			DstAccessMask:       r.dstAccess,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              r.buffer,
			Offset:              r.offset,
			Size:                r.size,
		}
	}

	if srcStage == 0 {
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	if dstStage == 0 {
		dstStage = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}

	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0,
		0, nil,
		uint32(len(bufBarriers)), bufBarriers,
		uint32(len(imgBarriers)), imgBarriers,
	)

	m.images = m.images[:0]
	m.buffers = m.buffers[:0]
}

func sameImageTransition(a, b imageBarrierRecord) bool {
	return a.image == b.image &&
		a.oldLayout == b.oldLayout && a.newLayout == b.newLayout &&
		a.srcStage == b.srcStage && a.srcAccess == b.srcAccess &&
		a.dstStage == b.dstStage && a.dstAccess == b.dstAccess
}

// aspectMaskForLayout infers the subresource aspect mask from a target
// layout, per the table in the component design: color for color-attachment
// layouts, depth|stencil for the depth-stencil attachment layout, color
// otherwise, none for Undefined. This binding predates the separate
// depth-only/stencil-only layouts, so depth attachments always target the
// combined ImageLayoutDepthStencilAttachmentOptimal and get both aspect
// bits; a depth-only image without a stencil plane tolerates the stencil
// bit being set since it has no stencil aspect to act on.
func aspectMaskForLayout(layout vk.ImageLayout) vk.ImageAspectFlags {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}
