package ignis

import vk "github.com/vulkan-go/vulkan"

// resolvedAttachment is an Attachment with its ImageID already resolved to
// the view and layout it will have when the pass begins, since the
// Executor no longer has access to the Builder's image table.
type resolvedAttachment struct {
	view       vk.ImageView
	layout     vk.ImageLayout
	loadOp     vk.AttachmentLoadOp
	storeOp    vk.AttachmentStoreOp
	clearValue vk.ClearValue
}

// execPass is one pass as prepared by Builder.Build(): a precomputed
// prefix barrier, the attachments (if any) to begin dynamic rendering
// with, and the user callback to run once rendering has begun.
type execPass struct {
	name       string
	prefix     *BarrierMerger
	fn         func(vk.CommandBuffer)
	renderArea vk.Rect2D
	color      *resolvedAttachment
	depth      *resolvedAttachment
}

// Executor is the output of Builder.Build(): an ordered list of prefix
// barrier / execute pairs plus a terminal barrier driving every imported
// image to its declared final layout. It is consumed exactly once.
type Executor struct {
	passes   []execPass
	terminal *BarrierMerger
	ran      bool
}

// Execution is the narrow surface Pacer.End depends on. *Executor is the
// only production implementation; tests substitute a double that never
// touches the real command buffer, since Execute records real Vulkan
// commands that require a live instance/device to be safe to call.
type Execution interface {
	Execute(cmd vk.CommandBuffer)
}

var _ Execution = (*Executor)(nil)

// Execute runs the protocol against cmd: for each pass, flush its prefix
// barrier, begin dynamic rendering if it has attachments, invoke the pass's
// callback, end rendering, then flush the terminal barrier. Re-running an
// Executor is undefined; Execute panics if called twice.
func (e *Executor) Execute(cmd vk.CommandBuffer) {
	if e.ran {
		panic("ignis: Executor.Execute called more than once")
	}
	e.ran = true

	for _, p := range e.passes {
		p.prefix.flush(cmd)

		hasAttachments := p.color != nil || p.depth != nil
		if hasAttachments {
			beginDynamicRendering(cmd, p.renderArea, p.color, p.depth)
		}

		p.fn(cmd)

		if hasAttachments {
			vk.CmdEndRendering(cmd)
		}
	}

	e.terminal.flush(cmd)
}

func beginDynamicRendering(cmd vk.CommandBuffer, area vk.Rect2D, color, depth *resolvedAttachment) {
	info := vk.RenderingInfo{
		SType:      vk.StructureTypeRenderingInfo,
		RenderArea: area,
		LayerCount: 1,
		ViewMask:   0,
	}

	if color != nil {
		info.ColorAttachmentCount = 1
		info.PColorAttachments = []vk.RenderingAttachmentInfo{
			attachmentInfo(color),
		}
	}
	if depth != nil {
		d := attachmentInfo(depth)
		info.PDepthAttachment = &d
	}

	vk.CmdBeginRendering(cmd, &info)
}

func attachmentInfo(a *resolvedAttachment) vk.RenderingAttachmentInfo {
	return vk.RenderingAttachmentInfo{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   a.view,
		ImageLayout: a.layout,
		LoadOp:      a.loadOp,
		StoreOp:     a.storeOp,
		ClearValue:  a.clearValue,
	}
}
