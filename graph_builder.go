package ignis

import vk "github.com/vulkan-go/vulkan"

// RenderPass is one node in the graph: a declared set of resource accesses,
// an optional pair of attachments, and a callback that records the pass's
// own commands. It is only valid for the Builder that minted it and is
// consumed by Build(); holding on to one past Build() is a programmer error.
type RenderPass struct {
	name      string
	reads     []ImageAccess
	writes    []ImageAccess
	readBufs  []BufferAccess
	writeBufs []BufferAccess
	color     *Attachment
	depth     *Attachment
	fn        func(vk.CommandBuffer)
}

// ReadImages appends image accesses the pass only reads.
func (p *RenderPass) ReadImages(accesses ...ImageAccess) *RenderPass {
	p.reads = append(p.reads, accesses...)
	return p
}

// WriteImages appends image accesses the pass writes.
func (p *RenderPass) WriteImages(accesses ...ImageAccess) *RenderPass {
	p.writes = append(p.writes, accesses...)
	return p
}

// ReadBuffers appends buffer accesses the pass only reads.
func (p *RenderPass) ReadBuffers(accesses ...BufferAccess) *RenderPass {
	p.readBufs = append(p.readBufs, accesses...)
	return p
}

// WriteBuffers appends buffer accesses the pass writes.
func (p *RenderPass) WriteBuffers(accesses ...BufferAccess) *RenderPass {
	p.writeBufs = append(p.writeBufs, accesses...)
	return p
}

// SetColorAttachment binds a color attachment for dynamic rendering.
func (p *RenderPass) SetColorAttachment(a Attachment) *RenderPass {
	p.color = &a
	return p
}

// SetDepthAttachment binds a depth attachment for dynamic rendering.
func (p *RenderPass) SetDepthAttachment(a Attachment) *RenderPass {
	p.depth = &a
	return p
}

// Execute sets the callback invoked once this pass's prefix barrier has
// been flushed and (if it has attachments) dynamic rendering has begun.
func (p *RenderPass) Execute(fn func(cmd vk.CommandBuffer)) *RenderPass {
	p.fn = fn
	return p
}

// Builder collects one frame's render passes and the images/buffers they
// touch. A Builder is single-use: construct one per frame, populate it,
// call Build() once, then discard it.
type Builder struct {
	images  map[ImageID]*imageState
	buffers map[BufferID]*bufferState
	nextImg ImageID
	nextBuf BufferID

	importedImageHandles  map[vk.Image]bool
	importedBufferHandles map[vk.Buffer]bool

	passes []*RenderPass

	swapchainImageID ImageID
}

// NewBuilder constructs an empty Builder for one frame.
func NewBuilder() *Builder {
	return &Builder{
		images:                make(map[ImageID]*imageState),
		buffers:               make(map[BufferID]*bufferState),
		importedImageHandles:  make(map[vk.Image]bool),
		importedBufferHandles: make(map[vk.Buffer]bool),
	}
}

// ImportImage declares an externally-managed image. currentLayout seeds the
// tracked layout with stage TopOfPipe and access None; finalLayout is the
// layout the terminal barrier must drive the image to.
func (b *Builder) ImportImage(handle vk.Image, view vk.ImageView, extent vk.Extent3D, format vk.Format, currentLayout, finalLayout vk.ImageLayout) (ImageID, error) {
	if b.importedImageHandles[handle] {
		return InvalidImageID, newGraphError(KindDuplicateImport, "image already imported this frame")
	}
	b.importedImageHandles[handle] = true

	id := b.nextImg
	b.nextImg++
	b.images[id] = &imageState{
		handle:      handle,
		view:        view,
		extent:      extent,
		format:      format,
		layout:      currentLayout,
		lastStage:   vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		lastAccess:  0,
		finalLayout: finalLayout,
	}
	return id, nil
}

// ImportBuffer declares an externally-managed buffer range.
func (b *Builder) ImportBuffer(handle vk.Buffer, offset, size vk.DeviceSize) (BufferID, error) {
	if b.importedBufferHandles[handle] {
		return InvalidBufferID, newGraphError(KindDuplicateImport, "buffer already imported this frame")
	}
	b.importedBufferHandles[handle] = true

	id := b.nextBuf
	b.nextBuf++
	b.buffers[id] = &bufferState{
		handle:     handle,
		offset:     offset,
		size:       size,
		lastStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		lastAccess: 0,
	}
	return id, nil
}

// ImportSwapchainImage is the Pacer's entry point for importing the
// freshly acquired swapchain image; it also records the ID so higher layers
// can read it back via SwapchainImageID.
func (b *Builder) ImportSwapchainImage(handle vk.Image, view vk.ImageView, extent vk.Extent3D, format vk.Format) (ImageID, error) {
	id, err := b.ImportImage(handle, view, extent, format, vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc)
	if err != nil {
		return InvalidImageID, err
	}
	b.swapchainImageID = id
	return id, nil
}

// SwapchainImageID returns the ID the current frame's swapchain image was
// imported under.
func (b *Builder) SwapchainImageID() ImageID { return b.swapchainImageID }

// AddRenderPass appends a new pass and returns a mutable handle for
// chainable configuration. The execute callback is consumed at build time.
func (b *Builder) AddRenderPass(name string) *RenderPass {
	p := &RenderPass{name: name}
	b.passes = append(b.passes, p)
	return p
}

// imageAccessTarget maps a declared (kind, stage) to the layout/access pair
// from the access table: transfer stages select TransferSrc/TransferDst,
// a write in any other stage selects the storage-image General layout, a
// read in any other stage selects ShaderReadOnlyOptimal.
func imageAccessTarget(kind AccessKind, stage vk.PipelineStageFlags) (vk.ImageLayout, vk.AccessFlags) {
	if stage&vk.PipelineStageFlags(vk.PipelineStageTransferBit) != 0 {
		if kind == ReadImage {
			return vk.ImageLayoutTransferSrcOptimal, vk.AccessFlags(vk.AccessTransferReadBit)
		}
		return vk.ImageLayoutTransferDstOptimal, vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	if kind == WriteImage {
		return vk.ImageLayoutGeneral, vk.AccessFlags(vk.AccessShaderWriteBit)
	}
	return vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessFlags(vk.AccessShaderReadBit)
}

// bufferAccessTarget is the buffer analogue of imageAccessTarget; buffers
// carry no layout, only a stage/access pair.
func bufferAccessTarget(kind AccessKind, stage vk.PipelineStageFlags) vk.AccessFlags {
	if stage&vk.PipelineStageFlags(vk.PipelineStageTransferBit) != 0 {
		if kind == ReadBuffer {
			return vk.AccessFlags(vk.AccessTransferReadBit)
		}
		return vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	if kind == WriteBuffer {
		return vk.AccessFlags(vk.AccessShaderWriteBit)
	}
	return vk.AccessFlags(vk.AccessShaderReadBit)
}

type passImageReq struct {
	id     ImageID
	layout vk.ImageLayout
	stage  vk.PipelineStageFlags
	access vk.AccessFlags
	write  bool
}

type passBufferReq struct {
	id     BufferID
	stage  vk.PipelineStageFlags
	access vk.AccessFlags
	write  bool
}

// gatherImageRequirements folds a pass's attachments and explicit
// read/write lists into one requirement per referenced image, in
// declaration order (color, depth, reads, writes). An image appearing in
// more than one of those sources is merged into a single write requirement
// with the union of access masks, per the tie-break rule; an image used
// both as an attachment and in an explicit list is rejected as an
// InvalidAccess, since the attachment already implies the full access.
func (b *Builder) gatherImageRequirements(p *RenderPass) ([]passImageReq, error) {
	order := make([]ImageID, 0, len(p.reads)+len(p.writes)+2)
	reqs := make(map[ImageID]passImageReq)
	attachmentIDs := make(map[ImageID]bool)

	add := func(id ImageID, layout vk.ImageLayout, stage vk.PipelineStageFlags, access vk.AccessFlags, write bool) {
		if existing, ok := reqs[id]; ok {
			existing.access |= access
			existing.stage |= stage
			if write {
				existing.write = true
				existing.layout = layout
			}
			reqs[id] = existing
			return
		}
		order = append(order, id)
		reqs[id] = passImageReq{id: id, layout: layout, stage: stage, access: access, write: write}
	}

	if p.color != nil {
		access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		if p.color.LoadOp == vk.AttachmentLoadOpLoad {
			access |= vk.AccessFlags(vk.AccessColorAttachmentReadBit)
		}
		attachmentIDs[p.color.Image] = true
		add(p.color.Image, vk.ImageLayoutColorAttachmentOptimal, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), access, true)
	}
	if p.depth != nil {
		access := vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		if p.depth.LoadOp == vk.AttachmentLoadOpLoad {
			access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
		}
		stage := vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) | vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
		attachmentIDs[p.depth.Image] = true
		add(p.depth.Image, vk.ImageLayoutDepthStencilAttachmentOptimal, stage, access, true)
	}
	for _, a := range p.reads {
		if attachmentIDs[a.ID] {
			return nil, newGraphError(KindInvalidAccess, "pass %q lists attachment image %d again as a read", p.name, a.ID)
		}
		layout, access := imageAccessTarget(ReadImage, a.Stage)
		add(a.ID, layout, a.Stage, access, false)
	}
	for _, a := range p.writes {
		if attachmentIDs[a.ID] {
			return nil, newGraphError(KindInvalidAccess, "pass %q lists attachment image %d again as a write", p.name, a.ID)
		}
		layout, access := imageAccessTarget(WriteImage, a.Stage)
		add(a.ID, layout, a.Stage, access, true)
	}

	out := make([]passImageReq, len(order))
	for i, id := range order {
		out[i] = reqs[id]
	}
	return out, nil
}

func (b *Builder) gatherBufferRequirements(p *RenderPass) []passBufferReq {
	order := make([]BufferID, 0, len(p.readBufs)+len(p.writeBufs))
	reqs := make(map[BufferID]passBufferReq)

	add := func(id BufferID, stage vk.PipelineStageFlags, access vk.AccessFlags, write bool) {
		if existing, ok := reqs[id]; ok {
			existing.access |= access
			existing.stage |= stage
			existing.write = existing.write || write
			reqs[id] = existing
			return
		}
		order = append(order, id)
		reqs[id] = passBufferReq{id: id, stage: stage, access: access, write: write}
	}

	for _, a := range p.readBufs {
		add(a.ID, a.Stage, bufferAccessTarget(ReadBuffer, a.Stage), false)
	}
	for _, a := range p.writeBufs {
		add(a.ID, a.Stage, bufferAccessTarget(WriteBuffer, a.Stage), true)
	}

	out := make([]passBufferReq, len(order))
	for i, id := range order {
		out[i] = reqs[id]
	}
	return out
}

// applyImageRequirement compares a pass's requirement against the tracked
// state for that image, appends a transition to merger when one is needed,
// and updates the tracked state. A read immediately following a read in the
// same layout merges without a barrier, expanding the tracked stage to
// cover both readers.
func (b *Builder) applyImageRequirement(merger *BarrierMerger, req passImageReq) error {
	st, ok := b.images[req.id]
	if !ok {
		return newGraphError(KindInvalidAccess, "pass references unimported image %d", req.id)
	}

	layoutChanged := st.layout != req.layout
	needsBarrier := req.write || st.lastWrite || layoutChanged
	if !needsBarrier {
		st.lastStage |= req.stage
		return nil
	}

	srcStage, srcAccess := st.lastStage, st.lastAccess
	if st.layout == vk.ImageLayoutUndefined {
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		srcAccess = 0
	}
	merger.transitionImage(st.handle, st.layout, req.layout, srcStage, srcAccess, req.stage, req.access)

	st.layout = req.layout
	st.lastStage = req.stage
	st.lastAccess = req.access
	st.lastWrite = req.write
	return nil
}

func (b *Builder) applyBufferRequirement(merger *BarrierMerger, req passBufferReq) error {
	st, ok := b.buffers[req.id]
	if !ok {
		return newGraphError(KindInvalidAccess, "pass references unimported buffer %d", req.id)
	}

	needsBarrier := req.write || st.lastWrite
	if !needsBarrier {
		st.lastStage |= req.stage
		return nil
	}

	merger.bufferBarrier(st.handle, st.offset, st.size, st.lastStage, st.lastAccess, req.stage, req.access)
	st.lastStage = req.stage
	st.lastAccess = req.access
	st.lastWrite = req.write
	return nil
}

// Build consumes the Builder, producing an Executor that can be run once
// against a command buffer. Every declared pass must have an execute
// callback; passes without one fail build with MissingExecute.
func (b *Builder) Build() (*Executor, error) {
	execPasses := make([]execPass, 0, len(b.passes))

	for _, p := range b.passes {
		if p.fn == nil {
			return nil, newGraphError(KindMissingExecute, "pass %q has no execute callback", p.name)
		}

		imgReqs, err := b.gatherImageRequirements(p)
		if err != nil {
			return nil, err
		}
		bufReqs := b.gatherBufferRequirements(p)

		merger := &BarrierMerger{}
		for _, r := range imgReqs {
			if err := b.applyImageRequirement(merger, r); err != nil {
				return nil, err
			}
		}
		for _, r := range bufReqs {
			if err := b.applyBufferRequirement(merger, r); err != nil {
				return nil, err
			}
		}

		area, err := deriveRenderArea(b, p)
		if err != nil {
			return nil, err
		}

		var color, depth *resolvedAttachment
		if p.color != nil {
			color = &resolvedAttachment{
				view:       b.images[p.color.Image].view,
				layout:     vk.ImageLayoutColorAttachmentOptimal,
				loadOp:     p.color.LoadOp,
				storeOp:    p.color.StoreOp,
				clearValue: p.color.ClearValue,
			}
		}
		if p.depth != nil {
			depth = &resolvedAttachment{
				view:       b.images[p.depth.Image].view,
				layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
				loadOp:     p.depth.LoadOp,
				storeOp:    p.depth.StoreOp,
				clearValue: p.depth.ClearValue,
			}
		}

		execPasses = append(execPasses, execPass{
			name:       p.name,
			prefix:     merger,
			fn:         p.fn,
			renderArea: area,
			color:      color,
			depth:      depth,
		})
	}

	terminal := &BarrierMerger{}
	for _, st := range b.orderedImages() {
		if st.layout == st.finalLayout {
			continue
		}
		srcStage, srcAccess := st.lastStage, st.lastAccess
		if st.layout == vk.ImageLayoutUndefined {
			srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
			srcAccess = 0
		}
		dstStage := vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
		dstAccess := vk.AccessFlags(0)
		if st.finalLayout == vk.ImageLayoutPresentSrc {
			dstAccess = 0
		}
		terminal.transitionImage(st.handle, st.layout, st.finalLayout, srcStage, srcAccess, dstStage, dstAccess)
		st.layout = st.finalLayout
	}

	trivialStage := vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	for _, st := range b.orderedBuffers() {
		if st.lastStage == trivialStage && st.lastAccess == 0 && !st.lastWrite {
			continue
		}
		terminal.bufferBarrier(st.handle, st.offset, st.size, st.lastStage, st.lastAccess,
			vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), 0)
		st.lastStage, st.lastAccess, st.lastWrite = vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), 0, false
	}

	return &Executor{passes: execPasses, terminal: terminal}, nil
}

// orderedImages returns imageState pointers sorted by ImageID so terminal
// barrier ordering is deterministic across otherwise-equal frames.
func (b *Builder) orderedImages() []*imageState {
	out := make([]*imageState, b.nextImg)
	for id, st := range b.images {
		out[id] = st
	}
	compact := out[:0]
	for _, st := range out {
		if st != nil {
			compact = append(compact, st)
		}
	}
	return compact
}

// orderedBuffers returns bufferState pointers sorted by BufferID so terminal
// barrier ordering is deterministic across otherwise-equal frames.
func (b *Builder) orderedBuffers() []*bufferState {
	out := make([]*bufferState, b.nextBuf)
	for id, st := range b.buffers {
		out[id] = st
	}
	compact := out[:0]
	for _, st := range out {
		if st != nil {
			compact = append(compact, st)
		}
	}
	return compact
}
