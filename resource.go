package ignis

import vk "github.com/vulkan-go/vulkan"

// ImageID and BufferID are opaque handles minted by a Builder for the
// images and buffers imported into one frame's graph. They are only valid
// for the Builder/Executor pair that minted them; a later frame's Builder
// assigns fresh IDs starting from zero again.
type ImageID uint32

// BufferID identifies a buffer imported into a single frame's graph.
type BufferID uint32

// InvalidImageID is the sentinel returned alongside an error from
// ImportImage, and never a valid handle minted by a Builder.
const InvalidImageID ImageID = 0xFFFFFFFF

// InvalidBufferID is the sentinel returned alongside an error from
// ImportBuffer.
const InvalidBufferID BufferID = 0xFFFFFFFF

// AccessKind tags what a pass does with a resource access record.
type AccessKind int

const (
	ReadImage AccessKind = iota
	WriteImage
	ReadBuffer
	WriteBuffer
)

// ImageAccess is a single pass's declared use of an imported image, outside
// of its attachment slots (which imply their own access implicitly).
type ImageAccess struct {
	ID    ImageID
	Kind  AccessKind
	Stage vk.PipelineStageFlags
}

// BufferAccess is a single pass's declared use of an imported buffer.
type BufferAccess struct {
	ID    BufferID
	Kind  AccessKind
	Stage vk.PipelineStageFlags
}

// imageState is the Builder's per-image bookkeeping: the raw handle/view
// the image was imported with, its currently tracked layout, the last
// pipeline stage/access that touched it, and the layout it must end the
// frame in.
type imageState struct {
	handle      vk.Image
	view        vk.ImageView
	extent      vk.Extent3D
	format      vk.Format
	layout      vk.ImageLayout
	lastStage   vk.PipelineStageFlags
	lastAccess  vk.AccessFlags
	lastWrite   bool
	finalLayout vk.ImageLayout
}

// bufferState is the Builder's per-buffer bookkeeping.
type bufferState struct {
	handle     vk.Buffer
	offset     vk.DeviceSize
	size       vk.DeviceSize
	lastStage  vk.PipelineStageFlags
	lastAccess vk.AccessFlags
	lastWrite  bool
}

// LoadOp and StoreOp mirror vk.AttachmentLoadOp/vk.AttachmentStoreOp but are
// named at the ignis level so callers of the frame graph never need to spell
// out Vulkan attachment-description fields by hand.
type LoadOp = vk.AttachmentLoadOp

// StoreOp mirrors vk.AttachmentStoreOp.
type StoreOp = vk.AttachmentStoreOp

// Attachment describes a color or depth attachment bound to a pass for
// dynamic rendering.
type Attachment struct {
	Image      ImageID
	ClearValue vk.ClearValue
	LoadOp     LoadOp
	StoreOp    StoreOp
}

// attachmentRole discriminates a pass's two possible attachments, color and
// depth. The Builder does not reference it; it handles the color and depth
// attachments through separate fields of RenderPass.
type attachmentRole int

const (
	roleColor attachmentRole = iota
	roleDepth
)
