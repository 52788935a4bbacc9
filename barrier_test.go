package ignis

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestBarrierMergerCoalescesIdenticalTransitions(t *testing.T) {
	var m BarrierMerger
	img := vk.Image(1)

	m.transitionImage(img, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentWriteBit))
	m.transitionImage(img, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentWriteBit))

	if len(m.images) != 1 {
		t.Fatalf("expected 1 coalesced image barrier, got %d", len(m.images))
	}
}

func TestBarrierMergerKeepsDistinctTransitions(t *testing.T) {
	var m BarrierMerger
	imgA, imgB := vk.Image(1), vk.Image(2)

	m.transitionImage(imgA, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.AccessFlags(vk.AccessColorAttachmentWriteBit))
	m.transitionImage(imgB, vk.ImageLayoutUndefined, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0,
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), vk.AccessFlags(vk.AccessShaderReadBit))

	if len(m.images) != 2 {
		t.Fatalf("expected 2 distinct image barriers, got %d", len(m.images))
	}
}

func TestBarrierMergerBufferCoalescing(t *testing.T) {
	var m BarrierMerger
	buf := vk.Buffer(1)

	m.bufferBarrier(buf, 0, 256,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), vk.AccessFlags(vk.AccessVertexAttributeReadBit))
	m.bufferBarrier(buf, 0, 256,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit), vk.AccessFlags(vk.AccessVertexAttributeReadBit))

	if len(m.buffers) != 1 {
		t.Fatalf("expected 1 coalesced buffer barrier, got %d", len(m.buffers))
	}
}

func TestBarrierMergerAspectMaskInference(t *testing.T) {
	cases := []struct {
		layout vk.ImageLayout
		want   vk.ImageAspectFlags
	}{
		{vk.ImageLayoutUndefined, 0},
		{vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)},
		{vk.ImageLayoutColorAttachmentOptimal, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{vk.ImageLayoutPresentSrc, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	}
	for _, c := range cases {
		if got := aspectMaskForLayout(c.layout); got != c.want {
			t.Errorf("aspectMaskForLayout(%v) = %v, want %v", c.layout, got, c.want)
		}
	}
}

func TestBarrierMergerEmptyFlushIsNoop(t *testing.T) {
	var m BarrierMerger
	if !m.empty() {
		t.Fatal("fresh merger should be empty")
	}
	// flush returns before touching the command buffer when there is
	// nothing to record, so a nil command buffer is safe here.
	m.flush(nil)
	if !m.empty() {
		t.Fatal("merger should still be empty after flushing nothing")
	}
}
