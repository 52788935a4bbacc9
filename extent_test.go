package ignis

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestDeriveRenderAreaColorWins(t *testing.T) {
	b := NewBuilder()
	color := mustImport(t, b, vk.Image(1), vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)
	p := b.AddRenderPass("p").SetColorAttachment(Attachment{Image: color})

	area, err := deriveRenderArea(b, p)
	if err != nil {
		t.Fatalf("deriveRenderArea failed: %v", err)
	}
	if area.Extent.Width != 800 || area.Extent.Height != 600 {
		t.Errorf("area = %+v, want 800x600 from color attachment", area.Extent)
	}
}

func TestDeriveRenderAreaFallsBackToDepth(t *testing.T) {
	b := NewBuilder()
	depth := mustImport(t, b, vk.Image(1), vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
	p := b.AddRenderPass("p").SetDepthAttachment(Attachment{Image: depth})

	area, err := deriveRenderArea(b, p)
	if err != nil {
		t.Fatalf("deriveRenderArea failed: %v", err)
	}
	if area.Extent.Width != 800 || area.Extent.Height != 600 {
		t.Errorf("area = %+v, want 800x600 from depth attachment", area.Extent)
	}
}

func TestDeriveRenderAreaMismatchFails(t *testing.T) {
	b := NewBuilder()
	color, err := b.ImportImage(vk.Image(1), 0, vk.Extent3D{Width: 800, Height: 600, Depth: 1}, vk.FormatB8g8r8a8Unorm, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)
	if err != nil {
		t.Fatalf("import color failed: %v", err)
	}
	depth, err := b.ImportImage(vk.Image(2), 0, vk.Extent3D{Width: 1024, Height: 768, Depth: 1}, vk.FormatD32Sfloat, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
	if err != nil {
		t.Fatalf("import depth failed: %v", err)
	}
	p := b.AddRenderPass("p").
		SetColorAttachment(Attachment{Image: color}).
		SetDepthAttachment(Attachment{Image: depth})

	_, err = deriveRenderArea(b, p)
	var ge *GraphError
	if ge, _ = err.(*GraphError); ge == nil || ge.Kind != KindInvalidAccess {
		t.Fatalf("expected KindInvalidAccess on extent mismatch, got %v", err)
	}
}
