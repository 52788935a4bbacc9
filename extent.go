package ignis

import (
	lin "github.com/xlab/linmath"

	vk "github.com/vulkan-go/vulkan"
)

// extentVec packs a vk.Extent3D's width/height into a linmath vector so
// attachment-size agreement can be checked with vector equality instead of
// two separate field comparisons.
func extentVec(e vk.Extent3D) lin.Vec2 {
	return lin.Vec2{float32(e.Width), float32(e.Height)}
}

// deriveRenderArea picks the render area for a pass from its attachments:
// the color attachment's extent wins, falling back to the depth
// attachment's extent when there is no color attachment. A pass with both
// attachments present must agree on extent or the pass fails to build.
func deriveRenderArea(b *Builder, p *RenderPass) (vk.Rect2D, error) {
	var colorExtent, depthExtent *vk.Extent3D

	if p.color != nil {
		st, ok := b.images[p.color.Image]
		if !ok {
			return vk.Rect2D{}, newGraphError(KindInvalidAccess, "pass %q color attachment references unimported image %d", p.name, p.color.Image)
		}
		colorExtent = &st.extent
	}
	if p.depth != nil {
		st, ok := b.images[p.depth.Image]
		if !ok {
			return vk.Rect2D{}, newGraphError(KindInvalidAccess, "pass %q depth attachment references unimported image %d", p.name, p.depth.Image)
		}
		depthExtent = &st.extent
	}

	switch {
	case colorExtent != nil && depthExtent != nil:
		if extentVec(*colorExtent) != extentVec(*depthExtent) {
			return vk.Rect2D{}, newGraphError(KindInvalidAccess, "pass %q color/depth attachment extents disagree (%dx%d vs %dx%d)",
				p.name, colorExtent.Width, colorExtent.Height, depthExtent.Width, depthExtent.Height)
		}
		return rect2DFromExtent(*colorExtent), nil
	case colorExtent != nil:
		return rect2DFromExtent(*colorExtent), nil
	case depthExtent != nil:
		return rect2DFromExtent(*depthExtent), nil
	default:
		return vk.Rect2D{}, nil
	}
}

func rect2DFromExtent(e vk.Extent3D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: e.Width, Height: e.Height},
	}
}
