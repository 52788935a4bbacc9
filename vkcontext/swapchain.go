package vkcontext

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// swapchain owns the presentable images for one surface and everything
// needed to recreate them on resize. Trimmed to what a dynamic-rendering
// presenter needs: no framebuffers or render pass attachment, since passes
// render directly into the swapchain image view.
type swapchain struct {
	handle vk.Swapchain
	format vk.SurfaceFormat
	extent vk.Extent2D

	images []vk.Image
	views  []vk.ImageView
}

func createSwapchain(gpu vk.PhysicalDevice, device vk.Device, surface vk.Surface, desiredImages int, old vk.Swapchain) (*swapchain, error) {
	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps); isError(ret) {
		return nil, newError(ret, "querying surface capabilities")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
	if formatCount == 0 {
		return nil, fmt.Errorf("vkcontext: surface exposes no color formats")
	}
	formats[0].Deref()
	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Unorm
	}

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		return nil, fmt.Errorf("vkcontext: surface reports no fixed extent")
	}

	imageCount := uint32(desiredImages)
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, candidate := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		OldSwapchain:     old,
		Clipped:          vk.True,
	}, nil, &handle)
	if isError(ret) {
		return nil, newError(ret, "creating swapchain")
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(device, old, nil)
	}

	var actualCount uint32
	vk.GetSwapchainImages(device, handle, &actualCount, nil)
	images := make([]vk.Image, actualCount)
	vk.GetSwapchainImages(device, handle, &actualCount, images)

	views := make([]vk.ImageView, actualCount)
	for i, image := range images {
		view, err := createImageView(device, image, format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return nil, err
		}
		views[i] = view
	}

	return &swapchain{handle: handle, format: format, extent: extent, images: images, views: views}, nil
}

func createImageView(device vk.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	var view vk.ImageView
	ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if isError(ret) {
		return nil, newError(ret, "creating image view")
	}
	return view, nil
}

func (s *swapchain) destroy(device vk.Device) {
	for _, v := range s.views {
		vk.DestroyImageView(device, v, nil)
	}
	vk.DestroySwapchain(device, s.handle, nil)
}
