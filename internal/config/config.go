// Package config holds the typed configuration structs the engine and its
// Vulkan adapter are constructed from: the handful of knobs the frame pacer
// and the GPU context actually have, each with its own Go type.
package config

// PacerConfig configures a Frame Pacer.
type PacerConfig struct {
	// FramesInFlight is N, the number of ring-buffered frame contexts.
	// NewPacer treats values below 1 as 1; defaults to 3 when constructed
	// via DefaultPacerConfig.
	FramesInFlight int
}

// DefaultPacerConfig returns a default of three frames in flight.
func DefaultPacerConfig() PacerConfig {
	return PacerConfig{FramesInFlight: 3}
}

// GPUContextConfig configures the concrete Vulkan adapter: application
// name plus the instance/device extensions and validation layers it
// should request.
type GPUContextConfig struct {
	AppName            string
	EngineName         string
	InstanceExtensions []string
	DeviceExtensions   []string
	ValidationLayers   []string
	EnableValidation   bool
}

// DefaultGPUContextConfig returns the minimal extension set a dynamic
// rendering swapchain presenter needs: swapchain presentation, dynamic
// rendering, and the two extensions dynamic rendering depends on
// (create_renderpass2 and depth_stencil_resolve), with the Khronos
// validation layer enabled.
func DefaultGPUContextConfig(appName string) GPUContextConfig {
	return GPUContextConfig{
		AppName:    appName,
		EngineName: "ignis",
		DeviceExtensions: []string{
			"VK_KHR_swapchain",
			"VK_KHR_dynamic_rendering",
			"VK_KHR_create_renderpass2",
			"VK_KHR_depth_stencil_resolve",
		},
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		EnableValidation: true,
	}
}
