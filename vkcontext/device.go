package vkcontext

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgfx/ignis/internal/config"
)

// queueFamilies records which queue family indices a physical device offers
// for graphics work and for presenting to a given surface.
type queueFamilies struct {
	graphics      uint32
	present       uint32
	hasSeparate   bool
	graphicsQueue vk.Queue
	presentQueue  vk.Queue
}

func createInstance(cfg config.GPUContextConfig, window *glfw.Window) (vk.Instance, error) {
	var layers []string
	if cfg.EnableValidation {
		layerSet, err := newLayerSet(cfg.ValidationLayers)
		if err != nil {
			return nil, err
		}
		layers = layerSet.resolve()
	}

	required := window.GetRequiredInstanceExtensions()
	instSet, err := newInstanceExtensionSet(cfg.InstanceExtensions, required)
	if err != nil {
		return nil, err
	}

	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		flags = vk.InstanceCreateFlags(0x00000001) // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT
	}

	extensions := instSet.resolve()

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   cfg.AppName + "\x00",
			PEngineName:        cfg.EngineName + "\x00",
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		Flags:                   flags,
	}, nil, &instance)
	if isError(ret) {
		return nil, newError(ret, "creating instance")
	}

	if runtime.GOOS == "darwin" {
		vk.InitInstance(instance)
	}

	return instance, nil
}

// pickPhysicalDevice selects the first enumerated GPU that reports the
// required device extensions rather than running a scored multi-GPU search.
func pickPhysicalDevice(instance vk.Instance, required []string) (vk.PhysicalDevice, error) {
	var count uint32
	if ret := vk.EnumeratePhysicalDevices(instance, &count, nil); isError(ret) {
		return nil, newError(ret, "enumerating physical device count")
	}
	if count == 0 {
		return nil, fmt.Errorf("vkcontext: no Vulkan physical devices found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if ret := vk.EnumeratePhysicalDevices(instance, &count, devices); isError(ret) {
		return nil, newError(ret, "enumerating physical devices")
	}

	for _, gpu := range devices {
		set, err := newDeviceExtensionSet(nil, required, gpu)
		if err != nil {
			continue
		}
		if len(set.missingRequired()) == 0 {
			return gpu, nil
		}
	}
	return nil, fmt.Errorf("vkcontext: no physical device supports the required extensions %v", required)
}

// findQueueFamilies walks a physical device's queue families looking for
// one that supports graphics and, separately, one that supports presenting
// to surface. The graphics family is used for presenting whenever it can
// present; the first present-capable family found by the loop is the
// fallback only when it cannot.
func findQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface) (queueFamilies, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	var qf queueFamilies
	graphicsFound := false
	presentFound := false

	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		if !graphicsFound && props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			qf.graphics = i
			graphicsFound = true
		}

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &supportsPresent)
		if !presentFound && supportsPresent.B() {
			qf.present = i
			presentFound = true
		}
	}

	if !graphicsFound {
		return qf, fmt.Errorf("vkcontext: no graphics-capable queue family found")
	}
	var graphicsPresents vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(gpu, qf.graphics, surface, &graphicsPresents)
	if graphicsPresents.B() {
		qf.present = qf.graphics
	}
	if !presentFound {
		return qf, fmt.Errorf("vkcontext: no present-capable queue family found")
	}
	qf.hasSeparate = qf.graphics != qf.present
	return qf, nil
}

func createLogicalDevice(gpu vk.PhysicalDevice, qf queueFamilies, extensions []string) (vk.Device, error) {
	priority := float32(1.0)
	infos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: qf.graphics,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}}
	if qf.hasSeparate {
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: qf.present,
			QueueCount:       1,
			PQueuePriorities: []float32{priority},
		})
	}

	var device vk.Device
	ret := vk.CreateDevice(gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(infos)),
		PQueueCreateInfos:       infos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}, nil, &device)
	if isError(ret) {
		return nil, newError(ret, "creating logical device")
	}
	return device, nil
}
