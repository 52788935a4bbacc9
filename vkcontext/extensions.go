package vkcontext

import vk "github.com/vulkan-go/vulkan"

// instanceExtensions lists the extensions the running Vulkan loader exposes
// at the instance level.
func instanceExtensions() (names []string, err error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if isError(ret) {
		return nil, newError(ret, "enumerating instance extension count")
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if isError(ret) {
		return nil, newError(ret, "enumerating instance extensions")
	}
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// deviceExtensions lists the extensions a physical device exposes.
func deviceExtensions(gpu vk.PhysicalDevice) (names []string, err error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if isError(ret) {
		return nil, newError(ret, "enumerating device extension count")
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if isError(ret) {
		return nil, newError(ret, "enumerating device extensions")
	}
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// validationLayers lists the validation layers the loader knows about.
func validationLayers() (names []string, err error) {
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if isError(ret) {
		return nil, newError(ret, "enumerating instance layer count")
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if isError(ret) {
		return nil, newError(ret, "enumerating instance layers")
	}
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// extensionSet negotiates a wanted/required list of names against what the
// platform actually reports. One generic shape covers instance extensions,
// device extensions, and validation layers instead of three near-identical
// types.
type extensionSet struct {
	wanted   []string
	required []string
	actual   []string
}

func newInstanceExtensionSet(wanted, required []string) (extensionSet, error) {
	actual, err := instanceExtensions()
	if err != nil {
		return extensionSet{}, err
	}
	return extensionSet{wanted: wanted, required: required, actual: actual}, nil
}

func newDeviceExtensionSet(wanted, required []string, gpu vk.PhysicalDevice) (extensionSet, error) {
	actual, err := deviceExtensions(gpu)
	if err != nil {
		return extensionSet{}, err
	}
	return extensionSet{wanted: wanted, required: required, actual: actual}, nil
}

func newLayerSet(wanted []string) (extensionSet, error) {
	actual, err := validationLayers()
	if err != nil {
		return extensionSet{}, err
	}
	return extensionSet{wanted: wanted, actual: actual}, nil
}

// missingRequired returns the subset of required names the platform does
// not report.
func (e extensionSet) missingRequired() []string {
	return missingFrom(e.required, e.actual)
}

// resolve returns required plus whichever wanted names are actually
// available, deduplicated, required-first.
func (e extensionSet) resolve() []string {
	out := append([]string{}, e.required...)
	for _, w := range e.wanted {
		if contains(e.required, w) || !contains(e.actual, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func missingFrom(names, available []string) []string {
	var missing []string
	for _, n := range names {
		if !contains(available, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

func contains(list []string, v string) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func findRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties,
	typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {

	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) != 0 {
			props.MemoryTypes[i].Deref()
			if props.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
				return i, true
			}
		}
	}
	return 0, false
}
