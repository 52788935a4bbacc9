package vkcontext

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window wraps the GLFW window and the Vulkan surface created against it.
type Window struct {
	handle  *glfw.Window
	surface vk.Surface
}

// NewWindow creates a GLFW window with no client API (Vulkan manages
// presentation itself) and wires it up for resize notification via onResize.
func NewWindow(width, height int, title string, onResize func(width, height uint32)) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("vkcontext: initializing glfw: %w", err)
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vkcontext: initializing vulkan loader: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: creating window: %w", err)
	}

	w := &Window{handle: handle}
	if onResize != nil {
		handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
			if width == 0 || height == 0 {
				return
			}
			onResize(uint32(width), uint32(height))
		})
	}
	return w, nil
}

// CreateSurface creates the Vulkan surface for this window against instance
// and caches it, matching display.go's GetVulkanSurface.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return nil, fmt.Errorf("vkcontext: creating window surface: %w", err)
	}
	w.surface = vk.SurfaceFromPointer(surfacePtr)
	return w.surface, nil
}

// FramebufferSize reports the window's current drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.handle.GetFramebufferSize()
}

// ShouldClose reports whether the user requested the window be closed.
func (w *Window) ShouldClose() bool {
	return w.handle.ShouldClose()
}

// PollEvents pumps the GLFW event queue.
func PollEvents() {
	glfw.PollEvents()
}

// Destroy destroys the underlying GLFW window. It does not terminate GLFW
// itself, since an application may own more than one window.
func (w *Window) Destroy() {
	w.handle.Destroy()
}
