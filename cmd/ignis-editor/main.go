// Command ignis-editor is a minimal editor shell: it opens a window, stands
// up a Vulkan context against it, and drives the frame graph through a
// frame pacer at whatever rate the platform delivers events. It renders a
// single full-screen clear pass, the smallest program that exercises every
// piece of the pipeline from window resize through swapchain presentation.
package main

import (
	"log"
	"runtime"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgfx/ignis"
	"github.com/kestrelgfx/ignis/internal/config"
	"github.com/kestrelgfx/ignis/internal/enginelog"
	"github.com/kestrelgfx/ignis/vkcontext"
)

func init() {
	// GLFW and the Vulkan loader both expect to be driven from the thread
	// that created the window.
	runtime.LockOSThread()
}

func main() {
	logger := enginelog.New(logWriter{})

	// pacer is resolved after NewPacer returns; the callback only fires on
	// user resize events, which cannot happen before then.
	var pacer *ignis.Pacer
	window, err := vkcontext.NewWindow(1280, 720, "ignis editor", func(width, height uint32) {
		if pacer != nil {
			pacer.OnResize(width, height)
		}
	})
	if err != nil {
		log.Fatalf("creating window: %v", err)
	}
	defer window.Destroy()

	ctx, err := vkcontext.New(config.DefaultGPUContextConfig("ignis-editor"), window, logger)
	if err != nil {
		log.Fatalf("creating vulkan context: %v", err)
	}
	defer ctx.Destroy()

	pacer, err = ignis.NewPacer(ctx, config.DefaultPacerConfig(), logger)
	if err != nil {
		log.Fatalf("creating frame pacer: %v", err)
	}
	defer pacer.Close()

	for !window.ShouldClose() {
		vkcontext.PollEvents()

		handle, err := pacer.Begin()
		if err != nil {
			if ignis.IsRecoverable(err) {
				width, height := window.FramebufferSize()
				pacer.OnResize(uint32(width), uint32(height))
				continue
			}
			log.Fatalf("beginning frame: %v", err)
		}

		handle.Builder.AddRenderPass("clear").
			SetColorAttachment(ignis.Attachment{
				Image:      handle.SwapchainImageID,
				LoadOp:     vk.AttachmentLoadOpClear,
				StoreOp:    vk.AttachmentStoreOpStore,
				ClearValue: vk.NewClearValue([]float32{0.02, 0.02, 0.05, 1.0}),
			}).
			Execute(func(cmd vk.CommandBuffer) {})

		exec, err := handle.Builder.Build()
		if err != nil {
			log.Fatalf("building frame graph: %v", err)
		}

		ok, err := pacer.End(exec)
		if err != nil {
			log.Fatalf("ending frame: %v", err)
		}
		if !ok {
			width, height := window.FramebufferSize()
			pacer.OnResize(uint32(width), uint32(height))
		}
	}
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Print(string(p))
	return len(p), nil
}
