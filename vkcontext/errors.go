package vkcontext

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

func newError(ret vk.Result, context string) error {
	if ret == vk.Success {
		return nil
	}
	return fmt.Errorf("vulkan error %d: %s", ret, context)
}

// orPanic is for bootstrap and teardown code with no sensible recovery
// path.
func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}
