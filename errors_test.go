package ignis

import (
	"errors"
	"testing"
)

func TestIsRecoverableOnlyForSwapchainOutOfDate(t *testing.T) {
	recoverable := newGraphError(KindSwapchainOutOfDate, "stale")
	if !IsRecoverable(recoverable) {
		t.Error("KindSwapchainOutOfDate should be recoverable")
	}

	fatal := newGraphError(KindDeviceLost, "gone")
	if IsRecoverable(fatal) {
		t.Error("KindDeviceLost should not be recoverable")
	}

	if IsRecoverable(errors.New("plain error")) {
		t.Error("a non-GraphError should never be recoverable")
	}
}

func TestGraphErrorUnwrap(t *testing.T) {
	inner := errors.New("underlying vulkan failure")
	wrapped := wrapGraphError(KindDeviceLost, inner, "submitting frame")

	if !errors.Is(wrapped, inner) {
		t.Error("wrapGraphError should preserve the wrapped error for errors.Is")
	}
}

func TestGraphErrorMessage(t *testing.T) {
	e := newGraphError(KindDuplicateImport, "image %d already imported", 3)
	if e.Error() != "duplicate import: image 3 already imported" {
		t.Errorf("unexpected message: %q", e.Error())
	}
}
