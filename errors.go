package ignis

import "fmt"

// Kind classifies a GraphError. KindSwapchainOutOfDate is the only
// recoverable kind; KindDeviceLost marks a fatal GPU failure, and every
// other kind is a programmer error the caller was expected to have prevented.
type Kind int

const (
	// KindSwapchainOutOfDate means the caller must resize before the next frame.
	KindSwapchainOutOfDate Kind = iota
	// KindDuplicateImport means ImportImage/ImportBuffer was called twice
	// for the same handle within one Builder.
	KindDuplicateImport
	// KindMissingExecute means AddRenderPass was never given an execute
	// callback before Build().
	KindMissingExecute
	// KindInvalidAccess means a pass's declared accesses are contradictory.
	KindInvalidAccess
	// KindDeviceLost marks a fatal GPU error.
	KindDeviceLost
)

func (k Kind) String() string {
	switch k {
	case KindSwapchainOutOfDate:
		return "swapchain out of date"
	case KindDuplicateImport:
		return "duplicate import"
	case KindMissingExecute:
		return "missing execute"
	case KindInvalidAccess:
		return "invalid access"
	case KindDeviceLost:
		return "device lost"
	default:
		return "unknown graph error"
	}
}

// GraphError is the single error type the frame graph and pacer return.
// Callers that only care about recoverability should compare Kind rather
// than inspect Error().
type GraphError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *GraphError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *GraphError) Unwrap() error { return e.Err }

func newGraphError(kind Kind, format string, args ...any) *GraphError {
	return &GraphError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func wrapGraphError(kind Kind, err error, format string, args ...any) *GraphError {
	return &GraphError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// IsRecoverable reports whether err is a swapchain-staleness GraphError.
func IsRecoverable(err error) bool {
	var ge *GraphError
	if ge, _ = err.(*GraphError); ge == nil {
		return false
	}
	return ge.Kind == KindSwapchainOutOfDate
}
