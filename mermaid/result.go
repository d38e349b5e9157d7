// ABOUTME: Tagged render outcome type and the failure taxonomy for the render pipeline.
// ABOUTME: Exactly one of image bytes or a classified RenderError is populated per Result.
package mermaid

import "errors"

// ErrEngineStart is the one fatal condition: the headless browser process
// could not be launched. Start wraps the underlying cause with this sentinel
// so callers can errors.Is it at process startup.
var ErrEngineStart = errors.New("mermaid: browser failed to start")

// ErrKind classifies render failures. Every failure mode except a failed
// Start is captured inside Render and returned as data, never as a Go error.
type ErrKind int

const (
	// KindNotInitialized means Render was called before a successful Start.
	KindNotInitialized ErrKind = iota
	// KindTimeout means the layout script never signaled within the deadline.
	KindTimeout
	// KindLayout means the layout library rejected the diagram text. The
	// message carries the library's own diagnostic.
	KindLayout
	// KindOutputMissing means the rendered SVG or its geometry could not be
	// located. This is an environment fault, not a user syntax error.
	KindOutputMissing
	// KindFault is any other runtime fault during the pipeline.
	KindFault
)

// String returns a short machine-friendly name for the kind, used in logs.
func (k ErrKind) String() string {
	switch k {
	case KindNotInitialized:
		return "not_initialized"
	case KindTimeout:
		return "timeout"
	case KindLayout:
		return "layout_error"
	case KindOutputMissing:
		return "output_missing"
	case KindFault:
		return "fault"
	default:
		return "unknown"
	}
}

// RenderError is a classified, user-presentable render failure.
type RenderError struct {
	Kind    ErrKind
	Message string
}

// Error returns the human-readable message. The adapter forwards this text
// to the user verbatim.
func (e *RenderError) Error() string {
	return e.Message
}

// Cacheable reports whether the failure is deterministic for identical
// input. Only layout errors qualify: the library will reject the same text
// the same way every time. Timeouts and environment faults are transient
// and must be retried on the next identical request.
func (e *RenderError) Cacheable() bool {
	return e.Kind == KindLayout
}

// Result is the tagged outcome of a render: either Image or Err is set,
// never both. Results are immutable once produced and may be shared between
// concurrent callers via the cache.
type Result struct {
	Image []byte
	Err   *RenderError
}

// OK reports whether the render produced an image.
func (r Result) OK() bool {
	return r.Err == nil
}

// Success builds the success variant.
func Success(image []byte) Result {
	return Result{Image: image}
}

// Failure builds the failure variant with a classified error.
func Failure(kind ErrKind, message string) Result {
	return Result{Err: &RenderError{Kind: kind, Message: message}}
}
