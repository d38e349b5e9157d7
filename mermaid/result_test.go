// ABOUTME: Tests for the tagged Result type and the failure taxonomy.
// ABOUTME: Exactly one variant populated; only layout errors are cacheable.
package mermaid

import "testing"

func TestResult_ExactlyOneVariant(t *testing.T) {
	ok := Success([]byte{1})
	if !ok.OK() || ok.Image == nil || ok.Err != nil {
		t.Errorf("Success variant malformed: %+v", ok)
	}

	bad := Failure(KindLayout, "Mermaid error: nope")
	if bad.OK() || bad.Image != nil || bad.Err == nil {
		t.Errorf("Failure variant malformed: %+v", bad)
	}
}

func TestRenderError_ErrorReturnsMessage(t *testing.T) {
	e := &RenderError{Kind: KindTimeout, Message: "Failed to render diagram: timeout"}
	if e.Error() != e.Message {
		t.Errorf("Error() = %q, want %q", e.Error(), e.Message)
	}
}

func TestRenderError_OnlyLayoutIsCacheable(t *testing.T) {
	cases := map[ErrKind]bool{
		KindNotInitialized: false,
		KindTimeout:        false,
		KindLayout:         true,
		KindOutputMissing:  false,
		KindFault:          false,
	}
	for kind, want := range cases {
		e := &RenderError{Kind: kind, Message: "x"}
		if e.Cacheable() != want {
			t.Errorf("Cacheable(%s) = %v, want %v", kind, e.Cacheable(), want)
		}
	}
}

func TestErrKind_String(t *testing.T) {
	cases := map[ErrKind]string{
		KindNotInitialized: "not_initialized",
		KindTimeout:        "timeout",
		KindLayout:         "layout_error",
		KindOutputMissing:  "output_missing",
		KindFault:          "fault",
		ErrKind(99):        "unknown",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("String(%d) = %q, want %q", int(kind), kind.String(), want)
		}
	}
}
