package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"bare", New("CS-TEST-1000", "test message"), "[CS-TEST-1000] test message"},
		{"details", New("CS-TEST-1000", "test message").WithDetails("slug=a"), "[CS-TEST-1000] test message: slug=a"},
		{"cause", ErrStorage.WithDetailf("collection=%s", "x").WithCause(cause), "[CS-SYS-5001] storage error: collection=x: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := ErrBuildFailure.WithDetails("base=artworks").WithCause(errors.New("boom"))
	wrapped := fmt.Errorf("create: %w", err)

	if !errors.Is(wrapped, ErrBuildFailure) {
		t.Error("errors.Is(wrapped, ErrBuildFailure) = false, want true")
	}
	if errors.Is(wrapped, ErrDestroyFailure) {
		t.Error("errors.Is(wrapped, ErrDestroyFailure) = true, want false")
	}
	if errors.Is(err, errors.New("[CS-SNAP-5001] snapshot build failed")) {
		t.Error("plain error matched by message")
	}
}

func TestError_CopiesOnWith(t *testing.T) {
	derived := ErrSlugCollision.WithDetails("slug=x")
	if ErrSlugCollision.Details != "" {
		t.Error("WithDetails modified the sentinel")
	}
	if derived.Code != ErrSlugCollision.Code {
		t.Errorf("Code = %q, want %q", derived.Code, ErrSlugCollision.Code)
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrDestroyFailure.WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIsCodeAndCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrNotFound.WithDetails("slug=x"))

	if !IsCode(err, "CS-SYS-4040") {
		t.Error("IsCode(err, CS-SYS-4040) = false")
	}
	if !IsCode(err, "") {
		t.Error("IsCode(err, \"\") = false")
	}
	if IsCode(errors.New("x"), "") {
		t.Error("IsCode(plain, \"\") = true")
	}
	if got := Code(err); got != "CS-SYS-4040" {
		t.Errorf("Code() = %q, want CS-SYS-4040", got)
	}
	if got := Code(errors.New("x")); got != "" {
		t.Errorf("Code(plain) = %q, want empty", got)
	}
}
