package errors

import (
	"errors"
	"net"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      New(CodeNotFound, "setting not found"),
			expected: "[NOT_FOUND] setting not found",
		},
		{
			name:     "with cause",
			err:      Wrap(errors.New("connection refused"), CodeNetworkError, "failed to load config"),
			expected: "[NETWORK_ERROR] failed to load config: connection refused",
		},
		{
			name:     "formatted message",
			err:      Newf(CodeConflict, "Setting name '%s' conflicts with another similarly named setting", "foo"),
			expected: "[CONFLICT] Setting name 'foo' conflicts with another similarly named setting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := New(CodeConflict, "a conflicts")
	err2 := New(CodeConflict, "b conflicts")
	err3 := New(CodeValidationError, "bad value")

	// 相同错误码应该匹配
	if !errors.Is(err1, err2) {
		t.Error("errors with same code should match")
	}

	// 不同错误码不应该匹配
	if errors.Is(err1, err3) {
		t.Error("errors with different code should not match")
	}

	// 使用哨兵错误
	if !errors.Is(err1, ErrConflict) {
		t.Error("should match sentinel error with same code")
	}
	if !errors.Is(Wrap(err3, CodeValidationError, "outer"), ErrValidation) {
		t.Error("wrapped error should match sentinel")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	wrapped := Wrap(cause, CodeInternal, "wrapped")

	if errors.Unwrap(wrapped) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(CodeNetworkError, "request failed").
		WithDetail("status", "502").
		WithDetail("path", "config/")

	if err.Detail("status") != "502" {
		t.Error("detail 'status' should be '502'")
	}
	if err.Detail("path") != "config/" {
		t.Error("detail 'path' should be 'config/'")
	}
	if err.Detail("missing") != "" {
		t.Error("missing detail should be empty")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"custom error", New(CodeNotFound, "not found"), CodeNotFound},
		{"wrapped error", Wrap(errors.New("disk"), CodeStorageError, "storage"), CodeStorageError},
		{"standard error", errors.New("standard"), CodeInternal},
		{"nil error", nil, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeNotFound, "not found")

	if !IsCode(err, CodeNotFound) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, CodeUnauthorized) {
		t.Error("IsCode should return false for non-matching code")
	}
}

func TestIsTransport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"timeout", ErrTimeout, true},
		{"network error", ErrNetworkError, true},
		{"not connected", ErrNotConnected, true},
		{"net.OpError", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"validation", ErrValidation, false},
		{"conflict", ErrConflict, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransport(tt.err); got != tt.expected {
				t.Errorf("IsTransport() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message(New(CodeValidationError, "do better")); got != "do better" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(Wrap(errors.New("eof"), CodeNetworkError, "read failed")); got != "read failed: eof" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
}
