package core

import (
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:    ErrInvalidRequest,
		Message: "missing session id",
	}

	expected := "invalid_request_error: missing session id"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestError_WithCode(t *testing.T) {
	err := &Error{
		Type:    ErrRateLimit,
		Message: "too many requests",
		Code:    "rate_limit_exceeded",
	}

	expected := "rate_limit_error: too many requests (code: rate_limit_exceeded)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("no active session")
	if err.Type != ErrNotFound {
		t.Errorf("Type = %v, want %v", err.Type, ErrNotFound)
	}
	if err.Message != "no active session" {
		t.Errorf("Message = %q, want %q", err.Message, "no active session")
	}
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("rate limit exceeded", 60)
	if err.Type != ErrRateLimit {
		t.Errorf("Type = %v, want %v", err.Type, ErrRateLimit)
	}
	if err.RetryAfter == nil || *err.RetryAfter != 60 {
		t.Errorf("RetryAfter = %v, want 60", err.RetryAfter)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("file exceeds maximum size", "size")
	if err.Type != ErrValidation {
		t.Errorf("Type = %v, want %v", err.Type, ErrValidation)
	}
	if err.Param != "size" {
		t.Errorf("Param = %q, want %q", err.Param, "size")
	}
}

func TestTypeFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{400, ErrInvalidRequest},
		{401, ErrAuthentication},
		{403, ErrAuthentication},
		{404, ErrNotFound},
		{422, ErrValidation},
		{429, ErrRateLimit},
		{529, ErrOverloaded},
		{500, ErrAPI},
		{502, ErrAPI},
	}

	for _, tt := range tests {
		if got := TypeFromStatus(tt.status); got != tt.want {
			t.Errorf("TypeFromStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestError_IsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrRateLimit, true},
		{ErrOverloaded, true},
		{ErrAPI, true},
		{ErrInvalidRequest, false},
		{ErrAuthentication, false},
		{ErrNotFound, false},
		{ErrValidation, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			err := &Error{Type: tt.errType, Message: "test"}
			if got := err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
