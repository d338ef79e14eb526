package errors

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
)

func TestNewSaveError(t *testing.T) {
	cause := &os.PathError{Op: "mkdir", Path: "/root/x", Err: os.ErrPermission}
	err := NewSaveError(cause)

	if err.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", err.StatusCode)
	}
	if !strings.Contains(err.Error(), "save failed") {
		t.Errorf("Expected message to contain 'save failed', got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected message to carry the cause, got %q", err.Error())
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("Expected errors.Is to reach the wrapped cause")
	}
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest},
		{"save failed", NewSaveError(errors.New("disk full")), http.StatusInternalServerError},
		{"unavailable", NewUnavailableError("down", nil), http.StatusServiceUnavailable},
		{"wrapped validation", fmt.Errorf("outer: %w", NewValidationError("bad", nil)), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetStatusCode(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("context: %w", NewSaveError(errors.New("x")))
	if !IsType(err, ErrorTypeSaveFailed) {
		t.Error("Expected wrapped save error to match ErrorTypeSaveFailed")
	}
	if IsType(err, ErrorTypeValidation) {
		t.Error("Did not expect save error to match ErrorTypeValidation")
	}
	if IsType(errors.New("plain"), ErrorTypeInternal) {
		t.Error("Did not expect plain error to match any type")
	}
}
