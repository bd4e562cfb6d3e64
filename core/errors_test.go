package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsNotFoundError_WithExactError(t *testing.T) {
	if !IsNotFoundError(ErrNotFound) {
		t.Error("expected true for ErrNotFound")
	}
}

func TestIsNotFoundError_WithWrappedError(t *testing.T) {
	err := fmt.Errorf("asset main.js: %w", ErrNotFound)
	if !IsNotFoundError(err) {
		t.Error("expected true for wrapped ErrNotFound")
	}
}

func TestIsNotFoundError_WithDifferentError(t *testing.T) {
	if IsNotFoundError(errors.New("pagebridge: not found")) {
		t.Error("expected false for an unrelated error with the same text")
	}
}

func TestIsNotFoundError_WithNil(t *testing.T) {
	if IsNotFoundError(nil) {
		t.Error("expected false for nil error")
	}
}

func TestValidationErrorsMessageIsSorted(t *testing.T) {
	err := ValidationErrors{"name": "required", "email": "invalid"}
	want := "pagebridge: validation failed: email: invalid; name: required"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestVersionConflictErrorUnwrapsThroughAs(t *testing.T) {
	err := fmt.Errorf("render: %w", &VersionConflictError{URL: "http://example.com/about"})

	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatal("expected errors.As to find the conflict")
	}
	if !strings.Contains(conflict.Error(), "http://example.com/about") {
		t.Errorf("unexpected message %q", conflict.Error())
	}
}
