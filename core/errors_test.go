package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			name: "op with wrapped error",
			err:  &StoreError{Op: "checkout.Submit", Err: ErrValidationFailed},
			want: "checkout.Submit: checkout validation failed",
		},
		{
			name: "op with id and wrapped error",
			err:  &StoreError{Op: "catalog.Get", ID: "p1", Err: ErrNotFound},
			want: "catalog.Get [p1]: resource not found",
		},
		{
			name: "message only",
			err:  &StoreError{Message: "something happened"},
			want: "something happened",
		},
		{
			name: "bare wrapped error",
			err:  &StoreError{Err: ErrRateLimited},
			want: "rate limited",
		},
		{
			name: "kind fallback",
			err:  &StoreError{Kind: "cart"},
			want: "cart error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoreError_Unwrap(t *testing.T) {
	err := NewStoreError("checkout.Submit", "checkout", ErrSubmitInProgress)

	if !errors.Is(err, ErrSubmitInProgress) {
		t.Error("errors.Is should see the wrapped sentinel")
	}

	// Works through additional wrapping layers too
	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, ErrSubmitInProgress) {
		t.Error("errors.Is should see through multiple layers")
	}

	var storeErr *StoreError
	if !errors.As(wrapped, &storeErr) {
		t.Fatal("errors.As should recover the StoreError")
	}
	if storeErr.Op != "checkout.Submit" {
		t.Errorf("Op = %q, want checkout.Submit", storeErr.Op)
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		classify func(error) bool
		want     bool
	}{
		{"rate limited is retryable", ErrRateLimited, IsRetryable, true},
		{"connection failure is retryable", ErrConnectionFailed, IsRetryable, true},
		{"validation is not retryable", ErrValidationFailed, IsRetryable, false},
		{"not found", ErrNotFound, IsNotFound, true},
		{"line not found", ErrLineNotFound, IsNotFound, true},
		{"unauthorized is auth", ErrUnauthorized, IsAuthError, true},
		{"session expired is auth", ErrSessionExpired, IsAuthError, true},
		{"not found is not auth", ErrNotFound, IsAuthError, false},
		{"invalid configuration", ErrInvalidConfiguration, IsConfigurationError, true},
		{"missing configuration", ErrMissingConfiguration, IsConfigurationError, true},
		{"nil error", nil, IsRetryable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Classifiers must see through StoreError wrapping
			err := tt.err
			if err != nil {
				err = NewStoreError("op", "kind", err)
			}
			if got := tt.classify(err); got != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
