package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "DecisionTreeRegressor.Fit")
		panic("index out of range")
	}

	err := fit()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "DecisionTreeRegressor.Fit" {
		t.Errorf("Operation = %q", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if got, want := panicErr.Error(), "panic in DecisionTreeRegressor.Fit: index out of range"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "Fit")
		return nil
	}
	if err := fit(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	fit := func() (err error) {
		defer Recover(&err, "Fit")
		err = originalErr
		panic("panic after error")
	}

	err := fit()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "panic in Fit") {
		t.Errorf("Error message should contain panic info: %s", err)
	}
	if !errors.Is(err, originalErr) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	sentinel := fmt.Errorf("function error")

	tests := []struct {
		name      string
		fn        func() error
		wantPanic bool
		wantErr   error
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return sentinel }, wantErr: sentinel},
		{name: "panic", fn: func() error { panic("boom") }, wantPanic: true},
		{name: "panic with error value", fn: func() error { panic(sentinel) }, wantPanic: true, wantErr: sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("grid cell", tt.fn)

			var panicErr *PanicError
			if got := errors.As(err, &panicErr); got != tt.wantPanic {
				t.Errorf("PanicError = %v, want %v (err=%v)", got, tt.wantPanic, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
			if tt.wantErr == nil && !tt.wantPanic && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
