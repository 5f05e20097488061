package errors

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "scorecast: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "scorecast: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// stack trace is attached
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	tests := []struct {
		axis int
		want string
	}{
		{0, "scorecast: Predict: dimension mismatch on axis 0 (rows). Expected 10, got 8"},
		{1, "scorecast: Predict: dimension mismatch on axis 1 (features). Expected 10, got 8"},
	}
	for _, tt := range tests {
		err := NewDimensionError("Predict", 10, 8, tt.axis)
		if err.Error() != tt.want {
			t.Errorf("Error() = %v, want %v", err.Error(), tt.want)
		}
		var dimErr *DimensionError
		if !As(err, &dimErr) {
			t.Error("Error should be castable to *DimensionError")
		}
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Ridge", "Predict")
	want := "scorecast: Ridge: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var nf *NotFittedError
	if !As(err, &nf) || nf.ModelName != "Ridge" {
		t.Errorf("As(*NotFittedError) failed: %v", err)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrSingularMatrix, "solving normal equations")
	if !Is(wrapped, ErrSingularMatrix) {
		t.Error("Is should find the sentinel through Wrap")
	}
	if got := wrapped.Error(); got != "solving normal equations: singular matrix" {
		t.Errorf("Error() = %q", got)
	}

	wrappedf := Wrapf(ErrEmptyData, "reading %s", "train.csv")
	if !Is(wrappedf, ErrEmptyData) {
		t.Error("Is should find the sentinel through Wrapf")
	}
	if Is(wrappedf, ErrChecksumMismatch) {
		t.Error("Is matched an unrelated sentinel")
	}
}

func TestWarn(t *testing.T) {
	var (
		mu  sync.Mutex
		got []error
	)
	SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	defer SetWarningHandler(func(error) {})

	Warn(NewConvergenceWarning("Lasso", 1000, ""))
	Warn(NewUndefinedMetricWarning("r2_score", "constant y_true", 0))

	if len(got) != 2 {
		t.Fatalf("handler received %d warnings, want 2", len(got))
	}
	if !strings.Contains(got[0].Error(), "Lasso failed to converge after 1000 iterations") {
		t.Errorf("unexpected convergence message: %v", got[0])
	}
	if !strings.Contains(got[1].Error(), "'r2_score' is ill-defined") {
		t.Errorf("unexpected metric message: %v", got[1])
	}
}

func TestWarn_ZerologFuncTakesPrecedence(t *testing.T) {
	handlerCalled := false
	var zlCalled error
	SetWarningHandler(func(error) { handlerCalled = true })
	SetZerologWarnFunc(func(w error) { zlCalled = w })
	defer func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	}()

	w := NewConvergenceWarning("Lasso", 10, "did not converge")
	Warn(w)

	if handlerCalled {
		t.Error("fallback handler should not run when a zerolog func is set")
	}
	if zlCalled != w {
		t.Errorf("zerolog func got %v, want %v", zlCalled, w)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{"finite", []float64{1, 2, 3}, false},
		{"nan", []float64{1, math.NaN()}, true},
		{"inf", []float64{math.Inf(-1)}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckNumericalStability("Lasso.Fit", tt.values, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var ni *NumericalInstabilityError
			if tt.wantErr && (!As(err, &ni) || ni.Iteration != 3) {
				t.Errorf("expected NumericalInstabilityError at iteration 3, got %v", err)
			}
		})
	}
}

func TestCheckMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("coef", m, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Set(1, 0, math.NaN())
	if err := CheckMatrix("coef", m, 0); err == nil {
		t.Fatal("expected error for NaN element")
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
	if got := SafeDivide(6, 3); got != 2 {
		t.Errorf("SafeDivide(6, 3) = %v, want 2", got)
	}
}
