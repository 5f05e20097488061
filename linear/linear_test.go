package linear

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	_ model.Regressor = (*LinearRegression)(nil)
	_ model.Regressor = (*Ridge)(nil)
	_ model.Regressor = (*Lasso)(nil)
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestLinearRegression_Fit(t *testing.T) {
	tests := []struct {
		name      string
		X         *mat.Dense
		y         *mat.VecDense
		coef      []float64
		intercept float64
	}{
		{
			name:      "y = 2x + 1",
			X:         mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5}),
			y:         mat.NewVecDense(5, []float64{3, 5, 7, 9, 11}),
			coef:      []float64{2},
			intercept: 1,
		},
		{
			name:      "y = x1 - 3x2 + 4",
			X:         mat.NewDense(4, 2, []float64{0, 0, 1, 0, 0, 1, 2, 3}),
			y:         mat.NewVecDense(4, []float64{4, 5, 1, -3}),
			coef:      []float64{1, -3},
			intercept: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			if err := lr.Fit(tt.X, tt.y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			for j, want := range tt.coef {
				if got := lr.Coef()[j]; !almostEqual(got, want, 1e-9) {
					t.Errorf("coef[%d] = %v, want %v", j, got, want)
				}
			}
			if !almostEqual(lr.Intercept(), tt.intercept, 1e-9) {
				t.Errorf("intercept = %v, want %v", lr.Intercept(), tt.intercept)
			}
			score, err := lr.Score(tt.X, tt.y)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if !almostEqual(score, 1, 1e-9) {
				t.Errorf("Score() = %v, want 1", score)
			}
		})
	}
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// Two one-hot columns that always sum to one are collinear with the
	// intercept. The minimum-norm solution splits the effect evenly.
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
		0, 1,
	})
	y := mat.NewVecDense(4, []float64{10, 20, 10, 20})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Rank() != 1 {
		t.Errorf("Rank() = %d, want 1", lr.Rank())
	}
	coef := lr.Coef()
	if !almostEqual(coef[0], -5, 1e-9) || !almostEqual(coef[1], 5, 1e-9) {
		t.Errorf("coef = %v, want [-5 5]", coef)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		if !almostEqual(pred.AtVec(i), y.AtVec(i), 1e-9) {
			t.Errorf("pred[%d] = %v, want %v", i, pred.AtVec(i), y.AtVec(i))
		}
	}
}

func TestLinearRegression_ConstantFeatures(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{7, 7, 7})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Coef()[0] != 0 {
		t.Errorf("coef = %v, want 0", lr.Coef()[0])
	}
	if !almostEqual(lr.Intercept(), 2, 1e-12) {
		t.Errorf("intercept = %v, want 2", lr.Intercept())
	}
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{2, 4, 6})

	lr := NewLinearRegression(WithFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Intercept() != 0 {
		t.Errorf("intercept = %v, want 0", lr.Intercept())
	}
	if !almostEqual(lr.Coef()[0], 2, 1e-12) {
		t.Errorf("coef = %v, want 2", lr.Coef()[0])
	}
}

func TestFit_Errors(t *testing.T) {
	models := map[string]func() model.Regressor{
		"LinearRegression": func() model.Regressor { return NewLinearRegression() },
		"Ridge":            func() model.Regressor { return NewRidge() },
		"Lasso":            func() model.Regressor { return NewLasso() },
	}

	for name, newModel := range models {
		t.Run(name+"/row mismatch", func(t *testing.T) {
			err := newModel().Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewVecDense(2, []float64{1, 2}))
			var dimErr *errors.DimensionError
			if !errors.As(err, &dimErr) {
				t.Fatalf("expected DimensionError, got %v", err)
			}
		})
		t.Run(name+"/NaN input", func(t *testing.T) {
			err := newModel().Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}), mat.NewVecDense(2, []float64{1, 2}))
			var numErr *errors.NumericalInstabilityError
			if !errors.As(err, &numErr) {
				t.Fatalf("expected NumericalInstabilityError, got %v", err)
			}
		})
		t.Run(name+"/predict before fit", func(t *testing.T) {
			_, err := newModel().Predict(mat.NewDense(1, 1, []float64{1}))
			var nfErr *errors.NotFittedError
			if !errors.As(err, &nfErr) {
				t.Fatalf("expected NotFittedError, got %v", err)
			}
		})
		t.Run(name+"/feature mismatch", func(t *testing.T) {
			m := newModel()
			if err := m.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{1, 2, 4})); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			_, err := m.Predict(mat.NewDense(1, 2, []float64{1, 2}))
			var dimErr *errors.DimensionError
			if !errors.As(err, &dimErr) {
				t.Fatalf("expected DimensionError, got %v", err)
			}
		})
	}
}

func TestRidge_Shrinkage(t *testing.T) {
	X, y := createBenchmarkData(200, 3)

	ols := NewLinearRegression()
	if err := ols.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	prevNorm := math.Inf(1)
	for _, alpha := range []float64{0.01, 1, 100, 10000} {
		r := NewRidge(WithAlpha(alpha))
		if err := r.Fit(X, y); err != nil {
			t.Fatalf("alpha=%v: Fit() error = %v", alpha, err)
		}
		norm := 0.0
		for _, c := range r.Coef() {
			norm += c * c
		}
		if norm >= prevNorm {
			t.Errorf("alpha=%v: coef norm %v did not shrink below %v", alpha, norm, prevNorm)
		}
		prevNorm = norm
	}

	small := NewRidge(WithAlpha(1e-8))
	if err := small.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for j := range ols.Coef() {
		if !almostEqual(small.Coef()[j], ols.Coef()[j], 1e-6) {
			t.Errorf("coef[%d]: ridge %v, ols %v", j, small.Coef()[j], ols.Coef()[j])
		}
	}
}

func TestRidge_RejectsNonPositiveAlpha(t *testing.T) {
	r := NewRidge()
	if err := r.SetParams(model.Params{"alpha": 0}); err == nil {
		t.Error("SetParams(alpha=0) should fail")
	}
	if err := NewRidge(WithAlpha(-1)).Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewVecDense(2, []float64{1, 2})); err == nil {
		t.Error("Fit with negative alpha should fail")
	}
}

func TestLasso_Sparsity(t *testing.T) {
	// Only the first feature carries signal.
	X, _ := createBenchmarkData(200, 4)
	y := mat.NewVecDense(200, nil)
	for i := 0; i < 200; i++ {
		y.SetVec(i, 3*X.At(i, 0)+1)
	}

	l := NewLasso(WithAlpha(0.1))
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	coef := l.Coef()
	if coef[0] <= 2 || coef[0] >= 3 {
		t.Errorf("coef[0] = %v, want shrunk toward but below 3", coef[0])
	}
	for j := 1; j < len(coef); j++ {
		if coef[j] != 0 {
			t.Errorf("coef[%d] = %v, want exactly 0", j, coef[j])
		}
	}
	if l.NIter() >= 1000 {
		t.Errorf("NIter() = %d, expected early convergence", l.NIter())
	}
}

func TestLasso_AlphaZeroMatchesOLS(t *testing.T) {
	X, y := createBenchmarkData(100, 2)

	ols := NewLinearRegression()
	if err := ols.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	l := NewLasso(WithAlpha(0), WithTol(1e-10), WithMaxIter(10000))
	if err := l.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for j := range ols.Coef() {
		if !almostEqual(l.Coef()[j], ols.Coef()[j], 1e-6) {
			t.Errorf("coef[%d]: lasso %v, ols %v", j, l.Coef()[j], ols.Coef()[j])
		}
	}
}

func TestLasso_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	X, y := createBenchmarkData(100, 5)
	l := NewLasso(WithAlpha(1e-4), WithMaxIter(1), WithTol(1e-12))
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As(warnings[0], &cw) {
		t.Fatalf("expected ConvergenceWarning, got %T", warnings[0])
	}
	if cw.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", cw.Iterations)
	}
}

func TestLasso_LargeAlphaStopsAtZero(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	X, y := createBenchmarkData(100, 3)
	l := NewLasso(WithAlpha(1e6))
	if err := l.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	for j, c := range l.Coef() {
		if c != 0 {
			t.Errorf("coef[%d] = %v, want 0", j, c)
		}
	}
	if l.NIter() != 1 {
		t.Errorf("NIter() = %d, want 1", l.NIter())
	}
	if len(warnings) != 0 {
		t.Errorf("got %d warnings, want none", len(warnings))
	}
}

func TestParams(t *testing.T) {
	l := NewLasso()
	if err := l.SetParams(model.Params{"alpha": 0.5, "max_iter": 200}); err != nil {
		t.Fatal(err)
	}
	p := l.GetParams()
	if p["alpha"] != 0.5 || p.Int("max_iter", 0) != 200 {
		t.Errorf("GetParams() = %v", p)
	}
	if err := l.SetParams(model.Params{"gamma": 1}); err == nil {
		t.Error("unknown parameter should be rejected")
	}
	if err := NewLinearRegression().SetParams(model.Params{"alpha": 1}); err == nil {
		t.Error("LinearRegression should reject alpha")
	}
}

func TestWeights_RoundTrip(t *testing.T) {
	X, y := createBenchmarkData(50, 3)
	Xtest, _ := createBenchmarkData(10, 3)

	tests := []struct {
		name   string
		fitted model.Regressor
		fresh  model.Regressor
	}{
		{"LinearRegression", NewLinearRegression(), NewLinearRegression()},
		{"Ridge", NewRidge(WithAlpha(2.5)), NewRidge()},
		{"Lasso", NewLasso(WithAlpha(0.05)), NewLasso()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fitted.Fit(X, y); err != nil {
				t.Fatal(err)
			}
			w, err := tt.fitted.ExportWeights()
			if err != nil {
				t.Fatalf("ExportWeights() error = %v", err)
			}
			if err := tt.fresh.ImportWeights(w); err != nil {
				t.Fatalf("ImportWeights() error = %v", err)
			}

			want, _ := tt.fitted.Predict(Xtest)
			got, err := tt.fresh.Predict(Xtest)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			for i := 0; i < want.Len(); i++ {
				if got.AtVec(i) != want.AtVec(i) {
					t.Errorf("pred[%d] = %v, want %v", i, got.AtVec(i), want.AtVec(i))
				}
			}
			for k, v := range tt.fitted.GetParams() {
				if tt.fresh.GetParams()[k] != v {
					t.Errorf("param %s = %v, want %v", k, tt.fresh.GetParams()[k], v)
				}
			}
		})
	}
}

func TestImportWeights_WrongType(t *testing.T) {
	lr := NewLinearRegression()
	if err := lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	w, err := lr.ExportWeights()
	if err != nil {
		t.Fatal(err)
	}
	if err := NewRidge().ImportWeights(w); err == nil {
		t.Error("Ridge.ImportWeights should reject LinearRegression weights")
	}
}
