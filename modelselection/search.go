package modelselection

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/core/parallel"
	"github.com/YuminosukeSato/scorecast/metrics"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// CVResult is the cross-validation outcome of one grid combination.
type CVResult struct {
	Params     model.Params
	FoldScores []float64
	MeanScore  float64
	// Err is set when any fold failed; MeanScore is then NaN.
	Err error
}

// SearchOption configures a GridSearchCV.
type SearchOption func(*GridSearchCV)

// WithCV sets the fold splitter. Default: 3 shuffled folds, seed 42.
func WithCV(kf *KFold) SearchOption {
	return func(gs *GridSearchCV) { gs.cv = kf }
}

// WithWorkers bounds the combinations evaluated concurrently. 0 uses one
// per CPU.
func WithWorkers(n int) SearchOption {
	return func(gs *GridSearchCV) { gs.workers = n }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) SearchOption {
	return func(gs *GridSearchCV) { gs.logger = logger }
}

// GridSearchCV evaluates every combination of a ParamGrid by K-fold R² and
// refits the best one on the full data.
//
// The best combination is the first, in Combinations order, with the
// highest mean fold R². Combinations run concurrently but results are kept
// by index, so the outcome does not depend on scheduling.
type GridSearchCV struct {
	newEstimator func() model.Regressor
	grid         ParamGrid
	cv           *KFold
	workers      int
	logger       log.Logger

	Results       []CVResult
	BestIndex     int
	BestParams    model.Params
	BestScore     float64
	BestEstimator model.Regressor
}

// NewGridSearchCV creates a search. newEstimator must return a fresh,
// unfitted estimator on every call.
func NewGridSearchCV(newEstimator func() model.Regressor, grid ParamGrid, opts ...SearchOption) *GridSearchCV {
	gs := &GridSearchCV{
		newEstimator: newEstimator,
		grid:         grid,
		cv:           NewKFold(3, true, 42),
		logger:       log.Nop(),
		BestIndex:    -1,
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// Fit runs the search. It fails when the grid is invalid, the data cannot be
// folded, ctx is cancelled, or every combination fails.
func (gs *GridSearchCV) Fit(ctx context.Context, X *mat.Dense, y *mat.VecDense) error {
	if err := gs.grid.Validate(); err != nil {
		return err
	}
	n, _ := X.Dims()
	if y.Len() != n {
		return errors.NewDimensionError("GridSearchCV.Fit", n, y.Len(), 0)
	}
	folds, err := gs.cv.Split(n)
	if err != nil {
		return err
	}

	combos := gs.grid.Combinations()
	start := time.Now()
	gs.Results = parallel.Map(len(combos), gs.workers, func(i int) CVResult {
		return gs.evaluate(ctx, combos[i], folds, X, y)
	})
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "grid search cancelled")
	}

	gs.BestIndex = -1
	var firstErr error
	for i, res := range gs.Results {
		if res.Err != nil {
			gs.logger.Warn("grid combination failed", res.Err,
				log.HyperParamsKey, res.Params,
			)
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		gs.logger.Debug("grid combination evaluated",
			log.HyperParamsKey, res.Params,
			log.R2ScoreKey, res.MeanScore,
		)
		if gs.BestIndex < 0 || res.MeanScore > gs.BestScore {
			gs.BestIndex = i
			gs.BestScore = res.MeanScore
		}
	}
	if gs.BestIndex < 0 {
		return errors.NewModelError("GridSearchCV.Fit", "every grid combination failed", firstErr)
	}
	gs.BestParams = gs.Results[gs.BestIndex].Params.Clone()

	best := gs.newEstimator()
	err = errors.SafeExecute("GridSearchCV.refit", func() error {
		if err := best.SetParams(gs.BestParams); err != nil {
			return err
		}
		return best.Fit(X, y)
	})
	if err != nil {
		return errors.Wrap(err, "refitting best combination")
	}
	gs.BestEstimator = best

	gs.logger.Info("grid search complete",
		log.HyperParamsKey, gs.BestParams,
		log.R2ScoreKey, gs.BestScore,
		log.DurationMsKey, time.Since(start),
	)
	return nil
}

func (gs *GridSearchCV) evaluate(ctx context.Context, params model.Params, folds []Fold, X *mat.Dense, y *mat.VecDense) CVResult {
	res := CVResult{Params: params, MeanScore: math.NaN()}
	scores := make([]float64, 0, len(folds))
	for k, fold := range folds {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		var score float64
		err := errors.SafeExecute("GridSearchCV.fold", func() error {
			est := gs.newEstimator()
			if err := est.SetParams(params); err != nil {
				return err
			}
			if err := est.Fit(TakeRows(X, fold.TrainIndices), TakeVec(y, fold.TrainIndices)); err != nil {
				return err
			}
			pred, err := est.Predict(TakeRows(X, fold.TestIndices))
			if err != nil {
				return err
			}
			score, err = metrics.R2Score(TakeVec(y, fold.TestIndices), pred)
			return err
		})
		if err != nil {
			res.Err = errors.Wrapf(err, "fold %d", k)
			return res
		}
		scores = append(scores, score)
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	res.FoldScores = scores
	res.MeanScore = sum / float64(len(scores))
	return res
}

// TakeRows copies the rows of X at indices into a new matrix.
func TakeRows(X mat.Matrix, indices []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

// TakeVec copies the elements of v at indices into a new vector.
func TakeVec(v mat.Vector, indices []int) *mat.VecDense {
	out := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		out.SetVec(i, v.AtVec(idx))
	}
	return out
}
