// Package transform fits the column transformer on the train split and
// produces the model-ready train and test matrices.
package transform

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"github.com/YuminosukeSato/scorecast/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Result holds the transformed splits. Train and Test carry the target as
// their last column.
type Result struct {
	Train            *mat.Dense
	Test             *mat.Dense
	Preprocessor     *preprocessing.ColumnTransformer
	FeatureNames     []string
	PreprocessorPath string
}

// SplitXY separates the feature block from the trailing target column.
func SplitXY(M *mat.Dense) (*mat.Dense, *mat.VecDense) {
	r, c := M.Dims()
	X := M.Slice(0, r, 0, c-1).(*mat.Dense)
	y := mat.VecDenseCopyOf(M.ColView(c - 1))
	return X, y
}

// Transformer runs the transformation stage.
type Transformer struct {
	target           string
	numeric          []string
	categorical      []string
	scaleCategorical bool
	store            *artifact.Store
	runID            string
	logger           log.Logger
}

// New creates a Transformer from the pipeline configuration.
func New(cfg config.Config, store *artifact.Store, runID string, logger log.Logger) *Transformer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Transformer{
		target:           cfg.TargetColumn,
		numeric:          cfg.NumericColumns,
		categorical:      cfg.CategoricalColumns,
		scaleCategorical: cfg.ScaleCategoricalEnabled(),
		store:            store,
		runID:            runID,
		logger: logger.With(
			log.StageKey, string(errors.StageTransformation),
			log.RunIDKey, runID,
		),
	}
}

// Run loads both splits, fits the preprocessor on the train features only,
// transforms both splits and persists the fitted preprocessor.
func (t *Transformer) Run(ctx context.Context, trainPath, testPath string) (*Result, error) {
	start := time.Now()

	train, err := dataset.ReadCSVFile(trainPath)
	if err != nil {
		return nil, errors.NewTransformationError("", "reading train split", err)
	}
	test, err := dataset.ReadCSVFile(testPath)
	if err != nil {
		return nil, errors.NewTransformationError("", "reading test split", err)
	}
	if train.NRows() == 0 || test.NRows() == 0 {
		return nil, errors.NewTransformationError("", "empty split", errors.ErrEmptyData)
	}

	yTrain, err := t.targetColumn(train)
	if err != nil {
		return nil, err
	}
	yTest, err := t.targetColumn(test)
	if err != nil {
		return nil, err
	}

	numeric, categorical, err := t.schema(train)
	if err != nil {
		return nil, err
	}
	t.logger.Info("feature schema resolved",
		"numeric_columns", numeric,
		"categorical_columns", categorical,
	)

	if err := ctx.Err(); err != nil {
		return nil, errors.NewTransformationError("", "cancelled", err)
	}

	ct := preprocessing.NewColumnTransformer(numeric, categorical,
		preprocessing.WithScaleCategorical(t.scaleCategorical),
		preprocessing.WithLogger(t.logger),
	)
	if err := ct.Fit(train); err != nil {
		return nil, columnFailure("fitting preprocessor", err)
	}
	Xtrain, err := ct.Transform(train)
	if err != nil {
		return nil, columnFailure("transforming train split", err)
	}
	Xtest, err := ct.Transform(test)
	if err != nil {
		return nil, columnFailure("transforming test split", err)
	}

	state, err := ct.ExportState()
	if err != nil {
		return nil, errors.NewTransformationError("", "exporting preprocessor", err)
	}
	if err := t.store.SaveEnvelope(artifact.PreprocessorFile, model.KindPreprocessor, t.runID, state); err != nil {
		return nil, errors.NewTransformationError("", "saving preprocessor", err)
	}

	res := &Result{
		Train:            withTarget(Xtrain, yTrain),
		Test:             withTarget(Xtest, yTest),
		Preprocessor:     ct,
		FeatureNames:     ct.OutputFeatureNames(),
		PreprocessorPath: t.store.Path(artifact.PreprocessorFile),
	}
	t.logger.Info("transformation complete",
		log.TrainSamplesKey, train.NRows(),
		log.TestSamplesKey, test.NRows(),
		log.FeaturesKey, ct.NOutputFeatures(),
		log.ArtifactKey, res.PreprocessorPath,
		log.DurationMsKey, time.Since(start),
	)
	return res, nil
}

// targetColumn requires the target to be present and numeric in every row.
func (t *Transformer) targetColumn(f *dataset.Frame) ([]float64, error) {
	if !f.HasColumn(t.target) {
		return nil, errors.NewTransformationError(t.target, "target column not found", nil)
	}
	y, err := f.FloatColumn(t.target)
	if err != nil {
		return nil, errors.NewTransformationError(t.target, "target column is not numeric", err)
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, errors.NewTransformationError(t.target, "target value missing",
				errors.Newf("row %d", i))
		}
	}
	return y, nil
}

// schema returns the configured feature columns, or infers them from the
// train split: every non-target column, numeric when all its present
// values parse as numbers. Columns keep header order.
func (t *Transformer) schema(train *dataset.Frame) (numeric, categorical []string, err error) {
	if len(t.numeric)+len(t.categorical) > 0 {
		for _, col := range append(append([]string(nil), t.numeric...), t.categorical...) {
			values, err := train.Column(col)
			if err != nil {
				return nil, nil, errors.NewTransformationError(col, "configured column not found", nil)
			}
			if dataset.CountPresent(values) == 0 {
				return nil, nil, errors.NewTransformationError(col, "column has no values in train split", nil)
			}
		}
		return t.numeric, t.categorical, nil
	}

	features, err := train.Drop(t.target)
	if err != nil {
		return nil, nil, errors.NewTransformationError(t.target, "target column not found", err)
	}
	for _, col := range features.Header() {
		values, _ := features.Column(col)
		if dataset.CountPresent(values) == 0 {
			return nil, nil, errors.NewTransformationError(col, "column has no values in train split", nil)
		}
		if dataset.InferKind(values) == dataset.Numeric {
			numeric = append(numeric, col)
		} else {
			categorical = append(categorical, col)
		}
	}
	if len(numeric)+len(categorical) == 0 {
		return nil, nil, errors.NewTransformationError("", "no feature columns", nil)
	}
	return numeric, categorical, nil
}

// columnFailure converts a preprocessing error into a TransformationError
// naming the column when one is known.
func columnFailure(reason string, err error) error {
	var ce *preprocessing.ColumnError
	if errors.As(err, &ce) {
		return errors.NewTransformationError(ce.Column, reason, err)
	}
	return errors.NewTransformationError("", reason, err)
}

func withTarget(X *mat.Dense, y []float64) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, c+1, nil)
	out.Slice(0, r, 0, c).(*mat.Dense).Copy(X)
	out.SetCol(c, y)
	return out
}
