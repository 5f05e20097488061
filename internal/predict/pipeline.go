// Package predict serves single-row predictions from the persisted
// preprocessor and model.
package predict

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/trainer"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"github.com/YuminosukeSato/scorecast/preprocessing"
)

// Features is one raw input row keyed by column name.
type Features map[string]string

// Pipeline loads the artifacts on first use and shares them read-only
// between requests. A failed load is retried on the next request.
type Pipeline struct {
	store  *artifact.Store
	logger log.Logger

	mu     sync.Mutex
	loaded *artifacts
}

type artifacts struct {
	pre       *preprocessing.ColumnTransformer
	model     model.Regressor
	modelType string
	columns   []string
	runID     string
}

// New creates a pipeline reading from store.
func New(store *artifact.Store, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{
		store:  store,
		logger: logger.With(log.StageKey, string(errors.StagePrediction)),
	}
}

// InputColumns returns the raw columns every request must carry.
func (p *Pipeline) InputColumns() ([]string, error) {
	a, err := p.load()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), a.columns...), nil
}

// RunID returns the training run the loaded artifacts belong to.
func (p *Pipeline) RunID() (string, error) {
	a, err := p.load()
	if err != nil {
		return "", err
	}
	return a.runID, nil
}

// Predict transforms one row with the fitted preprocessor and returns the
// model's prediction. Every column seen at fit time must be a key of
// features; empty values are imputed.
func (p *Pipeline) Predict(ctx context.Context, features Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()

	a, err := p.load()
	if err != nil {
		return 0, err
	}
	for _, col := range a.columns {
		if _, ok := features[col]; !ok {
			return 0, errors.NewPredictionError(errors.PredictionInvalidInput, col, "missing field", nil)
		}
	}

	frame, err := dataset.FromRecord(a.columns, features)
	if err != nil {
		return 0, errors.NewPredictionError(errors.PredictionInvalidInput, "", "building input row", err)
	}
	X, err := a.pre.Transform(frame)
	if err != nil {
		var ce *preprocessing.ColumnError
		if errors.As(err, &ce) {
			return 0, errors.NewPredictionError(errors.PredictionInvalidInput, ce.Column, "invalid value", err)
		}
		return 0, errors.NewPredictionError(errors.PredictionModel, "", "transforming input", err)
	}
	pred, err := a.model.Predict(X)
	if err != nil {
		return 0, errors.NewPredictionError(errors.PredictionModel, "", "predicting", err)
	}
	v := pred.AtVec(0)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewPredictionError(errors.PredictionModel, "", "non-finite prediction", nil)
	}

	p.logger.Debug("prediction served",
		log.RunIDKey, a.runID,
		log.PredsKey, 1,
		log.DurationMsKey, time.Since(start),
	)
	return v, nil
}

func (p *Pipeline) load() (*artifacts, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded != nil {
		return p.loaded, nil
	}

	a, err := p.readArtifacts()
	if err != nil {
		p.logger.Error("artifact load failed", err, log.ArtifactKey, p.store.Dir())
		return nil, err
	}
	p.loaded = a
	p.logger.Info("artifacts loaded",
		log.RunIDKey, a.runID,
		log.ModelNameKey, a.modelType,
	)
	return a, nil
}

// readArtifacts loads both envelopes and checks that they belong together.
func (p *Pipeline) readArtifacts() (*artifacts, error) {
	var state preprocessing.ColumnTransformerState
	preEnv, err := p.store.LoadEnvelope(artifact.PreprocessorFile, model.KindPreprocessor, &state)
	if err != nil {
		return nil, errors.NewPredictionError(errors.PredictionArtifact, "", "loading preprocessor", err)
	}
	pre := preprocessing.NewColumnTransformer(nil, nil, preprocessing.WithLogger(p.logger))
	if err := pre.ImportState(&state); err != nil {
		return nil, errors.NewPredictionError(errors.PredictionArtifact, "", "restoring preprocessor", err)
	}

	var weights model.ModelWeights
	modelEnv, err := p.store.LoadEnvelope(artifact.ModelFile, model.KindModel, &weights)
	if err != nil {
		return nil, errors.NewPredictionError(errors.PredictionArtifact, "", "loading model", err)
	}
	est, err := trainer.LoadModel(&weights)
	if err != nil {
		return nil, errors.NewPredictionError(errors.PredictionArtifact, "", "restoring model", err)
	}

	for _, env := range []*model.Envelope{preEnv, modelEnv} {
		if !artifact.ValidRunID(env.RunID) {
			return nil, errors.NewPredictionError(errors.PredictionArtifact, "", "invalid run id",
				errors.Newf("%s carries run id %q", env.Kind, env.RunID))
		}
	}
	if preEnv.RunID != modelEnv.RunID {
		return nil, errors.NewPredictionError(errors.PredictionArtifact, "",
			"preprocessor and model come from different training runs",
			errors.Newf("preprocessor run %s, model run %s", preEnv.RunID, modelEnv.RunID))
	}
	if weights.NFeatures != pre.NOutputFeatures() {
		return nil, errors.NewPredictionError(errors.PredictionArtifact, "",
			"model does not match preprocessor output",
			errors.NewDimensionError("Pipeline.load", pre.NOutputFeatures(), weights.NFeatures, 1))
	}

	return &artifacts{
		pre:       pre,
		model:     est,
		modelType: weights.ModelType,
		columns:   pre.InputColumns(),
		runID:     modelEnv.RunID,
	}, nil
}
