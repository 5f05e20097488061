package predict_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/internal/ingest"
	"github.com/YuminosukeSato/scorecast/internal/predict"
	"github.com/YuminosukeSato/scorecast/internal/trainer"
	"github.com/YuminosukeSato/scorecast/internal/transform"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// target = 2*feature_a + noise; group carries no signal.
const linearCSV = `feature_a,group,target
1,x,2.1
2,y,3.9
3,x,6.1
4,y,7.9
5,x,10.1
6,y,11.9
7,x,14.1
8,y,15.9
9,x,18.1
10,y,19.9
`

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "linear.csv")
	require.NoError(t, os.WriteFile(source, []byte(linearCSV), 0o600))

	cfg := config.NewConfig()
	cfg.SourcePath = source
	cfg.ArtifactDir = filepath.Join(dir, "artifacts")
	cfg.TargetColumn = "target"
	cfg.Candidates = []string{"LinearRegression", "Ridge"}
	cfg.Grids = map[string]map[string][]float64{"Ridge": {"alpha": {0.001, 0.01}}}
	require.NoError(t, cfg.Validate())

	logger, _ := log.NewTestLogger(log.LevelInfo)
	store := artifact.NewStore(cfg.ArtifactDir, logger)
	runID := artifact.NewRunID()
	ctx := context.Background()

	ing, err := ingest.New(cfg, store, logger).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, ing.TrainRows)
	assert.Equal(t, 2, ing.TestRows)

	tr, err := transform.New(cfg, store, runID, logger).Run(ctx, ing.TrainPath, ing.TestPath)
	require.NoError(t, err)

	tn, err := trainer.New(cfg, store, runID, logger)
	require.NoError(t, err)
	report, err := tn.Run(ctx, tr.Train, tr.Test)
	require.NoError(t, err)
	assert.True(t, report.Accepted())

	p := predict.New(store, logger)
	got, err := p.Predict(ctx, predict.Features{"feature_a": "5.5", "group": "x"})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, got, 0.5)

	_, err = p.Predict(ctx, predict.Features{"feature_a": "5.5"})
	require.Error(t, err)
	var perr *errors.PredictionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, errors.PredictionInvalidInput, perr.Kind)
	assert.Equal(t, "group", perr.Field)
}
