package transform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"github.com/YuminosukeSato/scorecast/preprocessing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainCSV = `gender,lunch,reading_score,math_score
female,standard,70,72
male,free/reduced,,60
female,free/reduced,90,88
male,standard,80,
`

const testCSV = `gender,lunch,reading_score,math_score
other,standard,65,64
,free/reduced,75,70
`

func writeSplits(t *testing.T, train, test string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.csv")
	testPath := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(trainPath, []byte(train), 0o600))
	require.NoError(t, os.WriteFile(testPath, []byte(test), 0o600))
	return trainPath, testPath
}

func newTransformer(t *testing.T, cfg config.Config) (*Transformer, *artifact.Store) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	store := artifact.NewStore(t.TempDir(), logger)
	return New(cfg, store, "run-1", logger), store
}

// validTrain has a numeric target in every row.
const validTrain = `gender,lunch,reading_score,math_score
female,standard,70,72
male,free/reduced,,60
female,free/reduced,90,88
male,standard,80,75
`

func TestTransformer_Run(t *testing.T) {
	trainPath, testPath := writeSplits(t, validTrain, testCSV)
	tr, store := newTransformer(t, config.NewConfig())

	res, err := tr.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	// reading_score, then gender=female, gender=male, lunch=free/reduced, lunch=standard
	assert.Equal(t, []string{"reading_score", "gender_female", "gender_male", "lunch_free/reduced", "lunch_standard"}, res.FeatureNames)

	r, c := res.Train.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 6, c, "features plus target")
	assert.Equal(t, 75.0, res.Train.At(3, 5))

	X, y := SplitXY(res.Test)
	_, xc := X.Dims()
	assert.Equal(t, 5, xc)
	assert.Equal(t, []float64{64, 70}, y.RawVector().Data)

	// unseen "other" and the imputed blank both avoid new columns; "other"
	// encodes as all-zero gender columns
	assert.Zero(t, X.At(0, 1))
	assert.Zero(t, X.At(0, 2))

	assert.True(t, store.Exists(artifact.PreprocessorFile))
	var st preprocessing.ColumnTransformerState
	env, err := store.LoadEnvelope(artifact.PreprocessorFile, model.KindPreprocessor, &st)
	require.NoError(t, err)
	assert.Equal(t, "run-1", env.RunID)
	assert.Equal(t, []string{"reading_score"}, st.NumericColumns)
}

// TestTransformer_NoLeakage checks that scaling statistics come from the
// train split alone.
func TestTransformer_NoLeakage(t *testing.T) {
	trainPath, testPath := writeSplits(t, validTrain, `gender,lunch,reading_score,math_score
female,standard,1000,50
`)
	tr, _ := newTransformer(t, config.NewConfig())

	res, err := tr.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	st, err := res.Preprocessor.ExportState()
	require.NoError(t, err)
	// train reading scores 70, (median 80), 90, 80
	assert.InDelta(t, 80.0, st.NumericScaler.Mean[0], 1e-12)
	assert.InDelta(t, 80.0, st.NumericFill[0], 1e-12)
}

func TestTransformer_ConfiguredColumns(t *testing.T) {
	trainPath, testPath := writeSplits(t, validTrain, testCSV)
	cfg := config.NewConfig()
	cfg.NumericColumns = []string{"reading_score"}
	cfg.CategoricalColumns = []string{"lunch"}
	scale := false
	cfg.ScaleCategorical = &scale
	tr, _ := newTransformer(t, cfg)

	res, err := tr.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"reading_score", "lunch_free/reduced", "lunch_standard"}, res.FeatureNames)
	assert.Equal(t, 1.0, res.Train.At(0, 2), "unscaled one-hot")
}

func TestNew_NilLogger(t *testing.T) {
	trainPath, testPath := writeSplits(t, validTrain, testCSV)
	store := artifact.NewStore(t.TempDir(), nil)
	tr := New(config.NewConfig(), store, artifact.NewRunID(), nil)

	_, err := tr.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)
	assert.True(t, store.Exists(artifact.PreprocessorFile))
}

func TestTransformer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		train    string
		test     string
		modify   func(*config.Config)
		column   string
		contains string
	}{
		{
			name:     "target missing from header",
			train:    "gender,reading_score\nfemale,70\n",
			test:     testCSV,
			column:   "math_score",
			contains: "target column not found",
		},
		{
			name:     "target value missing",
			train:    trainCSV,
			test:     testCSV,
			column:   "math_score",
			contains: "target value missing",
		},
		{
			name:     "target not numeric",
			train:    validTrain,
			test:     "gender,lunch,reading_score,math_score\nfemale,standard,70,high\n",
			column:   "math_score",
			contains: "target column is not numeric",
		},
		{
			name:     "unknown configured column",
			train:    validTrain,
			test:     testCSV,
			modify:   func(c *config.Config) { c.NumericColumns = []string{"writing_score"} },
			column:   "writing_score",
			contains: "configured column not found",
		},
		{
			name:     "all-missing column",
			train:    "gender,notes,math_score\nfemale,,1\nmale,NA,2\n",
			test:     "gender,notes,math_score\nfemale,,1\n",
			column:   "notes",
			contains: "column has no values in train split",
		},
		{
			name:     "configured column without values",
			train:    "gender,notes,math_score\nfemale,,1\nmale,NA,2\n",
			test:     "gender,notes,math_score\nfemale,,1\n",
			modify:   func(c *config.Config) { c.NumericColumns = []string{"notes"} },
			column:   "notes",
			contains: "column has no values in train split",
		},
		{
			name:     "test split lacks a feature column",
			train:    validTrain,
			test:     "gender,reading_score,math_score\nfemale,70,72\n",
			column:   "lunch",
			contains: "transforming test split",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			if tt.modify != nil {
				tt.modify(&cfg)
			}
			trainPath, testPath := writeSplits(t, tt.train, tt.test)
			tr, store := newTransformer(t, cfg)

			_, err := tr.Run(context.Background(), trainPath, testPath)
			require.Error(t, err)
			var te *errors.TransformationError
			require.True(t, errors.As(err, &te), "got %T: %v", err, err)
			assert.Equal(t, tt.column, te.Column)
			assert.Contains(t, err.Error(), tt.contains)
			assert.False(t, store.Exists(artifact.PreprocessorFile))
		})
	}
}
