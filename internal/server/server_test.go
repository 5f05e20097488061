package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/predict"
	"github.com/YuminosukeSato/scorecast/linear"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"github.com/YuminosukeSato/scorecast/preprocessing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type fakePredictor struct {
	value float64
	err   error
	got   predict.Features
}

func (f *fakePredictor) Predict(_ context.Context, features predict.Features) (float64, error) {
	f.got = features
	return f.value, f.err
}

func newServer(t *testing.T, p Predictor) http.Handler {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	s, err := New("127.0.0.1:0", p, logger)
	require.NoError(t, err)
	return s.Handler()
}

func validForm() url.Values {
	return url.Values{
		predict.FieldGender:                   {"female"},
		predict.FieldRaceEthnicity:            {"group B"},
		predict.FieldParentalLevelOfEducation: {"bachelor's degree"},
		predict.FieldLunch:                    {"standard"},
		predict.FieldTestPreparationCourse:    {"none"},
		predict.FieldReadingScore:             {"72"},
		predict.FieldWritingScore:             {"74"},
	}
}

func withField(form url.Values, field, value string) url.Values {
	form.Set(field, value)
	return form
}

func withoutField(form url.Values, field string) url.Values {
	form.Del(field)
	return form
}

func post(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predictdata", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Pages(t *testing.T) {
	h := newServer(t, &fakePredictor{})

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, "/predictdata"},
		{"/predictdata", http.StatusOK, `name="race_ethnicity"`},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestServer_Predict(t *testing.T) {
	fp := &fakePredictor{value: 71.25}
	h := newServer(t, fp)

	rec := post(h, validForm())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The prediction is 71.25")
	assert.Equal(t, "72", fp.got[predict.FieldReadingScore])
	assert.Equal(t, "group B", fp.got[predict.FieldRaceEthnicity])
}

func TestServer_PredictErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		form     url.Values
		status   int
		contains string
	}{
		{
			name:     "bad score",
			form:     withField(validForm(), predict.FieldReadingScore, "lots"),
			status:   http.StatusBadRequest,
			contains: "score is not a number",
		},
		{
			name:     "absent field",
			form:     withoutField(validForm(), predict.FieldGender),
			status:   http.StatusBadRequest,
			contains: "missing field",
		},
		{
			name:     "invalid input",
			err:      errors.NewPredictionError(errors.PredictionInvalidInput, "lunch", "missing field", nil),
			form:     validForm(),
			status:   http.StatusBadRequest,
			contains: "missing field",
		},
		{
			name:     "artifact",
			err:      errors.NewPredictionError(errors.PredictionArtifact, "", "loading model", errors.New("no such file")),
			form:     validForm(),
			status:   http.StatusInternalServerError,
			contains: "not available",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, &fakePredictor{err: tt.err})
			rec := post(h, tt.form)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
			assert.NotContains(t, rec.Body.String(), "The prediction is")
		})
	}

	t.Run("keeps serving after a failure", func(t *testing.T) {
		fp := &fakePredictor{err: errors.NewPredictionError(errors.PredictionArtifact, "", "loading model", nil)}
		h := newServer(t, fp)
		assert.Equal(t, http.StatusInternalServerError, post(h, validForm()).Code)
		fp.err, fp.value = nil, 60
		assert.Equal(t, http.StatusOK, post(h, validForm()).Code)
	})
}

const trainingCSV = `gender,race_ethnicity,parental_level_of_education,lunch,test_preparation_course,reading_score,writing_score,math_score
female,group B,bachelor's degree,standard,none,72,74,72
female,group C,some college,standard,completed,90,88,69
male,group A,associate's degree,free/reduced,none,47,44,47
male,group C,some college,standard,none,76,75,76
female,group B,master's degree,standard,none,95,93,71
male,group B,some high school,free/reduced,completed,71,67,88
`

// fittedPipeline fits a preprocessor and a ridge model on trainingCSV and
// returns a prediction pipeline reading them back from disk.
func fittedPipeline(t *testing.T) *predict.Pipeline {
	t.Helper()
	frame, err := dataset.ReadCSV(strings.NewReader(trainingCSV))
	require.NoError(t, err)
	target, err := frame.FloatColumn("math_score")
	require.NoError(t, err)
	features, err := frame.Drop("math_score")
	require.NoError(t, err)

	ct := preprocessing.NewColumnTransformer(
		[]string{predict.FieldReadingScore, predict.FieldWritingScore},
		[]string{predict.FieldGender, predict.FieldRaceEthnicity, predict.FieldParentalLevelOfEducation,
			predict.FieldLunch, predict.FieldTestPreparationCourse},
	)
	X, err := ct.FitTransform(features)
	require.NoError(t, err)
	est := linear.NewRidge(linear.WithAlpha(1))
	require.NoError(t, est.Fit(X, mat.NewVecDense(len(target), target)))

	store := artifact.NewStore(t.TempDir(), nil)
	runID := artifact.NewRunID()
	state, err := ct.ExportState()
	require.NoError(t, err)
	require.NoError(t, store.SaveEnvelope(artifact.PreprocessorFile, model.KindPreprocessor, runID, state))
	weights, err := est.ExportWeights()
	require.NoError(t, err)
	require.NoError(t, store.SaveEnvelope(artifact.ModelFile, model.KindModel, runID, weights))
	return predict.New(store, nil)
}

func TestServer_PredictWithFittedPipeline(t *testing.T) {
	h := newServer(t, fittedPipeline(t))

	rec := post(h, validForm())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The prediction is")

	for _, field := range []string{predict.FieldGender, predict.FieldLunch, predict.FieldWritingScore} {
		t.Run("without "+field, func(t *testing.T) {
			rec := post(h, withoutField(validForm(), field))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "missing field")
			assert.NotContains(t, rec.Body.String(), "The prediction is")
		})
	}

	t.Run("blank values are imputed", func(t *testing.T) {
		form := withField(validForm(), predict.FieldGender, "")
		rec := post(h, withField(form, predict.FieldWritingScore, ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "The prediction is")
	})
}

func TestServer_Health(t *testing.T) {
	h := newServer(t, &fakePredictor{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestServer_GracefulShutdown(t *testing.T) {
	s, err := New("127.0.0.1:0", &fakePredictor{}, nil)
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
