package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Stage names a pipeline component for error context and logging.
type Stage string

const (
	StageIngestion      Stage = "ingestion"
	StageTransformation Stage = "transformation"
	StageTraining       Stage = "training"
	StagePrediction     Stage = "prediction"
)

// IngestionError is returned when the raw dataset cannot be read, parsed or
// split, or the split artifacts cannot be written.
type IngestionError struct {
	Source string
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scorecast: %s: %s (source %q): %v", StageIngestion, e.Reason, e.Source, e.Err)
	}
	return fmt.Sprintf("scorecast: %s: %s (source %q)", StageIngestion, e.Reason, e.Source)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *IngestionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(StageIngestion)).
		Str("source", e.Source).
		Str("reason", e.Reason).
		Str("type", "IngestionError")
}

// NewIngestionError creates an IngestionError with a stack trace.
func NewIngestionError(source, reason string, err error) error {
	return errors.WithStack(&IngestionError{Source: source, Reason: reason, Err: err})
}

// TransformationError is returned when the feature schema cannot be
// determined or the column transformer fails to fit or apply.
type TransformationError struct {
	Column string
	Reason string
	Err    error
}

func (e *TransformationError) Error() string {
	msg := fmt.Sprintf("scorecast: %s: %s", StageTransformation, e.Reason)
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %q)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransformationError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *TransformationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(StageTransformation)).
		Str("column", e.Column).
		Str("reason", e.Reason).
		Str("type", "TransformationError")
}

// NewTransformationError creates a TransformationError with a stack trace.
func NewTransformationError(column, reason string, err error) error {
	return errors.WithStack(&TransformationError{Column: column, Reason: reason, Err: err})
}

// ModelQualityError means training finished but no candidate reached the
// acceptance threshold. It is a verdict on the data, not a fit failure.
type ModelQualityError struct {
	BestModel string
	BestScore float64
	Threshold float64
}

func (e *ModelQualityError) Error() string {
	return fmt.Sprintf("scorecast: %s: no model good enough: best %s scored %.4f, threshold %.4f",
		StageTraining, e.BestModel, e.BestScore, e.Threshold)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ModelQualityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(StageTraining)).
		Str("best_model", e.BestModel).
		Float64("best_score", e.BestScore).
		Float64("threshold", e.Threshold).
		Str("type", "ModelQualityError")
}

// NewModelQualityError creates a ModelQualityError with a stack trace.
func NewModelQualityError(bestModel string, bestScore, threshold float64) error {
	return errors.WithStack(&ModelQualityError{BestModel: bestModel, BestScore: bestScore, Threshold: threshold})
}

// PredictionErrorKind separates caller mistakes from server-side faults.
type PredictionErrorKind string

const (
	// PredictionArtifact means the preprocessor or model could not be loaded.
	PredictionArtifact PredictionErrorKind = "artifact"
	// PredictionInvalidInput means the feature row was malformed.
	PredictionInvalidInput PredictionErrorKind = "invalid_input"
	// PredictionModel means transform or predict failed on a valid row.
	PredictionModel PredictionErrorKind = "model"
)

// PredictionError is returned by the prediction pipeline for a single request.
type PredictionError struct {
	Kind   PredictionErrorKind
	Field  string
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	msg := fmt.Sprintf("scorecast: %s: %s: %s", StagePrediction, e.Kind, e.Reason)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PredictionError) Unwrap() error { return e.Err }

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *PredictionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", string(StagePrediction)).
		Str("kind", string(e.Kind)).
		Str("field", e.Field).
		Str("reason", e.Reason).
		Str("type", "PredictionError")
}

// NewPredictionError creates a PredictionError with a stack trace.
func NewPredictionError(kind PredictionErrorKind, field, reason string, err error) error {
	return errors.WithStack(&PredictionError{Kind: kind, Field: field, Reason: reason, Err: err})
}
