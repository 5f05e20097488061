package model

import (
	"encoding/json"
	"fmt"
)

// WeightsVersion is the layout version of ModelWeights written by this
// package.
const WeightsVersion = "1"

// ModelWeights is the serializable form of a fitted estimator.
type ModelWeights struct {
	// ModelType names the estimator (LinearRegression, Ridge, DecisionTreeRegressor, ...).
	ModelType string `json:"model_type"`

	// Version is the layout version, checked on import.
	Version string `json:"version"`

	// NFeatures is the number of features seen at fit time.
	NFeatures int `json:"n_features"`

	// Coefficients are the weights of a linear model.
	Coefficients []float64 `json:"coefficients,omitempty"`

	// Intercept is the fitted intercept.
	Intercept float64 `json:"intercept"`

	// Hyperparameters are the estimator settings.
	Hyperparameters Params `json:"hyperparameters"`

	// State is numeric model state that coefficients cannot express, such
	// as tree nodes or the KNN training set.
	State json.RawMessage `json:"state,omitempty"`

	// IsFitted reports whether the estimator was fitted.
	IsFitted bool `json:"is_fitted"`
}

// Validate checks that the weights are self-consistent.
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return fmt.Errorf("model_type is required")
	}
	if mw.Version == "" {
		return fmt.Errorf("version is required")
	}
	if mw.Version != WeightsVersion {
		return fmt.Errorf("unsupported weights version %q (want %q)", mw.Version, WeightsVersion)
	}

	hasState := len(mw.Coefficients) > 0 || len(mw.State) > 0
	if !mw.IsFitted && hasState {
		return fmt.Errorf("unfitted model should not carry fitted state")
	}
	if mw.IsFitted && !hasState {
		return fmt.Errorf("fitted model must have coefficients or state")
	}
	return nil
}

// Expect checks that mw describes a fitted model of the given type.
func (mw *ModelWeights) Expect(modelType string) error {
	if mw == nil {
		return fmt.Errorf("nil weights")
	}
	if err := mw.Validate(); err != nil {
		return err
	}
	if mw.ModelType != modelType {
		return fmt.Errorf("model type mismatch: expected %s, got %s", modelType, mw.ModelType)
	}
	if !mw.IsFitted {
		return fmt.Errorf("weights for %s are not fitted", modelType)
	}
	return nil
}

// Clone returns a deep copy.
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		NFeatures:       mw.NFeatures,
		Intercept:       mw.Intercept,
		IsFitted:        mw.IsFitted,
		Hyperparameters: mw.Hyperparameters.Clone(),
	}
	if mw.Coefficients != nil {
		clone.Coefficients = append([]float64(nil), mw.Coefficients...)
	}
	if mw.State != nil {
		clone.State = append(json.RawMessage(nil), mw.State...)
	}
	return clone
}
