// Package model defines the estimator contracts shared by every regressor and
// transformer, their fitted-state bookkeeping, and the versioned artifact
// envelope used to persist them.
package model

import (
	"math"
	"sort"
)

// Params holds estimator hyperparameters. Only numeric values are allowed,
// so a parameter set survives a JSON round trip unchanged. Integer
// parameters (max_depth, n_neighbors) are stored as whole floats.
type Params map[string]float64

// Clone returns a copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns p[key] rounded to an int, or def when the key is absent.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	return int(math.Round(v))
}

// Float returns p[key], or def when the key is absent.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	return v
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() Params
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the given hyperparameters. Keys not present are left
	// unchanged; unknown keys are an error.
	SetParams(params Params) error
}

// WeightExporter is implemented by models whose fitted state can be
// persisted.
type WeightExporter interface {
	// ExportWeights returns the fitted state.
	ExportWeights() (*ModelWeights, error)

	// ImportWeights restores the fitted state. A model restored this way
	// predicts bit-identically to the one that exported it.
	ImportWeights(weights *ModelWeights) error
}

// Regressor is a single-output regression model that can take part in grid
// search and be persisted as the winning model.
type Regressor interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter
	WeightExporter
}
