package model

import (
	"sync"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// StateManager tracks whether a model is fitted and the input shape it was
// fitted on. Estimators embed it by pointer.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted on data of the given shape.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// NFeatures returns the number of features seen during fitting.
func (s *StateManager) NFeatures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckFeatures returns a DimensionError when X has a different number of
// columns than the fitted model expects.
func (s *StateManager) CheckFeatures(op string, cols int) error {
	if n := s.NFeatures(); n != cols {
		return errors.NewDimensionError(op, n, cols, 1)
	}
	return nil
}
