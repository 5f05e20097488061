package artifact

import "github.com/google/uuid"

// NewRunID returns a fresh identifier for a training run. It is recorded in
// every envelope written by the run and in its log records.
func NewRunID() string {
	return uuid.NewString()
}

// ValidRunID reports whether id was produced by NewRunID.
func ValidRunID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
