package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Categorical columns hold free text.
	Categorical Kind = iota
	// Numeric columns parse as float64 in every non-missing cell.
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"nan":  true,
	"null": true,
}

// IsMissing reports whether s denotes a missing value: the empty string,
// NA, NaN or null, case-insensitively and ignoring surrounding space.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseFloat parses a numeric cell. Missing cells parse as NaN. ok is false
// only for non-missing text that is not a number.
func ParseFloat(s string) (v float64, ok bool) {
	if IsMissing(s) {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// InferKind returns Numeric when every non-missing value parses as a finite
// float64 and at least one value is present. All-missing columns are
// Categorical.
func InferKind(values []string) Kind {
	seen := false
	for _, s := range values {
		if IsMissing(s) {
			continue
		}
		if _, ok := ParseFloat(s); !ok {
			return Categorical
		}
		seen = true
	}
	if !seen {
		return Categorical
	}
	return Numeric
}

// CountPresent returns the number of non-missing values.
func CountPresent(values []string) int {
	n := 0
	for _, s := range values {
		if !IsMissing(s) {
			n++
		}
	}
	return n
}
