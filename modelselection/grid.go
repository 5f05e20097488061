package modelselection

import (
	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// ParamGrid maps a hyperparameter name to the values to try.
type ParamGrid map[string][]float64

// Validate rejects parameters with no values.
func (g ParamGrid) Validate() error {
	for name, values := range g {
		if len(values) == 0 {
			return errors.NewValidationError(name, "grid has no values", values)
		}
	}
	return nil
}

// Size returns the number of combinations.
func (g ParamGrid) Size() int {
	size := 1
	for _, values := range g {
		size *= len(values)
	}
	return size
}

// Combinations expands the grid in a fixed order: parameter names sorted,
// the last name varying fastest. An empty grid yields one empty setting.
func (g ParamGrid) Combinations() []model.Params {
	keys := model.Params{}
	for k := range g {
		keys[k] = 0
	}
	names := keys.Keys()

	out := make([]model.Params, 0, g.Size())
	current := make(model.Params, len(names))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(names) {
			out = append(out, current.Clone())
			return
		}
		for _, v := range g[names[depth]] {
			current[names[depth]] = v
			walk(depth + 1)
		}
	}
	walk(0)
	return out
}
