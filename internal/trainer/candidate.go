package trainer

import (
	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/linear"
	"github.com/YuminosukeSato/scorecast/modelselection"
	"github.com/YuminosukeSato/scorecast/neighbors"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/tree"
)

// Candidate is one regression algorithm of the training roster. The set is
// closed: every method switches over all variants.
type Candidate int

const (
	LinearRegression Candidate = iota
	Ridge
	Lasso
	DecisionTree
	KNeighbors

	numCandidates
)

// DefaultRoster returns every candidate in evaluation order. Ties in test
// score go to the earlier candidate.
func DefaultRoster() []Candidate {
	return []Candidate{LinearRegression, Ridge, Lasso, DecisionTree, KNeighbors}
}

// String returns the configuration name of c.
func (c Candidate) String() string {
	switch c {
	case LinearRegression:
		return "LinearRegression"
	case Ridge:
		return "Ridge"
	case Lasso:
		return "Lasso"
	case DecisionTree:
		return "DecisionTree"
	case KNeighbors:
		return "KNeighbors"
	default:
		return "Candidate(?)"
	}
}

// DisplayName returns the name used in reports.
func (c Candidate) DisplayName() string {
	switch c {
	case LinearRegression:
		return "Linear Regression"
	case Ridge:
		return "Ridge"
	case Lasso:
		return "Lasso"
	case DecisionTree:
		return "Decision Tree"
	case KNeighbors:
		return "K-Neighbors Regressor"
	default:
		return c.String()
	}
}

// New returns a fresh, unfitted estimator.
func (c Candidate) New() model.Regressor {
	switch c {
	case LinearRegression:
		return linear.NewLinearRegression()
	case Ridge:
		return linear.NewRidge()
	case Lasso:
		return linear.NewLasso()
	case DecisionTree:
		return tree.NewDecisionTreeRegressor()
	case KNeighbors:
		return neighbors.NewKNeighborsRegressor()
	default:
		panic("trainer: unknown candidate")
	}
}

// DefaultGrid returns the hyperparameter grid searched for c. An empty grid
// fits the default parameters only.
func (c Candidate) DefaultGrid() modelselection.ParamGrid {
	switch c {
	case LinearRegression:
		return modelselection.ParamGrid{}
	case Ridge:
		return modelselection.ParamGrid{"alpha": {0.1, 1, 10, 100}}
	case Lasso:
		return modelselection.ParamGrid{"alpha": {0.001, 0.01, 0.1, 1}}
	case DecisionTree:
		return modelselection.ParamGrid{
			"max_depth":        {3, 5, 8, 0},
			"min_samples_leaf": {1, 5},
		}
	case KNeighbors:
		return modelselection.ParamGrid{
			"n_neighbors": {3, 5, 7, 9},
			"weights":     {0, 1},
		}
	default:
		return modelselection.ParamGrid{}
	}
}

// ModelType returns the ModelWeights type written by c's estimator.
func (c Candidate) ModelType() string {
	switch c {
	case LinearRegression:
		return "LinearRegression"
	case Ridge:
		return "Ridge"
	case Lasso:
		return "Lasso"
	case DecisionTree:
		return "DecisionTreeRegressor"
	case KNeighbors:
		return "KNeighborsRegressor"
	default:
		return ""
	}
}

// ParseCandidate maps a configuration name to its Candidate.
func ParseCandidate(name string) (Candidate, error) {
	for c := Candidate(0); c < numCandidates; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, errors.NewValidationError("candidates", "unknown candidate", name)
}

// LoadModel rebuilds a fitted estimator from persisted weights. Model types
// outside the roster are rejected.
func LoadModel(w *model.ModelWeights) (model.Regressor, error) {
	if w == nil {
		return nil, errors.NewValueError("LoadModel", "nil weights")
	}
	for c := Candidate(0); c < numCandidates; c++ {
		if c.ModelType() != w.ModelType {
			continue
		}
		est := c.New()
		if err := est.ImportWeights(w); err != nil {
			return nil, err
		}
		return est, nil
	}
	return nil, errors.NewModelError("LoadModel", "unknown model type "+w.ModelType, nil)
}
