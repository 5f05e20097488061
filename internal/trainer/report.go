package trainer

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/scorecast/core/model"
)

// Entry is the outcome of one candidate.
type Entry struct {
	Candidate  Candidate
	Name       string
	Score      float64 // test R²
	CVScore    float64 // mean fold R² of the best grid setting
	BestParams model.Params

	estimator model.Regressor
}

// Report lists every candidate in roster order.
type Report struct {
	RunID     string
	Entries   []Entry
	Winner    int
	Threshold float64
}

// Scores maps display names to test R².
func (r *Report) Scores() map[string]float64 {
	out := make(map[string]float64, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Name] = e.Score
	}
	return out
}

// Best returns the winning entry.
func (r *Report) Best() Entry { return r.Entries[r.Winner] }

// Accepted reports whether the winner reached the threshold.
func (r *Report) Accepted() bool { return r.Best().Score >= r.Threshold }

// String renders the report as a fixed-width table, winner marked with *.
func (r *Report) String() string {
	width := len("candidate")
	for _, e := range r.Entries {
		width = max(width, len(e.Name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %-*s  %8s  %8s  %s\n", width, "candidate", "test_r2", "cv_r2", "params")
	for i, e := range r.Entries {
		mark := " "
		if i == r.Winner {
			mark = "*"
		}
		fmt.Fprintf(&sb, "%s %-*s  %8.4f  %8.4f  %s\n", mark, width, e.Name, e.Score, e.CVScore, formatParams(e.BestParams))
	}
	fmt.Fprintf(&sb, "threshold %.4f\n", r.Threshold)
	return sb.String()
}

func formatParams(p model.Params) string {
	if len(p) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%g", k, p[k]))
	}
	return strings.Join(parts, " ")
}

// selectBest returns the index of the first entry with the highest score.
// NaN scores never win.
func selectBest(entries []Entry) int {
	best := -1
	for i, e := range entries {
		if math.IsNaN(e.Score) {
			continue
		}
		if best < 0 || e.Score > entries[best].Score {
			best = i
		}
	}
	return best
}
