// Package trainer runs every roster candidate through grid-searched
// cross-validation, picks the best on the test split and persists it when it
// clears the acceptance threshold.
package trainer

import (
	"context"
	"time"

	"github.com/YuminosukeSato/scorecast/core/model"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/internal/transform"
	"github.com/YuminosukeSato/scorecast/metrics"
	"github.com/YuminosukeSato/scorecast/modelselection"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Trainer runs the training stage.
type Trainer struct {
	roster    []Candidate
	grids     map[Candidate]modelselection.ParamGrid
	threshold float64
	folds     int
	seed      uint64
	workers   int
	plotPath  string
	store     *artifact.Store
	runID     string
	logger    log.Logger
}

// New resolves the enabled candidates and their grids from cfg. Candidates
// keep roster order regardless of the order they are listed in.
func New(cfg config.Config, store *artifact.Store, runID string, logger log.Logger) (*Trainer, error) {
	if logger == nil {
		logger = log.Nop()
	}
	enabled := make(map[Candidate]bool)
	for _, name := range cfg.Candidates {
		c, err := ParseCandidate(name)
		if err != nil {
			return nil, err
		}
		enabled[c] = true
	}

	t := &Trainer{
		grids:     make(map[Candidate]modelselection.ParamGrid),
		threshold: cfg.Threshold,
		folds:     cfg.CVFolds,
		seed:      cfg.Seed,
		workers:   cfg.Workers,
		plotPath:  cfg.ReportPlot,
		store:     store,
		runID:     runID,
		logger: logger.With(
			log.StageKey, string(errors.StageTraining),
			log.RunIDKey, runID,
		),
	}
	for _, c := range DefaultRoster() {
		if len(enabled) == 0 || enabled[c] {
			t.roster = append(t.roster, c)
			t.grids[c] = c.DefaultGrid()
		}
	}

	for name, override := range cfg.Grids {
		c, err := ParseCandidate(name)
		if err != nil {
			return nil, err
		}
		grid := modelselection.ParamGrid(override)
		if err := grid.Validate(); err != nil {
			return nil, err
		}
		t.grids[c] = grid
	}
	return t, nil
}

// Roster returns the candidates this trainer evaluates.
func (t *Trainer) Roster() []Candidate { return append([]Candidate(nil), t.roster...) }

// Run trains every candidate on train, scores it on test and persists the
// winner. Both matrices carry the target as their last column.
//
// A winner below the threshold yields the report together with a
// ModelQualityError; no model artifact is written in that case.
func (t *Trainer) Run(ctx context.Context, train, test *mat.Dense) (*Report, error) {
	start := time.Now()
	Xtrain, ytrain := transform.SplitXY(train)
	Xtest, ytest := transform.SplitXY(test)

	t.logger.Info("training started",
		log.TrainSamplesKey, ytrain.Len(),
		log.TestSamplesKey, ytest.Len(),
		log.ThresholdKey, t.threshold,
	)

	report := &Report{RunID: t.runID, Threshold: t.threshold, Winner: -1}
	for _, c := range t.roster {
		entry, err := t.evaluate(ctx, c, Xtrain, ytrain, Xtest, ytest)
		if err != nil {
			return nil, errors.Wrapf(err, "training %s", c)
		}
		report.Entries = append(report.Entries, entry)
	}
	if len(report.Entries) == 0 {
		return nil, errors.NewModelError("Trainer.Run", "no candidates enabled", nil)
	}

	report.Winner = selectBest(report.Entries)
	if report.Winner < 0 {
		return nil, errors.NewModelError("Trainer.Run", "no candidate produced a finite score", nil)
	}
	best := report.Best()

	if t.plotPath != "" {
		if err := report.SavePlot(t.plotPath); err != nil {
			t.logger.Warn("report plot not written", err, log.ArtifactKey, t.plotPath)
		}
	}

	if best.Score < t.threshold {
		t.logger.Warn("no candidate reached threshold",
			log.CandidateKey, best.Name,
			log.R2ScoreKey, best.Score,
			log.ThresholdKey, t.threshold,
		)
		return report, errors.NewModelQualityError(best.Name, best.Score, t.threshold)
	}

	weights, err := best.estimator.ExportWeights()
	if err != nil {
		return nil, errors.Wrapf(err, "exporting %s", best.Name)
	}
	if err := t.store.SaveEnvelope(artifact.ModelFile, model.KindModel, t.runID, weights); err != nil {
		return nil, errors.Wrap(err, "saving model")
	}

	t.logger.Info("training complete",
		log.CandidateKey, best.Name,
		log.R2ScoreKey, best.Score,
		log.HyperParamsKey, best.BestParams,
		log.ArtifactKey, t.store.Path(artifact.ModelFile),
		log.DurationMsKey, time.Since(start),
	)
	return report, nil
}

func (t *Trainer) evaluate(ctx context.Context, c Candidate, Xtrain *mat.Dense, ytrain *mat.VecDense, Xtest *mat.Dense, ytest *mat.VecDense) (Entry, error) {
	start := time.Now()
	logger := t.logger.With(log.CandidateKey, c.DisplayName())

	gs := modelselection.NewGridSearchCV(c.New, t.grids[c],
		modelselection.WithCV(modelselection.NewKFold(t.folds, true, t.seed)),
		modelselection.WithWorkers(t.workers),
		modelselection.WithLogger(logger),
	)
	if err := gs.Fit(ctx, Xtrain, ytrain); err != nil {
		return Entry{}, err
	}

	pred, err := gs.BestEstimator.Predict(Xtest)
	if err != nil {
		return Entry{}, err
	}
	score, err := metrics.R2Score(ytest, pred)
	if err != nil {
		return Entry{}, err
	}

	logger.Info("candidate scored",
		log.R2ScoreKey, score,
		log.HyperParamsKey, gs.BestParams,
		log.DurationMsKey, time.Since(start),
	)
	return Entry{
		Candidate:  c,
		Name:       c.DisplayName(),
		Score:      score,
		CVScore:    gs.BestScore,
		BestParams: gs.BestParams,
		estimator:  gs.BestEstimator,
	}, nil
}
