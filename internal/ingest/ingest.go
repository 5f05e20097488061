// Package ingest reads the raw student dataset and writes the seeded
// train/test split.
package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/YuminosukeSato/scorecast/dataset"
	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/modelselection"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
)

// Result holds the artifact paths and row counts of one ingestion.
type Result struct {
	DataPath  string
	TrainPath string
	TestPath  string
	TrainRows int
	TestRows  int
}

// Ingestor copies the source CSV into the artifact directory and splits it.
type Ingestor struct {
	sourcePath string
	testSize   float64
	seed       uint64
	store      *artifact.Store
	logger     log.Logger
}

// New creates an Ingestor from the pipeline configuration.
func New(cfg config.Config, store *artifact.Store, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Ingestor{
		sourcePath: cfg.SourcePath,
		testSize:   cfg.TestSize,
		seed:       cfg.Seed,
		store:      store,
		logger:     logger.With(log.StageKey, string(errors.StageIngestion)),
	}
}

// Run reads the source, shuffles the rows with the configured seed and
// writes data.csv (a byte copy of the source), train.csv and test.csv in a
// single commit. The same seed and source always produce byte-identical
// files.
func (in *Ingestor) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	in.logger.Info("ingestion started", log.ArtifactKey, in.sourcePath)

	raw, err := os.ReadFile(in.sourcePath)
	if err != nil {
		return nil, errors.NewIngestionError(in.sourcePath, "reading source", err)
	}
	frame, err := dataset.ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.NewIngestionError(in.sourcePath, "parsing source", err)
	}
	if frame.NRows() == 0 {
		return nil, errors.NewIngestionError(in.sourcePath, "source has no data rows", errors.ErrEmptyData)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewIngestionError(in.sourcePath, "cancelled", err)
	}

	trainIdx, testIdx, err := modelselection.TrainTestSplit(frame.NRows(), in.testSize, in.seed)
	if err != nil {
		return nil, errors.NewIngestionError(in.sourcePath, "splitting rows", err)
	}
	train := frame.Take(trainIdx)
	test := frame.Take(testIdx)

	err = in.store.Commit(
		artifact.File{Name: artifact.DataFile, Write: func(w io.Writer) error {
			_, err := w.Write(raw)
			return err
		}},
		artifact.File{Name: artifact.TrainFile, Write: train.WriteCSV},
		artifact.File{Name: artifact.TestFile, Write: test.WriteCSV},
	)
	if err != nil {
		return nil, errors.NewIngestionError(in.sourcePath, "writing split artifacts", err)
	}

	res := &Result{
		DataPath:  in.store.Path(artifact.DataFile),
		TrainPath: in.store.Path(artifact.TrainFile),
		TestPath:  in.store.Path(artifact.TestFile),
		TrainRows: train.NRows(),
		TestRows:  test.NRows(),
	}
	in.logger.Info("ingestion complete",
		log.SamplesKey, frame.NRows(),
		log.TrainSamplesKey, res.TrainRows,
		log.TestSamplesKey, res.TestRows,
		log.DurationMsKey, time.Since(start),
	)
	return res, nil
}
