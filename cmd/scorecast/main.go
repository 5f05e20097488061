package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/YuminosukeSato/scorecast/internal/artifact"
	"github.com/YuminosukeSato/scorecast/internal/config"
	"github.com/YuminosukeSato/scorecast/internal/ingest"
	"github.com/YuminosukeSato/scorecast/internal/predict"
	"github.com/YuminosukeSato/scorecast/internal/server"
	"github.com/YuminosukeSato/scorecast/internal/trainer"
	"github.com/YuminosukeSato/scorecast/internal/transform"
	"github.com/YuminosukeSato/scorecast/internal/version"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
)

func usage(w io.Writer) {
	fmt.Fprintf(w, "scorecast - student performance regression (version %s)\n\n", version.Version)
	fmt.Fprintf(w, "Usage: scorecast <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  train\n\t\tIngest the source CSV, fit the preprocessor and select a model\n")
	fmt.Fprintf(w, "  serve\n\t\tServe the prediction form\n")
	fmt.Fprintf(w, "  predict -field name=value ...\n\t\tPredict one row from the command line\n")
	fmt.Fprintf(w, "  version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(w, "\nRun 'scorecast <command> -h' for command options.\n")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "train":
		err = runTrain(args[1:], stdout, stderr)
	case "serve":
		err = runServe(args[1:], stderr)
	case "predict":
		err = runPredict(args[1:], stdout, stderr)
	case "version", "-v", "--version":
		fmt.Fprint(stdout, version.Info().String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "scorecast %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// setup parses the common flags and returns the configuration and a logger
// writing to stderr.
func setup(fs *flag.FlagSet, args []string, stderr io.Writer) (config.Config, log.Logger, error) {
	configFile := fs.String("config", "", "YAML or JSON configuration file")
	artifactDir := fs.String("artifacts", "", "artifact directory (overrides the configuration)")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if *artifactDir != "" {
		cfg.ArtifactDir = *artifactDir
	}

	provider := log.NewZerologProviderWithWriter(stderr, cfg.Level())
	provider.CaptureWarnings()
	return cfg, provider.GetLoggerWithName("scorecast"), nil
}

func runTrain(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	source := fs.String("source", "", "raw CSV to ingest (overrides the configuration)")
	plot := fs.String("plot", "", "write a score chart to this file")
	cfg, logger, err := setupWith(fs, args, stderr, func(cfg *config.Config) {
		if *source != "" {
			cfg.SourcePath = *source
		}
		if *plot != "" {
			cfg.ReportPlot = *plot
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := artifact.NewRunID()
	logger = logger.With(log.RunIDKey, runID)
	store := artifact.NewStore(cfg.ArtifactDir, logger)

	ing, err := ingest.New(cfg, store, logger).Run(ctx)
	if err != nil {
		return err
	}
	tr, err := transform.New(cfg, store, runID, logger).Run(ctx, ing.TrainPath, ing.TestPath)
	if err != nil {
		return err
	}
	tn, err := trainer.New(cfg, store, runID, logger)
	if err != nil {
		return err
	}
	report, err := tn.Run(ctx, tr.Train, tr.Test)
	if report != nil {
		fmt.Fprint(stdout, report.String())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved %s (run %s)\n", cfg.Path(artifact.ModelFile), runID)
	return nil
}

// setupWith is setup followed by command-specific overrides.
func setupWith(fs *flag.FlagSet, args []string, stderr io.Writer, override func(*config.Config)) (config.Config, log.Logger, error) {
	cfg, logger, err := setup(fs, args, stderr)
	if err != nil {
		return cfg, logger, err
	}
	override(&cfg)
	return cfg, logger, nil
}

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "listen address (overrides the configuration)")
	cfg, logger, err := setupWith(fs, args, stderr, func(cfg *config.Config) {
		if *addr != "" {
			cfg.ServerAddr = *addr
		}
	})
	if err != nil {
		return err
	}

	store := artifact.NewStore(cfg.ArtifactDir, logger)
	srv, err := server.New(cfg.ServerAddr, predict.New(store, logger), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}

// fieldFlag collects repeated -field name=value pairs.
type fieldFlag map[string]string

func (f fieldFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + f[k]
	}
	return strings.Join(parts, ",")
}

func (f fieldFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("field must be name=value, got %q", s)
	}
	f[name] = value
	return nil
}

func runPredict(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fields := fieldFlag{}
	fs.Var(fields, "field", "feature value as name=value (repeatable)")
	cfg, logger, err := setup(fs, args, stderr)
	if err != nil {
		return err
	}

	p := predict.New(artifact.NewStore(cfg.ArtifactDir, logger), logger)
	v, err := p.Predict(context.Background(), predict.Features(fields))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%.4f\n", v)
	return nil
}
