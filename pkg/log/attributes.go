// Standard attribute keys. Keys are dotted so log processors can group them
// ("model.*", "data.*", "pipeline.*").

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "Ridge" or
	// "StandardScaler".
	ModelNameKey = "model.name"

	// OperationKey is the estimator operation: fit, predict, transform, score.
	OperationKey = "ml.operation"

	// ComponentKey names the package or stage emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: training, validation, inference.
	PhaseKey = "ml.phase"

	// HyperParamsKey holds the hyperparameter map of a grid-search setting.
	HyperParamsKey = "model.hyperparams"
)

// Pipeline context.
const (
	// StageKey is one of ingestion, transformation, training, prediction.
	StageKey = "pipeline.stage"

	// RunIDKey is the UUID of a training run. It is also written into every
	// artifact produced by that run.
	RunIDKey = "pipeline.run_id"

	// ArtifactKey is the path of an artifact being read or written.
	ArtifactKey = "pipeline.artifact"

	// CandidateKey names the roster candidate under evaluation.
	CandidateKey = "pipeline.candidate"

	// FoldKey is the cross-validation fold index.
	FoldKey = "pipeline.fold"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnKey   = "data.column"

	// TrainSamplesKey and TestSamplesKey report split sizes.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"
)

// Metrics and timing.
const (
	DurationMsKey = "perf.duration_ms"
	R2ScoreKey    = "metrics.r2_score"
	IterationKey  = "training.iteration"

	// ThresholdKey is the minimum acceptable R² for the winning model.
	ThresholdKey = "metrics.threshold"
)

// Prediction.
const (
	PredsKey = "preds.count"
)

// Errors.
const (
	// ErrAttrKey is the key under which errors are logged.
	ErrAttrKey = "error"

	// StacktraceAttrKey holds the stack extracted from a cockroachdb/errors
	// error.
	StacktraceAttrKey = "stacktrace"

	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
