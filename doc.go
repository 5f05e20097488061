// Package scorecast predicts a student's math score from demographic fields
// and the reading and writing scores.
//
// The repository is a small batch pipeline plus a prediction server:
//
//	raw CSV -> ingest -> {train.csv, test.csv}
//	        -> transform -> preprocessor.json
//	        -> trainer -> model.json
//	request -> predict (preprocessor.json + model.json) -> score
//
// # Quick Start
//
// Train on the default dataset and serve the form:
//
//	scorecast train -config scorecast.yaml
//	scorecast serve -addr :8080
//
// Or predict one row from the command line:
//
//	scorecast predict \
//	    -field gender=female -field race_ethnicity="group B" \
//	    -field parental_level_of_education="bachelor's degree" \
//	    -field lunch=standard -field test_preparation_course=none \
//	    -field reading_score=72 -field writing_score=74
//
// # Packages
//
// The library is organized into several packages:
//
//   - dataset: string-typed frames, CSV I/O and missing-value rules
//   - preprocessing: imputers, scalers, one-hot encoding, ColumnTransformer
//   - linear: LinearRegression, Ridge, Lasso
//   - tree: DecisionTreeRegressor
//   - neighbors: KNeighborsRegressor
//   - modelselection: train/test split, K-fold, GridSearchCV
//   - metrics: Evaluation metrics (MSE, RMSE, MAE, R²)
//   - core/model: estimator interfaces, fitted state, persisted weights and
//     the checksummed artifact envelope
//   - core/parallel: Parallel processing utilities
//   - pkg/errors, pkg/log: stage errors, warnings and structured logging
//   - internal/...: the pipeline stages, configuration, server and CLI glue
//
// # Artifacts
//
// Fitted objects are stored as JSON envelopes carrying a format version,
// the training run ID and an xxhash checksum of the payload. Only numeric
// parameters are stored: scaler statistics, encoder categories, linear
// coefficients, tree nodes or the KNN training set.
//
// # Performance
//
// Grid combinations are evaluated concurrently, KNN prediction splits large
// batches across CPU cores and tree split search runs one feature per
// worker. Results are collected by index, so every run with the same seed
// produces the same report.
package scorecast
