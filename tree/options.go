package tree

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the depth of the tree. The root is at depth 0; 0
// means no limit.
func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeRegressor) { t.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum number of samples a node needs
// before a split is attempted.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples each child of a
// split must keep.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesLeaf = n }
}

// WithWorkers bounds the goroutines used to search features for the best
// split. 0 uses one per CPU.
func WithWorkers(n int) Option {
	return func(t *DecisionTreeRegressor) { t.workers = n }
}
