package linear

// Option configures a linear model. Options that do not apply to a model
// are ignored by it (Alpha for LinearRegression, MaxIter for Ridge).
type Option func(*config)

type config struct {
	fitIntercept bool
	alpha        float64
	maxIter      int
	tol          float64
}

func defaultConfig() config {
	return config{
		fitIntercept: true,
		alpha:        1.0,
		maxIter:      1000,
		tol:          1e-4,
	}
}

func newConfig(opts []Option) config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(c *config) { c.fitIntercept = fit }
}

// WithAlpha sets the regularization strength of Ridge and Lasso.
func WithAlpha(alpha float64) Option {
	return func(c *config) { c.alpha = alpha }
}

// WithMaxIter sets the coordinate descent iteration limit of Lasso.
func WithMaxIter(n int) Option {
	return func(c *config) { c.maxIter = n }
}

// WithTol sets the tolerance for the optimization
func WithTol(tol float64) Option {
	return func(c *config) { c.tol = tol }
}
