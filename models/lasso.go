package models

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultLambda     = 1.0
	DefaultIterations = 1000
	DefaultTolerance  = 1e-4
)

var (
	ErrNegativeLambda     = errors.New("negative lambda")
	ErrNegativeIterations = errors.New("negative iterations")
	ErrNegativeTolerance  = errors.New("negative tolerance")
	ErrWarmStartBetaSize  = errors.New("warm start beta does not have the same number of coefficients as training features")
	ErrUnpenalizedIndex   = errors.New("unpenalized feature index out of range")
)

// LassoOptions configures the coordinate descent of the L1 regularized fit
type LassoOptions struct {
	// WarmStartBeta seeds the coefficients, intercept first when FitIntercept is set. Refits on
	// overlapping windows converge in fewer passes when seeded with the previous fit.
	WarmStartBeta []float64

	// Lambda is the L1 penalty applied to every coefficient except the intercept and the
	// Unpenalized columns. 0 converges to ordinary least squares.
	Lambda float64

	// Iterations caps the number of passes over all coefficients
	Iterations int

	// Tolerance stops the descent once the largest coefficient change of a pass falls below
	// Tolerance times the largest coefficient magnitude
	Tolerance float64

	// FitIntercept prepends a constant 1.0 feature
	FitIntercept bool

	// Unpenalized lists columns of the design matrix left out of the L1 penalty, such as an
	// intercept column supplied by the caller
	Unpenalized []int
}

// Validate returns the default options for nil and rejects negative settings
func (l *LassoOptions) Validate() (*LassoOptions, error) {
	if l == nil {
		l = NewDefaultLassoOptions()
	}

	if l.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	if l.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if l.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	return l, nil
}

func NewDefaultLassoOptions() *LassoOptions {
	return &LassoOptions{
		Lambda:       DefaultLambda,
		Iterations:   DefaultIterations,
		Tolerance:    DefaultTolerance,
		FitIntercept: true,
	}
}

// LassoRegression fits an L1 regularized linear model with cyclic coordinate descent. The
// residual is updated in place after every coordinate step so a pass costs one dot product and
// one scaled add per active feature.
type LassoRegression struct {
	opt *LassoOptions

	cols   [][]float64
	sqNorm []float64
	free   []bool

	iterations int
	converged  bool

	coef      []float64
	intercept float64
}

// NewLassoRegression initializes a Lasso model ready for fitting
func NewLassoRegression(opt *LassoOptions) (*LassoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data
func (l *LassoRegression) Fit(x, y mat.Matrix) error {
	x, y, err := l.fitValidate(x, y)
	if err != nil {
		return err
	}
	m, n := x.Dims()
	l.columns(x)

	beta := make([]float64, n)
	if l.opt.WarmStartBeta != nil {
		copy(beta, l.opt.WarmStartBeta)
	}

	// residual = y - x*beta
	residual := mat.Col(nil, 0, y)
	for j, b := range beta {
		if b != 0 {
			floats.AddScaled(residual, -b, l.cols[j])
		}
	}

	l.iterations, l.converged = 0, false
	for l.iterations < l.opt.Iterations {
		l.iterations++

		var maxCoef, maxUpdate float64
		for j := 0; j < n; j++ {
			// zeroed coefficients leave the active set after the first pass
			if l.iterations > 1 && beta[j] == 0 {
				continue
			}
			// an all zero feature carries no signal
			if l.sqNorm[j] == 0 {
				continue
			}

			col := l.cols[j]
			next := beta[j] + floats.Dot(col, residual)/l.sqNorm[j]
			if !l.free[j] {
				next = SoftThreshold(next, l.opt.Lambda/l.sqNorm[j])
			}

			delta := next - beta[j]
			if delta != 0 {
				floats.AddScaled(residual, -delta, col)
				beta[j] = next
			}
			maxCoef = math.Max(maxCoef, math.Abs(next))
			maxUpdate = math.Max(maxUpdate, math.Abs(delta))
		}

		if maxUpdate <= l.opt.Tolerance*maxCoef {
			l.converged = true
			break
		}
	}
	if !l.converged {
		slog.Debug("lasso did not converge", "iterations", l.iterations, "observations", m, "features", n)
	}

	if l.opt.FitIntercept {
		l.intercept = beta[0]
		l.coef = beta[1:]
		return nil
	}
	l.intercept = 0
	l.coef = beta
	return nil
}

func (l *LassoRegression) fitValidate(x, y mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	if l.opt == nil {
		return nil, nil, ErrNoOptions
	}
	if x == nil {
		return nil, nil, ErrNoTrainingMatrix
	}
	if y == nil {
		return nil, nil, ErrNoTargetMatrix
	}

	m, n := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return nil, nil, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	if l.opt.FitIntercept {
		x = withOnes(x)
		_, n = x.Dims()
	}

	if l.opt.WarmStartBeta != nil && len(l.opt.WarmStartBeta) != n {
		return nil, nil, fmt.Errorf("warm start beta has %d features instead of %d, %w", len(l.opt.WarmStartBeta), n, ErrWarmStartBetaSize)
	}

	l.free = make([]bool, n)
	offset := 0
	if l.opt.FitIntercept {
		l.free[0] = true
		offset = 1
	}
	for _, idx := range l.opt.Unpenalized {
		if idx < 0 || idx+offset >= n {
			return nil, nil, fmt.Errorf("index %d with %d features, %w", idx, n-offset, ErrUnpenalizedIndex)
		}
		l.free[idx+offset] = true
	}
	return x, y, nil
}

// columns caches every feature column and its squared norm
func (l *LassoRegression) columns(x mat.Matrix) {
	_, n := x.Dims()
	l.cols = make([][]float64, n)
	l.sqNorm = make([]float64, n)
	for j := 0; j < n; j++ {
		l.cols[j] = mat.Col(nil, j, x)
		l.sqNorm[j] = floats.Dot(l.cols[j], l.cols[j])
	}
}

// Predict using the Lasso model
func (l *LassoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if l.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}

	m, xn := x.Dims()
	if xn != len(l.coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, len(l.coef), ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	if xn > 0 {
		var out mat.VecDense
		out.MulVec(x, mat.NewVecDense(xn, l.coef))
		mat.Col(res, 0, &out)
	}
	floats.AddConst(l.intercept, res)
	return res, nil
}

// Score computes the coefficient of determination of the prediction
func (l *LassoRegression) Score(x, y mat.Matrix) (float64, error) {
	if l.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()

	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := l.Predict(x)
	if err != nil {
		return 0.0, err
	}

	score := stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil)
	if math.IsNaN(score) {
		score = 1.0
	}
	return score, nil
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (l *LassoRegression) Intercept() float64 {
	return l.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (l *LassoRegression) Coef() []float64 {
	c := make([]float64, len(l.coef))
	copy(c, l.coef)
	return c
}

// Iterations is the number of coordinate descent passes the last fit ran
func (l *LassoRegression) Iterations() int {
	return l.iterations
}

// Converged reports whether the last fit reached the tolerance before the iteration cap
func (l *LassoRegression) Converged() bool {
	return l.converged
}

// SoftThreshold shrinks x towards 0 by gamma, returning 0 when |x| <= gamma
func SoftThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}
