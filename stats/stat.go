package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aouyang1/go-forecaster-studio/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMinimumFeatures    = errors.New("need at least 2 features to compute VIF")
	ErrFeatureLenMismatch = errors.New("some feature length is not consistent")
	ErrFeatureLen         = errors.New("must have at least 2 points per feature")
	ErrInvalidWindow      = errors.New("window must be at least 2 points")
)

// DetectOutliers returns the indexes of values outside the Tukey fences built from the
// lower and upper percentiles. NaNs are never outliers.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			yCopy = append(yCopy, v)
		}
	}
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)

	lower := stat.Quantile(lowerPerc, stat.Empirical, yCopy, nil)
	upper := stat.Quantile(upperPerc, stat.Empirical, yCopy, nil)
	innerRange := upper - lower
	if innerRange == 0 {
		return nil
	}
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// RollingStdDev computes the standard deviation of every full window of values. The output
// has len(values)-window+1 points.
func RollingStdDev(values []float64, window int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("got %d, %w", window, ErrInvalidWindow)
	}
	numWindows := len(values) - window + 1
	if numWindows < 1 {
		return nil, nil
	}
	out := make([]float64, numWindows)
	for i := 0; i < numWindows; i++ {
		_, stddev := stat.MeanStdDev(values[i:i+window], nil)
		out[i] = stddev
	}
	return out, nil
}

// VarianceInflationFactor regresses every feature against all others and reports 1/(1-R2).
// Large values flag features that are nearly a linear combination of the rest.
func VarianceInflationFactor(features map[string][]float64) (map[string]float64, error) {
	if len(features) < 2 {
		return nil, ErrMinimumFeatures
	}
	n := len(features)
	var m int
	labels := make([]string, 0, n)
	for label, feature := range features {
		if len(feature) < 2 {
			return nil, ErrFeatureLen
		}
		if m == 0 {
			m = len(feature)
		}
		if m != len(feature) {
			return nil, ErrFeatureLenMismatch
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)

	vif := make(map[string]float64, n)
	x := mat.NewDense(m, n-1, nil)
	for _, label := range labels {
		c := 0
		for _, otherLabel := range labels {
			if otherLabel == label {
				continue
			}
			x.SetCol(c, features[otherLabel])
			c++
		}
		y := mat.NewDense(m, 1, features[label])

		model, err := models.NewOLSRegression(models.NewDefaultOLSOptions())
		if err != nil {
			return nil, err
		}
		if err := model.Fit(x, y); err != nil {
			return nil, fmt.Errorf("unable to regress %s, %w", label, err)
		}
		r2, err := model.Score(x, y)
		if err != nil {
			return nil, fmt.Errorf("unable to score %s, %w", label, err)
		}
		if r2 >= 1.0 {
			vif[label] = math.Inf(1)
			continue
		}
		vif[label] = 1.0 / (1.0 - r2)
	}
	return vif, nil
}
