package diagnostics

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const DefaultRollingWindow = 0.1

// values of |y| at or below this skip the percentage errors
const minAbsActual = 1e-8

var ErrNoRows = errors.New("no cross validation rows")

// MetricRow holds the prediction error statistics for a forecast horizon. MAPE and MdAPE are NaN
// when an actual value is too close to zero to divide by.
type MetricRow struct {
	Horizon  time.Duration `json:"horizon"`
	MSE      float64       `json:"mse"`
	RMSE     float64       `json:"rmse"`
	MAE      float64       `json:"mae"`
	MAPE     float64       `json:"mape"`
	MdAPE    float64       `json:"mdape"`
	SMAPE    float64       `json:"smape"`
	Coverage float64       `json:"coverage"`
}

// PerformanceMetrics summarizes cross validation rows by horizon, the time from cutoff to
// prediction. Each horizon pools the rows at that horizon with the rows of the preceding horizons
// until rollingWindow of all rows are covered. A negative rollingWindow computes every horizon on
// its own rows alone. Horizons without enough preceding rows to fill the window are dropped.
func PerformanceMetrics(rows []CVRow, rollingWindow float64) ([]MetricRow, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	sorted := make([]CVRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Sub(sorted[i].Cutoff) < sorted[j].Timestamp.Sub(sorted[j].Cutoff)
	})

	n := len(sorted)
	w := int(rollingWindow * float64(n))
	if w >= 0 {
		w = max(w, 1)
		w = min(w, n)
	}

	h := make([]time.Duration, n)
	se := make([]float64, n)
	ae := make([]float64, n)
	ape := make([]float64, n)
	sape := make([]float64, n)
	covered := make([]float64, n)
	skipPercent := false
	for i, r := range sorted {
		h[i] = r.Timestamp.Sub(r.Cutoff)
		diff := r.Actual - r.Predicted
		se[i] = diff * diff
		ae[i] = math.Abs(diff)
		if math.Abs(r.Actual) <= minAbsActual {
			skipPercent = true
		} else {
			ape[i] = math.Abs(diff / r.Actual)
		}
		if denom := math.Abs(r.Actual) + math.Abs(r.Predicted); denom > 0 {
			sape[i] = 2 * math.Abs(diff) / denom
		}
		if r.Actual >= r.Lower && r.Actual <= r.Upper {
			covered[i] = 1
		}
	}
	if skipPercent {
		slog.Warn("skipping MAPE and MdAPE because some actual values are close to 0")
	}

	hs, mse := rollingMeanByH(se, h, w)
	_, mae := rollingMeanByH(ae, h, w)
	_, smape := rollingMeanByH(sape, h, w)
	_, coverage := rollingMeanByH(covered, h, w)
	_, mape := rollingMeanByH(ape, h, w)
	medHs, mdape := rollingMedianByH(ape, h, w)

	mdapeByH := make(map[time.Duration]float64, len(medHs))
	for i, hz := range medHs {
		mdapeByH[hz] = mdape[i]
	}

	out := make([]MetricRow, 0, len(hs))
	for i, hz := range hs {
		md, exists := mdapeByH[hz]
		if !exists {
			continue
		}
		row := MetricRow{
			Horizon:  hz,
			MSE:      mse[i],
			RMSE:     math.Sqrt(mse[i]),
			MAE:      mae[i],
			MAPE:     mape[i],
			MdAPE:    md,
			SMAPE:    smape[i],
			Coverage: coverage[i],
		}
		if skipPercent {
			row.MAPE = math.NaN()
			row.MdAPE = math.NaN()
		}
		out = append(out, row)
	}
	return out, nil
}

// groupByH returns the distinct horizons of h, which must be sorted, with the index range of each
func groupByH(h []time.Duration) ([]time.Duration, [][2]int) {
	var hs []time.Duration
	var bounds [][2]int
	for i := 0; i < len(h); {
		j := i
		for j < len(h) && h[j] == h[i] {
			j++
		}
		hs = append(hs, h[i])
		bounds = append(bounds, [2]int{i, j})
		i = j
	}
	return hs, bounds
}

// rollingMeanByH averages x over a trailing window of w points ending at each horizon, working
// backwards from the largest horizon. The oldest horizon pulled into a window is weighted so the
// window holds exactly w points.
func rollingMeanByH(x []float64, h []time.Duration, w int) ([]time.Duration, []float64) {
	hs, bounds := groupByH(h)
	xs := make([]float64, len(hs))
	ns := make([]float64, len(hs))
	for i, b := range bounds {
		for k := b[0]; k < b[1]; k++ {
			xs[i] += x[k]
		}
		ns[i] = float64(b[1] - b[0])
	}

	if w < 0 {
		res := make([]float64, len(hs))
		for i := range hs {
			res[i] = xs[i] / ns[i]
		}
		return hs, res
	}

	wf := float64(w)
	trailing := len(hs) - 1
	var xSum, nSum float64
	res := make([]float64, len(hs))
	for i := len(hs) - 1; i >= 0; i-- {
		xSum += xs[i]
		nSum += ns[i]
		for nSum >= wf {
			excessN := nSum - wf
			excessX := excessN * xs[i] / ns[i]
			res[trailing] = (xSum - excessX) / wf
			xSum -= xs[trailing]
			nSum -= ns[trailing]
			trailing--
		}
	}
	return hs[trailing+1:], res[trailing+1:]
}

// rollingMedianByH takes the median of the points at each horizon topped up with points from the
// preceding horizons until there are at least w points.
func rollingMedianByH(x []float64, h []time.Duration, w int) ([]time.Duration, []float64) {
	hs, bounds := groupByH(h)

	var resH []time.Duration
	var resX []float64
	for i := len(hs) - 1; i >= 0; i-- {
		b := bounds[i]
		xs := append([]float64(nil), x[b[0]:b[1]]...)
		for next := b[0] - 1; len(xs) < w && next >= 0; next-- {
			xs = append(xs, x[next])
		}
		if len(xs) < w {
			break
		}
		resH = append(resH, hs[i])
		resX = append(resX, median(xs))
	}

	for i, j := 0, len(resH)-1; i < j; i, j = i+1, j-1 {
		resH[i], resH[j] = resH[j], resH[i]
		resX[i], resX[j] = resX[j], resX[i]
	}
	return resH, resX
}

func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	// even counts average the two middle values
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}
