// Package diagnostics evaluates a forecaster with rolling origin cross validation and summarizes
// the prediction errors by forecast horizon.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	forecaster "github.com/aouyang1/go-forecaster-studio"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoCutoffs           = errors.New("no cutoffs available, make horizon or initial shorter")
	ErrInvalidHorizon      = errors.New("horizon must be positive")
	ErrLessDataThanHorizon = errors.New("less data than horizon")
)

// CVRow is a single prediction made from a model trained on data up to and including Cutoff
type CVRow struct {
	Timestamp time.Time `json:"ds"`
	Predicted float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
	Actual    float64   `json:"y"`
	Cutoff    time.Time `json:"cutoff"`
}

// CVOptions configures the cross validation windows. Period defaults to half the horizon and
// Initial to three horizons.
type CVOptions struct {
	Horizon time.Duration
	Period  time.Duration
	Initial time.Duration

	// Parallelism bounds the number of cutoffs fit at once, defaulting to GOMAXPROCS
	Parallelism int

	// NewForecaster builds the model refit at every cutoff, defaulting to forecaster.New(nil)
	NewForecaster func() (*forecaster.Forecaster, error)

	// Progress is called after each cutoff completes. Calls are serialized.
	Progress func(done, total int)
}

func (o CVOptions) withDefaults() CVOptions {
	if o.Period <= 0 {
		o.Period = o.Horizon / 2
	}
	if o.Initial <= 0 {
		o.Initial = 3 * o.Horizon
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.NewForecaster == nil {
		o.NewForecaster = func() (*forecaster.Forecaster, error) {
			return forecaster.New(nil)
		}
	}
	return o
}

// GenerateCutoffs walks backwards from the last time minus the horizon in steps of period while
// the cutoff leaves at least initial worth of training data. A cutoff with no data inside
// (cutoff, cutoff+horizon] jumps to the last time at or before it minus the horizon. Cutoffs
// are returned in ascending order. t must be sorted ascending.
func GenerateCutoffs(t []time.Time, horizon, period, initial time.Duration) ([]time.Time, error) {
	if horizon <= 0 {
		return nil, ErrInvalidHorizon
	}
	if len(t) == 0 {
		return nil, ErrNoCutoffs
	}
	if period <= 0 {
		period = horizon / 2
	}
	minT, maxT := t[0], t[len(t)-1]

	cutoff := maxT.Add(-horizon)
	if cutoff.Before(minT) {
		return nil, ErrLessDataThanHorizon
	}

	result := []time.Time{cutoff}
	for !result[len(result)-1].Before(minT.Add(initial)) {
		cutoff = cutoff.Add(-period)
		if !hasDataIn(t, cutoff, cutoff.Add(horizon)) && cutoff.After(minT) {
			cutoff = lastAtOrBefore(t, cutoff).Add(-horizon)
		}
		result = append(result, cutoff)
	}
	result = result[:len(result)-1]
	if len(result) == 0 {
		return nil, ErrNoCutoffs
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// hasDataIn reports whether any time falls in (start, end]
func hasDataIn(t []time.Time, start, end time.Time) bool {
	for _, tPnt := range t {
		if tPnt.After(start) && !tPnt.After(end) {
			return true
		}
	}
	return false
}

func lastAtOrBefore(t []time.Time, cutoff time.Time) time.Time {
	last := t[0]
	for _, tPnt := range t {
		if tPnt.After(cutoff) {
			break
		}
		last = tPnt
	}
	return last
}

// CrossValidation refits a forecaster at every cutoff on the data at or before the cutoff and
// predicts the data inside (cutoff, cutoff+horizon]. NaN values are dropped before generating
// cutoffs. Rows are returned ordered by cutoff then time. Cutoffs are fit concurrently and the
// first error or a cancelled context stops the remaining work.
func CrossValidation(ctx context.Context, t []time.Time, y []float64, opt CVOptions) ([]CVRow, error) {
	if opt.Horizon <= 0 {
		return nil, ErrInvalidHorizon
	}
	opt = opt.withDefaults()

	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return nil, fmt.Errorf("unable to create cross validation dataset, %w", err)
	}
	td = td.DropNaN()

	cutoffs, err := GenerateCutoffs(td.T, opt.Horizon, opt.Period, opt.Initial)
	if err != nil {
		return nil, err
	}
	slog.Debug("running cross validation",
		"cutoffs", len(cutoffs),
		"horizon", opt.Horizon.String(),
		"period", opt.Period.String(),
		"initial", opt.Initial.String(),
	)

	results := make([][]CVRow, len(cutoffs))
	var mu sync.Mutex
	var done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Parallelism)
	for i, cutoff := range cutoffs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := fitCutoff(td, cutoff, opt)
			if err != nil {
				return fmt.Errorf("unable to cross validate cutoff %s, %w", cutoff.Format(time.RFC3339), err)
			}
			results[i] = rows

			mu.Lock()
			done++
			if opt.Progress != nil {
				opt.Progress(done, len(cutoffs))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []CVRow
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

func fitCutoff(td *timedataset.TimeDataset, cutoff time.Time, opt CVOptions) ([]CVRow, error) {
	train := td.Before(cutoff)
	eval := td.Between(cutoff, cutoff.Add(opt.Horizon))

	f, err := opt.NewForecaster()
	if err != nil {
		return nil, err
	}
	if err := f.Fit(train.T, train.Y); err != nil {
		return nil, err
	}
	res, err := f.Predict(eval.T)
	if err != nil {
		return nil, err
	}

	rows := make([]CVRow, len(eval.T))
	for i := range eval.T {
		rows[i] = CVRow{
			Timestamp: eval.T[i],
			Predicted: res.Forecast[i],
			Lower:     res.Lower[i],
			Upper:     res.Upper[i],
			Actual:    eval.Y[i],
			Cutoff:    cutoff,
		}
	}
	return rows, nil
}
