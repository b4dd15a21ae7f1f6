package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	forecaster "github.com/aouyang1/go-forecaster-studio"
	"github.com/aouyang1/go-forecaster-studio/diagnostics"
	"github.com/aouyang1/go-forecaster-studio/forecast"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
)

const (
	DefaultMinHorizon = 1
	DefaultMaxHorizon = 365
)

var (
	ErrHorizonOutOfRange = errors.New("horizon out of range")
	ErrNonNumericValues  = errors.New("value column contains non numeric entries")
	ErrNoUpload          = errors.New("no upload")
)

// IsInputError reports whether err was caused by the uploaded data or request parameters rather
// than an internal fault
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrEmptyInput,
		ErrMissingColumn,
		ErrNoValidTimes,
		ErrDuplicateHeader,
		ErrHorizonOutOfRange,
		ErrNonNumericValues,
		ErrNoUpload,
		ErrUnexpectedHeader,
		ErrMalformedRow,
		diagnostics.ErrInvalidDuration,
		diagnostics.ErrNoCutoffs,
		diagnostics.ErrInvalidHorizon,
		diagnostics.ErrLessDataThanHorizon,
		timedataset.ErrDuplicateTime,
		timedataset.ErrNonMontonic,
		timedataset.ErrCannotInferFreq,
		forecast.ErrInsufficientTrainingData,
		forecaster.ErrCannotInferInterval,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Input is a single upload along with the number of future periods to forecast
type Input struct {
	Data    []byte
	Horizon int
}

// Options configures a forecast run. A nil Forecaster uses the engine defaults.
type Options struct {
	Load       LoadOptions
	MinHorizon int
	MaxHorizon int
	Forecaster *forecaster.Options
}

func DefaultOptions() *Options {
	return &Options{
		Load:       DefaultLoadOptions(),
		MinHorizon: DefaultMinHorizon,
		MaxHorizon: DefaultMaxHorizon,
	}
}

// CheckHorizon rejects a horizon outside [MinHorizon, MaxHorizon]
func (o *Options) CheckHorizon(h int) error {
	minH, maxH := o.MinHorizon, o.MaxHorizon
	if minH <= 0 {
		minH = DefaultMinHorizon
	}
	if maxH <= 0 {
		maxH = DefaultMaxHorizon
	}
	if h < minH || h > maxH {
		return fmt.Errorf("got %d, expected [%d, %d], %w", h, minH, maxH, ErrHorizonOutOfRange)
	}
	return nil
}

// Output holds every intermediate product of a run so the page can render each step
type Output struct {
	DatasetID  string
	Table      *Table
	Series     *timedataset.TimeDataset
	Forecaster *forecaster.Forecaster
	Prediction *forecaster.Results
	Forecast   []ForecastRow
	Export     *Export
	Cutoff     time.Time
	Horizon    int
	Freq       time.Duration
}

// DatasetID identifies an upload and horizon pair
func DatasetID(data []byte, horizon int) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(horizon)))
	return hex.EncodeToString(h.Sum(nil))
}

// Run loads the upload, fits the forecaster on the whole history, predicts the history plus
// Horizon future periods and keeps only the rows after the last observed timestamp.
func Run(ctx context.Context, in Input, opt *Options) (*Output, error) {
	if opt == nil {
		opt = DefaultOptions()
	}
	if len(in.Data) == 0 {
		return nil, ErrNoUpload
	}
	if err := opt.CheckHorizon(in.Horizon); err != nil {
		return nil, err
	}

	tbl, err := Load(bytes.NewReader(in.Data), opt.Load)
	if err != nil {
		return nil, err
	}
	if tbl.BadValues > 0 {
		return nil, fmt.Errorf("%d entries in %q, %w", tbl.BadValues, tbl.ValueColumn, ErrNonNumericValues)
	}
	series, err := tbl.Series()
	if err != nil {
		return nil, err
	}
	cutoff, _ := tbl.Cutoff()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := forecaster.New(opt.Forecaster)
	if err != nil {
		return nil, fmt.Errorf("unable to create forecaster, %w", err)
	}
	if err := f.Fit(series.T, series.Y); err != nil {
		return nil, fmt.Errorf("unable to fit forecaster, %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	future, err := f.MakeFuture(in.Horizon, true)
	if err != nil {
		return nil, err
	}
	freq, err := timedataset.TimeSlice(series.T).EstimateFreq()
	if err != nil {
		return nil, fmt.Errorf("%w, %w", forecaster.ErrCannotInferInterval, err)
	}
	pred, err := f.Predict(future)
	if err != nil {
		return nil, fmt.Errorf("unable to predict, %w", err)
	}

	rows := Project(pred, cutoff)
	export, err := NewExport(rows)
	if err != nil {
		return nil, err
	}

	slog.Debug("forecast run complete",
		"rows", len(tbl.Rows), "training", series.Len(), "horizon", in.Horizon, "freq", freq)

	return &Output{
		DatasetID:  DatasetID(in.Data, in.Horizon),
		Table:      tbl,
		Series:     series,
		Forecaster: f,
		Prediction: pred,
		Forecast:   rows,
		Export:     export,
		Cutoff:     cutoff,
		Horizon:    in.Horizon,
		Freq:       freq,
	}, nil
}

// MetricsInput holds the cross validation windows as entered by the user. Initial and Period are
// duration strings such as "365 days" and may be empty to use the defaults. Horizon is in
// periods of the series frequency.
type MetricsInput struct {
	Initial string `json:"initial"`
	Period  string `json:"period"`
	Horizon int    `json:"horizon"`
}

type MetricsOptions struct {
	Parallelism int

	// RollingWindow is the fraction of rows averaged per horizon. 0 uses the default and a
	// negative value disables pooling across horizons.
	RollingWindow float64
	Progress      func(done, total int)
}

// MetricsOutput is the cross validation table and its summary by horizon
type MetricsOutput struct {
	Horizon time.Duration           `json:"horizon"`
	Initial time.Duration           `json:"initial"`
	Period  time.Duration           `json:"period"`
	Rows    []diagnostics.CVRow     `json:"rows"`
	Metrics []diagnostics.MetricRow `json:"metrics"`
}

// RunMetrics cross validates the forecaster of a previous run. The horizon is converted to a
// duration with the inferred frequency of the series.
func RunMetrics(ctx context.Context, out *Output, in MetricsInput, opt MetricsOptions) (*MetricsOutput, error) {
	if out == nil || out.Series == nil {
		return nil, ErrNoUpload
	}
	initial, err := diagnostics.ParseDuration(in.Initial)
	if err != nil {
		return nil, fmt.Errorf("initial %w", err)
	}
	period, err := diagnostics.ParseDuration(in.Period)
	if err != nil {
		return nil, fmt.Errorf("period %w", err)
	}
	if in.Horizon <= 0 {
		return nil, fmt.Errorf("got %d periods, %w", in.Horizon, diagnostics.ErrInvalidHorizon)
	}
	horizon := time.Duration(in.Horizon) * out.Freq

	fOpt := out.Forecaster.Options()
	rows, err := diagnostics.CrossValidation(ctx, out.Series.T, out.Series.Y, diagnostics.CVOptions{
		Horizon:     horizon,
		Period:      period,
		Initial:     initial,
		Parallelism: opt.Parallelism,
		NewForecaster: func() (*forecaster.Forecaster, error) {
			return forecaster.New(fOpt)
		},
		Progress: opt.Progress,
	})
	if err != nil {
		return nil, err
	}

	rw := opt.RollingWindow
	if rw == 0 {
		rw = diagnostics.DefaultRollingWindow
	}
	metrics, err := diagnostics.PerformanceMetrics(rows, rw)
	if err != nil {
		return nil, err
	}
	return &MetricsOutput{
		Horizon: horizon,
		Initial: initial,
		Period:  period,
		Rows:    rows,
		Metrics: metrics,
	}, nil
}
