package forecaster

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-forecaster-studio/event"
	"github.com/aouyang1/go-forecaster-studio/forecast"
	"github.com/aouyang1/go-forecaster-studio/stats"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyTimeDataset    = errors.New("no timedataset or uninitialized")
	ErrNoOptionsInModel    = errors.New("no options set in model")
	ErrCannotInferInterval = errors.New("cannot infer interval from training data time")
	ErrNegativePeriods     = errors.New("number of future periods cannot be negative")
	ErrNotFit              = errors.New("forecaster has not been fit")
)

const (
	MinResidualWindow       = 2
	MinResidualWindowFactor = 4
)

// Forecaster fits a forecast model and can be used to generate forecasts
type Forecaster struct {
	opt *Options

	seriesForecast   *forecast.Forecast
	residualForecast *forecast.Forecast

	// constantBand replaces the residual model when there are too few residual points to fit it
	constantBand float64

	fitTrainingData *timedataset.TimeDataset
	fitResults      *Results
	residual        []float64
}

// New creates a new instance of a Forecaster using the provided options. If no options are provided
// a default is used.
func New(opt *Options) (*Forecaster, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecaster options, %w", err)
	}

	f := &Forecaster{
		opt: opt,
	}

	seriesForecast, err := forecast.New(f.opt.SeriesOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	f.seriesForecast = seriesForecast

	residualOpt := f.opt.ResidualOptions
	if residualOpt == nil {
		residualOpt = NewDefaultOptions().ResidualOptions
	}
	residualForecast, err := forecast.New(residualOpt)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast residual, %w", err)
	}
	f.residualForecast = residualForecast
	return f, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be generated from
// from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt := *model.Options
	opt.SeriesOptions = model.Series.Options

	seriesForecast, err := forecast.NewFromModel(model.Series)
	if err != nil {
		return nil, fmt.Errorf("unable to load from series model, %w", err)
	}
	f := &Forecaster{
		opt:            &opt,
		seriesForecast: seriesForecast,
		constantBand:   model.ConstantBand,
	}

	if model.Residual != nil {
		opt.ResidualOptions = model.Residual.Options
		residualForecast, err := forecast.NewFromModel(*model.Residual)
		if err != nil {
			return nil, fmt.Errorf("unable to load from residual model, %w", err)
		}
		f.residualForecast = residualForecast
	}
	return f, nil
}

// Fit uses the input time dataset and fits the forecast model. Times must be strictly increasing
// and NaN values are ignored.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}
	f.fitTrainingData = td.Copy()

	// td is a private copy so outliers can be masked in place
	if f.opt.OutlierOptions != nil {
		removeOutlierEvents(td.T, td.Y, f.opt.OutlierOptions.Events)
	}
	residual, err := f.fitSeriesWithOutliers(td.T, td.Y)
	if err != nil {
		return err
	}
	f.residual = residual

	if err := f.fitResidual(td.T, residual); err != nil {
		return err
	}

	f.fitResults, err = f.Predict(td.T)
	if err != nil {
		return fmt.Errorf("unable to get predicted values from training set, %w", err)
	}

	return nil
}

// removeOutlierEvents masks every value inside an event window, inclusive of both bounds
func removeOutlierEvents(t []time.Time, y []float64, events []event.Event) {
	for _, ev := range events {
		for i, tPnt := range t {
			if tPnt.Before(ev.Start) || tPnt.After(ev.End) {
				continue
			}
			y[i] = math.NaN()
		}
	}
}

func (f *Forecaster) fitSeriesWithOutliers(t []time.Time, y []float64) ([]float64, error) {
	// iterate to remove outliers
	numPasses := 0
	if f.opt.OutlierOptions != nil {
		numPasses = f.opt.OutlierOptions.NumPasses
	}

	var residual []float64
	for i := 0; i <= numPasses; i++ {
		if err := f.seriesForecast.Fit(t, y); err != nil {
			return nil, fmt.Errorf("unable to forecast series, %w", err)
		}

		residual = f.seriesForecast.Residuals()

		// break out if no outlier options provided
		if f.opt.OutlierOptions == nil || i == numPasses {
			break
		}

		// no more outliers detected with outlier options so break early
		if autoRemoveOutliers(y, residual, f.opt.OutlierOptions) == 0 {
			break
		}
	}
	return residual, nil
}

// autoRemoveOutliers masks the values whose residual falls outside the Tukey fences and returns
// the number of newly masked values
func autoRemoveOutliers(y, residual []float64, opt *OutlierOptions) int {
	if opt == nil || opt.NumPasses == 0 {
		return 0
	}
	outlierIdxs := stats.DetectOutliers(
		residual,
		opt.LowerPercentile,
		opt.UpperPercentile,
		opt.TukeyFactor,
	)

	var cnt int
	for _, idx := range outlierIdxs {
		if math.IsNaN(y[idx]) {
			continue
		}
		y[idx] = math.NaN()
		cnt++
	}
	if cnt > 0 {
		slog.Debug("masked outliers", "count", cnt)
	}
	return cnt
}

func (f *Forecaster) fitResidual(t []time.Time, residual []float64) error {
	f.constantBand = 0
	z := f.opt.Zscore()

	// outlier and missing points are skipped so a window is not necessarily a block of
	// continuous time
	rt := make([]time.Time, 0, len(t))
	rr := make([]float64, 0, len(residual))
	for i, r := range residual {
		if math.IsNaN(r) {
			continue
		}
		rt = append(rt, t[i])
		rr = append(rr, r)
	}

	// limit residual window to a quarter of the resulting residual output
	window := f.opt.ResidualWindow
	if len(rr)/MinResidualWindowFactor < window {
		window = len(rr) / MinResidualWindowFactor
	}
	if window < MinResidualWindow {
		window = MinResidualWindow
	}

	stddevSeries, err := stats.RollingStdDev(rr, window)
	if err != nil {
		return fmt.Errorf("unable to compute residual standard deviation, %w", err)
	}
	if len(stddevSeries) < 2 {
		if len(rr) > 1 {
			f.constantBand = z * stat.StdDev(rr, nil)
		}
		f.residualForecast = nil
		slog.Debug("too few residual points for a residual model, using constant band",
			"points", len(rr), "band", f.constantBand)
		return nil
	}
	floats.Scale(z, stddevSeries)

	// shifting by half the residual window since computing the residual series is similar to a
	// finite impulse response filtering having a group delay of window/2.
	start := window / 2
	end := start + len(stddevSeries)

	if f.residualForecast == nil {
		residualForecast, err := forecast.New(f.opt.ResidualOptions)
		if err != nil {
			return fmt.Errorf("unable to initialize forecast residual, %w", err)
		}
		f.residualForecast = residualForecast
	}
	if err := f.residualForecast.Fit(rt[start:end], stddevSeries); err != nil {
		return fmt.Errorf("unable to forecast residual, %w", err)
	}

	return nil
}

// Predict takes in any set of time samples and generates a forecast, upper, lower values per time point
func (f *Forecaster) Predict(t []time.Time) (*Results, error) {
	seriesRes, seriesComp, err := f.seriesForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}

	var residualRes []float64
	var residualComp forecast.Components
	if f.residualForecast != nil {
		residualRes, residualComp, err = f.residualForecast.Predict(t)
		if err != nil {
			return nil, fmt.Errorf("unable to predict residual forecasts, %w", err)
		}
	} else {
		residualRes = make([]float64, len(t))
		for i := range residualRes {
			residualRes[i] = f.constantBand
		}
	}

	// cap residual predictions to be greater than or equal to 0
	for i := 0; i < len(residualRes); i++ {
		if residualRes[i] < 0.0 {
			residualRes[i] = 0.0
		}
	}

	r := &Results{
		T:                  t,
		Forecast:           seriesRes,
		SeriesComponents:   seriesComp,
		ResidualComponents: residualComp,
	}
	upper := make([]float64, len(seriesRes))
	lower := make([]float64, len(seriesRes))

	copy(upper, seriesRes)
	copy(lower, seriesRes)

	floats.Add(upper, residualRes)
	floats.Sub(lower, residualRes)
	r.Upper = upper
	r.Lower = lower
	return r, nil
}

// MakeFuture returns the next periods timestamps after the end of the training data spaced at the
// most common sampling interval, or by calendar month when the training data is monthly. When
// includeHistory is set the training timestamps lead the output.
func (f *Forecaster) MakeFuture(periods int, includeHistory bool) ([]time.Time, error) {
	if periods < 0 {
		return nil, ErrNegativePeriods
	}
	td := f.fitTrainingData
	if td == nil || len(td.T) == 0 {
		return nil, ErrEmptyTimeDataset
	}

	var out []time.Time
	if includeHistory {
		out = make([]time.Time, 0, len(td.T)+periods)
		out = append(out, td.T...)
	} else {
		out = make([]time.Time, 0, periods)
	}
	if periods == 0 {
		return out, nil
	}

	lastTime := td.T[len(td.T)-1]

	// monthly series step by calendar month rather than a fixed duration
	if months, ok := timedataset.TimeSlice(td.T).MonthStep(); ok {
		for i := 1; i <= periods; i++ {
			out = append(out, lastTime.AddDate(0, i*months, 0))
		}
		return out, nil
	}

	freq, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCannotInferInterval, err)
	}
	for i := 1; i <= periods; i++ {
		out = append(out, lastTime.Add(time.Duration(i)*freq))
	}
	return out, nil
}

// Options returns the options the forecaster was configured with
func (f *Forecaster) Options() *Options {
	return f.opt
}

// Residuals returns the difference between the final series fit against the training data
func (f *Forecaster) Residuals() []float64 {
	return f.residual
}

// TrendComponent returns the trend component created by changepoints after fitting
func (f *Forecaster) TrendComponent() []float64 {
	return f.seriesForecast.TrendComponent()
}

// SeasonalityComponent returns the seasonality component after fitting the fourier series
func (f *Forecaster) SeasonalityComponent() []float64 {
	return f.seriesForecast.SeasonalityComponent()
}

// EventComponent returns the event component after fitting
func (f *Forecaster) EventComponent() []float64 {
	return f.seriesForecast.EventComponent()
}

// SeriesIntercept returns the intercept of the series fit
func (f *Forecaster) SeriesIntercept() float64 {
	return f.seriesForecast.Intercept()
}

// SeriesCoefficients returns all coefficient weight associated with the component label string
func (f *Forecaster) SeriesCoefficients() (map[string]float64, error) {
	return f.seriesForecast.Coefficients()
}

// ResidualIntercept returns the intercept of the uncertainty fit
func (f *Forecaster) ResidualIntercept() float64 {
	if f.residualForecast == nil {
		return f.constantBand
	}
	return f.residualForecast.Intercept()
}

// ResidualCoefficients returns all uncertainty coefficient weights associated with the component label string
func (f *Forecaster) ResidualCoefficients() (map[string]float64, error) {
	if f.residualForecast == nil {
		return nil, forecast.ErrNoModelCoefficients
	}
	return f.residualForecast.Coefficients()
}

// Model generates a serializeable representation of the fit options, series model, and uncertainty model. This
// can be used to initialize a new Forecaster for immediate predictions skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	seriesModel, err := f.seriesForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch series model, %w", err)
	}
	m := Model{
		Options:      f.opt,
		Series:       seriesModel,
		ConstantBand: f.constantBand,
	}
	if f.residualForecast != nil {
		residualModel, err := f.residualForecast.Model()
		if err != nil {
			return Model{}, fmt.Errorf("unable to fetch residual model, %w", err)
		}
		m.Residual = &residualModel
	}
	return m, nil
}

// SeriesModelEq returns a string representation of the fit series model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) SeriesModelEq() (string, error) {
	return f.seriesForecast.ModelEq()
}

// ResidualModelEq returns a string representation of the fit uncertainty model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) ResidualModelEq() (string, error) {
	if f.residualForecast == nil {
		return fmt.Sprintf("y ~ %.2f", f.constantBand), nil
	}
	return f.residualForecast.ModelEq()
}

// FeatureVIF reports the variance inflation factor of the series features over the training data
func (f *Forecaster) FeatureVIF() (map[string]float64, error) {
	if f.fitTrainingData == nil {
		return nil, ErrNotFit
	}
	return f.seriesForecast.FeatureVIF(f.fitTrainingData.DropNaN().T)
}

// TrainingData returns the training data used to fit the current forecaster model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}

// FitResults returns the results of the fit which includes the forecast, upper, and lower values
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}

// PlotOpts sets the horizon to forecast out. By default will use 10% of the training size at the
// inferred sampling interval.
type PlotOpts struct {
	HorizonCnt      int
	HorizonInterval time.Duration
}

// PlotPage builds an Apache Echarts page showing the resulting fit with its forecast horizon, the
// model components, and the fit residual
func (f *Forecaster) PlotPage(opt *PlotOpts) (*components.Page, error) {
	td := f.TrainingData()
	if td == nil || len(td.T) < 2 {
		return nil, ErrCannotInferInterval
	}
	lastTime := td.T[len(td.T)-1]

	horizonCnt := len(td.T) / 10
	horizonInterval, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCannotInferInterval, err)
	}
	if opt != nil {
		horizonCnt = opt.HorizonCnt
		if opt.HorizonInterval > 0 {
			horizonInterval = opt.HorizonInterval
		}
	}
	if horizonCnt < 1 {
		horizonCnt = 1
	}

	t := make([]time.Time, 0, len(td.T)+horizonCnt)
	t = append(t, td.T...)
	horizon := make([]time.Time, 0, horizonCnt)
	zpad := make([]float64, 0, horizonCnt)
	for i := 0; i < horizonCnt; i++ {
		nextT := lastTime.Add(time.Duration(i+1) * horizonInterval)
		horizon = append(horizon, nextT)
		t = append(t, nextT)
		zpad = append(zpad, math.NaN())
	}

	forecastRes, err := f.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("unable to predict with horizon, %w", err)
	}

	residuals := append(append([]float64(nil), f.Residuals()...), zpad...)
	trendComp := append(f.TrendComponent(), forecastRes.SeriesComponents.Trend...)
	seasonComp := append(f.SeasonalityComponent(), forecastRes.SeriesComponents.Seasonality...)
	eventComp := append(f.EventComponent(), forecastRes.SeriesComponents.Event...)

	page := components.NewPage()
	page.AddCharts(
		LineForecaster(td, f.fitResults.Append(forecastRes)),
		LineTSeries(
			"Forecast Components",
			[]string{"Trend", "Seasonality", "Event"},
			t,
			[][]float64{
				trendComp,
				seasonComp,
				eventComp,
			},
		),
		LineTSeries(
			"Forecast Residual",
			[]string{"Residual"},
			t,
			[][]float64{residuals},
		),
	)
	return page, nil
}

// PlotFit renders the page from PlotPage as html into w
func (f *Forecaster) PlotFit(w io.Writer, opt *PlotOpts) error {
	page, err := f.PlotPage(opt)
	if err != nil {
		return err
	}
	return page.Render(w)
}
