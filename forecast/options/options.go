// Package options contains all forecast options for a linear fit of a univariate time series
package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/models"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
)

const (
	LabelSeasDaily  = "daily"
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"
)

var (
	ErrNegativeRegularization = errors.New("negative regularization")
	ErrUnknownGrowthType      = errors.New("unknown growth type")
)

// Options configures a forecast by specifying changepoints, seasonality order
// and an optional regularization parameter where higher values removes more features
// that contribute the least to the fit.
type Options struct {
	ChangepointOptions ChangepointOptions `json:"changepoint_options"`

	// Regularization of 0 fits with ordinary least squares, otherwise lasso
	Regularization float64 `json:"regularization"`
	Iterations     int     `json:"iterations"`
	Tolerance      float64 `json:"tolerance"`

	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	EventOptions       EventOptions       `json:"event_options"`

	// GrowthType is either linear or flat. The intercept is always modelled.
	GrowthType string `json:"growth_type"`
}

// NewDefaultOptions returns a set of default forecast options
func NewDefaultOptions() *Options {
	return &Options{
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		GrowthType:         feature.GrowthLinear,
	}
}

// NewSeasonalOnlyOptions returns options modelling only an intercept and seasonality which
// is used for slow moving series such as the residual spread
func NewSeasonalOnlyOptions() *Options {
	return &Options{
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		GrowthType:         feature.GrowthFlat,
	}
}

// Validate checks option values that cannot be corrected at fit time
func (o *Options) Validate() error {
	if o.Regularization < 0 {
		return ErrNegativeRegularization
	}
	switch o.GrowthType {
	case "", feature.GrowthLinear, feature.GrowthFlat:
	default:
		return fmt.Errorf("%q, %w", o.GrowthType, ErrUnknownGrowthType)
	}
	return o.EventOptions.Validate()
}

// Copy returns a deep copy of the options
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	out := *o
	out.ChangepointOptions.Changepoints = append([]Changepoint(nil), o.ChangepointOptions.Changepoints...)
	out.SeasonalityOptions.SeasonalityConfigs = append([]SeasonalityConfig(nil), o.SeasonalityOptions.SeasonalityConfigs...)
	out.EventOptions.Events = append(out.EventOptions.Events[:0:0], o.EventOptions.Events...)
	return &out
}

// Resolve returns a copy of the options with every automatic setting replaced by the
// concrete values derived from the training times. The resolved options reproduce the same
// features at inference time.
func (o *Options) Resolve(t []time.Time) *Options {
	out := o.Copy()
	if out == nil {
		out = NewDefaultOptions()
	}
	out.SeasonalityOptions.resolve(t)
	out.ChangepointOptions.resolve(t)
	return out
}

// NewModel returns the regression used to fit the features. The intercept is part of the
// feature set so the model does not add its own. The unpenalized feature columns are exempt
// from regularization.
func (o *Options) NewModel(unpenalized ...int) (models.Model, error) {
	if o.Regularization > 0 {
		lassoOpt := models.NewDefaultLassoOptions()
		lassoOpt.FitIntercept = false
		lassoOpt.Unpenalized = unpenalized
		lassoOpt.Lambda = o.Regularization
		if o.Iterations > 0 {
			lassoOpt.Iterations = o.Iterations
		}
		if o.Tolerance > 0 {
			lassoOpt.Tolerance = o.Tolerance
		}
		return models.NewLassoRegression(lassoOpt)
	}
	return models.NewOLSRegression(&models.OLSOptions{FitIntercept: false})
}

// GenerateFeatures builds every growth, changepoint, seasonality and event feature for the
// time points given the window the model was trained on
func (o *Options) GenerateFeatures(t []time.Time, trainStartTime, trainEndTime time.Time) (*feature.Set, error) {
	epoch := timedataset.TimeSlice(t).Epoch()

	feat := feature.NewSet()

	interceptFeat := feature.Intercept()
	if err := feat.Set(interceptFeat, interceptFeat.Generate(epoch, trainStartTime, trainEndTime)); err != nil {
		return nil, err
	}
	if o.GrowthType == feature.GrowthLinear {
		linearFeat := feature.Linear()
		if err := feat.Set(linearFeat, linearFeat.Generate(epoch, trainStartTime, trainEndTime)); err != nil {
			return nil, err
		}
	}

	chptFeat, err := o.ChangepointOptions.GenerateFeatures(t, trainStartTime, trainEndTime)
	if err != nil {
		return nil, fmt.Errorf("unable to generate changepoint features, %w", err)
	}
	if err := feat.Update(chptFeat); err != nil {
		return nil, err
	}

	seasFeat, err := o.SeasonalityOptions.GenerateFeatures(epoch)
	if err != nil {
		return nil, err
	}
	if err := feat.Update(seasFeat); err != nil {
		return nil, err
	}

	eventFeat, err := o.EventOptions.GenerateFeatures(t)
	if err != nil {
		return nil, fmt.Errorf("unable to generate event features, %w", err)
	}
	if err := feat.Update(eventFeat); err != nil {
		return nil, err
	}
	return feat, nil
}
