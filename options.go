package forecaster

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-forecaster-studio/event"
	"github.com/aouyang1/go-forecaster-studio/forecast/options"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultResidualWindow = 100
	DefaultIntervalWidth  = 0.8
)

var (
	ErrInvalidIntervalWidth   = errors.New("interval width must be between 0 and 1 exclusive")
	ErrNegativeResidualWindow = errors.New("residual window cannot be negative")
	ErrInvalidPercentile      = errors.New("outlier percentiles must satisfy 0 <= lower < upper <= 1")
)

// OutlierOptions configures the passes that mask extreme residuals before refitting the series.
// Events are known windows, such as outages, that are always excluded from training including
// both of their bounds.
type OutlierOptions struct {
	NumPasses       int           `json:"num_passes"`
	UpperPercentile float64       `json:"upper_percentile"`
	LowerPercentile float64       `json:"lower_percentile"`
	TukeyFactor     float64       `json:"tukey_factor"`
	Events          []event.Event `json:"events,omitempty"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

func (o *OutlierOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.LowerPercentile < 0 || o.UpperPercentile > 1 || o.LowerPercentile >= o.UpperPercentile {
		return fmt.Errorf("lower %.3f, upper %.3f, %w", o.LowerPercentile, o.UpperPercentile, ErrInvalidPercentile)
	}
	return nil
}

// Options configures the series model, the residual model used for the uncertainty band and
// the outlier handling between the two.
type Options struct {
	SeriesOptions   *options.Options `json:"series_options"`
	ResidualOptions *options.Options `json:"residual_options"`

	OutlierOptions *OutlierOptions `json:"outlier_options,omitempty"`

	// ResidualWindow is the number of residual points per rolling standard deviation. It is
	// capped at a quarter of the training size.
	ResidualWindow int `json:"residual_window"`

	// IntervalWidth is the probability mass covered between the lower and upper band
	IntervalWidth float64 `json:"interval_width"`
}

// NewDefaultOptions returns a linear growth series model with automatic changepoints and
// seasonality along with a seasonal residual model for an 80% interval.
func NewDefaultOptions() *Options {
	return &Options{
		SeriesOptions:   options.NewDefaultOptions(),
		ResidualOptions: options.NewSeasonalOnlyOptions(),
		ResidualWindow:  DefaultResidualWindow,
		IntervalWidth:   DefaultIntervalWidth,
	}
}

func (o *Options) Validate() error {
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		return fmt.Errorf("got %.3f, %w", o.IntervalWidth, ErrInvalidIntervalWidth)
	}
	if o.ResidualWindow < 0 {
		return ErrNegativeResidualWindow
	}
	if err := o.OutlierOptions.Validate(); err != nil {
		return err
	}
	if o.SeriesOptions != nil {
		if err := o.SeriesOptions.Validate(); err != nil {
			return fmt.Errorf("invalid series options, %w", err)
		}
	}
	if o.ResidualOptions != nil {
		if err := o.ResidualOptions.Validate(); err != nil {
			return fmt.Errorf("invalid residual options, %w", err)
		}
	}
	return nil
}

// Zscore is the standard normal quantile bounding the interval width on either side
func (o *Options) Zscore() float64 {
	return distuv.UnitNormal.Quantile(0.5 + o.IntervalWidth/2.0)
}
