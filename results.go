package forecaster

import (
	"time"

	"github.com/aouyang1/go-forecaster-studio/forecast"
)

// Results holds the prediction for each requested time point. Lower <= Forecast <= Upper holds
// for every index.
type Results struct {
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Upper    []float64   `json:"upper"`
	Lower    []float64   `json:"lower"`

	SeriesComponents   forecast.Components `json:"series_components"`
	ResidualComponents forecast.Components `json:"residual_components"`
}

// Len returns the number of predicted time points
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}

// Append returns a new Results with the points of other following the points of r
func (r *Results) Append(other *Results) *Results {
	out := &Results{}
	for _, res := range []*Results{r, other} {
		if res == nil {
			continue
		}
		out.T = append(out.T, res.T...)
		out.Forecast = append(out.Forecast, res.Forecast...)
		out.Upper = append(out.Upper, res.Upper...)
		out.Lower = append(out.Lower, res.Lower...)
		out.SeriesComponents = appendComponents(out.SeriesComponents, res.SeriesComponents)
		out.ResidualComponents = appendComponents(out.ResidualComponents, res.ResidualComponents)
	}
	return out
}

func appendComponents(dst, src forecast.Components) forecast.Components {
	dst.Trend = append(dst.Trend, src.Trend...)
	dst.Seasonality = append(dst.Seasonality, src.Seasonality...)
	dst.Event = append(dst.Event, src.Event...)
	return dst
}
