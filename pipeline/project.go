package pipeline

import (
	"time"

	forecaster "github.com/aouyang1/go-forecaster-studio"
)

// ForecastRow is a single exported prediction
type ForecastRow struct {
	Timestamp time.Time `json:"ds"`
	Predicted float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
}

// Project keeps only the predictions strictly after the cutoff. A prediction landing exactly on
// the cutoff is historical and dropped.
func Project(res *forecaster.Results, cutoff time.Time) []ForecastRow {
	if res == nil {
		return nil
	}
	rows := make([]ForecastRow, 0, res.Len())
	for i, t := range res.T {
		if !t.After(cutoff) {
			continue
		}
		rows = append(rows, ForecastRow{
			Timestamp: t,
			Predicted: res.Forecast[i],
			Lower:     res.Lower[i],
			Upper:     res.Upper[i],
		})
	}
	return rows
}
