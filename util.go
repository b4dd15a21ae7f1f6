package forecaster

import (
	"math"
	"time"

	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const chartTimeFormat = "2006-01-02 15:04:05"

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are left
// as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	line = line.SetXAxis(formatTimes(t))
	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		line = line.AddSeries(series, lineData(y[i]))
	}

	return line
}

// LineForecaster generates an echart line chart for a given result plotting the actual training values
// along with the forecasted, upper, lower values. Result times without training data have no actual
// value.
func LineForecaster(trainingData *timedataset.TimeDataset, res *Results) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Forecast Fit",
			},
		),
	)

	actualByTime := make(map[int64]float64)
	if trainingData != nil {
		for i, tPnt := range trainingData.T {
			actualByTime[tPnt.UnixNano()] = trainingData.Y[i]
		}
	}

	actual := make([]float64, len(res.T))
	for i, tPnt := range res.T {
		val, exists := actualByTime[tPnt.UnixNano()]
		if !exists {
			val = math.NaN()
		}
		actual[i] = val
	}

	line.SetXAxis(formatTimes(res.T)).
		AddSeries("Actual", lineData(actual)).
		AddSeries("Forecast", lineData(res.Forecast)).
		AddSeries("Upper", lineData(res.Upper)).
		AddSeries("Lower", lineData(res.Lower))
	return line
}

func formatTimes(t []time.Time) []string {
	out := make([]string, len(t))
	for i, tPnt := range t {
		out[i] = tPnt.Format(chartTimeFormat)
	}
	return out
}

// lineData keeps one point per x-axis entry so series stay aligned, with NaN drawn as a gap
func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(y))
	for _, val := range y {
		if math.IsNaN(val) {
			data = append(data, opts.LineData{Value: "-"})
			continue
		}
		data = append(data, opts.LineData{Value: val})
	}
	return data
}
