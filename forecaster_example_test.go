package forecaster

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aouyang1/go-forecaster-studio/event"
	"github.com/aouyang1/go-forecaster-studio/forecast/options"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
)

func Example_forecaster() {
	t := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	y := []float64{10, 12}

	f, err := New(nil)
	if err != nil {
		panic(err)
	}
	if err := f.Fit(t, y); err != nil {
		panic(err)
	}

	future, err := f.MakeFuture(2, false)
	if err != nil {
		panic(err)
	}
	res, err := f.Predict(future)
	if err != nil {
		panic(err)
	}
	for i, tPnt := range res.T {
		fmt.Printf("%s %.2f [%.2f, %.2f]\n", tPnt.Format("2006-01-02"), res.Forecast[i], res.Lower[i], res.Upper[i])
	}
	// Output:
	// 2020-01-03 14.00 [14.00, 14.00]
	// 2020-01-04 16.00 [16.00, 16.00]
}

func setupWithOutliers() ([]time.Time, []float64, *Options) {
	days := 28
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	n := days * 24
	t := timedataset.GenerateTFrom(start, n, time.Hour)

	period := 86400.0
	y := timedataset.GenerateConstY(n, 98.3).
		Add(timedataset.GenerateWaveY(t, 10.5, period, 1.0, 2*60*60)).
		Add(timedataset.GenerateWaveY(t, 10.5, period, 3.0, 2.0*60*60+period/2.0/2.0/3.0)).
		Add(timedataset.GenerateWaveY(t, -7.3, period, 3.0, 2*60*60+period/2.0/2.0/3.0).MaskWithWeekend(t)).
		Add(timedataset.GenerateNoise(nil, t, 3.2, 3.2, period, 5.0, 0.0)).
		Add(timedataset.GenerateChange(t, t[n/2], 10.0, 0.0)).
		SetConst(t, 2.7, t[n/3], t[n/3+n/20]).
		SetConst(t, 175.7, t[n*2/3], t[n*2/3+n/80])

	opt := NewDefaultOptions()
	opt.SeriesOptions.SeasonalityOptions = options.SeasonalityOptions{
		SeasonalityConfigs: []options.SeasonalityConfig{
			options.NewDailySeasonalityConfig(12),
			options.NewWeeklySeasonalityConfig(6),
		},
	}
	opt.SeriesOptions.ChangepointOptions = options.ChangepointOptions{
		Changepoints: []options.Changepoint{
			options.NewChangepoint("level_shift", t[n/2]),
		},
		EnableGrowth: true,
		EnableBias:   true,
	}
	opt.SeriesOptions.EventOptions.Country = "US"
	opt.OutlierOptions = NewOutlierOptions()
	opt.OutlierOptions.Events = []event.Event{
		event.NewEvent("outage", t[n/3], t[n/3+n/20]),
	}
	return t, y, opt
}

func Example_forecasterWithOutliers() {
	t, y, opt := setupWithOutliers()

	f, err := New(opt)
	if err != nil {
		panic(err)
	}
	if err := f.Fit(t, y); err != nil {
		panic(err)
	}

	m, err := f.Model()
	if err != nil {
		panic(err)
	}
	if err := m.TablePrint(os.Stderr); err != nil {
		panic(err)
	}
	if err := f.PlotFit(io.Discard, nil); err != nil {
		panic(err)
	}
	// Output:
}
