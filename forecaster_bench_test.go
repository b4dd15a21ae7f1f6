package forecaster

import (
	"os"
	"testing"
	"time"

	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchPredictRes *Results

// benchProfile writes a CPU profile into $FORECASTER_BENCH_PROFILE when it is set
func benchProfile(b *testing.B) {
	dir := os.Getenv("FORECASTER_BENCH_PROFILE")
	if dir == "" {
		return
	}
	p := profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet, profile.NoShutdownHook)
	b.Cleanup(p.Stop)
}

// setupDaily is two years of daily values, the usual size of an uploaded csv
func setupDaily() ([]time.Time, []float64, *Options) {
	n := 730
	t := timedataset.GenerateTFrom(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), n, 24*time.Hour)

	week := 7 * 86400.0
	year := 365.25 * 86400.0
	y := timedataset.GenerateLinearY(t, 250.0, 0.3).
		Add(timedataset.GenerateWaveY(t, 12.0, week, 1.0, 0.0)).
		Add(timedataset.GenerateWaveY(t, 40.0, year, 1.0, 30*86400.0)).
		Add(timedataset.GenerateNoise(nil, t, 5.0, 0.0, week, 1.0, 0.0))

	opt := NewDefaultOptions()
	opt.SeriesOptions.EventOptions.Country = "US"
	return t, y, opt
}

func benchFit(b *testing.B, t []time.Time, y []float64, opt *Options) *Forecaster {
	var f *Forecaster
	var err error
	for b.Loop() {
		f, err = New(opt)
		if err != nil {
			b.Fatal(err)
		}
		if err := f.Fit(t, y); err != nil {
			b.Fatal(err)
		}
	}
	return f
}

func BenchmarkFitDaily(b *testing.B) {
	t, y, opt := setupDaily()
	benchProfile(b)
	benchFit(b, t, y, opt)
}

func BenchmarkFitHourlyWithOutliers(b *testing.B) {
	t, y, opt := setupWithOutliers()
	benchProfile(b)
	benchFit(b, t, y, opt)
}

func BenchmarkPredictFromModel(b *testing.B) {
	t, y, opt := setupDaily()
	trained, err := New(opt)
	if err != nil {
		b.Fatal(err)
	}
	if err := trained.Fit(t, y); err != nil {
		b.Fatal(err)
	}
	m, err := trained.Model()
	if err != nil {
		b.Fatal(err)
	}

	// predict from a decoded copy as a restarted server would
	bytes, err := json.Marshal(m)
	if err != nil {
		b.Fatal(err)
	}
	var model Model
	if err := json.Unmarshal(bytes, &model); err != nil {
		b.Fatal(err)
	}
	f, err := NewFromModel(model)
	if err != nil {
		b.Fatal(err)
	}

	input := timedataset.GenerateTFrom(model.Series.TrainEndTime.Add(24*time.Hour), 365, 24*time.Hour)
	benchProfile(b)
	for b.Loop() {
		benchPredictRes, err = f.Predict(input)
		if err != nil {
			b.Fatal(err)
		}
	}
}
