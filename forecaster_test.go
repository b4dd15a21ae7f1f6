package forecaster

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aouyang1/go-forecaster-studio/forecast"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateNoisySeries(n int) ([]time.Time, []float64) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t := timedataset.GenerateTFrom(start, n, time.Hour)
	src := rand.New(rand.NewPCG(1, 2))

	y := timedataset.GenerateConstY(n, 50).
		Add(timedataset.GenerateWaveY(t, 10, 86400, 1, 0)).
		Add(timedataset.GenerateNoise(src, t, 1, 0, 86400, 1, 0))
	return t, y
}

func assertBandOrdered(t *testing.T, res *Results) {
	t.Helper()
	for i := range res.T {
		assert.LessOrEqual(t, res.Lower[i], res.Forecast[i], "index %d", i)
		assert.LessOrEqual(t, res.Forecast[i], res.Upper[i], "index %d", i)
	}
}

func TestForecasterTwoPoints(t *testing.T) {
	tSeries := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	y := []float64{10, 12}

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	future, err := f.MakeFuture(1, false)
	require.Nil(t, err)
	require.Equal(t, []time.Time{time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)}, future)

	res, err := f.Predict(future)
	require.Nil(t, err)
	require.Equal(t, 1, res.Len())
	assert.InDelta(t, 14.0, res.Forecast[0], 1e-6)
	assertBandOrdered(t, res)

	eq, err := f.ResidualModelEq()
	require.Nil(t, err)
	assert.Equal(t, "y ~ 0.00", eq)
}

func TestForecasterBand(t *testing.T) {
	tSeries, y := generateNoisySeries(15 * 24)

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	fitRes := f.FitResults()
	require.Equal(t, len(tSeries), fitRes.Len())
	assertBandOrdered(t, fitRes)

	var covered int
	for i := range tSeries {
		if y[i] >= fitRes.Lower[i] && y[i] <= fitRes.Upper[i] {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(tSeries))
	assert.Greater(t, coverage, 0.6)
	assert.Less(t, coverage, 0.95)

	future, err := f.MakeFuture(48, false)
	require.Nil(t, err)
	res, err := f.Predict(future)
	require.Nil(t, err)
	assertBandOrdered(t, res)
	for i := range res.T {
		assert.Greater(t, res.Upper[i]-res.Lower[i], 0.0)
	}

	coef, err := f.ResidualCoefficients()
	require.Nil(t, err)
	assert.NotEmpty(t, coef)
}

func TestForecasterOutliers(t *testing.T) {
	tSeries, clean := generateNoisySeries(15 * 24)
	spikeIdx := 100
	y := append([]float64(nil), clean...)
	y[spikeIdx] = 500

	opt := NewDefaultOptions()
	opt.OutlierOptions = NewOutlierOptions()

	baseline, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, baseline.Fit(tSeries, clean))

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	residual := f.Residuals()
	require.Len(t, residual, len(tSeries))
	assert.True(t, math.IsNaN(residual[spikeIdx]))

	// the training data keeps the observed values
	assert.Equal(t, 500.0, f.TrainingData().Y[spikeIdx])

	// the masked spike does not pull the fit away from the clean series
	assert.InDelta(t, baseline.SeriesIntercept(), f.SeriesIntercept(), 1.0)
	fitted := f.FitResults().Forecast[spikeIdx]
	assert.InDelta(t, baseline.FitResults().Forecast[spikeIdx], fitted, 3.0)
	assert.Less(t, fitted, 100.0)
}

func TestMakeFutureMonthly(t *testing.T) {
	var tSeries []time.Time
	var y []float64
	for i := range 6 {
		tSeries = append(tSeries, time.Date(2020, time.January+time.Month(i), 1, 0, 0, 0, 0, time.UTC))
		y = append(y, 10+float64(i))
	}

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	future, err := f.MakeFuture(3, false)
	require.Nil(t, err)
	expected := []time.Time{
		time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, expected, future)
}

func TestMakeFuture(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tSeries := []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour), start.Add(4 * time.Hour)}
	y := []float64{1, 2, 3, 5}

	f, err := New(nil)
	require.Nil(t, err)

	_, err = f.MakeFuture(1, false)
	assert.ErrorIs(t, err, ErrEmptyTimeDataset)

	require.Nil(t, f.Fit(tSeries, y))

	testData := map[string]struct {
		periods        int
		includeHistory bool
		expected       []time.Time
		err            error
	}{
		"future only": {
			periods:  2,
			expected: []time.Time{start.Add(5 * time.Hour), start.Add(6 * time.Hour)},
		},
		"with history": {
			periods:        1,
			includeHistory: true,
			expected:       append(append([]time.Time{}, tSeries...), start.Add(5*time.Hour)),
		},
		"zero periods": {
			periods:  0,
			expected: []time.Time{},
		},
		"negative periods": {
			periods: -1,
			err:     ErrNegativePeriods,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := f.MakeFuture(td.periods, td.includeHistory)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestForecasterErrors(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	opt := NewDefaultOptions()
	opt.IntervalWidth = 1.0
	_, err := New(opt)
	assert.ErrorIs(t, err, ErrInvalidIntervalWidth)

	opt = NewDefaultOptions()
	opt.OutlierOptions = &OutlierOptions{LowerPercentile: 0.9, UpperPercentile: 0.1}
	_, err = New(opt)
	assert.ErrorIs(t, err, ErrInvalidPercentile)

	f, err := New(nil)
	require.Nil(t, err)
	err = f.Fit([]time.Time{start, start}, []float64{1, 2})
	assert.ErrorIs(t, err, timedataset.ErrNonMontonic)

	err = f.Fit([]time.Time{start, start.Add(time.Hour)}, []float64{1, math.NaN()})
	assert.ErrorIs(t, err, forecast.ErrInsufficientTrainingData)

	_, err = NewFromModel(Model{})
	assert.ErrorIs(t, err, ErrNoOptionsInModel)
}

func TestForecasterFromModel(t *testing.T) {
	tSeries, y := generateNoisySeries(15 * 24)

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	m, err := f.Model()
	require.Nil(t, err)
	require.NotNil(t, m.Residual)

	out, err := json.Marshal(m)
	require.Nil(t, err)

	var loaded Model
	require.Nil(t, json.Unmarshal(out, &loaded))

	nextF, err := NewFromModel(loaded)
	require.Nil(t, err)

	future, err := f.MakeFuture(24, false)
	require.Nil(t, err)

	expected, err := f.Predict(future)
	require.Nil(t, err)
	res, err := nextF.Predict(future)
	require.Nil(t, err)

	assert.InDeltaSlice(t, expected.Forecast, res.Forecast, 1e-9)
	assert.InDeltaSlice(t, expected.Upper, res.Upper, 1e-9)
	assert.InDeltaSlice(t, expected.Lower, res.Lower, 1e-9)
}

func TestForecasterFeatureVIF(t *testing.T) {
	tSeries, y := generateNoisySeries(15 * 24)

	f, err := New(nil)
	require.Nil(t, err)
	_, err = f.FeatureVIF()
	assert.ErrorIs(t, err, ErrNotFit)

	require.Nil(t, f.Fit(tSeries, y))
	vif, err := f.FeatureVIF()
	require.Nil(t, err)
	assert.NotEmpty(t, vif)
}
