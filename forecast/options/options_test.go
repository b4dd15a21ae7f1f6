package options

import (
	"testing"
	"time"

	"github.com/aouyang1/go-forecaster-studio/event"
	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/models"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"default":       {opt: NewDefaultOptions()},
		"seasonal only": {opt: NewSeasonalOnlyOptions()},
		"negative regularization": {
			opt: &Options{Regularization: -1},
			err: ErrNegativeRegularization,
		},
		"unknown growth": {
			opt: &Options{GrowthType: "logistic"},
			err: ErrUnknownGrowthType,
		},
		"unknown country": {
			opt: &Options{EventOptions: EventOptions{Country: "XX"}},
			err: event.ErrUnknownCountry,
		},
		"invalid event": {
			opt: &Options{EventOptions: EventOptions{
				Events: []event.Event{event.NewEvent("launch", start.Add(time.Hour), start)},
			}},
			err: event.ErrStartAfterEnd,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestResolveDoesNotMutate(t *testing.T) {
	opt := NewDefaultOptions()
	tSeries := timedataset.GenerateTFrom(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 30, Day)

	resolved := opt.Resolve(tSeries)
	assert.False(t, resolved.SeasonalityOptions.Auto)
	assert.False(t, resolved.ChangepointOptions.Auto)
	assert.Equal(t, []SeasonalityConfig{NewWeeklySeasonalityConfig(DefaultWeeklyOrders)}, resolved.SeasonalityOptions.SeasonalityConfigs)
	assert.Len(t, resolved.ChangepointOptions.Changepoints, 23)

	assert.True(t, opt.SeasonalityOptions.Auto)
	assert.True(t, opt.ChangepointOptions.Auto)
	assert.Empty(t, opt.SeasonalityOptions.SeasonalityConfigs)
	assert.Empty(t, opt.ChangepointOptions.Changepoints)
}

func TestNewModel(t *testing.T) {
	opt := NewDefaultOptions()
	model, err := opt.NewModel()
	require.Nil(t, err)
	assert.IsType(t, &models.OLSRegression{}, model)

	opt.Regularization = 0.5
	model, err = opt.NewModel()
	require.Nil(t, err)
	assert.IsType(t, &models.LassoRegression{}, model)
}

func TestGenerateFeatures(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tSeries := timedataset.GenerateTFrom(start, 30, Day)
	end := tSeries[len(tSeries)-1]

	opt := NewDefaultOptions().Resolve(tSeries)
	feat, err := opt.GenerateFeatures(tSeries, start, end)
	require.Nil(t, err)

	// intercept, linear, 23 changepoints, 3 weekly orders of sin and cos
	assert.Equal(t, 2+23+6, feat.Len())
	assert.Equal(t, 30, feat.NumObs())

	linear, exists := feat.Get(feature.Linear())
	require.True(t, exists)
	assert.InDelta(t, 0.0, linear[0], 1e-12)
	assert.InDelta(t, 1.0, linear[29], 1e-12)

	intercept, exists := feat.Get(feature.Intercept())
	require.True(t, exists)
	assert.Equal(t, 1.0, intercept[10])

	flat := NewSeasonalOnlyOptions().Resolve(tSeries)
	feat, err = flat.GenerateFeatures(tSeries, start, end)
	require.Nil(t, err)
	assert.Equal(t, 1+6, feat.Len())
	assert.Equal(t, 0, feat.FilterByType(feature.FeatureTypeChangepoint).Len())
}
