package timedataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(1970, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestNewUnivariateDataset(t *testing.T) {
	testData := map[string]struct {
		t        []time.Time
		y        []float64
		expected *TimeDataset
		err      error
	}{
		"no training data": {
			err: ErrNoTrainingData,
		},
		"length mismatch": {
			y:   []float64{1},
			err: ErrDatasetLenMismatch,
		},
		"non increasing time": {
			t:   []time.Time{day(2), day(1)},
			y:   []float64{1, 2},
			err: ErrNonMontonic,
		},
		"repeated time": {
			t:   []time.Time{day(1), day(1)},
			y:   []float64{1, 2},
			err: ErrNonMontonic,
		},
		"valid": {
			t: []time.Time{day(1), day(2)},
			y: []float64{1, 2},
			expected: &TimeDataset{
				T: []time.Time{day(1), day(2)},
				Y: []float64{1, 2},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := NewUnivariateDataset(td.t, td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, ds)
		})
	}
}

func TestNewSortedDataset(t *testing.T) {
	testData := map[string]struct {
		t        []time.Time
		y        []float64
		expected *TimeDataset
		err      error
	}{
		"no training data": {
			err: ErrNoTrainingData,
		},
		"duplicate time": {
			t:   []time.Time{day(3), day(1), day(3)},
			y:   []float64{1, 2, 3},
			err: ErrDuplicateTime,
		},
		"out of order": {
			t: []time.Time{day(3), day(1), day(2)},
			y: []float64{3, 1, 2},
			expected: &TimeDataset{
				T: []time.Time{day(1), day(2), day(3)},
				Y: []float64{1, 2, 3},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := NewSortedDataset(td.t, td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, ds)
		})
	}
}

func TestNewSortedDatasetDoesNotMutateInput(t *testing.T) {
	tSeries := []time.Time{day(2), day(1)}
	y := []float64{2, 1}
	_, err := NewSortedDataset(tSeries, y)
	require.Nil(t, err)
	assert.Equal(t, []time.Time{day(2), day(1)}, tSeries)
	assert.Equal(t, []float64{2, 1}, y)
}

func TestCopy(t *testing.T) {
	ds, err := NewUnivariateDataset([]time.Time{day(1), day(2)}, []float64{0, 1})
	require.Nil(t, err)

	nextDs := ds.Copy()
	require.Equal(t, ds, nextDs)

	ds.T = []time.Time{day(3), day(4)}
	require.NotEqual(t, nextDs, ds)
}

func TestDropNaN(t *testing.T) {
	testData := map[string]struct {
		tdset    *TimeDataset
		expected *TimeDataset
	}{
		"nil input for nan drop": {tdset: nil, expected: nil},
		"no data to drop": {
			tdset: &TimeDataset{},
			expected: &TimeDataset{
				T: []time.Time{},
				Y: []float64{},
			},
		},
		"no NaNs": {
			tdset: &TimeDataset{
				T: []time.Time{day(1), day(2), day(3), day(4)},
				Y: []float64{1, 2, 3, 4},
			},
			expected: &TimeDataset{
				T: []time.Time{day(1), day(2), day(3), day(4)},
				Y: []float64{1, 2, 3, 4},
			},
		},
		"data with NaNs": {
			tdset: &TimeDataset{
				T: []time.Time{day(1), day(2), day(3), day(4), day(5), day(6), day(7)},
				Y: []float64{math.NaN(), 2, 3, math.NaN(), 5, 6, math.NaN()},
			},
			expected: &TimeDataset{
				T: []time.Time{day(2), day(3), day(5), day(6)},
				Y: []float64{2, 3, 5, 6},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.tdset.DropNaN()
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestBeforeAndBetween(t *testing.T) {
	ds, err := NewUnivariateDataset(
		[]time.Time{day(1), day(2), day(3), day(4), day(5)},
		[]float64{1, 2, 3, 4, 5},
	)
	require.Nil(t, err)

	before := ds.Before(day(3))
	assert.Equal(t, []float64{1, 2, 3}, before.Y)

	between := ds.Between(day(3), day(5))
	assert.Equal(t, []float64{4, 5}, between.Y)
	assert.Equal(t, []time.Time{day(4), day(5)}, between.T)

	empty := ds.Between(day(5), day(9))
	assert.Empty(t, empty.Y)

	assert.Empty(t, ds.Before(time.Date(1969, 1, 1, 0, 0, 0, 0, time.UTC)).T)
}
