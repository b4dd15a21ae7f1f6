package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSetSet(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Set(NewEvent("blargh"), []float64{1, 2, 3, 4}))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 4, s.NumObs())

	err := s.Set(NewEvent("short"), []float64{1, 2})
	assert.ErrorIs(t, err, ErrSetLenMismatch)

	require.NoError(t, s.Set(NewEvent("blargh"), []float64{4, 3, 2, 1}))
	data, exists := s.Get(NewEvent("blargh"))
	require.True(t, exists)
	assert.Equal(t, []float64{4, 3, 2, 1}, data)

	s.Del(NewEvent("blargh"))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.NumObs())
}

func TestSetLabels(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Set(NewSeasonality("weekly", FourierCompSin, 1), []float64{0, 1}))
	require.NoError(t, s.Set(Intercept(), []float64{1, 1}))
	require.NoError(t, s.Set(NewChangepoint("auto_0", ChangepointCompSlope), []float64{0, 0}))

	labels := s.Labels()
	require.Equal(t, 3, labels.Len())

	expected := []string{"chpnt_auto_0_slope", "growth_intercept", "seas_weekly_01_sin"}
	for i, f := range labels.Labels() {
		assert.Equal(t, expected[i], f.String())
	}

	idx, exists := labels.Index(Intercept())
	assert.True(t, exists)
	assert.Equal(t, 1, idx)

	_, exists = labels.Index(NewEvent("missing"))
	assert.False(t, exists)
}

func TestSetFilterByType(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Set(NewSeasonality("weekly", FourierCompSin, 1), []float64{0, 1}))
	require.NoError(t, s.Set(Intercept(), []float64{1, 1}))
	require.NoError(t, s.Set(Linear(), []float64{0, 1}))

	growth := s.FilterByType(FeatureTypeGrowth)
	assert.Equal(t, 2, growth.Len())
	assert.Equal(t, 2, growth.NumObs())

	none := s.FilterByType(FeatureTypeEvent)
	assert.Equal(t, 0, none.Len())
}

func TestSetMatrix(t *testing.T) {
	testData := map[string]struct {
		intercept bool
		expected  *mat.Dense
	}{
		"without intercept": {
			intercept: false,
			expected: mat.NewDense(3, 2, []float64{
				1, 4,
				2, 5,
				3, 6,
			}),
		},
		"with intercept": {
			intercept: true,
			expected: mat.NewDense(3, 3, []float64{
				1, 1, 4,
				1, 2, 5,
				1, 3, 6,
			}),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := NewSet()
			require.NoError(t, s.Set(NewEvent("a"), []float64{1, 2, 3}))
			require.NoError(t, s.Set(NewEvent("b"), []float64{4, 5, 6}))
			assert.Equal(t, td.expected, s.Matrix(td.intercept))
		})
	}
}

func TestSetUpdate(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Set(NewEvent("a"), []float64{1, 2}))

	other := NewSet()
	require.NoError(t, other.Set(NewEvent("b"), []float64{3, 4}))

	require.NoError(t, s.Update(other))
	assert.Equal(t, 2, s.Len())

	bad := NewSet()
	require.NoError(t, bad.Set(NewEvent("c"), []float64{1}))
	assert.ErrorIs(t, s.Update(bad), ErrSetLenMismatch)
}
