package feature

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonalityString(t *testing.T) {
	feat := NewSeasonality("daily", FourierCompCos, 2)
	expected := "seas_daily_02_cos"
	assert.Equal(t, expected, feat.String())
}

func TestSeasonalityGet(t *testing.T) {
	feat := NewSeasonality("daily", FourierCompCos, 2)

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown": {
			label: "unknown",
		},
		"capitalized": {
			label:     "NAME",
			expVal:    "daily",
			expExists: true,
		},
		"exact match": {
			label:     "name",
			expVal:    "daily",
			expExists: true,
		},
		"fourier component": {
			label:     "fourier_component",
			expVal:    "cos",
			expExists: true,
		},
		"order": {
			label:     "order",
			expVal:    "2",
			expExists: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestSeasonalityDecode(t *testing.T) {
	feat := NewSeasonality("daily", FourierCompCos, 2)
	exp := map[string]string{
		"name":              "daily",
		"fourier_component": "cos",
		"order":             "2",
	}
	assert.Equal(t, exp, feat.Decode())
}

func TestSeasonalityUnmarshalJSON(t *testing.T) {
	feat := NewSeasonality("daily", FourierCompCos, 2)
	out, err := json.Marshal(feat.Decode())
	require.NoError(t, err)

	var nextFeat Seasonality
	require.NoError(t, json.Unmarshal(out, &nextFeat))

	assert.Equal(t, feat, &nextFeat)
}

func TestSeasonalityUnmarshalJSONErrors(t *testing.T) {
	testData := map[string]string{
		"bad order":     `{"name":"daily","fourier_component":"cos","order":"two"}`,
		"missing order": `{"name":"daily","fourier_component":"cos"}`,
		"not labels":    `{"name":"daily","order":2}`,
		"not an object": `[1,2]`,
	}

	for name, data := range testData {
		t.Run(name, func(t *testing.T) {
			var feat Seasonality
			assert.Error(t, json.Unmarshal([]byte(data), &feat))
		})
	}
}

func TestSeasonalityGenerate(t *testing.T) {
	epoch := []float64{0, 0.25, 0.5, 0.75, 1.0}

	testData := map[string]struct {
		feat     *Seasonality
		expected []float64
	}{
		"sin order 1": {
			feat:     NewSeasonality("unit", FourierCompSin, 1),
			expected: []float64{0, 1, 0, -1, 0},
		},
		"cos order 1": {
			feat:     NewSeasonality("unit", FourierCompCos, 1),
			expected: []float64{1, 0, -1, 0, 1},
		},
		"cos order 2": {
			feat:     NewSeasonality("unit", FourierCompCos, 2),
			expected: []float64{1, -1, 1, -1, 1},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.feat.Generate(epoch, 1.0)
			require.Len(t, res, len(td.expected))
			for i := range res {
				assert.False(t, math.IsNaN(res[i]))
			}
			assert.InDeltaSlice(t, td.expected, res, 1e-9)
		})
	}
}
