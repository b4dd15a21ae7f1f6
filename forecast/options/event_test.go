package options

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/go-forecaster-studio/event"
	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventGenerateFeatures(t *testing.T) {
	start := time.Date(2024, 12, 23, 0, 0, 0, 0, time.UTC)
	tSeries := timedataset.GenerateTFrom(start, 5, Day)

	testData := map[string]struct {
		opt      EventOptions
		expected map[string][]float64
	}{
		"no events": {
			opt:      EventOptions{},
			expected: map[string][]float64{},
		},
		"custom event": {
			opt: EventOptions{
				Events: []event.Event{event.NewEvent("sale", start.Add(Day), start.Add(3*Day))},
			},
			expected: map[string][]float64{
				"event_sale": {0, 1, 1, 0, 0},
			},
		},
		"invalid event skipped": {
			opt: EventOptions{
				Events: []event.Event{event.NewEvent("", start, start.Add(Day))},
			},
			expected: map[string][]float64{},
		},
		"us holidays": {
			opt: EventOptions{Country: "US"},
			expected: map[string][]float64{
				"event_christmas_day": {0, 0, 1, 0, 0},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			feat, err := td.opt.GenerateFeatures(tSeries)
			require.Nil(t, err)
			require.Equal(t, len(td.expected), feat.Len())
			for _, label := range feat.Labels().Labels() {
				assert.Equal(t, feature.FeatureTypeEvent, label.Type())
				data, _ := feat.Get(label)
				assert.Equal(t, td.expected[label.String()], data)
			}
		})
	}
}

func TestEventTablePrint(t *testing.T) {
	var buf bytes.Buffer
	require.Nil(t, EventOptions{Country: "US"}.TablePrint(&buf, "", "  ", 0))
	assert.Equal(t, "Events: None\n  Holidays: US\n", buf.String())
}
