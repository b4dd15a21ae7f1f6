package options

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonalityTablePrint(t *testing.T) {
	testData := map[string]struct {
		opt          *SeasonalityOptions
		prefix       string
		indent       string
		indentGrowth int
		expected     string
	}{
		"no configs": {
			opt: &SeasonalityOptions{},
			expected: `Seasonality: None
`,
		},
		"no configs with prefix and indent": {
			opt:          &SeasonalityOptions{},
			prefix:       "  ",
			indent:       "--",
			indentGrowth: 1,
			expected: `  --Seasonality: None
`,
		},
		"auto without configs": {
			opt: &SeasonalityOptions{Auto: true},
			expected: `Seasonality: Auto
`,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			td.opt.TablePrint(&buf, td.prefix, td.indent, td.indentGrowth)
			assert.Equal(t, td.expected, buf.String())
		})
	}
}

func TestSeasonalityTablePrintConfigs(t *testing.T) {
	opt := &SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			{Name: "s0", Period: 12 * time.Hour, Orders: 1},
		},
	}
	var buf bytes.Buffer
	require.Nil(t, opt.TablePrint(&buf, "  ", "  ", 1))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "    Seasonality:", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "Name  Period Orders"))
	assert.True(t, strings.HasSuffix(lines[2], "s0 12h0m0s      1"))
}

func TestDetectSeasonality(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	testData := map[string]struct {
		t        []time.Time
		expected []SeasonalityConfig
	}{
		"two days of daily data": {
			t:        timedataset.GenerateTFrom(start, 2, Day),
			expected: nil,
		},
		"hourly over three days": {
			t:        timedataset.GenerateTFrom(start, 72, time.Hour),
			expected: []SeasonalityConfig{NewDailySeasonalityConfig(DefaultDailyOrders)},
		},
		"daily over a month": {
			t:        timedataset.GenerateTFrom(start, 30, Day),
			expected: []SeasonalityConfig{NewWeeklySeasonalityConfig(DefaultWeeklyOrders)},
		},
		"weekly over three years": {
			t: timedataset.GenerateTFrom(start, 160, Week),
			expected: []SeasonalityConfig{
				NewWeeklySeasonalityConfig(DefaultWeeklyOrders),
				NewYearlySeasonalityConfig(DefaultYearlyOrders),
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, DetectSeasonality(td.t))
		})
	}
}

func TestSeasonalityGenerateFeatures(t *testing.T) {
	opt := SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{NewDailySeasonalityConfig(2)},
	}
	epoch := []float64{0, 21600, 43200}
	feat, err := opt.GenerateFeatures(epoch)
	require.Nil(t, err)
	assert.Equal(t, 4, feat.Len())

	sin1, exists := feat.Get(feature.NewSeasonality(LabelSeasDaily, feature.FourierCompSin, 1))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, sin1, 1e-9)

	cos2, exists := feat.Get(feature.NewSeasonality(LabelSeasDaily, feature.FourierCompCos, 2))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{1, -1, 1}, cos2, 1e-9)
}

func TestRemoveDuplicates(t *testing.T) {
	testData := map[string]struct {
		opt      *SeasonalityOptions
		expected *SeasonalityOptions
	}{
		"no configs": {
			opt:      &SeasonalityOptions{},
			expected: &SeasonalityOptions{},
		},
		"period ordering": {
			opt: &SeasonalityOptions{
				SeasonalityConfigs: []SeasonalityConfig{
					{Name: "bar", Orders: 2, Period: 2 * time.Hour},
					{Name: "foo", Orders: 2, Period: 1 * time.Hour},
					{Name: "baz", Orders: 2, Period: 3 * time.Hour},
				},
			},
			expected: &SeasonalityOptions{
				SeasonalityConfigs: []SeasonalityConfig{
					{Name: "foo", Orders: 2, Period: 1 * time.Hour},
					{Name: "bar", Orders: 2, Period: 2 * time.Hour},
					{Name: "baz", Orders: 2, Period: 3 * time.Hour},
				},
			},
		},
		"orders ordering": {
			opt: &SeasonalityOptions{
				SeasonalityConfigs: []SeasonalityConfig{
					{Name: "bar", Orders: 2, Period: 2 * time.Hour},
					{Name: "foo", Orders: 1, Period: 2 * time.Hour},
					{Name: "baz", Orders: 3, Period: 2 * time.Hour},
				},
			},
			expected: &SeasonalityOptions{
				SeasonalityConfigs: []SeasonalityConfig{
					{Name: "baz", Orders: 3, Period: 2 * time.Hour},
				},
			},
		},
		"name ordering": {
			opt: &SeasonalityOptions{
				SeasonalityConfigs: []SeasonalityConfig{
					{Name: "bar", Orders: 1, Period: 1 * time.Hour},
					{Name: "foo", Orders: 1, Period: 1 * time.Hour},
					{Name: "baz", Orders: 1, Period: 1 * time.Hour},
				},
			},
			expected: &SeasonalityOptions{
				SeasonalityConfigs: []SeasonalityConfig{
					{Name: "bar", Orders: 1, Period: 1 * time.Hour},
				},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			td.opt.removeDuplicates()
			assert.Equal(t, td.expected, td.opt)
		})
	}
}
