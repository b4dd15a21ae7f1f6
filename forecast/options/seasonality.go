package options

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/forecast/util"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
	Year = 36525 * Day / 100

	DefaultDailyOrders  = 4
	DefaultWeeklyOrders = 3
	DefaultYearlyOrders = 10
)

// Seasonality options configures the number of seasonality components to fit for. With Auto
// set, daily, weekly and yearly components are added when the training data can support them.
type SeasonalityOptions struct {
	Auto               bool                `json:"auto"`
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if s.Auto && len(s.SeasonalityConfigs) == 0 {
		noCfg = " Auto"
	}
	if len(s.SeasonalityConfigs) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	}
	fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg)
	for _, seasCfg := range s.SeasonalityConfigs {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			seasCfg.Name, seasCfg.Period, seasCfg.Orders)
	}
	return tbl.Flush()
}

// NewDefaultSeasonalityOptions detects seasonality from the training data
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{Auto: true}
}

// DetectSeasonality returns the seasonality configs the time points can support. Daily
// seasonality needs sub-daily sampling and two days of data, weekly needs two weeks and
// yearly needs two years.
func DetectSeasonality(t []time.Time) []SeasonalityConfig {
	ts := timedataset.TimeSlice(t)
	span := ts.Span()

	var cfgs []SeasonalityConfig
	if freq, err := ts.EstimateFreq(); err == nil && freq < Day && span >= 2*Day {
		cfgs = append(cfgs, NewDailySeasonalityConfig(DefaultDailyOrders))
	}
	if span >= 2*Week {
		cfgs = append(cfgs, NewWeeklySeasonalityConfig(DefaultWeeklyOrders))
	}
	if span >= 2*Year {
		cfgs = append(cfgs, NewYearlySeasonalityConfig(DefaultYearlyOrders))
	}
	return cfgs
}

func (s *SeasonalityOptions) resolve(t []time.Time) {
	if s.Auto {
		s.SeasonalityConfigs = append(s.SeasonalityConfigs, DetectSeasonality(t)...)
		s.Auto = false
	}
	s.removeDuplicates()
}

func (s *SeasonalityOptions) removeDuplicates() {
	// sort seasonality configs so we can find duplicate periods and remove them
	optSeasConfigs := s.SeasonalityConfigs
	sort.Slice(optSeasConfigs, func(i, j int) bool {
		if optSeasConfigs[i].Period < optSeasConfigs[j].Period {
			return true
		}
		if optSeasConfigs[i].Period > optSeasConfigs[j].Period {
			return false
		}
		if optSeasConfigs[i].Orders > optSeasConfigs[j].Orders {
			return true
		}
		if optSeasConfigs[i].Orders < optSeasConfigs[j].Orders {
			return false
		}
		return optSeasConfigs[i].Name < optSeasConfigs[j].Name
	})
	validIdx := make([]int, 0, len(optSeasConfigs))
	var lastValidPeriod time.Duration
	for i, seasCfg := range optSeasConfigs {
		if seasCfg.Period > 0 && seasCfg.Period > lastValidPeriod && seasCfg.Name != "" && seasCfg.Orders > 0 {
			validIdx = append(validIdx, i)
			lastValidPeriod = seasCfg.Period
		}
	}

	if len(validIdx) != len(optSeasConfigs) {
		validatedSeasConfigs := make([]SeasonalityConfig, 0, len(validIdx))
		for _, i := range validIdx {
			validatedSeasConfigs = append(validatedSeasConfigs, optSeasConfigs[i])
		}
		optSeasConfigs = validatedSeasConfigs
	}
	s.SeasonalityConfigs = optSeasConfigs
}

// GenerateFeatures builds a sine and cosine feature for every order of every config
func (s SeasonalityOptions) GenerateFeatures(epoch []float64) (*feature.Set, error) {
	x := feature.NewSet()
	for _, seasCfg := range s.SeasonalityConfigs {
		period := seasCfg.Period.Seconds()
		for order := 1; order <= seasCfg.Orders; order++ {
			sinFeat := feature.NewSeasonality(seasCfg.Name, feature.FourierCompSin, order)
			cosFeat := feature.NewSeasonality(seasCfg.Name, feature.FourierCompCos, order)
			if err := x.Set(sinFeat, sinFeat.Generate(epoch, period)); err != nil {
				return nil, fmt.Errorf("unable to generate seasonality features for %q, %w", seasCfg.Name, err)
			}
			if err := x.Set(cosFeat, cosFeat.Generate(epoch, period)); err != nil {
				return nil, fmt.Errorf("unable to generate seasonality features for %q, %w", seasCfg.Name, err)
			}
		}
	}
	return x, nil
}

// SeasonalityConfig represents a single seasonality configuration to model. This will generate
// Fourier series of the specified period and number of orders. E.g. a period of 24*time.Hour
// with 3 orders will create 6 Fourier series of order 1, 2, 3 and for the sine/cosine components
// where order 1 will have a period of 1 day and order 2 will have a period of 12 hours.
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}

	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// NewDailySeasonalityConfig creates a daily seasonality config given a specified number of orders
func NewDailySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasDaily, Day, orders)
}

// NewWeeklySeasonalityConfig creates a weekly seasonality config given a specified number of orders
func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasWeekly, Week, orders)
}

// NewYearlySeasonalityConfig creates a yearly seasonality config of 365.25 days
func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasYearly, Year, orders)
}
