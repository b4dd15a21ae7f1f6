package options

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/forecast/util"
)

const (
	DefaultAutoNumChangepoints = 25
	DefaultChangepointRange    = 0.8
)

// Changepoint describes a point in time that will change the ongoing trend. This will
// include a growth feature and optionally a bias feature.
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the changepoint fit to either use auto-detection
// by evenly placing N changepoints in the first part of the training window or a known
// set of changepoints. Auto placement follows the observations so gaps in the data never
// receive a changepoint.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	EnableGrowth        bool          `json:"enable_growth"`
	EnableBias          bool          `json:"enable_bias"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`

	// Range is the fraction of the training history eligible for auto changepoints
	Range float64 `json:"range"`
}

func (c ChangepointOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if c.Auto && len(c.Changepoints) == 0 {
		noCfg = fmt.Sprintf(" Auto(%d)", c.AutoNumChangepoints)
	}
	if len(c.Changepoints) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tDatetime\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	}
	fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg)
	for _, chpt := range c.Changepoints {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.RFC3339))
	}
	return tbl.Flush()
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		EnableGrowth:        true,
		Range:               DefaultChangepointRange,
	}
}

// GenerateAutoChangepoints places the changepoints on observations spread evenly across the
// first Range fraction of the sorted training times. The number of changepoints is capped so
// each one lands on a distinct observation after the first.
func (c ChangepointOptions) GenerateAutoChangepoints(t []time.Time) []Changepoint {
	n := c.AutoNumChangepoints
	if n <= 0 {
		n = DefaultAutoNumChangepoints
	}
	chptRange := c.Range
	if chptRange <= 0 || chptRange > 1 {
		chptRange = DefaultChangepointRange
	}

	histSize := int(math.Floor(float64(len(t)) * chptRange))
	if n > histSize-1 {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}

	chpts := make([]Changepoint, 0, n)
	step := float64(histSize-1) / float64(n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(step * float64(i)))
		chpts = append(chpts, NewChangepoint("auto_"+strconv.Itoa(i-1), t[idx]))
	}
	return chpts
}

func (c *ChangepointOptions) resolve(t []time.Time) {
	if c.Auto {
		c.Changepoints = c.GenerateAutoChangepoints(t)
		c.Auto = false
	}
}

// GenerateFeatures computes the changepoint features for each time point. The slope feature
// ramps from 0 at the changepoint scaled by the training window so it shares units with the
// linear growth feature. Changepoints after the training end are skipped since they would
// never have been fit.
func (c ChangepointOptions) GenerateFeatures(t []time.Time, trainStartTime, trainEndTime time.Time) (*feature.Set, error) {
	feat := feature.NewSet()

	window := trainEndTime.Sub(trainStartTime).Seconds()
	if window <= 0 {
		return feat, nil
	}

	for i, chpt := range c.Changepoints {
		if chpt.T.After(trainEndTime) {
			continue
		}
		chpntName := strconv.Itoa(i)
		if chpt.Name != "" {
			chpntName = chpt.Name
		}

		bias := make([]float64, len(t))
		slope := make([]float64, len(t))
		for j, tPnt := range t {
			if tPnt.Before(chpt.T) {
				continue
			}
			bias[j] = 1.0
			slope[j] = tPnt.Sub(chpt.T).Seconds() / window
		}

		if c.EnableBias {
			if err := feat.Set(feature.NewChangepoint(chpntName, feature.ChangepointCompBias), bias); err != nil {
				return nil, err
			}
		}
		if c.EnableGrowth {
			if err := feat.Set(feature.NewChangepoint(chpntName, feature.ChangepointCompSlope), slope); err != nil {
				return nil, err
			}
		}
	}
	return feat, nil
}
