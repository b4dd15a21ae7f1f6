package feature

import (
	"fmt"
	"time"
)

const (
	GrowthIntercept = "intercept"
	GrowthLinear    = "linear"
	GrowthFlat      = "flat"
)

// Growth is a trend feature spanning the whole series such as the intercept or a linear
// ramp across the training window.
type Growth struct {
	Name string `json:"name"`
}

func NewGrowth(name string) *Growth {
	return &Growth{name}
}

// String returns the string representation of the growth feature
func (g Growth) String() string {
	return fmt.Sprintf("growth_%s", g.Name)
}

func (g Growth) Get(label string) (string, bool) {
	return getLabel(g, label)
}

func (g Growth) Type() FeatureType {
	return FeatureTypeGrowth
}

func (g Growth) Decode() map[string]string {
	return map[string]string{LabelName: g.Name}
}

func (g *Growth) UnmarshalJSON(data []byte) error {
	labels, err := decodeLabels(data)
	if err != nil {
		return err
	}
	g.Name = labels[LabelName]
	return nil
}

// Intercept is the constant growth feature
func Intercept() *Growth {
	return NewGrowth(GrowthIntercept)
}

// Linear is the growth feature ramping from 0 at the training start to 1 at the training end
func Linear() *Growth {
	return NewGrowth(GrowthLinear)
}

// Generate computes the growth feature for every epoch second value. The linear ramp is
// scaled so the training window spans 0 to 1 which keeps the coefficient in units of the
// series.
func (g Growth) Generate(epoch []float64, trainStartTime, trainEndTime time.Time) []float64 {
	out := make([]float64, len(epoch))
	switch g.Name {
	case GrowthIntercept:
		for i := range out {
			out[i] = 1.0
		}
	case GrowthLinear:
		start := float64(trainStartTime.UnixNano()) / 1e9
		window := trainEndTime.Sub(trainStartTime).Seconds()
		if window <= 0 {
			return out
		}
		for i, e := range epoch {
			out[i] = (e - start) / window
		}
	}
	return out
}
