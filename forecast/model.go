package forecast

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/forecast/options"
	"github.com/aouyang1/go-forecaster-studio/forecast/util"
	"github.com/goccy/go-json"
)

var ErrUnknownFeatureType = feature.ErrUnknownFeatureType

// Model represents a serializeable format of a forecast storing the resolved forecast
// options, fit scores, and coefficients
type Model struct {
	TrainStartTime time.Time        `json:"train_start_time"`
	TrainEndTime   time.Time        `json:"train_end_time"`
	Options        *options.Options `json:"options"`
	Scores         *Scores          `json:"scores"`
	Weights        Weights          `json:"weights"`
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%sTraining Window: %s to %s\n", prefix, util.IndentExpand(indent, 1),
		m.TrainStartTime.Format(time.RFC3339), m.TrainEndTime.Format(time.RFC3339)); err != nil {
		return err
	}

	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sGrowth: %s    Regularization: %.3f\n", prefix, util.IndentExpand(indent, 1),
			m.Options.GrowthType, m.Options.Regularization); err != nil {
			return err
		}

		if err := m.Options.SeasonalityOptions.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}

		if err := m.Options.ChangepointOptions.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}

		if err := m.Options.EventOptions.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, util.IndentExpand(indent, 1),
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent, 0)
}

// Weights stores the coefficients for the forecast model. The intercept is the weight of the
// intercept growth feature.
type Weights struct {
	Coef []FeatureWeight `json:"coefficients"`
}

// FeatureLabels returns all of the feature labels in the same order as the coefficients
func (w *Weights) FeatureLabels() ([]feature.Feature, error) {
	labels := make([]feature.Feature, 0, len(w.Coef))
	for _, fw := range w.Coef {
		feat, err := fw.ToFeature()
		if err != nil {
			return nil, err
		}
		labels = append(labels, feat)
	}
	return labels, nil
}

// Coefficients returns a slice copy of the coefficients
func (w *Weights) Coefficients() []float64 {
	coef := make([]float64, 0, len(w.Coef))
	for _, fw := range w.Coef {
		coef = append(coef, fw.Value)
	}
	return coef
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(wr, "%s%sWeights:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. changepoint, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// ToFeature rebuilds the feature described by Type and Labels
func (fw *FeatureWeight) ToFeature() (feature.Feature, error) {
	if fw == nil {
		return nil, ErrUnknownFeatureType
	}
	return feature.FromLabels(fw.Type, fw.Labels)
}
