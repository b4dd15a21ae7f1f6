// Package feature describes the named regressors a forecast model is fit against and
// the data sets that hold their values.
package feature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// FeatureType identifies the family a feature belongs to. Components of a forecast are
// grouped by this type.
type FeatureType string

const (
	FeatureTypeChangepoint FeatureType = "changepoint"
	FeatureTypeSeasonality FeatureType = "seasonality"
	FeatureTypeGrowth      FeatureType = "growth"
	FeatureTypeEvent       FeatureType = "event"
)

// Feature is a single regressor column of the design matrix
type Feature interface {
	// String is the unique label of the feature and is used to key coefficients
	String() string

	// Get returns the value of an arbitrary label and whether the label exists
	Get(string) (string, bool)

	Type() FeatureType

	// Decode converts the feature into a map of label values which can be used to
	// reconstruct the feature with UnmarshalJSON.
	Decode() map[string]string
}

// Label keys written by Decode
const (
	LabelName            = "name"
	LabelChangepointComp = "changepoint_component"
	LabelFourierComp     = "fourier_component"
	LabelOrder           = "order"
)

var ErrUnknownFeatureType = errors.New("unknown feature type")

// FromLabels rebuilds a feature of type ft from the labels written by Decode
func FromLabels(ft FeatureType, labels map[string]string) (Feature, error) {
	switch ft {
	case FeatureTypeChangepoint:
		return NewChangepoint(labels[LabelName], ChangepointComp(labels[LabelChangepointComp])), nil
	case FeatureTypeSeasonality:
		s, err := seasonalityFromLabels(labels)
		if err != nil {
			return nil, err
		}
		return s, nil
	case FeatureTypeEvent:
		return NewEvent(labels[LabelName]), nil
	case FeatureTypeGrowth:
		return NewGrowth(labels[LabelName]), nil
	}
	return nil, fmt.Errorf("%q, %w", ft, ErrUnknownFeatureType)
}

// getLabel looks up a label of f case insensitively
func getLabel(f Feature, label string) (string, bool) {
	v, exists := f.Decode()[strings.ToLower(label)]
	return v, exists
}

// decodeLabels reads back the label map produced by Decode
func decodeLabels(data []byte) (map[string]string, error) {
	var labels map[string]string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("unable to decode feature labels, %w", err)
	}
	return labels, nil
}
