package feature

import (
	"fmt"
	"math"
	"strconv"
)

type FourierComp string

const (
	FourierCompSin FourierComp = "sin"
	FourierCompCos FourierComp = "cos"
)

// Seasonality is one sine or cosine term of a Fourier series of a named period
type Seasonality struct {
	Name        string      `json:"name"`
	FourierComp FourierComp `json:"fourier_component"`
	Order       int         `json:"order"`
}

func NewSeasonality(name string, fcomp FourierComp, order int) *Seasonality {
	return &Seasonality{name, fcomp, order}
}

func (s Seasonality) String() string {
	return fmt.Sprintf("seas_%s_%02d_%s", s.Name, s.Order, s.FourierComp)
}

func (s Seasonality) Get(label string) (string, bool) {
	return getLabel(s, label)
}

func (s Seasonality) Type() FeatureType {
	return FeatureTypeSeasonality
}

func (s Seasonality) Decode() map[string]string {
	return map[string]string{
		LabelName:        s.Name,
		LabelFourierComp: string(s.FourierComp),
		LabelOrder:       strconv.Itoa(s.Order),
	}
}

// UnmarshalJSON reads the labels written by Decode
func (s *Seasonality) UnmarshalJSON(data []byte) error {
	labels, err := decodeLabels(data)
	if err != nil {
		return err
	}
	feat, err := seasonalityFromLabels(labels)
	if err != nil {
		return err
	}
	*s = *feat
	return nil
}

// seasonalityFromLabels parses the order which Decode stores as a string
func seasonalityFromLabels(labels map[string]string) (*Seasonality, error) {
	order, err := strconv.Atoi(labels[LabelOrder])
	if err != nil {
		return nil, fmt.Errorf("seasonality order %q, %w", labels[LabelOrder], err)
	}
	return NewSeasonality(labels[LabelName], FourierComp(labels[LabelFourierComp]), order), nil
}

// Generate computes the Fourier term for every epoch second value given the period of the
// seasonality in seconds
func (s Seasonality) Generate(epoch []float64, period float64) []float64 {
	omega := 2.0 * math.Pi * float64(s.Order) / period
	out := make([]float64, len(epoch))
	for i, tFeat := range epoch {
		rad := omega * tFeat
		switch s.FourierComp {
		case FourierCompSin:
			out[i] = math.Sin(rad)
		case FourierCompCos:
			out[i] = math.Cos(rad)
		}
	}
	return out
}
