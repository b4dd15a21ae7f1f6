package feature

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var ErrSetLenMismatch = errors.New("feature data length does not match the set length")

// Set represents a mapping to each feature data keyed by the string representation
// of the feature. All features in a set share the same number of observations.
type Set struct {
	m      int
	set    map[string][]float64
	labels map[string]Feature
}

// NewSet returns an empty feature set
func NewSet() *Set {
	return &Set{
		set:    make(map[string][]float64),
		labels: make(map[string]Feature),
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.set)
}

// NumObs returns the number of observations each feature holds
func (s *Set) NumObs() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores the data for a feature overwriting any previous value. The first feature
// stored fixes the number of observations of the set.
func (s *Set) Set(f Feature, data []float64) error {
	if len(s.set) == 0 {
		s.m = len(data)
	}
	if len(data) != s.m {
		return fmt.Errorf("%s has %d observations, expected %d, %w", f, len(data), s.m, ErrSetLenMismatch)
	}
	s.set[f.String()] = data
	s.labels[f.String()] = f
	return nil
}

// Get returns the data of a feature if present
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	data, exists := s.set[f.String()]
	return data, exists
}

// Del removes a feature from the set
func (s *Set) Del(f Feature) {
	delete(s.set, f.String())
	delete(s.labels, f.String())
	if len(s.set) == 0 {
		s.m = 0
	}
}

// Update copies every feature of the other set into this one
func (s *Set) Update(other *Set) error {
	if other == nil {
		return nil
	}
	for label, data := range other.set {
		if err := s.Set(other.labels[label], data); err != nil {
			return err
		}
	}
	return nil
}

// FilterByType returns a new set with only the features of the given types
func (s *Set) FilterByType(types ...FeatureType) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for label, f := range s.labels {
		for _, ft := range types {
			if f.Type() == ft {
				out.set[label] = s.set[label]
				out.labels[label] = f
				out.m = s.m
				break
			}
		}
	}
	return out
}

// Labels returns the sorted slice of all tracked features in the set
func (s *Set) Labels() *Labels {
	if s == nil {
		return NewLabels(nil)
	}

	labels := make([]Feature, 0, len(s.labels))
	for _, feat := range s.labels {
		labels = append(labels, feat)
	}
	sort.Slice(
		labels,
		func(i, j int) bool {
			return labels[i].String() < labels[j].String()
		},
	)
	return NewLabels(labels)
}

// Matrix returns a matrix representation of the set to be used with matrix methods.
// The matrix has m rows representing the number of observations and n columns representing
// the number of features in label order, with an optional leading column of ones.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	if s.Len() == 0 && !intercept {
		return nil
	}
	m := s.NumObs()
	if m == 0 {
		return nil
	}

	featureLabels := s.Labels()
	n := featureLabels.Len()
	if intercept {
		n += 1
	}

	obs := make([]float64, m*n)

	featNum := 0
	if intercept {
		for i := 0; i < m; i++ {
			obs[n*i] = 1.0
		}
		featNum += 1
	}

	for _, label := range featureLabels.Labels() {
		feature := s.set[label.String()]
		for i := 0; i < len(feature); i++ {
			obs[n*i+featNum] = feature[i]
		}
		featNum += 1
	}
	return mat.NewDense(m, n, obs)
}
