package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDuplicateTime      = errors.New("duplicate timestamp")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from time data")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length and T is strictly increasing.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// The inputs must already be strictly increasing in time.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := validateLen(t, y); err != nil {
		return nil, err
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	td := &TimeDataset{T: t, Y: y}
	return td.Copy(), nil
}

// NewSortedDataset sorts the observations by time before building the dataset. Two
// observations sharing a timestamp cannot be ordered and are rejected.
func NewSortedDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if err := validateLen(t, y); err != nil {
		return nil, err
	}

	td := (&TimeDataset{T: t, Y: y}).Copy()
	sort.Stable(td)
	for i := 1; i < len(td.T); i++ {
		if td.T[i].Equal(td.T[i-1]) {
			return nil, fmt.Errorf("%s appears more than once, %w", td.T[i].Format(time.RFC3339), ErrDuplicateTime)
		}
	}
	return td, nil
}

func validateLen(t []time.Time, y []float64) error {
	if len(y) == 0 {
		return ErrNoTrainingData
	}
	if len(t) != len(y) {
		return fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}
	return nil
}

func (td *TimeDataset) Len() int           { return len(td.T) }
func (td *TimeDataset) Less(i, j int) bool { return td.T[i].Before(td.T[j]) }
func (td *TimeDataset) Swap(i, j int) {
	td.T[i], td.T[j] = td.T[j], td.T[i]
	td.Y[i], td.Y[j] = td.Y[j], td.Y[i]
}

// Copy returns a deep copy of the dataset
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNaN returns a copy with every missing value removed
func (td *TimeDataset) DropNaN() *TimeDataset {
	if td == nil {
		return nil
	}
	out := &TimeDataset{
		T: make([]time.Time, 0, len(td.T)),
		Y: make([]float64, 0, len(td.Y)),
	}
	for i, y := range td.Y {
		if math.IsNaN(y) {
			continue
		}
		out.T = append(out.T, td.T[i])
		out.Y = append(out.Y, y)
	}
	return out
}

// Before returns a copy holding the observations at or before the cutoff
func (td *TimeDataset) Before(cutoff time.Time) *TimeDataset {
	n := sort.Search(len(td.T), func(i int) bool { return td.T[i].After(cutoff) })
	return (&TimeDataset{T: td.T[:n], Y: td.Y[:n]}).Copy()
}

// Between returns a copy holding the observations in the half open interval (start, end]
func (td *TimeDataset) Between(start, end time.Time) *TimeDataset {
	lo := sort.Search(len(td.T), func(i int) bool { return td.T[i].After(start) })
	hi := sort.Search(len(td.T), func(i int) bool { return td.T[i].After(end) })
	if hi < lo {
		hi = lo
	}
	return (&TimeDataset{T: td.T[lo:hi], Y: td.Y[lo:hi]}).Copy()
}
