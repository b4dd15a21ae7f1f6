package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n evenly spaced time points ending one interval before now,
// truncated to the minute.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	return GenerateTFrom(ct, n, interval)
}

// GenerateTFrom returns n evenly spaced time points starting at start
func GenerateTFrom(start time.Time, n int, interval time.Duration) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(interval*time.Duration(i)))
	}
	return t
}

// Series is a simulated value column built up by chaining generators
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if (t[i].After(start) || t[i].Equal(start)) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

func (s Series) MaskWithWeekend(t []time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			s[i] = 0.0
		}
	}
	return s
}

func (s Series) MaskWithTimeRange(start, end time.Time, t []time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if t[i].Before(start) || t[i].After(end) {
			s[i] = 0.0
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns normally distributed noise whose scale can itself oscillate. A nil
// source draws from the global generator.
func GenerateNoise(src *rand.Rand, t []time.Time, noiseScale, amp, periodSec, order, timeOffset float64) Series {
	norm := rand.NormFloat64
	if src != nil {
		norm = src.NormFloat64
	}
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		scale := (noiseScale + amp*math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset)))
		y = append(y, norm()*scale)
	}
	return Series(y)
}

// GenerateLinearY returns intercept + slope * days since the first time point
func GenerateLinearY(t []time.Time, intercept, slopePerDay float64) Series {
	y := make([]float64, len(t))
	if len(t) == 0 {
		return Series(y)
	}
	for i := range t {
		y[i] = intercept + slopePerDay*t[i].Sub(t[0]).Hours()/24.0
	}
	return Series(y)
}

func GenerateChange(t []time.Time, chpt time.Time, bias, slope float64) Series {
	n := len(t)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if t[i].After(chpt) || t[i].Equal(chpt) {
			jump := bias + slope*t[i].Sub(chpt).Minutes()
			y[i] = jump
		}
	}
	return Series(y)
}
