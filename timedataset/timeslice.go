package timedataset

import (
	"time"
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}
	return t[len(t)-1]
}

// Span is the duration between the first and last time point
func (t TimeSlice) Span() time.Duration {
	return t.EndTime().Sub(t.StartTime())
}

// EstimateFreq returns the most common delta between consecutive time points. Ties
// resolve to the smallest delta.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	var maxDelta time.Duration
	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	if maxDelta <= 0 {
		return 0, ErrCannotInferFreq
	}
	return maxDelta, nil
}

// MonthStep returns the number of calendar months between consecutive time points when every
// delta is the same whole number of months. Days past the 28th are excluded since adding months
// to them overflows into the next month.
func (t TimeSlice) MonthStep() (int, bool) {
	if len(t) < 2 {
		return 0, false
	}

	var step int
	for i := 1; i < len(t); i++ {
		prev, curr := t[i-1], t[i]
		if prev.Day() > 28 || curr.Day() != prev.Day() {
			return 0, false
		}
		ph, pm, ps := prev.Clock()
		ch, cm, cs := curr.Clock()
		if ph != ch || pm != cm || ps != cs || prev.Nanosecond() != curr.Nanosecond() {
			return 0, false
		}

		months := (curr.Year()-prev.Year())*12 + int(curr.Month()) - int(prev.Month())
		if months <= 0 || (step != 0 && months != step) {
			return 0, false
		}
		step = months
	}
	return step, true
}

// Epoch returns each time point as fractional seconds since the unix epoch
func (t TimeSlice) Epoch() []float64 {
	epoch := make([]float64, len(t))
	for i, tPnt := range t {
		epoch[i] = float64(tPnt.UnixNano()) / 1e9
	}
	return epoch
}
