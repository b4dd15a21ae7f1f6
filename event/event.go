// Package event describes spans of time, such as holidays, that are modelled separately
// from the trend and seasonality of a series.
package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrStartAfterEnd  = errors.New("event start time is after end time")
	ErrUnsetTime      = errors.New("unset event start or end time")
	ErrNoEventName    = errors.New("no event name")
	ErrUnknownCountry = errors.New("unknown holiday country")
)

// Event represents a time span [Start, End) to model separately. Events sharing a name
// share a single feature, e.g. every occurrence of a yearly holiday.
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Contains reports whether t falls inside the event span
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

func Christmas(start, end time.Time, durBefore, durAfter time.Duration) []Event {
	return Holiday(us.ChristmasDay, start, end, durBefore, durAfter)
}

func Thanksgiving(start, end time.Time, durBefore, durAfter time.Duration) []Event {
	return Holiday(us.ThanksgivingDay, start, end, durBefore, durAfter)
}

// Holiday returns one event per observed occurrence of the holiday between start and end
// inclusive. Occurrences are whole days in the location of start, padded by durBefore and
// durAfter.
func Holiday(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	loc := start.Location()
	name := HolidayName(hol)

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		observed = time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, loc)

		if !observed.Before(start) && !observed.After(end) {
			events = append(events, Event{
				Name:  name,
				Start: observed.Add(-durBefore),
				End:   observed.Add(24 * time.Hour).Add(durAfter),
			})
		}
	}
	return events
}

// HolidayName is the feature friendly name of a holiday
func HolidayName(hol *cal.Holiday) string {
	return strings.ToLower(strings.ReplaceAll(hol.Name, " ", "_"))
}

// CountryHolidays returns the holiday calendar of a country code. An empty code has no
// holidays.
func CountryHolidays(country string) ([]*cal.Holiday, error) {
	switch strings.ToUpper(country) {
	case "":
		return nil, nil
	case "US":
		return us.Holidays, nil
	}
	return nil, fmt.Errorf("%q, %w", country, ErrUnknownCountry)
}

// Holidays returns every holiday of the country observed between start and end sorted by
// start time
func Holidays(country string, start, end time.Time) ([]Event, error) {
	hols, err := CountryHolidays(country)
	if err != nil {
		return nil, err
	}
	var events []Event
	for _, hol := range hols {
		events = append(events, Holiday(hol, start, end, 0, 0)...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// Masks returns a 0/1 indicator series per event name marking which time points fall
// inside any occurrence of that event
func Masks(events []Event, t []time.Time) map[string][]float64 {
	masks := make(map[string][]float64)
	for _, e := range events {
		mask, exists := masks[e.Name]
		if !exists {
			mask = make([]float64, len(t))
			masks[e.Name] = mask
		}
		for i, tPnt := range t {
			if e.Contains(tPnt) {
				mask[i] = 1.0
			}
		}
	}
	return masks
}
