package options

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecaster-studio/event"
	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/forecast/util"
)

// EventOptions lists the events to model as their own features. Country adds the holiday
// calendar of that country, e.g. "US".
type EventOptions struct {
	Country string        `json:"country"`
	Events  []event.Event `json:"events"`
}

func (e EventOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(e.Events) > 0 {
		noCfg = ""
		fmt.Fprintf(tbl, "%s%sName\tStart\tEnd\t\n", prefix, util.IndentExpand(indent, indentGrowth+1))
	}
	fmt.Fprintf(w, "%s%sEvents:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg)
	if e.Country != "" {
		fmt.Fprintf(w, "%s%sHolidays: %s\n", prefix, util.IndentExpand(indent, indentGrowth+1), e.Country)
	}
	for _, ev := range e.Events {
		fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			ev.Name, ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339))
	}
	return tbl.Flush()
}

// Validate checks every custom event and the holiday country
func (e EventOptions) Validate() error {
	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			return fmt.Errorf("invalid event %q, %w", ev.Name, err)
		}
	}
	if _, err := event.CountryHolidays(e.Country); err != nil {
		return err
	}
	return nil
}

// GenerateFeatures returns one indicator feature per event name marking the time points
// inside the event
func (e EventOptions) GenerateFeatures(t []time.Time) (*feature.Set, error) {
	feat := feature.NewSet()
	if len(t) == 0 {
		return feat, nil
	}

	events := make([]event.Event, 0, len(e.Events))
	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			slog.Warn("skipping invalid event", "name", ev.Name, "error", err.Error())
			continue
		}
		events = append(events, ev)
	}

	if e.Country != "" {
		start, end := t[0], t[0]
		for _, tPnt := range t {
			if tPnt.Before(start) {
				start = tPnt
			}
			if tPnt.After(end) {
				end = tPnt
			}
		}
		// a holiday starting the day before the first point still covers it
		hols, err := event.Holidays(e.Country, start.Add(-Day), end)
		if err != nil {
			return nil, err
		}
		events = append(events, hols...)
	}

	masks := event.Masks(events, t)
	names := make([]string, 0, len(masks))
	for name := range masks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := feat.Set(feature.NewEvent(name), masks[name]); err != nil {
			return nil, err
		}
	}
	return feat, nil
}
