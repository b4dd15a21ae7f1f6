package feature

import "fmt"

// Event is the indicator of a named window of time, such as a holiday, modelled apart from the
// trend and seasonality
type Event struct {
	Name string `json:"name"`
}

func NewEvent(name string) *Event {
	return &Event{name}
}

func (e Event) String() string {
	return fmt.Sprintf("event_%s", e.Name)
}

func (e Event) Get(label string) (string, bool) {
	return getLabel(e, label)
}

func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

func (e Event) Decode() map[string]string {
	return map[string]string{LabelName: e.Name}
}

func (e *Event) UnmarshalJSON(data []byte) error {
	labels, err := decodeLabels(data)
	if err != nil {
		return err
	}
	e.Name = labels[LabelName]
	return nil
}
