package feature

import "fmt"

type ChangepointComp string

const (
	ChangepointCompBias  ChangepointComp = "bias"
	ChangepointCompSlope ChangepointComp = "slope"
)

// Changepoint is a point in time after which the series may jump (bias) or bend (slope)
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{name, comp}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s_%s", c.Name, c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	return getLabel(c, label)
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	return map[string]string{
		LabelName:            c.Name,
		LabelChangepointComp: string(c.ChangepointComp),
	}
}

func (c *Changepoint) UnmarshalJSON(data []byte) error {
	labels, err := decodeLabels(data)
	if err != nil {
		return err
	}
	c.Name = labels[LabelName]
	c.ChangepointComp = ChangepointComp(labels[LabelChangepointComp])
	return nil
}
