package forecaster

import (
	"fmt"
	"io"

	"github.com/aouyang1/go-forecaster-studio/forecast"
)

// Model is the serializeable form of a fit Forecaster. Residual is nil when the uncertainty band
// is the constant ConstantBand.
type Model struct {
	Options      *Options        `json:"options"`
	Series       forecast.Model  `json:"series_model"`
	Residual     *forecast.Model `json:"residual_model,omitempty"`
	ConstantBand float64         `json:"constant_band,omitempty"`
}

// TablePrint prints the series and uncertainty models in a human readable table
func (m Model) TablePrint(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "Series:"); err != nil {
		return err
	}
	if err := m.Series.TablePrint(w, "  ", "  "); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "\nUncertainty:"); err != nil {
		return err
	}
	if m.Residual == nil {
		_, err := fmt.Fprintf(w, "  Constant Band: %.3f\n", m.ConstantBand)
		return err
	}
	return m.Residual.TablePrint(w, "  ", "  ")
}
