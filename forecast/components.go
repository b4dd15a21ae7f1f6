package forecast

// Components breaks a prediction down into the contribution of each feature family. Trend
// covers the intercept, growth and changepoints.
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
	Event       []float64 `json:"event"`
}
