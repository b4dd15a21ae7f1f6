package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-forecaster-studio/feature"
	"github.com/aouyang1/go-forecaster-studio/forecast/options"
	mat_ "github.com/aouyang1/go-forecaster-studio/mat"
	"github.com/aouyang1/go-forecaster-studio/stats"
	"github.com/aouyang1/go-forecaster-studio/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing Nans")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
)

// Forecast represents a single forecast model of a time series. This is a linear model
// decomposing the series into growth, trend changes at changepoints, seasonal components
// and events.
type Forecast struct {
	opt    *options.Options
	scores *Scores // score calculations after training

	// model coefficients
	fLabels *feature.Labels

	trainStartTime  time.Time
	trainEndTime    time.Time
	residual        []float64
	trainComponents Components

	coef    []float64
	trained bool
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used
func New(opt *options.Options) (*Forecast, error) {
	if opt == nil {
		opt = options.NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecast options, %w", err)
	}

	return &Forecast{opt: opt}, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inferrence immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	if model.Options == nil {
		return nil, ErrUninitializedForecast
	}
	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, ErrNoModelCoefficients
	}

	f := &Forecast{
		opt:            model.Options,
		fLabels:        feature.NewLabels(labels),
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		coef:           model.Weights.Coefficients(),
		scores:         model.Scores,
		trained:        true,
	}
	return f, nil
}

// Fit takes the input training data and fits a forecast model for possible changepoints,
// seasonal components, events and growth. Times must be strictly increasing.
func (f *Forecast) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUninitializedForecast
	}

	trainingData, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}

	// remove any NaNs from training set
	fitData := trainingData.DropNaN()
	if len(fitData.T) <= 1 {
		return ErrInsufficientTrainingData
	}

	f.opt = f.opt.Resolve(fitData.T)
	f.trainStartTime = fitData.T[0]
	f.trainEndTime = fitData.T[len(fitData.T)-1]

	x, err := f.opt.GenerateFeatures(fitData.T, f.trainStartTime, f.trainEndTime)
	if err != nil {
		return fmt.Errorf("unable to generate features, %w", err)
	}
	dropEmptyEvents(x)
	f.fLabels = x.Labels()

	var unpenalized []int
	if idx, exists := f.fLabels.Index(feature.Intercept()); exists {
		unpenalized = append(unpenalized, idx)
	}
	model, err := f.opt.NewModel(unpenalized...)
	if err != nil {
		return err
	}
	target, err := mat_.NewColVector(fitData.Y)
	if err != nil {
		return err
	}
	if err := model.Fit(x.Matrix(false), target); err != nil {
		return fmt.Errorf("unable to fit model, %w", err)
	}
	f.coef = model.Coef()
	f.trained = true

	// use input training to include NaNs
	predicted, comp, err := f.Predict(trainingData.T)
	if err != nil {
		return err
	}
	f.trainComponents = comp

	scores, err := NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, len(trainingData.T))
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual

	return nil
}

// dropEmptyEvents removes event features that never occur in the training window since
// they carry no information to fit
func dropEmptyEvents(x *feature.Set) {
	for _, label := range x.FilterByType(feature.FeatureTypeEvent).Labels().Labels() {
		data, _ := x.Get(label)
		if floats.Max(data) == 0 && floats.Min(data) == 0 {
			x.Del(label)
		}
	}
}

// Predict takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model.
func (f *Forecast) Predict(t []time.Time) ([]float64, Components, error) {
	if f == nil {
		return nil, Components{}, ErrUninitializedForecast
	}

	if !f.trained {
		return nil, Components{}, ErrUntrainedForecast
	}
	if len(t) == 0 {
		return nil, Components{}, nil
	}

	x, err := f.opt.GenerateFeatures(t, f.trainStartTime, f.trainEndTime)
	if err != nil {
		return nil, Components{}, fmt.Errorf("unable to generate features, %w", err)
	}

	comp := Components{
		Trend:       f.runInference(x, feature.FeatureTypeGrowth, feature.FeatureTypeChangepoint),
		Seasonality: f.runInference(x, feature.FeatureTypeSeasonality),
		Event:       f.runInference(x, feature.FeatureTypeEvent),
	}

	res := make([]float64, len(t))
	floats.Add(res, comp.Trend)
	floats.Add(res, comp.Seasonality)
	floats.Add(res, comp.Event)
	return res, comp, nil
}

// runInference computes the weighted sum of the trained features of the given types. Trained
// features missing from x, such as an event outside the prediction window, contribute 0.
func (f *Forecast) runInference(x *feature.Set, types ...feature.FeatureType) []float64 {
	m := x.NumObs()
	labels := make([]feature.Feature, 0, f.fLabels.Len())
	weights := make([]float64, 0, f.fLabels.Len())
	for i, label := range f.fLabels.Labels() {
		for _, ft := range types {
			if label.Type() == ft {
				labels = append(labels, label)
				weights = append(weights, f.coef[i])
				break
			}
		}
	}

	res := make([]float64, m)
	if len(labels) == 0 {
		return res
	}

	featMx := mat.NewDense(m, len(labels), nil)
	for j, label := range labels {
		if data, exists := x.Get(label); exists {
			featMx.SetCol(j, data)
		}
	}

	var resVec mat.VecDense
	resVec.MulVec(featMx, mat.NewVecDense(len(weights), weights))
	for i := 0; i < m; i++ {
		res[i] = resVec.AtVec(i)
	}
	return res
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}

	return f.fLabels.Labels()
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[labels[i].String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the weight of the intercept growth feature
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	if idx, exists := f.fLabels.Index(feature.Intercept()); exists {
		return f.coef[idx]
	}
	return 0
}

// Options returns the resolved options after fitting or the input options before
func (f *Forecast) Options() *options.Options {
	if f == nil {
		return nil
	}
	return f.opt
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, coefficients with their feature labels, and the model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	fws := make([]FeatureWeight, 0, len(f.coef))
	labels := f.fLabels.Labels()
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	m := Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		Options:        f.opt,
		Weights:        Weights{Coef: fws},
		Scores:         f.scores,
	}
	return m, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}

	eq := "y ~ "

	coef, err := f.Coefficients()
	if err != nil {
		return "", err
	}

	eq += fmt.Sprintf("%.2f", f.Intercept())
	labels := f.fLabels.Labels()
	for i := 0; i < len(f.coef); i++ {
		if labels[i].String() == feature.Intercept().String() {
			continue
		}
		w := coef[labels[i].String()]
		if w == 0 {
			continue
		}
		eq += fmt.Sprintf("+%.2f*%s", w, labels[i])
	}
	return eq, nil
}

// FeatureVIF reports the variance inflation factor of every non intercept feature over the
// given times. Large values point at features the regression cannot tell apart.
func (f *Forecast) FeatureVIF(t []time.Time) (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	x, err := f.opt.GenerateFeatures(t, f.trainStartTime, f.trainEndTime)
	if err != nil {
		return nil, err
	}
	x.Del(feature.Intercept())

	features := make(map[string][]float64, x.Len())
	for _, label := range x.Labels().Labels() {
		if _, exists := f.fLabels.Index(label); !exists {
			continue
		}
		data, _ := x.Get(label)
		features[label.String()] = data
	}
	return stats.VarianceInflationFactor(features)
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil {
		return Scores{}
	}
	if f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// TrendComponent represents the overall trend component of the model which is determined
// by the growth and changepoints.
func (f *Forecast) TrendComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Trend))
	copy(res, f.trainComponents.Trend)
	return res
}

// SeasonalityComponent represents the overall seasonal component of the model
func (f *Forecast) SeasonalityComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Seasonality))
	copy(res, f.trainComponents.Seasonality)
	return res
}

// EventComponent represents the overall event component of the model
func (f *Forecast) EventComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Event))
	copy(res, f.trainComponents.Event)
	return res
}
