// Package models is a collection of linear regression fitting implementations to be used in the
// forecaster
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a linear regression fit against a design matrix x with m observations by n
// features and a target matrix y of m observations by 1.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}
