// Package activity provides activity models for chemical species.
//
// A [Model] maps temperature, pressure and species amounts to species
// activities together with their partial derivatives with respect to the
// species amounts. The kinetic path treats models as pluggable functions.
package activity

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrModel indicates an activity model could not be evaluated.
var ErrModel = errors.New("activity: model evaluation failed")

// Result holds species activities and ∂a/∂n.
type Result struct {
	Value []float64
	DDN   *mat.Dense
}

// NewResult allocates a result for n species.
func NewResult(n int) Result {
	return Result{Value: make([]float64, n), DDN: mat.NewDense(n, n, nil)}
}

type Model interface {
	Activities(T, P float64, n []float64) (Result, error)
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc func(T, P float64, n []float64) (Result, error)

func (f ModelFunc) Activities(T, P float64, n []float64) (Result, error) { return f(T, P, n) }

// Amounts uses the molar amounts themselves as activities.
type Amounts struct{}

func (Amounts) Activities(T, P float64, n []float64) (Result, error) {
	if len(n) == 0 {
		return Result{}, fmt.Errorf("%w: empty composition", ErrModel)
	}
	res := NewResult(len(n))
	copy(res.Value, n)
	for i := range n {
		res.DDN.Set(i, i, 1)
	}
	return res, nil
}

// IdealSolution uses mole fractions as activities.
type IdealSolution struct{}

func (IdealSolution) Activities(T, P float64, n []float64) (Result, error) {
	if len(n) == 0 {
		return Result{}, fmt.Errorf("%w: empty composition", ErrModel)
	}
	res := NewResult(len(n))
	moleFractions(n, res.Value, res.DDN)
	return res, nil
}

// moleFractions writes x_i = n_i/N and ∂x_i/∂n_j = (δij − x_i)/N.
func moleFractions(n, x []float64, ddn *mat.Dense) {
	total := 0.0
	for _, v := range n {
		total += v
	}
	if total <= 0 {
		return
	}
	for i := range n {
		x[i] = n[i] / total
	}
	for i := range n {
		for j := range n {
			d := -x[i] / total
			if i == j {
				d += 1 / total
			}
			ddn.Set(i, j, d)
		}
	}
}
