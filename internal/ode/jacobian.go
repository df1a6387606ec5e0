package ode

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var sqrtEps = math.Sqrt(2.220446049250313e-16)

// finiteDifference approximates ∂f/∂u column by column with forward
// differences, falling back to a backward difference when the forward
// probe leaves the domain of f.
type finiteDifference struct {
	probe []float64
	fp    []float64
}

func newFiniteDifference(n int) *finiteDifference {
	return &finiteDifference{probe: make([]float64, n), fp: make([]float64, n)}
}

func (d *finiteDifference) jacobian(f Function, t float64, u, f0 []float64, jac *mat.Dense) error {
	copy(d.probe, u)
	for j := range u {
		delta := sqrtEps * math.Max(math.Abs(u[j]), 1)
		d.probe[j] = u[j] + delta
		err := f(t, d.probe, d.fp)
		if errors.Is(err, ErrRecoverable) {
			delta = -delta
			d.probe[j] = u[j] + delta
			err = f(t, d.probe, d.fp)
		}
		if err != nil {
			return err
		}
		for i := range u {
			jac.Set(i, j, (d.fp[i]-f0[i])/delta)
		}
		d.probe[j] = u[j]
	}
	return nil
}
