package activity

import "fmt"

// ReferencePressure is the standard-state pressure in Pa.
const ReferencePressure = 1e5

// IdealGas uses partial pressures relative to the standard state, x_i·P/P°.
type IdealGas struct{}

func (IdealGas) Activities(T, P float64, n []float64) (Result, error) {
	if len(n) == 0 {
		return Result{}, fmt.Errorf("%w: empty composition", ErrModel)
	}
	if P <= 0 {
		return Result{}, fmt.Errorf("%w: non-positive pressure %g", ErrModel, P)
	}
	res := NewResult(len(n))
	moleFractions(n, res.Value, res.DDN)

	scale := P / ReferencePressure
	for i := range res.Value {
		res.Value[i] *= scale
	}
	res.DDN.Scale(scale, res.DDN)
	return res, nil
}
