package activity

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// WaterMolarMass is the molar mass of H2O in kg/mol.
const WaterMolarMass = 0.018015268

// IdealAqueous is the ideal aqueous activity model. Solute activities are
// molalities scaled by the mole fraction of water; the activity of water is
// its mole fraction.
type IdealAqueous struct {
	Water int // index of H2O(l)
}

func (m IdealAqueous) Activities(T, P float64, n []float64) (Result, error) {
	if m.Water < 0 || m.Water >= len(n) {
		return Result{}, fmt.Errorf("%w: water index %d out of range", ErrModel, m.Water)
	}
	nw := n[m.Water]
	if nw <= 0 {
		return Result{}, fmt.Errorf("%w: no solvent water", ErrModel)
	}

	size := len(n)
	x := make([]float64, size)
	dx := mat.NewDense(size, size, nil)
	moleFractions(n, x, dx)

	res := NewResult(size)
	kgw := nw * WaterMolarMass
	xw := x[m.Water]

	for i := 0; i < size; i++ {
		if i == m.Water {
			res.Value[i] = xw
			for j := 0; j < size; j++ {
				res.DDN.Set(i, j, dx.At(m.Water, j))
			}
			continue
		}
		mi := n[i] / kgw
		res.Value[i] = mi * xw
		for j := 0; j < size; j++ {
			dm := 0.0
			if j == i {
				dm = 1 / kgw
			}
			if j == m.Water {
				dm -= n[i] / (nw * kgw)
			}
			res.DDN.Set(i, j, mi*dx.At(m.Water, j)+dm*xw)
		}
	}
	return res, nil
}
