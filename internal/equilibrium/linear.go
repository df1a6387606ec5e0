package equilibrium

import (
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/chem"
	"gonum.org/v1/gonum/mat"
)

// Linear solves We·ne = be directly. It requires as many equilibrium species
// as equilibrium elements and an invertible We, which holds for example when
// every equilibrium species carries a distinct element.
type Linear struct {
	ie  []int
	ee  int
	inv *mat.Dense
}

func NewLinear() *Linear { return &Linear{} }

func (l *Linear) SetPartition(p *chem.Partition) error {
	ne, ee := p.NumEquilibriumSpecies(), p.NumEquilibriumElements()
	if ne != ee {
		return fmt.Errorf("%w: linear solver needs a square formula matrix, have %d elements and %d species",
			chem.ErrConfig, ee, ne)
	}
	if ne == 0 {
		*l = Linear{}
		return nil
	}

	var inv mat.Dense
	if err := inv.Inverse(p.FormulaMatrixEquilibrium()); err != nil {
		return fmt.Errorf("%w: equilibrium formula matrix is singular: %w", chem.ErrConfig, err)
	}
	*l = Linear{ie: p.EquilibriumSpecies(), ee: ee, inv: &inv}
	return nil
}

func (l *Linear) Solve(state *chem.State, be []float64) error {
	if len(be) != l.ee {
		return fmt.Errorf("%w: be has %d entries, want %d", ErrDimension, len(be), l.ee)
	}
	if l.ee == 0 {
		return nil
	}
	for _, v := range be {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConvergenceError{Reason: "non-finite element abundance", Residual: math.NaN()}
		}
	}

	ne := mat.NewVecDense(len(l.ie), nil)
	ne.MulVec(l.inv, mat.NewVecDense(l.ee, append([]float64(nil), be...)))
	state.SetSpeciesAmounts(ne.RawVector().Data, l.ie)
	return nil
}

func (l *Linear) Sensitivity(state *chem.State) (*mat.Dense, error) {
	if l.ee == 0 {
		return nil, nil
	}
	return mat.DenseCopyOf(l.inv), nil
}
