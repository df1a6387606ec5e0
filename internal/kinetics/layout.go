package kinetics

import (
	"fmt"

	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/reaction"
	"gonum.org/v1/gonum/mat"
)

// layout holds the matrices derived from one partition. It is immutable once
// built; a new partition replaces the whole layout.
type layout struct {
	partition *chem.Partition

	ie, ik     []int
	ee, ne, nk int
	nr         int

	we *mat.Dense // Ee × Ne, nil when the equilibrium subset is empty
	se *mat.Dense // nr × Ne
	sk *mat.Dense // nr × Nk
	a  *mat.Dense // (Ee+Nk) × nr
}

func newLayout(reactions reaction.System, p *chem.Partition) (*layout, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil partition", ErrConfig)
	}
	if p.System() != reactions.ChemicalSystem() {
		return nil, fmt.Errorf("%w: partition and reactions belong to different systems", ErrConfig)
	}

	l := &layout{
		partition: p,
		ie:        p.EquilibriumSpecies(),
		ik:        p.KineticSpecies(),
		ee:        p.NumEquilibriumElements(),
		ne:        p.NumEquilibriumSpecies(),
		nk:        p.NumKineticSpecies(),
		nr:        reactions.NumReactions(),
	}
	if l.nr == 0 {
		return nil, fmt.Errorf("%w: no reactions", ErrConfig)
	}
	if l.dim() == 0 {
		return nil, fmt.Errorf("%w: reduced state is empty", ErrConfig)
	}

	stoich := reactions.Stoichiometry()
	l.se = columns(stoich, l.ie)
	l.sk = columns(stoich, l.ik)
	if l.ee > 0 && l.ne > 0 {
		l.we = p.FormulaMatrixEquilibrium()
	}

	l.a = mat.NewDense(l.dim(), l.nr, nil)
	if l.we != nil {
		l.a.Slice(0, l.ee, 0, l.nr).(*mat.Dense).Mul(l.we, l.se.T())
	}
	if l.nk > 0 {
		l.a.Slice(l.ee, l.dim(), 0, l.nr).(*mat.Dense).Copy(l.sk.T())
	}
	return l, nil
}

func (l *layout) dim() int { return l.ee + l.nk }

// toReduced writes [We·ne; nk] of state into u.
func (l *layout) toReduced(state *chem.State, u []float64) {
	n := state.SpeciesAmounts()
	for j := 0; j < l.ee; j++ {
		sum := 0.0
		for k, i := range l.ie {
			sum += l.we.At(j, k) * n[i]
		}
		u[j] = sum
	}
	for k, i := range l.ik {
		u[l.ee+k] = n[i]
	}
}

// columns gathers the columns idx of m, or returns nil when idx is empty.
func columns(m mat.Matrix, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return nil
	}
	r, _ := m.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for k, j := range idx {
		for i := 0; i < r; i++ {
			out.Set(i, k, m.At(i, j))
		}
	}
	return out
}

func cloneDense(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}
