package equilibrium

import (
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/chem"
	"gonum.org/v1/gonum/mat"
)

// GasConstant in J/(mol·K).
const GasConstant = 8.314462618

const (
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 200

	// largest change of an element potential in a single Newton step
	maxPotentialStep = 10.0
	// element abundances at or below this are treated as absent
	absentThreshold = 1e-300
)

// Ideal minimises the Gibbs energy of an ideal dilute mixture of the
// equilibrium species subject to We·ne = be. At the minimum
//
//	ne_i = exp(Σ_j We_ji·λ_j − G0_i/RT)
//
// where λ are the element potentials, found by damped Newton iteration on
// the mass balance residual. λ is warm-started from the previous solve.
type Ideal struct {
	Tolerance     float64
	MaxIterations int

	ie     []int
	we     *mat.Dense
	g0     []float64
	lambda []float64
	active []bool
	ne     []float64
}

func NewIdeal() *Ideal {
	return &Ideal{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations}
}

func (s *Ideal) SetPartition(p *chem.Partition) error {
	sys := p.System()
	s.ie = p.EquilibriumSpecies()
	s.we = p.FormulaMatrixEquilibrium()
	s.g0 = make([]float64, len(s.ie))
	for k, i := range s.ie {
		s.g0[k] = sys.Species(i).G0
	}
	ee := p.NumEquilibriumElements()
	s.lambda = make([]float64, ee)
	s.active = make([]bool, ee)
	s.ne = make([]float64, len(s.ie))
	return nil
}

func (s *Ideal) Solve(state *chem.State, be []float64) error {
	if s.lambda == nil {
		return ErrNoPartition
	}
	ee := len(s.lambda)
	if len(be) != ee {
		return fmt.Errorf("%w: be has %d entries, want %d", ErrDimension, len(be), ee)
	}
	if len(s.ie) == 0 {
		return nil
	}

	T := state.Temperature()
	if T <= 0 {
		return &ConvergenceError{Reason: fmt.Sprintf("non-positive temperature %g", T)}
	}

	for j, b := range be {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return &ConvergenceError{Reason: "non-finite element abundance", Residual: math.NaN()}
		}
		s.active[j] = b > absentThreshold
	}

	// species made of absent elements vanish
	ns := len(s.ie)
	g := make([]float64, ns)
	present := make([]bool, ns)
	for k := 0; k < ns; k++ {
		g[k] = s.g0[k] / (GasConstant * T)
		present[k] = true
		for j := 0; j < ee; j++ {
			if s.we.At(j, k) != 0 && !s.active[j] {
				present[k] = false
				break
			}
		}
	}

	var rows []int
	for j := 0; j < ee; j++ {
		if s.active[j] {
			rows = append(rows, j)
		}
	}

	if len(rows) > 0 {
		if err := s.newton(be, g, present, rows); err != nil {
			return err
		}
	}

	for k := 0; k < ns; k++ {
		if !present[k] || len(rows) == 0 {
			s.ne[k] = 0
			continue
		}
		s.ne[k] = s.amount(k, g)
	}
	state.SetSpeciesAmounts(s.ne, s.ie)
	return nil
}

func (s *Ideal) amount(k int, g []float64) float64 {
	mu := -g[k]
	for j, l := range s.lambda {
		if s.active[j] {
			mu += s.we.At(j, k) * l
		}
	}
	return math.Exp(mu)
}

func (s *Ideal) newton(be, g []float64, present []bool, rows []int) error {
	ns := len(s.ie)
	m := len(rows)
	n := make([]float64, ns)
	F := mat.NewVecDense(m, nil)
	J := mat.NewDense(m, m, nil)
	dl := mat.NewVecDense(m, nil)

	residual := func() float64 {
		for k := 0; k < ns; k++ {
			n[k] = 0
			if present[k] {
				n[k] = s.amount(k, g)
			}
		}
		worst := 0.0
		for r, j := range rows {
			sum := 0.0
			for k := 0; k < ns; k++ {
				sum += s.we.At(j, k) * n[k]
			}
			F.SetVec(r, sum-be[j])
			worst = math.Max(worst, math.Abs(sum-be[j])/be[j])
		}
		return worst
	}

	res := residual()
	for iter := 0; iter < s.MaxIterations; iter++ {
		if res <= s.Tolerance {
			return nil
		}
		if math.IsNaN(res) || math.IsInf(res, 0) {
			return &ConvergenceError{Iterations: iter, Residual: res, Reason: "residual diverged"}
		}

		for a, ja := range rows {
			for b, jb := range rows {
				sum := 0.0
				for k := 0; k < ns; k++ {
					sum += s.we.At(ja, k) * n[k] * s.we.At(jb, k)
				}
				J.Set(a, b, sum)
			}
		}
		if err := dl.SolveVec(J, F); err != nil && !usable(err) {
			return &ConvergenceError{Iterations: iter, Residual: res, Reason: "singular mass balance Jacobian"}
		}

		// cap the step, then backtrack until the residual decreases
		scale := 1.0
		for r := 0; r < m; r++ {
			if step := math.Abs(dl.AtVec(r)); step*scale > maxPotentialStep {
				scale = maxPotentialStep / step
			}
		}
		old := make([]float64, len(s.lambda))
		copy(old, s.lambda)

		accepted := false
		for try := 0; try < 30; try++ {
			for r, j := range rows {
				s.lambda[j] = old[j] - scale*dl.AtVec(r)
			}
			if next := residual(); next < res || next <= s.Tolerance {
				res = next
				accepted = true
				break
			}
			scale *= 0.5
		}
		if !accepted {
			copy(s.lambda, old)
			return &ConvergenceError{Iterations: iter + 1, Residual: res, Reason: "line search failed"}
		}
	}

	if res <= s.Tolerance {
		return nil
	}
	return &ConvergenceError{Iterations: s.MaxIterations, Residual: res, Reason: "iteration limit reached"}
}

// Sensitivity returns ∂ne/∂be = diag(ne)·Weᵀ·(We·diag(ne)·Weᵀ)⁻¹ at the
// composition of the last solve. Columns of absent elements are zero.
func (s *Ideal) Sensitivity(state *chem.State) (*mat.Dense, error) {
	if s.lambda == nil {
		return nil, ErrNoPartition
	}
	ns, ee := len(s.ie), len(s.lambda)
	if ns == 0 || ee == 0 {
		return nil, nil
	}

	var rows []int
	for j := 0; j < ee; j++ {
		if s.active[j] {
			rows = append(rows, j)
		}
	}
	out := mat.NewDense(ns, ee, nil)
	if len(rows) == 0 {
		return out, nil
	}

	m := len(rows)
	H := mat.NewDense(m, m, nil)
	for a, ja := range rows {
		for b, jb := range rows {
			sum := 0.0
			for k := 0; k < ns; k++ {
				sum += s.we.At(ja, k) * s.ne[k] * s.we.At(jb, k)
			}
			H.Set(a, b, sum)
		}
	}
	var Hinv mat.Dense
	if err := Hinv.Inverse(H); err != nil && !usable(err) {
		return nil, fmt.Errorf("%w: sensitivity: %w", ErrNotConverged, err)
	}

	for k := 0; k < ns; k++ {
		for b, jb := range rows {
			sum := 0.0
			for a, ja := range rows {
				sum += s.we.At(ja, k) * Hinv.At(a, b)
			}
			out.Set(k, jb, s.ne[k]*sum)
		}
	}
	return out, nil
}

// usable reports whether a gonum solve error still produced a finite result.
func usable(err error) bool {
	c, ok := err.(mat.Condition)
	return ok && !math.IsInf(float64(c), 1)
}
