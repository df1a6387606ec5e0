package kinetics

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/ode"
	"github.com/san-kum/kinsim/internal/reaction"
	"gonum.org/v1/gonum/mat"
)

// rateCache remembers the rates of the last successful evaluation and the
// reduced state they belong to.
type rateCache struct {
	u     []float64
	rates reaction.Rates
	valid bool
}

func (c *rateCache) matches(u []float64) bool {
	return c.valid && slices.Equal(c.u, u)
}

func (c *rateCache) store(u []float64, r reaction.Rates) {
	c.u = append(c.u[:0], u...)
	c.rates = r
	c.valid = true
}

func (c *rateCache) reset() { c.valid = false }

// Function evaluates du/dt = A·r at the reduced state u, using work as the
// scratch chemical state. A non-finite u or derivative yields
// ode.ErrRecoverable so the integrator retries with a smaller step.
func (p *Path) Function(work *chem.State, t float64, u, dudt []float64) error {
	l := p.layout
	if l == nil {
		return fmt.Errorf("%w: no partition", ErrConfig)
	}
	if len(u) != l.dim() || len(dudt) != l.dim() {
		return fmt.Errorf("%w: reduced state has %d entries, want %d", ode.ErrDimension, len(u), l.dim())
	}
	if !finite(u) {
		return ode.ErrRecoverable
	}

	rates, err := p.evaluate(l, work, u)
	if err != nil {
		return err
	}

	out := mat.NewVecDense(len(dudt), dudt)
	out.MulVec(l.a, mat.NewVecDense(l.nr, rates.Value))
	if !finite(dudt) {
		return ode.ErrRecoverable
	}

	if floor := p.opts.DepletionFloor; floor > 0 {
		for i, v := range u {
			if math.Abs(v) <= floor && dudt[i] < 0 {
				dudt[i] = 0
			}
		}
	}
	return nil
}

// Jacobian evaluates ∂(du/dt)/∂u = A·[Re·Be | Rk] at u into jac. The rate
// sensitivities are reused from the last Function call when it was made at
// the same u.
func (p *Path) Jacobian(work *chem.State, t float64, u []float64, jac *mat.Dense) error {
	l := p.layout
	if l == nil {
		return fmt.Errorf("%w: no partition", ErrConfig)
	}
	dim := l.dim()
	if r, c := jac.Dims(); len(u) != dim || r != dim || c != dim {
		return fmt.Errorf("%w: jacobian for %d entries, want %d", ode.ErrDimension, len(u), dim)
	}
	if !finite(u) {
		return ode.ErrRecoverable
	}

	if err := p.apply(l, work, u); err != nil {
		return err
	}
	var rates reaction.Rates
	if p.cache.matches(u) {
		rates = p.cache.rates
	} else {
		var err error
		if rates, err = p.rates(work); err != nil {
			return err
		}
		p.cache.store(u, rates)
	}

	R := mat.NewDense(l.nr, dim, nil)
	if l.ee > 0 {
		be, err := p.equilibrium.Sensitivity(work)
		if err != nil {
			return err
		}
		if be != nil {
			R.Slice(0, l.nr, 0, l.ee).(*mat.Dense).Mul(columns(rates.DDN, l.ie), be)
		}
	}
	if l.nk > 0 {
		R.Slice(0, l.nr, l.ee, dim).(*mat.Dense).Copy(columns(rates.DDN, l.ik))
	}

	jac.Mul(l.a, R)
	for _, v := range jac.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ode.ErrRecoverable
		}
	}
	return nil
}

// apply writes nk into work and solves for the equilibrium species at be.
func (p *Path) apply(l *layout, work *chem.State, u []float64) error {
	work.SetSpeciesAmounts(u[l.ee:], l.ik)
	return p.equilibrium.Solve(work, u[:l.ee])
}

func (p *Path) rates(work *chem.State) (reaction.Rates, error) {
	T, P, n := work.Temperature(), work.Pressure(), work.SpeciesAmounts()
	a, err := p.activity.Activities(T, P, n)
	if err != nil {
		return reaction.Rates{}, err
	}
	return p.reactions.Rates(T, P, n, a)
}

func (p *Path) evaluate(l *layout, work *chem.State, u []float64) (reaction.Rates, error) {
	if err := p.apply(l, work, u); err != nil {
		p.cache.reset()
		return reaction.Rates{}, err
	}
	rates, err := p.rates(work)
	if err != nil {
		p.cache.reset()
		return reaction.Rates{}, err
	}
	p.cache.store(u, rates)
	return rates, nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
