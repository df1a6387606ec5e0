package metrics

import (
	"github.com/san-kum/kinsim/internal/chem"
)

// Positivity is the fraction of observed states in which no species amount
// is below -tolerance.
type Positivity struct {
	tolerance  float64
	violations int
	samples    int
	min        float64
}

func NewPositivity(tolerance float64) *Positivity {
	return &Positivity{tolerance: tolerance}
}

func (p *Positivity) Name() string { return "positivity" }

func (p *Positivity) Observe(state *chem.State, t float64) {
	violated := false
	for i, n := range state.SpeciesAmounts() {
		if (p.samples == 0 && i == 0) || n < p.min {
			p.min = n
		}
		if n < -p.tolerance {
			violated = true
		}
	}
	if violated {
		p.violations++
	}
	p.samples++
}

func (p *Positivity) Value() float64 {
	if p.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(p.violations)/float64(p.samples)
}

// Min is the smallest species amount observed.
func (p *Positivity) Min() float64 { return p.min }

func (p *Positivity) Reset() {
	p.violations = 0
	p.samples = 0
	p.min = 0
}
