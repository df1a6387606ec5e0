package metrics

import (
	"math"

	"github.com/san-kum/kinsim/internal/chem"
)

// ElementDrift is the largest relative deviation of any element amount from
// its value in the first observed state. Balanced reactions keep it at
// round-off level.
type ElementDrift struct {
	initial  []float64
	maxDrift float64
}

func NewElementDrift() *ElementDrift { return &ElementDrift{} }

func (e *ElementDrift) Name() string { return "element_drift" }

func (e *ElementDrift) Observe(state *chem.State, t float64) {
	b := state.ElementAmounts()
	if e.initial == nil {
		e.initial = append([]float64(nil), b...)
		return
	}
	for i, v := range b {
		ref := math.Abs(e.initial[i])
		if ref == 0 {
			ref = 1
		}
		e.maxDrift = math.Max(e.maxDrift, math.Abs(v-e.initial[i])/ref)
	}
}

func (e *ElementDrift) Value() float64 { return e.maxDrift }

func (e *ElementDrift) Reset() {
	e.initial = nil
	e.maxDrift = 0
}
