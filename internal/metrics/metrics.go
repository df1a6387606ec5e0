// Package metrics accumulates scalar diagnostics over the committed states of
// a kinetic path.
package metrics

import "github.com/san-kum/kinsim/internal/chem"

type Metric interface {
	Name() string
	Observe(state *chem.State, t float64)
	Value() float64
	Reset()
}

// Set feeds every committed state to its metrics. It satisfies
// kinetics.Observer.
type Set []Metric

// Default returns the diagnostics recorded for every run.
func Default() Set {
	return Set{NewElementDrift(), NewPositivity(0)}
}

func (s Set) OnStep(state *chem.State, t float64) error {
	for _, m := range s {
		m.Observe(state, t)
	}
	return nil
}

func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}
