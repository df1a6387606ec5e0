package kinetics

import "github.com/san-kum/kinsim/internal/chem"

// Observer receives the committed state after every internal step of
// Path.Solve, and once at the start time. Returning an error stops the
// integration; the state keeps its last commit.
type Observer interface {
	OnStep(state *chem.State, t float64) error
}

type ObserverFunc func(state *chem.State, t float64) error

func (f ObserverFunc) OnStep(state *chem.State, t float64) error { return f(state, t) }
