package kinetics_test

import (
	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/equilibrium"
	"github.com/san-kum/kinsim/internal/kinetics"
	"github.com/san-kum/kinsim/internal/reaction"

	. "github.com/onsi/gomega"
)

// isomerSystem has three species built from the single element X.
func isomerSystem() *chem.System {
	sys, err := chem.NewSystem(
		[]chem.Element{{Name: "X"}},
		[]chem.Species{
			{Name: "A", Formula: map[string]float64{"X": 1}},
			{Name: "B", Formula: map[string]float64{"X": 1}},
			{Name: "C", Formula: map[string]float64{"X": 1}, G0: -2000},
		})
	Expect(err).NotTo(HaveOccurred())
	return sys
}

// decaySystem is A -> B with B the only equilibrium species.
func decaySystem() *chem.System {
	sys, err := chem.NewSystem(
		[]chem.Element{{Name: "X"}},
		[]chem.Species{
			{Name: "A", Formula: map[string]float64{"X": 1}},
			{Name: "B", Formula: map[string]float64{"X": 1}},
		})
	Expect(err).NotTo(HaveOccurred())
	return sys
}

type fixture struct {
	system    *chem.System
	reactions *reaction.MassAction
	path      *kinetics.Path
	state     *chem.State
}

func newDecay(opts kinetics.Options) fixture {
	sys := decaySystem()
	rxn, err := reaction.NewMassAction(sys, []reaction.Reaction{{
		Name:      "decay",
		Reactants: map[string]float64{"A": 1},
		Products:  map[string]float64{"B": 1},
		Forward:   0.1,
	}})
	Expect(err).NotTo(HaveOccurred())

	path, err := kinetics.NewPath(rxn, activity.Amounts{}, equilibrium.NewLinear(), opts)
	Expect(err).NotTo(HaveOccurred())
	part, err := chem.NewPartition(sys, []string{"A"})
	Expect(err).NotTo(HaveOccurred())
	Expect(path.SetPartition(part)).To(Succeed())

	state := chem.NewState(sys)
	Expect(state.SetSpeciesAmount("A", 1)).To(Succeed())
	return fixture{system: sys, reactions: rxn, path: path, state: state}
}

func newIsomerization(solver equilibrium.Solver) fixture {
	sys := isomerSystem()
	rxn, err := reaction.NewMassAction(sys, []reaction.Reaction{{
		Name:      "isomerization",
		Reactants: map[string]float64{"A": 1},
		Products:  map[string]float64{"B": 1},
		Forward:   0.3,
		Backward:  0.1,
	}})
	Expect(err).NotTo(HaveOccurred())

	path, err := kinetics.NewPath(rxn, activity.IdealSolution{}, solver, kinetics.DefaultOptions())
	Expect(err).NotTo(HaveOccurred())
	part, err := chem.NewPartition(sys, []string{"A"})
	Expect(err).NotTo(HaveOccurred())
	Expect(path.SetPartition(part)).To(Succeed())

	state := chem.NewState(sys)
	Expect(state.SetSpeciesAmount("A", 1)).To(Succeed())
	Expect(state.SetSpeciesAmount("B", 0.2)).To(Succeed())
	Expect(state.SetSpeciesAmount("C", 0.3)).To(Succeed())
	return fixture{system: sys, reactions: rxn, path: path, state: state}
}

// failingSolver delegates to Solver until its budget of solves runs out.
type failingSolver struct {
	equilibrium.Solver
	budget int
}

func (s *failingSolver) Solve(state *chem.State, be []float64) error {
	if s.budget <= 0 {
		return &equilibrium.ConvergenceError{Reason: "forced failure"}
	}
	s.budget--
	return s.Solver.Solve(state, be)
}
