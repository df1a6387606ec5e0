package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/equilibrium"
	"github.com/san-kum/kinsim/internal/ode"
	"github.com/san-kum/kinsim/internal/output"
)

// ErrUnknown indicates a name missing from the registry.
var ErrUnknown = errors.New("experiment: unknown component")

type Registry struct {
	activities map[string]func(*chem.System) (activity.Model, error)
	solvers    map[string]func(config.EquilibriumConfig) equilibrium.Solver
}

func NewRegistry() *Registry {
	r := &Registry{
		activities: make(map[string]func(*chem.System) (activity.Model, error)),
		solvers:    make(map[string]func(config.EquilibriumConfig) equilibrium.Solver),
	}

	r.activities["amounts"] = func(*chem.System) (activity.Model, error) { return activity.Amounts{}, nil }
	r.activities["ideal"] = func(*chem.System) (activity.Model, error) { return activity.IdealSolution{}, nil }
	r.activities["gas"] = func(*chem.System) (activity.Model, error) { return activity.IdealGas{}, nil }
	r.activities["aqueous"] = func(sys *chem.System) (activity.Model, error) {
		w, err := sys.IndexSpecies(output.Water)
		if err != nil {
			return nil, fmt.Errorf("aqueous activity needs %s: %w", output.Water, err)
		}
		return activity.IdealAqueous{Water: w}, nil
	}

	r.solvers["linear"] = func(config.EquilibriumConfig) equilibrium.Solver { return equilibrium.NewLinear() }
	r.solvers["ideal"] = func(cfg config.EquilibriumConfig) equilibrium.Solver {
		s := equilibrium.NewIdeal()
		if cfg.Tolerance > 0 {
			s.Tolerance = cfg.Tolerance
		}
		if cfg.MaxIterations > 0 {
			s.MaxIterations = cfg.MaxIterations
		}
		return s
	}

	return r
}

// RegisterActivity adds or replaces an activity model constructor.
func (r *Registry) RegisterActivity(name string, fn func(*chem.System) (activity.Model, error)) {
	r.activities[name] = fn
}

// RegisterSolver adds or replaces an equilibrium solver constructor.
func (r *Registry) RegisterSolver(name string, fn func(config.EquilibriumConfig) equilibrium.Solver) {
	r.solvers[name] = fn
}

func (r *Registry) GetActivity(name string, sys *chem.System) (activity.Model, error) {
	fn, ok := r.activities[name]
	if !ok {
		return nil, fmt.Errorf("%w: activity model %q (available: %v)", ErrUnknown, name, r.ListActivities())
	}
	return fn(sys)
}

func (r *Registry) GetSolver(cfg config.EquilibriumConfig) (equilibrium.Solver, error) {
	fn, ok := r.solvers[cfg.Solver]
	if !ok {
		return nil, fmt.Errorf("%w: equilibrium solver %q (available: %v)", ErrUnknown, cfg.Solver, r.ListSolvers())
	}
	return fn(cfg), nil
}

func (r *Registry) ListActivities() []string { return sortedKeys(r.activities) }
func (r *Registry) ListSolvers() []string { return sortedKeys(r.solvers) }
func (r *Registry) ListMethods() []string { return ode.Methods() }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
