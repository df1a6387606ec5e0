package kinetics

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/equilibrium"
	"github.com/san-kum/kinsim/internal/logging"
	"github.com/san-kum/kinsim/internal/ode"
	"github.com/san-kum/kinsim/internal/reaction"
	"gonum.org/v1/gonum/mat"
)

// Phase is the lifecycle stage of a Path.
type Phase int

const (
	// Unconfigured: no integration is primed, either because no partition
	// was set or because the partition changed since the last Initialize.
	Unconfigured Phase = iota
	// Initialized: the integrator is primed at t0 and no step was taken.
	Initialized
	// Stepping: at least one step was committed.
	Stepping
	// Completed: a Solve reached the end of its interval.
	Completed
)

func (p Phase) String() string {
	switch p {
	case Unconfigured:
		return "unconfigured"
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Path integrates the kinetic species of a chemical state while keeping the
// equilibrium species at equilibrium.
type Path struct {
	reactions   reaction.System
	activity    activity.Model
	equilibrium equilibrium.Solver
	opts        Options
	logger      *slog.Logger

	layout    *layout
	phase     Phase
	solver    *ode.Solver
	u, uPrev  []float64
	work      *chem.State
	commit    *chem.State
	cache     rateCache
	observers []Observer
	solving   bool
}

func NewPath(reactions reaction.System, activities activity.Model, solver equilibrium.Solver, opts Options) (*Path, error) {
	if reactions == nil || activities == nil || solver == nil {
		return nil, fmt.Errorf("%w: reactions, activity model and equilibrium solver are required", ErrConfig)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Path{
		reactions:   reactions,
		activity:    activities,
		equilibrium: solver,
		opts:        opts,
		logger:      logger,
	}, nil
}

func (p *Path) Phase() Phase { return p.phase }

// Options returns the options the path was built with.
func (p *Path) Options() Options                { return p.opts }
func (p *Path) Reactions() reaction.System      { return p.reactions }
func (p *Path) Activity() activity.Model        { return p.activity }
func (p *Path) Equilibrium() equilibrium.Solver { return p.equilibrium }

// Partition returns the active partition, or nil before one is set.
func (p *Path) Partition() *chem.Partition {
	if p.layout == nil {
		return nil
	}
	return p.layout.partition
}

// SetPartition rebuilds every partition-dependent matrix and resets the path
// to Unconfigured. On error the previous partition stays in effect. It is
// rejected while Solve is running, e.g. from an observer.
func (p *Path) SetPartition(partition *chem.Partition) error {
	if p.solving {
		return pathError("set partition", 0, fmt.Errorf("%w: partition change during solve", ErrConfig))
	}
	l, err := newLayout(p.reactions, partition)
	if err != nil {
		return pathError("set partition", 0, err)
	}
	if err := p.equilibrium.SetPartition(partition); err != nil {
		return pathError("set partition", 0, err)
	}

	p.layout = l
	p.phase = Unconfigured
	p.u, p.uPrev = nil, nil
	p.solver = nil
	p.cache.reset()
	p.logger.Debug("partition set",
		"kinetic", partition.KineticSpeciesNames(),
		"equilibrium_elements", l.ee,
		"reduced_dim", l.dim())
	return nil
}

func (p *Path) defaultPartition() error {
	all, err := chem.NewPartition(p.reactions.ChemicalSystem(), nil)
	if err != nil {
		return pathError("set partition", 0, err)
	}
	return p.SetPartition(all)
}

// Observe attaches an observer that Solve notifies after every step.
func (p *Path) Observe(o Observer) {
	if o != nil {
		p.observers = append(p.observers, o)
	}
}

// ClearObservers detaches every observer.
func (p *Path) ClearObservers() { p.observers = nil }

// Stats reports integrator statistics since the last Initialize.
func (p *Path) Stats() ode.Statistics {
	if p.solver == nil {
		return ode.Statistics{}
	}
	return p.solver.Stats()
}

// ToReduced returns u = [be; nk] for state under the active partition.
func (p *Path) ToReduced(state *chem.State) ([]float64, error) {
	if p.layout == nil {
		return nil, pathError("to reduced", 0, fmt.Errorf("%w: no partition", ErrConfig))
	}
	if err := p.checkState(state); err != nil {
		return nil, pathError("to reduced", 0, err)
	}
	u := make([]float64, p.layout.dim())
	p.layout.toReduced(state, u)
	return u, nil
}

// FromReduced writes the kinetic amounts of u into state and equilibrates the
// equilibrium species for the element abundances of u. The state is only
// modified when the equilibrium calculation succeeds.
func (p *Path) FromReduced(u []float64, state *chem.State) error {
	if p.layout == nil {
		return pathError("from reduced", 0, fmt.Errorf("%w: no partition", ErrConfig))
	}
	if err := p.checkState(state); err != nil {
		return pathError("from reduced", 0, err)
	}
	if len(u) != p.layout.dim() {
		return pathError("from reduced", 0,
			fmt.Errorf("%w: reduced state has %d entries, want %d", ErrConfig, len(u), p.layout.dim()))
	}
	return p.commitTo(u, state)
}

func (p *Path) commitTo(u []float64, state *chem.State) error {
	if p.commit == nil || p.commit.System() != state.System() {
		p.commit = state.Clone()
	} else {
		p.commit.CopyFrom(state)
	}
	if err := p.apply(p.layout, p.commit, u); err != nil {
		return err
	}
	state.CopyFrom(p.commit)
	return nil
}

func (p *Path) checkState(state *chem.State) error {
	if state == nil {
		return fmt.Errorf("%w: nil state", ErrConfig)
	}
	if state.System() != p.reactions.ChemicalSystem() {
		return fmt.Errorf("%w: state belongs to a different chemical system", ErrConfig)
	}
	return nil
}

// Initialize computes the reduced state of state and primes the integrator
// at t0, discarding any previous integration. Without a partition every
// species is treated as an equilibrium species.
func (p *Path) Initialize(state *chem.State, t0 float64) error {
	if p.layout == nil {
		if err := p.defaultPartition(); err != nil {
			return err
		}
	}
	if err := p.checkState(state); err != nil {
		return pathError("initialize", t0, err)
	}

	solver, err := ode.NewSolver(p.opts.ODE)
	if err != nil {
		return pathError("initialize", t0, fmt.Errorf("%w: %w", ErrConfig, err))
	}
	solver.SetLogger(p.logger)

	l := p.layout
	p.work = state.Clone()
	p.u = make([]float64, l.dim())
	p.uPrev = make([]float64, l.dim())
	l.toReduced(state, p.u)
	p.cache.reset()

	work := p.work
	problem := ode.Problem{
		Dim: l.dim(),
		Function: func(t float64, u, dudt []float64) error {
			return p.Function(work, t, u, dudt)
		},
		Jacobian: func(t float64, u []float64, jac *mat.Dense) error {
			return p.Jacobian(work, t, u, jac)
		},
	}
	if err := solver.SetProblem(problem); err != nil {
		return pathError("initialize", t0, err)
	}
	if err := solver.Initialize(t0, p.u); err != nil {
		return pathError("initialize", t0, err)
	}

	p.solver = solver
	p.phase = Initialized
	p.logger.Debug("path initialized", "t0", t0, "reduced_state", p.u, "method", solver.Method())
	return nil
}

// Step advances state by one internal integrator step of unbounded size.
func (p *Path) Step(state *chem.State, t *float64) error {
	return p.StepUntil(state, t, math.Inf(1))
}

// StepUntil advances state by one internal integrator step that does not
// pass tfinal, and updates *t to the new time.
func (p *Path) StepUntil(state *chem.State, t *float64, tfinal float64) error {
	if p.phase == Unconfigured || p.solver == nil {
		return pathError("step", *t, ErrNotInitialized)
	}
	if err := p.checkState(state); err != nil {
		return pathError("step", *t, err)
	}
	if err := p.advance(state, t, tfinal); err != nil {
		return err
	}
	p.phase = Stepping
	return nil
}

// advance takes one step from the current amounts of state and commits it;
// on failure u and *t are restored. The integrator keeps its step size.
func (p *Path) advance(state *chem.State, t *float64, tfinal float64) error {
	p.work.SetTemperature(state.Temperature())
	p.work.SetPressure(state.Pressure())

	t0 := *t
	p.layout.toReduced(state, p.u)
	copy(p.uPrev, p.u)
	if err := p.solver.Integrate(t, p.u, tfinal); err != nil {
		*t = t0
		copy(p.u, p.uPrev)
		p.logger.Warn("integration step failed", "t", t0, "error", err)
		return pathError("step", t0, err)
	}
	if err := p.commitTo(p.u, state); err != nil {
		failed := *t
		*t = t0
		copy(p.u, p.uPrev)
		p.logger.Warn("commit failed", "t", failed, "error", err)
		return pathError("commit", failed, err)
	}
	return nil
}

// Solve integrates state from t to t+dt. The path is always initialized at
// t first. With observers attached every internal step is committed and
// reported; otherwise only the final state is committed.
func (p *Path) Solve(state *chem.State, t, dt float64) error {
	if dt < 0 || math.IsNaN(dt) {
		return pathError("solve", t, fmt.Errorf("%w: negative time interval %g", ErrConfig, dt))
	}
	if err := p.Initialize(state, t); err != nil {
		return err
	}
	p.solving = true
	defer func() { p.solving = false }()
	t0, tEnd := t, t+dt

	if len(p.observers) == 0 {
		copy(p.uPrev, p.u)
		p.work.SetTemperature(state.Temperature())
		p.work.SetPressure(state.Pressure())
		if err := p.solver.Solve(t, dt, p.u); err != nil {
			copy(p.u, p.uPrev)
			p.logger.Warn("solve failed", "t", t, "dt", dt, "error", err)
			return pathError("solve", stepTime(err, t), err)
		}
		if err := p.commitTo(p.u, state); err != nil {
			copy(p.u, p.uPrev)
			p.logger.Warn("commit failed", "t", tEnd, "error", err)
			return pathError("commit", tEnd, err)
		}
		p.complete(t0, tEnd)
		return nil
	}

	if err := p.notify(state, t); err != nil {
		return err
	}
	maxSteps := p.opts.ODE.MaxSteps
	for steps := 0; t < tEnd; steps++ {
		if maxSteps > 0 && steps >= maxSteps {
			return pathError("solve", t, &ode.StepError{Step: steps, Time: t, StepSize: p.solver.StepSize(), Wrapped: ode.ErrMaxSteps})
		}
		if err := p.advance(state, &t, tEnd); err != nil {
			return err
		}
		p.phase = Stepping
		if err := p.notify(state, t); err != nil {
			return err
		}
	}
	p.complete(t0, tEnd)
	return nil
}

func (p *Path) complete(t0, t1 float64) {
	p.phase = Completed
	stats := p.solver.Stats()
	p.logger.Info("path completed",
		"t0", t0,
		"t1", t1,
		"steps", stats.Steps,
		"rejected", stats.Rejected,
		"evaluations", stats.Evaluations)
}

func (p *Path) notify(state *chem.State, t float64) error {
	for _, o := range p.observers {
		if err := o.OnStep(state, t); err != nil {
			return fmt.Errorf("kinetics: observer at t=%g: %w", t, err)
		}
	}
	return nil
}

func stepTime(err error, fallback float64) float64 {
	var se *ode.StepError
	if errors.As(err, &se) {
		return se.Time
	}
	return fallback
}

// FormulaMatrix returns a copy of We, or nil when no species is at
// equilibrium.
func (p *Path) FormulaMatrix() *mat.Dense {
	if p.layout == nil {
		return nil
	}
	return cloneDense(p.layout.we)
}

// StoichiometryEquilibrium returns a copy of Se.
func (p *Path) StoichiometryEquilibrium() *mat.Dense {
	if p.layout == nil {
		return nil
	}
	return cloneDense(p.layout.se)
}

// StoichiometryKinetic returns a copy of Sk.
func (p *Path) StoichiometryKinetic() *mat.Dense {
	if p.layout == nil {
		return nil
	}
	return cloneDense(p.layout.sk)
}

// CoefficientMatrix returns a copy of A = [We·Seᵀ; Skᵀ].
func (p *Path) CoefficientMatrix() *mat.Dense {
	if p.layout == nil {
		return nil
	}
	return cloneDense(p.layout.a)
}
