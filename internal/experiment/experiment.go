// Package experiment turns a configuration into a chemical system and a
// kinetic path, runs it, and collects the recorded output.
package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/equilibrium"
	"github.com/san-kum/kinsim/internal/kinetics"
	"github.com/san-kum/kinsim/internal/logging"
	"github.com/san-kum/kinsim/internal/metrics"
	"github.com/san-kum/kinsim/internal/ode"
	"github.com/san-kum/kinsim/internal/output"
	"github.com/san-kum/kinsim/internal/reaction"
	"github.com/san-kum/kinsim/internal/storage"
)

type Result struct {
	Name        string
	Temperature float64
	Times       []float64
	Columns     []string
	Rows        [][]float64
	Final       map[string]float64
	Stats       ode.Statistics
	Metrics     map[string]float64
	Elapsed     time.Duration
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *slog.Logger
	terminal io.Writer

	system    *chem.System
	state     *chem.State
	reactions *reaction.MassAction
	activity  activity.Model
	solver    equilibrium.Solver
	path      *kinetics.Path
	output    *output.Output
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg, registry: NewRegistry(), logger: logging.NewNop()}
}

func (e *Experiment) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

func (e *Experiment) SetRegistry(r *Registry) { e.registry = r }

// SetTerminal sets where terminal output goes when the configuration asks
// for it.
func (e *Experiment) SetTerminal(w io.Writer) { e.terminal = w }

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) System() *chem.System { return e.system }
func (e *Experiment) State() *chem.State { return e.state }
func (e *Experiment) Path() *kinetics.Path { return e.path }
func (e *Experiment) Reactions() reaction.System { return e.reactions }
func (e *Experiment) Activity() activity.Model { return e.activity }

// Setup builds the chemical system, initial state, reactions, activity model,
// equilibrium solver, partition and kinetic path.
func (e *Experiment) Setup() error {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	sys, err := buildSystem(cfg)
	if err != nil {
		return err
	}
	rxn, err := buildReactions(sys, cfg.Reactions)
	if err != nil {
		return err
	}
	act, err := e.registry.GetActivity(cfg.Activity, sys)
	if err != nil {
		return err
	}
	solver, err := e.registry.GetSolver(cfg.Equilibrium)
	if err != nil {
		return err
	}

	opts := cfg.KineticOptions()
	opts.Logger = e.logger.With("run", cfg.Name)
	path, err := kinetics.NewPath(rxn, act, solver, opts)
	if err != nil {
		return err
	}

	var part *chem.Partition
	if cfg.Partition != "" {
		part, err = chem.ParsePartition(sys, cfg.Partition)
	} else {
		part, err = chem.NewPartition(sys, cfg.Kinetic)
	}
	if err != nil {
		return err
	}
	if err := path.SetPartition(part); err != nil {
		return err
	}

	state := chem.NewState(sys)
	state.SetTemperature(cfg.Initial.Temperature)
	state.SetPressure(cfg.Initial.Pressure)
	for name, n := range cfg.Initial.Amounts {
		if err := state.SetSpeciesAmount(name, n); err != nil {
			return fmt.Errorf("initial amounts: %w", err)
		}
	}

	out := output.New(sys, rxn, act)
	if err := out.Data(cfg.Quantities()...); err != nil {
		return err
	}
	out.Header(cfg.Output.Header...)
	if cfg.Output.Terminal && e.terminal != nil {
		out.Terminal(e.terminal)
	}
	if cfg.Output.File != "" {
		out.File(cfg.Output.File)
	}

	e.system, e.state, e.reactions = sys, state, rxn
	e.activity, e.solver, e.path, e.output = act, solver, path, out
	return nil
}

// Run integrates the configured time span. The context is checked after
// every committed step.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.path == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	if err := e.output.Open(); err != nil {
		return nil, err
	}
	defer e.output.Close()

	var times []float64
	e.path.ClearObservers()
	e.path.Observe(kinetics.ObserverFunc(func(state *chem.State, t float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		times = append(times, t)
		return e.output.OnStep(state, t)
	}))
	diagnostics := metrics.Default()
	e.path.Observe(diagnostics)

	start := time.Now()
	e.logger.Info("run started",
		"run", e.cfg.Name,
		"method", e.cfg.Integrator.Method,
		"temperature", e.state.Temperature(),
		"duration", e.cfg.Duration)
	if err := e.path.Solve(e.state, e.cfg.Start, e.cfg.Duration); err != nil {
		return nil, err
	}
	if err := e.output.Close(); err != nil {
		return nil, err
	}

	res := &Result{
		Name:        e.cfg.Name,
		Temperature: e.state.Temperature(),
		Times:       times,
		Columns:     e.output.Columns(),
		Rows:        e.output.Rows(),
		Final:       make(map[string]float64, e.system.NumSpecies()),
		Stats:       e.path.Stats(),
		Metrics:     diagnostics.Values(),
		Elapsed:     time.Since(start),
	}
	for i, name := range e.system.SpeciesNames() {
		res.Final[name] = e.state.SpeciesAmounts()[i]
	}
	return res, nil
}

// Metadata describes a finished run for the run store.
func (e *Experiment) Metadata(res *Result) storage.RunMetadata {
	var kinetic []string
	if p := e.path.Partition(); p != nil {
		kinetic = p.KineticSpeciesNames()
	}
	return storage.RunMetadata{
		Name:        e.cfg.Name,
		Method:      e.cfg.Integrator.Method,
		Start:       e.cfg.Start,
		Duration:    e.cfg.Duration,
		Temperature: res.Temperature,
		Pressure:    e.state.Pressure(),
		Kinetic:     kinetic,
		Columns:     res.Columns,
		Stats:       res.Stats,
		Final:       res.Final,
		Metrics:     res.Metrics,
	}
}

func buildSystem(cfg *config.Config) (*chem.System, error) {
	elements := make([]chem.Element, len(cfg.Elements))
	for i, e := range cfg.Elements {
		elements[i] = chem.Element{Name: e.Name, MolarMass: e.MolarMass}
	}
	species := make([]chem.Species, len(cfg.Species))
	for i, s := range cfg.Species {
		species[i] = chem.Species{Name: s.Name, Formula: s.Formula, G0: s.G0, Charge: s.Charge, Phase: s.Phase}
	}
	return chem.NewSystem(elements, species)
}

func buildReactions(sys *chem.System, cfgs []config.ReactionConfig) (*reaction.MassAction, error) {
	reactions := make([]reaction.Reaction, len(cfgs))
	for i, rc := range cfgs {
		reactants, products, err := reaction.ParseEquation(rc.Equation)
		if err != nil {
			return nil, err
		}
		reactions[i] = reaction.Reaction{
			Name:             rc.Name,
			Reactants:        reactants,
			Products:         products,
			Forward:          rc.Forward,
			Backward:         rc.Backward,
			ActivationEnergy: rc.ActivationEnergy,
		}
	}
	return reaction.NewMassAction(sys, reactions)
}
