package ode

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Function evaluates du/dt at (t, u) into dudt.
type Function func(t float64, u, dudt []float64) error

// Jacobian evaluates ∂f/∂u at (t, u) into jac, sized Dim × Dim.
type Jacobian func(t float64, u []float64, jac *mat.Dense) error

type Problem struct {
	Dim      int
	Function Function
	// Jacobian is optional; steppers that need one fall back to finite
	// differences of Function.
	Jacobian Jacobian
}

func (p Problem) validate() error {
	if p.Dim <= 0 {
		return fmt.Errorf("%w: problem dimension %d", ErrDimension, p.Dim)
	}
	if p.Function == nil {
		return fmt.Errorf("ode: problem has no right-hand side function")
	}
	return nil
}

type Options struct {
	Method      string  `yaml:"method"`
	AbsTol      float64 `yaml:"abs_tol"`
	RelTol      float64 `yaml:"rel_tol"`
	InitialStep float64 `yaml:"initial_step"`
	MinStep     float64 `yaml:"min_step"`
	MaxStep     float64 `yaml:"max_step"`
	MaxSteps    int     `yaml:"max_steps"`
}

func DefaultOptions() Options {
	return Options{
		Method:   "rosenbrock",
		AbsTol:   1e-10,
		RelTol:   1e-6,
		MinStep:  1e-14,
		MaxSteps: 100000,
	}
}

func (o Options) Validate() error {
	if o.AbsTol <= 0 {
		return fmt.Errorf("ode: abs_tol must be positive, got %g", o.AbsTol)
	}
	if o.RelTol < 0 {
		return fmt.Errorf("ode: rel_tol must be non-negative, got %g", o.RelTol)
	}
	if o.InitialStep < 0 || o.MinStep < 0 || o.MaxStep < 0 {
		return fmt.Errorf("ode: step sizes must be non-negative")
	}
	if o.MaxStep > 0 && o.MinStep > o.MaxStep {
		return fmt.Errorf("ode: min_step %g exceeds max_step %g", o.MinStep, o.MaxStep)
	}
	if o.MaxSteps < 0 {
		return fmt.Errorf("ode: max_steps must be non-negative, got %d", o.MaxSteps)
	}
	return nil
}

// Statistics counts the work done by a Solver since Initialize.
type Statistics struct {
	Steps               int     `json:"steps"`
	Rejected            int     `json:"rejected"`
	Evaluations         int     `json:"evaluations"`
	JacobianEvaluations int     `json:"jacobian_evaluations"`
	LastStep            float64 `json:"last_step"`
	NextStep            float64 `json:"next_step"`
}
