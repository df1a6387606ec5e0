package ode

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/kinsim/internal/logging"
	"gonum.org/v1/gonum/mat"
)

const (
	safety         = 0.9
	minScale       = 0.2
	maxScale       = 5.0
	recoverScale   = 0.25
	fallbackStep   = 1e-6
	eps            = 2.220446049250313e-16
	minimumMinStep = 1e-300
)

// Solver advances a Problem with adaptive steps of a Stepper.
type Solver struct {
	opts    Options
	stepper Stepper
	problem Problem
	logger  *slog.Logger

	hasProblem  bool
	initialized bool
	h           float64

	f0, out, errEst []float64
	stats           Statistics
}

func NewSolver(opts Options) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	stepper, err := NewStepper(opts.Method)
	if err != nil {
		return nil, err
	}
	return &Solver{opts: opts, stepper: stepper, logger: logging.NewNop()}, nil
}

func (s *Solver) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Solver) Options() Options { return s.opts }
func (s *Solver) Method() string { return s.stepper.Name() }
func (s *Solver) Stats() Statistics { return s.stats }
func (s *Solver) StepSize() float64 { return s.h }
func (s *Solver) Initialized() bool { return s.initialized }
func (s *Solver) Problem() (Problem, bool) { return s.problem, s.hasProblem }

// SetProblem installs a new problem and discards any integration state.
func (s *Solver) SetProblem(p Problem) error {
	if err := p.validate(); err != nil {
		return err
	}
	f := p.Function
	counted := Problem{Dim: p.Dim}
	counted.Function = func(t float64, u, dudt []float64) error {
		s.stats.Evaluations++
		return f(t, u, dudt)
	}
	if p.Jacobian != nil {
		jac := p.Jacobian
		counted.Jacobian = func(t float64, u []float64, out *mat.Dense) error {
			s.stats.JacobianEvaluations++
			return jac(t, u, out)
		}
	}

	s.problem = counted
	s.hasProblem = true
	s.initialized = false
	s.f0 = make([]float64, p.Dim)
	s.out = make([]float64, p.Dim)
	s.errEst = make([]float64, p.Dim)
	return nil
}

// Initialize resets the statistics and selects the first step size for u0.
func (s *Solver) Initialize(t0 float64, u0 []float64) error {
	if !s.hasProblem {
		return fmt.Errorf("%w: no problem set", ErrNotInitialized)
	}
	if len(u0) != s.problem.Dim {
		return fmt.Errorf("%w: state has %d entries, problem %d", ErrDimension, len(u0), s.problem.Dim)
	}
	s.stats = Statistics{}
	s.h = s.initialStep(t0, u0)
	s.stats.NextStep = s.h
	s.initialized = true
	return nil
}

func (s *Solver) initialStep(t0 float64, u0 []float64) float64 {
	h := s.opts.InitialStep
	if h <= 0 {
		h = fallbackStep
		if err := s.problem.Function(t0, u0, s.f0); err == nil {
			var d0, d1 float64
			for i := range u0 {
				sc := s.opts.AbsTol + s.opts.RelTol*math.Abs(u0[i])
				d0 += (u0[i] / sc) * (u0[i] / sc)
				d1 += (s.f0[i] / sc) * (s.f0[i] / sc)
			}
			d0 = math.Sqrt(d0 / float64(len(u0)))
			d1 = math.Sqrt(d1 / float64(len(u0)))
			if d0 > 1e-5 && d1 > 1e-5 {
				h = 0.01 * d0 / d1
			}
		} else {
			s.logger.Debug("initial derivative unavailable, using fallback step", "error", err)
		}
	}
	if s.opts.MaxStep > 0 {
		h = math.Min(h, s.opts.MaxStep)
	}
	return math.Max(h, s.opts.MinStep)
}

// Integrate performs one accepted adaptive step from *t, never stepping past
// tLimit. Pass math.Inf(1) for an unbounded step. u is updated in place.
func (s *Solver) Integrate(t *float64, u []float64, tLimit float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if len(u) != s.problem.Dim {
		return fmt.Errorf("%w: state has %d entries, problem %d", ErrDimension, len(u), s.problem.Dim)
	}
	if tLimit <= *t {
		return nil
	}

	if err := s.problem.Function(*t, u, s.f0); err != nil {
		return s.fail(*t, s.h, err)
	}
	if err := s.stepper.Prepare(&s.problem, *t, u, s.f0); err != nil {
		return s.fail(*t, s.h, err)
	}

	exponent := -1 / float64(s.stepper.ErrorOrder()+1)
	h := s.h
	for {
		last := false
		if *t+h >= tLimit {
			h = tLimit - *t
			last = true
		}
		if !last && h < s.minStep(*t) {
			return s.fail(*t, h, ErrStepTooSmall)
		}
		if last && h <= 0 {
			*t = tLimit
			return nil
		}

		err := s.stepper.Attempt(&s.problem, *t, h, u, s.f0, s.out, s.errEst)
		if errors.Is(err, ErrRecoverable) {
			s.stats.Rejected++
			s.logger.Debug("step rejected by evaluation", "t", *t, "h", h)
			h *= recoverScale
			if h < s.minStep(*t) {
				return s.fail(*t, h, ErrStepTooSmall)
			}
			continue
		}
		if err != nil {
			return s.fail(*t, h, err)
		}

		e := s.errorNorm(u)
		if e <= 1 {
			if last {
				*t = tLimit
			} else {
				*t += h
			}
			copy(u, s.out)
			s.stats.Steps++
			s.stats.LastStep = h

			factor := maxScale
			if e > 0 {
				factor = math.Min(maxScale, safety*math.Pow(e, exponent))
			}
			next := h * factor
			if last {
				// a step clipped to tLimit says little about the natural step
				next = math.Max(next, s.h)
			}
			if s.opts.MaxStep > 0 {
				next = math.Min(next, s.opts.MaxStep)
			}
			s.h = next
			s.stats.NextStep = next
			return nil
		}

		s.stats.Rejected++
		factor := recoverScale
		if !math.IsNaN(e) && !math.IsInf(e, 0) {
			factor = math.Max(minScale, safety*math.Pow(e, exponent))
		}
		s.logger.Debug("step rejected by error control", "t", *t, "h", h, "err", e)
		h *= factor
		if h < s.minStep(*t) {
			return s.fail(*t, h, ErrStepTooSmall)
		}
	}
}

// Solve integrates u from t to t+dt.
func (s *Solver) Solve(t, dt float64, u []float64) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if dt < 0 {
		return fmt.Errorf("ode: negative time interval %g", dt)
	}
	tEnd := t + dt
	for taken := 0; t < tEnd; taken++ {
		if s.opts.MaxSteps > 0 && taken >= s.opts.MaxSteps {
			return s.fail(t, s.h, ErrMaxSteps)
		}
		if err := s.Integrate(&t, u, tEnd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) minStep(t float64) float64 {
	return math.Max(math.Max(s.opts.MinStep, minimumMinStep), 16*eps*math.Abs(t))
}

// errorNorm is the RMS of the error estimate scaled by the mixed tolerance.
func (s *Solver) errorNorm(u []float64) float64 {
	sum := 0.0
	for i := range u {
		if math.IsNaN(s.out[i]) || math.IsInf(s.out[i], 0) {
			return math.Inf(1)
		}
		sc := s.opts.AbsTol + s.opts.RelTol*math.Max(math.Abs(u[i]), math.Abs(s.out[i]))
		r := s.errEst[i] / sc
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(u)))
}

func (s *Solver) fail(t, h float64, err error) error {
	var se *StepError
	if errors.As(err, &se) {
		return err
	}
	return &StepError{Step: s.stats.Steps, Time: t, StepSize: h, Wrapped: err}
}
