package ode

import (
	"errors"
	"fmt"
)

var (
	// ErrRecoverable is returned by a right-hand side or Jacobian to ask the
	// solver for a smaller step.
	ErrRecoverable = errors.New("ode: recoverable evaluation failure")

	// ErrStepTooSmall indicates the adaptive step fell below the minimum.
	ErrStepTooSmall = errors.New("ode: adaptive timestep below minimum")

	// ErrMaxSteps indicates Solve exceeded the configured number of steps.
	ErrMaxSteps = errors.New("ode: maximum number of steps exceeded")

	// ErrNotInitialized indicates Integrate or Solve before Initialize.
	ErrNotInitialized = errors.New("ode: solver not initialized")

	// ErrDimension indicates a state vector that does not match the problem.
	ErrDimension = errors.New("ode: dimension mismatch between state and problem")

	// ErrUnknownMethod indicates an unregistered integration method.
	ErrUnknownMethod = errors.New("ode: unknown integration method")
)

// StepError wraps an integration failure with the step context.
type StepError struct {
	Step     int
	Time     float64
	StepSize float64
	Wrapped  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g, h=%.3g): %v", e.Step, e.Time, e.StepSize, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
