package kinetics

import (
	"errors"
	"fmt"

	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/equilibrium"
	"github.com/san-kum/kinsim/internal/ode"
)

// Error classes reported by a Path.
var (
	// ErrConfig indicates an invalid partition, option or state.
	ErrConfig = errors.New("kinetics: invalid configuration")

	// ErrNotInitialized indicates stepping before Initialize.
	ErrNotInitialized = errors.New("kinetics: path not initialized")

	// ErrConvergence indicates the equilibrium calculation failed while
	// committing or evaluating a state.
	ErrConvergence = errors.New("kinetics: equilibrium did not converge")

	// ErrIntegration indicates the time integrator gave up.
	ErrIntegration = errors.New("kinetics: integration failed")
)

// PathError reports a failed Path operation. It matches both its class
// (Kind) and the underlying cause with errors.Is and errors.As.
type PathError struct {
	Op   string
	Time float64
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("kinetics: %s at t=%g: %v", e.Op, e.Time, e.Kind)
	}
	return fmt.Sprintf("kinetics: %s at t=%g: %v", e.Op, e.Time, e.Err)
}

func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func pathError(op string, t float64, err error) error {
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Op: op, Time: t, Kind: classify(err), Err: err}
}

func classify(err error) error {
	switch {
	case errors.Is(err, equilibrium.ErrNotConverged):
		return ErrConvergence
	case errors.Is(err, chem.ErrConfig), errors.Is(err, ErrConfig),
		errors.Is(err, equilibrium.ErrDimension), errors.Is(err, ode.ErrDimension):
		return ErrConfig
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ode.ErrNotInitialized):
		return ErrNotInitialized
	default:
		return ErrIntegration
	}
}
