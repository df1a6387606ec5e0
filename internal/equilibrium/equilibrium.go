// Package equilibrium provides solvers that bring the equilibrium species of a
// chemical state into equilibrium for prescribed element abundances.
//
// A [Solver] is used by the kinetic path as a black box: [Solver.Solve]
// updates the equilibrium species amounts of a state for given equilibrium
// element abundances be, and [Solver.Sensitivity] returns ∂ne/∂be at the
// state of the last solve. Two engines are provided:
//
//   - [Linear]: equilibrium subsets whose formula matrix is square and
//     invertible, where the amounts follow directly from mass balance
//   - [Ideal]: dilute ideal Gibbs energy minimisation by the element
//     potential method
package equilibrium

import (
	"errors"
	"fmt"

	"github.com/san-kum/kinsim/internal/chem"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotConverged indicates the equilibrium calculation failed.
	ErrNotConverged = errors.New("equilibrium: calculation did not converge")

	// ErrNoPartition indicates Solve was called before SetPartition.
	ErrNoPartition = errors.New("equilibrium: partition not set")

	// ErrDimension indicates be does not match the equilibrium elements.
	ErrDimension = errors.New("equilibrium: dimension mismatch")
)

type Solver interface {
	SetPartition(p *chem.Partition) error
	Solve(state *chem.State, be []float64) error
	// Sensitivity returns ∂ne/∂be shaped Ne × Ee, or nil when the
	// equilibrium subset is empty.
	Sensitivity(state *chem.State) (*mat.Dense, error)
}

// ConvergenceError reports a failed equilibrium calculation.
type ConvergenceError struct {
	Iterations int
	Residual   float64
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("equilibrium: %s after %d iterations (residual %.3e)", e.Reason, e.Iterations, e.Residual)
}

func (e *ConvergenceError) Unwrap() error { return ErrNotConverged }
