// Package reaction supplies reaction systems: stoichiometry and rate laws.
package reaction

import (
	"errors"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownReaction indicates a reaction name missing from the system.
	ErrUnknownReaction = errors.New("reaction: unknown reaction")

	// ErrInvalid indicates a malformed reaction definition.
	ErrInvalid = errors.New("reaction: invalid reaction")
)

// GasConstant in J/(mol·K).
const GasConstant = 8.314462618

// Rates holds reaction rates (mol/s) and their derivatives with respect to
// the species amounts, shaped reactions × species.
type Rates struct {
	Value []float64
	DDN   *mat.Dense
}

// System is a set of kinetically controlled reactions over a chemical system.
type System interface {
	ChemicalSystem() *chem.System
	NumReactions() int
	// Stoichiometry returns the reactions × species stoichiometric matrix,
	// positive for products. The matrix is shared and read-only.
	Stoichiometry() *mat.Dense
	IndexReaction(name string) (int, error)
	ReactionName(i int) string
	Rates(T, P float64, n []float64, a activity.Result) (Rates, error)
}
