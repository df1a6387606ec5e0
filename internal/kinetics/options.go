package kinetics

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/kinsim/internal/ode"
)

// DefaultDepletionFloor is the magnitude below which a reduced state entry
// counts as exhausted.
const DefaultDepletionFloor = 1e-50

type Options struct {
	ODE ode.Options `yaml:"ode"`
	// DepletionFloor clamps negative derivatives of reduced entries whose
	// magnitude is below it. Zero disables the clamp.
	DepletionFloor float64 `yaml:"depletion_floor"`

	Logger *slog.Logger `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		ODE:            ode.DefaultOptions(),
		DepletionFloor: DefaultDepletionFloor,
	}
}

func (o Options) Validate() error {
	if o.DepletionFloor < 0 || math.IsNaN(o.DepletionFloor) || math.IsInf(o.DepletionFloor, 0) {
		return fmt.Errorf("%w: depletion floor %g", ErrConfig, o.DepletionFloor)
	}
	if err := o.ODE.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
