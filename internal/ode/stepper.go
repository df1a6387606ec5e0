package ode

import (
	"fmt"
	"sort"
)

// Stepper attempts single steps of an embedded integration pair.
type Stepper interface {
	Name() string
	// ErrorOrder is the order q of the embedded error estimate; the step
	// size controller scales by err^(-1/(q+1)).
	ErrorOrder() int
	// Prepare is called once per accepted state with f0 = f(t, u), before
	// any attempt from that state.
	Prepare(p *Problem, t float64, u, f0 []float64) error
	// Attempt advances u by h into out and writes the local error estimate
	// into errEst. It must not modify u or f0.
	Attempt(p *Problem, t, h float64, u, f0, out, errEst []float64) error
}

var steppers = map[string]func() Stepper{
	"rosenbrock": func() Stepper { return NewRosenbrock() },
	"ros2":       func() Stepper { return NewRosenbrock() },
	"rk45":       func() Stepper { return NewRK45() },
}

// NewStepper returns a fresh stepper for the named method.
func NewStepper(method string) (Stepper, error) {
	f, ok := steppers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownMethod, method, Methods())
	}
	return f(), nil
}

// Methods lists the registered method names.
func Methods() []string {
	names := make([]string, 0, len(steppers))
	for name := range steppers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
