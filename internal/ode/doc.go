// Package ode integrates systems of ordinary differential equations with
// adaptive step size control.
//
// The package defines the primitives used by the kinetic path:
//
//   - [Problem]: right-hand side function and optional Jacobian
//   - [Stepper]: a single adaptive step attempt with an error estimate
//   - [Solver]: step size control, rejection and retry, run to completion
//
// Two steppers are registered: "rosenbrock", a linearly implicit L-stable
// second order method for stiff problems, and "rk45", the explicit
// Dormand-Prince pair.
//
// # Example
//
//	s, _ := ode.NewSolver(ode.DefaultOptions())
//	_ = s.SetProblem(ode.Problem{Dim: 1, Function: f, Jacobian: jac})
//	_ = s.Initialize(0, u)
//	err := s.Solve(0, 10, u)
//
// # Recoverable failures
//
// A [Function] or [Jacobian] may return [ErrRecoverable] when asked to
// evaluate an out-of-domain trial state. The solver then shrinks the step
// and retries instead of failing.
//
// # Thread Safety
//
// Solver instances are NOT thread-safe. Use one Solver per goroutine.
package ode
