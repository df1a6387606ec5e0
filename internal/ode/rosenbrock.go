package ode

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ros2Gamma makes ROS2 L-stable.
var ros2Gamma = 1 + 1/math.Sqrt2

// Rosenbrock is the two-stage ROS2 method of Verwer et al.:
//
//	(I − γhJ)·k1 = f(u)
//	(I − γhJ)·k2 = f(u + h·k1) − 2·k1
//	u1 = u + 3/2·h·k1 + 1/2·h·k2
//
// embedded with the first order solution u + h·k1.
type Rosenbrock struct {
	jac     *mat.Dense
	w       *mat.Dense
	lu      mat.LU
	k1, k2  *mat.VecDense
	rhs     *mat.VecDense
	scratch []float64
	fd      *finiteDifference
}

func NewRosenbrock() *Rosenbrock {
	return &Rosenbrock{}
}

func (r *Rosenbrock) Name() string    { return "rosenbrock" }
func (r *Rosenbrock) ErrorOrder() int { return 1 }

func (r *Rosenbrock) ensureScratch(n int) {
	if len(r.scratch) != n {
		r.jac = mat.NewDense(n, n, nil)
		r.w = mat.NewDense(n, n, nil)
		r.k1 = mat.NewVecDense(n, nil)
		r.k2 = mat.NewVecDense(n, nil)
		r.rhs = mat.NewVecDense(n, nil)
		r.scratch = make([]float64, n)
		r.fd = nil
	}
}

// Prepare evaluates J at an accepted state. A recoverable failure of the
// analytic Jacobian falls back to finite differences of f.
func (r *Rosenbrock) Prepare(p *Problem, t float64, u, f0 []float64) error {
	r.ensureScratch(len(u))
	if p.Jacobian != nil {
		err := p.Jacobian(t, u, r.jac)
		if !errors.Is(err, ErrRecoverable) {
			return err
		}
	}
	if r.fd == nil {
		r.fd = newFiniteDifference(len(u))
	}
	return r.fd.jacobian(p.Function, t, u, f0, r.jac)
}

func (r *Rosenbrock) Attempt(p *Problem, t, h float64, u, f0, out, errEst []float64) error {
	n := len(u)
	r.ensureScratch(n)

	r.w.Scale(-ros2Gamma*h, r.jac)
	for i := 0; i < n; i++ {
		r.w.Set(i, i, r.w.At(i, i)+1)
	}
	r.lu.Factorize(r.w)
	if cond := r.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) {
		return ErrRecoverable
	}

	copy(r.rhs.RawVector().Data, f0)
	if err := r.lu.SolveVecTo(r.k1, false, r.rhs); err != nil && !finiteCondition(err) {
		return ErrRecoverable
	}
	k1 := r.k1.RawVector().Data

	for i := 0; i < n; i++ {
		r.scratch[i] = u[i] + h*k1[i]
	}
	f1 := r.rhs.RawVector().Data
	if err := p.Function(t+h, r.scratch, f1); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		f1[i] -= 2 * k1[i]
	}
	if err := r.lu.SolveVecTo(r.k2, false, r.rhs); err != nil && !finiteCondition(err) {
		return ErrRecoverable
	}
	k2 := r.k2.RawVector().Data

	for i := 0; i < n; i++ {
		out[i] = u[i] + h*(1.5*k1[i]+0.5*k2[i])
		errEst[i] = 0.5 * h * (k1[i] + k2[i])
	}
	return nil
}

func finiteCondition(err error) bool {
	c, ok := err.(mat.Condition)
	return ok && !math.IsInf(float64(c), 1)
}
