package ode

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func decayProblem(k float64) Problem {
	return Problem{
		Dim: 1,
		Function: func(t float64, u, dudt []float64) error {
			dudt[0] = -k * u[0]
			return nil
		},
		Jacobian: func(t float64, u []float64, jac *mat.Dense) error {
			jac.Set(0, 0, -k)
			return nil
		},
	}
}

func newSolver(t *testing.T, method string, p Problem) *Solver {
	t.Helper()
	opts := DefaultOptions()
	opts.Method = method
	s, err := NewSolver(opts)
	if err != nil {
		t.Fatalf("NewSolver(%q): %v", method, err)
	}
	if err := s.SetProblem(p); err != nil {
		t.Fatalf("SetProblem: %v", err)
	}
	return s
}

func TestSolverDecay(t *testing.T) {
	tests := []struct {
		method string
		tol    float64
	}{
		{"rosenbrock", 1e-4},
		{"ros2", 1e-4},
		{"rk45", 1e-5},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			s := newSolver(t, tt.method, decayProblem(0.5))
			u := []float64{1}
			if err := s.Initialize(0, u); err != nil {
				t.Fatal(err)
			}
			if err := s.Solve(0, 4, u); err != nil {
				t.Fatal(err)
			}
			want := math.Exp(-2)
			if math.Abs(u[0]-want) > tt.tol {
				t.Errorf("u(4) = %v, want %v", u[0], want)
			}
			if s.Stats().Steps == 0 {
				t.Error("expected accepted steps")
			}
		})
	}
}

func TestSolverFiniteDifferenceJacobian(t *testing.T) {
	p := decayProblem(1)
	p.Jacobian = nil
	s := newSolver(t, "rosenbrock", p)

	u := []float64{2}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(0, 1, u); err != nil {
		t.Fatal(err)
	}
	if want := 2 * math.Exp(-1); math.Abs(u[0]-want) > 1e-4 {
		t.Errorf("u(1) = %v, want %v", u[0], want)
	}
	if s.Stats().JacobianEvaluations != 0 {
		t.Errorf("analytic jacobian counted %d times without one", s.Stats().JacobianEvaluations)
	}
}

func TestSolverStiff(t *testing.T) {
	// fast relaxation of u0 onto u1, slow decay of u1
	p := Problem{
		Dim: 2,
		Function: func(t float64, u, dudt []float64) error {
			dudt[0] = -1e4 * (u[0] - u[1])
			dudt[1] = -u[1]
			return nil
		},
		Jacobian: func(t float64, u []float64, jac *mat.Dense) error {
			jac.Set(0, 0, -1e4)
			jac.Set(0, 1, 1e4)
			jac.Set(1, 0, 0)
			jac.Set(1, 1, -1)
			return nil
		},
	}
	s := newSolver(t, "rosenbrock", p)
	u := []float64{0, 1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(0, 1, u); err != nil {
		t.Fatal(err)
	}

	want := math.Exp(-1)
	for i, v := range u {
		if math.Abs(v-want) > 1e-3 {
			t.Errorf("u[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestSolverRecoverable(t *testing.T) {
	failures := 0
	p := decayProblem(1)
	f := p.Function
	p.Function = func(t float64, u, dudt []float64) error {
		if t > 0 && failures == 0 {
			failures++
			return ErrRecoverable
		}
		return f(t, u, dudt)
	}

	s := newSolver(t, "rk45", p)
	u := []float64{1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(0, 1, u); err != nil {
		t.Fatalf("recoverable failure should be retried: %v", err)
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if s.Stats().Rejected == 0 {
		t.Error("expected a rejected step")
	}
	if want := math.Exp(-1); math.Abs(u[0]-want) > 1e-5 {
		t.Errorf("u(1) = %v, want %v", u[0], want)
	}
}

func TestSolverFatalEvaluation(t *testing.T) {
	boom := errors.New("boom")
	p := decayProblem(1)
	p.Function = func(t float64, u, dudt []float64) error {
		if t > 0 {
			return boom
		}
		dudt[0] = -u[0]
		return nil
	}

	s := newSolver(t, "rk45", p)
	u := []float64{1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	err := s.Solve(0, 1, u)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if u[0] != 1 {
		t.Errorf("state changed on failure: %v", u[0])
	}
}

func TestSolverAlwaysRecoverable(t *testing.T) {
	p := decayProblem(1)
	p.Function = func(t float64, u, dudt []float64) error {
		if t > 0 {
			return ErrRecoverable
		}
		dudt[0] = -u[0]
		return nil
	}

	s := newSolver(t, "rk45", p)
	u := []float64{1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(0, 1, u); !errors.Is(err, ErrStepTooSmall) {
		t.Fatalf("expected ErrStepTooSmall, got %v", err)
	}
}

func TestSolverJacobianFallback(t *testing.T) {
	calls := 0
	p := decayProblem(1)
	p.Jacobian = func(t float64, u []float64, jac *mat.Dense) error {
		calls++
		jac.Set(0, 0, math.NaN())
		return ErrRecoverable
	}

	s := newSolver(t, "rosenbrock", p)
	u := []float64{1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(0, 1, u); err != nil {
		t.Fatalf("unusable analytic Jacobian should fall back to differences: %v", err)
	}
	if calls == 0 {
		t.Error("analytic Jacobian never tried")
	}
	if want := math.Exp(-1); math.Abs(u[0]-want) > 1e-4 {
		t.Errorf("u(1) = %v, want %v", u[0], want)
	}
}

func TestSolverIntegrateLimit(t *testing.T) {
	s := newSolver(t, "rosenbrock", decayProblem(1))
	u := []float64{1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}

	tm := 0.0
	if err := s.Integrate(&tm, u, 1e-3); err != nil {
		t.Fatal(err)
	}
	if tm > 1e-3 {
		t.Errorf("t = %v overshot limit", tm)
	}

	before := tm
	if err := s.Integrate(&tm, u, before); err != nil {
		t.Fatal(err)
	}
	if tm != before {
		t.Errorf("Integrate with limit <= t moved time to %v", tm)
	}
}

func TestSolverMaxSteps(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSteps = 3
	opts.MaxStep = 1e-3
	s, err := NewSolver(opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetProblem(decayProblem(1)); err != nil {
		t.Fatal(err)
	}
	u := []float64{1}
	if err := s.Initialize(0, u); err != nil {
		t.Fatal(err)
	}
	if err := s.Solve(0, 1, u); !errors.Is(err, ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}
}

func TestSolverErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.Method = "euler"
	if _, err := NewSolver(opts); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}

	opts = DefaultOptions()
	opts.AbsTol = 0
	if _, err := NewSolver(opts); err == nil {
		t.Error("expected error for zero abs_tol")
	}

	s, err := NewSolver(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	u := []float64{1}
	if err := s.Solve(0, 1, u); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Solve before Initialize: %v", err)
	}
	if err := s.Initialize(0, u); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Initialize without problem: %v", err)
	}
	if err := s.SetProblem(Problem{Dim: 0}); !errors.Is(err, ErrDimension) {
		t.Errorf("zero-dimension problem: %v", err)
	}
	if err := s.SetProblem(decayProblem(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(0, []float64{1, 2}); !errors.Is(err, ErrDimension) {
		t.Errorf("mismatched state: %v", err)
	}
}

func TestMethods(t *testing.T) {
	got := Methods()
	want := []string{"rk45", "ros2", "rosenbrock"}
	if len(got) != len(want) {
		t.Fatalf("Methods() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Methods()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
