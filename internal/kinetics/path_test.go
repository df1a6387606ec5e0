package kinetics_test

import (
	"errors"
	"math"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/equilibrium"
	"github.com/san-kum/kinsim/internal/kinetics"
	"github.com/san-kum/kinsim/internal/ode"
	"gonum.org/v1/gonum/mat"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Path", func() {
	Describe("reduced state", func() {
		It("round trips through the equilibrium solver", func() {
			f := newDecay(kinetics.DefaultOptions())
			Expect(f.state.SetSpeciesAmount("A", 0.7)).To(Succeed())
			Expect(f.state.SetSpeciesAmount("B", 0.3)).To(Succeed())

			u, err := f.path.ToReduced(f.state)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal([]float64{0.3, 0.7}))

			target := chem.NewState(f.system)
			Expect(f.path.FromReduced(u, target)).To(Succeed())
			Expect(target.SpeciesAmounts()).To(Equal(f.state.SpeciesAmounts()))
		})

		It("round trips with a nonlinear equilibrium solver", func() {
			solver := equilibrium.NewIdeal()
			solver.Tolerance = 1e-12
			f := newIsomerization(solver)

			target := f.state.Clone()
			u, err := f.path.ToReduced(f.state)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(HaveLen(2))
			Expect(f.path.FromReduced(u, target)).To(Succeed())

			// B and C are redistributed to equilibrium but keep their total
			b, _ := target.SpeciesAmount("B")
			c, _ := target.SpeciesAmount("C")
			Expect(b + c).To(BeNumerically("~", 0.5, 1e-10))
			Expect(c / b).To(BeNumerically("~", math.Exp(2000/(equilibrium.GasConstant*chem.DefaultTemperature)), 1e-6))

			again, err := f.path.ToReduced(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(again[0]).To(BeNumerically("~", u[0], 1e-10))
			Expect(again[1]).To(Equal(u[1]))
		})

		It("leaves the state untouched when the commit fails", func() {
			f := newDecay(kinetics.DefaultOptions())
			path, err := kinetics.NewPath(f.reactions, activity.Amounts{},
				&failingSolver{Solver: equilibrium.NewLinear()}, kinetics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			part, err := chem.NewPartition(f.system, []string{"A"})
			Expect(err).NotTo(HaveOccurred())
			Expect(path.SetPartition(part)).To(Succeed())

			before := append([]float64(nil), f.state.SpeciesAmounts()...)
			err = path.FromReduced([]float64{0.5, 0.5}, f.state)
			Expect(errors.Is(err, kinetics.ErrConvergence)).To(BeTrue())
			Expect(errors.Is(err, equilibrium.ErrNotConverged)).To(BeTrue())
			Expect(f.state.SpeciesAmounts()).To(Equal(before))
		})
	})

	Describe("right-hand side", func() {
		It("is A·r", func() {
			f := newDecay(kinetics.DefaultOptions())
			dudt := make([]float64, 2)
			Expect(f.path.Function(f.state.Clone(), 0, []float64{0.25, 0.5}, dudt)).To(Succeed())
			Expect(dudt[0]).To(BeNumerically("~", 0.05, 1e-15))
			Expect(dudt[1]).To(BeNumerically("~", -0.05, 1e-15))
		})

		It("clamps further depletion of exhausted entries", func() {
			f := newDecay(kinetics.DefaultOptions())
			dudt := make([]float64, 2)
			Expect(f.path.Function(f.state.Clone(), 0, []float64{1, 1e-60}, dudt)).To(Succeed())
			Expect(dudt[1]).To(Equal(0.0))
			Expect(dudt[0]).To(BeNumerically(">", 0))
		})

		It("honours a disabled depletion floor", func() {
			opts := kinetics.DefaultOptions()
			opts.DepletionFloor = 0
			f := newDecay(opts)
			dudt := make([]float64, 2)
			Expect(f.path.Function(f.state.Clone(), 0, []float64{1, 1e-60}, dudt)).To(Succeed())
			Expect(dudt[1]).To(BeNumerically("<", 0))
		})

		It("signals non-finite trial states as recoverable", func() {
			f := newDecay(kinetics.DefaultOptions())
			work := f.state.Clone()
			dudt := make([]float64, 2)
			for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				err := f.path.Function(work, 0, []float64{bad, 1}, dudt)
				Expect(errors.Is(err, ode.ErrRecoverable)).To(BeTrue())

				err = f.path.Jacobian(work, 0, []float64{1, bad}, mat.NewDense(2, 2, nil))
				Expect(errors.Is(err, ode.ErrRecoverable)).To(BeTrue())
			}
		})

		It("does not touch the caller's state", func() {
			f := newDecay(kinetics.DefaultOptions())
			before := append([]float64(nil), f.state.SpeciesAmounts()...)
			work := f.state.Clone()
			Expect(f.path.Function(work, 0, []float64{0.4, 0.6}, make([]float64, 2))).To(Succeed())
			Expect(f.state.SpeciesAmounts()).To(Equal(before))
		})
	})

	Describe("Jacobian", func() {
		It("matches central differences of the right-hand side", func() {
			solver := equilibrium.NewIdeal()
			solver.Tolerance = 1e-14
			f := newIsomerization(solver)
			work := f.state.Clone()

			u := []float64{0.8, 0.5}
			jac := mat.NewDense(2, 2, nil)
			Expect(f.path.Jacobian(work, 0, u, jac)).To(Succeed())

			plus, minus := make([]float64, 2), make([]float64, 2)
			for j := range u {
				h := 1e-6 * math.Max(math.Abs(u[j]), 1)
				up := append([]float64(nil), u...)
				um := append([]float64(nil), u...)
				up[j] += h
				um[j] -= h
				Expect(f.path.Function(work, 0, up, plus)).To(Succeed())
				Expect(f.path.Function(work, 0, um, minus)).To(Succeed())
				for i := range u {
					fd := (plus[i] - minus[i]) / (2 * h)
					Expect(jac.At(i, j)).To(BeNumerically("~", fd, 1e-6+1e-5*math.Abs(fd)),
						"J[%d][%d]", i, j)
				}
			}
		})

		It("gives the rate constant for linear decay", func() {
			f := newDecay(kinetics.DefaultOptions())
			work := f.state.Clone()
			u := []float64{0.1, 0.9}
			dudt := make([]float64, 2)
			Expect(f.path.Function(work, 0, u, dudt)).To(Succeed())

			jac := mat.NewDense(2, 2, nil)
			Expect(f.path.Jacobian(work, 0, u, jac)).To(Succeed())
			Expect(mat.EqualApprox(jac, mat.NewDense(2, 2, []float64{0, 0.1, 0, -0.1}), 1e-15)).To(BeTrue())
		})
	})

	Describe("partition", func() {
		It("builds identical matrices when repeated", func() {
			f := newDecay(kinetics.DefaultOptions())
			a1, we1 := f.path.CoefficientMatrix(), f.path.FormulaMatrix()
			se1, sk1 := f.path.StoichiometryEquilibrium(), f.path.StoichiometryKinetic()

			part, err := chem.NewPartition(f.system, []string{"A"})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.path.SetPartition(part)).To(Succeed())

			Expect(mat.Equal(a1, f.path.CoefficientMatrix())).To(BeTrue())
			Expect(mat.Equal(we1, f.path.FormulaMatrix())).To(BeTrue())
			Expect(mat.Equal(se1, f.path.StoichiometryEquilibrium())).To(BeTrue())
			Expect(mat.Equal(sk1, f.path.StoichiometryKinetic())).To(BeTrue())
			Expect(mat.Equal(a1, mat.NewDense(2, 1, []float64{1, -1}))).To(BeTrue())
		})

		It("resets the path to unconfigured", func() {
			f := newDecay(kinetics.DefaultOptions())
			Expect(f.path.Initialize(f.state, 0)).To(Succeed())
			Expect(f.path.Phase()).To(Equal(kinetics.Initialized))

			Expect(f.path.SetPartition(f.path.Partition())).To(Succeed())
			Expect(f.path.Phase()).To(Equal(kinetics.Unconfigured))
			t := 0.0
			err := f.path.Step(f.state, &t)
			Expect(errors.Is(err, kinetics.ErrNotInitialized)).To(BeTrue())
		})

		It("keeps the previous partition when the new one is rejected", func() {
			f := newDecay(kinetics.DefaultOptions())
			// both species at equilibrium need two independent elements
			all, err := chem.NewPartition(f.system, nil)
			Expect(err).NotTo(HaveOccurred())

			err = f.path.SetPartition(all)
			Expect(errors.Is(err, kinetics.ErrConfig)).To(BeTrue())
			Expect(f.path.Partition().KineticSpeciesNames()).To(Equal([]string{"A"}))
		})

		It("rejects a partition of another system", func() {
			f := newDecay(kinetics.DefaultOptions())
			other, err := chem.NewPartition(isomerSystem(), []string{"A"})
			Expect(err).NotTo(HaveOccurred())
			Expect(errors.Is(f.path.SetPartition(other), kinetics.ErrConfig)).To(BeTrue())
		})

		It("defaults to all species at equilibrium", func() {
			sys := isomerSystem()
			f := newIsomerization(equilibrium.NewIdeal())
			path, err := kinetics.NewPath(f.reactions, activity.IdealSolution{}, equilibrium.NewIdeal(), kinetics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(path.Partition()).To(BeNil())

			state := chem.NewState(f.system)
			Expect(state.SetSpeciesAmount("A", 1)).To(Succeed())
			Expect(path.Initialize(state, 0)).To(Succeed())
			Expect(path.Partition().NumKineticSpecies()).To(BeZero())
			Expect(path.Partition().NumEquilibriumSpecies()).To(Equal(sys.NumSpecies()))
		})
	})

	Describe("integration", func() {
		It("decays A to e^-1 over ten seconds", func() {
			f := newDecay(kinetics.DefaultOptions())
			Expect(f.path.Solve(f.state, 0, 10)).To(Succeed())
			Expect(f.path.Phase()).To(Equal(kinetics.Completed))

			a, _ := f.state.SpeciesAmount("A")
			b, _ := f.state.SpeciesAmount("B")
			Expect(a).To(BeNumerically("~", math.Exp(-1), 1e-4))
			Expect(a + b).To(BeNumerically("~", 1, 1e-9))
		})

		It("decays A with the explicit method too", func() {
			opts := kinetics.DefaultOptions()
			opts.ODE.Method = "rk45"
			f := newDecay(opts)
			Expect(f.path.Solve(f.state, 0, 10)).To(Succeed())
			a, _ := f.state.SpeciesAmount("A")
			Expect(a).To(BeNumerically("~", math.Exp(-1), 1e-5))
		})

		It("steps without passing the final time", func() {
			f := newDecay(kinetics.DefaultOptions())
			Expect(f.path.Initialize(f.state, 0)).To(Succeed())

			t := 0.0
			steps := 0
			for t < 10 {
				prev := t
				Expect(f.path.StepUntil(f.state, &t, 10)).To(Succeed())
				Expect(t).To(BeNumerically(">", prev))
				Expect(t).To(BeNumerically("<=", 10))
				steps++
				Expect(steps).To(BeNumerically("<", 10000))
			}
			Expect(f.path.Phase()).To(Equal(kinetics.Stepping))
			a, _ := f.state.SpeciesAmount("A")
			Expect(a).To(BeNumerically("~", math.Exp(-1), 1e-4))
		})

		It("takes unbounded steps", func() {
			f := newDecay(kinetics.DefaultOptions())
			Expect(f.path.Initialize(f.state, 0)).To(Succeed())
			t := 0.0
			Expect(f.path.Step(f.state, &t)).To(Succeed())
			Expect(t).To(BeNumerically(">", 0))

			a, _ := f.state.SpeciesAmount("A")
			Expect(a).To(BeNumerically("~", math.Exp(-0.1*t), 1e-4))
		})

		It("starts every step from the amounts in the caller's state", func() {
			f := newDecay(kinetics.DefaultOptions())
			Expect(f.path.Initialize(f.state, 0)).To(Succeed())

			t := 0.0
			Expect(f.path.StepUntil(f.state, &t, 0.1)).To(Succeed())
			a, _ := f.state.SpeciesAmount("A")
			Expect(f.state.SetSpeciesAmount("A", a+1)).To(Succeed())

			for t < 0.2 {
				Expect(f.path.StepUntil(f.state, &t, 0.2)).To(Succeed())
			}
			after, _ := f.state.SpeciesAmount("A")
			Expect(after).To(BeNumerically("~", (a+1)*math.Exp(-0.1*0.1), 1e-4))
		})

		It("refuses to step before initialization", func() {
			f := newDecay(kinetics.DefaultOptions())
			t := 0.0
			err := f.path.Step(f.state, &t)
			Expect(errors.Is(err, kinetics.ErrNotInitialized)).To(BeTrue())
			var pe *kinetics.PathError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Op).To(Equal("step"))
		})

		It("reports equilibrium failure and keeps the last committed state", func() {
			f := newDecay(kinetics.DefaultOptions())
			path, err := kinetics.NewPath(f.reactions, activity.Amounts{},
				&failingSolver{Solver: equilibrium.NewLinear(), budget: 25}, kinetics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			part, err := chem.NewPartition(f.system, []string{"A"})
			Expect(err).NotTo(HaveOccurred())
			Expect(path.SetPartition(part)).To(Succeed())

			before := append([]float64(nil), f.state.SpeciesAmounts()...)
			err = path.Solve(f.state, 0, 10)
			Expect(errors.Is(err, kinetics.ErrConvergence)).To(BeTrue())
			Expect(f.state.SpeciesAmounts()).To(Equal(before))
		})
	})

	Describe("observers", func() {
		It("receive every committed step of Solve", func() {
			f := newDecay(kinetics.DefaultOptions())
			var times, amounts []float64
			f.path.Observe(kinetics.ObserverFunc(func(s *chem.State, t float64) error {
				a, err := s.SpeciesAmount("A")
				times = append(times, t)
				amounts = append(amounts, a)
				return err
			}))

			Expect(f.path.Solve(f.state, 0, 10)).To(Succeed())
			Expect(times).To(HaveLen(f.path.Stats().Steps + 1))
			Expect(times[0]).To(Equal(0.0))
			Expect(times[len(times)-1]).To(Equal(10.0))
			for i := 1; i < len(times); i++ {
				Expect(times[i]).To(BeNumerically(">", times[i-1]))
				Expect(amounts[i]).To(BeNumerically("<", amounts[i-1]))
			}
			a, _ := f.state.SpeciesAmount("A")
			Expect(amounts[len(amounts)-1]).To(Equal(a))
		})

		It("stop the integration by returning an error", func() {
			f := newDecay(kinetics.DefaultOptions())
			stop := errors.New("stop")
			calls := 0
			f.path.Observe(kinetics.ObserverFunc(func(*chem.State, float64) error {
				calls++
				if calls == 3 {
					return stop
				}
				return nil
			}))

			err := f.path.Solve(f.state, 0, 10)
			Expect(errors.Is(err, stop)).To(BeTrue())
			Expect(calls).To(Equal(3))
			Expect(f.path.Phase()).To(Equal(kinetics.Stepping))
		})

		It("cannot be repartitioned from inside Solve", func() {
			f := newDecay(kinetics.DefaultOptions())
			calls := 0
			var repartition error
			f.path.Observe(kinetics.ObserverFunc(func(*chem.State, float64) error {
				calls++
				if calls == 2 {
					repartition = f.path.SetPartition(f.path.Partition())
				}
				return nil
			}))

			Expect(f.path.Solve(f.state, 0, 10)).To(Succeed())
			Expect(errors.Is(repartition, kinetics.ErrConfig)).To(BeTrue())
			Expect(f.path.Phase()).To(Equal(kinetics.Completed))

			f.path.ClearObservers()
			Expect(f.path.SetPartition(f.path.Partition())).To(Succeed())
			Expect(f.path.Phase()).To(Equal(kinetics.Unconfigured))
		})
	})

	Describe("options", func() {
		It("rejects a negative depletion floor", func() {
			opts := kinetics.DefaultOptions()
			opts.DepletionFloor = -1
			_, err := kinetics.NewPath(nil, nil, nil, opts)
			Expect(errors.Is(err, kinetics.ErrConfig)).To(BeTrue())

			f := newDecay(kinetics.DefaultOptions())
			_, err = kinetics.NewPath(f.reactions, activity.Amounts{}, equilibrium.NewLinear(), opts)
			Expect(errors.Is(err, kinetics.ErrConfig)).To(BeTrue())
		})

		It("rejects an unknown integration method", func() {
			opts := kinetics.DefaultOptions()
			opts.ODE.Method = "euler"
			f := newDecay(opts)
			err := f.path.Initialize(f.state, 0)
			Expect(errors.Is(err, kinetics.ErrConfig)).To(BeTrue())
			Expect(errors.Is(err, ode.ErrUnknownMethod)).To(BeTrue())
		})
	})
})
