package ode

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the explicit Dormand-Prince 5(4) pair. It ignores the Jacobian
// and is only suitable for non-stiff kinetics.
type RK45 struct {
	k2, k3, k4, k5, k6, k7 []float64
	scratch                []float64
}

func NewRK45() *RK45 {
	return &RK45{}
}

func (r *RK45) Name() string    { return "rk45" }
func (r *RK45) ErrorOrder() int { return 4 }

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.k5 = make([]float64, n)
		r.k6 = make([]float64, n)
		r.k7 = make([]float64, n)
		r.scratch = make([]float64, n)
	}
}

func (r *RK45) Prepare(p *Problem, t float64, u, f0 []float64) error {
	r.ensureScratch(len(u))
	return nil
}

func (r *RK45) Attempt(p *Problem, t, h float64, u, k1, out, errEst []float64) error {
	n := len(u)
	r.ensureScratch(n)
	x := r.scratch

	for i := 0; i < n; i++ {
		x[i] = u[i] + h*b21*k1[i]
	}
	if err := p.Function(t+a2*h, x, r.k2); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		x[i] = u[i] + h*(b31*k1[i]+b32*r.k2[i])
	}
	if err := p.Function(t+a3*h, x, r.k3); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		x[i] = u[i] + h*(b41*k1[i]+b42*r.k2[i]+b43*r.k3[i])
	}
	if err := p.Function(t+a4*h, x, r.k4); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		x[i] = u[i] + h*(b51*k1[i]+b52*r.k2[i]+b53*r.k3[i]+b54*r.k4[i])
	}
	if err := p.Function(t+a5*h, x, r.k5); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		x[i] = u[i] + h*(b61*k1[i]+b62*r.k2[i]+b63*r.k3[i]+b64*r.k4[i]+b65*r.k5[i])
	}
	if err := p.Function(t+h, x, r.k6); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		out[i] = u[i] + h*(c1*k1[i]+c3*r.k3[i]+c4*r.k4[i]+c5*r.k5[i]+c6*r.k6[i])
	}
	if err := p.Function(t+h, out, r.k7); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		errEst[i] = h * (dc1*k1[i] + dc3*r.k3[i] + dc4*r.k4[i] + dc5*r.k5[i] + dc6*r.k6[i] + dc7*r.k7[i])
	}
	return nil
}
