package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/kinsim/internal/chem"
)

func newState(t *testing.T, amounts map[string]float64) *chem.State {
	t.Helper()
	sys, err := chem.NewSystem(
		[]chem.Element{{Name: "C"}, {Name: "O"}},
		[]chem.Species{
			{Name: "CO", Formula: map[string]float64{"C": 1, "O": 1}},
			{Name: "O2", Formula: map[string]float64{"O": 2}},
			{Name: "CO2", Formula: map[string]float64{"C": 1, "O": 2}},
		})
	if err != nil {
		t.Fatal(err)
	}
	s := chem.NewState(sys)
	for name, n := range amounts {
		if err := s.SetSpeciesAmount(name, n); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestElementDrift(t *testing.T) {
	m := NewElementDrift()
	m.Observe(newState(t, map[string]float64{"CO": 2, "O2": 1}), 0)

	// 2 CO + O2 -> 2 CO2 conserves both elements
	m.Observe(newState(t, map[string]float64{"CO": 1, "O2": 0.5, "CO2": 1}), 1)
	if m.Value() > 1e-15 {
		t.Errorf("balanced drift = %g", m.Value())
	}

	// oxygen: initial 4, now 4.4
	m.Observe(newState(t, map[string]float64{"CO": 1, "O2": 0.7, "CO2": 1}), 2)
	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("drift = %g, want 0.1", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestPositivity(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
		states    []map[string]float64
		want      float64
		min       float64
	}{
		{"empty", 0, nil, 1, 0},
		{"all positive", 0, []map[string]float64{{"CO": 1}, {"CO": 0.5, "O2": 0.2}}, 1, 0},
		{"one negative", 0, []map[string]float64{{"CO": 1}, {"CO": -1e-3}}, 0.5, -1e-3},
		{"within tolerance", 1e-2, []map[string]float64{{"CO": -1e-3}, {"CO": 1}}, 1, -1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPositivity(tt.tolerance)
			for i, a := range tt.states {
				m.Observe(newState(t, a), float64(i))
			}
			if got := m.Value(); got != tt.want {
				t.Errorf("Value() = %g, want %g", got, tt.want)
			}
			if got := m.Min(); got != tt.min {
				t.Errorf("Min() = %g, want %g", got, tt.min)
			}
		})
	}
}

func TestSet(t *testing.T) {
	s := Default()
	state := newState(t, map[string]float64{"CO": 1})
	for i := 0; i < 3; i++ {
		if err := s.OnStep(state, float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	v := s.Values()
	if v["element_drift"] != 0 || v["positivity"] != 1 {
		t.Errorf("values = %v", v)
	}
	if len(v) != 2 {
		t.Errorf("got %d metrics, want 2", len(v))
	}
}
