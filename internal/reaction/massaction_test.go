package reaction

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
)

func abcSystem(t *testing.T) *chem.System {
	t.Helper()
	sys, err := chem.NewSystem(
		[]chem.Element{{Name: "X"}},
		[]chem.Species{
			{Name: "A", Formula: map[string]float64{"X": 1}},
			{Name: "B", Formula: map[string]float64{"X": 1}},
			{Name: "C", Formula: map[string]float64{"X": 2}},
		},
	)
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	return sys
}

func TestMassAction_FirstOrder(t *testing.T) {
	sys := abcSystem(t)
	m, err := NewMassAction(sys, []Reaction{{Name: "decay", Reactants: map[string]float64{"A": 1}, Products: map[string]float64{"B": 1}, Forward: 0.1}})
	if err != nil {
		t.Fatalf("NewMassAction: %v", err)
	}

	n := []float64{2.0, 0.5, 0.0}
	a, _ := activity.Amounts{}.Activities(298.15, 1e5, n)
	r, err := m.Rates(298.15, 1e5, n, a)
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}

	if math.Abs(r.Value[0]-0.2) > 1e-14 {
		t.Errorf("rate = %v, want 0.2", r.Value[0])
	}
	if r.DDN.At(0, 0) != 0.1 || r.DDN.At(0, 1) != 0 {
		t.Errorf("sensitivity row = [%v %v], want [0.1 0]", r.DDN.At(0, 0), r.DDN.At(0, 1))
	}

	S := m.Stoichiometry()
	if S.At(0, 0) != -1 || S.At(0, 1) != 1 || S.At(0, 2) != 0 {
		t.Errorf("stoichiometry row = [%v %v %v]", S.At(0, 0), S.At(0, 1), S.At(0, 2))
	}
}

func TestMassAction_SensitivityMatchesFiniteDifference(t *testing.T) {
	sys := abcSystem(t)
	m, err := NewMassAction(sys, []Reaction{
		{Name: "dimer", Reactants: map[string]float64{"A": 2}, Products: map[string]float64{"C": 1}, Forward: 3, Backward: 0.5},
		{Name: "iso", Reactants: map[string]float64{"A": 1, "B": 1}, Products: map[string]float64{"B": 2}, Forward: 1.5},
	})
	if err != nil {
		t.Fatalf("NewMassAction: %v", err)
	}

	model := activity.IdealSolution{}
	n := []float64{0.7, 0.2, 0.1}
	a, _ := model.Activities(300, 1e5, n)
	base, err := m.Rates(300, 1e5, n, a)
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}

	for j := range n {
		h := 1e-6
		plus := append([]float64(nil), n...)
		minus := append([]float64(nil), n...)
		plus[j] += h
		minus[j] -= h
		ap, _ := model.Activities(300, 1e5, plus)
		am, _ := model.Activities(300, 1e5, minus)
		rp, _ := m.Rates(300, 1e5, plus, ap)
		rm, _ := m.Rates(300, 1e5, minus, am)
		for i := range base.Value {
			fd := (rp.Value[i] - rm.Value[i]) / (2 * h)
			if math.Abs(fd-base.DDN.At(i, j)) > 1e-6 {
				t.Errorf("dr[%d]/dn[%d] = %g, finite difference %g", i, j, base.DDN.At(i, j), fd)
			}
		}
	}
}

func TestMassAction_Arrhenius(t *testing.T) {
	sys := abcSystem(t)
	m, _ := NewMassAction(sys, []Reaction{{Reactants: map[string]float64{"A": 1}, Products: map[string]float64{"B": 1}, Forward: 1, ActivationEnergy: 50e3}})

	n := []float64{1, 0, 0}
	a, _ := activity.Amounts{}.Activities(0, 0, n)
	cold, _ := m.Rates(ReferenceTemperature, 1e5, n, a)
	hot, _ := m.Rates(ReferenceTemperature+10, 1e5, n, a)

	if cold.Value[0] != 1 {
		t.Errorf("rate at reference temperature = %v, want 1", cold.Value[0])
	}
	if hot.Value[0] <= cold.Value[0] {
		t.Errorf("expected faster rate when hotter: %v <= %v", hot.Value[0], cold.Value[0])
	}
	if m.ReactionName(0) != "R1" {
		t.Errorf("default name = %q, want R1", m.ReactionName(0))
	}
}

func TestMassAction_Errors(t *testing.T) {
	sys := abcSystem(t)

	tests := []struct {
		name      string
		reactions []Reaction
	}{
		{"none", nil},
		{"unknown species", []Reaction{{Name: "r", Reactants: map[string]float64{"Z": 1}, Forward: 1}}},
		{"negative constant", []Reaction{{Name: "r", Reactants: map[string]float64{"A": 1}, Forward: -1}}},
		{"zero coefficient", []Reaction{{Name: "r", Reactants: map[string]float64{"A": 0}, Forward: 1}}},
		{"empty", []Reaction{{Name: "r", Forward: 1}}},
		{"duplicate", []Reaction{
			{Name: "r", Reactants: map[string]float64{"A": 1}, Forward: 1},
			{Name: "r", Reactants: map[string]float64{"B": 1}, Forward: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMassAction(sys, tt.reactions)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	m, _ := NewMassAction(sys, []Reaction{{Name: "r", Reactants: map[string]float64{"A": 1}, Forward: 1}})
	if _, err := m.IndexReaction("missing"); !errors.Is(err, ErrUnknownReaction) {
		t.Errorf("expected ErrUnknownReaction, got %v", err)
	}
}

func TestParseEquation(t *testing.T) {
	tests := []struct {
		equation  string
		reactants map[string]float64
		products  map[string]float64
		wantErr   bool
	}{
		{"A = B", map[string]float64{"A": 1}, map[string]float64{"B": 1}, false},
		{"2 A -> C", map[string]float64{"A": 2}, map[string]float64{"C": 1}, false},
		{"Calcite + H+ = Ca++ + HCO3-", map[string]float64{"Calcite": 1, "H+": 1}, map[string]float64{"Ca++": 1, "HCO3-": 1}, false},
		{"A + A = 0.5 C", map[string]float64{"A": 2}, map[string]float64{"C": 0.5}, false},
		{"A B", nil, nil, true},
		{"x A = B", nil, nil, true},
		{"-1 A = B", nil, nil, true},
		{" = ", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.equation, func(t *testing.T) {
			r, p, err := ParseEquation(tt.equation)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEquation: %v", err)
			}
			for k, v := range tt.reactants {
				if r[k] != v {
					t.Errorf("reactant %s = %v, want %v", k, r[k], v)
				}
			}
			for k, v := range tt.products {
				if p[k] != v {
					t.Errorf("product %s = %v, want %v", k, p[k], v)
				}
			}
		})
	}
}
