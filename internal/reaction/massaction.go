package reaction

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"gonum.org/v1/gonum/mat"
)

// ReferenceTemperature for Arrhenius corrections, in K.
const ReferenceTemperature = 298.15

// Reaction is an elementary reaction with mass-action kinetics.
type Reaction struct {
	Name      string
	Reactants map[string]float64
	Products  map[string]float64
	// Forward and Backward are the rate constants at ReferenceTemperature.
	Forward  float64
	Backward float64
	// ActivationEnergy in J/mol; zero disables the temperature correction.
	ActivationEnergy float64
}

type term struct {
	species int
	order   float64
}

// MassAction evaluates r = kf·Π a^ν − kb·Π a^ν for every reaction.
type MassAction struct {
	system    *chem.System
	reactions []Reaction
	index     map[string]int
	stoich    *mat.Dense
	forward   [][]term
	backward  [][]term
}

func NewMassAction(system *chem.System, reactions []Reaction) (*MassAction, error) {
	if len(reactions) == 0 {
		return nil, fmt.Errorf("%w: no reactions", ErrInvalid)
	}

	m := &MassAction{
		system:    system,
		reactions: make([]Reaction, len(reactions)),
		index:     make(map[string]int, len(reactions)),
		stoich:    mat.NewDense(len(reactions), system.NumSpecies(), nil),
		forward:   make([][]term, len(reactions)),
		backward:  make([][]term, len(reactions)),
	}
	copy(m.reactions, reactions)

	for j, rxn := range reactions {
		if rxn.Name == "" {
			rxn.Name = fmt.Sprintf("R%d", j+1)
			m.reactions[j].Name = rxn.Name
		}
		if _, dup := m.index[rxn.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate reaction %q", ErrInvalid, rxn.Name)
		}
		m.index[rxn.Name] = j

		if rxn.Forward < 0 || rxn.Backward < 0 {
			return nil, fmt.Errorf("%w: %q has a negative rate constant", ErrInvalid, rxn.Name)
		}
		if len(rxn.Reactants)+len(rxn.Products) == 0 {
			return nil, fmt.Errorf("%w: %q has no species", ErrInvalid, rxn.Name)
		}

		var err error
		if m.forward[j], err = m.terms(rxn.Name, rxn.Reactants, -1, j); err != nil {
			return nil, err
		}
		if m.backward[j], err = m.terms(rxn.Name, rxn.Products, 1, j); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *MassAction) terms(rxn string, side map[string]float64, sign float64, row int) ([]term, error) {
	out := make([]term, 0, len(side))
	for name, coef := range side {
		if coef <= 0 {
			return nil, fmt.Errorf("%w: %q has non-positive coefficient for %q", ErrInvalid, rxn, name)
		}
		i, err := m.system.IndexSpecies(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalid, rxn, err)
		}
		m.stoich.Set(row, i, m.stoich.At(row, i)+sign*coef)
		out = append(out, term{species: i, order: coef})
	}
	// map iteration order is random; keep evaluation deterministic
	sort.Slice(out, func(a, b int) bool { return out[a].species < out[b].species })
	return out, nil
}

func (m *MassAction) ChemicalSystem() *chem.System { return m.system }
func (m *MassAction) NumReactions() int            { return len(m.reactions) }
func (m *MassAction) Stoichiometry() *mat.Dense    { return m.stoich }
func (m *MassAction) ReactionName(i int) string    { return m.reactions[i].Name }

func (m *MassAction) IndexReaction(name string) (int, error) {
	j, ok := m.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownReaction, name)
	}
	return j, nil
}

// Rates evaluates the reaction rates and chains their activity derivatives
// through a.DDN to obtain derivatives with respect to species amounts.
func (m *MassAction) Rates(T, P float64, n []float64, a activity.Result) (Rates, error) {
	ns := m.system.NumSpecies()
	if len(n) != ns || len(a.Value) != ns {
		return Rates{}, fmt.Errorf("%w: composition has %d entries, activities %d, system %d",
			ErrInvalid, len(n), len(a.Value), ns)
	}

	nr := len(m.reactions)
	value := make([]float64, nr)
	dda := mat.NewDense(nr, ns, nil)

	for j, rxn := range m.reactions {
		kf, kb := m.rateConstants(rxn, T)
		rf := massActionTerm(kf, m.forward[j], a.Value, dda, j, 1)
		rb := massActionTerm(kb, m.backward[j], a.Value, dda, j, -1)
		value[j] = rf - rb
	}

	res := Rates{Value: value, DDN: mat.NewDense(nr, ns, nil)}
	if a.DDN != nil {
		res.DDN.Mul(dda, a.DDN)
	}
	return res, nil
}

func (m *MassAction) rateConstants(rxn Reaction, T float64) (float64, float64) {
	if rxn.ActivationEnergy == 0 || T <= 0 {
		return rxn.Forward, rxn.Backward
	}
	f := math.Exp(-rxn.ActivationEnergy / GasConstant * (1/T - 1/ReferenceTemperature))
	return rxn.Forward * f, rxn.Backward * f
}

// massActionTerm returns k·Π a_i^ν_i and accumulates sign·∂/∂a into row j of dda.
func massActionTerm(k float64, terms []term, a []float64, dda *mat.Dense, j int, sign float64) float64 {
	if k == 0 || len(terms) == 0 {
		return 0
	}
	value := k
	for _, t := range terms {
		value *= math.Pow(a[t.species], t.order)
	}
	for p, t := range terms {
		d := k * t.order * math.Pow(a[t.species], t.order-1)
		for q, o := range terms {
			if q != p {
				d *= math.Pow(a[o.species], o.order)
			}
		}
		dda.Set(j, t.species, dda.At(j, t.species)+sign*d)
	}
	return value
}
