package chem

import "fmt"

const (
	DefaultTemperature = 298.15 // K
	DefaultPressure    = 1e5    // Pa
)

// State is the temperature, pressure and composition of a chemical system.
type State struct {
	system *System
	T      float64
	P      float64
	n      []float64
}

func NewState(system *System) *State {
	return &State{
		system: system,
		T:      DefaultTemperature,
		P:      DefaultPressure,
		n:      make([]float64, system.NumSpecies()),
	}
}

func (s *State) System() *System { return s.system }

func (s *State) Temperature() float64     { return s.T }
func (s *State) Pressure() float64        { return s.P }
func (s *State) SetTemperature(T float64) { s.T = T }
func (s *State) SetPressure(P float64)    { s.P = P }

// SpeciesAmounts returns the molar amounts of all species. The slice aliases
// the state and must be treated as read-only.
func (s *State) SpeciesAmounts() []float64 { return s.n }

func (s *State) SpeciesAmount(name string) (float64, error) {
	i, err := s.system.IndexSpecies(name)
	if err != nil {
		return 0, err
	}
	return s.n[i], nil
}

func (s *State) SetSpeciesAmount(name string, amount float64) error {
	i, err := s.system.IndexSpecies(name)
	if err != nil {
		return err
	}
	s.n[i] = amount
	return nil
}

// SetSpeciesAmounts writes values[k] into the species at indices[k].
func (s *State) SetSpeciesAmounts(values []float64, indices []int) {
	if len(values) != len(indices) {
		panic(fmt.Sprintf("chem: %d values for %d indices", len(values), len(indices)))
	}
	for k, i := range indices {
		s.n[i] = values[k]
	}
}

// SpeciesAmountsAt gathers the amounts of the species at indices into dst.
func (s *State) SpeciesAmountsAt(dst []float64, indices []int) []float64 {
	if cap(dst) < len(indices) {
		dst = make([]float64, len(indices))
	}
	dst = dst[:len(indices)]
	for k, i := range indices {
		dst[k] = s.n[i]
	}
	return dst
}

func (s *State) ElementAmounts() []float64 {
	return s.system.ElementAmounts(s.n)
}

func (s *State) ElementAmount(name string) (float64, error) {
	i, err := s.system.IndexElement(name)
	if err != nil {
		return 0, err
	}
	return s.ElementAmounts()[i], nil
}

func (s *State) Clone() *State {
	c := &State{system: s.system, T: s.T, P: s.P, n: make([]float64, len(s.n))}
	copy(c.n, s.n)
	return c
}

// CopyFrom overwrites s with the contents of other. Both states must belong
// to the same system.
func (s *State) CopyFrom(other *State) {
	if other.system != s.system {
		panic("chem: copy between states of different systems")
	}
	s.T = other.T
	s.P = other.P
	copy(s.n, other.n)
}
