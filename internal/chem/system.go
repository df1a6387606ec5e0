package chem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Element is a chemical element of a system.
type Element struct {
	Name      string
	MolarMass float64 // kg/mol
}

// Species is a chemical species with its elemental formula.
type Species struct {
	Name    string
	Formula map[string]float64
	// G0 is the standard molar Gibbs energy in J/mol.
	G0     float64
	Charge float64
	Phase  string
}

// System is an immutable catalog of elements and species.
type System struct {
	elements []Element
	species  []Species
	formula  *mat.Dense
	ielement map[string]int
	ispecies map[string]int
}

func NewSystem(elements []Element, species []Species) (*System, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: system has no elements", ErrConfig)
	}
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: system has no species", ErrConfig)
	}

	s := &System{
		elements: make([]Element, len(elements)),
		species:  make([]Species, len(species)),
		ielement: make(map[string]int, len(elements)),
		ispecies: make(map[string]int, len(species)),
	}
	copy(s.elements, elements)

	for i, e := range elements {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: element %d has no name", ErrConfig, i)
		}
		if _, dup := s.ielement[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate element %q", ErrConfig, e.Name)
		}
		s.ielement[e.Name] = i
	}

	s.formula = mat.NewDense(len(elements), len(species), nil)
	for j, sp := range species {
		if sp.Name == "" {
			return nil, fmt.Errorf("%w: species %d has no name", ErrConfig, j)
		}
		if _, dup := s.ispecies[sp.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate species %q", ErrConfig, sp.Name)
		}
		s.ispecies[sp.Name] = j

		formula := make(map[string]float64, len(sp.Formula))
		nonzero := 0
		for name, coef := range sp.Formula {
			i, ok := s.ielement[name]
			if !ok {
				return nil, fmt.Errorf("%w: species %q references %q", ErrUnknownElement, sp.Name, name)
			}
			formula[name] = coef
			s.formula.Set(i, j, coef)
			if coef != 0 {
				nonzero++
			}
		}
		if nonzero == 0 {
			return nil, fmt.Errorf("%w: species %q has an empty formula", ErrConfig, sp.Name)
		}
		sp.Formula = formula
		s.species[j] = sp
	}

	return s, nil
}

func (s *System) NumElements() int { return len(s.elements) }
func (s *System) NumSpecies() int  { return len(s.species) }

func (s *System) Element(i int) Element { return s.elements[i] }
func (s *System) Species(i int) Species { return s.species[i] }

// IndexSpecies returns the position of the named species.
func (s *System) IndexSpecies(name string) (int, error) {
	i, ok := s.ispecies[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownSpecies, name)
	}
	return i, nil
}

// IndexElement returns the position of the named element.
func (s *System) IndexElement(name string) (int, error) {
	i, ok := s.ielement[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return i, nil
}

// SpeciesNames returns the species names in system order.
func (s *System) SpeciesNames() []string {
	names := make([]string, len(s.species))
	for i, sp := range s.species {
		names[i] = sp.Name
	}
	return names
}

// FormulaMatrix returns the elements × species formula matrix. The returned
// matrix is shared and must not be modified.
func (s *System) FormulaMatrix() *mat.Dense { return s.formula }

// ElementAmounts returns W·n, the molar abundance of every element.
func (s *System) ElementAmounts(n []float64) []float64 {
	b := make([]float64, len(s.elements))
	for i := range s.elements {
		sum := 0.0
		for j := range s.species {
			sum += s.formula.At(i, j) * n[j]
		}
		b[i] = sum
	}
	return b
}
