package chem

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Partition classifies the species of a system as equilibrium or kinetic.
// An element belongs to the equilibrium set when it appears in at least one
// equilibrium species, and to the kinetic set when it appears in at least one
// kinetic species.
type Partition struct {
	system    *System
	speciesE  []int
	speciesK  []int
	elementsE []int
	elementsK []int
	we        *mat.Dense
}

// NewPartition marks the named species as kinetic and every other species as
// equilibrium.
func NewPartition(system *System, kinetic []string) (*Partition, error) {
	isKinetic := make([]bool, system.NumSpecies())
	for _, name := range kinetic {
		i, err := system.IndexSpecies(name)
		if err != nil {
			return nil, fmt.Errorf("%w: kinetic species: %w", ErrConfig, err)
		}
		if isKinetic[i] {
			return nil, fmt.Errorf("%w: kinetic species %q listed twice", ErrConfig, name)
		}
		isKinetic[i] = true
	}

	var equilibrium, kin []int
	for i, k := range isKinetic {
		if k {
			kin = append(kin, i)
		} else {
			equilibrium = append(equilibrium, i)
		}
	}
	return NewPartitionFromIndices(system, equilibrium, kin)
}

// NewPartitionFromIndices builds a partition from explicit index sets. The
// two sets must be disjoint and together cover every species.
func NewPartitionFromIndices(system *System, equilibrium, kinetic []int) (*Partition, error) {
	n := system.NumSpecies()
	seen := make([]int, n)
	for _, set := range [][]int{equilibrium, kinetic} {
		for _, i := range set {
			if i < 0 || i >= n {
				return nil, fmt.Errorf("%w: species index %d out of range [0, %d)", ErrConfig, i, n)
			}
			seen[i]++
		}
	}
	for i, count := range seen {
		switch {
		case count == 0:
			return nil, fmt.Errorf("%w: species %q is neither equilibrium nor kinetic", ErrConfig, system.Species(i).Name)
		case count > 1:
			return nil, fmt.Errorf("%w: species %q classified more than once", ErrConfig, system.Species(i).Name)
		}
	}

	p := &Partition{
		system:   system,
		speciesE: sortedCopy(equilibrium),
		speciesK: sortedCopy(kinetic),
	}
	p.elementsE = participatingElements(system, p.speciesE)
	p.elementsK = participatingElements(system, p.speciesK)

	if len(p.elementsE) > 0 && len(p.speciesE) > 0 {
		W := system.FormulaMatrix()
		p.we = mat.NewDense(len(p.elementsE), len(p.speciesE), nil)
		for r, i := range p.elementsE {
			for c, j := range p.speciesE {
				p.we.Set(r, c, W.At(i, j))
			}
		}
	}

	return p, nil
}

// ParsePartition reads a classification of the form
//
//	kinetic = Calcite Dolomite; equilibrium = H2O(l) CO2(aq)
//
// Species not named in either group take the complement of the named group.
// When both groups are given they must form a complete bipartition.
func ParsePartition(system *System, spec string) (*Partition, error) {
	groups := map[string][]string{}
	for _, clause := range strings.Split(spec, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		key, value, ok := strings.Cut(clause, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed partition clause %q", ErrConfig, clause)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "kinetic" && key != "equilibrium" {
			return nil, fmt.Errorf("%w: unknown partition group %q", ErrConfig, key)
		}
		groups[key] = append(groups[key], strings.Fields(value)...)
	}

	kinetic, hasK := groups["kinetic"]
	equilibrium, hasE := groups["equilibrium"]

	switch {
	case hasK && !hasE:
		return NewPartition(system, kinetic)
	case !hasK && !hasE:
		return NewPartition(system, nil)
	}

	ie, err := indicesOf(system, equilibrium)
	if err != nil {
		return nil, err
	}
	if !hasK {
		taken := make(map[int]bool, len(ie))
		for _, i := range ie {
			taken[i] = true
		}
		var ik []int
		for i := 0; i < system.NumSpecies(); i++ {
			if !taken[i] {
				ik = append(ik, i)
			}
		}
		return NewPartitionFromIndices(system, ie, ik)
	}
	ik, err := indicesOf(system, kinetic)
	if err != nil {
		return nil, err
	}
	return NewPartitionFromIndices(system, ie, ik)
}

func (p *Partition) System() *System { return p.system }

func (p *Partition) EquilibriumSpecies() []int  { return sortedCopy(p.speciesE) }
func (p *Partition) KineticSpecies() []int      { return sortedCopy(p.speciesK) }
func (p *Partition) EquilibriumElements() []int { return sortedCopy(p.elementsE) }
func (p *Partition) KineticElements() []int     { return sortedCopy(p.elementsK) }

func (p *Partition) NumEquilibriumSpecies() int  { return len(p.speciesE) }
func (p *Partition) NumKineticSpecies() int      { return len(p.speciesK) }
func (p *Partition) NumEquilibriumElements() int { return len(p.elementsE) }

// FormulaMatrixEquilibrium returns a copy of We, the formula matrix restricted
// to equilibrium elements (rows) and equilibrium species (columns). It
// returns nil when the equilibrium subset is empty.
func (p *Partition) FormulaMatrixEquilibrium() *mat.Dense {
	if p.we == nil {
		return nil
	}
	return mat.DenseCopyOf(p.we)
}

// KineticSpeciesNames lists the kinetic species in partition order.
func (p *Partition) KineticSpeciesNames() []string {
	names := make([]string, len(p.speciesK))
	for k, i := range p.speciesK {
		names[k] = p.system.Species(i).Name
	}
	return names
}

func participatingElements(system *System, species []int) []int {
	W := system.FormulaMatrix()
	var out []int
	for i := 0; i < system.NumElements(); i++ {
		for _, j := range species {
			if W.At(i, j) != 0 {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func indicesOf(system *System, names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, err := system.IndexSpecies(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		out = append(out, i)
	}
	return out, nil
}

func sortedCopy(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	return out
}
