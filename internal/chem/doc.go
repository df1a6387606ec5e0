// Package chem describes chemical systems and their states.
//
// A [System] is an immutable catalog of elements and species together with
// the formula matrix relating them. A [State] holds temperature, pressure
// and the molar amounts of every species of a system. A [Partition] splits
// the species of a system into an equilibrium subset and a kinetic subset:
//
//	sys, _ := chem.NewSystem(elements, species)
//	part, err := chem.NewPartition(sys, []string{"Calcite"})
//	if err != nil {
//	    // unknown species name
//	}
//	We := part.FormulaMatrixEquilibrium()
//
// # Thread Safety
//
// System and Partition values are read-only once constructed and can be
// shared. A State is mutable and must not be shared between goroutines.
package chem
