package chem

import "errors"

var (
	// ErrConfig indicates an invalid system or partition definition.
	ErrConfig = errors.New("chem: invalid configuration")

	// ErrUnknownSpecies indicates a species name missing from the system.
	ErrUnknownSpecies = errors.New("chem: unknown species")

	// ErrUnknownElement indicates an element name missing from the system.
	ErrUnknownElement = errors.New("chem: unknown element")
)
