// Package kinetics integrates a chemical state in time when some species
// react at finite rates while the rest remain in chemical equilibrium.
//
// The species are split by a [chem.Partition] into kinetic species, whose
// amounts nk follow explicit rate laws, and equilibrium species, whose
// amounts ne are fixed at every instant by an equilibrium calculation for the
// abundances be of the elements they contain. The integrator advances only
// the reduced state
//
//	u = [be; nk]
//
// whose time derivative is du/dt = A·r with the constant coefficient matrix
//
//	A = [We·Seᵀ; Skᵀ]
//
// where We is the formula matrix of the equilibrium species and Se, Sk are
// the stoichiometric columns of the equilibrium and kinetic species. The
// Jacobian of the reduced system is assembled analytically as
//
//	J = A·[Re·Be | Rk]
//
// from the rate sensitivities Re, Rk and the equilibrium sensitivity
// Be = ∂ne/∂be, so the nested equilibrium solve is never differentiated
// numerically.
//
// A [Path] owns the reduced state and the integrator. It moves through the
// phases Unconfigured, Initialized, Stepping and Completed. Each committed
// step writes a self-consistent composition back into the caller's
// [chem.State]; a failed step leaves the state at its last commit.
//
// A Path is not safe for concurrent use. Independent paths over independent
// states may run in parallel.
package kinetics
