// Package analysis inspects the tabulated output of stored runs.
//
//   - [NewPortrait]: one column against another, rendered as ASCII
//   - [Crossings]: interpolated times at which a column passes a level
//   - [Summarize]: initial and final value, extrema and characteristic times
//
// A half-life is the first downward crossing of half the initial value:
//
//	s, err := analysis.Summarize(table, "n[A]")
//	fmt.Println(s.HalfLife)
package analysis
