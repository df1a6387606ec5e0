package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/storage"
)

type Direction int

const (
	Either Direction = iota
	Rising
	Falling
)

// Crossings returns the times at which values passes level, linearly
// interpolated between samples. times and values must have equal length.
func Crossings(times, values []float64, level float64, dir Direction) []float64 {
	var out []float64
	for i := 1; i < len(values) && i < len(times); i++ {
		prev, curr := values[i-1], values[i]
		rising := prev < level && curr >= level
		falling := prev > level && curr <= level
		switch {
		case rising && dir == Falling, falling && dir == Rising, !rising && !falling:
			continue
		}
		frac := (level - prev) / (curr - prev)
		if !isFinite(frac) {
			frac = 0.5
		}
		out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
	}
	return out
}

// Summary characterizes one column of a run.
type Summary struct {
	Column         string
	Initial, Final float64
	Min, Max       float64
	// HalfLife is the first time the column falls to half its initial value,
	// NaN if it never does.
	HalfLife float64
	// Settle is the time after which the column stays within 1% of the
	// total change of its final value.
	Settle float64
}

// Summarize computes the summary of column against the "t" column.
func Summarize(table *storage.Table, column string) (*Summary, error) {
	times, err := table.Column("t")
	if err != nil {
		return nil, err
	}
	values, err := table.Column(column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("analysis: column %q is empty", column)
	}

	s := &Summary{
		Column:   column,
		Initial:  values[0],
		Final:    values[len(values)-1],
		Min:      values[0],
		Max:      values[0],
		HalfLife: math.NaN(),
		Settle:   times[0],
	}
	for _, v := range values {
		s.Min, s.Max = math.Min(s.Min, v), math.Max(s.Max, v)
	}
	if s.Initial > 0 {
		if c := Crossings(times, values, s.Initial/2, Falling); len(c) > 0 {
			s.HalfLife = c[0]
		}
	}

	band := 0.01 * math.Abs(s.Final-s.Initial)
	for i := len(values) - 1; i >= 0; i-- {
		if math.Abs(values[i]-s.Final) > band {
			if i+1 < len(times) {
				s.Settle = times[i+1]
			}
			break
		}
	}
	return s, nil
}
