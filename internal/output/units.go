package output

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnit indicates an unknown unit or a conversion between dimensions.
var ErrUnit = errors.New("output: invalid unit")

type unit struct {
	dim   string
	scale float64
}

var units = map[string]unit{
	"s":       {"time", 1},
	"second":  {"time", 1},
	"seconds": {"time", 1},
	"ms":      {"time", 1e-3},
	"min":     {"time", 60},
	"minute":  {"time", 60},
	"minutes": {"time", 60},
	"h":       {"time", 3600},
	"hour":    {"time", 3600},
	"hours":   {"time", 3600},
	"day":     {"time", 86400},
	"days":    {"time", 86400},
	"year":    {"time", 31557600},
	"years":   {"time", 31557600},

	"mol":  {"amount", 1},
	"kmol": {"amount", 1e3},
	"mmol": {"amount", 1e-3},
	"umol": {"amount", 1e-6},
	"nmol": {"amount", 1e-9},

	"molal":  {"molality", 1},
	"mmolal": {"molality", 1e-3},
	"umolal": {"molality", 1e-6},
	"mol/kg": {"molality", 1},

	"": {"dimensionless", 1},
	"1": {"dimensionless", 1},
}

// lookupUnit resolves simple units from the table and quotients such as
// "mmol/h".
func lookupUnit(name string) (unit, error) {
	name = strings.TrimSpace(name)
	if u, ok := units[name]; ok {
		return u, nil
	}
	num, den, ok := strings.Cut(name, "/")
	if !ok {
		return unit{}, fmt.Errorf("%w: %q", ErrUnit, name)
	}
	n, err := lookupUnit(num)
	if err != nil {
		return unit{}, err
	}
	d, err := lookupUnit(den)
	if err != nil {
		return unit{}, err
	}
	return unit{dim: n.dim + "/" + d.dim, scale: n.scale / d.scale}, nil
}

// ConvertUnit converts value from one unit to another of the same dimension.
func ConvertUnit(value float64, from, to string) (float64, error) {
	if from == to {
		return value, nil
	}
	f, err := lookupUnit(from)
	if err != nil {
		return 0, err
	}
	t, err := lookupUnit(to)
	if err != nil {
		return 0, err
	}
	if f.dim != t.dim {
		return 0, fmt.Errorf("%w: cannot convert %s (%s) to %s (%s)", ErrUnit, from, f.dim, to, t.dim)
	}
	return value * f.scale / t.scale, nil
}
