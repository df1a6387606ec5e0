package reaction

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseEquation reads an equation such as "CaCO3 + 2 H+ = Ca++ + CO2(aq) + H2O(l)"
// into reactant and product coefficients. Both "=" and "->" separate the two
// sides. A leading number followed by a space is a stoichiometric
// coefficient; otherwise the coefficient is one.
func ParseEquation(equation string) (reactants, products map[string]float64, err error) {
	lhs, rhs, ok := strings.Cut(equation, "->")
	if !ok {
		lhs, rhs, ok = strings.Cut(equation, "=")
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: equation %q has no '=' or '->'", ErrInvalid, equation)
	}

	if reactants, err = parseSide(lhs); err != nil {
		return nil, nil, fmt.Errorf("%w: %q: %w", ErrInvalid, equation, err)
	}
	if products, err = parseSide(rhs); err != nil {
		return nil, nil, fmt.Errorf("%w: %q: %w", ErrInvalid, equation, err)
	}
	if len(reactants)+len(products) == 0 {
		return nil, nil, fmt.Errorf("%w: empty equation %q", ErrInvalid, equation)
	}
	return reactants, products, nil
}

func parseSide(side string) (map[string]float64, error) {
	out := make(map[string]float64)
	side = strings.TrimSpace(side)
	if side == "" {
		return out, nil
	}
	// "+" also appears in ionic names such as "Ca++", so split on " + " only
	for _, tok := range strings.Split(side, " + ") {
		fields := strings.Fields(tok)
		switch len(fields) {
		case 1:
			out[fields[0]] += 1
		case 2:
			coef, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("bad coefficient %q", fields[0])
			}
			if coef <= 0 {
				return nil, fmt.Errorf("non-positive coefficient %q", fields[0])
			}
			out[fields[1]] += coef
		default:
			return nil, fmt.Errorf("cannot parse term %q", tok)
		}
	}
	return out, nil
}
