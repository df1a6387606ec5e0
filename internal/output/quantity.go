package output

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/reaction"
)

var (
	// ErrSyntax indicates a malformed quantity expression.
	ErrSyntax = errors.New("output: invalid quantity")

	// ErrUnavailable indicates a quantity that cannot be computed for the
	// current system or state.
	ErrUnavailable = errors.New("output: quantity unavailable")
)

// Water is the solvent species used for molalities.
const Water = "H2O(l)"

// Expr is a parsed quantity expression of the form name[q1][q2]:unit.
type Expr struct {
	Text       string
	Name       string
	Qualifiers []string
	Unit       string
}

func (e Expr) String() string { return e.Text }

// ParseQuantity parses expressions such as "t:minutes", "n[CO2(aq)]:mmol",
// "b[Ca][aqueous]" and "pH".
func ParseQuantity(text string) (Expr, error) {
	text = strings.TrimSpace(text)
	e := Expr{Text: text}
	if text == "" {
		return e, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	body := text
	if rb := strings.LastIndex(text, "]"); rb >= 0 {
		if i := strings.Index(text[rb:], ":"); i >= 0 {
			body, e.Unit = text[:rb+i], text[rb+i+1:]
		}
	} else if name, u, ok := strings.Cut(text, ":"); ok {
		body, e.Unit = name, u
	}
	e.Unit = strings.TrimSpace(e.Unit)

	lb := strings.Index(body, "[")
	if lb < 0 {
		e.Name = body
		if strings.Contains(body, "]") {
			return e, fmt.Errorf("%w: unbalanced bracket in %q", ErrSyntax, text)
		}
		return e, nil
	}
	e.Name = body[:lb]
	rest := body[lb:]
	for rest != "" {
		if rest[0] != '[' {
			return e, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, rest, text)
		}
		end := strings.Index(rest, "]")
		if end < 0 {
			return e, fmt.Errorf("%w: unbalanced bracket in %q", ErrSyntax, text)
		}
		q := strings.TrimSpace(rest[1:end])
		if q == "" {
			return e, fmt.Errorf("%w: empty qualifier in %q", ErrSyntax, text)
		}
		e.Qualifiers = append(e.Qualifiers, q)
		rest = rest[end+1:]
	}
	if e.Name == "" {
		return e, fmt.Errorf("%w: missing name in %q", ErrSyntax, text)
	}
	return e, nil
}

type quantityFunc func(q *Quantity, e Expr) (float64, error)

type quantityDef struct {
	unit       string
	qualifiers int // required qualifiers; extra ones are optional phases
	eval       quantityFunc
}

var quantities = map[string]quantityDef{
	"t":  {unit: "s", eval: func(q *Quantity, _ Expr) (float64, error) { return q.t, nil }},
	"n":  {unit: "mol", qualifiers: 1, eval: (*Quantity).speciesAmount},
	"b":  {unit: "mol", qualifiers: 1, eval: (*Quantity).elementAmount},
	"m":  {unit: "molal", qualifiers: 1, eval: (*Quantity).molality},
	"r":  {unit: "mol/s", qualifiers: 1, eval: (*Quantity).rate},
	"a":  {qualifiers: 1, eval: (*Quantity).activity},
	"pH": {eval: (*Quantity).pH},
}

// Names lists the supported quantity names.
func Names() []string {
	return []string{"t", "n", "b", "m", "r", "a", "pH"}
}

// Quantity evaluates quantity expressions against a chemical state. Rates
// and activities are computed once per Update.
type Quantity struct {
	system    *chem.System
	reactions reaction.System
	model     activity.Model

	state *chem.State
	t     float64
	a     *activity.Result
	r     *reaction.Rates
}

// NewQuantity evaluates species and element quantities of system. reactions
// and model may be nil, in which case r[...], a[...] and pH are unavailable.
func NewQuantity(system *chem.System, reactions reaction.System, model activity.Model) *Quantity {
	return &Quantity{system: system, reactions: reactions, model: model}
}

// Update sets the state and time that subsequent Values refer to.
func (q *Quantity) Update(state *chem.State, t float64) {
	q.state = state
	q.t = t
	q.a = nil
	q.r = nil
}

func (q *Quantity) Value(e Expr) (float64, error) {
	if q.state == nil {
		return 0, fmt.Errorf("%w: no state", ErrUnavailable)
	}
	def, ok := quantities[e.Name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown quantity %q", ErrSyntax, e.Name)
	}
	if len(e.Qualifiers) < def.qualifiers {
		return 0, fmt.Errorf("%w: %q needs %d qualifier(s)", ErrSyntax, e.Text, def.qualifiers)
	}
	v, err := def.eval(q, e)
	if err != nil {
		return 0, err
	}
	if e.Unit == "" || e.Unit == def.unit {
		return v, nil
	}
	return ConvertUnit(v, def.unit, e.Unit)
}

// Eval parses and evaluates text.
func (q *Quantity) Eval(text string) (float64, error) {
	e, err := ParseQuantity(text)
	if err != nil {
		return 0, err
	}
	return q.Value(e)
}

func (q *Quantity) speciesAmount(e Expr) (float64, error) {
	return q.state.SpeciesAmount(e.Qualifiers[0])
}

func (q *Quantity) elementAmount(e Expr) (float64, error) {
	j, err := q.system.IndexElement(e.Qualifiers[0])
	if err != nil {
		return 0, err
	}
	phase := ""
	if len(e.Qualifiers) > 1 {
		phase = e.Qualifiers[1]
	}
	w := q.system.FormulaMatrix()
	n := q.state.SpeciesAmounts()
	sum := 0.0
	for i := range n {
		if phase != "" && q.system.Species(i).Phase != phase {
			continue
		}
		sum += w.At(j, i) * n[i]
	}
	return sum, nil
}

func (q *Quantity) molality(e Expr) (float64, error) {
	nw, err := q.state.SpeciesAmount(Water)
	if err != nil {
		return 0, fmt.Errorf("%w: molality needs %s: %w", ErrUnavailable, Water, err)
	}
	ni, err := q.state.SpeciesAmount(e.Qualifiers[0])
	if err != nil {
		return 0, err
	}
	return ni / (nw * activity.WaterMolarMass), nil
}

func (q *Quantity) rate(e Expr) (float64, error) {
	if q.reactions == nil {
		return 0, fmt.Errorf("%w: no reactions for %q", ErrUnavailable, e.Text)
	}
	j, err := q.reactions.IndexReaction(e.Qualifiers[0])
	if err != nil {
		return 0, err
	}
	r, err := q.rates()
	if err != nil {
		return 0, err
	}
	return r.Value[j], nil
}

func (q *Quantity) activity(e Expr) (float64, error) {
	i, err := q.system.IndexSpecies(e.Qualifiers[0])
	if err != nil {
		return 0, err
	}
	a, err := q.activities()
	if err != nil {
		return 0, err
	}
	return a.Value[i], nil
}

func (q *Quantity) pH(e Expr) (float64, error) {
	i, err := q.system.IndexSpecies("H+")
	if err != nil {
		return 0, fmt.Errorf("%w: pH needs H+: %w", ErrUnavailable, err)
	}
	a, err := q.activities()
	if err != nil {
		return 0, err
	}
	return -math.Log10(a.Value[i]), nil
}

func (q *Quantity) activities() (*activity.Result, error) {
	if q.a != nil {
		return q.a, nil
	}
	if q.model == nil {
		return nil, fmt.Errorf("%w: no activity model", ErrUnavailable)
	}
	a, err := q.model.Activities(q.state.Temperature(), q.state.Pressure(), q.state.SpeciesAmounts())
	if err != nil {
		return nil, err
	}
	q.a = &a
	return q.a, nil
}

func (q *Quantity) rates() (*reaction.Rates, error) {
	if q.r != nil {
		return q.r, nil
	}
	a, err := q.activities()
	if err != nil {
		return nil, err
	}
	r, err := q.reactions.Rates(q.state.Temperature(), q.state.Pressure(), q.state.SpeciesAmounts(), *a)
	if err != nil {
		return nil, err
	}
	q.r = &r
	return q.r, nil
}
