// Package output resolves named quantities of a chemical state and writes
// them as fixed-width columns, once per committed integration step.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/kinsim/internal/activity"
	"github.com/san-kum/kinsim/internal/chem"
	"github.com/san-kum/kinsim/internal/reaction"
)

// ColumnWidth is the width of every output column.
const ColumnWidth = 20

// ErrClosed indicates an Update on an output that is not open.
var ErrClosed = errors.New("output: not open")

// Output records quantities of a chemical state over time and optionally
// writes them to a terminal and a file.
type Output struct {
	quantity *Quantity
	data     []Expr
	header   []string

	terminal io.Writer
	filename string
	file     *os.File
	fw       *bufio.Writer

	open bool
	rows [][]float64
}

func New(system *chem.System, reactions reaction.System, model activity.Model) *Output {
	return &Output{quantity: NewQuantity(system, reactions, model)}
}

// Data sets the quantities to output. Each argument may hold several
// expressions separated by semicolons or whitespace.
func (o *Output) Data(exprs ...string) error {
	var data []Expr
	for _, text := range exprs {
		for _, word := range SplitList(text) {
			e, err := ParseQuantity(word)
			if err != nil {
				return err
			}
			if _, ok := quantities[e.Name]; !ok {
				return fmt.Errorf("%w: unknown quantity %q", ErrSyntax, e.Name)
			}
			data = append(data, e)
		}
	}
	o.data = data
	return nil
}

// Header sets the column titles. Missing titles default to the expressions.
func (o *Output) Header(names ...string) {
	var header []string
	for _, text := range names {
		header = append(header, SplitList(text)...)
	}
	o.header = header
}

func (o *Output) Terminal(w io.Writer) { o.terminal = w }
func (o *Output) File(path string)     { o.filename = path }

// Enabled reports whether the output writes anywhere.
func (o *Output) Enabled() bool { return o.terminal != nil || o.filename != "" }

// Columns returns the column titles.
func (o *Output) Columns() []string {
	cols := make([]string, len(o.data))
	for i, e := range o.data {
		if i < len(o.header) {
			cols[i] = o.header[i]
		} else {
			cols[i] = e.Text
		}
	}
	return cols
}

// Rows returns the values recorded since Open.
func (o *Output) Rows() [][]float64 { return o.rows }

// Open truncates the recorded rows, creates the output file and writes the
// header line.
func (o *Output) Open() error {
	if err := o.Close(); err != nil {
		return err
	}
	if len(o.data) == 0 {
		return fmt.Errorf("%w: no quantities to output", ErrSyntax)
	}
	if o.filename != "" {
		f, err := os.Create(o.filename)
		if err != nil {
			return err
		}
		o.file = f
		o.fw = bufio.NewWriter(f)
	}
	o.rows = nil
	o.open = true

	line := formatLine(o.Columns(), func(s string) string { return s })
	return o.write(line)
}

// Update evaluates every quantity at state and time t and writes one line.
func (o *Output) Update(state *chem.State, t float64) error {
	if !o.open {
		return ErrClosed
	}
	o.quantity.Update(state, t)
	row := make([]float64, len(o.data))
	for i, e := range o.data {
		v, err := o.quantity.Value(e)
		if err != nil {
			return fmt.Errorf("output: %s: %w", e.Text, err)
		}
		row[i] = v
	}
	o.rows = append(o.rows, row)
	return o.write(formatLine(row, func(v float64) string { return fmt.Sprintf("%.6g", v) }))
}

// OnStep lets an Output observe a kinetic path.
func (o *Output) OnStep(state *chem.State, t float64) error {
	return o.Update(state, t)
}

// Close flushes and closes the output file. The recorded rows are kept.
func (o *Output) Close() error {
	o.open = false
	if o.file == nil {
		return nil
	}
	err := o.fw.Flush()
	if cerr := o.file.Close(); err == nil {
		err = cerr
	}
	o.file, o.fw = nil, nil
	return err
}

func (o *Output) write(line string) error {
	if o.fw != nil {
		if _, err := o.fw.WriteString(line); err != nil {
			return err
		}
	}
	if o.terminal != nil {
		if _, err := io.WriteString(o.terminal, line); err != nil {
			return err
		}
	}
	return nil
}

func formatLine[T any](values []T, format func(T) string) string {
	var sb strings.Builder
	for _, v := range values {
		fmt.Fprintf(&sb, "%-*s", ColumnWidth, format(v))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// SplitList splits a list of expressions on semicolons and whitespace.
func SplitList(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}
