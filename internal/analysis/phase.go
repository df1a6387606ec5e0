package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/kinsim/internal/storage"
)

type Point struct{ X, Y float64 }

// Portrait holds two columns of a run plotted against each other, for
// example n[B] against n[A].
type Portrait struct {
	XName, YName string
	Points       []Point
}

func NewPortrait(table *storage.Table, x, y string) (*Portrait, error) {
	xs, err := table.Column(x)
	if err != nil {
		return nil, err
	}
	ys, err := table.Column(y)
	if err != nil {
		return nil, err
	}
	p := &Portrait{XName: x, YName: y, Points: make([]Point, 0, len(xs))}
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			p.Points = append(p.Points, Point{xs[i], ys[i]})
		}
	}
	return p, nil
}

// ASCII renders the portrait on a width×height character grid. The first
// point is drawn as 'o' and the last as '*'.
func (p *Portrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	loX, loY := minX, minY
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	loX -= rangeX * 0.05
	loY -= rangeY * 0.05
	rangeX *= 1.1
	rangeY *= 1.1

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	cell := func(pt Point) (int, int) {
		col := int((pt.X - loX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-loY)/rangeY*float64(height-1))
		return row, col
	}
	for _, pt := range p.Points {
		row, col := cell(pt)
		canvas[row][col] = '•'
	}
	row, col := cell(p.Points[0])
	canvas[row][col] = 'o'
	row, col = cell(p.Points[len(p.Points)-1])
	canvas[row][col] = '*'

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ∈ [%.4g, %.4g]\n", p.YName, minY, maxY)
	for _, r := range canvas {
		sb.WriteString("│")
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	sb.WriteString("└" + strings.Repeat("─", width) + "\n")
	fmt.Fprintf(&sb, "%s ∈ [%.4g, %.4g]\n", p.XName, minX, maxX)
	return sb.String()
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
