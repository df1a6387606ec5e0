// Package export renders stored runs as standalone SVG charts.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/san-kum/kinsim/internal/storage"
)

var ErrNoData = errors.New("export: fewer than two points to plot")

// Palette cycles through series colors.
var Palette = []string{"#5fd7d7", "#ff87ff", "#87ff5f", "#ffd700", "#ff5f5f", "#8787ff"}

type Point struct{ X, Y float64 }

// Series is one polyline of a chart.
type Series struct {
	Name   string
	Points []Point
	Color  string
}

// Chart is a set of series drawn on shared axes.
type Chart struct {
	Width, Height int
	Title         string
	Series        []Series
}

// FromTable builds a chart of the named columns against column x.
func FromTable(table *storage.Table, x string, columns ...string) (*Chart, error) {
	xs, err := table.Column(x)
	if err != nil {
		return nil, err
	}
	c := &Chart{Width: 800, Height: 400}
	for i, name := range columns {
		ys, err := table.Column(name)
		if err != nil {
			return nil, err
		}
		pts := make([]Point, len(xs))
		for k := range xs {
			pts[k] = Point{xs[k], ys[k]}
		}
		c.Series = append(c.Series, Series{Name: name, Points: pts, Color: Palette[i%len(Palette)]})
	}
	return c, nil
}

type bounds struct{ minX, maxX, minY, maxY float64 }

func (c *Chart) bounds() (bounds, error) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	n := 0
	for _, s := range c.Series {
		for _, p := range s.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				continue
			}
			b.minX, b.maxX = math.Min(b.minX, p.X), math.Max(b.maxX, p.X)
			b.minY, b.maxY = math.Min(b.minY, p.Y), math.Max(b.maxY, p.Y)
			n++
		}
	}
	if n < 2 {
		return b, ErrNoData
	}

	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.05
	b.maxY += rangeY * 0.05
	if b.maxX == b.minX {
		b.maxX = b.minX + rangeX
	}
	return b, nil
}

// WriteSVG renders the chart. Non-finite points break the polyline.
func (c *Chart) WriteSVG(w io.Writer) error {
	b, err := c.bounds()
	if err != nil {
		return err
	}
	width, height := float64(c.Width), float64(c.Height)
	sx := func(x float64) float64 { return (x - b.minX) / (b.maxX - b.minX) * width }
	sy := func(y float64) float64 { return height - (y-b.minY)/(b.maxY-b.minY)*height }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, c.Width, c.Height, c.Width, c.Height)
	if c.Title != "" {
		fmt.Fprintf(&sb, `<text x="8" y="18" fill="#bcbcbc" font-family="monospace" font-size="14">%s</text>
`, escape(c.Title))
	}

	for i, s := range c.Series {
		var d strings.Builder
		move := true
		for _, p := range s.Points {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				move = true
				continue
			}
			cmd := " L"
			if move {
				cmd = " M"
				move = false
			}
			fmt.Fprintf(&d, "%s%.1f,%.1f", cmd, sx(p.X), sy(p.Y))
		}
		if d.Len() == 0 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, s.Color, strings.TrimSpace(d.String()))
		if s.Name != "" {
			fmt.Fprintf(&sb, `<text x="%.0f" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, width-140, 36+16*i, s.Color, escape(s.Name))
		}
	}

	sb.WriteString("</svg>\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

// SaveSVG writes the chart to path.
func (c *Chart) SaveSVG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.WriteSVG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
