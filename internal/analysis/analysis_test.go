package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/kinsim/internal/storage"
)

func decayTable(k float64, n int, dt float64) *storage.Table {
	tb := &storage.Table{Columns: []string{"t", "n[A]", "n[B]"}}
	for i := 0; i <= n; i++ {
		t := float64(i) * dt
		a := math.Exp(-k * t)
		tb.Rows = append(tb.Rows, []float64{t, a, 1 - a})
	}
	return tb
}

func TestCrossings(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	values := []float64{0, 2, 0, 2, 0}

	tests := []struct {
		name string
		dir  Direction
		want []float64
	}{
		{"either", Either, []float64{0.5, 1.5, 2.5, 3.5}},
		{"rising", Rising, []float64{0.5, 2.5}},
		{"falling", Falling, []float64{1.5, 3.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Crossings(times, values, 1, tt.dir)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("crossing %d = %g, want %g", i, got[i], tt.want[i])
				}
			}
		})
	}

	if got := Crossings(times, values, 5, Either); len(got) != 0 {
		t.Errorf("expected no crossings, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	k := 0.1
	s, err := Summarize(decayTable(k, 1000, 0.05), "n[A]")
	if err != nil {
		t.Fatal(err)
	}
	if s.Initial != 1 || s.Max != 1 {
		t.Errorf("initial %g max %g", s.Initial, s.Max)
	}
	if want := math.Ln2 / k; math.Abs(s.HalfLife-want) > 1e-3 {
		t.Errorf("half-life = %g, want %g", s.HalfLife, want)
	}
	if s.Settle <= s.HalfLife || s.Settle > 50 {
		t.Errorf("settle time %g", s.Settle)
	}

	b, err := Summarize(decayTable(k, 100, 0.1), "n[B]")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(b.HalfLife) {
		t.Errorf("product half-life = %g, want NaN", b.HalfLife)
	}

	if _, err := Summarize(decayTable(k, 10, 1), "n[C]"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestPortrait(t *testing.T) {
	p, err := NewPortrait(decayTable(1, 50, 0.1), "n[A]", "n[B]")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Points) != 51 {
		t.Fatalf("points = %d", len(p.Points))
	}

	out := p.ASCII(40, 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 13 {
		t.Fatalf("lines = %d, want 13", len(lines))
	}
	for _, want := range []string{"o", "*", "n[A] ∈", "n[B] ∈"} {
		if !strings.Contains(out, want) {
			t.Errorf("portrait missing %q", want)
		}
	}

	if _, err := NewPortrait(decayTable(1, 5, 1), "n[A]", "x"); err == nil {
		t.Error("expected error for unknown column")
	}
}
