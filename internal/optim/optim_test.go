package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/storage"
)

func TestGridSearch(t *testing.T) {
	g, err := NewGridSearch([]string{"x", "y"}, [][]float64{{-1, 0, 1, 2}, {0, 3, 5}})
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	params, best, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		calls++
		return (p["x"]-1)*(p["x"]-1) + (p["y"]-3)*(p["y"]-3), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 12 {
		t.Errorf("calls = %d, want 12", calls)
	}
	if params["x"] != 1 || params["y"] != 3 || best != 0 {
		t.Errorf("best %v at %v", best, params)
	}
}

func TestGridSearchErrors(t *testing.T) {
	if _, err := NewGridSearch([]string{"x"}, nil); err == nil {
		t.Error("expected error for mismatched ranges")
	}
	if _, err := NewGridSearch([]string{"x"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty range")
	}

	g, _ := NewGridSearch([]string{"x"}, [][]float64{{1, 2}})
	boom := errors.New("boom")
	if _, _, err := g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Search(ctx, func(context.Context, map[string]float64) (float64, error) {
		return 0, nil
	}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLogSpace(t *testing.T) {
	got := LogSpace(0.01, 1, 3)
	want := []float64{0.01, 0.1, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("LogSpace[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if got := LogSpace(5, 10, 1); len(got) != 1 || got[0] != 5 {
		t.Errorf("single point %v", got)
	}
}

func TestInterpolate(t *testing.T) {
	xs := []float64{0, 1, 3}
	ys := []float64{0, 2, 6}
	tests := []struct{ x, want float64 }{
		{-1, 0}, {0, 0}, {0.5, 1}, {2, 4}, {3, 6}, {4, 6},
	}
	for _, tt := range tests {
		if got := interpolate(xs, ys, tt.x); got != tt.want {
			t.Errorf("interpolate(%g) = %g, want %g", tt.x, got, tt.want)
		}
	}
}

func TestFitDecayRate(t *testing.T) {
	target := &storage.Table{Columns: []string{"t", "n[A]"}}
	for i := 0; i <= 20; i++ {
		tt := float64(i) * 0.5
		target.Rows = append(target.Rows, []float64{tt, math.Exp(-0.1 * tt)})
	}

	base := config.GetPreset("decay")
	objective, err := RateObjective(base, target, "n[A]")
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGridSearch([]string{"decay"}, [][]float64{{0.05, 0.08, 0.1, 0.12, 0.2}})
	if err != nil {
		t.Fatal(err)
	}
	params, sse, err := g.Search(context.Background(), objective)
	if err != nil {
		t.Fatal(err)
	}
	if params["decay"] != 0.1 {
		t.Errorf("fitted k = %v, want 0.1", params["decay"])
	}
	if sse > 1e-3 {
		t.Errorf("sse = %g", sse)
	}
	if base.Reactions[0].Forward != 0.1 {
		t.Error("base config was modified")
	}

	bad, _ := RateObjective(base, target, "n[A]")
	if _, err := bad(context.Background(), map[string]float64{"missing": 1}); err == nil {
		t.Error("expected error for unknown reaction")
	}
}
