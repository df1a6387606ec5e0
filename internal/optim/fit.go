package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/experiment"
	"github.com/san-kum/kinsim/internal/storage"
)

// RateObjective returns the sum of squared differences between column of
// target and the same column simulated from base, with the forward rate
// constant of each reaction named in params replaced. Simulated values are
// linearly interpolated at the target times.
func RateObjective(base *config.Config, target *storage.Table, column string) (Objective, error) {
	times, err := target.Column("t")
	if err != nil {
		return nil, err
	}
	want, err := target.Column(column)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := base.Clone()
		cfg.Output.Terminal = false
		cfg.Output.File = ""
		cfg.Output.Quantities = []string{"t", column}
		for name, k := range params {
			i := reactionIndex(cfg, name)
			if i < 0 {
				return 0, fmt.Errorf("optim: no reaction %q", name)
			}
			cfg.Reactions[i].Forward = k
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(); err != nil {
			return 0, err
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return 0, err
		}

		simT := make([]float64, len(res.Rows))
		simV := make([]float64, len(res.Rows))
		for i, row := range res.Rows {
			simT[i], simV[i] = row[0], row[1]
		}
		sse := 0.0
		for i, t := range times {
			d := interpolate(simT, simV, t) - want[i]
			sse += d * d
		}
		if math.IsNaN(sse) {
			return 0, fmt.Errorf("optim: objective is NaN for %v", params)
		}
		return sse, nil
	}, nil
}

func reactionIndex(cfg *config.Config, name string) int {
	for i, r := range cfg.Reactions {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// interpolate evaluates the piecewise linear function through (xs, ys) at
// x, clamping outside the sampled range. xs must be ascending.
func interpolate(xs, ys []float64, x float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	j := sort.SearchFloat64s(xs, x)
	switch {
	case j == 0:
		return ys[0]
	case j == len(xs):
		return ys[len(ys)-1]
	}
	x0, x1 := xs[j-1], xs[j]
	if x1 == x0 {
		return ys[j]
	}
	return ys[j-1] + (ys[j]-ys[j-1])*(x-x0)/(x1-x0)
}
