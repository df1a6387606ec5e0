package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs one configuration at several temperatures in parallel. Each
// member builds its own system, state and path.
type Ensemble struct {
	cfg          *config.Config
	temperatures []float64
	workers      int
	registry     *Registry
	logger       *slog.Logger
}

func NewEnsemble(cfg *config.Config, temperatures []float64) *Ensemble {
	return &Ensemble{
		cfg:          cfg,
		temperatures: temperatures,
		workers:      runtime.NumCPU(),
		registry:     NewRegistry(),
		logger:       logging.NewNop(),
	}
}

// SetWorkers bounds the number of members running at once; n <= 0 means
// one per CPU.
func (e *Ensemble) SetWorkers(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	e.workers = n
}

func (e *Ensemble) SetRegistry(r *Registry) { e.registry = r }

func (e *Ensemble) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Run returns one result per temperature, in order. The first failure
// cancels the members still running.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	if len(e.temperatures) == 0 {
		return nil, fmt.Errorf("experiment: ensemble has no temperatures")
	}

	results := make([]*Result, len(e.temperatures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, T := range e.temperatures {
		g.Go(func() error {
			cfg := e.cfg.Clone()
			cfg.Name = fmt.Sprintf("%s_%gK", e.cfg.Name, T)
			cfg.Initial.Temperature = T
			cfg.Output.Terminal = false
			cfg.Output.File = ""

			exp := New(cfg)
			exp.SetRegistry(e.registry)
			exp.SetLogger(e.logger)
			if err := exp.Setup(); err != nil {
				return fmt.Errorf("T=%g: %w", T, err)
			}
			res, err := exp.Run(gctx)
			if err != nil {
				return fmt.Errorf("T=%g: %w", T, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
