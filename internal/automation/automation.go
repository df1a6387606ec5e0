// Package automation runs scripted sequences of kinetic path runs described
// in YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/experiment"
	"github.com/san-kum/kinsim/internal/logging"
	"github.com/san-kum/kinsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep is one run. Exactly one of Preset and Config names the base
// configuration; the remaining fields override it when set.
type ScenarioStep struct {
	Preset      string             `yaml:"preset"`
	Config      string             `yaml:"config"`
	Name        string             `yaml:"name"`
	Duration    float64            `yaml:"duration"`
	Temperature float64            `yaml:"temperature"`
	Method      string             `yaml:"method"`
	Amounts     map[string]float64 `yaml:"amounts"`
	// Continue starts the step from the final amounts and end time of the
	// previous step.
	Continue bool `yaml:"continue"`
	Save     bool `yaml:"save"`
}

// StepResult pairs a step's result with its stored run ID, if saved.
type StepResult struct {
	Step   int
	RunID  string
	Result *experiment.Result
}

// LoadScenario loads a scenario from a YAML file. Relative config paths in
// its steps resolve against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

// Runner executes scenarios, storing saved steps in store.
type Runner struct {
	store    *storage.Store
	registry *experiment.Registry
	logger   *slog.Logger
}

func NewRunner(store *storage.Store) *Runner {
	return &Runner{store: store, registry: experiment.NewRegistry(), logger: logging.NewNop()}
}

func (r *Runner) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

func (r *Runner) SetRegistry(reg *experiment.Registry) { r.registry = reg }

// Run executes all steps in order and stops at the first failure, returning
// the results of the steps that completed.
func (r *Runner) Run(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	if len(scenario.Steps) == 0 {
		return nil, errors.New("automation: scenario has no steps")
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	var prev *experiment.Result
	var prevEnd float64
	for i, step := range scenario.Steps {
		cfg, err := scenario.resolve(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Continue {
			if prev == nil {
				return results, fmt.Errorf("step %d: continue without a previous step", i+1)
			}
			cfg.Initial.Amounts = maps.Clone(prev.Final)
			cfg.Start = prevEnd
			if step.Temperature == 0 {
				cfg.Initial.Temperature = prev.Temperature
			}
		}
		for name, n := range step.Amounts {
			if cfg.Initial.Amounts == nil {
				cfg.Initial.Amounts = map[string]float64{}
			}
			cfg.Initial.Amounts[name] = n
		}

		r.logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "run", cfg.Name)

		exp := experiment.New(cfg)
		exp.SetRegistry(r.registry)
		exp.SetLogger(r.logger)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: i + 1, Result: res}
		if step.Save && r.store != nil {
			id, err := r.store.Save(exp.Metadata(res), storage.Table{Columns: res.Columns, Rows: res.Rows})
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
		prev, prevEnd = res, cfg.Start+cfg.Duration
	}

	return results, nil
}

func (s *Scenario) resolve(step ScenarioStep) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case step.Preset != "" && step.Config != "":
		return nil, errors.New("both preset and config given")
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", step.Preset)
		}
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		return nil, errors.New("neither preset nor config given")
	}

	cfg = cfg.Clone()
	cfg.Output.Terminal = false
	if step.Name != "" {
		cfg.Name = step.Name
	}
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	if step.Temperature > 0 {
		cfg.Initial.Temperature = step.Temperature
	}
	if step.Method != "" {
		cfg.Integrator.Method = step.Method
	}
	return cfg, nil
}
