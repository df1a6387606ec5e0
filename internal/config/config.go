// Package config loads kinetic path runs from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/kinsim/internal/kinetics"
	"github.com/san-kum/kinsim/internal/logging"
	"github.com/san-kum/kinsim/internal/ode"
	"github.com/san-kum/kinsim/internal/output"
	"gopkg.in/yaml.v3"
)

// ErrInvalid indicates a configuration that cannot describe a run.
var ErrInvalid = errors.New("config: invalid configuration")

const (
	DefaultDuration    = 10.0
	DefaultTemperature = 298.15
	DefaultPressure    = 1e5
	DefaultActivity    = "amounts"
	DefaultSolver      = "ideal"
	DefaultLogLevel    = "info"
)

type Config struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Elements    []ElementConfig   `yaml:"elements"`
	Species     []SpeciesConfig   `yaml:"species"`
	Reactions   []ReactionConfig  `yaml:"reactions"`
	Kinetic     []string          `yaml:"kinetic"`
	// Partition is the textual form "kinetic = A B; equilibrium = C" and
	// takes precedence over Kinetic when set.
	Partition   string            `yaml:"partition,omitempty"`
	Activity    string            `yaml:"activity"`
	Equilibrium EquilibriumConfig `yaml:"equilibrium"`
	Initial     InitialConfig     `yaml:"initial"`

	Start          float64      `yaml:"start"`
	Duration       float64      `yaml:"duration"`
	Integrator     ode.Options  `yaml:"integrator"`
	DepletionFloor float64      `yaml:"depletion_floor"`
	Output         OutputConfig `yaml:"output"`
	Sweep          SweepConfig  `yaml:"sweep,omitempty"`
	LogLevel       string       `yaml:"log_level"`
}

type ElementConfig struct {
	Name      string  `yaml:"name"`
	MolarMass float64 `yaml:"molar_mass,omitempty"`
}

type SpeciesConfig struct {
	Name    string             `yaml:"name"`
	Formula map[string]float64 `yaml:"formula"`
	G0      float64            `yaml:"g0,omitempty"`
	Charge  float64            `yaml:"charge,omitempty"`
	Phase   string             `yaml:"phase,omitempty"`
}

type ReactionConfig struct {
	Name             string  `yaml:"name,omitempty"`
	Equation         string  `yaml:"equation"`
	Forward          float64 `yaml:"forward"`
	Backward         float64 `yaml:"backward,omitempty"`
	ActivationEnergy float64 `yaml:"activation_energy,omitempty"`
}

type EquilibriumConfig struct {
	Solver        string  `yaml:"solver"`
	Tolerance     float64 `yaml:"tolerance,omitempty"`
	MaxIterations int     `yaml:"max_iterations,omitempty"`
}

type InitialConfig struct {
	Temperature float64            `yaml:"temperature"`
	Pressure    float64            `yaml:"pressure"`
	Amounts     map[string]float64 `yaml:"amounts"`
}

type OutputConfig struct {
	Quantities []string `yaml:"quantities"`
	Header     []string `yaml:"header,omitempty"`
	Terminal   bool     `yaml:"terminal"`
	File       string   `yaml:"file,omitempty"`
}

type SweepConfig struct {
	Temperatures []float64 `yaml:"temperatures"`
	Workers      int       `yaml:"workers"`
}

// DefaultConfig returns the run settings shared by every configuration. It
// describes no chemical system.
func DefaultConfig() *Config {
	return &Config{
		Activity:       DefaultActivity,
		Equilibrium:    EquilibriumConfig{Solver: DefaultSolver},
		Initial:        InitialConfig{Temperature: DefaultTemperature, Pressure: DefaultPressure},
		Duration:       DefaultDuration,
		Integrator:     ode.DefaultOptions(),
		DepletionFloor: kinetics.DefaultDepletionFloor,
		LogLevel:       DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// KineticOptions returns the path options described by c.
func (c *Config) KineticOptions() kinetics.Options {
	return kinetics.Options{ODE: c.Integrator, DepletionFloor: c.DepletionFloor}
}

// Quantities returns the output columns, defaulting to time and the amount
// of every species.
func (c *Config) Quantities() []string {
	if len(c.Output.Quantities) > 0 {
		return c.Output.Quantities
	}
	q := []string{"t"}
	for _, s := range c.Species {
		q = append(q, fmt.Sprintf("n[%s]", s.Name))
	}
	return q
}

// Validate checks what can be checked without building the chemical system.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Elements) == 0 {
		add("no elements")
	}
	if len(c.Species) == 0 {
		add("no species")
	}
	if len(c.Reactions) == 0 {
		add("no reactions")
	}
	for i, r := range c.Reactions {
		if r.Equation == "" {
			add("reaction %d has no equation", i+1)
		}
		if r.Forward < 0 || r.Backward < 0 {
			add("reaction %d has a negative rate constant", i+1)
		}
	}
	for name, n := range c.Initial.Amounts {
		if n < 0 {
			add("initial amount of %s is negative", name)
		}
	}
	if c.Initial.Temperature <= 0 {
		add("temperature must be positive, got %g", c.Initial.Temperature)
	}
	if c.Initial.Pressure <= 0 {
		add("pressure must be positive, got %g", c.Initial.Pressure)
	}
	if c.Duration <= 0 {
		add("duration must be positive, got %g", c.Duration)
	}
	if err := c.KineticOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, q := range c.Quantities() {
		for _, word := range output.SplitList(q) {
			if _, err := output.ParseQuantity(word); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, T := range c.Sweep.Temperatures {
		if T <= 0 {
			add("sweep temperature must be positive, got %g", T)
		}
	}
	if c.Sweep.Workers < 0 {
		add("sweep workers must be non-negative, got %d", c.Sweep.Workers)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Elements = append([]ElementConfig(nil), c.Elements...)
	out.Species = make([]SpeciesConfig, len(c.Species))
	for i, s := range c.Species {
		s.Formula = cloneMap(s.Formula)
		out.Species[i] = s
	}
	out.Reactions = append([]ReactionConfig(nil), c.Reactions...)
	out.Kinetic = append([]string(nil), c.Kinetic...)
	out.Initial.Amounts = cloneMap(c.Initial.Amounts)
	out.Output.Quantities = append([]string(nil), c.Output.Quantities...)
	out.Output.Header = append([]string(nil), c.Output.Header...)
	out.Sweep.Temperatures = append([]float64(nil), c.Sweep.Temperatures...)
	return &out
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
