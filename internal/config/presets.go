package config

import "sort"

func isomers(names ...string) []SpeciesConfig {
	species := make([]SpeciesConfig, len(names))
	for i, name := range names {
		species[i] = SpeciesConfig{Name: name, Formula: map[string]float64{"X": 1}}
	}
	return species
}

var presets = map[string]func() *Config{
	// first order decay of a kinetic species into an equilibrium product
	"decay": func() *Config {
		c := DefaultConfig()
		c.Name = "decay"
		c.Description = "A -> B, k = 0.1/s, B at equilibrium"
		c.Elements = []ElementConfig{{Name: "X"}}
		c.Species = isomers("A", "B")
		c.Reactions = []ReactionConfig{{Name: "decay", Equation: "A -> B", Forward: 0.1, ActivationEnergy: 50e3}}
		c.Kinetic = []string{"A"}
		c.Equilibrium.Solver = "linear"
		c.Initial.Amounts = map[string]float64{"A": 1}
		c.Output.Quantities = []string{"t", "n[A]", "n[B]", "r[decay]"}
		return c
	},
	"isomerization": func() *Config {
		c := DefaultConfig()
		c.Name = "isomerization"
		c.Description = "A -> B with B and C in equilibrium"
		c.Elements = []ElementConfig{{Name: "X"}}
		c.Species = isomers("A", "B", "C")
		c.Species[2].G0 = -2000
		c.Reactions = []ReactionConfig{{Name: "isomerization", Equation: "A -> B", Forward: 0.5}}
		c.Kinetic = []string{"A"}
		c.Equilibrium.Solver = "ideal"
		c.Initial.Amounts = map[string]float64{"A": 1}
		c.Output.Quantities = []string{"t", "n[A]", "n[B]", "n[C]"}
		return c
	},
	"reversible": func() *Config {
		c := DefaultConfig()
		c.Name = "reversible"
		c.Description = "A = B with both species kinetic"
		c.Elements = []ElementConfig{{Name: "X"}}
		c.Species = isomers("A", "B")
		c.Reactions = []ReactionConfig{{Name: "exchange", Equation: "A = B", Forward: 1, Backward: 0.5}}
		c.Kinetic = []string{"A", "B"}
		c.Equilibrium.Solver = "linear"
		c.Initial.Amounts = map[string]float64{"A": 1}
		c.Output.Quantities = []string{"t", "n[A]", "n[B]", "r[exchange]"}
		return c
	},
	"chain": func() *Config {
		c := DefaultConfig()
		c.Name = "chain"
		c.Description = "A -> B -> C with C at equilibrium"
		c.Elements = []ElementConfig{{Name: "X"}}
		c.Species = isomers("A", "B", "C")
		c.Reactions = []ReactionConfig{
			{Name: "first", Equation: "A -> B", Forward: 0.5},
			{Name: "second", Equation: "B -> C", Forward: 0.2},
		}
		c.Kinetic = []string{"A", "B"}
		c.Equilibrium.Solver = "linear"
		c.Initial.Amounts = map[string]float64{"A": 1}
		c.Duration = 20
		c.Output.Quantities = []string{"t", "n[A]", "n[B]", "n[C]"}
		return c
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
