package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineSpawn describes one engine mounted on a ship.
type EngineSpawn struct {
	Thrust float64 `yaml:"thrust"` // newtons
	DirX   float64 `yaml:"dir_x"`
	DirY   float64 `yaml:"dir_y"`
	Fuel   float64 `yaml:"fuel"`    // seconds of burn
	BurnMs int64   `yaml:"burn_ms"` // ignite at spawn for this long (0 = idle)
	Pulses int     `yaml:"pulses"`  // repeat the burn this many more times
}

// ShipSpawn describes one ship and its engines.
type ShipSpawn struct {
	Name    string        `yaml:"name"`
	X       float64       `yaml:"x"`
	Y       float64       `yaml:"y"`
	VX      float64       `yaml:"vx"`
	VY      float64       `yaml:"vy"`
	Mass    float64       `yaml:"mass"`
	Engines []EngineSpawn `yaml:"engines"`
}

// AsteroidSpawn describes a single asteroid, or a ring of Count asteroids
// spread evenly around (X, Y) at Spread distance.
type AsteroidSpawn struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	VX     float64 `yaml:"vx"`
	VY     float64 `yaml:"vy"`
	Radius float64 `yaml:"radius"`
	Count  int     `yaml:"count"`
	Spread float64 `yaml:"spread"`
}

// Scenario is the initial population of the simulated volume.
type Scenario struct {
	Name      string          `yaml:"name"`
	Ships     []ShipSpawn     `yaml:"ships"`
	Asteroids []AsteroidSpawn `yaml:"asteroids"`
}

// Count returns the number of entities the scenario spawns, engines included.
func (s *Scenario) Count() int {
	n := 0
	for _, sh := range s.Ships {
		n += 1 + len(sh.Engines)
	}
	for _, a := range s.Asteroids {
		n += max(a.Count, 1)
	}
	return n
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i := range s.Ships {
		sh := &s.Ships[i]
		if sh.Mass <= 0 {
			return nil, fmt.Errorf("ship %q: mass must be positive", sh.Name)
		}
		if sh.Name == "" {
			sh.Name = fmt.Sprintf("ship-%d", i)
		}
		for j, es := range sh.Engines {
			if es.Pulses < 0 || (es.Pulses > 0 && es.BurnMs <= 0) {
				return nil, fmt.Errorf("ship %q engine %d: pulses need a positive burn_ms", sh.Name, j)
			}
		}
	}
	for i, a := range s.Asteroids {
		if a.Count < 0 {
			return nil, fmt.Errorf("asteroid entry %d: negative count", i)
		}
	}
	return &s, nil
}
