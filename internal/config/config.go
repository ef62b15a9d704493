// YAML config loader with CUE validation integration
package config

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// WorldConfig defines the extent of the simulation plane.
type WorldConfig struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	DroneRadius float64 `yaml:"drone_radius"`
}

// SimConfig holds the fixed-timestep and history parameters.
type SimConfig struct {
	DT               float64 `yaml:"dt"`
	HistoryCapacity  int     `yaml:"history_capacity"`
	JumpBackTicks    int     `yaml:"jump_back_ticks"`
	ArrivalThreshold float64 `yaml:"arrival_threshold"`
	FormationSpacing float64 `yaml:"formation_spacing"`
}

// InterceptConfig tunes the predictive intercept planner.
type InterceptConfig struct {
	HorizonS    float64 `yaml:"horizon_s"`
	StepS       float64 `yaml:"step_s"`
	ReplanDrift float64 `yaml:"replan_drift"`
}

// TailConfig tunes the standoff tail controller.
type TailConfig struct {
	DeadZone float64 `yaml:"dead_zone"`
	Standoff float64 `yaml:"standoff"`
}

// Fleet defines a block of friendly drones laid out on a grid at startup.
type Fleet struct {
	Name    string  `yaml:"name"`
	Count   int     `yaml:"count"`
	Columns int     `yaml:"columns"`
	Spacing float64 `yaml:"spacing"`
	OriginX float64 `yaml:"origin_x"`
	OriginY float64 `yaml:"origin_y"`
	Speed   float64 `yaml:"speed"`
	BaseID  string  `yaml:"base_id"`
}

// BaseSpec defines a fixed base installation.
type BaseSpec struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Shape string  `yaml:"shape"`
}

// HostileSpec defines one hostile drone and its motion pattern.
type HostileSpec struct {
	ID      string  `yaml:"id"`
	Pattern string  `yaml:"pattern"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Radius  float64 `yaml:"radius"`
	Speed   float64 `yaml:"speed"`
	Dir     float64 `yaml:"dir"`
}

// Config is the root configuration for the simulated world.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Sim       SimConfig       `yaml:"sim"`
	Intercept InterceptConfig `yaml:"intercept"`
	Tail      TailConfig      `yaml:"tail"`
	Fleets    []Fleet         `yaml:"fleets"`
	Bases     []BaseSpec      `yaml:"bases"`
	Hostiles  []HostileSpec   `yaml:"hostiles"`
}

// Load loads YAML config and validates it against a CUE schema
func Load(configPath, cueSchemaPath string) (*Config, error) {
	// Validate with CUE first
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	slog.Info("configuration loaded",
		"path", configPath,
		"fleets", len(cfg.Fleets),
		"bases", len(cfg.Bases),
		"hostiles", len(cfg.Hostiles))

	return &cfg, nil
}

// ApplyDefaults fills zero values with the engine defaults. Explicit
// zero is not distinguishable from absent; every tunable here has a
// nonzero working value.
func (c *Config) ApplyDefaults() {
	if c.World.Width == 0 {
		c.World.Width = 1000
	}
	if c.World.Height == 0 {
		c.World.Height = 1000
	}
	if c.World.DroneRadius == 0 {
		c.World.DroneRadius = 10
	}
	if c.Sim.DT == 0 {
		c.Sim.DT = 0.02
	}
	if c.Sim.HistoryCapacity == 0 {
		c.Sim.HistoryCapacity = 500
	}
	if c.Sim.JumpBackTicks == 0 {
		c.Sim.JumpBackTicks = 250
	}
	if c.Sim.ArrivalThreshold == 0 {
		c.Sim.ArrivalThreshold = 5
	}
	if c.Sim.FormationSpacing == 0 {
		c.Sim.FormationSpacing = 2 * c.World.DroneRadius
	}
	if c.Intercept.HorizonS == 0 {
		c.Intercept.HorizonS = 30
	}
	if c.Intercept.StepS == 0 {
		c.Intercept.StepS = 0.1
	}
	if c.Intercept.ReplanDrift == 0 {
		c.Intercept.ReplanDrift = 10
	}
	if c.Tail.DeadZone == 0 {
		c.Tail.DeadZone = 2
	}
	if c.Tail.Standoff == 0 {
		c.Tail.Standoff = 50
	}
	for i := range c.Fleets {
		f := &c.Fleets[i]
		if f.Count == 0 {
			f.Count = 12
		}
		if f.Columns == 0 {
			f.Columns = 4
		}
		if f.Spacing == 0 {
			f.Spacing = 80
		}
		if f.OriginX == 0 && f.OriginY == 0 {
			f.OriginX, f.OriginY = 200, 200
		}
		if f.Speed == 0 {
			f.Speed = 50
		}
	}
	for i := range c.Hostiles {
		h := &c.Hostiles[i]
		if h.Speed == 0 {
			h.Speed = 40
		}
		if h.Dir == 0 {
			h.Dir = 1
		}
		if h.Pattern == "circular" && h.Radius == 0 {
			h.Radius = 60
		}
	}
}
