package sim

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// UserConfig is the TOML configuration consumed by the headless runner. Any
// field absent from the file keeps its DefaultUserConfig value; a field set
// in the file, zero included, replaces it.
type UserConfig struct {
	Simulation struct {
		// Seed is the base PRNG seed; run i uses Seed + i*SeedStep.
		Seed int64
		// SeedStep is the seed increment between runs.
		SeedStep int64
		// Runs is how many simulations to execute.
		Runs int
		// MaxTicks aborts a run that has not ended after this many ticks.
		MaxTicks int
		// Verbose enables per-tick sim log entries.
		Verbose bool
	}
	Files struct {
		// Map is the path of a map save file. Empty generates a random map.
		Map string
		// Agents is the path of an agent roster file. Empty uses the
		// Agents counts below.
		Agents string
	}
	World struct {
		// Width and Height size the generated map when no map file is set.
		Width  int
		Height int
	}
	Agents struct {
		// Guards and Intruders populate the world when no roster file is
		// set, using the default strategies.
		Guards    int
		Intruders int
	}
}

// DefaultUserConfig returns the configuration used when no file exists.
func DefaultUserConfig() UserConfig {
	c := UserConfig{}
	c.Simulation.Seed = 1
	c.Simulation.SeedStep = 1
	c.Simulation.Runs = 1
	c.Simulation.MaxTicks = 20 * 60 * TickRate // 20 simulated minutes
	c.World.Width = 80
	c.World.Height = 50
	c.Agents.Guards = 3
	c.Agents.Intruders = 1
	return c
}

// ReadUserConfig loads a TOML config file, writing out the defaults first if
// the file does not exist yet.
func ReadUserConfig(path string) (UserConfig, error) {
	c := DefaultUserConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return c, fmt.Errorf("create default config: %w", err)
		}
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}
