// Command headless-run executes batches of surveillance simulations without
// a viewer and reports aggregate outcomes.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"

	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/sim"
	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/strategy"
)

type runResult struct {
	outcome  sim.Outcome
	timedOut bool
}

func main() {
	var (
		configPath = flag.String("config", "config.toml", "path of the TOML config file")
		runs       = flag.Int("runs", 0, "number of runs (overrides config)")
		maxTicks   = flag.Int("ticks", 0, "tick cap per run (overrides config)")
		seed       = flag.Int64("seed", 0, "base seed (overrides config)")
		mapFile    = flag.String("map", "", "map save file (overrides config)")
		agentsFile = flag.String("agents", "", "agent roster file (overrides config)")
		guards     = flag.Int("guards", -1, "guard count for generated rosters (overrides config)")
		intruders  = flag.Int("intruders", -1, "intruder count for generated rosters (overrides config)")
		verbose    = flag.Bool("v", false, "verbose sim log")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	conf, err := sim.ReadUserConfig(*configPath)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "runs":
			conf.Simulation.Runs = *runs
		case "ticks":
			conf.Simulation.MaxTicks = *maxTicks
		case "seed":
			conf.Simulation.Seed = *seed
		case "map":
			conf.Files.Map = *mapFile
		case "agents":
			conf.Files.Agents = *agentsFile
		case "guards":
			conf.Agents.Guards = *guards
		case "intruders":
			conf.Agents.Intruders = *intruders
		case "v":
			conf.Simulation.Verbose = *verbose
		}
	})

	roster, err := buildRoster(conf)
	if err != nil {
		log.Error("roster", "err", err)
		os.Exit(1)
	}

	var results []runResult
	for i := 0; i < conf.Simulation.Runs; i++ {
		runSeed := conf.Simulation.Seed + int64(i)*conf.Simulation.SeedStep
		res, err := runOne(conf, roster, runSeed, log)
		if err != nil {
			log.Error("run failed", "run", i, "seed", runSeed, "err", err)
			os.Exit(1)
		}
		results = append(results, res)
		status := res.outcome.Result.String()
		if res.timedOut {
			status = "timeout"
		}
		fmt.Printf("run %3d  seed %-8d %-14s %8.2fs  id %s\n",
			i, runSeed, status, res.outcome.TimeTakenSeconds, res.outcome.RunID)
	}

	printSummary(results)
}

// buildRoster resolves the list of strategy tags for each run: from the
// roster file when one is configured, else generated from the counts.
func buildRoster(conf sim.UserConfig) ([]string, error) {
	if conf.Files.Agents != "" {
		return sim.LoadAgents(conf.Files.Agents)
	}
	var tags []string
	for i := 0; i < conf.Agents.Guards; i++ {
		tags = append(tags, strategy.TagPatrollingGuard)
	}
	for i := 0; i < conf.Agents.Intruders; i++ {
		tags = append(tags, strategy.TagPathfindingIntruder)
	}
	return tags, nil
}

// runOne builds a fresh world for the seed, populates it from the roster and
// ticks it to completion or the tick cap.
func runOne(conf sim.UserConfig, roster []string, seed int64, log *slog.Logger) (runResult, error) {
	var m *sim.Map
	var err error
	if conf.Files.Map != "" {
		m, err = sim.LoadMap(conf.Files.Map)
		if err != nil {
			return runResult{}, err
		}
	} else {
		mapRng := rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation only
		m = sim.GenerateRandomMap(conf.World.Width, conf.World.Height, mapRng)
		if len(m.Targets()) == 0 {
			m.AddTarget(float64(conf.World.Width)/2, float64(conf.World.Height)/2)
		}
	}

	world := sim.WorldConfig{
		Map:     m,
		Seed:    seed,
		Log:     log,
		Verbose: conf.Simulation.Verbose,
	}.New()

	for _, tag := range roster {
		kind, ctrl, err := strategy.New(tag)
		if err != nil {
			return runResult{}, err
		}
		world.AddAgent(kind, tag, ctrl)
	}
	if err := world.Setup(); err != nil {
		return runResult{}, err
	}

	for t := 0; t < conf.Simulation.MaxTicks; t++ {
		if world.Tick() {
			break
		}
	}

	outcome, finished := world.Outcome()
	if !finished {
		outcome = sim.Outcome{
			RunID:            world.RunID(),
			TimeTakenSeconds: world.TimeSeconds(),
			Ticks:            world.TimeTicks(),
		}
	}
	return runResult{outcome: outcome, timedOut: !finished}, nil
}

func printSummary(results []runResult) {
	if len(results) == 0 {
		return
	}
	intruderWins := 0
	finished := 0
	var times []float64
	for _, r := range results {
		if r.timedOut {
			continue
		}
		finished++
		if r.outcome.IntruderWin {
			intruderWins++
		}
		times = append(times, r.outcome.TimeTakenSeconds)
	}

	fmt.Println()
	fmt.Printf("runs:        %d (%d finished, %d timed out)\n",
		len(results), finished, len(results)-finished)
	if finished > 0 {
		fmt.Printf("intruder win rate: %.1f%%\n", 100*float64(intruderWins)/float64(finished))
		q := fiveNumber(times)
		fmt.Printf("time taken (min/q1/median/q3/max): %.2f / %.2f / %.2f / %.2f / %.2f s\n",
			q[0], q[1], q[2], q[3], q[4])
	}
}

// fiveNumber returns the five-number summary of the samples using linear
// interpolation between order statistics.
func fiveNumber(samples []float64) [5]float64 {
	s := append([]float64(nil), samples...)
	sort.Float64s(s)
	percentile := func(p float64) float64 {
		if len(s) == 1 {
			return s[0]
		}
		rank := p * float64(len(s)-1)
		lo := int(rank)
		if lo >= len(s)-1 {
			return s[len(s)-1]
		}
		frac := rank - float64(lo)
		return s[lo]*(1-frac) + s[lo+1]*frac
	}
	return [5]float64{percentile(0), percentile(0.25), percentile(0.5), percentile(0.75), percentile(1)}
}
