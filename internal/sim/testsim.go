package sim

import (
	"io"
	"log/slog"
)

// TestSim is a headless scenario harness used by tests. It assembles a world
// from ordered options and runs it tick by tick with a quiet logger.
type TestSim struct {
	World *World

	mapW, mapH int
	seed       int64
	verbose    bool
	buildMap   []func(m *Map)
	addAgents  []func(w *World)
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // map size, walls, seed — applied first
	simOptAgent                      // add agents — applied once the map exists
)

// SimOption is a builder function applied to a TestSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*TestSim)
}

// WithMapSize sets the playfield dimensions (open field, no border walls).
func WithMapSize(w, h int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.mapW, ts.mapH = w, h
	}}
}

// WithSeed sets the world PRNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.seed = seed
	}}
}

// WithVerbose enables per-tick sim log entries.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.verbose = v
	}}
}

// WithWall places a single wall tile.
func WithWall(x, y int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.buildMap = append(ts.buildMap, func(m *Map) { m.SetWall(x, y, true) })
	}}
}

// WithWallRect outlines a wall rectangle (edges only).
func WithWallRect(x0, y0, x1, y1 int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.buildMap = append(ts.buildMap, func(m *Map) { m.SetWallRectangle(x0, y0, x1, y1, true) })
	}}
}

// WithTarget adds a target point.
func WithTarget(x, y float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.buildMap = append(ts.buildMap, func(m *Map) { m.AddTarget(x, y) })
	}}
}

// WithTower adds a tower.
func WithTower(x, y float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.buildMap = append(ts.buildMap, func(m *Map) { m.AddTower(x, y) })
	}}
}

// WithVisionArea sets the vision modifier over a rectangle.
func WithVisionArea(x0, y0, x1, y1 int, v float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.buildMap = append(ts.buildMap, func(m *Map) { m.SetVisionArea(x0, y0, x1, y1, v) })
	}}
}

// WithGuard adds a guard driven by the given controller.
func WithGuard(ctrl Controller) SimOption {
	return SimOption{simOptAgent, func(ts *TestSim) {
		ts.addAgents = append(ts.addAgents, func(w *World) { w.AddAgent(KindGuard, "test_guard", ctrl) })
	}}
}

// WithIntruder adds an intruder driven by the given controller.
func WithIntruder(ctrl Controller) SimOption {
	return SimOption{simOptAgent, func(ts *TestSim) {
		ts.addAgents = append(ts.addAgents, func(w *World) { w.AddAgent(KindIntruder, "test_intruder", ctrl) })
	}}
}

// NewTestSim constructs a world from the given options in two ordered
// passes: infrastructure first, then agents. Setup is not run; call
// MustSetup or World.Setup.
func NewTestSim(opts ...SimOption) *TestSim {
	ts := &TestSim{mapW: 20, mapH: 20, seed: 1}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(ts)
		}
	}
	m := NewMap(ts.mapW, ts.mapH)
	for _, build := range ts.buildMap {
		build(m)
	}
	ts.World = WorldConfig{
		Map:     m,
		Seed:    ts.seed,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Verbose: ts.verbose,
	}.New()
	for _, o := range opts {
		if o.kind == simOptAgent {
			o.fn(ts)
		}
	}
	for _, add := range ts.addAgents {
		add(ts.World)
	}
	return ts
}

// Setup runs world setup and returns its error.
func (ts *TestSim) Setup() error { return ts.World.Setup() }

// RunTicks advances the world by up to n ticks, stopping early when the game
// ends. Reports whether the game ended.
func (ts *TestSim) RunTicks(n int) bool {
	for i := 0; i < n; i++ {
		if ts.World.Tick() {
			return true
		}
	}
	return ts.World.Finished()
}

// Log returns the world's structured sim log.
func (ts *TestSim) Log() *SimLog { return ts.World.SimLog() }
