// Package strategy provides the concrete agent behaviours the simulator
// ships with. Each strategy implements the sim.Controller contract; the
// world core never depends on this package.
package strategy

import (
	"fmt"

	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/sim"
)

// Strategy tags as they appear in agent roster files.
const (
	TagSimpleGuard         = "simple_guard"
	TagPatrollingGuard     = "patrolling_guard"
	TagCameraGuard         = "camera_guard"
	TagPathfindingIntruder = "pathfinding_intruder"
)

// New instantiates the strategy registered under the given tag and reports
// which kind of agent it drives.
func New(tag string) (sim.AgentKind, sim.Controller, error) {
	switch tag {
	case TagSimpleGuard:
		return sim.KindGuard, &SimpleGuard{}, nil
	case TagPatrollingGuard:
		return sim.KindGuard, &PatrollingGuard{}, nil
	case TagCameraGuard:
		return sim.KindGuard, &CameraGuard{}, nil
	case TagPathfindingIntruder:
		return sim.KindIntruder, &PathfindingIntruder{}, nil
	default:
		return 0, nil, fmt.Errorf("unknown strategy tag %q", tag)
	}
}

// randomFreeCell picks a uniformly random non-wall cell using the world's
// PRNG stream.
func randomFreeCell(a *sim.Agent) sim.Position {
	view := a.Map()
	rng := a.Rand()
	for {
		x := rng.Intn(view.Width())
		y := rng.Intn(view.Height())
		if !view.IsWall(x, y) {
			return sim.Cell{X: x, Y: y}.Center()
		}
	}
}
