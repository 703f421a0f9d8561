package strategy

import (
	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/sim"
)

// PathfindingIntruder plans an A* route toward the target over its own
// fog-of-war and re-plans whenever the world disagrees with the plan. It
// sprints when it hears something close by.
type PathfindingIntruder struct {
	sim.NopController

	path []sim.Position
}

func (in *PathfindingIntruder) OnPickStart(a *sim.Agent) sim.Position {
	return randomFreeCell(a)
}

func (in *PathfindingIntruder) OnCollide(a *sim.Agent) {
	// The plan ran us into something unseen; drop it and re-plan.
	in.path = nil
	a.Move(0)
}

func (in *PathfindingIntruder) OnVisionUpdate(a *sim.Agent) {
	// Newly revealed walls can invalidate the remaining route.
	for _, wp := range in.path {
		t := wp.Tile()
		if a.Map().IsRevealed(t.X, t.Y) && a.Map().IsWall(t.X, t.Y) {
			in.path = nil
			return
		}
	}
}

func (in *PathfindingIntruder) OnNoise(a *sim.Agent, noises []sim.PerceivedNoise) {
	// Something is nearby: sprint for a while if allowed.
	_ = a.SetMovementSpeed(3)
}

func (in *PathfindingIntruder) OnTick(a *sim.Agent, seen []sim.AgentView) {
	if !a.IsSprinting() && !a.IsResting() {
		_ = a.SetMovementSpeed(a.BaseSpeed())
	}

	if in.path == nil {
		in.path = a.Map().FindPath(a.Location(), a.Target())
		if in.path == nil {
			// Nothing known to walk; nudge around and try again later.
			a.Turn(30)
			a.Move(1)
			return
		}
	}

	if a.MoveRemaining() != 0 || a.TurnRemaining() != 0 {
		return
	}
	// Pop waypoints we are already standing on.
	for len(in.path) > 0 && a.Location().DistanceTo(in.path[0]) < 0.25 {
		in.path = in.path[1:]
	}
	if len(in.path) == 0 {
		in.path = nil
		return
	}
	next := in.path[0]
	a.TurnToPoint(next)
	a.Move(a.Location().DistanceTo(next))
	in.path = in.path[1:]
}

func (in *PathfindingIntruder) OnCaptured(a *sim.Agent) {}

func (in *PathfindingIntruder) OnReachedTarget(a *sim.Agent) {}
