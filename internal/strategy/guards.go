package strategy

import (
	"fmt"

	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/sim"
)

// SimpleGuard walks a fixed square and chats about it. It is the smallest
// useful exercise of the agent contract.
type SimpleGuard struct {
	sim.NopController
}

func (g *SimpleGuard) OnPickStart(a *sim.Agent) sim.Position {
	return randomFreeCell(a)
}

func (g *SimpleGuard) OnSetup(a *sim.Agent) {
	a.Turn(45)
}

func (g *SimpleGuard) OnCollide(a *sim.Agent) {
	dir := 1.0
	if a.Rand().Float64() < 0.5 {
		dir = -1.0
	}
	a.Turn(20 * dir)
	a.Move(5)
}

func (g *SimpleGuard) OnTick(a *sim.Agent, seen []sim.AgentView) {
	if a.TurnRemaining() == 0 && a.MoveRemaining() == 0 {
		a.Turn(90)
		a.Move(20)
		if a.ID() != 1 {
			a.SendMessage(1, fmt.Sprintf("turned at %s", a.Location()))
		}
	}
}

// PatrollingGuard loops the corners of the patrol rectangle assigned to it
// during world setup.
type PatrollingGuard struct {
	sim.NopController

	area     sim.PatrolArea
	assigned bool
	corners  []sim.Position
	next     int
}

// AssignPatrolArea implements sim.PatrolAssignee.
func (g *PatrollingGuard) AssignPatrolArea(a *sim.Agent, area sim.PatrolArea) {
	g.area = area
	g.assigned = true
	g.corners = []sim.Position{
		area.Low,
		sim.Pos(area.High.X(), area.Low.Y()),
		area.High,
		sim.Pos(area.Low.X(), area.High.Y()),
	}
}

func (g *PatrollingGuard) OnPickStart(a *sim.Agent) sim.Position {
	if !g.assigned {
		return randomFreeCell(a)
	}
	// Start at the first corner when it is free.
	tile := g.corners[0].Tile()
	if !a.Map().IsWall(tile.X, tile.Y) {
		return tile.Center()
	}
	return randomFreeCell(a)
}

func (g *PatrollingGuard) OnCollide(a *sim.Agent) {
	// Sidestep and head for the next corner instead of grinding the wall.
	g.next = (g.next + 1) % len(g.corners)
	a.Turn(90)
	a.Move(1)
}

func (g *PatrollingGuard) OnTick(a *sim.Agent, seen []sim.AgentView) {
	if !g.assigned {
		return
	}
	if a.TurnRemaining() != 0 || a.MoveRemaining() != 0 {
		return
	}
	corner := g.corners[g.next]
	if a.Location().DistanceTo(corner) < 0.5 {
		g.next = (g.next + 1) % len(g.corners)
		corner = g.corners[g.next]
	}
	a.TurnToPoint(corner)
	a.Move(a.Location().DistanceTo(corner))
}

// CameraGuard mans the tower handed to it during setup and sweeps its cone
// back and forth. Sweeping is kept under the fast-turn blindness threshold.
type CameraGuard struct {
	sim.NopController

	tower    sim.Position
	assigned bool
	sweep    float64 // accumulated sweep from the center heading
	sweepDir float64
}

// sweepHalfArc is how far to each side the camera pans, and sweepStep the
// per-command pan; 2 degrees per tick stays below the blindness threshold.
const (
	sweepHalfArc = 45.0
	sweepStep    = 2.0
)

// AssignTower implements sim.TowerAssignee.
func (g *CameraGuard) AssignTower(a *sim.Agent, tower sim.Position) {
	g.tower = tower
	g.assigned = true
	g.sweepDir = 1
}

func (g *CameraGuard) OnPickStart(a *sim.Agent) sim.Position {
	if !g.assigned {
		return randomFreeCell(a)
	}
	// Spawn on a free cell next to the tower.
	t := g.tower.Tile()
	view := a.Map()
	for _, d := range [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		x, y := t.X+d[0], t.Y+d[1]
		if !view.IsWall(x, y) {
			return sim.Cell{X: x, Y: y}.Center()
		}
	}
	return randomFreeCell(a)
}

func (g *CameraGuard) OnNoise(a *sim.Agent, noises []sim.PerceivedNoise) {
	if a.InTower() {
		// Snap the camera toward the last noise perceived this tick.
		a.TurnTo(noises[len(noises)-1].Angle)
	}
}

func (g *CameraGuard) OnTick(a *sim.Agent, seen []sim.AgentView) {
	if !g.assigned {
		return
	}
	if !a.InTower() {
		if a.EnterTower() {
			return
		}
		if a.TurnRemaining() == 0 && a.MoveRemaining() == 0 {
			a.TurnToPoint(g.tower)
			a.Move(a.Location().DistanceTo(g.tower))
		}
		return
	}
	if a.TurnRemaining() != 0 {
		return
	}
	g.sweep += g.sweepDir * sweepStep
	if g.sweep >= sweepHalfArc || g.sweep <= -sweepHalfArc {
		g.sweepDir = -g.sweepDir
	}
	a.Turn(g.sweepDir * sweepStep)
}
