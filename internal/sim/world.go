package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// TickRate is how many simulation steps make up one simulated second.
const TickRate = 20

// TimePerTick is the simulated duration of a single tick, in seconds.
const TimePerTick = 1.0 / TickRate

const (
	captureDistance    = 0.5
	targetDistance     = 1.0
	targetDwellSeconds = 3.0
	targetRevisitGap   = 3.0
	targetVisitsToWin  = 2

	// adjacencyOverride: agents this close see each other regardless of
	// cone and facing.
	adjacencyOverride = 1.0

	patrolAreaInset = 1.5
)

// WorldConfig holds the options for building a World.
type WorldConfig struct {
	// Map is the playfield. A nil map defaults to a blank 20x20 field.
	Map *Map
	// Seed feeds the world's single PRNG stream; runs with the same map,
	// agents and seed replay identically.
	Seed int64
	// Log receives warnings and lifecycle events. Defaults to slog.Default().
	Log *slog.Logger
	// Verbose enables per-tick entries in the structured sim log.
	Verbose bool
}

// New builds a World from the config, dragging in defaults for unset fields.
func (conf WorldConfig) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Map == nil {
		conf.Map = BlankMap(20, 20)
	}
	return &World{
		gameMap: conf.Map,
		byID:    make(map[AgentID]*Agent),
		rng:     rand.New(rand.NewSource(conf.Seed)), // #nosec G404 -- simulation only
		log:     conf.Log,
		simLog:  NewSimLog(conf.Verbose),
		runID:   uuid.New(),
	}
}

// World owns the shared simulation state and the tick loop. All calls run
// inline on the caller's goroutine; there is no concurrency inside a tick.
type World struct {
	gameMap *Map
	agents  []*Agent // insertion order
	byID    map[AgentID]*Agent

	noises        []*NoiseEvent // observable this tick
	pendingNoises []*NoiseEvent // emitted this tick, observable next
	pastNoises    []*NoiseEvent

	timeTicks   int
	nextAgentID AgentID

	rng    *rand.Rand
	log    *slog.Logger
	simLog *SimLog
	runID  uuid.UUID

	patrolAreas []PatrolArea

	finished bool
	outcome  Outcome
}

func (w *World) Map() *Map          { return w.gameMap }
func (w *World) TimeTicks() int     { return w.timeTicks }
func (w *World) TimeSeconds() float64 { return float64(w.timeTicks) * TimePerTick }
func (w *World) Agents() []*Agent   { return w.agents }
func (w *World) SimLog() *SimLog    { return w.simLog }
func (w *World) RunID() uuid.UUID   { return w.runID }
func (w *World) Rand() *rand.Rand   { return w.rng }

// AgentByID looks an agent up by its ID.
func (w *World) AgentByID(id AgentID) (*Agent, bool) {
	a, ok := w.byID[id]
	return a, ok
}

// Guards returns all guard agents in insertion order.
func (w *World) Guards() []*Agent { return w.agentsOfKind(KindGuard) }

// Intruders returns all intruder agents in insertion order.
func (w *World) Intruders() []*Agent { return w.agentsOfKind(KindIntruder) }

func (w *World) agentsOfKind(kind AgentKind) []*Agent {
	var out []*Agent
	for _, a := range w.agents {
		if a.kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// AddAgent creates an agent driven by the given controller, allocates the
// next dense ID and stores it. Agents must be added before Setup.
func (w *World) AddAgent(kind AgentKind, tag string, ctrl Controller) *Agent {
	w.nextAgentID++
	a := newAgent(w.nextAgentID, kind, tag, ctrl)
	a.world = w
	w.agents = append(w.agents, a)
	w.byID[a.id] = a
	return a
}

// PatrolArea is an axis-aligned rectangle assigned to a patrolling guard.
// Low and High are opposite corners.
type PatrolArea struct {
	Low  Position
	High Position
}

// PatrolAssignee is implemented by controllers that want a patrol rectangle
// assigned during world setup.
type PatrolAssignee interface {
	AssignPatrolArea(a *Agent, area PatrolArea)
}

// TowerAssignee is implemented by controllers that man a camera tower; setup
// hands out the map's towers to them in order.
type TowerAssignee interface {
	AssignTower(a *Agent, tower Position)
}

// PartitionPatrolAreas splits the map into a kx by ky grid of patrol
// rectangles for n patrollers, each inset from its cell on every side, in
// row-major order. kx is floor(sqrt(n)) and ky is kx+1 when
// kx*kx < n <= kx*(kx+1), else kx; the rectangle count can therefore differ
// from n (n=3 gives one rectangle, n=5 gives six).
func PartitionPatrolAreas(m *Map, n int) []PatrolArea {
	if n <= 0 {
		return nil
	}
	kx := int(math.Floor(math.Sqrt(float64(n))))
	ky := kx
	if kx*kx < n && n <= kx*(kx+1) {
		ky = kx + 1
	}

	cellW := float64(m.Width()) / float64(kx)
	cellH := float64(m.Height()) / float64(ky)

	areas := make([]PatrolArea, 0, kx*ky)
	for ry := 0; ry < ky; ry++ {
		for rx := 0; rx < kx; rx++ {
			areas = append(areas, PatrolArea{
				Low:  Pos(float64(rx)*cellW+patrolAreaInset, float64(ry)*cellH+patrolAreaInset),
				High: Pos(float64(rx+1)*cellW-patrolAreaInset, float64(ry+1)*cellH-patrolAreaInset),
			})
		}
	}
	return areas
}

// Setup partitions the map for patrollers, hands towers to camera guards and
// places every agent through its OnPickStart hook. A controller returning an
// out-of-bounds or in-wall start aborts setup with ErrBadPosition.
func (w *World) Setup() error {
	var patrollers []*Agent
	for _, a := range w.agents {
		if _, ok := a.ctrl.(PatrolAssignee); ok {
			patrollers = append(patrollers, a)
		}
	}
	w.patrolAreas = PartitionPatrolAreas(w.gameMap, len(patrollers))
	for i, a := range patrollers {
		a.ctrl.(PatrolAssignee).AssignPatrolArea(a, w.patrolAreas[i%len(w.patrolAreas)])
	}

	towers := w.gameMap.Towers()
	towerIdx := 0
	for _, a := range w.agents {
		if ta, ok := a.ctrl.(TowerAssignee); ok && towerIdx < len(towers) {
			ta.AssignTower(a, towers[towerIdx])
			towerIdx++
		}
	}

	for _, a := range w.agents {
		if err := a.setup(w); err != nil {
			return fmt.Errorf("world setup: %w", err)
		}
	}
	return nil
}

// PatrolAreas returns the rectangles computed by Setup.
func (w *World) PatrolAreas() []PatrolArea { return w.patrolAreas }

// Finished reports whether a win condition has been reached.
func (w *World) Finished() bool { return w.finished }

// Outcome returns the final report once the game has ended.
func (w *World) Outcome() (Outcome, bool) {
	return w.outcome, w.finished
}

// Tick advances the simulation by one step and reports whether the game has
// ended. The phase order is fixed: noise rotation, percepts + agent ticks,
// collision resolution, capture arbitration, target arbitration, message
// routing, clock.
func (w *World) Tick() bool {
	if w.finished {
		return true
	}

	// 1. Rotate noise lists and roll the ambient emission.
	w.pastNoises = append(w.pastNoises, w.noises...)
	w.noises = w.pendingNoises
	w.pendingNoises = nil
	w.emitRandomNoise()

	// 2. Percepts from start-of-tick state, then each agent's tick.
	snaps := w.snapshotAgents()
	for _, a := range w.agents {
		seen := w.visibleAgents(a, snaps)
		noises := w.perceivedNoises(a)
		w.runAgentTick(a, seen, noises)
	}

	// 3. Collisions, after everyone has moved.
	w.resolveCollisions()

	// 4. Capture arbitration on post-collision positions.
	if w.captureCheck() {
		w.finish(ResultGuardsWin)
		return true
	}

	// 5. Target arbitration, then message routing for next tick.
	if w.targetCheck() {
		w.finish(ResultIntrudersWin)
		return true
	}
	w.routeMessages()

	// 6. Clock.
	w.timeTicks++
	return false
}

// AddNoise stamps the event with the current tick and queues it; it becomes
// observable on the next tick.
func (w *World) AddNoise(n *NoiseEvent) {
	n.Tick = w.timeTicks
	w.pendingNoises = append(w.pendingNoises, n)
}

// Noises returns the noise events observable this tick.
func (w *World) Noises() []*NoiseEvent { return w.noises }

// transmitMessage queues a message into the recipient's next-tick inbox.
// Unknown recipients are dropped with a warning.
func (w *World) transmitMessage(msg Message) {
	target, ok := w.byID[msg.Target]
	if !ok {
		w.log.Warn("message to unknown agent dropped", "source", msg.Source, "target", msg.Target)
		return
	}
	target.inboxNext = append(target.inboxNext, msg)
	w.simLog.AddVerbose(w.timeTicks, fmt.Sprintf("%d", msg.Source), "comms", "send",
		fmt.Sprintf("-> %d: %s", msg.Target, msg.Payload), 0)
}

// routeMessages flips every agent's next-tick inbox into the live one.
func (w *World) routeMessages() {
	for _, a := range w.agents {
		if len(a.inboxNext) == 0 {
			continue
		}
		a.inbox = append(a.inbox, a.inboxNext...)
		a.inboxNext = a.inboxNext[:0]
	}
}

// emitRandomNoise rolls the ambient noise emission: rate scales with map
// area, location is a uniformly random cell.
func (w *World) emitRandomNoise() {
	perSecond := (ambientEventRate / 60) * float64(w.gameMap.Width()*w.gameMap.Height()) / 25
	if w.rng.Float64() >= perSecond*TimePerTick {
		return
	}
	c := Cell{w.rng.Intn(w.gameMap.Width()), w.rng.Intn(w.gameMap.Height())}
	w.AddNoise(&NoiseEvent{Location: c.Center(), Radius: ambientNoiseRadius})
	w.simLog.AddVerbose(w.timeTicks, "--", "noise", "ambient", c.Center().String(), ambientNoiseRadius)
}

type agentSnapshot struct {
	agent      *Agent
	view       AgentView
	visibility float64
}

// snapshotAgents freezes every agent's pose before any of them tick, so
// percepts never observe in-tick movement.
func (w *World) snapshotAgents() []agentSnapshot {
	snaps := make([]agentSnapshot, len(w.agents))
	for i, a := range w.agents {
		snaps[i] = agentSnapshot{agent: a, view: a.View(), visibility: a.visibilityRange}
	}
	return snaps
}

// visibleAgents computes which other agents a can see this tick: inside its
// effective range, inside the other's visibility range, and within half the
// view angle of its heading — or simply closer than the adjacency override.
func (w *World) visibleAgents(a *Agent, snaps []agentSnapshot) []AgentView {
	var seen []AgentView
	for _, s := range snaps {
		if s.agent == a {
			continue
		}
		dist := s.view.Location.DistanceTo(a.location)
		if dist <= adjacencyOverride {
			seen = append(seen, s.view)
			continue
		}
		if dist > a.currentViewRange || dist > s.visibility {
			continue
		}
		angleDiff := math.Abs(NormalizeHeading(HeadingTo(a.location, s.view.Location) - a.heading))
		if angleDiff <= a.viewAngle/2 {
			seen = append(seen, s.view)
		}
	}
	return seen
}

// perceivedNoises wraps every current noise in range of the observer (and
// not its own) into a direction estimate with gaussian error.
func (w *World) perceivedNoises(a *Agent) []PerceivedNoise {
	var out []PerceivedNoise
	for _, n := range w.noises {
		if n.Source == a {
			continue
		}
		if n.Location.DistanceTo(a.location) >= n.Radius {
			continue
		}
		out = append(out, PerceivedNoise{Angle: w.perceivedAngle(a.location, n.Location), Tick: n.Tick})
	}
	return out
}

// perceivedAngle returns the true direction from observer to event plus
// gaussian error. Coincident points hear the noise everywhere at once.
func (w *World) perceivedAngle(observer, event Position) float64 {
	if event.Sub(observer).Len() <= 1e-5 {
		return 0
	}
	trueAngle := HeadingTo(observer, event)
	return NormalizeHeading(trueAngle + w.rng.NormFloat64()*perceivedAngleSigma)
}

// runAgentTick dispatches one agent's tick with a panic guard: a crashing
// strategy loses its actions for the tick, everyone else keeps running.
func (w *World) runAgentTick(a *Agent, seen []AgentView, noises []PerceivedNoise) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("agent tick panicked, discarding its actions",
				"agent", a.id, "tag", a.tag, "panic", r)
			a.outbox = a.outbox[:0]
			w.simLog.Add(w.timeTicks, a.Label(), "agent", "panic", fmt.Sprint(r), 0)
		}
	}()
	a.tick(seen, noises)
}

// resolveCollisions clips every agent to the playfield and pushes it out of
// wall tiles: four axis-aligned probes resolved along their axis, then four
// corner probes resolved as circle collisions against the tile center.
func (w *World) resolveCollisions() {
	width := w.gameMap.Width()
	height := w.gameMap.Height()

	for _, a := range w.agents {
		a.location[0] = clampCoord(a.location[0], float64(width))
		a.location[1] = clampCoord(a.location[1], float64(height))

		half := a.width / 2
		x, y := a.location.X(), a.location.Y()
		collided := false
		var push Position

		if cx, _, hit := w.wallTileCenter(x-half, y); hit {
			push[0] += cx + (0.5 + half) - x
			collided = true
		}
		if cx, _, hit := w.wallTileCenter(x+half, y); hit {
			push[0] += cx - (0.5 + half) - x
			collided = true
		}
		if _, cy, hit := w.wallTileCenter(x, y-half); hit {
			push[1] += cy + (0.5 + half) - y
			collided = true
		}
		if _, cy, hit := w.wallTileCenter(x, y+half); hit {
			push[1] += cy - (0.5 + half) - y
			collided = true
		}
		a.location = Pos(a.location.X()+push.X(), a.location.Y()+push.Y())

		// Corner probes: circle vs. wall tile center, projected out to the
		// combined radius.
		combined := 0.5 + half
		for _, s := range [4][2]float64{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
			px := a.location.X() + s[0]*half
			py := a.location.Y() + s[1]*half
			cx, cy, hit := w.wallTileCenter(px, py)
			if !hit {
				continue
			}
			center := Pos(cx, cy)
			d := a.location.Sub(center)
			dist := d.Len()
			if dist >= combined {
				continue
			}
			if dist <= 1e-9 {
				// Degenerate: dead-centered on the tile, push straight up.
				a.location = Pos(cx, cy+combined)
			} else {
				a.location = center.Add(d.Mul(combined / dist))
			}
			collided = true
		}

		if collided {
			a.hasCollided = true
		}
	}
}

// wallTileCenter returns the center of the wall tile containing the point,
// if it is one. Out-of-bounds points count as walls.
func (w *World) wallTileCenter(x, y float64) (float64, float64, bool) {
	tx := int(math.Floor(x))
	ty := int(math.Floor(y))
	if !w.gameMap.IsWall(tx, ty) {
		return 0, 0, false
	}
	return float64(tx) + 0.5, float64(ty) + 0.5, true
}

func clampCoord(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v >= limit {
		return math.Nextafter(limit, 0)
	}
	return v
}

// captureCheck marks intruders caught by a guard — close enough and on a
// tile the guard's tile has line of sight to — and reports whether every
// intruder is now captured.
func (w *World) captureCheck() bool {
	intruders := w.Intruders()
	if len(intruders) == 0 {
		return false
	}

	for _, in := range intruders {
		if in.isCaptured {
			continue
		}
		for _, g := range w.Guards() {
			if in.location.DistanceTo(g.location) > captureDistance {
				continue
			}
			gt := g.location.Tile()
			it := in.location.Tile()
			if !TileLOS(w.gameMap, gt.X, gt.Y, it.X, it.Y) {
				continue
			}
			in.isCaptured = true
			in.moveSpeed = 0
			w.simLog.Add(w.timeTicks, in.Label(), "game", "captured", fmt.Sprintf("by %s", g.Label()), 0)
			break
		}
	}

	for _, in := range intruders {
		if !in.isCaptured {
			return false
		}
	}
	return true
}

// targetCheck advances every intruder's dwell/revisit counters and reports
// whether any of them has reached the target: either 3 continuous seconds
// inside it, or a second visit after at least 3 seconds away.
func (w *World) targetCheck() bool {
	won := false
	for _, in := range w.Intruders() {
		if in.isCaptured || len(w.gameMap.Targets()) == 0 {
			continue
		}
		inTarget := in.location.DistanceTo(in.Target()) < targetDistance

		if inTarget {
			if in.ticksInTarget == 0 {
				firstVisit := in.timesVisitedTarget == 0
				if float64(in.ticksSinceTarget)*TimePerTick >= targetRevisitGap || firstVisit {
					in.timesVisitedTarget++
					w.simLog.Add(w.timeTicks, in.Label(), "game", "target_visit", "", float64(in.timesVisitedTarget))
				}
				in.ticksSinceTarget = 0
			}
			in.ticksInTarget++
		} else {
			if in.ticksInTarget > 0 {
				in.ticksInTarget = 0
				in.ticksSinceTarget = 1
			} else if in.ticksSinceTarget > 0 {
				in.ticksSinceTarget++
			}
		}

		if float64(in.ticksInTarget)*TimePerTick >= targetDwellSeconds ||
			in.timesVisitedTarget >= targetVisitsToWin {
			in.reachedTarget = true
			won = true
			w.simLog.Add(w.timeTicks, in.Label(), "game", "reached_target", "", 0)
		}
	}
	return won
}

// finish records the outcome. Time taken counts the tick that ended the game.
func (w *World) finish(result Result) {
	w.finished = true
	w.outcome = Outcome{
		RunID:            w.runID,
		Result:           result,
		IntruderWin:      result == ResultIntrudersWin,
		GuardWin:         result == ResultGuardsWin,
		TimeTakenSeconds: float64(w.timeTicks+1) * TimePerTick,
		Ticks:            w.timeTicks + 1,
	}
	w.simLog.Add(w.timeTicks, "--", "game", "finished", result.String(), w.outcome.TimeTakenSeconds)
}
