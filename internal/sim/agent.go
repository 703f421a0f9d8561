package sim

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand"
)

// AgentID identifies an agent within its world. IDs are dense and 1-based.
type AgentID int

// AgentKind separates the two teams.
type AgentKind uint8

const (
	KindGuard AgentKind = iota
	KindIntruder
)

func (k AgentKind) String() string {
	switch k {
	case KindGuard:
		return "guard"
	case KindIntruder:
		return "intruder"
	default:
		return "unknown"
	}
}

// Default agent parameters, in map units, seconds and degrees.
const (
	defaultBaseSpeed    = 1.4
	defaultTurnSpeed    = 180.0
	sprintTurnSpeed     = 10.0
	defaultAgentWidth   = 0.9
	maxMovementSpeed    = 3.0
	guardViewRange      = 6.0
	intruderViewRange   = 7.5
	defaultViewAngle    = 45.0
	defaultTowerRange   = 15.0
	defaultTowerAngle   = 30.0
	decreasedVisibility = 1.0

	sprintDuration       = 5.0  // max continuous sprint, seconds
	sprintRestDuration   = 10.0 // forced rest after a sprint, seconds
	towerInteractionTime = 3.0  // blind-and-deaf transition window, seconds

	// fastTurnBlindSpeed is the angular speed above which an agent loses
	// vision, with fastTurnBlindAfter more seconds of blindness once the
	// turn slows down again.
	fastTurnBlindSpeed = 45.0
	fastTurnBlindAfter = 0.5

	// lowVisionSettleTime is how long an agent has to keep moving through
	// reduced-vision tiles before it becomes hard to spot.
	lowVisionSettleTime = 10.0

	// towerReachFactor scales agent width into the maximum distance from
	// which a tower can be entered.
	towerReachFactor = 1.1

	headingRevealDelta = 5.0 // degrees of heading change that re-triggers a reveal
)

var (
	// ErrBadSpeed is returned by SetMovementSpeed for speeds outside [0, 3].
	ErrBadSpeed = errors.New("movement speed out of bounds")
	// ErrBadPosition is returned from World.Setup when a controller picks an
	// invalid starting position.
	ErrBadPosition = errors.New("bad starting position")
)

// AgentView is the capability-limited view of another agent handed to
// strategies: identity and pose, nothing else.
type AgentView struct {
	ID       AgentID
	Location Position
	Heading  float64
	Kind     AgentKind
}

func (v AgentView) IsGuard() bool    { return v.Kind == KindGuard }
func (v AgentView) IsIntruder() bool { return v.Kind == KindIntruder }

// Controller is the strategy interface the world calls through. All hooks
// are invoked inside the owning agent's tick; they may freely queue actions
// through the agent but must not touch other agents.
type Controller interface {
	// OnSetup runs once after the agent is placed in the world.
	OnSetup(a *Agent)
	// OnPickStart must return a valid (in-bounds, wall-free) starting cell.
	OnPickStart(a *Agent) Position
	// OnVisionUpdate runs whenever the fog-of-war reveal ran this tick.
	OnVisionUpdate(a *Agent)
	// OnNoise runs when the agent perceived at least one noise and is not deaf.
	OnNoise(a *Agent, noises []PerceivedNoise)
	// OnMessage runs once per inbound message, before OnTick.
	OnMessage(a *Agent, msg Message)
	// OnCollide runs when the agent collided during the previous tick.
	OnCollide(a *Agent)
	// OnTick is the strategy's main decision hook.
	OnTick(a *Agent, seen []AgentView)
}

// IntruderController adds the intruder-only lifecycle hooks.
type IntruderController interface {
	Controller
	// OnCaptured runs at most once, at the start of the intruder's first
	// tick after capture. When the capture ends the game no further tick
	// runs, so the hook does not fire.
	OnCaptured(a *Agent)
	// OnReachedTarget runs at most once, at the start of the intruder's
	// first tick after reaching the target. Reaching the target ends the
	// game and World.Tick runs no further tick, so in a World the hook does
	// not fire.
	OnReachedTarget(a *Agent)
}

// NopController implements Controller with no-ops and a corner start; embed
// it to implement only the hooks a strategy cares about.
type NopController struct{}

func (NopController) OnSetup(*Agent)                    {}
func (NopController) OnPickStart(*Agent) Position       { return Pos(0.5, 0.5) }
func (NopController) OnVisionUpdate(*Agent)             {}
func (NopController) OnNoise(*Agent, []PerceivedNoise)  {}
func (NopController) OnMessage(*Agent, Message)         {}
func (NopController) OnCollide(*Agent)                  {}
func (NopController) OnTick(*Agent, []AgentView)        {}

// Agent is one actor in the world: a guard or an intruder. The embedded
// state machine executes queued movement commands, maintains vision and
// sprint/tower timers, and dispatches the controller hooks in a fixed order
// each tick.
type Agent struct {
	id    AgentID
	kind  AgentKind
	tag   string
	Color color.RGBA

	world *World
	ctrl  Controller
	view  *MapView

	// kinematics
	location    Position
	heading     float64 // degrees, (-180, 180], 0 = +y
	lastHeading float64
	baseSpeed   float64
	moveSpeed   float64
	turnSpeed   float64 // degrees per second
	moveTarget  float64 // distance remaining, signed
	turnTarget  float64 // absolute target heading

	// vision
	viewRange        float64
	currentViewRange float64
	baseViewAngle    float64
	viewAngle        float64
	towerViewRange   float64
	towerViewAngle   float64
	visibilityRange  float64 // how far *others* can see this agent
	lastTile         Cell
	fastTurning      bool
	turnBlindTicks   int
	decVisionTicks   int

	// sprint
	canSprint       bool
	sprintStartTick int
	sprintStopTick  int

	// towers
	inTower              bool
	interactingWithTower bool
	towerStartTick       int

	isDeaf bool

	// physics
	width       float64
	hasCollided bool

	// communication
	inbox     []Message
	inboxNext []Message
	outbox    []Message

	// intruder state
	isCaptured         bool
	capturedNotified   bool
	reachedTarget      bool
	reachedNotified    bool
	ticksInTarget      int
	ticksSinceTarget   int
	timesVisitedTarget int
}

func newAgent(id AgentID, kind AgentKind, tag string, ctrl Controller) *Agent {
	a := &Agent{
		id:   id,
		kind: kind,
		tag:  tag,
		ctrl: ctrl,

		baseSpeed: defaultBaseSpeed,
		moveSpeed: defaultBaseSpeed,
		turnSpeed: defaultTurnSpeed,

		viewRange:       guardViewRange,
		baseViewAngle:   defaultViewAngle,
		viewAngle:       defaultViewAngle,
		towerViewRange:  defaultTowerRange,
		towerViewAngle:  defaultTowerAngle,
		visibilityRange: defaultTowerRange,

		sprintStopTick: math.MinInt32,

		width: defaultAgentWidth,

		Color: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
	if kind == KindIntruder {
		a.viewRange = intruderViewRange
		a.canSprint = true
		a.Color = color.RGBA{R: 230, G: 120, B: 0, A: 255}
	} else {
		a.Color = color.RGBA{R: 60, G: 170, B: 120, A: 255}
	}
	a.currentViewRange = a.viewRange
	return a
}

// setup wires the agent into its world, builds the fog-of-war view and asks
// the controller for a starting position.
func (a *Agent) setup(w *World) error {
	a.world = w
	a.view = NewMapView(w.gameMap)

	start := a.ctrl.OnPickStart(a)
	tile := start.Tile()
	if !w.gameMap.InBounds(tile.X, tile.Y) || w.gameMap.IsWall(tile.X, tile.Y) {
		return fmt.Errorf("%w: agent %d picked %v", ErrBadPosition, a.id, start)
	}
	a.location = start
	a.lastTile = tile
	a.lastHeading = a.heading

	a.ctrl.OnSetup(a)
	return nil
}

// --- identity and read-only state ---

func (a *Agent) ID() AgentID       { return a.id }
func (a *Agent) Kind() AgentKind   { return a.kind }
func (a *Agent) Tag() string       { return a.tag }
func (a *Agent) Location() Position { return a.location }
func (a *Agent) Heading() float64  { return a.heading }
func (a *Agent) Width() float64    { return a.width }
func (a *Agent) InTower() bool     { return a.inTower }
func (a *Agent) IsDeaf() bool      { return a.isDeaf }
func (a *Agent) IsCaptured() bool  { return a.isCaptured }
func (a *Agent) HasReachedTarget() bool { return a.reachedTarget }

// Label is the short form used in logs, e.g. "G1" or "I3".
func (a *Agent) Label() string {
	prefix := "G"
	if a.kind == KindIntruder {
		prefix = "I"
	}
	return fmt.Sprintf("%s%d", prefix, a.id)
}

// Map returns the agent's private fog-of-war view.
func (a *Agent) Map() *MapView { return a.view }

// Rand exposes the world's PRNG stream so strategies stay deterministic
// under a fixed seed.
func (a *Agent) Rand() *rand.Rand { return a.world.rng }

// View returns the capability wrapper other agents receive for this agent.
func (a *Agent) View() AgentView {
	return AgentView{ID: a.id, Location: a.location, Heading: a.heading, Kind: a.kind}
}

// TimeTicks returns the world tick counter.
func (a *Agent) TimeTicks() int { return a.world.timeTicks }

// TimeSeconds returns elapsed simulated time.
func (a *Agent) TimeSeconds() float64 { return float64(a.world.timeTicks) * TimePerTick }

// Target returns the intruder's goal: the map's first target point.
func (a *Agent) Target() Position {
	targets := a.world.gameMap.Targets()
	if len(targets) == 0 {
		return Position{}
	}
	return targets[0]
}

// --- movement commands ---

// Turn queues a turn relative to the current heading.
func (a *Agent) Turn(deltaDeg float64) {
	a.turnTarget = a.heading + deltaDeg
}

// TurnTo queues a turn toward an absolute heading.
func (a *Agent) TurnTo(headingDeg float64) {
	a.turnTarget = headingDeg
}

// TurnToPoint queues a turn toward the given position.
func (a *Agent) TurnToPoint(target Position) {
	if target.Sub(a.location).Len() <= 1e-5 {
		a.turnTarget = a.heading
		return
	}
	a.turnTarget = HeadingTo(a.location, target)
}

// Move queues a move of the given distance along the current heading.
// Negative distances walk backwards. A new call replaces the pending one —
// an agent has at most one outstanding movement command.
func (a *Agent) Move(distance float64) {
	a.moveTarget = distance
}

// TurnRemaining returns the signed degrees left to the queued heading.
func (a *Agent) TurnRemaining() float64 {
	r := NormalizeHeading(a.turnTarget - a.heading)
	if math.Abs(r) <= 1e-6 {
		return 0
	}
	return r
}

// MoveRemaining returns the signed distance left on the queued move.
func (a *Agent) MoveRemaining() float64 {
	if math.Abs(a.moveTarget) <= 1e-6 {
		return 0
	}
	return a.moveTarget
}

// MoveSpeed returns the agent's current movement speed.
func (a *Agent) MoveSpeed() float64 { return a.moveSpeed }

// BaseSpeed returns the agent's normal walking speed.
func (a *Agent) BaseSpeed() float64 { return a.baseSpeed }

// SetMovementSpeed sets the movement speed. Speeds outside [0, 3] return
// ErrBadSpeed. While resting after a sprint the call is ignored; captured
// intruders stay at zero.
func (a *Agent) SetMovementSpeed(speed float64) error {
	if speed < 0 || speed > maxMovementSpeed {
		return fmt.Errorf("%w: %v", ErrBadSpeed, speed)
	}
	if a.IsResting() || a.isCaptured {
		return nil
	}
	if a.moveSpeed > a.baseSpeed && a.baseSpeed >= speed {
		a.sprintStopTick = a.world.timeTicks
	}
	if !a.IsSprinting() && speed > a.baseSpeed {
		a.sprintStartTick = a.world.timeTicks
	}
	a.moveSpeed = speed
	return nil
}

// IsSprinting reports whether the agent currently moves above base speed.
func (a *Agent) IsSprinting() bool { return a.moveSpeed > a.baseSpeed }

// IsResting reports whether the agent is in the forced cooldown after a
// sprint.
func (a *Agent) IsResting() bool {
	return float64(a.world.timeTicks-a.sprintStopTick) < sprintRestDuration/TimePerTick
}

// --- messaging ---

// SendMessage queues a message for delivery on the next tick. Sending to
// yourself is dropped with a warning.
func (a *Agent) SendMessage(target AgentID, payload string) {
	if target == a.id {
		a.world.log.Warn("agent tried to message itself", "agent", a.id)
		return
	}
	a.outbox = append(a.outbox, Message{Source: a.id, Target: target, Payload: payload})
}

// --- towers ---

// EnterTower begins the tower-entry transition when a tower is in reach.
// Returns false — with no state change — when already in or transitioning to
// a tower, or when no tower is close enough. The agent is blind and deaf for
// the transition window, then gains the tower's vision.
func (a *Agent) EnterTower() bool {
	if a.inTower || a.interactingWithTower {
		return false
	}
	var tower Position
	found := false
	for _, t := range a.world.gameMap.Towers() {
		if t.DistanceTo(a.location) < towerReachFactor*a.width {
			tower = t
			found = true
			break
		}
	}
	if !found {
		return false
	}

	a.inTower = true
	a.interactingWithTower = true
	a.towerStartTick = a.world.timeTicks
	a.isDeaf = true
	a.viewAngle = a.towerViewAngle
	a.currentViewRange = 0
	a.moveSpeed = 0
	a.location = Pos(tower.X()+a.width/2, tower.Y()+a.width/2)
	return true
}

// LeaveTower begins the dual transition back to the ground. Returns false
// when not in a tower or still transitioning.
func (a *Agent) LeaveTower() bool {
	if !a.inTower || a.interactingWithTower {
		return false
	}
	a.inTower = false
	a.interactingWithTower = true
	a.towerStartTick = a.world.timeTicks
	a.isDeaf = true
	a.viewAngle = a.baseViewAngle
	a.currentViewRange = 0
	a.moveSpeed = 0
	return true
}

// --- per-tick state machine ---

// tick runs the fixed per-tick hook order. Percepts are computed by the
// world from start-of-tick state and passed in.
func (a *Agent) tick(seen []AgentView, noises []PerceivedNoise) {
	if a.kind == KindIntruder {
		if a.reachedTarget {
			if !a.reachedNotified {
				a.reachedNotified = true
				if ic, ok := a.ctrl.(IntruderController); ok {
					ic.OnReachedTarget(a)
				}
			}
			return
		}
		if a.isCaptured {
			if !a.capturedNotified {
				a.capturedNotified = true
				if ic, ok := a.ctrl.(IntruderController); ok {
					ic.OnCaptured(a)
				}
			}
			return
		}
	}

	a.updateTowerInteraction()

	if a.updateVision(a.world.timeTicks == 0) {
		a.ctrl.OnVisionUpdate(a)
	}

	if len(noises) > 0 && !a.isDeaf {
		a.ctrl.OnNoise(a, noises)
	}

	for _, msg := range a.inbox {
		a.ctrl.OnMessage(a, msg)
	}
	a.inbox = a.inbox[:0]

	if a.hasCollided {
		a.ctrl.OnCollide(a)
		a.hasCollided = false
	}

	a.ctrl.OnTick(a, seen)

	a.processMovement()

	for _, msg := range a.outbox {
		a.world.transmitMessage(msg)
	}
	a.outbox = a.outbox[:0]
}

// updateTowerInteraction advances the 3-second tower transition window and
// applies the post-transition vision and speed.
func (a *Agent) updateTowerInteraction() {
	if !a.interactingWithTower {
		return
	}
	if float64(a.world.timeTicks-a.towerStartTick) < towerInteractionTime/TimePerTick {
		return
	}
	a.interactingWithTower = false
	a.isDeaf = false
	if a.inTower {
		a.currentViewRange = a.towerViewRange
		a.moveSpeed = 0
	} else {
		a.currentViewRange = a.viewRange
		a.moveSpeed = a.baseSpeed
	}
}

// updateVision maintains the effective view and visibility ranges and runs
// the fog-of-war reveal when the agent changed tile, turned more than
// headingRevealDelta degrees, or sits in a tower. Reports whether a reveal
// ran.
func (a *Agent) updateVision(force bool) bool {
	tile := a.location.Tile()

	// Turning faster than fastTurnBlindSpeed blanks vision, and it stays
	// blank for fastTurnBlindAfter seconds once the turn settles.
	currentTurnSpeed := 0.0
	if a.TurnRemaining() != 0 {
		currentTurnSpeed = math.Min(a.turnSpeed, math.Abs(a.TurnRemaining())/TimePerTick)
	}
	if currentTurnSpeed > fastTurnBlindSpeed {
		a.fastTurning = true
		a.currentViewRange = 0
	} else if a.fastTurning {
		if float64(a.turnBlindTicks)*TimePerTick < fastTurnBlindAfter {
			a.currentViewRange = 0
			a.turnBlindTicks++
		} else {
			a.currentViewRange = a.viewRange
			a.fastTurning = false
			a.turnBlindTicks = 0
		}
	}

	// An agent that keeps moving through shade settles in and becomes hard
	// to spot from afar.
	vm := a.view.VisionModifier(tile.X, tile.Y)
	if vm < 1.0 && a.moveTarget != 0 {
		if float64(a.decVisionTicks)*TimePerTick > lowVisionSettleTime {
			a.visibilityRange = decreasedVisibility
		}
		a.decVisionTicks++
	} else {
		a.decVisionTicks = 0
		a.visibilityRange = a.towerViewRange
	}

	headingDelta := math.Abs(NormalizeHeading(a.heading - a.lastHeading))
	if force || tile != a.lastTile || headingDelta > headingRevealDelta || a.inTower {
		a.lastTile = tile
		a.view.RevealVisible(tile.X, tile.Y, a.currentViewRange*vm, a.viewAngle, a.heading, a.inTower)
		a.lastHeading = a.heading
		return true
	}
	return false
}

// updateSprint enforces the sprint duration limit and the forced rest.
func (a *Agent) updateSprint() {
	if !a.canSprint {
		return
	}
	if a.IsSprinting() && float64(a.world.timeTicks-a.sprintStartTick) > sprintDuration/TimePerTick {
		a.sprintStopTick = a.world.timeTicks
	}
	if a.IsResting() {
		a.moveSpeed = 0
	}
}

// processMovement executes the queued turn and move commands for this tick
// and rolls the self-noise emission.
func (a *Agent) processMovement() {
	a.updateSprint()

	turnSpeed := a.turnSpeed
	if a.IsSprinting() {
		turnSpeed = sprintTurnSpeed
	}

	if r := a.TurnRemaining(); r != 0 {
		step := math.Copysign(math.Min(TimePerTick*turnSpeed, math.Abs(r)), r)
		a.heading = NormalizeHeading(a.heading + step)
	}

	if a.moveTarget != 0 {
		distance := math.Copysign(math.Min(TimePerTick*a.moveSpeed, math.Abs(a.moveTarget)), a.moveTarget)
		a.location = a.location.Moved(distance, a.heading)
		a.moveTarget -= distance
	}

	a.makeNoise()
}

// makeNoise rolls the per-tick self-noise emission. The chance matches the
// ambient rate; the radius depends on the current speed band, and a zero
// radius (standing still) emits nothing.
func (a *Agent) makeNoise() {
	w := a.world
	perSecond := (ambientEventRate / 60) * float64(w.gameMap.Width()*w.gameMap.Height()) / 25
	if w.rng.Float64() >= perSecond*TimePerTick {
		return
	}
	radius := noiseRadiusForSpeed(a.moveSpeed)
	if radius <= 0 {
		return
	}
	w.AddNoise(&NoiseEvent{Location: a.location, Source: a, Radius: radius})
}
