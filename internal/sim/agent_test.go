package sim

import (
	"errors"
	"math"
	"testing"
)

// singleAgentSim builds a 20x20 world holding one agent driven by ctrl.
func singleAgentSim(t *testing.T, ctrl Controller, opts ...SimOption) (*TestSim, *Agent) {
	t.Helper()
	ts := NewTestSim(append([]SimOption{
		WithMapSize(20, 20),
		WithSeed(5),
		WithGuard(ctrl),
	}, opts...)...)
	mustSetup(t, ts)
	return ts, ts.World.Agents()[0]
}

func TestTurnStepsAtTurnSpeed(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	issued := false
	ctrl.tick = func(a *Agent, seen []AgentView) {
		if !issued {
			a.Turn(90)
			issued = true
		}
	}
	ts, a := singleAgentSim(t, ctrl)

	// 180 deg/s at 20 ticks/s is 9 degrees per tick.
	ts.World.Tick()
	if !almostEqual(a.Heading(), 9, eps) {
		t.Errorf("heading after one tick = %v, want 9", a.Heading())
	}
	for i := 0; i < 9; i++ {
		ts.World.Tick()
	}
	if !almostEqual(a.Heading(), 90, eps) {
		t.Errorf("heading after ten ticks = %v, want 90", a.Heading())
	}
	if a.TurnRemaining() != 0 {
		t.Errorf("turn remaining = %v, want 0", a.TurnRemaining())
	}
}

func TestMoveClampsToSpeed(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	issued := false
	ctrl.tick = func(a *Agent, seen []AgentView) {
		if !issued {
			a.Move(1)
			issued = true
		}
	}
	ts, a := singleAgentSim(t, ctrl)

	ts.World.Tick()
	want := 10.5 + defaultBaseSpeed*TimePerTick
	if !almostEqual(a.Location().Y(), want, eps) {
		t.Errorf("y after one tick = %v, want %v", a.Location().Y(), want)
	}
	// The remaining distance shrinks by what was travelled.
	if !almostEqual(a.MoveRemaining(), 1-defaultBaseSpeed*TimePerTick, eps) {
		t.Errorf("move remaining = %v", a.MoveRemaining())
	}
	// Finish the move; the agent stops exactly at the requested distance.
	for i := 0; i < 30; i++ {
		ts.World.Tick()
	}
	if !almostEqual(a.Location().Y(), 11.5, eps) {
		t.Errorf("final y = %v, want 11.5", a.Location().Y())
	}
}

func TestTurnToPoint(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	_, a := singleAgentSim(t, ctrl)

	a.TurnToPoint(Pos(14.5, 10.5))
	if !almostEqual(a.TurnRemaining(), 90, eps) {
		t.Errorf("turn remaining toward +x = %v, want 90", a.TurnRemaining())
	}
	// Turning to the spot under your feet keeps the heading.
	a.TurnToPoint(a.Location())
	if a.TurnRemaining() != 0 {
		t.Errorf("turn remaining toward self = %v, want 0", a.TurnRemaining())
	}
}

func TestSetMovementSpeedBounds(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	_, a := singleAgentSim(t, ctrl)

	if err := a.SetMovementSpeed(-0.1); !errors.Is(err, ErrBadSpeed) {
		t.Errorf("negative speed error = %v, want ErrBadSpeed", err)
	}
	if err := a.SetMovementSpeed(3.5); !errors.Is(err, ErrBadSpeed) {
		t.Errorf("overspeed error = %v, want ErrBadSpeed", err)
	}
	if err := a.SetMovementSpeed(2.0); err != nil {
		t.Errorf("valid speed error = %v", err)
	}
	if a.MoveSpeed() != 2.0 {
		t.Errorf("move speed = %v, want 2", a.MoveSpeed())
	}
}

func TestSprintDurationAndRest(t *testing.T) {
	ctrl := &scriptedController{start: Pos(5.5, 5.5)}
	keepMoving := func(a *Agent, seen []AgentView) {
		if a.MoveRemaining() == 0 {
			a.Move(50)
		}
	}
	ctrl.tick = keepMoving
	ts := NewTestSim(WithMapSize(60, 60), WithSeed(5), WithIntruder(ctrl))
	mustSetup(t, ts)
	a := ts.World.Agents()[0]

	if err := a.SetMovementSpeed(3); err != nil {
		t.Fatalf("sprint: %v", err)
	}
	if !a.IsSprinting() {
		t.Fatal("agent should be sprinting")
	}

	// Sprint hard-stops after its maximum duration and the rest kicks in.
	for i := 0; i <= int(sprintDuration/TimePerTick)+2; i++ {
		ts.World.Tick()
	}
	if a.IsSprinting() {
		t.Error("sprint should have timed out")
	}
	if !a.IsResting() {
		t.Error("agent should be resting after the sprint")
	}
	if a.MoveSpeed() != 0 {
		t.Errorf("resting move speed = %v, want 0", a.MoveSpeed())
	}
	// Speed changes are ignored while resting.
	if err := a.SetMovementSpeed(2); err != nil {
		t.Errorf("set speed while resting returned %v", err)
	}
	if a.MoveSpeed() != 0 {
		t.Error("speed must stay 0 while resting")
	}

	// After the rest window the agent recovers.
	for i := 0; i <= int(sprintRestDuration/TimePerTick)+2; i++ {
		ts.World.Tick()
	}
	if a.IsResting() {
		t.Error("rest should be over")
	}
	if err := a.SetMovementSpeed(2); err != nil || a.MoveSpeed() != 2 {
		t.Errorf("post-rest speed = %v (err %v), want 2", a.MoveSpeed(), err)
	}
}

func TestGuardCannotSprintTimeout(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	ts, a := singleAgentSim(t, ctrl)

	// Guards may set any legal speed; without the sprint capability the
	// timeout machinery never forces a rest.
	if err := a.SetMovementSpeed(3); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < int(sprintDuration/TimePerTick)*2; i++ {
		ts.World.Tick()
	}
	if a.MoveSpeed() != 3 {
		t.Errorf("guard speed = %v, want 3 (no sprint timeout)", a.MoveSpeed())
	}
}

func TestTowerEnterLeaveCycle(t *testing.T) {
	ctrl := &scriptedController{start: Pos(5.5, 5.5)}
	ts := NewTestSim(
		WithMapSize(20, 20),
		WithSeed(5),
		WithTower(5, 5),
		WithGuard(ctrl),
	)
	mustSetup(t, ts)
	a := ts.World.Agents()[0]

	if !a.EnterTower() {
		t.Fatal("tower in reach, enter should succeed")
	}
	// Double entry while transitioning is refused with no state change.
	if a.EnterTower() {
		t.Error("duplicate enter must return false")
	}
	if a.LeaveTower() {
		t.Error("leave during the transition must return false")
	}
	if !a.IsDeaf() || !a.InTower() {
		t.Error("transitioning agent should be deaf and flagged in-tower")
	}
	if a.MoveSpeed() != 0 {
		t.Error("agent in tower transition must not move")
	}

	// After the transition the tower vision applies.
	transitionTicks := int(towerInteractionTime/TimePerTick) + 1
	for i := 0; i < transitionTicks; i++ {
		ts.World.Tick()
	}
	if a.IsDeaf() {
		t.Error("hearing should return after the transition")
	}
	if a.currentViewRange != a.towerViewRange {
		t.Errorf("view range = %v, want tower range %v", a.currentViewRange, a.towerViewRange)
	}
	if a.viewAngle != a.towerViewAngle {
		t.Errorf("view angle = %v, want tower angle %v", a.viewAngle, a.towerViewAngle)
	}

	// Climb back down: dual transition, then ground vision again.
	if !a.LeaveTower() {
		t.Fatal("leave should succeed once settled")
	}
	if a.EnterTower() {
		t.Error("enter during the leave transition must return false")
	}
	for i := 0; i < transitionTicks; i++ {
		ts.World.Tick()
	}
	if a.InTower() || a.IsDeaf() {
		t.Error("agent should be back on the ground")
	}
	if a.currentViewRange != a.viewRange || a.viewAngle != a.baseViewAngle {
		t.Error("ground vision should be restored")
	}
	if a.MoveSpeed() != a.BaseSpeed() {
		t.Errorf("ground move speed = %v, want base %v", a.MoveSpeed(), a.BaseSpeed())
	}
}

func TestTowerOutOfReach(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	ts := NewTestSim(
		WithMapSize(20, 20),
		WithSeed(5),
		WithTower(5, 5),
		WithGuard(ctrl),
	)
	mustSetup(t, ts)
	if ts.World.Agents()[0].EnterTower() {
		t.Error("tower far away, enter must fail")
	}
}

func TestFastTurnBlindness(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	issued := false
	ctrl.tick = func(a *Agent, seen []AgentView) {
		if !issued {
			a.Turn(180)
			issued = true
		}
	}
	ts, a := singleAgentSim(t, ctrl)

	// The turn is queued during the first tick; the vision update of the
	// next tick notices the fast turn and blanks vision.
	ts.World.Tick()
	ts.World.Tick()
	if a.currentViewRange != 0 {
		t.Errorf("view range during fast turn = %v, want 0", a.currentViewRange)
	}
	// Finish the turn (1 second) plus the half-second afterblindness.
	for i := 0; i < int((1.0+fastTurnBlindAfter)/TimePerTick)+2; i++ {
		ts.World.Tick()
	}
	if a.currentViewRange != a.viewRange {
		t.Errorf("view range after recovery = %v, want %v", a.currentViewRange, a.viewRange)
	}
}

func TestLowVisionTileReducesVisibility(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 2.5)}
	ctrl.tick = func(a *Agent, seen []AgentView) {
		if a.MoveRemaining() == 0 {
			a.Move(30)
		}
	}
	ts := NewTestSim(
		WithMapSize(40, 40),
		WithSeed(5),
		WithVisionArea(0, 0, 39, 39, 0.5),
		WithGuard(ctrl),
	)
	mustSetup(t, ts)
	a := ts.World.Agents()[0]

	if a.visibilityRange != defaultTowerRange {
		t.Fatalf("initial visibility = %v, want %v", a.visibilityRange, defaultTowerRange)
	}
	// Keep moving through shade for just over the settle time.
	for i := 0; i < int(lowVisionSettleTime/TimePerTick)+3; i++ {
		ts.World.Tick()
	}
	if a.visibilityRange != decreasedVisibility {
		t.Errorf("visibility after settling = %v, want %v", a.visibilityRange, decreasedVisibility)
	}

	// Standing still resets it.
	ctrl.tick = nil
	a.Move(0)
	ts.World.Tick()
	if a.visibilityRange != defaultTowerRange {
		t.Errorf("visibility after stopping = %v, want %v", a.visibilityRange, defaultTowerRange)
	}
}

func TestHeadingStaysNormalized(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	ctrl.tick = func(a *Agent, seen []AgentView) {
		if a.TurnRemaining() == 0 {
			a.Turn(170)
		}
	}
	ts, a := singleAgentSim(t, ctrl)
	for i := 0; i < 200; i++ {
		ts.World.Tick()
		if h := a.Heading(); h <= -180 || h > 180 {
			t.Fatalf("tick %d: heading %v outside (-180, 180]", i, h)
		}
	}
}

func TestMovedBackwards(t *testing.T) {
	ctrl := &scriptedController{start: Pos(10.5, 10.5)}
	issued := false
	ctrl.tick = func(a *Agent, seen []AgentView) {
		if !issued {
			a.Move(-1)
			issued = true
		}
	}
	ts, a := singleAgentSim(t, ctrl)
	for i := 0; i < 30; i++ {
		ts.World.Tick()
	}
	if !almostEqual(a.Location().Y(), 9.5, eps) {
		t.Errorf("backwards move ended at y=%v, want 9.5", a.Location().Y())
	}
	if math.Abs(a.Location().X()-10.5) > eps {
		t.Errorf("backwards move drifted in x: %v", a.Location().X())
	}
}
