package sim

import (
	"math/rand"
	"testing"
)

func TestMapBounds(t *testing.T) {
	m := NewMap(10, 8)
	if !m.InBounds(0, 0) || !m.InBounds(9, 7) {
		t.Error("corners should be in bounds")
	}
	if m.InBounds(-1, 0) || m.InBounds(10, 0) || m.InBounds(0, 8) {
		t.Error("out-of-bounds cells reported in bounds")
	}
	// Out-of-bounds queries count as walls.
	if !m.IsWall(-1, 4) || !m.IsWall(10, 4) || !m.IsWall(4, -1) || !m.IsWall(4, 8) {
		t.Error("out-of-bounds cells must be walls")
	}
	if m.IsWall(4, 4) {
		t.Error("fresh map should have no interior walls")
	}
}

func TestSetWallRectangleEdgesOnly(t *testing.T) {
	m := NewMap(10, 10)
	m.SetWallRectangle(6, 7, 2, 3, true) // corners in any order

	for x := 2; x <= 6; x++ {
		if !m.IsWall(x, 3) || !m.IsWall(x, 7) {
			t.Errorf("edge cell (%d, 3/7) should be wall", x)
		}
	}
	for y := 3; y <= 7; y++ {
		if !m.IsWall(2, y) || !m.IsWall(6, y) {
			t.Errorf("edge cell (2/6, %d) should be wall", y)
		}
	}
	// Interior stays open.
	for x := 3; x <= 5; x++ {
		for y := 4; y <= 6; y++ {
			if m.IsWall(x, y) {
				t.Errorf("interior cell (%d, %d) should stay open", x, y)
			}
		}
	}
}

func TestSetVisionArea(t *testing.T) {
	m := NewMap(10, 10)
	m.SetVisionArea(5, 5, 2, 2, 0.4)
	for x := 2; x <= 5; x++ {
		for y := 2; y <= 5; y++ {
			if m.VisionModifier(x, y) != 0.4 {
				t.Errorf("cell (%d, %d) modifier = %v, want 0.4", x, y, m.VisionModifier(x, y))
			}
		}
	}
	if m.VisionModifier(6, 6) != 1.0 {
		t.Error("cells outside the area must keep modifier 1.0")
	}
	// Values clamp into [0, 1]; out of bounds reads 1.0.
	m.SetVision(1, 1, 3.0)
	if m.VisionModifier(1, 1) != 1.0 {
		t.Error("modifier should clamp to 1.0")
	}
	m.SetVision(1, 1, -2.0)
	if m.VisionModifier(1, 1) != 0.0 {
		t.Error("modifier should clamp to 0.0")
	}
	if m.VisionModifier(-5, 0) != 1.0 {
		t.Error("out-of-bounds modifier should read 1.0")
	}
}

func TestTargetAndTowerRemovalByManhattanDistance(t *testing.T) {
	m := NewMap(20, 20)
	m.AddTarget(10, 10)
	m.RemoveTarget(11, 11) // manhattan 2, matches
	if len(m.Targets()) != 0 {
		t.Error("target within manhattan distance 2 should be removed")
	}

	m.AddTarget(10, 10)
	m.RemoveTarget(12, 11) // manhattan 3, no match
	if len(m.Targets()) != 1 {
		t.Error("target beyond manhattan distance 2 should remain")
	}

	m.AddTower(5, 5)
	m.AddTower(5, 8)
	m.RemoveTower(5, 7) // matches the second tower only
	if len(m.Towers()) != 1 || m.Towers()[0] != Pos(5, 5) {
		t.Errorf("towers after removal = %v", m.Towers())
	}
}

func TestGenerateRandomMap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := GenerateRandomMap(40, 30, rng)

	if len(m.Targets()) != genNumTargets {
		t.Errorf("targets = %d, want %d", len(m.Targets()), genNumTargets)
	}
	if len(m.Towers()) != genNumTowers {
		t.Errorf("towers = %d, want %d", len(m.Towers()), genNumTowers)
	}
	// Border stays fully walled.
	for x := 0; x < 40; x++ {
		if !m.IsWall(x, 0) || !m.IsWall(x, 29) {
			t.Fatalf("border cell (%d, 0/29) open", x)
		}
	}
	// Same seed, same layout.
	m2 := GenerateRandomMap(40, 30, rand.New(rand.NewSource(7)))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			if m.IsWall(x, y) != m2.IsWall(x, y) {
				t.Fatalf("generation not deterministic at (%d, %d)", x, y)
			}
		}
	}
}
