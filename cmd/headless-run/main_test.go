package main

import (
	"testing"

	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/sim"
	"github.com/Evelyn-H/Multi-Agent-Surveillance/internal/strategy"
)

func TestFiveNumber(t *testing.T) {
	q := fiveNumber([]float64{4, 1, 3, 2, 5})
	want := [5]float64{1, 2, 3, 4, 5}
	if q != want {
		t.Errorf("fiveNumber = %v, want %v", q, want)
	}

	q = fiveNumber([]float64{10})
	for i, v := range q {
		if v != 10 {
			t.Errorf("singleton q[%d] = %v, want 10", i, v)
		}
	}
}

func TestBuildRosterFromCounts(t *testing.T) {
	conf := sim.DefaultUserConfig()
	conf.Agents.Guards = 2
	conf.Agents.Intruders = 1
	roster, err := buildRoster(conf)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		strategy.TagPatrollingGuard,
		strategy.TagPatrollingGuard,
		strategy.TagPathfindingIntruder,
	}
	if len(roster) != len(want) {
		t.Fatalf("roster = %v", roster)
	}
	for i := range want {
		if roster[i] != want[i] {
			t.Errorf("roster[%d] = %q, want %q", i, roster[i], want[i])
		}
	}
}
