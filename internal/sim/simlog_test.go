package sim

import "testing"

func TestSimLogQueries(t *testing.T) {
	sl := NewSimLog(false)
	sl.Add(1, "G1", "game", "captured", "by G2", 0)
	sl.Add(2, "I1", "game", "target_visit", "", 1)
	sl.Add(5, "I1", "game", "target_visit", "", 2)
	sl.Add(5, "--", "game", "finished", "intruders_win", 0.3)
	sl.AddVerbose(6, "G1", "move", "position", "(1,2)", 0) // dropped: not verbose

	if len(sl.Entries()) != 4 {
		t.Fatalf("entries = %d, want 4", len(sl.Entries()))
	}
	if got := sl.CountCategory("game", "target_visit"); got != 2 {
		t.Errorf("target visits = %d, want 2", got)
	}
	if got := len(sl.Filter("game", "")); got != 4 {
		t.Errorf("category filter = %d, want 4", got)
	}
	if got := len(sl.FilterAgent("I1")); got != 2 {
		t.Errorf("agent filter = %d, want 2", got)
	}
	last, ok := sl.LastOf("game", "target_visit")
	if !ok || last.NumVal != 2 {
		t.Errorf("last target visit = %+v", last)
	}
	if !sl.HasEntry("game", "finished", "intruders") {
		t.Error("finished entry should match by substring")
	}
	if sl.HasEntry("game", "finished", "guards") {
		t.Error("substring must actually match")
	}
}

func TestSimLogVerbose(t *testing.T) {
	sl := NewSimLog(true)
	sl.AddVerbose(1, "G1", "move", "position", "(1,2)", 0)
	if len(sl.Entries()) != 1 {
		t.Error("verbose log should record verbose entries")
	}
}
