package winrank

import "testing"

func TestScoreVisibleBeatsHidden(t *testing.T) {
	visible := Window{Visible: true}
	hidden := Window{Visible: false}
	if Score(visible) <= Score(hidden) {
		t.Fatalf("visible window should outscore hidden: %v <= %v", Score(visible), Score(hidden))
	}
}

func TestScoreToolWindowPenalized(t *testing.T) {
	normal := Window{Visible: true, ToolWindow: false}
	tool := Window{Visible: true, ToolWindow: true}
	if Score(normal) <= Score(tool) {
		t.Fatalf("non-tool window should outscore tool window")
	}
}

func TestScoreMinimizedPenalized(t *testing.T) {
	normal := Window{Visible: true, Minimized: false}
	minimized := Window{Visible: true, Minimized: true}
	if Score(normal) <= Score(minimized) {
		t.Fatalf("non-minimized window should outscore minimized")
	}
}

func TestScoreAreaCapped(t *testing.T) {
	huge := Window{Visible: true, Width: 100000, Height: 100000}
	big := Window{Visible: true, Width: 10000, Height: 10000} // area/10000 = 10000, capped to 5000
	if Score(huge) != Score(big) {
		t.Fatalf("area term should be capped at 5000: huge=%v big=%v", Score(huge), Score(big))
	}
}

func TestRankTieBreaksByAreaThenHandle(t *testing.T) {
	// All three hit the area cap, so their scores tie and the order comes
	// from the tie-breaks alone.
	a := Window{Handle: 2, Visible: true, Width: 80000, Height: 80000}
	b := Window{Handle: 1, Visible: true, Width: 100000, Height: 100000}
	c := Window{Handle: 3, Visible: true, Width: 80000, Height: 80000}

	ranked := Rank([]Window{a, b, c})
	if ranked[0].Handle != 1 {
		t.Fatalf("expected larger-area window first, got handle %d", ranked[0].Handle)
	}
	// a and c tie on area; lower handle wins.
	if ranked[1].Handle != 2 || ranked[2].Handle != 3 {
		t.Fatalf("expected handle tie-break ascending, got %d, %d", ranked[1].Handle, ranked[2].Handle)
	}
}

func TestRankOverallOrdering(t *testing.T) {
	visible := Window{Handle: 1, Visible: true, Width: 500, Height: 500}
	minimized := Window{Handle: 2, Visible: true, Minimized: true, Width: 500, Height: 500}
	tool := Window{Handle: 3, Visible: true, ToolWindow: true, Width: 500, Height: 500}
	hidden := Window{Handle: 4, Visible: false, Width: 500, Height: 500}

	ranked := Rank([]Window{hidden, tool, minimized, visible})
	if ranked[0].Handle != 1 {
		t.Fatalf("expected fully-qualified window to rank first, got %d", ranked[0].Handle)
	}
	if ranked[len(ranked)-1].Handle != 4 {
		t.Fatalf("expected hidden window to rank last, got %d", ranked[len(ranked)-1].Handle)
	}
}
