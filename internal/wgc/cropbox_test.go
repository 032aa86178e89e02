package wgc

import "testing"

func TestComputeClientBoxSimpleInset(t *testing.T) {
	extended := Rect{Left: 100, Top: 100, Right: 500, Bottom: 400}
	origin := Point{X: 108, Y: 132} // 8px border, 32px title bar
	box, ok := ComputeClientBox(extended, origin, 384, 260, 400, 300)
	if !ok {
		t.Fatalf("expected ok")
	}
	if box.Left != 8 || box.Top != 32 {
		t.Fatalf("box origin = (%d,%d), want (8,32)", box.Left, box.Top)
	}
	if box.Width() != 384 || box.Height() != 260 {
		t.Fatalf("box size = %dx%d, want 384x260", box.Width(), box.Height())
	}
}

func TestComputeClientBoxClampsToTexture(t *testing.T) {
	extended := Rect{Left: 0, Top: 0, Right: 400, Bottom: 300}
	origin := Point{X: 8, Y: 32}
	// client rect claims to be bigger than the texture can support
	box, ok := ComputeClientBox(extended, origin, 1000, 1000, 400, 300)
	if !ok {
		t.Fatalf("expected ok")
	}
	if box.Width() != 400-8 || box.Height() != 300-32 {
		t.Fatalf("box = %dx%d, want clamped to texture bounds", box.Width(), box.Height())
	}
}

func TestComputeClientBoxOutsideTextureFails(t *testing.T) {
	extended := Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	origin := Point{X: 500, Y: 500}
	_, ok := ComputeClientBox(extended, origin, 50, 50, 100, 100)
	if ok {
		t.Fatalf("expected not ok for origin outside texture")
	}
}

func TestComputeClientBoxDegenerateFails(t *testing.T) {
	extended := Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	origin := Point{X: 0, Y: 0}
	_, ok := ComputeClientBox(extended, origin, 0, 0, 100, 100)
	if ok {
		t.Fatalf("expected not ok for zero-size client rect")
	}
}

func TestComputeClientBoxExactFit(t *testing.T) {
	extended := Rect{Left: 0, Top: 0, Right: 200, Bottom: 200}
	origin := Point{X: 0, Y: 0}
	box, ok := ComputeClientBox(extended, origin, 200, 200, 200, 200)
	if !ok {
		t.Fatalf("expected ok")
	}
	if box != (Box{0, 0, 200, 200}) {
		t.Fatalf("box = %+v, want full-texture box", box)
	}
}
