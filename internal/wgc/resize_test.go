package wgc

import "testing"

func TestNeedsRecreateWindowTargetNoChange(t *testing.T) {
	geo := &Geometry{FrameWidth: 800, FrameHeight: 600}
	_, _, ok := NeedsRecreate(true, 800, 600, geo, 0, 0)
	if ok {
		t.Fatalf("expected no recreate when geometry matches pool size")
	}
}

func TestNeedsRecreateWindowTargetChanged(t *testing.T) {
	geo := &Geometry{FrameWidth: 1024, FrameHeight: 768}
	w, h, ok := NeedsRecreate(true, 800, 600, geo, 0, 0)
	if !ok || w != 1024 || h != 768 {
		t.Fatalf("NeedsRecreate = (%d,%d,%v), want (1024,768,true)", w, h, ok)
	}
}

func TestNeedsRecreateWindowTargetNilGeometry(t *testing.T) {
	_, _, ok := NeedsRecreate(true, 800, 600, nil, 9999, 9999)
	if ok {
		t.Fatalf("nil geometry (minimized/query failed) must never trigger recreate")
	}
}

func TestNeedsRecreateMonitorTargetChanged(t *testing.T) {
	w, h, ok := NeedsRecreate(false, 1920, 1080, nil, 2560, 1440)
	if !ok || w != 2560 || h != 1440 {
		t.Fatalf("NeedsRecreate = (%d,%d,%v), want (2560,1440,true)", w, h, ok)
	}
}

func TestNeedsRecreateMonitorTargetZeroIgnored(t *testing.T) {
	_, _, ok := NeedsRecreate(false, 1920, 1080, nil, 0, 0)
	if ok {
		t.Fatalf("zero content size must be ignored, not treated as a resize")
	}
}

func TestNeedsRecreateMonitorTargetUnchanged(t *testing.T) {
	_, _, ok := NeedsRecreate(false, 1920, 1080, nil, 1920, 1080)
	if ok {
		t.Fatalf("expected no recreate when content size matches pool size")
	}
}
