package bufferpool

import "testing"

func TestNewHasInitialCapacity(t *testing.T) {
	p := New(1024)
	stats := p.Stats()
	if stats.TotalFrames != initialFrames {
		t.Fatalf("total frames: got %d, want %d", stats.TotalFrames, initialFrames)
	}
	if stats.FreeFrames != initialFrames {
		t.Fatalf("free frames: got %d, want %d", stats.FreeFrames, initialFrames)
	}
}

func TestAcquireExpandsOnLowWatermark(t *testing.T) {
	p := New(1024)
	a := p.Acquire()
	b := p.Acquire()
	// Third acquire finds 1 free buffer, below the low watermark
	// (ceil(5*0.4)=2), so the pool expands before the buffer is handed out.
	c := p.Acquire()

	stats := p.Stats()
	if stats.TotalFrames < initialFrames+smallStep {
		t.Fatalf("expected pool to expand, total=%d", stats.TotalFrames)
	}
	if stats.ExpandCount < 1 {
		t.Fatalf("expected at least one expand, got %d", stats.ExpandCount)
	}

	a.Release()
	b.Release()
	c.Release()
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := New(64)
	before := p.Stats()

	const n = 50
	bufs := make([]*Buffer, n)
	for i := range bufs {
		bufs[i] = p.Acquire()
	}
	for _, b := range bufs {
		b.Release()
	}

	after := p.Stats()
	if after.TotalFrames < initialFrames {
		t.Fatalf("total frames dropped below initial: %d", after.TotalFrames)
	}
	if after.AcquireCount != before.AcquireCount+n {
		t.Fatalf("acquire count: got %d, want %d", after.AcquireCount, before.AcquireCount+n)
	}
}

func TestGroupInvariantAfterRelease(t *testing.T) {
	p := New(64)
	bufs := make([]*Buffer, 12)
	for i := range bufs {
		bufs[i] = p.Acquire()
	}
	for _, b := range bufs {
		b.Release()
	}

	p.mu.Lock()
	for idx, g := range p.groups {
		if g.borrowed+len(g.free) != g.size {
			t.Fatalf("group %d invariant violated: borrowed=%d free=%d size=%d", idx, g.borrowed, len(g.free), g.size)
		}
	}
	p.mu.Unlock()
}

func TestShrinkRequiresSustainedStreak(t *testing.T) {
	p := New(32)

	// Grow the pool well past the initial size.
	var grown []*Buffer
	for i := 0; i < 40; i++ {
		grown = append(grown, p.Acquire())
	}
	for _, b := range grown {
		b.Release()
	}

	statsBeforeShrink := p.Stats()
	if statsBeforeShrink.TotalFrames <= initialFrames {
		t.Fatalf("expected pool to have grown, got %d", statsBeforeShrink.TotalFrames)
	}

	// Repeatedly acquire+release a single buffer; each release checks the
	// shrink condition and only actually shrinks after shrinkStreak hits.
	for i := 0; i < shrinkStreak+5; i++ {
		b := p.Acquire()
		b.Release()
	}

	after := p.Stats()
	if after.TotalFrames >= statsBeforeShrink.TotalFrames {
		t.Fatalf("expected pool to shrink after sustained idle releases: before=%d after=%d",
			statsBeforeShrink.TotalFrames, after.TotalFrames)
	}
	if after.ShrinkCount < 1 {
		t.Fatalf("expected shrink_count >= 1, got %d", after.ShrinkCount)
	}
}

func TestAllocCountOverwhelminglyReused(t *testing.T) {
	p := New(64)
	for i := 0; i < 100; i++ {
		b := p.Acquire()
		b.Release()
	}
	stats := p.Stats()
	if stats.AllocCount > stats.TotalFrames+1 {
		t.Fatalf("alloc_count=%d exceeds total_frames+1=%d", stats.AllocCount, stats.TotalFrames+1)
	}
}

func TestReuseRateZeroWithNoAcquires(t *testing.T) {
	var s Stats
	if got := s.ReuseRate(); got != 0 {
		t.Fatalf("reuse rate with no acquires: got %v, want 0", got)
	}
}

func TestReleaseResizesTruncatedBuffer(t *testing.T) {
	p := New(16)
	b := p.Acquire()
	b.SetBytes(b.Bytes()[:4]) // simulate truncation to exact readback size
	b.Release()

	b2 := p.Acquire()
	if len(b2.Bytes()) != 16 {
		t.Fatalf("expected released buffer to be restored to frame size 16, got %d", len(b2.Bytes()))
	}
	b2.Release()
}
