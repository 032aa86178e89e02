// Package bufferpool implements the elastic, slab-grouped byte buffer pool
// backing readback output for the capture pipeline.
//
// Buffers are grouped into slabs ("groups") so that shrinking the pool never
// invalidates a loan outstanding against an older group. Acquire is LIFO
// within the most recently appended non-empty group, favoring cache
// locality for the steady-state case where frame size doesn't change.
package bufferpool

import "sync"

const (
	initialFrames = 3
	smallStep     = 5
	largeStep     = 10
	stepSwitch    = 20
	highWatermark = 8
	shrinkStreak  = 10
)

// Stats is a snapshot of pool counters, exposed for diagnostics.
type Stats struct {
	TotalFrames  int
	FreeFrames   int
	ExpandCount  int
	ShrinkCount  int
	AcquireCount int
	AllocCount   int
}

// ReuseRate returns 1 - allocCount/acquireCount, clamped to 0 when no
// acquires have happened yet.
func (s Stats) ReuseRate() float64 {
	if s.AcquireCount == 0 {
		return 0
	}
	return 1 - float64(s.AllocCount)/float64(s.AcquireCount)
}

type group struct {
	size     int
	borrowed int
	free     [][]byte // LIFO
}

func newGroup(size, frameBytes int) *group {
	g := &group{size: size, free: make([][]byte, 0, size)}
	for i := 0; i < size; i++ {
		g.free = append(g.free, make([]byte, frameBytes))
	}
	return g
}

func (g *group) isFullyFree() bool {
	return g.borrowed == 0 && len(g.free) == g.size
}

// Pool is a fixed-frame-size elastic pool of byte buffers grouped into
// slabs. Safe for concurrent use; a Buffer handle may be released from a
// goroutine other than the one that acquired it.
type Pool struct {
	frameBytes int

	mu            sync.Mutex
	groups        []*group
	totalFrames   int
	releaseStreak int
	expandCount   int
	shrinkCount   int
	acquireCount  int
	allocCount    int
}

// New creates a pool with one initial group of initialFrames buffers, each
// frameBytes long.
func New(frameBytes int) *Pool {
	p := &Pool{frameBytes: frameBytes}
	p.groups = []*group{newGroup(initialFrames, frameBytes)}
	p.totalFrames = initialFrames
	p.allocCount = initialFrames
	return p
}

func (p *Pool) freeFrames() int {
	total := 0
	for _, g := range p.groups {
		total += len(g.free)
	}
	return total
}

func (p *Pool) currentStep() int {
	if p.totalFrames < stepSwitch {
		return smallStep
	}
	return largeStep
}

func (p *Pool) lowWatermark() int {
	step := p.currentStep()
	wm := (step*4 + 9) / 10 // ceil(step * 0.4)
	if wm < 2 {
		return 2
	}
	return wm
}

// Buffer is a single rented byte buffer. The zero value is not usable;
// obtain one via Pool.Acquire. Release returns it to its owning group.
type Buffer struct {
	data     []byte
	groupIdx int
	pool     *Pool
	released bool
}

// Bytes returns the rented slice, truncated/extended by the caller as
// needed before Release.
func (b *Buffer) Bytes() []byte { return b.data }

// SetBytes replaces the buffer's live slice (e.g. after truncating to the
// exact readback size). The backing array must have originated from this
// buffer or be resizable into frameBytes on Release.
func (b *Buffer) SetBytes(data []byte) { b.data = data }

// Release returns the buffer to its owning group. Safe to call once; a
// second call is a no-op.
func (b *Buffer) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.pool.release(b.groupIdx, b.data)
}

// Acquire rents one buffer, expanding the pool first if free capacity has
// dropped below the low watermark.
func (p *Pool) Acquire() *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.acquireCount++

	if p.freeFrames() < p.lowWatermark() {
		step := p.currentStep()
		p.groups = append(p.groups, newGroup(step, p.frameBytes))
		p.totalFrames += step
		p.expandCount++
		p.allocCount += step
	}

	for i := len(p.groups) - 1; i >= 0; i-- {
		g := p.groups[i]
		n := len(g.free)
		if n == 0 {
			continue
		}
		data := g.free[n-1]
		g.free = g.free[:n-1]
		g.borrowed++
		return &Buffer{data: data, groupIdx: i, pool: p}
	}

	// Defensive fallback: should be unreachable given the watermark check above.
	p.allocCount++
	return &Buffer{data: make([]byte, p.frameBytes), groupIdx: len(p.groups) - 1, pool: p}
}

func (p *Pool) release(groupIdx int, data []byte) {
	if len(data) != p.frameBytes {
		resized := make([]byte, p.frameBytes)
		copy(resized, data)
		data = resized
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if groupIdx >= 0 && groupIdx < len(p.groups) {
		g := p.groups[groupIdx]
		if g.borrowed > 0 {
			g.borrowed--
		}
		g.free = append(g.free, data)
	}

	canShrink := p.freeFrames() >= highWatermark &&
		len(p.groups) > 1 &&
		p.groups[len(p.groups)-1].isFullyFree() &&
		p.totalFrames > initialFrames

	if canShrink {
		p.releaseStreak++
		if p.releaseStreak >= shrinkStreak {
			last := p.groups[len(p.groups)-1]
			p.groups = p.groups[:len(p.groups)-1]
			p.totalFrames -= last.size
			p.shrinkCount++
			p.releaseStreak = 0
		}
	} else {
		p.releaseStreak = 0
	}
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		TotalFrames:  p.totalFrames,
		FreeFrames:   p.freeFrames(),
		ExpandCount:  p.expandCount,
		ShrinkCount:  p.shrinkCount,
		AcquireCount: p.acquireCount,
		AllocCount:   p.allocCount,
	}
}

// FrameBytes returns the fixed per-buffer size this pool was created with.
func (p *Pool) FrameBytes() int { return p.frameBytes }
