package hdrcapture

import "github.com/LDNKS094/hdrcapture/internal/bufferpool"

// CapturedFrame is one readback result: a shared, reference-counted byte
// buffer plus the metadata needed to interpret it. Copying a CapturedFrame
// value shares the same underlying buffer; call Release exactly once per
// value obtained from Capture/Grab.
type CapturedFrame struct {
	buf       *bufferpool.Buffer
	Width     uint32
	Height    uint32
	Timestamp float64 // seconds, monotonic since boot
	Format    PixelFormat
}

// Data returns the frame's pixel bytes, row-major, exactly
// Width*Height*Format.BytesPerPixel() bytes with no padding. The slice is
// only valid until Release is called.
func (f *CapturedFrame) Data() []byte {
	if f == nil || f.buf == nil {
		return nil
	}
	return f.buf.Bytes()
}

// Release returns the frame's backing buffer to its pool. Safe to call more
// than once; a cached clone and the frame it was cloned from release
// independently.
func (f *CapturedFrame) Release() {
	if f == nil {
		return
	}
	f.buf.Release()
}
