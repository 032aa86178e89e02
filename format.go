package hdrcapture

// PixelFormat identifies the byte layout of a CapturedFrame's data.
type PixelFormat int

const (
	// Bgra8 is 4 bytes/pixel, channel order [B, G, R, A].
	Bgra8 PixelFormat = iota
	// Rgba16f is 8 bytes/pixel, channel order [R, G, B, A] as IEEE-754
	// half-precision floats.
	Rgba16f
)

func (f PixelFormat) String() string {
	if f == Rgba16f {
		return "rgba16f"
	}
	return "bgra8"
}

// BytesPerPixel returns the per-pixel byte size for f.
func (f PixelFormat) BytesPerPixel() int {
	if f == Rgba16f {
		return 8
	}
	return 4
}
