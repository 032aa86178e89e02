// Package wgc wraps the Windows Graphics Capture session: capture item
// activation, frame pool lifecycle, frame-arrived signaling, resize
// handling, and window client-area geometry. The COM/WinRT plumbing lives
// in the Windows-only files; this file holds the pure geometry math so it
// carries unit tests on any GOOS.
package wgc

// Rect is a screen-space rectangle with the same field order as RECT.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Point is a screen-space point.
type Point struct {
	X, Y int
}

// Box is a captured-texture-space sub-rectangle, in the same shape as
// D3D11_BOX's x/y extent (z is always 0/1 for a 2D copy).
type Box struct {
	Left, Top, Right, Bottom int
}

func (b Box) Width() int  { return b.Right - b.Left }
func (b Box) Height() int { return b.Bottom - b.Top }

// ComputeClientBox locates a window's client area inside its captured
// texture. extendedBounds is DWM's extended-frame-bounds rectangle in
// screen space (excludes the invisible shadow padding); clientOrigin is the
// client area's top-left corner in screen space (ClientToScreen of (0,0));
// clientW/clientH come from GetClientRect. textureW/textureH are the
// dimensions of the texture WGC actually delivered.
//
// A client area that extends past the texture's right or bottom edge is
// clamped to it. Returns ok=false when the client origin lies outside the
// texture (stale geometry from a resize in flight) or the clamped
// rectangle is degenerate.
func ComputeClientBox(extendedBounds Rect, clientOrigin Point, clientW, clientH, textureW, textureH int) (Box, bool) {
	left := clientOrigin.X - extendedBounds.Left
	top := clientOrigin.Y - extendedBounds.Top

	if left < 0 || top < 0 || left >= textureW || top >= textureH {
		return Box{}, false
	}

	width := clientW
	if textureW-left < width {
		width = textureW - left
	}
	height := clientH
	if textureH-top < height {
		height = textureH - top
	}

	if width <= 0 || height <= 0 {
		return Box{}, false
	}

	box := Box{Left: left, Top: top, Right: left + width, Bottom: top + height}
	if box.Right > textureW || box.Bottom > textureH {
		return Box{}, false
	}
	return box, true
}
