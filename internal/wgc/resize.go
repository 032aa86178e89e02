package wgc

// Geometry is the pre-queried window geometry fed into a resize check, so
// the caller pays for one Win32 query per retry iteration, not per check.
type Geometry struct {
	FrameWidth, FrameHeight uint32
	ClientBox               *Box
}

// ResizeRetryLimit bounds how many times resolveFrameAfterResize will
// recreate the pool and re-fetch before giving up and falling back to the
// cache. A workload that legitimately resizes on every frame will never
// succeed past this; see SPEC_FULL's open-question notes.
const ResizeRetryLimit = 3

// NeedsRecreate decides whether the frame pool must be rebuilt before the
// current frame can be processed.
//
// Window targets compare geometry's pre-queried (frameWidth, frameHeight)
// against the pool size (geometry is nil when the query failed or the
// window is minimized, in which case no recreate is triggered here).
// Monitor targets compare the frame's reported content size, ignoring
// zeros (WGC sometimes reports a zero size transiently).
func NeedsRecreate(isWindowTarget bool, poolW, poolH uint32, geometry *Geometry, contentW, contentH uint32) (newW, newH uint32, ok bool) {
	if isWindowTarget {
		if geometry != nil && (geometry.FrameWidth != poolW || geometry.FrameHeight != poolH) {
			return geometry.FrameWidth, geometry.FrameHeight, true
		}
		return 0, 0, false
	}

	if contentW == 0 || contentH == 0 {
		return 0, 0, false
	}
	if contentW != poolW || contentH != poolH {
		return contentW, contentH, true
	}
	return 0, 0, false
}
