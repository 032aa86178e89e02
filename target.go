package hdrcapture

// WindowSelector picks a window to capture. Exactly one of Hwnd, Pid, or
// Process should be set; priority when more than one is set is
// Hwnd > Pid > Process. RankedIndex selects within the candidate list when
// Pid/Process matches more than one visible top-level window, ordered by
// the ranking formula in the target-resolution collaborator (nil means 0,
// the top-ranked candidate).
type WindowSelector struct {
	Hwnd        uintptr
	Pid         uint32
	Process     string
	RankedIndex *int
}
