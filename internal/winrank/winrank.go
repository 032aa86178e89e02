// Package winrank implements the window-ranking formula used to pick a
// concrete HWND out of a candidate set sharing a PID/process-name match.
package winrank

import "sort"

// Window is the subset of window state the ranking formula needs. Handle is
// an opaque OS window handle value (HWND), compared only for ordering.
type Window struct {
	Handle     uintptr
	Visible    bool
	ToolWindow bool
	Minimized  bool
	Width      int
	Height     int
}

func (w Window) area() int { return w.Width * w.Height }

// Score computes the ranking score:
//
//	10000*visible + 3000*(not tool window) + 1000*(not minimized) + min(area/10000, 5000)
func Score(w Window) float64 {
	var s float64
	if w.Visible {
		s += 10000
	}
	if !w.ToolWindow {
		s += 3000
	}
	if !w.Minimized {
		s += 1000
	}
	areaTerm := float64(w.area()) / 10000
	if areaTerm > 5000 {
		areaTerm = 5000
	}
	return s + areaTerm
}

// Rank orders candidates by descending score, tie-broken by descending area
// then ascending handle value, and returns the sorted slice (candidates is
// sorted in place and also returned).
func Rank(candidates []Window) []Window {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		sa, sb := Score(a), Score(b)
		if sa != sb {
			return sa > sb
		}
		if a.area() != b.area() {
			return a.area() > b.area()
		}
		return a.Handle < b.Handle
	})
	return candidates
}
