//go:build windows

// Package targetresolve turns a caller's {monitor index} or {hwnd, pid,
// process name} + ranked index into a concrete OS handle. It is a thin,
// stateless collaborator: the pipeline only needs "handle in, validated
// handle out".
package targetresolve

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"

	"github.com/LDNKS094/hdrcapture/internal/winrank"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procEnumDisplayMonitors    = user32.NewProc("EnumDisplayMonitors")
	procEnumWindows            = user32.NewProc("EnumWindows")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible        = user32.NewProc("IsWindowVisible")
	procIsIconic               = user32.NewProc("IsIconic")
	procGetWindowLongW         = user32.NewProc("GetWindowLongW")
	procGetClientRect          = user32.NewProc("GetClientRect")
	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
)

const (
	gwlExStyle    = -20
	wsExToolWindow = 0x00000080

	// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2, a pseudo-HANDLE constant.
	dpiAwarenessContextPerMonitorAwareV2 = ^uintptr(3) // -4 as uintptr
)

// EnableDPIAwareness sets per-monitor-v2 DPI awareness, best-effort. Safe to
// call more than once; a later call in the same process is a silent no-op.
func EnableDPIAwareness() {
	procSetProcessDpiAwarenessContext.Call(dpiAwarenessContextPerMonitorAwareV2)
}

// ListMonitors enumerates HMONITOR handles in system order.
func ListMonitors() ([]uintptr, error) {
	var monitors []uintptr
	cb := windows.NewCallback(func(hmonitor, _, _, lparam uintptr) uintptr {
		ptr := (*[]uintptr)(unsafe.Pointer(lparam))
		*ptr = append(*ptr, hmonitor)
		return 1
	})
	ret, _, _ := procEnumDisplayMonitors.Call(0, 0, cb, uintptr(unsafe.Pointer(&monitors)))
	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors failed")
	}
	return monitors, nil
}

// FindMonitor resolves a monitor by system-enumeration index.
func FindMonitor(index int) (uintptr, error) {
	monitors, err := ListMonitors()
	if err != nil {
		return 0, err
	}
	if len(monitors) == 0 {
		return 0, fmt.Errorf("no monitors detected")
	}
	if index < 0 || index >= len(monitors) {
		return 0, fmt.Errorf("monitor index %d out of range (found %d)", index, len(monitors))
	}
	return monitors[index], nil
}

// WindowSelector picks a set of candidate windows. Exactly one of Hwnd, Pid,
// Process should be set; priority is Hwnd > Pid > Process.
type WindowSelector struct {
	Hwnd    uintptr
	Pid     uint32
	Process string
}

// FindWindow resolves a selector + ranked index to a concrete HWND.
func FindWindow(sel WindowSelector, rankedIndex *int) (uintptr, error) {
	if sel.Hwnd != 0 {
		return sel.Hwnd, nil
	}

	pids, err := resolvePids(sel)
	if err != nil {
		return 0, err
	}
	if len(pids) == 0 {
		return 0, fmt.Errorf("no running process found for target")
	}

	candidates, err := enumerateCandidateWindows(pids)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no visible windows found for target")
	}

	ranked := winrank.Rank(candidates)
	idx := 0
	if rankedIndex != nil {
		idx = *rankedIndex
	}
	if idx < 0 || idx >= len(ranked) {
		return 0, fmt.Errorf("window index %d out of range (found %d)", idx, len(ranked))
	}
	return ranked[idx].Handle, nil
}

func resolvePids(sel WindowSelector) (map[uint32]struct{}, error) {
	pids := make(map[uint32]struct{})
	if sel.Pid != 0 {
		pids[sel.Pid] = struct{}{}
		return pids, nil
	}
	if sel.Process == "" {
		return nil, fmt.Errorf("window target requires one of: hwnd, pid, process")
	}

	target := strings.ToLower(sel.Process)
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if strings.ToLower(name) == target {
			pids[uint32(p.Pid)] = struct{}{}
		}
	}
	return pids, nil
}

func enumerateCandidateWindows(pids map[uint32]struct{}) ([]winrank.Window, error) {
	var candidates []winrank.Window
	var enumErr error

	cb := windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		visRet, _, _ := procIsWindowVisible.Call(hwnd)
		if visRet == 0 {
			return 1
		}

		var pid uint32
		_, _, _ = procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
		if _, ok := pids[pid]; !ok {
			return 1
		}

		iconicRet, _, _ := procIsIconic.Call(hwnd)
		exStyle, _, _ := procGetWindowLongW.Call(hwnd, uintptr(gwlExStyle))

		var rect [4]int32
		procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))
		width := int(rect[2] - rect[0])
		height := int(rect[3] - rect[1])

		candidates = append(candidates, winrank.Window{
			Handle:     hwnd,
			Visible:    true,
			ToolWindow: exStyle&wsExToolWindow != 0,
			Minimized:  iconicRet != 0,
			Width:      width,
			Height:     height,
		})
		return 1
	})

	ret, _, _ := procEnumWindows.Call(cb, 0)
	if ret == 0 && enumErr == nil {
		// EnumWindows can legitimately return 0 with no error when the
		// callback stops enumeration early; we never do that, so treat
		// this as success with whatever we collected.
		return candidates, nil
	}
	return candidates, enumErr
}
