//go:build windows

package wgc

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
)

var (
	combaseDLL = syscall.NewLazyDLL("combase.dll")

	procWindowsCreateString    = combaseDLL.NewProc("WindowsCreateString")
	procWindowsDeleteString    = combaseDLL.NewProc("WindowsDeleteString")
	procRoGetActivationFactory = combaseDLL.NewProc("RoGetActivationFactory")
	procRoInitialize           = combaseDLL.NewProc("RoInitialize")
)

const roInitMultithreaded = 1

// initWinRT initializes the WinRT runtime for the calling thread. Safe to
// call more than once per thread; RO_E_PROCESS_INITIALIZED /
// S_FALSE-equivalent returns are not errors here.
func initWinRT() error {
	hr, _, _ := procRoInitialize.Call(uintptr(roInitMultithreaded))
	h := comutil.HRESULT(hr)
	// RPC_E_CHANGED_MODE (0x80010106) means some other component already
	// initialized apartment-threaded; WinRT calls still work.
	if h.Failed() && uint32(h) != 0x80010106 {
		return fmt.Errorf("RoInitialize: %w", h)
	}
	return nil
}

func newHString(s string) (uintptr, error) {
	utf16, err := syscall.UTF16FromString(s)
	if err != nil {
		return 0, err
	}
	var hstr uintptr
	hr, _, _ := procWindowsCreateString.Call(
		uintptr(unsafe.Pointer(&utf16[0])),
		uintptr(len(utf16)-1),
		uintptr(unsafe.Pointer(&hstr)),
	)
	if comutil.HRESULT(hr).Failed() {
		return 0, fmt.Errorf("WindowsCreateString: %w", comutil.HRESULT(hr))
	}
	return hstr, nil
}

func deleteHString(h uintptr) {
	if h != 0 {
		procWindowsDeleteString.Call(h)
	}
}

// activationFactory returns the activation factory for the given WinRT
// runtime class, queried directly for iid (the interop or statics interface
// the caller needs).
func activationFactory(className string, iid *comutil.GUID) (uintptr, error) {
	hstr, err := newHString(className)
	if err != nil {
		return 0, fmt.Errorf("activation class name %q: %w", className, err)
	}
	defer deleteHString(hstr)

	var factory uintptr
	hr, _, _ := procRoGetActivationFactory.Call(
		hstr,
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&factory)),
	)
	if comutil.HRESULT(hr).Failed() {
		return 0, fmt.Errorf("RoGetActivationFactory(%s): %w", className, comutil.HRESULT(hr))
	}
	return factory, nil
}
