//go:build windows

// Package comutil provides the raw COM vtable calling primitives shared by
// the d3d11 and wgc packages: no cgo, no windows/com wrapper library, just
// syscall.SyscallN against a manually walked vtable — the same technique
// the rest of this codebase's Windows interop uses throughout.
package comutil

import (
	"fmt"
	"syscall"
	"unsafe"
)

// GUID is a COM GUID (128-bit), laid out to match the Windows ABI.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Call invokes the COM vtable method at idx on obj (a pointer to a pointer
// to a vtable). Returns the raw HRESULT as uintptr and a non-nil error when
// the HRESULT indicates failure (high bit set).
func Call(obj uintptr, idx int, args ...uintptr) (uintptr, error) {
	fn := VtblFn(obj, idx)

	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)

	ret, _, _ := syscall.SyscallN(fn, all...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", idx, uint32(ret))
	}
	return ret, nil
}

// VtblFn resolves a COM vtable function pointer by index, without invoking it.
func VtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// Release calls IUnknown::Release (vtable index 2). Safe to call with obj==0.
func Release(obj uintptr) {
	if obj == 0 {
		return
	}
	syscall.SyscallN(VtblFn(obj, 2))
}

// QueryInterface calls IUnknown::QueryInterface (vtable index 0) for iid,
// returning the new interface pointer.
func QueryInterface(obj uintptr, iid *GUID) (uintptr, error) {
	var out uintptr
	_, err := Call(obj, 0, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return 0, err
	}
	return out, nil
}

// HRESULT wraps a raw HRESULT value for formatting and errors.Is-style
// sentinel comparison by numeric code.
type HRESULT uint32

func (h HRESULT) Failed() bool { return int32(h) < 0 }

func (h HRESULT) Error() string {
	return fmt.Sprintf("HRESULT 0x%08X", uint32(h))
}

// Known HRESULT codes relevant to capture.
const (
	DXGI_ERROR_WAIT_TIMEOUT    HRESULT = 0x887A0027
	DXGI_ERROR_ACCESS_LOST     HRESULT = 0x887A0026
	DXGI_ERROR_DEVICE_REMOVED  HRESULT = 0x887A0005
	DXGI_ERROR_DEVICE_RESET    HRESULT = 0x887A0007
	DXGI_ERROR_INVALID_CALL    HRESULT = 0x887A0001
	E_UNEXPECTED               HRESULT = 0x8000FFFF
)
