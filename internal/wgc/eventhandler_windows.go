//go:build windows

package wgc

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"
)

// handlerObject is a minimal WinRT delegate: a COM object whose vtable is
// QueryInterface/AddRef/Release/Invoke, backing a TypedEventHandler
// registered against Direct3D11CaptureFramePool.FrameArrived. Invoke must
// do no GPU work (WGC documents the callback as running on an internal
// thread); onEvent is expected to be exactly SetEvent on a kernel handle.
//
// closing is set by Session.Close before it unregisters the handler and
// closes the kernel event; remove_FrameArrived is not documented to block
// until any in-flight Invoke has returned, so Invoke checks closing itself
// rather than trust that it has already stopped firing.
type handlerObject struct {
	vtbl    uintptr
	onEvent func()
	closing *atomic.Bool
}

var (
	handlerVtblOnce sync.Once
	handlerVtbl     [4]uintptr
)

func buildHandlerVtbl() {
	handlerVtbl[0] = syscall.NewCallback(handlerQueryInterface)
	handlerVtbl[1] = syscall.NewCallback(handlerAddRef)
	handlerVtbl[2] = syscall.NewCallback(handlerRelease)
	handlerVtbl[3] = syscall.NewCallback(handlerInvoke)
}

func handlerQueryInterface(this, _riid, ppv uintptr) uintptr {
	if ppv != 0 {
		*(*uintptr)(unsafe.Pointer(ppv)) = this
	}
	return 0 // S_OK; we don't distinguish interfaces, good enough for a one-shot delegate
}

func handlerAddRef(uintptr) uintptr  { return 1 }
func handlerRelease(uintptr) uintptr { return 1 }

func handlerInvoke(this, _sender, _args uintptr) uintptr {
	obj := (*handlerObject)(unsafe.Pointer(this))
	if obj.closing != nil && obj.closing.Load() {
		return 0 // S_OK; session is tearing down, don't touch the event handle
	}
	if obj.onEvent != nil {
		obj.onEvent()
	}
	return 0 // S_OK
}

// newFrameArrivedHandler builds a delegate object invoking onEvent on every
// FrameArrived callback, until closing is set. The returned object is kept
// alive by the caller for as long as it stays registered with the frame
// pool.
func newFrameArrivedHandler(onEvent func(), closing *atomic.Bool) *handlerObject {
	handlerVtblOnce.Do(buildHandlerVtbl)
	return &handlerObject{vtbl: uintptr(unsafe.Pointer(&handlerVtbl[0])), onEvent: onEvent, closing: closing}
}

func (h *handlerObject) ptr() uintptr {
	return uintptr(unsafe.Pointer(h))
}
