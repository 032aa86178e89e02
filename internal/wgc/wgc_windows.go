//go:build windows

package wgc

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
	"github.com/LDNKS094/hdrcapture/internal/d3d11"
	"github.com/LDNKS094/hdrcapture/internal/logging"
)

var (
	kernel32DLL = syscall.NewLazyDLL("kernel32.dll")
	user32DLL   = syscall.NewLazyDLL("user32.dll")
	dwmapiDLL   = syscall.NewLazyDLL("dwmapi.dll")

	procCreateEventW      = kernel32DLL.NewProc("CreateEventW")
	procSetEvent          = kernel32DLL.NewProc("SetEvent")
	procWaitForSingleObject = kernel32DLL.NewProc("WaitForSingleObject")
	procCloseHandle       = kernel32DLL.NewProc("CloseHandle")

	procClientToScreen = user32DLL.NewProc("ClientToScreen")
	procGetClientRect  = user32DLL.NewProc("GetClientRect")
	procIsIconic       = user32DLL.NewProc("IsIconic")

	procDwmGetWindowAttribute = dwmapiDLL.NewProc("DwmGetWindowAttribute")

	// CreateDirect3D11DeviceFromDXGIDevice wraps a raw IDXGIDevice as the
	// WinRT IDirect3DDevice the frame pool activation factory expects;
	// it ships in d3d11.dll alongside the rest of the D3D11 interop surface.
	procCreateDirect3D11DeviceFromDXGIDevice = syscall.NewLazyDLL("d3d11.dll").NewProc("CreateDirect3D11DeviceFromDXGIDevice")
)

const (
	waitObject0  = 0x00000000
	waitTimeout  = 0x00000102
	waitFailed   = 0xFFFFFFFF
	infiniteWait = 0xFFFFFFFF

	dwmwaExtendedFrameBounds = 9
)

// sizeInt32 matches Windows.Foundation.Numerics SizeInt32 (used by
// Direct3D11CaptureFramePool::CreateFreeThreaded).
type sizeInt32 struct{ Width, Height int32 }

// pointInt32 matches Windows.Graphics.PointInt32 / Win32 POINT.
type pointInt32 struct{ X, Y int32 }

// rectInt32 matches Win32 RECT.
type rectInt32 struct{ Left, Top, Right, Bottom int32 }

const framePoolBufferCount = 2

// pixelFormatB8G8R8A8UIntNormalized / pixelFormatR16G16B16A16Float are
// DirectXPixelFormat enum values (Windows.Graphics.DirectX.DirectXPixelFormat).
const (
	pixelFormatR16G16B16A16Float       = 10
	pixelFormatB8G8R8A8UIntNormalized = 87
)

// Session owns one WGC capture item + frame pool + session for one target.
// It is thread-affine: every method must be called from the thread that
// constructed it.
type Session struct {
	ctx *d3d11.Context

	item            uintptr // IGraphicsCaptureItem
	framePool       uintptr // IDirect3D11CaptureFramePool
	session         uintptr // IGraphicsCaptureSession
	handler         *handlerObject
	frameEvent      uintptr // kernel HANDLE
	frameArrivedTok [8]byte // EventRegistrationToken from add_FrameArrived
	closing         *atomic.Bool // set by Close before unregistering the handler

	isWindowTarget bool
	hwnd           uintptr
	isHdr          bool

	poolWidth, poolHeight uint32
	poolFormat            uint32 // d3d11.FormatB8G8R8A8Unorm or d3d11.FormatR16G16B16A16Float
}

// Target identifies a monitor or window to capture.
type Target struct {
	Monitor uintptr // HMONITOR, 0 if Window is set
	Window  uintptr // HWND, 0 if Monitor is set
}

// PoolFormatFor resolves the WGC frame-pool pixel format from the (policy,
// HDR) table in SPEC_FULL §4.1. policy is one of "auto", "hdr", "sdr".
func PoolFormatFor(policy string, isHdr bool) uint32 {
	switch policy {
	case "hdr":
		return d3d11.FormatR16G16B16A16Float
	case "sdr":
		return d3d11.FormatB8G8R8A8Unorm
	default: // auto
		if isHdr {
			return d3d11.FormatR16G16B16A16Float
		}
		return d3d11.FormatB8G8R8A8Unorm
	}
}

// NewSession builds a capture item, frame pool, and capture session for
// target. policy selects the frame-pool pixel format per the HDR table.
func NewSession(ctx *d3d11.Context, target Target, policy string) (*Session, error) {
	if err := initWinRT(); err != nil {
		return nil, err
	}

	isWindow := target.Window != 0
	item, err := createCaptureItem(target)
	if err != nil {
		return nil, fmt.Errorf("create capture item: %w", err)
	}

	size, err := itemSize(item)
	if err != nil {
		comutil.Release(item)
		return nil, fmt.Errorf("query capture item size: %w", err)
	}

	var monitorForHDR uintptr
	if isWindow {
		monitorForHDR = MonitorFromWindow(target.Window)
	} else {
		monitorForHDR = target.Monitor
	}
	isHdr, err := d3d11.IsMonitorHDR(ctx, monitorForHDR)
	if err != nil {
		logging.L("wgc").Warn("HDR detection failed, assuming SDR", "error", err)
		isHdr = false
	}

	format := PoolFormatFor(policy, isHdr)
	directXFormat := uint32(pixelFormatB8G8R8A8UIntNormalized)
	if format == d3d11.FormatR16G16B16A16Float {
		directXFormat = pixelFormatR16G16B16A16Float
	}

	framePool, err := createFramePool(ctx, directXFormat, size)
	if err != nil {
		comutil.Release(item)
		return nil, fmt.Errorf("create frame pool: %w", err)
	}

	frameEvent, _, _ := procCreateEventW.Call(0, 0, 0, 0)
	if frameEvent == 0 {
		comutil.Release(framePool)
		comutil.Release(item)
		return nil, fmt.Errorf("CreateEventW failed")
	}

	closing := new(atomic.Bool)
	handler := newFrameArrivedHandler(func() {
		procSetEvent.Call(frameEvent)
	}, closing)
	var token [8]byte
	if _, err := comutil.Call(framePool, vtblPoolAddFrameArrived, handler.ptr(), uintptr(unsafe.Pointer(&token))); err != nil {
		procCloseHandle.Call(frameEvent)
		comutil.Release(framePool)
		comutil.Release(item)
		return nil, fmt.Errorf("add_FrameArrived: %w", err)
	}

	session, err := createCaptureSession(framePool, item)
	if err != nil {
		procCloseHandle.Call(frameEvent)
		comutil.Release(framePool)
		comutil.Release(item)
		return nil, fmt.Errorf("create capture session: %w", err)
	}
	if _, err := comutil.Call(session, vtblSessionPutIsBorderRequired, 0); err != nil {
		logging.L("wgc").Warn("put_IsBorderRequired failed, continuing with default border", "error", err)
	}

	return &Session{
		ctx:             ctx,
		item:            item,
		framePool:       framePool,
		session:         session,
		handler:         handler,
		frameEvent:      frameEvent,
		frameArrivedTok: token,
		closing:         closing,
		isWindowTarget:  isWindow,
		hwnd:           target.Window,
		isHdr:          isHdr,
		poolWidth:      uint32(size.Width),
		poolHeight:     uint32(size.Height),
		poolFormat:     format,
	}, nil
}

func createCaptureItem(target Target) (uintptr, error) {
	factory, err := activationFactory(classIDGraphicsCaptureItem, &iidIGraphicsCaptureItemInterop)
	if err != nil {
		return 0, err
	}
	defer comutil.Release(factory)

	var item uintptr
	if target.Window != 0 {
		_, err = comutil.Call(factory, vtblCreateForWindow, target.Window, uintptr(unsafe.Pointer(&iidIGraphicsCaptureItem)), uintptr(unsafe.Pointer(&item)))
	} else {
		_, err = comutil.Call(factory, vtblCreateForMonitor, target.Monitor, uintptr(unsafe.Pointer(&iidIGraphicsCaptureItem)), uintptr(unsafe.Pointer(&item)))
	}
	if err != nil {
		return 0, err
	}
	return item, nil
}

func itemSize(item uintptr) (sizeInt32, error) {
	var size sizeInt32
	if _, err := comutil.Call(item, vtblItemGetSize, uintptr(unsafe.Pointer(&size))); err != nil {
		return sizeInt32{}, err
	}
	return size, nil
}

// createDirect3DDevice wraps ctx's raw IDXGIDevice as the WinRT
// IDirect3DDevice the frame pool activation factory and Recreate expect.
func createDirect3DDevice(ctx *d3d11.Context) (uintptr, error) {
	var winrtDevice uintptr
	hr, _, _ := procCreateDirect3D11DeviceFromDXGIDevice.Call(ctx.DXGIDev, uintptr(unsafe.Pointer(&winrtDevice)))
	if comutil.HRESULT(hr).Failed() {
		return 0, fmt.Errorf("CreateDirect3D11DeviceFromDXGIDevice: %w", comutil.HRESULT(hr))
	}
	return winrtDevice, nil
}

func createFramePool(ctx *d3d11.Context, directXFormat uint32, size sizeInt32) (uintptr, error) {
	statics, err := activationFactory(classIDDirect3D11CaptureFramePool, &iidIDirect3D11CaptureFramePoolStatics2)
	if err != nil {
		return 0, err
	}
	defer comutil.Release(statics)

	winrtDevice, err := createDirect3DDevice(ctx)
	if err != nil {
		return 0, err
	}
	defer comutil.Release(winrtDevice)

	var pool uintptr
	_, err = comutil.Call(statics, vtblFramePoolStatics2CreateFreeThreaded,
		winrtDevice,
		uintptr(directXFormat),
		uintptr(framePoolBufferCount),
		uintptr(size.Width),
		uintptr(size.Height),
		uintptr(unsafe.Pointer(&pool)),
	)
	if err != nil {
		return 0, err
	}
	return pool, nil
}

func createCaptureSession(framePool, item uintptr) (uintptr, error) {
	var session uintptr
	if _, err := comutil.Call(framePool, vtblPoolCreateCaptureSession, item, uintptr(unsafe.Pointer(&session))); err != nil {
		return 0, err
	}
	return session, nil
}

// Start begins capture; the next frame may arrive immediately.
func (s *Session) Start() error {
	_, err := comutil.Call(s.session, vtblSessionStartCapture)
	if err != nil {
		return fmt.Errorf("StartCapture: %w", err)
	}
	return nil
}

// TryGetNextFrame polls the pool without blocking. ok is false when no
// frame is currently buffered.
func (s *Session) TryGetNextFrame() (frame uintptr, ok bool, err error) {
	var f uintptr
	if _, err := comutil.Call(s.framePool, vtblPoolTryGetNextFrame, uintptr(unsafe.Pointer(&f))); err != nil {
		return 0, false, fmt.Errorf("TryGetNextFrame: %w", err)
	}
	if f == 0 {
		return 0, false, nil
	}
	return f, true, nil
}

// WaitForFrame blocks on the frame-arrived kernel event until signaled or
// timeoutMs elapses. Returns false on timeout, not an error.
func (s *Session) WaitForFrame(timeoutMs uint32) (bool, error) {
	ret, _, _ := procWaitForSingleObject.Call(s.frameEvent, uintptr(timeoutMs))
	switch uint32(ret) {
	case waitObject0:
		return true, nil
	case waitTimeout:
		return false, nil
	default:
		return false, fmt.Errorf("WaitForSingleObject returned 0x%X", uint32(ret))
	}
}

// PoolSize returns the frame pool's current (width, height).
func (s *Session) PoolSize() (uint32, uint32) {
	return s.poolWidth, s.poolHeight
}

// PoolFormat returns the DXGI format backing the frame pool (d3d11.FormatB8G8R8A8Unorm
// or d3d11.FormatR16G16B16A16Float).
func (s *Session) PoolFormat() uint32 {
	return s.poolFormat
}

// RecreateFramePool rebuilds the pool at new dimensions, keeping the same
// device and pixel format.
func (s *Session) RecreateFramePool(newW, newH uint32) error {
	directXFormat := uint32(pixelFormatB8G8R8A8UIntNormalized)
	if s.poolFormat == d3d11.FormatR16G16B16A16Float {
		directXFormat = pixelFormatR16G16B16A16Float
	}
	size := sizeInt32{Width: int32(newW), Height: int32(newH)}
	winrtDevice, err := createDirect3DDevice(s.ctx)
	if err != nil {
		return fmt.Errorf("wrap device for Recreate: %w", err)
	}
	defer comutil.Release(winrtDevice)
	if _, err := comutil.Call(s.framePool, vtblPoolRecreate, winrtDevice, uintptr(directXFormat), uintptr(framePoolBufferCount), uintptr(size.Width), uintptr(size.Height)); err != nil {
		return fmt.Errorf("Recreate: %w", err)
	}
	s.poolWidth, s.poolHeight = newW, newH
	return nil
}

// FrameToTexture unwraps a delivered frame into its underlying
// ID3D11Texture2D. The frame must stay alive until the texture is done
// being used.
func (s *Session) FrameToTexture(frame uintptr) (uintptr, error) {
	var surface uintptr
	if _, err := comutil.Call(frame, vtblFrameGetSurface, uintptr(unsafe.Pointer(&surface))); err != nil {
		return 0, fmt.Errorf("get_Surface: %w", err)
	}
	defer comutil.Release(surface)

	access, err := comutil.QueryInterface(surface, &iidIDirect3DDxgiInterfaceAccess)
	if err != nil {
		return 0, fmt.Errorf("QueryInterface IDirect3DDxgiInterfaceAccess: %w", err)
	}
	defer comutil.Release(access)

	var texture uintptr
	if _, err := comutil.Call(access, vtblGetInterface, uintptr(unsafe.Pointer(&iidIID3D11Texture2D)), uintptr(unsafe.Pointer(&texture))); err != nil {
		return 0, fmt.Errorf("GetInterface ID3D11Texture2D: %w", err)
	}
	return texture, nil
}

// ContentSize reads a frame's reported content size (monitor-target resize
// signal).
func (s *Session) ContentSize(frame uintptr) (uint32, uint32, error) {
	var size sizeInt32
	if _, err := comutil.Call(frame, vtblFrameGetContentSize, uintptr(unsafe.Pointer(&size))); err != nil {
		return 0, 0, fmt.Errorf("get_ContentSize: %w", err)
	}
	return uint32(size.Width), uint32(size.Height), nil
}

// SystemRelativeTime reads a frame's timestamp in seconds since boot.
func (s *Session) SystemRelativeTime(frame uintptr) (float64, error) {
	var duration int64 // TimeSpan.Duration, 100ns ticks
	if _, err := comutil.Call(frame, vtblFrameGetSystemRelativeTime, uintptr(unsafe.Pointer(&duration))); err != nil {
		return 0, fmt.Errorf("get_SystemRelativeTime: %w", err)
	}
	return float64(duration) / 1e7, nil
}

// IsWindowTarget reports whether this session captures a window (vs a
// monitor).
func (s *Session) IsWindowTarget() bool { return s.isWindowTarget }

// IsHdr reports whether the target monitor was detected as HDR-active at
// construction time.
func (s *Session) IsHdr() bool { return s.isHdr }

// WindowGeometry computes the client-area crop box for a window target,
// given the current pool size. Returns nil if this is a monitor target, the
// window is minimized, or any geometry query fails.
func (s *Session) WindowGeometry(poolW, poolH uint32) *Geometry {
	if !s.isWindowTarget {
		return nil
	}

	iconic, _, _ := procIsIconic.Call(s.hwnd)
	if iconic != 0 {
		return nil
	}

	var extended rectInt32
	hr, _, _ := procDwmGetWindowAttribute.Call(s.hwnd, uintptr(dwmwaExtendedFrameBounds), uintptr(unsafe.Pointer(&extended)), unsafe.Sizeof(extended))
	if comutil.HRESULT(hr).Failed() {
		return nil
	}

	var clientRect rectInt32
	if ret, _, _ := procGetClientRect.Call(s.hwnd, uintptr(unsafe.Pointer(&clientRect))); ret == 0 {
		return nil
	}

	origin := pointInt32{0, 0}
	if ret, _, _ := procClientToScreen.Call(s.hwnd, uintptr(unsafe.Pointer(&origin))); ret == 0 {
		return nil
	}

	frameW := uint32(extended.Right - extended.Left)
	frameH := uint32(extended.Bottom - extended.Top)

	box, ok := ComputeClientBox(
		Rect{Left: int(extended.Left), Top: int(extended.Top), Right: int(extended.Right), Bottom: int(extended.Bottom)},
		Point{X: int(origin.X), Y: int(origin.Y)},
		int(clientRect.Right-clientRect.Left), int(clientRect.Bottom-clientRect.Top),
		int(poolW), int(poolH),
	)
	geo := &Geometry{FrameWidth: frameW, FrameHeight: frameH}
	if ok {
		geo.ClientBox = &box
	}
	return geo
}

// MonitorFromWindow returns the HMONITOR the window is currently mostly on
// (MONITOR_DEFAULTTONEAREST), used to key HDR/SDR-white-level queries for a
// window target.
func MonitorFromWindow(hwnd uintptr) uintptr {
	ret, _, _ := user32DLL.NewProc("MonitorFromWindow").Call(hwnd, 2)
	return ret
}

// Close tears the session down: unregisters FrameArrived, closes the event
// handle, and releases the WinRT interface pointers. The capture item's
// release stops capture automatically.
//
// closing is set before remove_FrameArrived because WinRT does not document
// that call as blocking until any in-flight Invoke has returned; a callback
// racing with teardown checks the flag itself rather than calling SetEvent
// on a handle that is about to close.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.closing.Store(true)
	comutil.Call(s.framePool, vtblPoolRemoveFrameArrived, *(*uintptr)(unsafe.Pointer(&s.frameArrivedTok)))
	if s.frameEvent != 0 {
		procCloseHandle.Call(s.frameEvent)
	}
	comutil.Release(s.session)
	comutil.Release(s.framePool)
	comutil.Release(s.item)
}

var iidIID3D11Texture2D = comutil.GUID{0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
