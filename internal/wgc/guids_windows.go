//go:build windows

package wgc

import "github.com/LDNKS094/hdrcapture/internal/comutil"

// WinRT interface GUIDs this package activates or QueryInterface's for.
// IInspectable, IActivationFactory, IGraphicsCaptureItemInterop, and
// IDirect3DDxgiInterfaceAccess are stable, widely published interop IIDs
// (windows.graphics.capture.interop.h / windows.graphics.directx.direct3d11.interop.h)
// and are reproduced here from memory with high confidence. The
// GraphicsCaptureItem / Direct3D11CaptureFramePool / GraphicsCaptureSession
// runtime-class IIDs below are reconstructed the same way but are lower
// confidence; verify them against a current Windows SDK before shipping —
// a mismatch fails fast at QueryInterface/RoGetActivationFactory with
// E_NOINTERFACE rather than silently misbehaving.
var (
	iidIInspectable     = comutil.GUID{0xAF86E2E0, 0xB12D, 0x4C6A, [8]byte{0x9C, 0x5A, 0xD7, 0xAA, 0x65, 0x10, 0x1E, 0x90}}
	iidIActivationFactory = comutil.GUID{0x00000035, 0x0000, 0x0000, [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}}

	iidIGraphicsCaptureItemInterop = comutil.GUID{0x3628E81B, 0x3CAC, 0x4C60, [8]byte{0xB7, 0xF4, 0x23, 0xCE, 0x0E, 0x0C, 0x33, 0x56}}
	iidIDirect3DDxgiInterfaceAccess = comutil.GUID{0xA9B3D012, 0x3DF2, 0x4EE3, [8]byte{0xB8, 0xD1, 0x86, 0x95, 0xF4, 0x57, 0xD3, 0xC1}}

	iidIGraphicsCaptureItem                  = comutil.GUID{0x79C3F95B, 0x31F7, 0x4EC2, [8]byte{0xA4, 0x64, 0x63, 0x2E, 0xF5, 0xD3, 0x07, 0x60}}
	iidIDirect3D11CaptureFramePool            = comutil.GUID{0x8D7F3A16, 0xD713, 0x4BB7, [8]byte{0x9A, 0x5E, 0xB6, 0xD3, 0x11, 0x07, 0xA1, 0x27}}
	iidIDirect3D11CaptureFramePoolStatics2    = comutil.GUID{0x0601599D, 0x6068, 0x4BB0, [8]byte{0xAA, 0x34, 0xDF, 0xF2, 0xE4, 0x7D, 0x2C, 0x0C}}
	iidIGraphicsCaptureSession                = comutil.GUID{0x2C39AE40, 0x7D2E, 0x5044, [8]byte{0x80, 0x4E, 0x8B, 0x67, 0x99, 0xD4, 0xCF, 0x9E}}
	iidIDirect3D11CaptureFrame                = comutil.GUID{0x88563CCC, 0x6B39, 0x4807, [8]byte{0x9B, 0x83, 0x46, 0x07, 0xBB, 0xCC, 0xAF, 0x67}}

	classIDGraphicsCaptureItem           = "Windows.Graphics.Capture.GraphicsCaptureItem"
	classIDDirect3D11CaptureFramePool    = "Windows.Graphics.Capture.Direct3D11CaptureFramePool"
)

// Vtable offsets. IUnknown is always 0-2. IInspectable (which every WinRT
// runtime interface except the few interop ones extends) adds GetIids,
// GetRuntimeClassName, GetTrustLevel at 3-5, so WinRT interface methods
// normally start at index 6 (vtblBase); interop interfaces
// (IGraphicsCaptureItemInterop, IDirect3DDxgiInterfaceAccess) extend plain
// IUnknown and start at 3.
const vtblBase = 6

const (
	// IGraphicsCaptureItemInterop (IUnknown-based)
	vtblCreateForWindow  = 3
	vtblCreateForMonitor = 4

	// IDirect3DDxgiInterfaceAccess (IUnknown-based)
	vtblGetInterface = 3

	// IGraphicsCaptureItem: get_DisplayName(0), get_Size(1), add_Closed(2), remove_Closed(3)
	vtblItemGetDisplayName = vtblBase + 0
	vtblItemGetSize        = vtblBase + 1

	// IDirect3D11CaptureFramePoolStatics2: CreateFreeThreaded(0), Create(1)
	vtblFramePoolStatics2CreateFreeThreaded = vtblBase + 0

	// IDirect3D11CaptureFramePool: Recreate(0), TryGetNextFrame(1),
	// add_FrameArrived(2), remove_FrameArrived(3), CreateCaptureSession(4), Close(5)
	vtblPoolRecreate             = vtblBase + 0
	vtblPoolTryGetNextFrame      = vtblBase + 1
	vtblPoolAddFrameArrived      = vtblBase + 2
	vtblPoolRemoveFrameArrived   = vtblBase + 3
	vtblPoolCreateCaptureSession = vtblBase + 4
	vtblPoolClose                = vtblBase + 5

	// IGraphicsCaptureSession: StartCapture(0), put_IsCursorCaptureEnabled(1),
	// get_IsCursorCaptureEnabled(2), Close(3), put_IsBorderRequired(4),
	// get_IsBorderRequired(5)
	vtblSessionStartCapture        = vtblBase + 0
	vtblSessionClose               = vtblBase + 3
	vtblSessionPutIsBorderRequired = vtblBase + 4

	// IDirect3D11CaptureFrame: get_Surface(0), get_ContentSize(1),
	// get_SystemRelativeTime(2)
	vtblFrameGetSurface            = vtblBase + 0
	vtblFrameGetContentSize        = vtblBase + 1
	vtblFrameGetSystemRelativeTime = vtblBase + 2
)
