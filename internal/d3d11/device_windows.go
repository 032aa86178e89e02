//go:build windows

// Package d3d11 wraps the small slice of the D3D11/DXGI COM surface this
// capture pipeline needs: device creation, staging-texture readback, and
// compute-shader compile/dispatch. No cgo; raw syscall + hand-walked
// vtables, matching this codebase's existing Windows interop style.
package d3d11

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
)

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

const (
	driverTypeHardware = 1
	featureLevel11_0   = 0xb000
	sdkVersion         = 7

	createDeviceBGRASupport = 0x20
	createDeviceDebug       = 0x2
)

// Context holds the device + immediate context created for one pipeline.
// Both are COM interface pointers (ID3D11Device, ID3D11DeviceContext);
// callers are responsible for releasing them via Close.
type Context struct {
	Device  uintptr
	DevCtx  uintptr
	DXGIDev uintptr // IDXGIDevice, kept for adapter/output enumeration
}

var iidIDXGIDevice = comutil.GUID{0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}

// vtable index constants shared across the package. IUnknown is 0-2
// everywhere; offsets below are counted from the start of each interface's
// own vtable, i.e. already include the IUnknown base unless noted.
const (
	vtblQueryInterface = 0

	// ID3D11Device
	DeviceCreateTexture2D        = 5
	DeviceCreateShaderResourceView      = 7
	DeviceCreateUnorderedAccessView     = 9
	DeviceCreateComputeShader           = 20

	// ID3D11DeviceContext
	CtxMap                       = 14
	CtxUnmap                     = 15
	CtxCSSetShaderResources      = 8
	CtxCSSetUnorderedAccessViews = 10
	CtxCSSetShader               = 11
	CtxCSSetConstantBuffers      = 12
	CtxCopyResource              = 47
	CtxCopySubresourceRegion     = 46
	CtxDispatch                  = 20

	// IDXGIDevice
	DXGIDeviceGetAdapter = 7
	// IDXGIAdapter
	DXGIAdapterEnumOutputs = 7
	// IDXGIOutput
	DXGIOutputGetDesc = 7
	// IDXGIOutput6 (QueryInterface'd from IDXGIOutput)
	DXGIOutput6GetDesc1 = 12
)

// OutputDesc matches the fields of DXGI_OUTPUT_DESC this package reads.
type OutputDesc struct {
	DeviceName          [32]uint16
	DesktopCoordinates  [4]int32
	AttachedToDesktop   int32
	Rotation            uint32
	Monitor             uintptr
}

// Create initializes a hardware D3D11 device + immediate context and
// queries the IDXGIDevice interface used later for adapter/output
// enumeration (HDR detection).
func Create() (*Context, error) {
	var device, devCtx uintptr
	featureLevel := uint32(featureLevel11_0)
	var actualLevel uint32

	flags := uintptr(createDeviceBGRASupport)
	hr, _, _ := procD3D11CreateDevice.Call(
		0,
		uintptr(driverTypeHardware),
		0,
		flags,
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(sdkVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&devCtx)),
	)
	if int32(hr) < 0 {
		return nil, fmt.Errorf("D3D11CreateDevice: HRESULT 0x%08X", uint32(hr))
	}

	dxgiDev, err := comutil.QueryInterface(device, &iidIDXGIDevice)
	if err != nil {
		comutil.Release(devCtx)
		comutil.Release(device)
		return nil, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}

	return &Context{Device: device, DevCtx: devCtx, DXGIDev: dxgiDev}, nil
}

// Close releases the device, context, and DXGI device interface.
func (c *Context) Close() {
	if c == nil {
		return
	}
	comutil.Release(c.DXGIDev)
	comutil.Release(c.DevCtx)
	comutil.Release(c.Device)
}

// Texture2DDesc matches D3D11_TEXTURE2D_DESC.
type Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// MappedSubresource matches D3D11_MAPPED_SUBRESOURCE.
type MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

const (
	UsageDefault = 0
	UsageStaging = 3

	CPUAccessRead  = 0x20000
	BindShaderResource    = 0x8
	BindUnorderedAccess   = 0x80

	MapRead = 1

	FormatB8G8R8A8Unorm     = 87
	FormatR16G16B16A16Float = 10

	// Color space used for HDR detection (DXGI_COLOR_SPACE_RGB_FULL_G2084_NONE_P2020).
	ColorSpaceRGBFullG2084NoneP2020 = 12
)

// CreateTexture2D creates a texture with no initial data.
func (c *Context) CreateTexture2D(desc *Texture2DDesc) (uintptr, error) {
	var tex uintptr
	_, err := comutil.Call(c.Device, DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(desc)),
		0,
		uintptr(unsafe.Pointer(&tex)),
	)
	if err != nil {
		return 0, fmt.Errorf("CreateTexture2D: %w", err)
	}
	return tex, nil
}

// BytesPerPixel returns the per-pixel byte size for the two DXGI formats
// this pipeline uses.
func BytesPerPixel(format uint32) int {
	switch format {
	case FormatR16G16B16A16Float:
		return 8
	default:
		return 4
	}
}
