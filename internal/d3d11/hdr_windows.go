//go:build windows

package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
)

var iidIDXGIOutput6 = comutil.GUID{0x068346e8, 0xaaec, 0x4b84, [8]byte{0xfd, 0xe3, 0x9a, 0xbe, 0xc8, 0x27, 0x75, 0xaa}}

// IsMonitorHDR enumerates the DXGI outputs on ctx's adapter, finds the one
// whose HMONITOR matches target, and reports whether it's running in
// advanced-color (HDR10) mode. Returns false and an error when the monitor
// can't be located among the adapter's outputs (for example after a
// display-topology change); wgc.NewSession logs that error and treats the
// target as SDR rather than failing construction.
func IsMonitorHDR(ctx *Context, target uintptr) (bool, error) {
	var adapterPtr uintptr
	if _, err := comutil.Call(ctx.DXGIDev, DXGIDeviceGetAdapter, uintptr(unsafe.Pointer(&adapterPtr))); err != nil {
		return false, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comutil.Release(adapterPtr)

	for i := uint32(0); ; i++ {
		var output uintptr
		if _, err := comutil.Call(adapterPtr, DXGIAdapterEnumOutputs, uintptr(i), uintptr(unsafe.Pointer(&output))); err != nil {
			break // DXGI_ERROR_NOT_FOUND once the output list is exhausted
		}

		var desc OutputDesc
		if _, err := comutil.Call(output, DXGIOutputGetDesc, uintptr(unsafe.Pointer(&desc))); err != nil {
			comutil.Release(output)
			continue
		}
		if desc.Monitor != target {
			comutil.Release(output)
			continue
		}

		output6, err := comutil.QueryInterface(output, &iidIDXGIOutput6)
		comutil.Release(output)
		if err != nil {
			return false, fmt.Errorf("QueryInterface IDXGIOutput6: %w", err)
		}
		defer comutil.Release(output6)

		var desc1 outputDesc1
		if _, err := comutil.Call(output6, DXGIOutput6GetDesc1, uintptr(unsafe.Pointer(&desc1))); err != nil {
			return false, fmt.Errorf("IDXGIOutput6::GetDesc1: %w", err)
		}
		return desc1.ColorSpace == ColorSpaceRGBFullG2084NoneP2020, nil
	}

	return false, fmt.Errorf("monitor 0x%X not found among adapter outputs", target)
}

// outputDesc1 matches the fields of DXGI_OUTPUT_DESC1 this package reads.
type outputDesc1 struct {
	DeviceName            [32]uint16
	DesktopCoordinates    [4]int32
	AttachedToDesktop     int32
	Rotation              uint32
	Monitor               uintptr
	BitsPerColor          uint32
	ColorSpace            uint32
	RedPrimary            [2]float32
	GreenPrimary          [2]float32
	BluePrimary           [2]float32
	WhitePoint            [2]float32
	MinLuminance          float32
	MaxLuminance          float32
	MaxFullFrameLuminance float32
}
