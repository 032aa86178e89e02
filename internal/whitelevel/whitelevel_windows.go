//go:build windows

package whitelevel

import (
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/LDNKS094/hdrcapture/internal/logging"
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	ccDLL    = syscall.NewLazyDLL("user32.dll") // DisplayConfig* live in user32.dll

	procGetMonitorInfoW            = user32.NewProc("GetMonitorInfoW")
	procGetDisplayConfigBufferSizes = ccDLL.NewProc("GetDisplayConfigBufferSizes")
	procQueryDisplayConfig          = ccDLL.NewProc("QueryDisplayConfig")
	procDisplayConfigGetDeviceInfo  = ccDLL.NewProc("DisplayConfigGetDeviceInfo")
)

const (
	qdcOnlyActivePaths = 0x00000002

	deviceInfoGetSourceName    = 1
	deviceInfoGetSDRWhiteLevel = 9
)

// monitorInfoExW matches MONITORINFOEXW.
type monitorInfoExW struct {
	cbSize    uint32
	rcMonitor [4]int32
	rcWork    [4]int32
	dwFlags   uint32
	szDevice  [32]uint16
}

// displayConfigDeviceInfoHeader matches DISPLAYCONFIG_DEVICE_INFO_HEADER.
type displayConfigDeviceInfoHeader struct {
	Type      uint32
	Size      uint32
	AdapterID [2]uint32 // LUID
	ID        uint32
}

// displayConfigPathInfo is trimmed to the fields this query needs; the real
// struct is much larger, but GetDisplayConfigBufferSizes/QueryDisplayConfig
// only require a correctly sized buffer — we don't field-access past what
// we use.
type displayConfigPathInfo struct {
	sourceInfo struct {
		adapterID [2]uint32
		id        uint32
		_         uint32
	}
	targetInfo struct {
		adapterID [2]uint32
		id        uint32
		_         [40]byte
	}
	_ [24]byte
}

type displayConfigSourceDeviceName struct {
	header            displayConfigDeviceInfoHeader
	viewGdiDeviceName [32]uint16
}

type displayConfigSDRWhiteLevel struct {
	header         displayConfigDeviceInfoHeader
	sdrWhiteLevel  uint32
}

// Query resolves the SDR white level (nits) for the given HMONITOR. Falls
// back to a WMI query, then to DefaultNits, on any failure.
func Query(hmonitor uintptr) float32 {
	if nits, ok := queryViaDisplayConfig(hmonitor); ok {
		return nits
	}
	if nits, ok := queryViaWMI(); ok {
		return nits
	}
	logging.L("whitelevel").Warn("SDR white level query failed, using default", "nits", DefaultNits)
	return DefaultNits
}

func queryViaDisplayConfig(hmonitor uintptr) (float32, bool) {
	deviceName, ok := monitorDeviceName(hmonitor)
	if !ok {
		return 0, false
	}
	path, ok := findDisplayConfigPath(deviceName)
	if !ok {
		return 0, false
	}
	return queryWhiteLevelFromPath(path)
}

func monitorDeviceName(hmonitor uintptr) ([32]uint16, bool) {
	var info monitorInfoExW
	info.cbSize = uint32(unsafe.Sizeof(info))
	ret, _, _ := procGetMonitorInfoW.Call(hmonitor, uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return [32]uint16{}, false
	}
	return info.szDevice, true
}

func findDisplayConfigPath(deviceName [32]uint16) (displayConfigPathInfo, bool) {
	var numPaths, numModes uint32
	ret, _, _ := procGetDisplayConfigBufferSizes.Call(
		uintptr(qdcOnlyActivePaths),
		uintptr(unsafe.Pointer(&numPaths)),
		uintptr(unsafe.Pointer(&numModes)),
	)
	if ret != 0 {
		return displayConfigPathInfo{}, false
	}

	paths := make([]displayConfigPathInfo, numPaths)
	modes := make([]byte, numModes*64) // DISPLAYCONFIG_MODE_INFO is 64 bytes; we never read it.

	ret, _, _ = procQueryDisplayConfig.Call(
		uintptr(qdcOnlyActivePaths),
		uintptr(unsafe.Pointer(&numPaths)),
		uintptr(unsafe.Pointer(&paths[0])),
		uintptr(unsafe.Pointer(&numModes)),
		uintptr(unsafe.Pointer(&modes[0])),
		0,
	)
	if ret != 0 {
		return displayConfigPathInfo{}, false
	}

	for _, path := range paths[:numPaths] {
		var sourceName displayConfigSourceDeviceName
		sourceName.header = displayConfigDeviceInfoHeader{
			Type:      deviceInfoGetSourceName,
			Size:      uint32(unsafe.Sizeof(sourceName)),
			AdapterID: path.sourceInfo.adapterID,
			ID:        path.sourceInfo.id,
		}
		ret, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&sourceName.header)))
		if ret != 0 {
			continue
		}
		if sourceName.viewGdiDeviceName == deviceName {
			return path, true
		}
	}
	return displayConfigPathInfo{}, false
}

func queryWhiteLevelFromPath(path displayConfigPathInfo) (float32, bool) {
	var level displayConfigSDRWhiteLevel
	level.header = displayConfigDeviceInfoHeader{
		Type:      deviceInfoGetSDRWhiteLevel,
		Size:      uint32(unsafe.Sizeof(level)),
		AdapterID: path.targetInfo.adapterID,
		ID:        path.targetInfo.id,
	}
	ret, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(&level.header)))
	if ret != 0 {
		return 0, false
	}
	return FromRawLevel(level.sdrWhiteLevel), true
}

// queryViaWMI is a fallback path for systems where DisplayConfigGetDeviceInfo
// is unavailable (pre-1903 Windows): ask WMI's WmiMonitorBrightness class
// for the current brightness and map it to nits. This is a best-effort approximation, not
// a bit-exact equivalent of the DisplayConfig API.
func queryViaWMI() (float32, bool) {
	if err := ole.CoInitialize(0); err != nil {
		return 0, false
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return 0, false
	}
	defer unknown.Release()

	wmi, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return 0, false
	}
	defer wmi.Release()

	serviceRaw, err := oleutil.CallMethod(wmi, "ConnectServer", nil, `root\wmi`)
	if err != nil {
		return 0, false
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	resultRaw, err := oleutil.CallMethod(service, "ExecQuery", "SELECT * FROM WmiMonitorBrightness")
	if err != nil {
		return 0, false
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	countRaw, err := oleutil.GetProperty(result, "Count")
	if err != nil || countRaw.Val == 0 {
		return 0, false
	}

	itemRaw, err := oleutil.CallMethod(result, "ItemIndex", 0)
	if err != nil {
		return 0, false
	}
	item := itemRaw.ToIDispatch()
	defer item.Release()

	levelRaw, err := oleutil.GetProperty(item, "CurrentBrightness")
	if err != nil {
		return 0, false
	}

	// WmiMonitorBrightness reports a 0-100 percentage, not a nits value;
	// approximate nits by scaling against a 400-nit typical HDR-capable
	// panel ceiling. This is explicitly a rough fallback.
	percent := float32(levelRaw.Val)
	return 80.0 + (percent/100.0)*320.0, true
}
