//go:build windows

package d3d11

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
)

var (
	d3dCompilerDLL = syscall.NewLazyDLL("d3dcompiler_47.dll")
	procD3DCompile = d3dCompilerDLL.NewProc("D3DCompile")
)

// threadGroupSize matches the [numthreads(8,8,1)] declared in every shader
// under internal/tonemap/shaders.
const threadGroupSize = 8

// ComputeShader is a compiled+ready-to-dispatch D3D11 compute shader.
type ComputeShader struct {
	shader uintptr // ID3D11ComputeShader
}

// CompileComputeShader compiles hlsl (target cs_5_0) and creates the shader
// object on ctx.Device.
func CompileComputeShader(ctx *Context, hlsl []byte, entryPoint string) (*ComputeShader, error) {
	var blob, errBlob uintptr
	entry := append([]byte(entryPoint), 0)
	target := append([]byte("cs_5_0"), 0)

	hr, _, _ := procD3DCompile.Call(
		uintptr(unsafe.Pointer(&hlsl[0])),
		uintptr(len(hlsl)),
		0, 0, 0,
		uintptr(unsafe.Pointer(&entry[0])),
		uintptr(unsafe.Pointer(&target[0])),
		3, // D3DCOMPILE_OPTIMIZATION_LEVEL3
		0,
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(&errBlob)),
	)
	if int32(hr) < 0 {
		msg := blobString(errBlob)
		comutil.Release(errBlob)
		return nil, fmt.Errorf("D3DCompile failed: %s", msg)
	}
	defer comutil.Release(blob)

	ptr := blobPointer(blob)
	size := blobSize(blob)
	bytecode := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)

	var shader uintptr
	if _, err := comutil.Call(ctx.Device, DeviceCreateComputeShader,
		uintptr(unsafe.Pointer(&bytecode[0])), uintptr(size), 0, uintptr(unsafe.Pointer(&shader))); err != nil {
		return nil, fmt.Errorf("CreateComputeShader: %w", err)
	}
	return &ComputeShader{shader: shader}, nil
}

// ID3DBlob::GetBufferPointer / GetBufferSize are at vtable indices 3 and 4.
const (
	blobGetBufferPointer = 3
	blobGetBufferSize    = 4
)

func blobPointer(blob uintptr) uintptr {
	if blob == 0 {
		return 0
	}
	ret, _ := comutil.Call(blob, blobGetBufferPointer)
	return ret
}

func blobSize(blob uintptr) int {
	if blob == 0 {
		return 0
	}
	ret, _ := comutil.Call(blob, blobGetBufferSize)
	return int(ret)
}

func blobString(blob uintptr) string {
	if blob == 0 {
		return "unknown shader compile error"
	}
	ptr := blobPointer(blob)
	size := blobSize(blob)
	if ptr == 0 || size == 0 {
		return "unknown shader compile error"
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
	return string(buf)
}

// CreateSRV creates a shader-resource view over an existing texture.
func (c *Context) CreateSRV(texture uintptr) (uintptr, error) {
	var srv uintptr
	if _, err := comutil.Call(c.Device, DeviceCreateShaderResourceView, texture, 0, uintptr(unsafe.Pointer(&srv))); err != nil {
		return 0, fmt.Errorf("CreateShaderResourceView: %w", err)
	}
	return srv, nil
}

// CreateComputeOutput creates a UAV+SRV-bindable output texture of the
// given size/format and its UAV.
func (c *Context) CreateComputeOutput(width, height, format uint32) (texture uintptr, uav uintptr, err error) {
	desc := Texture2DDesc{
		Width:       width,
		Height:      height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      format,
		SampleCount: 1,
		Usage:       UsageDefault,
		BindFlags:   BindUnorderedAccess | BindShaderResource,
	}
	texture, err = c.CreateTexture2D(&desc)
	if err != nil {
		return 0, 0, fmt.Errorf("compute output texture: %w", err)
	}
	if _, err = comutil.Call(c.Device, DeviceCreateUnorderedAccessView, texture, 0, uintptr(unsafe.Pointer(&uav))); err != nil {
		comutil.Release(texture)
		return 0, 0, fmt.Errorf("CreateUnorderedAccessView: %w", err)
	}
	return texture, uav, nil
}

// ConstantBufferF32 creates a dynamic 16-byte constant buffer (one float,
// rest padding) suitable for map/write-discard updates.
func (c *Context) ConstantBufferF32() (uintptr, error) {
	return c.createDynamicConstantBuffer(16)
}

const (
	bindConstantBuffer = 0x4
	usageDynamic       = 2
	cpuAccessWrite     = 0x10000
	deviceCreateBuffer = 3 // ID3D11Device::CreateBuffer
)

// bufferDesc matches D3D11_BUFFER_DESC.
type bufferDesc struct {
	ByteWidth      uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
	StructureByteStride uint32
}

func (c *Context) createDynamicConstantBuffer(byteWidth uint32) (uintptr, error) {
	desc := bufferDesc{
		ByteWidth:      byteWidth,
		Usage:          usageDynamic,
		BindFlags:      bindConstantBuffer,
		CPUAccessFlags: cpuAccessWrite,
	}
	var buf uintptr
	if _, err := comutil.Call(c.Device, deviceCreateBuffer, uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&buf))); err != nil {
		return 0, fmt.Errorf("CreateBuffer (constant buffer): %w", err)
	}
	return buf, nil
}

// UpdateConstantBufferF32 maps buf with write-discard and writes value into
// the first 4 bytes.
func (c *Context) UpdateConstantBufferF32(buf uintptr, value float32) error {
	var mapped MappedSubresource
	const mapWriteDiscard = 4
	if _, err := comutil.Call(c.DevCtx, CtxMap, buf, 0, mapWriteDiscard, 0, uintptr(unsafe.Pointer(&mapped))); err != nil {
		return fmt.Errorf("Map constant buffer: %w", err)
	}
	defer comutil.Call(c.DevCtx, CtxUnmap, buf, 0)

	dst := unsafe.Slice((*float32)(unsafe.Pointer(mapped.PData)), 1)
	dst[0] = value
	return nil
}

// Dispatch binds shader/SRV/UAV/constant buffer, dispatches ceil(w/8) x
// ceil(h/8) x 1 thread groups, and unbinds everything.
func (c *Context) Dispatch(shader *ComputeShader, srv, uav, constantBuffer uintptr, width, height uint32) {
	groupsX := (width + threadGroupSize - 1) / threadGroupSize
	groupsY := (height + threadGroupSize - 1) / threadGroupSize

	comutil.Call(c.DevCtx, CtxCSSetShader, shader.shader, 0, 0)
	srvs := [1]uintptr{srv}
	comutil.Call(c.DevCtx, CtxCSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srvs[0])))
	uavs := [1]uintptr{uav}
	comutil.Call(c.DevCtx, CtxCSSetUnorderedAccessViews, 0, 1, uintptr(unsafe.Pointer(&uavs[0])), 0)
	cbs := [1]uintptr{constantBuffer}
	comutil.Call(c.DevCtx, CtxCSSetConstantBuffers, 0, 1, uintptr(unsafe.Pointer(&cbs[0])))

	comutil.Call(c.DevCtx, CtxDispatch, uintptr(groupsX), uintptr(groupsY), 1)

	noSRV := [1]uintptr{0}
	noUAV := [1]uintptr{0}
	noCB := [1]uintptr{0}
	comutil.Call(c.DevCtx, CtxCSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&noSRV[0])))
	comutil.Call(c.DevCtx, CtxCSSetUnorderedAccessViews, 0, 1, uintptr(unsafe.Pointer(&noUAV[0])), 0)
	comutil.Call(c.DevCtx, CtxCSSetConstantBuffers, 0, 1, uintptr(unsafe.Pointer(&noCB[0])))
	comutil.Call(c.DevCtx, CtxCSSetShader, 0, 0, 0)
}
