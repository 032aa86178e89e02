//go:build windows

package tonemap

import (
	_ "embed"
	"fmt"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
	"github.com/LDNKS094/hdrcapture/internal/d3d11"
)

//go:embed shaders/hard_clip.hlsl
var hardClipHLSL []byte

//go:embed shaders/shoulder_rolloff.hlsl
var shoulderRolloffHLSL []byte

//go:embed shaders/bt2390.hlsl
var bt2390HLSL []byte

func shaderSource(s Strategy) []byte {
	switch s {
	case ShoulderRolloff:
		return shoulderRolloffHLSL
	case BT2390:
		return bt2390HLSL
	default:
		return hardClipHLSL
	}
}

// Pass is the GPU compute pass that converts one Rgba16f scRGB texture to a
// Bgra8 SDR texture. It exists only for CapturePolicy Auto; Sdr and Hdr skip
// this stage entirely.
type Pass struct {
	ctx    *d3d11.Context
	shader *d3d11.ComputeShader
	cbuf   uintptr

	outTexture uintptr
	outUAV     uintptr
	outWidth   uint32
	outHeight  uint32
}

// NewPass compiles the chosen strategy's shader once, at pipeline
// construction.
func NewPass(ctx *d3d11.Context, strategy Strategy) (*Pass, error) {
	shader, err := d3d11.CompileComputeShader(ctx, shaderSource(strategy), "main")
	if err != nil {
		return nil, fmt.Errorf("compile tone-map shader (%s): %w", strategy, err)
	}
	cbuf, err := ctx.ConstantBufferF32()
	if err != nil {
		return nil, fmt.Errorf("tone-map constant buffer: %w", err)
	}
	return &Pass{ctx: ctx, shader: shader, cbuf: cbuf}, nil
}

func (p *Pass) ensureOutput(width, height uint32) error {
	if p.outTexture != 0 && p.outWidth == width && p.outHeight == height {
		return nil
	}
	tex, uav, err := p.ctx.CreateComputeOutput(width, height, d3d11.FormatB8G8R8A8Unorm)
	if err != nil {
		return fmt.Errorf("tone-map output cache: %w", err)
	}
	comutil.Release(p.outTexture)
	comutil.Release(p.outUAV)
	p.outTexture, p.outUAV = tex, uav
	p.outWidth, p.outHeight = width, height
	return nil
}

// Execute converts inputTexture (Rgba16f, width x height) into the cached
// Bgra8 output texture and returns it.
func (p *Pass) Execute(inputTexture uintptr, width, height uint32, sdrWhiteNits float32) (uintptr, error) {
	if err := p.ensureOutput(width, height); err != nil {
		return 0, err
	}
	if err := p.ctx.UpdateConstantBufferF32(p.cbuf, sdrWhiteNits); err != nil {
		return 0, fmt.Errorf("update tone-map constant buffer: %w", err)
	}
	srv, err := p.ctx.CreateSRV(inputTexture)
	if err != nil {
		return 0, fmt.Errorf("tone-map input SRV: %w", err)
	}
	defer comutil.Release(srv)
	p.ctx.Dispatch(p.shader, srv, p.outUAV, p.cbuf, width, height)
	return p.outTexture, nil
}

// Close releases the pass's cached output texture/view and constant buffer.
// The compiled shader is small and process-lifetime; it is not released here.
func (p *Pass) Close() {
	if p == nil {
		return
	}
	comutil.Release(p.outUAV)
	comutil.Release(p.outTexture)
	comutil.Release(p.cbuf)
}
