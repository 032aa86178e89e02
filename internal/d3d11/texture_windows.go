//go:build windows

package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/comutil"
	"github.com/LDNKS094/hdrcapture/internal/rowcopy"
)

// TextureReader owns a cached CPU-readable staging texture and performs
// GPU->CPU readback via CopyResource + Map/Unmap, stripping row-pitch
// padding on the way out.
type TextureReader struct {
	ctx *Context

	staging       uintptr
	stagingWidth  uint32
	stagingHeight uint32
	stagingFormat uint32

	scratch []byte
}

// NewTextureReader creates a reader bound to ctx. The staging texture is
// created lazily by EnsureStaging / Read.
func NewTextureReader(ctx *Context) *TextureReader {
	return &TextureReader{ctx: ctx}
}

// EnsureStaging (re)creates the cached staging texture if its dimensions or
// format don't match the request.
func (r *TextureReader) EnsureStaging(width, height, format uint32) error {
	if r.staging != 0 && r.stagingWidth == width && r.stagingHeight == height && r.stagingFormat == format {
		return nil
	}
	if r.staging != 0 {
		comutil.Release(r.staging)
		r.staging = 0
	}

	desc := Texture2DDesc{
		Width:          width,
		Height:         height,
		MipLevels:      1,
		ArraySize:      1,
		Format:         format,
		SampleCount:    1,
		Usage:          UsageStaging,
		CPUAccessFlags: CPUAccessRead,
	}
	tex, err := r.ctx.CreateTexture2D(&desc)
	if err != nil {
		return fmt.Errorf("staging texture: %w", err)
	}
	r.staging = tex
	r.stagingWidth = width
	r.stagingHeight = height
	r.stagingFormat = format
	return nil
}

// ReadInto copies srcTexture into the staging texture, maps it, and strips
// row-pitch padding directly into dest (caller-owned, e.g. a pool buffer).
// dest must have capacity for at least width*height*bpp(format) bytes; it
// returns the number of bytes written. No temporary allocation is made.
func (r *TextureReader) ReadInto(srcTexture uintptr, dest []byte, width, height, format uint32) (int, error) {
	if err := r.EnsureStaging(width, height, format); err != nil {
		return 0, err
	}

	if _, err := comutil.Call(r.ctx.DevCtx, CtxCopyResource, r.staging, srcTexture); err != nil {
		return 0, fmt.Errorf("CopyResource: %w", err)
	}

	var mapped MappedSubresource
	if _, err := comutil.Call(r.ctx.DevCtx, CtxMap, r.staging, 0, MapRead, 0, uintptr(unsafe.Pointer(&mapped))); err != nil {
		return 0, fmt.Errorf("Map: %w", err)
	}
	defer comutil.Call(r.ctx.DevCtx, CtxUnmap, r.staging, 0)

	bpp := BytesPerPixel(format)
	required := int(width) * int(height) * bpp
	if len(dest) < required {
		return 0, fmt.Errorf("readback destination too small: have %d, need %d", len(dest), required)
	}

	srcLen := int(mapped.RowPitch) * int(height)
	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), srcLen)

	// dest already has the required capacity; StripRowPitch reuses its
	// backing array in place rather than allocating.
	rowcopy.StripRowPitch(dest[:0:len(dest)], src, int(width), int(height), bpp, int(mapped.RowPitch))
	return required, nil
}

// Read copies srcTexture into the staging texture and returns it as a
// freshly allocated tightly packed byte slice, reusing the reader's scratch
// buffer across calls. Used by callers that don't already own a destination
// buffer (diagnostics, benchmarks).
func (r *TextureReader) Read(srcTexture uintptr, width, height, format uint32) ([]byte, error) {
	required := int(width) * int(height) * BytesPerPixel(format)
	if cap(r.scratch) < required {
		r.scratch = make([]byte, required)
	}
	r.scratch = r.scratch[:required]
	n, err := r.ReadInto(srcTexture, r.scratch, width, height, format)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.scratch[:n])
	return out, nil
}

// Close releases the cached staging texture.
func (r *TextureReader) Close() {
	if r == nil {
		return
	}
	comutil.Release(r.staging)
	r.staging = 0
}
