//go:build windows

package hdrcapture

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/LDNKS094/hdrcapture/internal/bufferpool"
	"github.com/LDNKS094/hdrcapture/internal/comutil"
	"github.com/LDNKS094/hdrcapture/internal/d3d11"
	"github.com/LDNKS094/hdrcapture/internal/targetresolve"
	"github.com/LDNKS094/hdrcapture/internal/tonemap"
	"github.com/LDNKS094/hdrcapture/internal/wgc"
	"github.com/LDNKS094/hdrcapture/internal/whitelevel"
)

type cropCache struct {
	texture uintptr
	w, h    uint32
	format  uint32
}

// Pipeline owns one capture target's full GPU pipeline: WGC session,
// readback, optional tone-map pass, and the output buffer pool. It is
// thread-affine — every method must be called from the goroutine that
// created it, and that goroutine must never hand off to another OS thread
// mid-lifetime (runtime.LockOSThread in the caller is recommended). A
// binding that needs a different calling thread should own a dedicated
// goroutine wrapping a Pipeline and communicate over channels.
type Pipeline struct {
	ctx     *d3d11.Context
	policy  Policy
	session *wgc.Session
	reader  *d3d11.TextureReader
	pool    *bufferpool.Pool

	tonemapPass *tonemap.Pass

	firstCall    bool
	cachedFrame  *CapturedFrame
	forceFresh   bool
	sdrWhiteNits float32
	targetHdr    bool
	headless     bool

	cropTexture cropCache
}

// Monitor opens a pipeline capturing the display at the given system
// enumeration index.
func Monitor(index int, policy Policy) (*Pipeline, error) {
	targetresolve.EnableDPIAwareness()
	hmon, err := targetresolve.FindMonitor(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTargetNotFound, err)
	}
	nits := whitelevel.Query(hmon)
	return newPipeline(wgc.Target{Monitor: hmon}, policy, nits, false)
}

// Window opens a pipeline capturing the window resolved from sel. headless
// controls whether the window's client-area is cropped out of the raw WGC
// frame (which otherwise includes chrome, shadow, and DWM padding).
func Window(sel WindowSelector, policy Policy, headless bool) (*Pipeline, error) {
	targetresolve.EnableDPIAwareness()
	hwnd, err := targetresolve.FindWindow(targetresolve.WindowSelector{
		Hwnd:    sel.Hwnd,
		Pid:     sel.Pid,
		Process: sel.Process,
	}, sel.RankedIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTargetNotFound, err)
	}
	nits := whitelevel.Query(wgc.MonitorFromWindow(hwnd))
	return newPipeline(wgc.Target{Window: hwnd}, policy, nits, headless)
}

func newPipeline(target wgc.Target, policy Policy, sdrWhiteNits float32, headless bool) (*Pipeline, error) {
	ctx, err := d3d11.Create()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceCreationFailed, err)
	}

	session, err := wgc.NewSession(ctx, target, policy.String())
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionInitFailed, err)
	}
	if err := session.Start(); err != nil {
		session.Close()
		ctx.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionInitFailed, err)
	}

	var pass *tonemap.Pass
	if policy == Auto {
		pass, err = tonemap.NewPass(ctx, tonemap.BT2390)
		if err != nil {
			session.Close()
			ctx.Close()
			return nil, fmt.Errorf("create tone-map pass: %w", err)
		}
	}

	poolW, poolH := session.PoolSize()
	frameBytes := int(poolW) * int(poolH) * d3d11.BytesPerPixel(session.PoolFormat())

	return &Pipeline{
		ctx:          ctx,
		policy:       policy,
		session:      session,
		reader:       d3d11.NewTextureReader(ctx),
		pool:         bufferpool.New(frameBytes),
		tonemapPass:  pass,
		firstCall:    true,
		sdrWhiteNits: sdrWhiteNits,
		targetHdr:    session.IsHdr(),
		headless:     headless,
	}, nil
}

// IsHdr reports whether the target was detected as an HDR-active display at
// construction time.
func (p *Pipeline) IsHdr() bool { return p.targetHdr }

// PoolStats snapshots the output buffer pool's counters.
func (p *Pipeline) PoolStats() PoolStats {
	s := p.pool.Stats()
	return PoolStats{
		TotalFrames:  s.TotalFrames,
		FreeFrames:   s.FreeFrames,
		ExpandCount:  s.ExpandCount,
		ShrinkCount:  s.ShrinkCount,
		AcquireCount: s.AcquireCount,
		AllocCount:   s.AllocCount,
	}
}

// Close tears down the GPU pipeline: tone-map pass, WGC session, and
// device. The pool and any outstanding CapturedFrame buffers remain valid
// until their own Release calls.
func (p *Pipeline) Close() {
	if p == nil {
		return
	}
	if p.cropTexture.texture != 0 {
		comutil.Release(p.cropTexture.texture)
	}
	p.tonemapPass.Close()
	p.reader.Close()
	p.session.Close()
	p.ctx.Close()
}

// handleFirstCall resolves the very first frame of a pipeline's lifetime.
// A resize-retry exhaustion here is not yet a fallback candidate (nothing has
// been cached yet), so it gets one more hard-wait attempt before giving up,
// matching the original's handle_first_call.
func (p *Pipeline) handleFirstCall(isGrab bool) (*CapturedFrame, error) {
	p.firstCall = false

	frame, err := hardWaitFrame(p.session, blockingTimeoutMs)
	if err != nil {
		return p.fallbackOrErr(err)
	}
	out, resolved, err := p.finishFrame(frame, isGrab)
	if err != nil {
		return nil, err
	}
	if resolved {
		return out, nil
	}
	if p.cachedFrame != nil {
		return p.cloneFrame(p.cachedFrame), nil
	}

	frame, err = hardWaitFrame(p.session, blockingTimeoutMs)
	if err != nil {
		return nil, err
	}
	out, resolved, err = p.finishFrame(frame, isGrab)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, fmt.Errorf("%w: could not resolve a stable frame after resize", ErrTimeout)
	}
	return out, nil
}

// Capture implements screenshot semantics: the returned frame reflects
// state no older than the call itself, tolerating a short wait for a fresh
// frame to arrive. Each tier (fresh, drained fallback, cached, blocking) is
// tried in turn; a tier is skipped only when it resolves to nothing (resize
// never settled), never when it merely hasn't been reached yet — a resize
// exhaustion on the fresh frame still lets the drained fallback be tried.
func (p *Pipeline) Capture() (*CapturedFrame, error) {
	if p.firstCall {
		return p.handleFirstCall(false)
	}

	var fallback uintptr
	haveFallback := false
	for {
		f, ok, err := p.session.TryGetNextFrame()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if haveFallback {
			comutil.Release(fallback)
		}
		fallback, haveFallback = f, true
	}

	if f, ok, err := softWaitFrame(p.session, freshFrameTimeoutMs); err != nil {
		return nil, err
	} else if ok {
		out, resolved, ferr := p.finishFrame(f, false)
		if ferr != nil {
			return nil, ferr
		}
		if resolved {
			if haveFallback {
				comutil.Release(fallback)
			}
			return out, nil
		}
		// Fresh frame's resize never settled; the drained fallback below is
		// still a usable frame, don't discard it.
	}

	if haveFallback {
		out, resolved, ferr := p.finishFrame(fallback, false)
		if ferr != nil {
			return nil, ferr
		}
		if resolved {
			return out, nil
		}
	}
	if p.cachedFrame != nil {
		return p.cloneFrame(p.cachedFrame), nil
	}

	frame, err := hardWaitFrame(p.session, blockingTimeoutMs)
	if err != nil {
		return nil, err
	}
	out, resolved, err := p.finishFrame(frame, false)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, fmt.Errorf("%w: could not resolve a stable frame after resize", ErrTimeout)
	}
	return out, nil
}

// Grab implements low-latency semantics: always the most recently arrived
// frame, never waiting on a long timeout if anything at all is available.
func (p *Pipeline) Grab() (*CapturedFrame, error) {
	if p.forceFresh {
		p.forceFresh = false
		if f, ok, err := softWaitFrame(p.session, freshFrameTimeoutMs); err != nil {
			return nil, err
		} else if ok {
			out, resolved, ferr := p.finishFrame(f, true)
			if ferr != nil {
				return nil, ferr
			}
			if resolved {
				return out, nil
			}
		}
		return p.fallbackBlocking(true)
	}

	if p.firstCall {
		return p.handleFirstCall(true)
	}

	var last uintptr
	haveLast := false
	for {
		f, ok, err := p.session.TryGetNextFrame()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if haveLast {
			comutil.Release(last)
		}
		last, haveLast = f, true
	}
	if haveLast {
		out, resolved, ferr := p.finishFrame(last, true)
		if ferr != nil {
			return nil, ferr
		}
		if resolved {
			return out, nil
		}
	}

	if f, ok, err := softWaitFrame(p.session, freshFrameTimeoutMs); err != nil {
		return nil, err
	} else if ok {
		out, resolved, ferr := p.finishFrame(f, true)
		if ferr != nil {
			return nil, ferr
		}
		if resolved {
			return out, nil
		}
	}
	return p.fallbackBlocking(true)
}

func (p *Pipeline) fallbackBlocking(isGrab bool) (*CapturedFrame, error) {
	if p.cachedFrame != nil {
		return p.cloneFrame(p.cachedFrame), nil
	}
	frame, err := hardWaitFrame(p.session, blockingTimeoutMs)
	if err != nil {
		return nil, err
	}
	out, resolved, err := p.finishFrame(frame, isGrab)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, fmt.Errorf("%w: could not resolve a stable frame after resize", ErrTimeout)
	}
	return out, nil
}

func (p *Pipeline) fallbackOrErr(err error) (*CapturedFrame, error) {
	if p.cachedFrame != nil {
		return p.cloneFrame(p.cachedFrame), nil
	}
	return nil, err
}

// softWaitFrame polls TryGetNextFrame, falling back to blocking on the
// frame-arrived event for whatever time remains, until timeoutMs elapses.
// Returns ok=false on timeout, not an error.
func softWaitFrame(session *wgc.Session, timeoutMs uint32) (uintptr, bool, error) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		if f, ok, err := session.TryGetNextFrame(); err != nil {
			return 0, false, err
		} else if ok {
			return f, true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, false, nil
		}
		ms := uint32(remaining / time.Millisecond)
		if ms == 0 {
			ms = 1
		}
		signaled, err := session.WaitForFrame(ms)
		if err != nil {
			return 0, false, err
		}
		if !signaled {
			return 0, false, nil
		}
	}
}

func hardWaitFrame(session *wgc.Session, timeoutMs uint32) (uintptr, error) {
	f, ok, err := softWaitFrame(session, timeoutMs)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: no frame within %dms", ErrTimeout, timeoutMs)
	}
	return f, nil
}

// finishFrame resolves resizes, crops, tone-maps, and reads back one raw
// frame, releasing the WGC frame handle once the texture has been consumed.
// resolved is false, with a nil error, when the target's resize never
// settled and this frame source has nothing usable to offer this round —
// the caller is expected to try its next fallback tier rather than treat
// this as a failure. A non-nil error is a genuine, immediately-propagating
// failure (device/API error), matching the original's distinction between
// Ok(None) and Err in resolve_frame_after_resize.
func (p *Pipeline) finishFrame(frame uintptr, isGrab bool) (out *CapturedFrame, resolved bool, err error) {
	texture, releaseTexture, w, h, ts, finalFrame, resolved, err := p.resolveFrameAfterResize(frame, isGrab)
	if err != nil {
		comutil.Release(finalFrame)
		return nil, false, err
	}
	if !resolved {
		comutil.Release(finalFrame)
		return nil, false, nil
	}

	out, err = p.processAndCache(texture, w, h, ts)
	if releaseTexture {
		comutil.Release(texture)
	}
	comutil.Release(finalFrame)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// resolveFrameAfterResize implements the resize-retry loop: it rechecks the
// target's current geometry against the pool size, recreating and
// discarding frames until they agree or wgc.ResizeRetryLimit is hit. On
// success it also performs client-area cropping for headless window
// targets. markGrabSync arms forceFresh when a recreate happens, so the
// caller's *next* Grab does not serve a stale buffered frame.
//
// Exhausting the retry limit without the target settling is not an error:
// it returns resolved=false, err=nil, matching the original's bare Ok(None)
// after the retry loop. A failure inside the loop (frame-pool recreation, a
// wait error, or no frame arriving within blockingTimeoutMs after a
// recreate, which is an ErrTimeout) is a hard error and propagates
// immediately.
func (p *Pipeline) resolveFrameAfterResize(frame uintptr, markGrabSync bool) (texture uintptr, releaseTexture bool, w, h uint32, ts float64, finalFrame uintptr, resolved bool, err error) {
	current := frame

	for i := 0; i < wgc.ResizeRetryLimit; i++ {
		poolW, poolH := p.session.PoolSize()

		var geometry *wgc.Geometry
		var contentW, contentH uint32
		if p.session.IsWindowTarget() {
			geometry = p.session.WindowGeometry(poolW, poolH)
		} else {
			contentW, contentH, _ = p.session.ContentSize(current)
		}

		newW, newH, needsRecreate := wgc.NeedsRecreate(p.session.IsWindowTarget(), poolW, poolH, geometry, contentW, contentH)
		if !needsRecreate {
			tex, relTex, fw, fh, fts, ff, ferr := p.finalizeTexture(current, poolW, poolH, geometry)
			return tex, relTex, fw, fh, fts, ff, ferr == nil, ferr
		}

		if err := p.session.RecreateFramePool(newW, newH); err != nil {
			return 0, false, 0, 0, 0, current, false, fmt.Errorf("recreate frame pool: %w", err)
		}
		if markGrabSync {
			p.forceFresh = true
		}

		comutil.Release(current)
		current = 0

		// The frame immediately after a recreate is frequently still sized
		// for the old pool; discard it and take the one after.
		discard, ok, derr := softWaitFrame(p.session, blockingTimeoutMs)
		if derr != nil {
			return 0, false, 0, 0, 0, 0, false, derr
		}
		if ok {
			comutil.Release(discard)
		}

		next, nerr := hardWaitFrame(p.session, blockingTimeoutMs)
		if nerr != nil {
			return 0, false, 0, 0, 0, 0, false, nerr
		}
		current = next
	}

	return 0, false, 0, 0, 0, current, false, nil
}

func (p *Pipeline) finalizeTexture(frame uintptr, poolW, poolH uint32, geometry *wgc.Geometry) (texture uintptr, releaseTexture bool, w, h uint32, ts float64, finalFrame uintptr, err error) {
	raw, terr := p.session.FrameToTexture(frame)
	if terr != nil {
		return 0, false, 0, 0, 0, frame, fmt.Errorf("frame to texture: %w", terr)
	}

	ts, _ = p.session.SystemRelativeTime(frame)

	if p.headless && p.session.IsWindowTarget() && geometry != nil && geometry.ClientBox != nil {
		cropped, cw, ch, cerr := p.ensureCropTexture(raw, *geometry.ClientBox, p.session.PoolFormat())
		if cerr == nil {
			comutil.Release(raw)
			return cropped, false, uint32(cw), uint32(ch), ts, frame, nil
		}
		// Crop failed (unexpected GPU error); fall through to the raw texture.
	}

	return raw, true, poolW, poolH, ts, frame, nil
}

// d3d11Box matches D3D11_BOX.
type d3d11Box struct {
	Left, Top, Front, Right, Bottom, Back uint32
}

// ensureCropTexture lazily (re)creates a cached texture matching the crop
// box's (w, h, format) and copies the box's sub-region of raw into it via a
// single GPU-side CopySubresourceRegion.
func (p *Pipeline) ensureCropTexture(raw uintptr, box wgc.Box, format uint32) (uintptr, int, int, error) {
	w, h := box.Width(), box.Height()
	if p.cropTexture.texture == 0 || p.cropTexture.w != uint32(w) || p.cropTexture.h != uint32(h) || p.cropTexture.format != format {
		if p.cropTexture.texture != 0 {
			comutil.Release(p.cropTexture.texture)
		}
		tex, cerr := p.ctx.CreateTexture2D(&d3d11.Texture2DDesc{
			Width:       uint32(w),
			Height:      uint32(h),
			MipLevels:   1,
			ArraySize:   1,
			Format:      format,
			SampleCount: 1,
			Usage:       d3d11.UsageDefault,
			BindFlags:   d3d11.BindShaderResource,
		})
		if cerr != nil {
			return 0, 0, 0, fmt.Errorf("create crop texture: %w", cerr)
		}
		p.cropTexture = cropCache{texture: tex, w: uint32(w), h: uint32(h), format: format}
	}

	srcBox := d3d11Box{Left: uint32(box.Left), Top: uint32(box.Top), Front: 0, Right: uint32(box.Right), Bottom: uint32(box.Bottom), Back: 1}
	if _, cerr := comutil.Call(p.ctx.DevCtx, d3d11.CtxCopySubresourceRegion,
		p.cropTexture.texture, 0, 0, 0, 0,
		raw, 0, uintptr(unsafe.Pointer(&srcBox)),
	); cerr != nil {
		return 0, 0, 0, fmt.Errorf("CopySubresourceRegion: %w", cerr)
	}
	return p.cropTexture.texture, w, h, nil
}

func toPixelFormat(d3dFormat uint32) PixelFormat {
	if d3dFormat == d3d11.FormatR16G16B16A16Float {
		return Rgba16f
	}
	return Bgra8
}

// processAndCache runs the tone-map pass (when applicable), reads the
// result back into a pool buffer, and caches a clone as the fallback frame
// for the next capture()/grab() that can't get a fresh one.
func (p *Pipeline) processAndCache(texture uintptr, w, h uint32, ts float64) (*CapturedFrame, error) {
	outTexture := texture
	outFormat := p.session.PoolFormat()

	runTonemap := p.policy == Auto && outFormat == d3d11.FormatR16G16B16A16Float
	if runTonemap {
		mapped, err := p.tonemapPass.Execute(texture, w, h, p.sdrWhiteNits)
		if err != nil {
			return nil, fmt.Errorf("tone-map: %w", err)
		}
		outTexture = mapped
		outFormat = d3d11.FormatB8G8R8A8Unorm
	}

	pixelFormat := toPixelFormat(outFormat)
	requiredLen := int(w) * int(h) * pixelFormat.BytesPerPixel()
	if requiredLen > p.pool.FrameBytes() {
		p.pool = bufferpool.New(requiredLen)
	}

	buf := p.pool.Acquire()
	n, err := p.reader.ReadInto(outTexture, buf.Bytes(), w, h, outFormat)
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("readback: %w", err)
	}
	if n > len(buf.Bytes()) {
		buf.Release()
		return nil, ErrPoolTooSmall
	}
	buf.SetBytes(buf.Bytes()[:n])

	frame := &CapturedFrame{buf: buf, Width: w, Height: h, Timestamp: ts, Format: pixelFormat}

	if p.cachedFrame != nil {
		p.cachedFrame.Release()
	}
	p.cachedFrame = p.cloneFrame(frame)

	return frame, nil
}

// cloneFrame copies src's bytes into a freshly rented buffer from the
// current pool, so the cached fallback frame and the one returned to the
// caller can be released independently.
func (p *Pipeline) cloneFrame(src *CapturedFrame) *CapturedFrame {
	buf := p.pool.Acquire()
	data := buf.Bytes()
	srcData := src.Data()
	if cap(data) < len(srcData) {
		data = make([]byte, len(srcData))
	}
	data = data[:len(srcData)]
	copy(data, srcData)
	buf.SetBytes(data)
	return &CapturedFrame{buf: buf, Width: src.Width, Height: src.Height, Timestamp: src.Timestamp, Format: src.Format}
}
