package hdrcapture

import "errors"

// Sentinel errors, one per kind in the error taxonomy. Wrap with
// fmt.Errorf("...: %w", ErrX) to attach operation context; callers compare
// with errors.Is.
var (
	// ErrTargetNotFound: monitor index out of range, or no window matches
	// the given selector.
	ErrTargetNotFound = errors.New("hdrcapture: target not found")

	// ErrDeviceCreationFailed: the D3D11 device/context could not be
	// created.
	ErrDeviceCreationFailed = errors.New("hdrcapture: device creation failed")

	// ErrSessionInitFailed: WGC frame pool or capture session construction
	// failed.
	ErrSessionInitFailed = errors.New("hdrcapture: capture session init failed")

	// ErrTimeout: the first-frame or resize-retry ceiling was exceeded.
	ErrTimeout = errors.New("hdrcapture: timeout waiting for frame")

	// ErrFormatUnsupported: the pool format is neither Bgra8 nor Rgba16f,
	// or an unrecognized policy string was supplied. Indicates a logic
	// bug, not an environmental failure.
	ErrFormatUnsupported = errors.New("hdrcapture: unsupported pixel format")

	// ErrPoolTooSmall: a pooled buffer could not hold the readback size.
	// Invariant violation; should be unreachable.
	ErrPoolTooSmall = errors.New("hdrcapture: pool buffer too small for readback")

	// ErrUnsupportedPlatform: this build was not compiled for windows.
	ErrUnsupportedPlatform = errors.New("hdrcapture: Windows Graphics Capture is only available on windows")
)
