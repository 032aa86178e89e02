//go:build !windows

package hdrcapture

// Pipeline is unusable on non-Windows builds; every constructor returns
// ErrUnsupportedPlatform. The type exists so cross-platform callers can
// still compile against this package's API surface.
type Pipeline struct{}

// Monitor always fails on non-Windows builds.
func Monitor(index int, policy Policy) (*Pipeline, error) {
	return nil, ErrUnsupportedPlatform
}

// Window always fails on non-Windows builds.
func Window(sel WindowSelector, policy Policy, headless bool) (*Pipeline, error) {
	return nil, ErrUnsupportedPlatform
}

func (p *Pipeline) Capture() (*CapturedFrame, error) { return nil, ErrUnsupportedPlatform }
func (p *Pipeline) Grab() (*CapturedFrame, error)    { return nil, ErrUnsupportedPlatform }
func (p *Pipeline) IsHdr() bool                      { return false }
func (p *Pipeline) PoolStats() PoolStats             { return PoolStats{} }
func (p *Pipeline) Close()                           {}
