package hdrcapture

import "fmt"

// Policy selects which frame-pool pixel format the capture session uses,
// and whether the tone-map pass runs.
type Policy int

const (
	// Auto picks Rgba16f + tone-mapping on an HDR-active display, Bgra8
	// otherwise.
	Auto Policy = iota
	// Hdr always captures Rgba16f, never tone-maps.
	Hdr
	// Sdr always captures Bgra8, never tone-maps.
	Sdr
)

func (p Policy) String() string {
	switch p {
	case Hdr:
		return "hdr"
	case Sdr:
		return "sdr"
	default:
		return "auto"
	}
}

// ParsePolicy maps a wire-level policy string to a Policy. Unknown strings
// are an error; there is no silent default.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "auto":
		return Auto, nil
	case "hdr":
		return Hdr, nil
	case "sdr":
		return Sdr, nil
	default:
		return Auto, fmt.Errorf("%w: unknown capture policy %q", ErrFormatUnsupported, s)
	}
}
