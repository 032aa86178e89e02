// Command hdrcapture-example grabs a single frame from a monitor or window
// and saves it to disk, exercising the library's public Monitor/Window and
// Capture/Grab surface end to end.
package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"

	hdrcapture "github.com/LDNKS094/hdrcapture"
	"github.com/LDNKS094/hdrcapture/internal/logging"
)

var (
	monitorIndex int
	windowProc   string
	windowPid    uint32
	policyFlag   string
	headless     bool
	outPath      string
	grabMode     bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "hdrcapture-example",
	Short: "Capture one frame and save it to disk",
	RunE:  runCapture,
}

func init() {
	rootCmd.Flags().IntVar(&monitorIndex, "monitor", -1, "monitor index to capture (mutually exclusive with --process)")
	rootCmd.Flags().StringVar(&windowProc, "process", "", "process name to capture a window from")
	rootCmd.Flags().Uint32Var(&windowPid, "pid", 0, "process id to capture a window from")
	rootCmd.Flags().StringVar(&policyFlag, "policy", "auto", "capture policy: auto, hdr, sdr")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "crop window captures to the client area")
	rootCmd.Flags().StringVar(&outPath, "out", "frame.png", "output file (.png, .jpg, .bmp)")
	rootCmd.Flags().BoolVar(&grabMode, "grab", false, "use low-latency Grab() instead of Capture()")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	logging.Init("text", logLevel, os.Stderr)
	log := logging.L("example")

	policy, err := hdrcapture.ParsePolicy(policyFlag)
	if err != nil {
		return err
	}

	var pipeline *hdrcapture.Pipeline
	switch {
	case windowProc != "" || windowPid != 0:
		pipeline, err = hdrcapture.Window(hdrcapture.WindowSelector{Pid: windowPid, Process: windowProc}, policy, headless)
	default:
		idx := monitorIndex
		if idx < 0 {
			idx = 0
		}
		pipeline, err = hdrcapture.Monitor(idx, policy)
	}
	if err != nil {
		return fmt.Errorf("open pipeline: %w", err)
	}
	defer pipeline.Close()

	log.Info("pipeline ready", "isHdr", pipeline.IsHdr())

	var frame *hdrcapture.CapturedFrame
	if grabMode {
		frame, err = pipeline.Grab()
	} else {
		frame, err = pipeline.Capture()
	}
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	defer frame.Release()

	log.Info("frame captured", "width", frame.Width, "height", frame.Height, "format", frame.Format, "timestamp", frame.Timestamp)

	img := toImage(frame)
	return saveImage(img, outPath)
}

// toImage converts a CapturedFrame into an image.Image, tone-mapping
// Rgba16f scene-linear values into sRGB with a simple Reinhard curve when
// the frame wasn't already tone-mapped by the pipeline (policy=Hdr).
func toImage(f *hdrcapture.CapturedFrame) image.Image {
	w, h := int(f.Width), int(f.Height)
	data := f.Data()

	switch f.Format {
	case hdrcapture.Bgra8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		stride := w * 4
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := y*stride + x*4
				b, g, r, a := data[o], data[o+1], data[o+2], data[o+3]
				di := img.PixOffset(x, y)
				img.Pix[di], img.Pix[di+1], img.Pix[di+2], img.Pix[di+3] = r, g, b, a
			}
		}
		return img
	default: // Rgba16f
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		stride := w * 8
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := y*stride + x*8
				r := half(data[o], data[o+1])
				g := half(data[o+2], data[o+3])
				b := half(data[o+4], data[o+5])
				a := half(data[o+6], data[o+7])
				di := img.PixOffset(x, y)
				img.Pix[di] = toSRGB8(r)
				img.Pix[di+1] = toSRGB8(g)
				img.Pix[di+2] = toSRGB8(b)
				img.Pix[di+3] = toSRGB8(a)
			}
		}
		return img
	}
}

func half(lo, hi byte) float32 {
	bits := uint16(lo) | uint16(hi)<<8
	sign := uint32(bits>>15) & 1
	exp := uint32(bits>>10) & 0x1F
	frac := uint32(bits) & 0x3FF
	var f32 uint32
	switch {
	case exp == 0:
		f32 = sign << 31
	case exp == 0x1F:
		f32 = sign<<31 | 0xFF<<23 | frac<<13
	default:
		f32 = sign<<31 | (exp+112)<<23 | frac<<13
	}
	return math.Float32frombits(f32)
}

// toSRGB8 tone-maps a scene-linear scRGB channel value (1.0 == 80 nits)
// with a Reinhard operator and encodes it with the sRGB OETF.
func toSRGB8(linear float32) byte {
	v := float64(linear)
	if v < 0 {
		v = 0
	}
	v = v / (1 + v)
	var srgb float64
	if v <= 0.0031308 {
		srgb = 12.92 * v
	} else {
		srgb = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	if srgb < 0 {
		srgb = 0
	}
	if srgb > 1 {
		srgb = 1
	}
	return byte(srgb*255 + 0.5)
}

func saveImage(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch ext(path) {
	case "jpg", "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	case "bmp":
		return bmp.Encode(f, img)
	default:
		return png.Encode(f, img)
	}
}

func ext(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return toLower(path[i+1:])
		}
	}
	return "png"
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
