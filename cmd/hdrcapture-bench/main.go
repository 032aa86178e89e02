// Command hdrcapture-bench hosts the diagnostic subcommands that the
// original implementation shipped as standalone examples: reporting the HDR
// status a pipeline detects, comparing policy outputs on a live frame, and
// running a single-shot capture/grab diagnostic. An optional serve
// subcommand streams captured frames to a browser over WebSocket for visual
// spot checks during a bench run.
package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	hdrcapture "github.com/LDNKS094/hdrcapture"
	"github.com/LDNKS094/hdrcapture/internal/logging"
)

var (
	cfgFile      string
	benchMonitor int
	benchPolicy  string
	benchLog     string
)

var log = logging.L("bench")

var rootCmd = &cobra.Command{
	Use:   "hdrcapture-bench",
	Short: "Diagnostic and benchmark subcommands for the capture pipeline",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init("text", benchLog, os.Stderr)
		log = logging.L("bench")
		loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML bench-profile config file")
	rootCmd.PersistentFlags().IntVar(&benchMonitor, "monitor", 0, "monitor index")
	rootCmd.PersistentFlags().StringVar(&benchPolicy, "policy", "auto", "capture policy: auto, hdr, sdr")
	rootCmd.PersistentFlags().StringVar(&benchLog, "log-level", "info", "debug, info, warn, error")

	viper.BindPFlag("monitor", rootCmd.PersistentFlags().Lookup("monitor"))
	viper.BindPFlag("policy", rootCmd.PersistentFlags().Lookup("policy"))

	rootCmd.AddCommand(whitelevelCmd, tonemapCompareCmd, diagnoseCmd, serveCmd)
}

func loadConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("bench config not loaded", "file", cfgFile, "error", err)
		return
	}
	if viper.IsSet("monitor") {
		benchMonitor = viper.GetInt("monitor")
	}
	if viper.IsSet("policy") {
		benchPolicy = viper.GetString("policy")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openMonitorPipeline() (*hdrcapture.Pipeline, error) {
	policy, err := hdrcapture.ParsePolicy(benchPolicy)
	if err != nil {
		return nil, err
	}
	return hdrcapture.Monitor(benchMonitor, policy)
}

// whitelevelCmd stands in for the original's check_white_level example: it
// opens a pipeline and reports whether the monitor was detected as HDR. The
// SDR white level value itself is not printed.
var whitelevelCmd = &cobra.Command{
	Use:   "whitelevel",
	Short: "Report monitor HDR status as seen by a freshly opened pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := uuid.New().String()
		pipeline, err := openMonitorPipeline()
		if err != nil {
			return fmt.Errorf("open pipeline: %w", err)
		}
		defer pipeline.Close()

		log.Info("whitelevel check", "runId", runID, "monitor", benchMonitor, "isHdr", pipeline.IsHdr())
		fmt.Printf("monitor %d: hdr=%v\n", benchMonitor, pipeline.IsHdr())
		return nil
	},
}

// tonemapCompareCmd mirrors the original's tonemap_compare example: capture
// one HDR frame with each policy and report resulting buffer shape, since
// the strategies themselves are compared by the unit-tested math in
// internal/tonemap rather than by visual diff here.
var tonemapCompareCmd = &cobra.Command{
	Use:   "tonemap-compare",
	Short: "Capture the same monitor under hdr and auto policy and compare output frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := uuid.New().String()
		log.Info("tonemap compare starting", "runId", runID, "monitor", benchMonitor)

		results := make(map[string]*hdrcapture.CapturedFrame)
		for _, policyName := range []string{"hdr", "auto"} {
			policy, err := hdrcapture.ParsePolicy(policyName)
			if err != nil {
				return err
			}
			pipeline, err := hdrcapture.Monitor(benchMonitor, policy)
			if err != nil {
				return fmt.Errorf("open pipeline (%s): %w", policyName, err)
			}
			frame, err := pipeline.Capture()
			pipeline.Close()
			if err != nil {
				return fmt.Errorf("capture (%s): %w", policyName, err)
			}
			results[policyName] = frame
		}
		for _, name := range []string{"hdr", "auto"} {
			f := results[name]
			fmt.Printf("%-5s: %dx%d format=%s bytes=%d\n", name, f.Width, f.Height, f.Format, len(f.Data()))
			f.Release()
		}
		return nil
	},
}

// diagnoseCmd mirrors the original's diagnose_singleshot example: run one
// Capture() and one Grab() against the same target and report pool stats.
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Single-shot capture and grab diagnostic with pool statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := openMonitorPipeline()
		if err != nil {
			return fmt.Errorf("open pipeline: %w", err)
		}
		defer pipeline.Close()

		capFrame, err := pipeline.Capture()
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		fmt.Printf("capture: %dx%d format=%s timestamp=%.4f\n", capFrame.Width, capFrame.Height, capFrame.Format, capFrame.Timestamp)
		capFrame.Release()

		grabFrame, err := pipeline.Grab()
		if err != nil {
			return fmt.Errorf("grab: %w", err)
		}
		fmt.Printf("grab:    %dx%d format=%s timestamp=%.4f\n", grabFrame.Width, grabFrame.Height, grabFrame.Format, grabFrame.Timestamp)
		grabFrame.Release()

		stats := pipeline.PoolStats()
		fmt.Printf("pool: total=%d free=%d expand=%d shrink=%d acquire=%d alloc=%d reuse=%.2f%%\n",
			stats.TotalFrames, stats.FreeFrames, stats.ExpandCount, stats.ShrinkCount, stats.AcquireCount, stats.AllocCount, stats.ReuseRate()*100)
		return nil
	},
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream captured frames to a browser over WebSocket for visual spot checks",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8787", "listen address")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func runServe(cmd *cobra.Command, args []string) error {
	pipeline, err := openMonitorPipeline()
	if err != nil {
		return fmt.Errorf("open pipeline: %w", err)
	}
	defer pipeline.Close()

	sessionID := uuid.New().String()
	log.Info("bench server starting", "sessionId", sessionID, "addr", serveAddr, "monitor", benchMonitor)

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		streamFrames(conn, pipeline, sessionID)
	})

	server := &http.Server{Addr: serveAddr, Handler: mux}
	return server.ListenAndServe()
}

func streamFrames(conn *websocket.Conn, pipeline *hdrcapture.Pipeline, sessionID string) {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 fps
	defer ticker.Stop()

	for range ticker.C {
		frame, err := pipeline.Grab()
		if err != nil {
			log.Warn("grab failed during stream", "sessionId", sessionID, "error", err)
			continue
		}
		jpegBytes, err := encodeJPEGPreview(frame)
		frame.Release()
		if err != nil {
			log.Warn("preview encode failed", "sessionId", sessionID, "error", err)
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, jpegBytes); err != nil {
			log.Info("stream client disconnected", "sessionId", sessionID, "error", err)
			return
		}
	}
}

// encodeJPEGPreview encodes a captured frame, at full resolution, into an
// SDR preview JPEG for the browser stream; it is intentionally lossy and
// never the file-save path used by the example CLI.
func encodeJPEGPreview(f *hdrcapture.CapturedFrame) ([]byte, error) {
	w, h := int(f.Width), int(f.Height)
	data := f.Data()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	switch f.Format {
	case hdrcapture.Bgra8:
		stride := w * 4
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := y*stride + x*4
				b, g, r, a := data[o], data[o+1], data[o+2], data[o+3]
				di := img.PixOffset(x, y)
				img.Pix[di], img.Pix[di+1], img.Pix[di+2], img.Pix[di+3] = r, g, b, a
			}
		}
	default:
		// Rgba16f preview: take the high byte of each half float as a crude
		// sRGB approximation, skipping the full tone-map pass; good enough
		// for a live spot-check stream.
		stride := w * 8
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := y*stride + x*8
				di := img.PixOffset(x, y)
				img.Pix[di], img.Pix[di+1], img.Pix[di+2], img.Pix[di+3] = data[o+1], data[o+3], data[o+5], 255
			}
		}
	}

	buf := new(bufferWriter)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 70}); err != nil {
		return nil, err
	}
	return buf.b, nil
}

type bufferWriter struct{ b []byte }

func (w *bufferWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
