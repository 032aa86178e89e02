//go:build windows

// Package pyworker implements the named-pipe control surface standing in
// for the Python binding / worker thread named in this library's external
// interfaces. The real binding embeds the capture library directly and
// never needs IPC; this server exists so a worker process written in
// another language can drive a pipeline (request a capture/grab, read
// pool stats) without linking against the Go runtime.
package pyworker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/LDNKS094/hdrcapture/internal/logging"
)

// Pipe ACL: SYSTEM full control, Interactive Users read/write.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

// Request is one control-plane command from the worker process.
type Request struct {
	Op string `json:"op"` // "capture", "grab", "is_hdr", "pool_stats"
}

// Response is the reply to one Request.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	IsHdr bool `json:"is_hdr,omitempty"`

	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Format    string  `json:"format,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`

	PoolStats map[string]int `json:"pool_stats,omitempty"`
}

// Handler executes one control-plane request. The pipeline wiring lives in
// the caller's process; this package only owns transport.
type Handler func(Request) Response

// Server listens on a named pipe and dispatches each connection's
// newline-delimited JSON requests to handle, one request at a time per
// connection. Each connection is served on its own goroutine, so handle
// can run concurrently when more than one client is connected.
type Server struct {
	pipeName string
	listener net.Listener
	handle   Handler
}

// NewServer creates a server bound to pipeName (e.g. `\\.\pipe\hdrcapture`).
func NewServer(pipeName string, handle Handler) *Server {
	return &Server{pipeName: pipeName, handle: handle}
}

// Start begins listening. Call Serve to accept connections.
func (s *Server) Start() error {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	listener, err := winio.ListenPipe(s.pipeName, cfg)
	if err != nil {
		return fmt.Errorf("listen pipe %s: %w", s.pipeName, err)
	}
	s.listener = listener
	return nil
}

// Serve accepts connections until ctx is canceled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	log := logging.L("pyworker")
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		log.Debug("worker connection accepted")
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	log := logging.L("pyworker")

	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(Response{OK: false, Error: fmt.Sprintf("bad request: %v", err)})
			continue
		}
		resp := s.handle(req)
		if err := enc.Encode(resp); err != nil {
			log.Warn("worker response encode failed", "error", err)
			return
		}
	}
}

// Close stops the listener.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
