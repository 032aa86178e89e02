// Package logging provides the component-tagged slog accessor used across
// the capture pipeline. There is no remote log shipper here: this is a
// library, not an agent, so logs stay local to whatever handler the calling
// process has configured.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// KeyComponent tags which subsystem emitted a record (wgc, pipeline,
// bufferpool, tonemap, whitelevel, ...).
const KeyComponent = "component"

type contextKey struct{}

var defaultLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func init() {
	slog.SetDefault(defaultLogger)
}

// Init reconfigures the package-level logger. format is "json" or "text"
// (default "text"); level is "debug"/"info"/"warn"/"error" (default "info").
// Called once by the example/bench CLIs; the capture library itself never
// calls this.
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return defaultLogger.With(slog.String(KeyComponent, component))
}

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from ctx, falling back to the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
