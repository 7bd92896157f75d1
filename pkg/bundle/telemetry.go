package bundle

import (
	"context"

	"go.uber.org/zap"
)

// TelemetrySink receives aggregate counts of files skipped for their
// extension. It is called once per distinct extension per bundle and never
// with individual file names.
type TelemetrySink interface {
	IgnoredExtension(count int, extension string)
}

// TelemetryFunc adapts a function to TelemetrySink.
type TelemetryFunc func(count int, extension string)

// IgnoredExtension calls f.
func (f TelemetryFunc) IgnoredExtension(count int, extension string) {
	f(count, extension)
}

// LogSink writes telemetry events to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

// IgnoredExtension logs one aggregate event.
func (s LogSink) IgnoredExtension(count int, extension string) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info("Ignored files by extension",
		zap.String("extension", extension),
		zap.Int("count", count))
}

type nopSink struct{}

func (nopSink) IgnoredExtension(int, string) {}

// Progress wraps a long-running operation in a user-visible scope.
type Progress interface {
	Run(ctx context.Context, title string, fn func(ctx context.Context) error) error
}

type nopProgress struct{}

func (nopProgress) Run(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
