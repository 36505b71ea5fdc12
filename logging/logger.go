package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger provides structured logging for the exporter
type ComponentLogger struct {
	logger    zerolog.Logger
	component string
	version   string
}

// NewComponentLogger creates a new component logger writing to stderr so
// log lines never mix with redirected table output
func NewComponentLogger(component, version string) *ComponentLogger {
	zerolog.TimeFieldFormat = time.RFC3339

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Str("component", component).
		Str("version", version).
		Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return &ComponentLogger{
		logger:    logger,
		component: component,
		version:   version,
	}
}

// Info returns an info level event
func (cl *ComponentLogger) Info() *zerolog.Event {
	return cl.logger.Info()
}

// Debug returns a debug level event
func (cl *ComponentLogger) Debug() *zerolog.Event {
	return cl.logger.Debug()
}

// Warn returns a warn level event
func (cl *ComponentLogger) Warn() *zerolog.Event {
	return cl.logger.Warn()
}

// Error returns an error level event
func (cl *ComponentLogger) Error() *zerolog.Event {
	return cl.logger.Error()
}

// Fatal returns a fatal level event
func (cl *ComponentLogger) Fatal() *zerolog.Event {
	return cl.logger.Fatal()
}

// With creates a child logger with additional context
func (cl *ComponentLogger) With() zerolog.Context {
	return cl.logger.With()
}

// WithRunID returns a child logger that stamps every line with the run id
func (cl *ComponentLogger) WithRunID(runID string) *ComponentLogger {
	return &ComponentLogger{
		logger:    cl.logger.With().Str("run_id", runID).Logger(),
		component: cl.component,
		version:   cl.version,
	}
}

// StartupConfig holds configuration for startup logging
type StartupConfig struct {
	BagPath       string
	Format        string
	OutputDir     string
	Compression   string
	TopicFilter   int
	ProgressEvery int
}

// LogStartup logs startup configuration
func (cl *ComponentLogger) LogStartup(config StartupConfig) {
	cl.Info().
		Str("bag", config.BagPath).
		Str("format", config.Format).
		Str("output_dir", config.OutputDir).
		Str("compression", config.Compression).
		Int("topic_filters", config.TopicFilter).
		Int("progress_every", config.ProgressEvery).
		Msg("Starting bag export")
}

// ExportMetrics holds counters for a completed export run
type ExportMetrics struct {
	MessagesRead   int64
	RowsBuffered   int64
	DecodeFailures int64
	TopicsWritten  int
	ExportDuration time.Duration
}

// LogSummary logs the end-of-run counters
func (cl *ComponentLogger) LogSummary(metrics ExportMetrics) {
	rate := float64(0)
	if metrics.ExportDuration > 0 {
		rate = float64(metrics.MessagesRead) / metrics.ExportDuration.Seconds()
	}

	cl.Info().
		Int64("messages_read", metrics.MessagesRead).
		Int64("rows_buffered", metrics.RowsBuffered).
		Int64("decode_failures", metrics.DecodeFailures).
		Int("topics_written", metrics.TopicsWritten).
		Dur("export_duration", metrics.ExportDuration).
		Float64("messages_per_second", rate).
		Msg("Export complete")
}

// GetLogger returns the underlying zerolog logger
func (cl *ComponentLogger) GetLogger() zerolog.Logger {
	return cl.logger
}

// SetLevel sets the logging level
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		log.Warn().Str("level", level).Msg("Unknown log level, defaulting to info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
