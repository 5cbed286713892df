package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is an alias for zap.Logger
type Logger = zap.Logger

var defaultLogger = zap.NewNop()

// Convenience variables to match zap's API
var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Float64  = zap.Float64
	Duration = zap.Duration
	Err      = zap.Error
)

// Init builds the process-wide logger. Output goes to stderr so reports on stdout stay clean.
func Init(level string, json bool) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if json {
		cfg.Encoding = "json"
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.Sampling = nil
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	defaultLogger = l
	return l, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithPrefix returns a child logger named after a component
func WithPrefix(prefix string) *Logger {
	return defaultLogger.Named(prefix)
}

func SetLogger(l *Logger) {
	defaultLogger = l
}

func Sync() {
	_ = defaultLogger.Sync()
}

func FilePath(path string) zap.Field {
	return zap.String("file_path", path)
}

func CVE(id string) zap.Field {
	return zap.String("cve_id", id)
}
