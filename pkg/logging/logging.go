// Package logging builds the process logger.
//
// Lines are written to the console and appended to a local log file,
// formatted as "<timestamp> <LEVEL>: <message> <fields>".
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp layout of every log line.
const TimeLayout = "2006-01-02 15:04:05.000"

// Options configures the logger.
type Options struct {
	// Level is a zap level name ("debug", "info", ...). Empty means info.
	Level string
	// File is appended to in addition to the console. Empty disables file output.
	File string
	// Dev enables development mode (DPanic panics, caller annotations).
	Dev bool
}

// EncoderConfig returns the console encoder config shared by all outputs.
func EncoderConfig() zapcore.EncoderConfig {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	enc.EncodeLevel = levelWithColon
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.ConsoleSeparator = " "
	enc.CallerKey = zapcore.OmitKey
	enc.NameKey = zapcore.OmitKey
	enc.StacktraceKey = zapcore.OmitKey
	return enc
}

func levelWithColon(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(l.CapitalString() + ":")
}

// New builds a logger writing to stderr and, if configured, the log file.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	outputPaths := []string{"stderr"}
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		// zap opens file sinks with O_APPEND.
		outputPaths = append(outputPaths, opts.File)
	}
	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       opts.Dev,
		DisableCaller:     true,
		DisableStacktrace: !opts.Dev,
		Encoding:          "console",
		EncoderConfig:     EncoderConfig(),
		OutputPaths:       outputPaths,
		ErrorOutputPaths:  []string{"stderr"},
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}
