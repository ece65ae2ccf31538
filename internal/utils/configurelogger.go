package utils

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of the log file.
const (
	logFileMaxSizeMB  = 64
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

var (
	ErrUnexpectedLogLevel = errors.New("unexpected log level")
)

// Configure the slog logger with a specific log level and potential output file.
//
// Valid log levels are "none", "error", "warn", "info", "debug". Any other value returns an error.
// logFile may either specify a file path, which is written as JSON and rotated once it grows
// past logFileMaxSizeMB, or none, in which case the logger points to stdout.
//
// Returns the writer that slog writes to, so it may be gracefully shut:
// ```
// logFileCloser, err := utils.ConfigureDefaultLogger(...)
//
//	if logFileCloser != nil{
//		defer logFileCloser.Close()
//	}
//
// ```
func ConfigureDefaultLogger(logLevel string, logFile string, loggerOptions slog.HandlerOptions) (io.Closer, error) {
	switch logLevel {
	case "none":
		// No logging is required, disable the logger and return
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		loggerOptions.Level = slog.LevelError
	case "warn":
		loggerOptions.Level = slog.LevelWarn
	case "info":
		loggerOptions.Level = slog.LevelInfo
	case "debug":
		loggerOptions.Level = slog.LevelDebug
	default:
		return nil, ErrUnexpectedLogLevel
	}

	// --------------------------------------------------------------------------------

	var logFileCloser io.Closer
	var slogHandler slog.Handler
	if logFile == "" {
		slogHandler = slog.NewTextHandler(os.Stdout, &loggerOptions)
	} else {
		// lumberjack opens the file lazily, so check it is writable now
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		f.Close()

		rotatingFile := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
		}
		logFileCloser = rotatingFile
		slogHandler = slog.NewJSONHandler(rotatingFile, &loggerOptions)
	}

	// --------------------------------------------------------------------------------

	slog.SetDefault(slog.New(slogHandler))
	return logFileCloser, nil
}
