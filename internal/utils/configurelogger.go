package utils

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// Configure the slog logger with a specific log level and potential output file.
//
// Valid log levels are "none", "error", "warn", "info", "debug". Any other value returns an error.
// logFile may either specify a file path (an error is returned if the path cannot be opened) or none,
// in which case the logger points to stdout.
//
// Returns the os.File pointer that slog writes to, so it may be gracefully shut:
// ```
// logFilePointer, err := utils.ConfigureDefaultLogger(level, file, slog.HandlerOptions{})
//
//	if logFilePointer != nil{
//		defer logFilePointer.Close()
//	}
//
// ```
func ConfigureDefaultLogger(logLevel string, logFile string, loggerOptions slog.HandlerOptions) (*os.File, error) {
	handler, logFilePointer, err := NewLogHandler(logLevel, logFile, loggerOptions)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return logFilePointer, nil
}

// Build the handler ConfigureDefaultLogger installs, without installing it.
func NewLogHandler(logLevel string, logFile string, loggerOptions slog.HandlerOptions) (slog.Handler, *os.File, error) {
	switch logLevel {
	case "none":
		// No logging is required
		return slog.NewTextHandler(io.Discard, nil), nil, nil
	case "error":
		loggerOptions.Level = slog.LevelError
	case "warn":
		loggerOptions.Level = slog.LevelWarn
	case "info":
		loggerOptions.Level = slog.LevelInfo
	case "debug":
		loggerOptions.Level = slog.LevelDebug
	default:
		return nil, nil, errors.New("unexpected log level")
	}

	// --------------------------------------------------------------------------------

	if logFile == "" {
		return slog.NewTextHandler(os.Stdout, &loggerOptions), nil, nil
	}

	logFilePointer, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, err
	}
	return slog.NewJSONHandler(logFilePointer, &loggerOptions), logFilePointer, nil
}
