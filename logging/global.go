package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// LoggingService owns the process logger and the file behind it.
type LoggingService struct {
	Logger *slog.Logger
	closer io.Closer
}

var defaultService atomic.Pointer[LoggingService]

var fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// InitLogger installs the process logger and makes it the slog default. A file error is returned
// but the console logger is still installed.
func InitLogger(opts Options) error {
	logger, closer, err := Setup(opts)
	previous := defaultService.Swap(&LoggingService{Logger: logger, closer: closer})
	if previous != nil && previous.closer != nil {
		_ = previous.closer.Close()
	}
	slog.SetDefault(logger)
	return err
}

// Close releases the log file of the process logger.
func Close() error {
	svc := defaultService.Load()
	if svc == nil || svc.closer == nil {
		return nil
	}
	return svc.closer.Close()
}

// Logger returns the process logger, or a stderr logger before InitLogger ran.
func Logger() *slog.Logger {
	if svc := defaultService.Load(); svc != nil && svc.Logger != nil {
		return svc.Logger
	}
	return fallback
}

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
