package replslot

import (
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the global default logger with a TextHandler and
// configures the log level from the REPLSLOT_LOG_LEVEL environment variable.
// Defaults to Info when unset. A host application that already configures
// slog globally does not need to call this.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("REPLSLOT_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel sets the logging level for the logger configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// panicf logs a fatal condition at error level with structured fields before
// panicking, mirroring the original's ereport(PANIC, ...) calls: the process
// crashes and recovery re-runs startup deterministically.
func panicf(msg string, args ...any) {
	slog.Error(msg, args...)
	panic(msg)
}
