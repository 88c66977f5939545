// Package logger is the logging entry point for every tool in this module.
// Messages are always printed to the console, and are additionally shipped to
// Logz.io (all levels) and Sentry (errors only) once UseProdLogging(true) has
// been called and the corresponding credentials are present in the
// environment.
package logger // import "github.com/sinnahq/sinna/tools/logger"

import (
	"os"
	"strings"
	"sync"

	"github.com/sinnahq/sinna/tools/metadata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// prodLogging decides whether the Sentry and Logz.io cores actually send
// events. It is off by default so running a tool on a laptop never reports
// anything.
var (
	prodLogging   bool
	prodLoggingRW sync.RWMutex
)

func init() {
	// Define the logic for filtering messages according to their level.
	// For Logzio we want all messages, but for Sentry only the errors
	// are considered. Debug messages are kept out of the console.
	onlyErrors := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	logsAndErrors := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.InfoLevel
	})
	allLevels := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return true
	})

	// Console output goes to stderr so that the tools' results on stdout
	// (a checkout URL, a patch report) can be piped.
	consoleOutput := zapcore.Lock(os.Stderr)

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)

	logzCore := newLogzioCore(zapcore.NewJSONEncoder(newLogzioEncoderConfig()), allLevels)
	sentryCore := newSentryCore(zapcore.NewJSONEncoder(newSentryEncoderConfig()), onlyErrors)

	core := zapcore.NewTee(
		logzCore,
		sentryCore,
		zapcore.NewCore(consoleEncoder, consoleOutput, logsAndErrors),
	)

	logger = zap.New(core)
}

// UseProdLogging turns shipping to Sentry and Logz.io on or off. It stays
// off in continuous integration, so test runs never report anything.
func UseProdLogging(enabled bool) {
	if enabled && metadata.IsRunningInCI() {
		Warningw("Not shipping logs while running in CI", "app_env", metadata.GetAppEnvironmentLowercase())
		enabled = false
	}

	prodLoggingRW.Lock()
	defer prodLoggingRW.Unlock()

	prodLogging = enabled
}

func usingProdLogging() bool {
	prodLoggingRW.RLock()
	defer prodLoggingRW.RUnlock()

	return prodLogging
}

// Sync is a function that flushes the queues and sends the events to the
// corresponding output. This should be called before exiting the program.
func Sync() {
	err := logger.Sync()
	if err != nil && !isConsoleSyncError(err) {
		Errorf("failed to drain log queues: %s", err)
	}
}

// Syncing a terminal returns EINVAL (or ENOTTY on some platforms), which is
// harmless.
func isConsoleSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}

// Sugar exposes the sugared logger for libraries that accept a printf-style
// leveled logger, like the Stripe client.
func Sugar() *zap.SugaredLogger {
	return logger.Sugar()
}

// Error logs an error.
func Error(err error) {
	logger.Sugar().Error(err)
}

// Warning logs a warning message.
func Warning(err error) {
	logger.Sugar().Warn(err)
}

// Debugf constructs a debug message. It respects printf syntax.
func Debugf(format string, v ...interface{}) {
	logger.Sugar().Debugf(format, v...)
}

// Infof constructs a log message. It respects printf syntax, i.e. takes in a
// format string and arguments, for convenience.
func Infof(format string, v ...interface{}) {
	logger.Sugar().Infof(format, v...)
}

// Errorf is like Error, but it respects printf syntax, i.e. takes in a format
// string and arguments, for convenience.
func Errorf(format string, v ...interface{}) {
	logger.Sugar().Errorf(format, v...)
}

// Warningf is like Warning, but it respects printf syntax, i.e. takes in a format
// string and arguments, for convenience.
func Warningf(format string, v ...interface{}) {
	logger.Sugar().Warnf(format, v...)
}

// Infow constructs a log message with additional context fields.
func Infow(msg string, fields ...interface{}) {
	logger.Sugar().Infow(msg, fields...)
}

// Warningw constructs a warning message with additional context fields.
func Warningw(msg string, fields ...interface{}) {
	logger.Sugar().Warnw(msg, fields...)
}
