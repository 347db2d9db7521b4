package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger  = zap.NewNop()
	sugar   = logger.Sugar()
	mu      sync.RWMutex
	isSetup bool
)

// Options controls how the process logger is built
type Options struct {
	// Mode is "release" for JSON production output, anything else for console output
	Mode string
	// Debug lowers the level to debug
	Debug bool
	// LogFile is an optional extra output path
	LogFile string
}

// SetupLogger initializes the process logger
func SetupLogger(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	var config zap.Config
	if opts.Mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.OutputPaths = []string{"stderr"}
	if opts.LogFile != "" {
		config.OutputPaths = append(config.OutputPaths, opts.LogFile)
		// Color escapes do not belong in a file
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	logger = built
	sugar = built.Sugar()
	isSetup = true
	return nil
}

// CloseLogger flushes buffered entries and resets to a no-op logger
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	_ = logger.Sync()
	logger = zap.NewNop()
	sugar = logger.Sugar()
	isSetup = false
}

// Logger returns the structured logger
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infof(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Warnf(format, args...)
}

// LogImageProcessed logs the outcome of processing one catalog image
func LogImageProcessed(name string, success bool, errMsg string) {
	l := Logger()
	if success {
		l.Debug("processed", zap.String("file", name))
		return
	}
	l.Warn("failed", zap.String("file", name), zap.String("error", errMsg))
}
