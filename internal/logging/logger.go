package logging

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "XPDECK_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks XPDECK_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogDeviceEvent logs an input or lifecycle event coming from the panel.
func LogDeviceEvent(session string, event string, fields ...zap.Field) {
	Debug("Device event", append([]zap.Field{
		zap.String("session", session),
		zap.String("event", event),
	}, fields...)...)
}

// LogConnection logs a host connecting to or leaving the simulated panel.
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogPageSwitch logs a page change.
func LogPageSwitch(from, to int, name string) {
	Info("Switch page",
		zap.Int("from", from),
		zap.Int("to", to),
		zap.String("name", name),
	)
}

// LogSample logs a telemetry sample at debug level. Non-finite values are
// logged as strings since the JSON encoder rejects them.
func LogSample(dataref string, value float64) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		Debug("Dataref sample", zap.String("dataref", dataref), zap.String("value", fmt.Sprint(value)))
		return
	}
	Debug("Dataref sample", zap.String("dataref", dataref), zap.Float64("value", value))
}

// LogCommand logs a simulator command dispatch.
func LogCommand(command string, haptic bool) {
	Info("Send command",
		zap.String("command", command),
		zap.Bool("haptic", haptic),
	)
}

// LogPacket logs a raw device packet at debug level.
func LogPacket(direction string, command byte, data []byte) {
	Debug("Device packet",
		zap.String("direction", direction),
		zap.String("command", fmt.Sprintf("0x%02x", command)),
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Framebuffer payloads are large; keep the log line short.
	if len(data) > 32 {
		return fmt.Sprintf("%x...", data[:32])
	}
	return fmt.Sprintf("%x", data)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
