package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	logFileMaximumSizeMegabytesConstant  = 100
	logFileMaximumBackupsConstant        = 5
	logFileMaximumAgeDaysConstant        = 28
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggerConfiguration selects the level, the encoding and an optional log file.
// An empty Format selects console output on a terminal and structured output otherwise.
type LoggerConfiguration struct {
	Level    LogLevel
	Format   LogFormat
	FilePath string
}

// TerminalDetector reports whether the supplied file descriptor is attached to a terminal.
type TerminalDetector func(fileDescriptor uintptr) bool

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct {
	diagnosticOutput io.Writer
	terminalDetector TerminalDetector
}

// NewLoggerFactory constructs a logger factory writing diagnostics to stderr.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{terminalDetector: isatty.IsTerminal}
}

// NewLoggerFactoryWithOutput constructs a factory writing diagnostics to the provided writer.
func NewLoggerFactoryWithOutput(output io.Writer) *LoggerFactory {
	return &LoggerFactory{diagnosticOutput: output, terminalDetector: func(uintptr) bool { return false }}
}

// ResolveFormat returns the requested format or, when it is empty, the format suited to stderr.
func (factory *LoggerFactory) ResolveFormat(requestedLogFormat LogFormat) LogFormat {
	trimmedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat))))
	if len(trimmedFormat) > 0 {
		return trimmedFormat
	}
	if factory.diagnosticOutput == nil && factory.terminalDetector != nil && factory.terminalDetector(os.Stderr.Fd()) {
		return LogFormatConsole
	}
	return LogFormatStructured
}

// CreateLogger produces a zap.Logger honoring the requested level, format and log file.
func (factory *LoggerFactory) CreateLogger(configuration LoggerConfiguration) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[LogLevel(strings.ToLower(strings.TrimSpace(string(configuration.Level))))]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, configuration.Level)
	}

	resolvedFormat := factory.ResolveFormat(configuration.Format)
	encoder, encoderError := buildEncoder(resolvedFormat)
	if encoderError != nil {
		return nil, encoderError
	}

	levelEnabler := zap.NewAtomicLevelAt(zapLogLevel)
	cores := []zapcore.Core{zapcore.NewCore(encoder, factory.diagnosticSink(), levelEnabler)}

	trimmedFilePath := strings.TrimSpace(configuration.FilePath)
	if len(trimmedFilePath) > 0 {
		fileWriter := &lumberjack.Logger{
			Filename:   trimmedFilePath,
			MaxSize:    logFileMaximumSizeMegabytesConstant,
			MaxBackups: logFileMaximumBackupsConstant,
			MaxAge:     logFileMaximumAgeDaysConstant,
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), levelEnabler))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func (factory *LoggerFactory) diagnosticSink() zapcore.WriteSyncer {
	if factory.diagnosticOutput != nil {
		return zapcore.AddSync(factory.diagnosticOutput)
	}
	return zapcore.Lock(os.Stderr)
}

func buildEncoder(format LogFormat) (zapcore.Encoder, error) {
	switch format {
	case LogFormatStructured:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	case LogFormatConsole:
		encoderConfiguration := zap.NewDevelopmentEncoderConfig()
		encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(encoderConfiguration), nil
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, format)
	}
}
