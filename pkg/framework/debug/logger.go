// Package debug provides the leveled, structured logger used across the host.
package debug

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelTrace is for per-event detail such as dropped translations.
	LogLevelTrace LogLevel = iota
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

const traceLevel = zapcore.DebugLevel - 1

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (LogLevel, error) {
	for l := LogLevelTrace; l <= LogLevelOff; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case LogLevelTrace:
		return traceLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.FatalLevel + 1
}

// Flags for logger output formatting.
const (
	FlagTime   = 1 << iota // Include timestamp
	FlagCaller             // Include short file name and line number
	FlagLevel              // Include log level
	FlagPrefix             // Include logger name
	FlagJSON               // Encode entries as JSON
)

// DefaultFlags are the default formatting flags.
const DefaultFlags = FlagTime | FlagCaller | FlagLevel | FlagPrefix

// Logger is a zap logger with a runtime-adjustable level and a trace level
// below debug.
type Logger struct {
	mu    sync.Mutex
	level zap.AtomicLevel
	flags int
	name  string
	out   io.Writer
	z     atomic.Pointer[zap.Logger]
}

var defaultLogger = New(os.Stderr, "", DefaultFlags)

// New creates a logger writing to output at info level.
func New(output io.Writer, prefix string, flags int) *Logger {
	l := &Logger{
		level: zap.NewAtomicLevelAt(zapcore.InfoLevel),
		flags: flags,
		name:  prefix,
		out:   output,
	}
	l.rebuild()
	return l
}

// Wrap adopts an existing zap logger. Level changes through SetLevel do not
// affect it.
func Wrap(z *zap.Logger) *Logger {
	l := &Logger{level: zap.NewAtomicLevelAt(traceLevel), flags: DefaultFlags}
	l.z.Store(z)
	return l
}

func encodeLevel(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if lvl == traceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(lvl, enc)
}

func (l *Logger) rebuild() {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if l.flags&FlagTime != 0 {
		cfg.TimeKey = "ts"
	}
	if l.flags&FlagLevel != 0 {
		cfg.LevelKey = "level"
	}
	if l.flags&FlagCaller != 0 {
		cfg.CallerKey = "caller"
	}
	if l.flags&FlagPrefix == 0 {
		cfg.NameKey = ""
	}

	var enc zapcore.Encoder
	if l.flags&FlagJSON != 0 {
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(l.out), l.level)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if l.name != "" {
		z = z.Named(l.name)
	}
	l.z.Store(z)
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.rebuild()
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zap())
}

// Level returns the minimum log level.
func (l *Logger) Level() LogLevel {
	lvl := l.level.Level()
	for ll := LogLevelTrace; ll < LogLevelOff; ll++ {
		if ll.zap() == lvl {
			return ll
		}
	}
	return LogLevelOff
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return level < LogLevelOff && l.level.Enabled(level.zap())
}

// Named returns a child logger sharing output and level.
func (l *Logger) Named(name string) *Logger {
	child := &Logger{level: l.level, flags: l.flags, out: l.out, name: name}
	if l.name != "" {
		child.name = l.name + "." + name
	}
	child.z.Store(l.z.Load().Named(name))
	return child
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := &Logger{level: l.level, flags: l.flags, out: l.out, name: l.name}
	child.z.Store(l.z.Load().With(fields...))
	return child
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z.Load()
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Load().Sync()
}

// Trace logs a trace message.
func (l *Logger) Trace(msg string, fields ...zap.Field) {
	if ce := l.z.Load().Check(traceLevel, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Load().Debug(msg, fields...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Load().Info(msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Load().Warn(msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Load().Error(msg, fields...)
}

// Global logger functions

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// SetOutput sets the output destination for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}

// Trace logs a trace message using the default logger.
func Trace(msg string, fields ...zap.Field) {
	defaultLogger.Trace(msg, fields...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, fields ...zap.Field) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs an informational message using the default logger.
func Info(msg string, fields ...zap.Field) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, fields ...zap.Field) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs an error message using the default logger.
func Error(msg string, fields ...zap.Field) {
	defaultLogger.Error(msg, fields...)
}
