package log

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the standard logging interface for the relay agent.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel.
	Error(err error, msg string, keysAndValues ...any)

	// WithName returns a new logger with the specified name appended.
	WithName(name string) Logger

	// WithValues returns a new logger with additional key-value pairs.
	WithValues(keysAndValues ...any) Logger

	// Logr returns a logr.Logger adapter for libraries that log through logr.
	Logr() logr.Logger
}

// Static check to ensure zapLogger satisfies the Logger interface.
var _ Logger = (*zapLogger)(nil)

// zapLogger is the implementation of the Logger interface using zap.
type zapLogger struct {
	core *zap.Logger
}

// NewLogger creates a new Logger instance based on the provided options.
func NewLogger(opts *Options) Logger {
	if opts == nil {
		opts = NewOptions()
	}

	enc := newEncoderConfig(opts)

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	outputPaths := opts.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	cfg := &zap.Config{
		DisableCaller:    opts.DisableCaller,
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         opts.Format,
		EncoderConfig:    enc,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	buildOpts := []zap.Option{zap.AddCallerSkip(opts.CallerSkip), zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.Rotate != nil && opts.Rotate.Filename != "" {
		// The node keeps a json copy on local storage so logs survive an outage of the link.
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(newRotatingWriter(opts.Rotate)), cfg.Level)
		buildOpts = append(buildOpts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	core, err := cfg.Build(buildOpts...)
	if err != nil {
		panic(fmt.Sprintf("failed to build zap logger: %v", err))
	}

	if opts.Name != "" {
		core = core.Named(opts.Name)
	}

	return &zapLogger{core: core}
}

func newEncoderConfig(opts *Options) zapcore.EncoderConfig {
	enc := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "timestamp",
		NameKey:       "logger",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		// Durations are logged as milliseconds.
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	if opts.Format == "console" && opts.EnableColor {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return enc
}

func Debug(msg string, keysAndValues ...any)            { std.Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)             { std.Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)             { std.Warn(msg, keysAndValues...) }
func Error(err error, msg string, keysAndValues ...any) { std.Error(err, msg, keysAndValues...) }
func WithName(name string) Logger                       { return std.WithName(name) }
func WithValues(keysAndValues ...any) Logger            { return std.WithValues(keysAndValues...) }
func Logr() logr.Logger                                 { return std.Logr() }

func (z *zapLogger) Debug(msg string, keysAndValues ...any) {
	z.core.Debug(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Info(msg string, keysAndValues ...any) {
	z.core.Info(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Warn(msg string, keysAndValues ...any) {
	z.core.Warn(msg, toFields(keysAndValues...)...)
}

func (z *zapLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := toFields(keysAndValues...)

	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	z.core.Error(msg, fields...)
}

func (z *zapLogger) WithName(name string) Logger {
	return &zapLogger{core: z.core.Named(name)}
}

func (z *zapLogger) WithValues(keysAndValues ...any) Logger {
	return &zapLogger{core: z.core.With(toFields(keysAndValues...)...)}
}

func (z *zapLogger) Logr() logr.Logger {
	return zapr.NewLogger(z.core)
}

var (
	once sync.Once

	std = NewNopLogger()
)

// Init initializes the global logger with the provided options.
// It is safe to call Init multiple times.
func Init(opts *Options) {
	once.Do(func() {
		std = NewLogger(opts)
	})
}

// Std returns the global logger instance.
func Std() Logger {
	return std
}

func newRotatingWriter(o *RotateOptions) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   o.Filename,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
}

// NewNopLogger returns a logger that performs no operations.
func NewNopLogger() Logger {
	return &zapLogger{core: zap.NewNop()}
}
