package log

import (
	"os"
	"path/filepath"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = &ZapLogger{}

// Config selects the encoder, threshold and destination of a ZapLogger.
type Config struct {
	Format string `yaml:"format" env:"POLKA_LOG_FORMAT" env-default:"console"` // console, logfmt or json
	Level  Level  `yaml:"level" env:"POLKA_LOG_LEVEL" env-default:"info"`
	Output string `yaml:"output" env:"POLKA_LOG_OUTPUT" env-default:"stderr"` // stderr, stdout or a file path
}

// ZapLogger writes entries through a sugared zap logger.
type ZapLogger struct {
	lg  *zap.SugaredLogger
	kvs []any
}

// NewZapLogger builds a logger from conf. Entries are also copied to every
// extra write syncer, which is how tests capture output.
func NewZapLogger(conf Config, extra ...zapcore.WriteSyncer) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(ts.UTC().Format(time.RFC3339Nano))
	}

	var encoder zapcore.Encoder
	switch conf.Format {
	case "logfmt":
		encoder = zaplogfmt.NewEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := append(extra, openOutput(conf.Output))
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zapLevel(conf.Level))

	// two frames: the exported method and ZapLogger.log
	return &ZapLogger{
		lg: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar(),
	}
}

func openOutput(output string) zapcore.WriteSyncer {
	switch output {
	case "", "stderr":
		return zapcore.Lock(os.Stderr)
	case "stdout":
		return zapcore.Lock(os.Stdout)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return zapcore.Lock(os.Stderr)
	}
	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(f)
}

// Debug writes msg at debug level with the given key value pairs.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) { l.log(LevelDebug, msg, keysAndValues) }

// Info writes msg at info level with the given key value pairs.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) { l.log(LevelInfo, msg, keysAndValues) }

// Warn writes msg at warn level with the given key value pairs.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) { l.log(LevelWarn, msg, keysAndValues) }

// Error writes msg at error level with the given key value pairs.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) { l.log(LevelError, msg, keysAndValues) }

// Fatal writes msg at fatal level and then exits the process, as zap does
// for fatal entries.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) { l.log(LevelFatal, msg, keysAndValues) }

func (l *ZapLogger) log(level Level, msg string, keysAndValues []any) {
	l.lg.Logw(zapLevel(level), msg, keysAndValues...)
}

// WithKV returns a child logger that adds key and value to every entry.
func (l *ZapLogger) WithKV(key string, value any) Logger {
	kvs := make([]any, 0, len(l.kvs)+2)
	kvs = append(append(kvs, l.kvs...), key, value)
	return &ZapLogger{lg: l.lg.With(key, value), kvs: kvs}
}

// GetAllKV returns the pairs added through WithKV, oldest first.
func (l *ZapLogger) GetAllKV() []any { return l.kvs }

// WithName returns a child logger whose name has name appended, joined
// with a dot by zap.
func (l *ZapLogger) WithName(name string) Logger {
	return &ZapLogger{lg: l.lg.Named(name), kvs: l.kvs}
}

// Name returns the full dotted logger name.
func (l *ZapLogger) Name() string { return l.lg.Desugar().Name() }

// AddCallerSkip returns a logger that skips skip more stack frames when it
// reports the caller of an entry.
func (l *ZapLogger) AddCallerSkip(skip int) Logger {
	return &ZapLogger{lg: l.lg.WithOptions(zap.AddCallerSkip(skip)), kvs: l.kvs}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
