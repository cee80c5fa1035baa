package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// ZapConfig controls where logs go and how verbose they are, derived
// straight from the CLI's -v (repeatable) and --log-file flags.
type ZapConfig struct {
	// Verbosity is the number of times -v was repeated: 0 -> warn,
	// 1 -> info, 2+ -> debug.
	Verbosity int
	// LogFile is the destination path, or "-" for stderr.
	LogFile string
}

func (c ZapConfig) level() zapcore.Level {
	switch {
	case c.Verbosity >= 2:
		return zapcore.DebugLevel
	case c.Verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// NewZap builds a zap.Logger per ZapConfig. A LogFile other than "-"
// rotates through lumberjack instead of growing unbounded.
func NewZap(cfg ZapConfig) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if cfg.LogFile == "" || cfg.LogFile == "-" {
		sink = zapcore.AddSync(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	core := zapcore.NewCore(encoder, sink, cfg.level())
	return zap.New(core, zap.AddCaller()), nil
}

// zapAdapter implements Logger over a *zap.Logger.
type zapAdapter struct {
	l *zap.Logger
}

// NewZapAdapter wraps an existing *zap.Logger as a Logger.
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapAdapter{l: l}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (z *zapAdapter) Debug(msg string, fields ...Field) { z.l.Debug(msg, toZapFields(fields)...) }
func (z *zapAdapter) Info(msg string, fields ...Field)  { z.l.Info(msg, toZapFields(fields)...) }
func (z *zapAdapter) Warn(msg string, fields ...Field)  { z.l.Warn(msg, toZapFields(fields)...) }
func (z *zapAdapter) Error(msg string, fields ...Field) { z.l.Error(msg, toZapFields(fields)...) }

func (z *zapAdapter) Named(name string) Logger {
	return &zapAdapter{l: z.l.Named(name)}
}
