// Package log provides the package-level, leveled, sugared logger every
// transport and stream component calls for protocol-violation,
// reconnection, and timeout diagnostics. It is never on the control-flow
// path — callers never branch on whether a log call succeeded.
package log

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the narrow leveled-logging surface every component depends
// on. Swapping the default zap-backed implementation for a test double or
// a host application's own logger only requires satisfying this.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}

// Level names the supported verbosity levels, matched exactly (lower-case)
// against Options.Level; any other value selects info.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func toZapLevel(l string) zapcore.Level {
	levels := map[Level]zapcore.Level{
		LevelDebug: zapcore.DebugLevel,
		LevelInfo:  zapcore.InfoLevel,
		LevelWarn:  zapcore.WarnLevel,
		LevelError: zapcore.ErrorLevel,
	}
	if level, ok := levels[Level(l)]; ok {
		return level
	}
	return zapcore.InfoLevel
}

// Options configures the default zap-backed Logger: console output or a
// rotated file via lumberjack, at a given level.
type Options struct {
	Stdout     bool
	Level      string
	Filename   string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
}

// zapLogger adapts a zap.SugaredLogger to Logger.
type zapLogger struct {
	sugared *zap.SugaredLogger
}

func (l zapLogger) Debugf(template string, args ...any) { l.sugared.Debugf(template, args...) }
func (l zapLogger) Infof(template string, args ...any)   { l.sugared.Infof(template, args...) }
func (l zapLogger) Warnf(template string, args ...any)   { l.sugared.Warnf(template, args...) }
func (l zapLogger) Errorf(template string, args ...any)  { l.sugared.Errorf(template, args...) }

// New builds the default Logger from opt.
func New(opt Options) Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var w zapcore.WriteSyncer
	switch {
	case opt.Stdout || opt.Filename == "":
		w = zapcore.AddSync(os.Stdout)
	default:
		if err := os.MkdirAll(filepath.Dir(opt.Filename), os.ModePerm); err != nil {
			panic(err)
		}
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    opt.MaxSize,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAge,
			LocalTime:  true,
		})
	}

	core := zapcore.NewCore(encoder, w, toZapLevel(opt.Level))
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return zapLogger{sugared: logger.Sugar()}
}

var std Logger = New(Options{Stdout: true, Level: string(LevelInfo)})

// SetDefault replaces the package-level logger every component falls back
// to when it wasn't constructed with an explicit Logger.
func SetDefault(l Logger) {
	std = l
}

// Default returns the current package-level logger.
func Default() Logger {
	return std
}

func Debugf(template string, args ...any) { std.Debugf(template, args...) }
func Infof(template string, args ...any)  { std.Infof(template, args...) }
func Warnf(template string, args ...any)  { std.Warnf(template, args...) }
func Errorf(template string, args ...any) { std.Errorf(template, args...) }
