// High level log wrapper, so it can output different log based on level.
//
// There are five levels in total: FATAL, ERROR, WARNING, INFO, DEBUG.
// The default log output level is INFO, you can change it by:
// - call log.SetLevel()
// - set environment variable `LOG_LEVEL`
//
// Output is produced by a zap sugared logger with a console encoder.

package log

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	LOG_LEVEL_NONE LogLevel = iota
	LOG_LEVEL_FATAL
	LOG_LEVEL_ERROR
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
	LOG_LEVEL_ALL = LOG_LEVEL_DEBUG
)

var _log = New()

func SetLevel(level LogLevel) {
	_log.SetLevel(level)
}

func GetLogLevel() LogLevel {
	return _log.level
}

func SetLevelByString(level string) {
	_log.SetLevelByString(level)
}

// SetOutput redirects the global logger, mostly useful in tests.
func SetOutput(w io.Writer) {
	_log = NewLogger(w, _log.level)
}

func Info(v ...interface{}) {
	_log.sugar.Info(v...)
}

func Infof(format string, v ...interface{}) {
	_log.sugar.Infof(format, v...)
}

func Debug(v ...interface{}) {
	_log.sugar.Debug(v...)
}

func Debugf(format string, v ...interface{}) {
	_log.sugar.Debugf(format, v...)
}

func Warn(v ...interface{}) {
	_log.sugar.Warn(v...)
}

func Warnf(format string, v ...interface{}) {
	_log.sugar.Warnf(format, v...)
}

func Warning(v ...interface{}) {
	_log.sugar.Warn(v...)
}

func Warningf(format string, v ...interface{}) {
	_log.sugar.Warnf(format, v...)
}

func Error(v ...interface{}) {
	_log.sugar.Error(v...)
}

func Errorf(format string, v ...interface{}) {
	_log.sugar.Errorf(format, v...)
}

func Fatal(v ...interface{}) {
	_log.sugar.Fatal(v...)
}

func Fatalf(format string, v ...interface{}) {
	_log.sugar.Fatalf(format, v...)
}

func Panicf(format string, v ...interface{}) {
	_log.sugar.Panicf(format, v...)
}

// Logger is a leveled logger. The zero value is not usable, use New or NewLogger.
type Logger struct {
	level LogLevel
	atom  zap.AtomicLevel
	sugar *zap.SugaredLogger
}

func New() *Logger {
	level := LOG_LEVEL_INFO
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		level = StringToLogLevel(l)
	}
	return NewLogger(os.Stderr, level)
}

func NewLogger(w io.Writer, level LogLevel) *Logger {
	atom := zap.NewAtomicLevelAt(toZapLevel(level))
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atom)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{level: level, atom: atom, sugar: z.Sugar()}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.atom.SetLevel(toZapLevel(level))
}

func (l *Logger) SetLevelByString(level string) {
	l.SetLevel(StringToLogLevel(level))
}

// Named returns a child logger tagged with the given component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{level: l.level, atom: l.atom, sugar: l.sugar.Named(name)}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func StringToLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "fatal":
		return LOG_LEVEL_FATAL
	case "error":
		return LOG_LEVEL_ERROR
	case "warn", "warning":
		return LOG_LEVEL_WARN
	case "debug":
		return LOG_LEVEL_DEBUG
	case "info":
		return LOG_LEVEL_INFO
	case "none", "off":
		return LOG_LEVEL_NONE
	}
	return LOG_LEVEL_ALL
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LOG_LEVEL_NONE:
		// above fatal, nothing is enabled
		return zapcore.FatalLevel + 1
	case LOG_LEVEL_FATAL:
		return zapcore.FatalLevel
	case LOG_LEVEL_ERROR:
		return zapcore.ErrorLevel
	case LOG_LEVEL_WARN:
		return zapcore.WarnLevel
	case LOG_LEVEL_INFO:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}
