// Package logger provides the structured, leveled, rotating logger used
// across the fitter. It wraps logrus with a lumberjack-backed file sink,
// the same pairing the rest of the codebase standardizes on.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level names the severity of a log entry.
type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
	LevelPanic Level = "panic"
)

// Format selects the on-wire encoding of a log entry.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config controls where and how log entries are written.
type Config struct {
	Level      Level  `yaml:"level" json:"level"`
	Format     Format `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"` // stdout, stderr, file
	Filename   string `yaml:"filename" json:"filename"`
	MaxSize    int    `yaml:"max_size" json:"max_size"` // megabytes
	MaxAge     int    `yaml:"max_age" json:"max_age"`   // days
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
	Caller     bool   `yaml:"caller" json:"caller"`
}

// DefaultConfig is used when no logging section is present in the fit
// configuration.
var DefaultConfig = Config{
	Level:      LevelInfo,
	Format:     FormatText,
	Output:     "stdout",
	MaxSize:    100,
	MaxAge:     30,
	MaxBackups: 10,
	Compress:   true,
	Caller:     false,
}

// Logger is the leveled, structured logging interface used throughout
// the fitter. It mirrors logrus's entry API closely enough that callers
// never import logrus directly.
type Logger interface {
	Trace(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// structuredLogger is the logrus-backed Logger implementation.
type structuredLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
	config Config
	mu     *sync.RWMutex
}

// New builds a Logger from Config.
func New(config Config) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	prettify := func(f *runtime.Frame) (string, string) {
		return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}
	if config.Format == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339, CallerPrettyfier: prettify})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339, CallerPrettyfier: prettify})
	}

	var output io.Writer
	switch config.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		filename := config.Filename
		if filename == "" {
			filename = "logs/gundamfit.log"
		}
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			fmt.Printf("failed to create log directory, falling back to stdout: %v\n", err)
			output = os.Stdout
		} else {
			output = &lumberjack.Logger{
				Filename:   filename,
				MaxSize:    config.MaxSize,
				MaxAge:     config.MaxAge,
				MaxBackups: config.MaxBackups,
				Compress:   config.Compress,
			}
		}
	default:
		output = os.Stdout
	}
	l.SetOutput(output)
	l.SetReportCaller(config.Caller)

	return &structuredLogger{logger: l, entry: logrus.NewEntry(l), config: config, mu: &sync.RWMutex{}}
}

func (l *structuredLogger) Trace(msg string, fields ...interface{}) { l.log(logrus.TraceLevel, msg, fields...) }
func (l *structuredLogger) Debug(msg string, fields ...interface{}) { l.log(logrus.DebugLevel, msg, fields...) }
func (l *structuredLogger) Info(msg string, fields ...interface{})  { l.log(logrus.InfoLevel, msg, fields...) }
func (l *structuredLogger) Warn(msg string, fields ...interface{})  { l.log(logrus.WarnLevel, msg, fields...) }
func (l *structuredLogger) Error(msg string, fields ...interface{}) { l.log(logrus.ErrorLevel, msg, fields...) }
func (l *structuredLogger) Fatal(msg string, fields ...interface{}) { l.log(logrus.FatalLevel, msg, fields...) }

func (l *structuredLogger) WithField(key string, value interface{}) Logger {
	return &structuredLogger{logger: l.logger, entry: l.entry.WithField(key, value), config: l.config, mu: l.mu}
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	return &structuredLogger{logger: l.logger, entry: l.entry.WithFields(fields), config: l.config, mu: l.mu}
}

func (l *structuredLogger) WithContext(ctx context.Context) Logger {
	return &structuredLogger{logger: l.logger, entry: l.entry.WithContext(ctx), config: l.config, mu: l.mu}
}

func (l *structuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	parsed, err := logrus.ParseLevel(string(level))
	if err != nil {
		return
	}
	l.logger.SetLevel(parsed)
	l.config.Level = level
}

func (l *structuredLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Level
}

func (l *structuredLogger) log(level logrus.Level, msg string, fields ...interface{}) {
	entry := l.entry
	if len(fields) > 0 {
		fieldMap := make(map[string]interface{}, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			if key, ok := fields[i].(string); ok {
				fieldMap[key] = fields[i+1]
			}
		}
		if len(fieldMap) > 0 {
			entry = entry.WithFields(fieldMap)
		}
	}
	entry.Log(level, msg)
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = New(DefaultConfig)
)

// Init replaces the global logger, used once at process startup after
// the fit configuration has been parsed.
func Init(config Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = New(config)
}

func global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

func Trace(msg string, fields ...interface{}) { global().Trace(msg, fields...) }
func Debug(msg string, fields ...interface{}) { global().Debug(msg, fields...) }
func Info(msg string, fields ...interface{})  { global().Info(msg, fields...) }
func Warn(msg string, fields ...interface{})  { global().Warn(msg, fields...) }
func Error(msg string, fields ...interface{}) { global().Error(msg, fields...) }
func Fatal(msg string, fields ...interface{}) { global().Fatal(msg, fields...) }

func WithField(key string, value interface{}) Logger  { return global().WithField(key, value) }
func WithFields(fields map[string]interface{}) Logger { return global().WithFields(fields) }

// PhaseLogger records the wall-clock duration of a Propagator phase
// (reweight, fillHist, buildCache) at a level proportional to how long
// it took, the same "performance logger" idiom used elsewhere in this
// codebase for slow-call detection.
type PhaseLogger struct {
	logger Logger
	warn   time.Duration
	err    time.Duration
}

// NewPhaseLogger builds a PhaseLogger that logs at Warn above warnAfter
// and at Error above errAfter.
func NewPhaseLogger(l Logger, warnAfter, errAfter time.Duration) *PhaseLogger {
	return &PhaseLogger{logger: l, warn: warnAfter, err: errAfter}
}

// LogPhase reports how long a named phase took. A nil PhaseLogger or a
// PhaseLogger built over a nil Logger is a no-op, so callers in tests or
// short-lived tools need not wire up logging just to use a Propagator.
func (p *PhaseLogger) LogPhase(phase string, duration time.Duration, fields map[string]interface{}) {
	if p == nil || p.logger == nil {
		return
	}
	logFields := map[string]interface{}{"phase": phase, "duration_ms": duration.Milliseconds()}
	for k, v := range fields {
		logFields[k] = v
	}
	msg := fmt.Sprintf("phase %q took %s", phase, duration)
	switch {
	case p.err > 0 && duration > p.err:
		p.logger.WithFields(logFields).Error(msg)
	case p.warn > 0 && duration > p.warn:
		p.logger.WithFields(logFields).Warn(msg)
	default:
		p.logger.WithFields(logFields).Debug(msg)
	}
}
