// Package logger provides structured logging on top of zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured logger used across the pipeline.
type Logger struct {
	zl zerolog.Logger
}

// Config controls level, format and destination of log output.
type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout"` // stdout, stderr or a file path
	TimeFormat string `yaml:"time_format"`
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		out = f
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// NewWithWriter builds a JSON logger writing to w. Mostly useful in tests.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(l.zl.Error(), msg, fields) }

func (l *Logger) write(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.addTo(event)
	}
	event.Msg(msg)
}

// Field is a typed key/value pair attached to a log entry.
type Field struct {
	key   string
	kind  fieldKind
	str   string
	num   int64
	float float64
	flag  bool
	err   error
	any   interface{}
	when  time.Time
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindTime
	kindError
	kindAny
)

func (f Field) addTo(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.key, f.str)
	case kindInt:
		e.Int64(f.key, f.num)
	case kindFloat:
		e.Float64(f.key, f.float)
	case kindBool:
		e.Bool(f.key, f.flag)
	case kindDuration:
		e.Dur(f.key, time.Duration(f.num))
	case kindTime:
		e.Time(f.key, f.when)
	case kindError:
		e.AnErr(f.key, f.err)
	default:
		e.Interface(f.key, f.any)
	}
}

func (f Field) addToContext(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.key, f.str)
	case kindInt:
		return c.Int64(f.key, f.num)
	case kindFloat:
		return c.Float64(f.key, f.float)
	case kindBool:
		return c.Bool(f.key, f.flag)
	case kindDuration:
		return c.Dur(f.key, time.Duration(f.num))
	case kindTime:
		return c.Time(f.key, f.when)
	case kindError:
		return c.AnErr(f.key, f.err)
	default:
		return c.Interface(f.key, f.any)
	}
}

// --- Field constructors ---

func String(key, value string) Field { return Field{key: key, kind: kindString, str: value} }
func Int(key string, value int) Field { return Field{key: key, kind: kindInt, num: int64(value)} }
func Int64(key string, value int64) Field { return Field{key: key, kind: kindInt, num: value} }
func Float64(key string, value float64) Field {
	return Field{key: key, kind: kindFloat, float: value}
}
func Bool(key string, value bool) Field { return Field{key: key, kind: kindBool, flag: value} }
func Duration(key string, value time.Duration) Field {
	return Field{key: key, kind: kindDuration, num: int64(value)}
}
func Time(key string, value time.Time) Field { return Field{key: key, kind: kindTime, when: value} }
func Error(err error) Field                  { return Field{key: "error", kind: kindError, err: err} }
func Any(key string, value interface{}) Field {
	return Field{key: key, kind: kindAny, any: value}
}
