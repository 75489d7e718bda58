// Package logger provides structured diagnostics and console build reporting
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the diagnostics interface every package logs through
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithTarget(target string) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// TargetLogger implements Logger on logrus. The target is usually a
// component name ("loader", "runner", "watch").
type TargetLogger struct {
	logger     *logrus.Logger
	targetName string
}

// CustomFormatter renders "[15:04:05] LEVEL: [target] message {k=v, ...}"
type CustomFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

type levelStyle struct {
	text  string
	color *color.Color
}

var (
	errorStyle  = levelStyle{"ERROR", color.New(color.FgRed, color.Bold)}
	warnStyle   = levelStyle{"WARN", color.New(color.FgYellow, color.Bold)}
	debugStyle  = levelStyle{"DEBUG", color.New(color.FgWhite, color.Faint)}
	infoStyle   = levelStyle{"INFO", color.New(color.FgCyan)}
	fieldColor  = color.New(color.FgWhite, color.Faint)
	targetColor = color.New(color.FgBlue)
)

func styleFor(level logrus.Level) levelStyle {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return errorStyle
	case logrus.WarnLevel:
		return warnStyle
	case logrus.DebugLevel, logrus.TraceLevel:
		return debugStyle
	}
	return infoStyle
}

func (f *CustomFormatter) paint(c *color.Color, s string) string {
	if f.DisableColors {
		return s
	}
	return c.Sprint(s)
}

// Format implements logrus.Formatter
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	style := styleFor(entry.Level)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: ", entry.Time.Format(f.TimestampFormat), f.paint(style.color, style.text))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "target" {
			fmt.Fprintf(&b, "[%s] ", f.paint(targetColor, fmt.Sprint(entry.Data[k])))
			continue
		}
		keys = append(keys, k)
	}
	b.WriteString(entry.Message)

	if len(keys) > 0 {
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, entry.Data[k])
		}
		b.WriteString(f.paint(fieldColor, " {"+strings.Join(parts, ", ")+"}"))
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// CreateLogger creates a logger writing to stderr and, when logFile is set, to that file too
func CreateLogger(logFile string, logLevel string) Logger {
	log, err := NewLogger(os.Stderr, logFile, logLevel, color.NoColor)
	if err != nil {
		return newTargetLogger(logLevel, os.Stderr, color.NoColor)
	}
	return log
}

// NewLogger creates a logger writing to output and appending to logFile when set.
// The file never gets colour codes.
func NewLogger(output io.Writer, logFile string, logLevel string, noColor bool) (Logger, error) {
	if logFile == "" {
		return newTargetLogger(logLevel, output, noColor), nil
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
	}
	return newTargetLogger(logLevel, io.MultiWriter(output, file), true), nil
}

// CreateLoggerWithOutput creates a logger with custom output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) Logger {
	return newTargetLogger(logLevel, output, true)
}

// Discard returns a logger that drops everything
func Discard() Logger {
	return newTargetLogger("panic", io.Discard, true)
}

func newTargetLogger(logLevel string, output io.Writer, disableColors bool) *TargetLogger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&CustomFormatter{
		TimestampFormat: "15:04:05",
		DisableColors:   disableColors,
	})
	log.SetOutput(output)

	return &TargetLogger{logger: log}
}

// WithTarget returns a logger sharing the output of l under another target
func (l *TargetLogger) WithTarget(target string) Logger {
	return &TargetLogger{logger: l.logger, targetName: target}
}

func (l *TargetLogger) entry(fields []Field) *logrus.Entry {
	data := make(logrus.Fields, len(fields)+1)
	if l.targetName != "" {
		data["target"] = l.targetName
	}
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.logger.WithFields(data)
}

func (l *TargetLogger) Info(message string, fields ...Field)  { l.entry(fields).Info(message) }
func (l *TargetLogger) Error(message string, fields ...Field) { l.entry(fields).Error(message) }
func (l *TargetLogger) Warn(message string, fields ...Field)  { l.entry(fields).Warn(message) }
func (l *TargetLogger) Debug(message string, fields ...Field) { l.entry(fields).Debug(message) }

// Success logs at info level with a check mark
func (l *TargetLogger) Success(message string, fields ...Field) {
	l.entry(fields).Info("✓ " + message)
}
