package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// MessageLevel is the severity of a message reported by a task
type MessageLevel string

const (
	MessageError MessageLevel = "e"
	MessageWarn  MessageLevel = "w"
	MessageInfo  MessageLevel = "i"
)

// ConsoleLogger prints human-oriented build progress
type ConsoleLogger struct {
	out     io.Writer
	errOut  io.Writer
	noColor bool
	mu      sync.Mutex
}

// NewConsoleLogger creates a console logger writing progress to out and errors to errOut
func NewConsoleLogger(out, errOut io.Writer, noColor bool) *ConsoleLogger {
	return &ConsoleLogger{out: out, errOut: errOut, noColor: noColor}
}

func (c *ConsoleLogger) paint(s string, attrs ...color.Attribute) string {
	if c.noColor {
		return s
	}
	painter := color.New(attrs...)
	painter.EnableColor()
	return painter.Sprint(s)
}

func (c *ConsoleLogger) write(w io.Writer, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(w, line)
}

// Phase announces the start of a phase
func (c *ConsoleLogger) Phase(name string) {
	c.write(c.out, "\n "+c.paint(fmt.Sprintf("Running phase %q", name), color.FgGreen, color.Bold))
}

// DependentPhase announces a phase that runs because the requested phase depends on it
func (c *ConsoleLogger) DependentPhase(name string) {
	c.write(c.out, "\n "+c.paint(fmt.Sprintf("Running dependant phase %q", name), color.FgGreen))
}

// Task announces the start of a task
func (c *ConsoleLogger) Task(name string) {
	c.write(c.out, "   +"+c.paint(fmt.Sprintf("Running task %q", name), color.FgCyan))
}

// Blank prints an empty separator line
func (c *ConsoleLogger) Blank() {
	c.write(c.out, "")
}

// TaskMessage prints a message reported by the running task
func (c *ConsoleLogger) TaskMessage(level MessageLevel, message string) {
	marker := "(" + string(level) + ")"
	switch level {
	case MessageError:
		c.write(c.errOut, "     "+c.paint(marker, color.FgRed, color.Bold)+" "+message)
	case MessageWarn:
		c.write(c.out, "     "+c.paint(marker, color.FgYellow, color.Bold)+" "+message)
	default:
		c.write(c.out, "     "+c.paint(marker, color.FgBlue)+" "+message)
	}
}

// Info prints info message
func (c *ConsoleLogger) Info(message string) {
	c.write(c.out, c.paint("(i)", color.FgBlue)+" "+message)
}

// Warn prints warning message
func (c *ConsoleLogger) Warn(message string) {
	c.write(c.out, c.paint("(w)", color.FgYellow, color.Bold)+" "+message)
}

// Error prints error message
func (c *ConsoleLogger) Error(message string) {
	c.write(c.errOut, c.paint("(e)", color.FgRed, color.Bold)+" "+message)
}

// Success prints success message
func (c *ConsoleLogger) Success(message string) {
	c.write(c.out, c.paint("✅ "+message, color.FgGreen))
}

// Println prints a plain line
func (c *ConsoleLogger) Println(line string) {
	c.write(c.out, line)
}

// Errors prints every error joined inside err on its own line
func (c *ConsoleLogger) Errors(err error) {
	for _, e := range Flatten(err) {
		for _, line := range strings.Split(e.Error(), "\n") {
			if line != "" {
				c.Error(line)
			}
		}
	}
}

// Flatten expands errors built with errors.Join into their parts
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Flatten(e)...)
		}
		return out
	}
	return []error{err}
}
