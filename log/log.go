// Package log provides simple leveled logging, shared by the iofile and
// errors packages and by cmd/iobufcat so their diagnostics go through one
// place. Output is implemented by an
// Outputter, which defaults to Go's standard log package; callers that
// want to route through something else (e.g. a structured logger)
// provide their own Outputter via SetOutputter.
package log

import (
	"fmt"
	"os"
)

// An Outputter provides a destination for leveled log output.
type Outputter interface {
	// Level returns the level at which the outputter is accepting
	// messages.
	Level() Level

	// Output writes the provided message to the outputter at the
	// provided calldepth and level. The message is dropped if the
	// outputter is not logging at the desired level.
	Output(calldepth int, level Level, s string) error
}

var out Outputter = gologOutputter{}

// SetOutputter installs a new outputter, returning the old one. It must
// not be called concurrently with log output, so it's suitable only
// during program initialization.
func SetOutputter(newOut Outputter) Outputter {
	old := out
	out = newOut
	return old
}

// GetOutputter returns the current outputter.
func GetOutputter() Outputter { return out }

// At reports whether the current outputter is logging at level.
func At(level Level) bool { return level <= out.Level() }

// Output outputs a log message to the current outputter.
func Output(calldepth int, level Level, s string) error {
	return out.Output(calldepth+1, level, s)
}

// A Level is a log verbosity level. Increasing levels decrease in
// priority and increase in verbosity: an outputter logging at level L
// emits every message with level M <= L.
type Level int

const (
	// Off never outputs messages.
	Off = Level(-3)
	// Error outputs error messages.
	Error = Level(-2)
	// Info outputs informational messages; the standard logging level.
	Info = Level(0)
	// Debug outputs messages intended for development, not regular use.
	Debug = Level(1)
)

// String returns l's name.
func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		if l < 0 {
			panic("log: invalid level")
		}
		return fmt.Sprintf("debug%d", l)
	}
}

// Print formats v in the manner of fmt.Sprint and outputs it at level l.
func (l Level) Print(v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprint(v...))
	}
}

// Println formats v in the manner of fmt.Sprintln and outputs it at
// level l.
func (l Level) Println(v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprintln(v...))
	}
}

// Printf formats v in the manner of fmt.Sprintf and outputs it at
// level l.
func (l Level) Printf(format string, v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprintf(format, v...))
	}
}

// Print formats v in the manner of fmt.Sprint and outputs it at Info.
func Print(v ...interface{}) {
	if At(Info) {
		_ = out.Output(2, Info, fmt.Sprint(v...))
	}
}

// Printf formats v in the manner of fmt.Sprintf and outputs it at Info.
func Printf(format string, v ...interface{}) {
	if At(Info) {
		_ = out.Output(2, Info, fmt.Sprintf(format, v...))
	}
}

// Fatal outputs v at Error and then calls os.Exit(1).
func Fatal(v ...interface{}) {
	_ = out.Output(2, Error, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf outputs v at Error and then calls os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	_ = out.Output(2, Error, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Panic outputs v at Error and then panics.
func Panic(v ...interface{}) {
	s := fmt.Sprint(v...)
	_ = out.Output(2, Error, s)
	panic(s)
}

// Panicf outputs v at Error and then panics.
func Panicf(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	_ = out.Output(2, Error, s)
	panic(s)
}
