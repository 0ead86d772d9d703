package log

import (
	"flag"
	"fmt"
	"io"
	golog "log"
)

var golevel = Info

// AddFlags adds a "-log" flag (off, error, info, debug) to fs.
func AddFlags(fs *flag.FlagSet) {
	fs.Var(new(logFlag), "log", "set log level (off, error, info, debug)")
}

// SetFlags sets the output flags for the Go standard logger.
func SetFlags(flag int) { golog.SetFlags(flag) }

// SetOutput sets the output destination for the Go standard logger.
func SetOutput(w io.Writer) { golog.SetOutput(w) }

// SetPrefix sets the output prefix for the Go standard logger.
func SetPrefix(prefix string) { golog.SetPrefix(prefix) }

// SetLevel sets the log level for the Go standard logger outputter.
func SetLevel(level Level) { golevel = level }

type logFlag string

func (f logFlag) String() string { return string(f) }

func (f *logFlag) Set(level string) error {
	var l Level
	switch level {
	case "off":
		l = Off
	case "error":
		l = Error
	case "info":
		l = Info
	case "debug":
		l = Debug
	default:
		return fmt.Errorf("invalid log level %q", level)
	}
	golevel = l
	return nil
}

// Get implements flag.Getter.
func (logFlag) Get() interface{} { return golevel }

type gologOutputter struct{}

func (gologOutputter) Level() Level { return golevel }

func (gologOutputter) Output(calldepth int, level Level, s string) error {
	if golevel < level {
		return nil
	}
	return golog.Output(calldepth+1, s)
}
