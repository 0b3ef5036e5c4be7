// Package console prints tagged, colored progress lines gated by verbosity.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"adjpeg/pkg/config"
)

// Logger writes [*]/[+]/[!]/[-] prefixed lines. A nil *Logger discards
// everything, so library code can log unconditionally.
type Logger struct {
	out       io.Writer
	verbosity config.Verbosity

	info    func(a ...interface{}) string
	success func(a ...interface{}) string
	warning func(a ...interface{}) string
	errorf  func(a ...interface{}) string
	alert   func(a ...interface{}) string
	debug   func(a ...interface{}) string
}

// New creates a Logger writing to out. Colors are used only when noColor is
// false; callers decide that from the terminal, see Stdout.
func New(out io.Writer, verbosity config.Verbosity, noColor bool) *Logger {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c.SprintFunc()
	}

	return &Logger{
		out:       out,
		verbosity: verbosity,
		info:      mk(color.FgBlue),
		success:   mk(color.FgGreen),
		warning:   mk(color.FgYellow),
		errorf:    mk(color.FgRed),
		alert:     mk(color.FgRed, color.Bold),
		debug:     mk(color.FgMagenta),
	}
}

// Stdout creates a Logger on a colorable stdout, with colors only when stdout
// is a terminal
func Stdout(verbosity config.Verbosity, noColor bool) *Logger {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return New(colorable.NewColorableStdout(), verbosity, noColor || !tty)
}

// Verbosity returns the configured verbosity
func (l *Logger) Verbosity() config.Verbosity {
	if l == nil {
		return config.Quiet
	}
	return l.verbosity
}

// DebugEnabled reports whether Debugf output is shown
func (l *Logger) DebugEnabled() bool {
	return l != nil && l.verbosity == config.Debug
}

func (l *Logger) printf(tag string, format string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

// Infof prints progress information, suppressed when quiet
func (l *Logger) Infof(format string, args ...interface{}) {
	if l == nil || l.verbosity == config.Quiet {
		return
	}
	l.printf(l.info("[*]"), format, args...)
}

// Successf prints a completed step, suppressed when quiet
func (l *Logger) Successf(format string, args ...interface{}) {
	if l == nil || l.verbosity == config.Quiet {
		return
	}
	l.printf(l.success("[+]"), format, args...)
}

// Warningf prints a warning at every verbosity
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.printf(l.warning("[!]"), format, args...)
}

// Errorf prints an error at every verbosity
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.printf(l.errorf("[-]"), format, args...)
}

// Alertf prints a high-severity finding at every verbosity
func (l *Logger) Alertf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.printf(l.alert("[!!!]"), format, args...)
}

// Debugf prints diagnostics only in debug mode
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.DebugEnabled() {
		return
	}
	l.printf(l.debug("[d]"), format, args...)
}

// Printf writes an untagged line, suppressed when quiet
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || l.verbosity == config.Quiet {
		return
	}
	fmt.Fprintf(l.out, format, args...)
}

// Writer returns the underlying writer
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return l.out
}
