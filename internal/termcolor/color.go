// Package termcolor provides simple ANSI terminal color output for the
// localshare CLI's status lines (peer listings, config validation).
package termcolor

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	faint  = "\033[2m"
)

var (
	ttyOnce   sync.Once
	ttyResult bool
)

// isColorEnabled reports whether color output should be used.
// Disabled when stdout is not a terminal or NO_COLOR env is set.
func isColorEnabled() bool {
	ttyOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			return
		}
		fi, err := os.Stdout.Stat()
		if err != nil {
			return
		}
		ttyResult = fi.Mode()&os.ModeCharDevice != 0
	})
	return ttyResult
}

// shouldColor reports whether w should receive ANSI codes. Only
// os.Stdout ever does — tests writing to a bytes.Buffer always get
// plain text, regardless of the calling process's own terminal.
func shouldColor(w io.Writer) bool {
	return w == io.Writer(os.Stdout) && isColorEnabled()
}

// Green writes a green-colored line to w (appends newline).
func Green(w io.Writer, format string, a ...any) {
	writeLine(w, green, format, a...)
}

// Red writes a red-colored line to w (appends newline).
func Red(w io.Writer, format string, a ...any) {
	writeLine(w, red, format, a...)
}

// Yellow writes a yellow-colored line to w (appends newline).
func Yellow(w io.Writer, format string, a ...any) {
	writeLine(w, yellow, format, a...)
}

// Faint writes faint/dim text to w (no newline appended - Printf style).
func Faint(w io.Writer, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if shouldColor(w) {
		fmt.Fprint(w, faint+msg+reset)
	} else {
		fmt.Fprint(w, msg)
	}
}

func writeLine(w io.Writer, code, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if shouldColor(w) {
		fmt.Fprintf(w, "%s%s%s\n", code, msg, reset)
	} else {
		fmt.Fprintln(w, msg)
	}
}
