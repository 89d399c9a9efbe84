package logger

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Info prints progress messages in green.
var Info = color.New(color.FgGreen).PrintfFunc()

// Plain prints uncoloured output, used for listings and prompts.
var Plain = func(format string, a ...any) {
	fmt.Fprintf(color.Output, format, a...)
}

// Warn prints non-fatal problems in bright magenta, prefixed with "WARNING: ".
var Warn = func(format string, a ...any) {
	warn("WARNING: "+format, a...)
}

var warn = color.New(color.FgHiMagenta).PrintfFunc()

// Error prints failures in red to stderr.
var Error = color.New(color.FgRed).FprintfFunc()

// Errorf is a shorthand for Error(os.Stderr, ...).
func Errorf(format string, a ...any) {
	Error(os.Stderr, format, a...)
}

// Debug prints in cyan when debugging is enabled; otherwise it is a no-op.
// It is safe to call before Init.
var Debug = func(format string, a ...any) {}

// Init enables or disables debug output.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = color.New(color.FgCyan).PrintfFunc()
		return
	}
	Debug = func(format string, a ...any) {}
}
