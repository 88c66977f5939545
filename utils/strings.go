package utils // import "github.com/sinnahq/sinna/tools/utils"

import (
	"fmt"
)

const (
	codeReset  = "\033[0m"
	codeRed    = "\033[31m"
	codeGreen  = "\033[32m"
	codeYellow = "\033[33m"
)

// ColorRed returns the input string surrounded by the ANSI escape codes to
// color the text red. Text color is reset at the end of the returned string.
func ColorRed(s string) string {
	return Sprintf("%s%s%s", codeRed, s, codeReset)
}

// ColorGreen is like ColorRed, but green.
func ColorGreen(s string) string {
	return Sprintf("%s%s%s", codeGreen, s, codeReset)
}

// ColorYellow is like ColorRed, but yellow. We use it for non-fatal warnings.
func ColorYellow(s string) string {
	return Sprintf("%s%s%s", codeYellow, s, codeReset)
}

// The following two functions exist so that we don't have to import `fmt` into
// any other packages (so we don't accidentally log something using `fmt`
// functions instead of using the `logger` equivalents that send information
// to logz.io and Sentry). Operator-facing output is the exception and goes
// through an explicit io.Writer.

// Sprintf creates a string from format string and args.
func Sprintf(format string, v ...interface{}) string {
	return fmt.Sprintf(format, v...)
}

// MakeError creates an error from format string and args.
func MakeError(format string, v ...interface{}) error {
	return fmt.Errorf(format, v...)
}
