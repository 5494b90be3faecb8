package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCIILogo is printed by the build command.
const ASCIILogo = `
  ____  _   _
 | __ )| | | |_ __
 |  _ \| | | | '_ \
 | |_) | |_| | |_) |
 |____/ \___/| .__/
             |_|
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorEnabled is cleared by DisableColor.
var colorEnabled = true

// DisableColor turns every color function into the identity. Call it
// before any output, typically from --no-color or NO_COLOR.
func DisableColor() {
	colorEnabled = false
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// Output is where the Print helpers write.
var Output io.Writer = os.Stdout

// PrintLogo prints the ASCII logo with the version.
func PrintLogo(version string) {
	fmt.Fprint(Output, Cyan(ASCIILogo))
	fmt.Fprintln(Output, Dim("  v"+version))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
