// Package detector selects the output mode from the environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModePretty uses the terminal's full color profile and hides cached tasks.
	ModePretty
	// ModePlain uses basic colors and reports every task, for CI logs.
	ModePlain
)

// String returns the flag value selecting the mode.
func (m OutputMode) String() string {
	switch m {
	case ModePretty:
		return "pretty"
	case ModePlain:
		return "plain"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended output mode.
// Output that is not a terminal, or a CI environment, gets plain output.
func DetectEnvironment() OutputMode {
	return detect(term.IsTerminal(int(os.Stderr.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) OutputMode {
	if !isTTY || ci == "true" || ci == "1" {
		return ModePlain
	}
	return ModePretty
}

// ResolveMode applies the user's --output-mode flag to the detected mode.
// userFlag should be one of: "auto", "pretty", "plain", "ci", or empty.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "pretty", "tty":
		return ModePretty
	case "plain", "linear", "ci":
		return ModePlain
	default:
		return autoDetected
	}
}
