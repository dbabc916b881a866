// Package output builds termenv outputs that honor NO_COLOR.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// Kind selects how colors are chosen for an output.
type Kind uint8

const (
	// Interactive probes the terminal for its color capabilities.
	Interactive Kind = iota
	// Plain uses basic ANSI colors, which every CI log viewer understands.
	Plain
)

// Profile returns the color profile for kind. NO_COLOR always yields Ascii.
func Profile(kind Kind) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if kind == Plain {
		return termenv.ANSI
	}
	return termenv.EnvColorProfile()
}

// New creates an interactive output writing to w, or to stderr when w is nil.
func New(w io.Writer) *termenv.Output {
	return NewWithKind(w, Interactive)
}

// NewWithKind creates an output writing to w with the profile of kind.
func NewWithKind(w io.Writer, kind Kind) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	return termenv.NewOutput(w,
		termenv.WithProfile(Profile(kind)),
		termenv.WithTTY(true),
	)
}
