package linear

import (
	"io"

	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/ui/output"
)

// ForMode creates a renderer for a resolved output mode.
// Plain mode is used for CI logs, every other mode renders for an interactive terminal.
func ForMode(stdout, stderr io.Writer, mode detector.OutputMode) *Renderer {
	kind := output.Interactive
	if mode == detector.ModePlain {
		kind = output.Plain
	}
	return NewRenderer(stdout, stderr, kind)
}
