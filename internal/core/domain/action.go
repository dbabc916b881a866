package domain

import "go.trai.ch/zerr"

// Action is the transform applied to a source file.
type Action uint8

const (
	// ActionUnknown is the zero value and never appears in a valid plan.
	ActionUnknown Action = iota
	// ActionCopy copies the source verbatim.
	ActionCopy
	// ActionTranspile compiles a single module to plain JavaScript.
	ActionTranspile
	// ActionBundle bundles an entry module and everything it imports.
	ActionBundle
	// ActionCompileStyle compiles the stylesheet entry and its imports to CSS.
	ActionCompileStyle
	// ActionPassThrough marks a file that is never transformed on its own: either a satellite
	// consumed by an aggregate task, or a server-side module copied unmodified.
	ActionPassThrough
)

var actionNames = map[Action]string{
	ActionUnknown:      "unknown",
	ActionCopy:         "copy",
	ActionTranspile:    "transpile",
	ActionBundle:       "bundle",
	ActionCompileStyle: "compile-style",
	ActionPassThrough:  "pass-through-dependency",
}

// String returns the action tag used in logs and reports.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return actionNames[ActionUnknown]
}

// Aggregate reports whether the action consumes satellite files.
func (a Action) Aggregate() bool {
	return a == ActionBundle || a == ActionCompileStyle
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	for action, name := range actionNames {
		if name == string(text) && action != ActionUnknown {
			*a = action
			return nil
		}
	}
	return zerr.With(zerr.New("unknown action"), "action", string(text))
}
