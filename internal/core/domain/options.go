package domain

// Mode selects the option preset of a run.
type Mode uint8

const (
	// ModeDebug favors readable output and fast rebuilds.
	ModeDebug Mode = iota
	// ModeRelease favors small output.
	ModeRelease
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeRelease {
		return "release"
	}
	return "debug"
}

// Options is the bag passed by value to every transform of a run.
type Options struct {
	Mode       Mode
	SourceMaps bool
	Minify     bool
	Comments   bool
	LiveReload bool
}

// OptionsFor returns the preset for mode.
// Release minifies, strips comments and emits source maps; debug does the opposite.
func OptionsFor(mode Mode) Options {
	if mode == ModeRelease {
		return Options{
			Mode:       ModeRelease,
			SourceMaps: true,
			Minify:     true,
			Comments:   false,
		}
	}
	return Options{
		Mode:       ModeDebug,
		SourceMaps: false,
		Minify:     false,
		Comments:   true,
	}
}

// WithSourceMaps returns a copy with source maps toggled.
func (o Options) WithSourceMaps(enabled bool) Options {
	o.SourceMaps = enabled
	return o
}

// WithLiveReload returns a copy with live reload toggled.
func (o Options) WithLiveReload(enabled bool) Options {
	o.LiveReload = enabled
	return o
}
