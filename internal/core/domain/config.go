package domain

import (
	"net/url"
	"path/filepath"
	"slices"
)

// Config is a loaded and validated kiln.yaml with every path made absolute.
type Config struct {
	// Root is the directory containing the config file.
	Root           string
	SourceRoot     string
	DestRoot       string
	NodeModulesDir string

	StyleEntry         string
	StyleOutput        string
	BundleEntry        string
	BundleOutput       string
	BundleAssetPattern string

	StyleExtensions     []string
	TranspileExtensions []string
	StaticExtensions    []string
	Ignore              []string
	ServerSideModules   []string
	AllowUnclassified   bool

	UpstreamOrigin *url.URL
	ServerPort     int
	AssetsPrefix   string
	LiveReload     bool
	// SourceMaps overrides the mode preset when set.
	SourceMaps *bool

	Targets    []string
	SassBinary string
}

// Paths returns the absolute roots of the project.
func (c *Config) Paths() Paths {
	return Paths{
		ProjectRoot:    c.Root,
		SourceRoot:     c.SourceRoot,
		DestRoot:       c.DestRoot,
		NodeModulesDir: c.NodeModulesDir,
	}
}

// Toolchain returns the settings handed to external compilers.
func (c *Config) Toolchain() Toolchain {
	return Toolchain{
		SassBinary: c.SassBinary,
		Targets:    slices.Clone(c.Targets),
		LoadPaths:  []string{c.SourceRoot, c.NodeModulesDir},
		SearchPath: []string{filepath.Join(c.NodeModulesDir, ".bin")},
	}
}

// Options returns the option bag for a run in mode. Watch runs add live reload when enabled.
func (c *Config) Options(mode Mode, watch bool) Options {
	opts := OptionsFor(mode)
	if c.SourceMaps != nil {
		opts = opts.WithSourceMaps(*c.SourceMaps)
	}
	return opts.WithLiveReload(watch && c.LiveReload)
}
