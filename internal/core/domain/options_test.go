package domain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/core/domain"
)

func TestOptionsFor(t *testing.T) {
	release := domain.OptionsFor(domain.ModeRelease)
	assert.Equal(t, domain.Options{Mode: domain.ModeRelease, SourceMaps: true, Minify: true}, release)

	debug := domain.OptionsFor(domain.ModeDebug)
	assert.Equal(t, domain.Options{Mode: domain.ModeDebug, Comments: true}, debug)

	assert.Equal(t, "release", domain.ModeRelease.String())
	assert.Equal(t, "debug", domain.ModeDebug.String())
}

func TestConfig_Options(t *testing.T) {
	off := false

	tests := []struct {
		name  string
		cfg   domain.Config
		mode  domain.Mode
		watch bool
		want  domain.Options
	}{
		{
			name: "release build",
			cfg:  domain.Config{LiveReload: true},
			mode: domain.ModeRelease,
			want: domain.Options{Mode: domain.ModeRelease, SourceMaps: true, Minify: true},
		},
		{
			name:  "watch enables live reload",
			cfg:   domain.Config{LiveReload: true},
			mode:  domain.ModeDebug,
			watch: true,
			want:  domain.Options{Mode: domain.ModeDebug, Comments: true, LiveReload: true},
		},
		{
			name:  "live reload disabled in config",
			cfg:   domain.Config{},
			mode:  domain.ModeDebug,
			watch: true,
			want:  domain.Options{Mode: domain.ModeDebug, Comments: true},
		},
		{
			name: "source maps override",
			cfg:  domain.Config{SourceMaps: &off},
			mode: domain.ModeRelease,
			want: domain.Options{Mode: domain.ModeRelease, Minify: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Options(tt.mode, tt.watch))
		})
	}
}

func TestConfig_Toolchain(t *testing.T) {
	cfg := domain.Config{
		SourceRoot:     "/p/src",
		NodeModulesDir: "/p/node_modules",
		SassBinary:     "sass",
		Targets:        []string{"firefox57"},
	}
	tc := cfg.Toolchain()
	assert.Equal(t, []string{"/p/src", "/p/node_modules"}, tc.LoadPaths)
	assert.Equal(t, []string{filepath.Join("/p/node_modules", ".bin")}, tc.SearchPath)

	tc.Targets[0] = "changed"
	assert.Equal(t, "firefox57", cfg.Targets[0])
}
