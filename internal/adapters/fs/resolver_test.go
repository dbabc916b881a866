package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
)

func TestModuleResolver_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		module string
		files  map[string]string
		want   string
	}{
		{
			name:   "browser field wins",
			module: "jquery",
			files: map[string]string{
				"jquery/package.json":        `{"main": "dist/jquery.js", "browser": "dist/jquery.slim.js"}`,
				"jquery/dist/jquery.js":      "",
				"jquery/dist/jquery.slim.js": "",
			},
			want: "jquery/dist/jquery.slim.js",
		},
		{
			name:   "main without extension",
			module: "lodash",
			files: map[string]string{
				"lodash/package.json": `{"main": "./lodash"}`,
				"lodash/lodash.js":    "",
			},
			want: "lodash/lodash.js",
		},
		{
			name:   "browser map falls back to main",
			module: "util",
			files: map[string]string{
				"util/package.json": `{"main": "lib", "browser": {"./node.js": false}}`,
				"util/lib/index.js": "",
			},
			want: "util/lib/index.js",
		},
		{
			name:   "scoped package with index.js",
			module: "@scope/widget",
			files: map[string]string{
				"@scope/widget/package.json": `{"name": "@scope/widget"}`,
				"@scope/widget/index.js":     "",
			},
			want: "@scope/widget/index.js",
		},
		{
			name:   "first javascript file",
			module: "legacy",
			files: map[string]string{
				"legacy/README.md":      "",
				"legacy/src/legacy.js":  "",
				"legacy/src/zzz.min.js": "",
			},
			want: "legacy/src/legacy.js",
		},
		{
			name:   "main escaping the package is ignored",
			module: "sneaky",
			files: map[string]string{
				"sneaky/package.json": `{"main": "../other/index.js"}`,
				"sneaky/index.js":     "",
			},
			want: "sneaky/index.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeContents(t, root, tt.files)

			got, err := fs.NewModuleResolver(fs.NewWalker()).Resolve(root, tt.module)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModuleResolver_Errors(t *testing.T) {
	root := t.TempDir()
	writeContents(t, root, map[string]string{"empty/package.json": `{"main": "missing.js"}`})
	resolver := fs.NewModuleResolver(fs.NewWalker())

	_, err := resolver.Resolve(root, "absent")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "not installed")

	_, err = resolver.Resolve(root, "empty")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "entry file not found")
}
