package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const projectRoot = "/project"

func newMapLoader(t *testing.T, files fstest.MapFS) (*config.Loader, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	loader := &config.Loader{
		Logger: log,
		FS:     config.NewMapFSAdapter(projectRoot, files),
	}
	return loader, log
}

func project(yaml string) fstest.MapFS {
	return fstest.MapFS{
		domain.ConfigFileName: &fstest.MapFile{Data: []byte(yaml)},
		"src":                 &fstest.MapFile{Mode: os.ModeDir | 0o755},
	}
}

func load(t *testing.T, yaml string) (*domain.Config, error) {
	t.Helper()
	loader, _ := newMapLoader(t, project(yaml))
	return loader.LoadFile(filepath.Join(projectRoot, domain.ConfigFileName))
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, projectRoot, cfg.Root)
	assert.Equal(t, "/project/src", cfg.SourceRoot)
	assert.Equal(t, "/project/dist", cfg.DestRoot)
	assert.Equal(t, "/project/node_modules", cfg.NodeModulesDir)
	assert.Equal(t, domain.DefaultBundleAssetPattern, cfg.BundleAssetPattern)
	assert.Equal(t, "http://localhost:8080", cfg.UpstreamOrigin.String())
	assert.Equal(t, domain.DefaultServerPort, cfg.ServerPort)
	assert.Equal(t, "/dist", cfg.AssetsPrefix)
	assert.True(t, cfg.LiveReload)
	assert.Nil(t, cfg.SourceMaps)
	assert.Equal(t, domain.DefaultSassBinary, cfg.SassBinary)
	assert.Equal(t, domain.DefaultTargets(), cfg.Targets)
	assert.Empty(t, cfg.ServerSideModules)
	assert.Contains(t, cfg.StyleExtensions, ".scss")
	assert.Contains(t, cfg.TranspileExtensions, ".ts")
	assert.Subset(t, cfg.Ignore, domain.DefaultIgnores())
}

func TestLoadFile_Overrides(t *testing.T) {
	cfg, err := load(t, `
sourceRoot: src
destRoot: public/build
styleEntry: styles/main.scss
styleOutput: css/site.css
bundleEntry: "**/*.entry.ts"
bundleOutput: assets/js/app.entry.js
bundleAssetPattern: "**.bundle.*"
staticExtensions: [PNG, ".svg"]
ignore: ["**/*.draft.*"]
serverSideModules: [lodash, "@scope/util", lodash]
upstreamOrigin: https://app.internal:9443
serverPort: 3000
assetsPrefix: /static/
liveReload: false
sourceMaps: true
targets: [es2022]
sassBinary: /usr/local/bin/sass
`)
	require.NoError(t, err)

	assert.Equal(t, "/project/public/build", cfg.DestRoot)
	assert.Equal(t, "css/site.css", cfg.StyleOutput)
	assert.Equal(t, "assets/js/app.entry.js", cfg.BundleOutput)
	assert.Equal(t, "**.bundle.*", cfg.BundleAssetPattern)
	assert.Equal(t, []string{".png", ".svg"}, cfg.StaticExtensions)
	assert.Equal(t, "**/*.draft.*", cfg.Ignore[0])
	assert.Equal(t, []string{"@scope/util", "lodash"}, cfg.ServerSideModules)
	assert.Equal(t, "app.internal:9443", cfg.UpstreamOrigin.Host)
	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, "/static", cfg.AssetsPrefix)
	assert.False(t, cfg.LiveReload)
	require.NotNil(t, cfg.SourceMaps)
	assert.True(t, *cfg.SourceMaps)
	assert.Equal(t, []string{"es2022"}, cfg.Targets)
	assert.Equal(t, "/usr/local/bin/sass", cfg.SassBinary)
}

func TestLoadFile_EmptyAssetPatternDisablesAssets(t *testing.T) {
	cfg, err := load(t, `bundleAssetPattern: ""`)
	require.NoError(t, err)
	assert.Empty(t, cfg.BundleAssetPattern)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{"unknown key", "sourceRot: src", "failed to parse config file"},
		{"malformed yaml", "ignore: [", "failed to parse config file"},
		{"bad glob", `styleEntry: "[main.scss"`, "invalid glob pattern"},
		{"bad upstream scheme", "upstreamOrigin: ftp://host", "upstream origin"},
		{"upstream without host", "upstreamOrigin: http://", "upstream origin"},
		{"port too large", "serverPort: 70000", "port"},
		{"port zero", "serverPort: 0", "port"},
		{"relative prefix", "assetsPrefix: dist", "assets prefix"},
		{"root prefix", "assetsPrefix: /", "assets prefix"},
		{"overlapping extensions", "staticExtensions: [.ts]", "extension"},
		{"escaping output", "bundleOutput: ../app.js", "escapes"},
		{"absolute output", "styleOutput: /tmp/site.css", "escapes"},
		{"module traversal", "serverSideModules: [../secrets]", "module"},
		{"missing source root", "sourceRoot: missing", "source root"},
		{"dest equals source", "destRoot: src", "destination root"},
		{"dest contains source", "destRoot: .", "destination root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(t, tt.yaml)
			require.Error(t, err)
			assert.Nil(t, cfg)
			require.ErrorIs(t, err, domain.ErrConfiguration)
			assert.ErrorContains(t, err, tt.message)
		})
	}
}

func TestLoadFile_DestinationInsideSourceIsAllowed(t *testing.T) {
	cfg, err := load(t, "destRoot: src/out")
	require.NoError(t, err)
	assert.Equal(t, "/project/src/out", cfg.DestRoot)
}

func TestLoadFile_WarnsOnOrphanOutputs(t *testing.T) {
	loader, log := newMapLoader(t, project("styleOutput: css/site.css\nbundleOutput: js/app.js\n"))
	log.EXPECT().Warn("'styleOutput' has no effect without 'styleEntry'")
	log.EXPECT().Warn("'bundleOutput' has no effect without 'bundleEntry'")

	_, err := loader.LoadFile(filepath.Join(projectRoot, domain.ConfigFileName))
	require.NoError(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	loader, _ := newMapLoader(t, fstest.MapFS{})
	_, err := loader.LoadFile(filepath.Join(projectRoot, domain.ConfigFileName))
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_DiscoversRootFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, domain.ConfigFileName), []byte("destRoot: public\n"), 0o600))
	nested := filepath.Join(root, "src", "scripts", "pages")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	ctrl := gomock.NewController(t)
	loader := config.NewLoader(mocks.NewMockLogger(ctrl))

	discovered, err := loader.DiscoverRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, discovered)

	cfg, err := loader.Load(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "public"), cfg.DestRoot)
	assert.Equal(t, filepath.Join(root, "src"), cfg.SourceRoot)
}

func TestLoad_NotFound(t *testing.T) {
	loader, _ := newMapLoader(t, fstest.MapFS{})
	_, err := loader.Load("/project/src")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "kiln.yaml")
}
