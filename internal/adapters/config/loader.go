// Package config provides the configuration loader for kiln.
package config

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const maxPort = 65535

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem
}

// NewLoader creates a new Loader reading from the OS filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

// Load finds kiln.yaml in cwd or one of its parents and loads it.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	root, err := l.DiscoverRoot(cwd)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(filepath.Join(root, domain.ConfigFileName))
}

// DiscoverRoot walks up from cwd to the first directory containing kiln.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
	}

	for {
		if info, statErr := l.FS.Stat(filepath.Join(dir, domain.ConfigFileName)); statErr == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
		}
		dir = parent
	}
}

// LoadFile reads, defaults and validates the configuration at configPath.
// Relative paths in the file resolve against the file's directory.
func (l *Loader) LoadFile(configPath string) (*domain.Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, zerr.With(domain.ErrConfigReadFailed, "path", configPath)
	}

	var file Kilnfile
	if err := readAndUnmarshalYAML(l.FS, absPath, &file); err != nil {
		return nil, err
	}

	cfg, err := resolve(filepath.Dir(absPath), &file)
	if err != nil {
		return nil, zerr.With(err, "config", absPath)
	}

	if err := l.validateRoots(cfg); err != nil {
		return nil, zerr.With(err, "config", absPath)
	}

	if file.StyleOutput != "" && file.StyleEntry == "" {
		l.Logger.Warn("'styleOutput' has no effect without 'styleEntry'")
	}
	if file.BundleOutput != "" && file.BundleEntry == "" {
		l.Logger.Warn("'bundleOutput' has no effect without 'bundleEntry'")
	}

	return cfg, nil
}

// resolve applies defaults, makes paths absolute and validates every option that does not
// need the filesystem.
func resolve(root string, file *Kilnfile) (*domain.Config, error) {
	cfg := &domain.Config{
		Root:              root,
		SourceRoot:        resolvePath(root, file.SourceRoot, domain.DefaultSourceRoot),
		DestRoot:          resolvePath(root, file.DestRoot, domain.DefaultDestRoot),
		NodeModulesDir:    resolvePath(root, file.NodeModulesDir, domain.DefaultNodeModulesDir),
		StyleEntry:        file.StyleEntry,
		BundleEntry:       file.BundleEntry,
		AllowUnclassified: file.AllowUnclassified,
		ServerPort:        domain.DefaultServerPort,
		LiveReload:        true,
		SourceMaps:        file.SourceMaps,
		Targets:           orDefault(file.Targets, domain.DefaultTargets()),
		SassBinary:        cmpOr(file.SassBinary, domain.DefaultSassBinary),
	}

	var err error
	if cfg.StyleOutput, err = cleanOutput("styleOutput", file.StyleOutput); err != nil {
		return nil, err
	}
	if cfg.BundleOutput, err = cleanOutput("bundleOutput", file.BundleOutput); err != nil {
		return nil, err
	}

	cfg.BundleAssetPattern = domain.DefaultBundleAssetPattern
	if file.BundleAssetPattern != nil {
		cfg.BundleAssetPattern = *file.BundleAssetPattern
	}

	patterns := []string{cfg.StyleEntry, cfg.BundleEntry, cfg.BundleAssetPattern}
	cfg.Ignore = append(slices.Clone(file.Ignore), domain.DefaultIgnores()...)
	for _, p := range append(patterns, cfg.Ignore...) {
		if p == "" {
			continue
		}
		if _, err := domain.CompilePattern(p); err != nil {
			return nil, err
		}
	}

	cfg.StyleExtensions = normalizeExtensions(orDefault(file.StyleExtensions, domain.DefaultStyleExtensions()))
	cfg.TranspileExtensions = normalizeExtensions(orDefault(file.TranspileExtensions, domain.DefaultTranspileExtensions()))
	cfg.StaticExtensions = normalizeExtensions(orDefault(file.StaticExtensions, domain.DefaultStaticExtensions()))
	if err := checkExtensionOverlap(cfg); err != nil {
		return nil, err
	}

	if cfg.ServerSideModules, err = validateModules(file.ServerSideModules); err != nil {
		return nil, err
	}

	if cfg.UpstreamOrigin, err = parseUpstream(cmpOr(file.UpstreamOrigin, domain.DefaultUpstreamOrigin)); err != nil {
		return nil, err
	}

	if file.ServerPort != nil {
		cfg.ServerPort = *file.ServerPort
	}
	if cfg.ServerPort < 1 || cfg.ServerPort > maxPort {
		return nil, zerr.With(domain.ErrInvalidPort, "port", cfg.ServerPort)
	}

	if cfg.AssetsPrefix, err = cleanAssetsPrefix(cmpOr(file.AssetsPrefix, domain.DefaultAssetsPrefix)); err != nil {
		return nil, err
	}

	if file.LiveReload != nil {
		cfg.LiveReload = *file.LiveReload
	}

	return cfg, nil
}

func (l *Loader) validateRoots(cfg *domain.Config) error {
	info, err := l.FS.Stat(cfg.SourceRoot)
	if err != nil || !info.IsDir() {
		return zerr.With(domain.ErrSourceRootMissing, "source_root", cfg.SourceRoot)
	}

	if cfg.DestRoot == cfg.SourceRoot || isWithin(cfg.DestRoot, cfg.SourceRoot) {
		err := zerr.With(domain.ErrDestinationOverlapsSource, "source_root", cfg.SourceRoot)
		return zerr.With(err, "dest_root", cfg.DestRoot)
	}
	return nil
}

// isWithin reports whether child is strictly inside parent.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func resolvePath(root, configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Clean(filepath.Join(root, configured))
}

// cleanOutput normalizes a destination override and rejects paths escaping the destination root.
func cleanOutput(option, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	cleaned := path.Clean(filepath.ToSlash(p))
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		err := zerr.With(domain.ErrPathOutsideRoot, "option", option)
		return "", zerr.With(err, "path", p)
	}
	return cleaned, nil
}

func normalizeExtensions(exts []string) []string {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	slices.Sort(normalized)
	return slices.Compact(normalized)
}

func checkExtensionOverlap(cfg *domain.Config) error {
	owners := make(map[string]string)
	groups := []struct {
		option string
		exts   []string
	}{
		{"styleExtensions", cfg.StyleExtensions},
		{"transpileExtensions", cfg.TranspileExtensions},
		{"staticExtensions", cfg.StaticExtensions},
	}

	for _, group := range groups {
		for _, ext := range group.exts {
			if first, ok := owners[ext]; ok {
				err := zerr.With(domain.ErrOverlappingExtensions, "extension", ext)
				err = zerr.With(err, "first", first)
				return zerr.With(err, "second", group.option)
			}
			owners[ext] = group.option
		}
	}
	return nil
}

func validateModules(modules []string) ([]string, error) {
	valid := make([]string, 0, len(modules))
	for _, m := range modules {
		name := strings.TrimSpace(m)
		if !validModuleName(name) {
			return nil, zerr.With(domain.ErrInvalidModuleName, "module", m)
		}
		valid = append(valid, name)
	}
	slices.Sort(valid)
	return slices.Compact(valid), nil
}

// validModuleName accepts "name" and "@scope/name".
func validModuleName(name string) bool {
	if name == "" || strings.ContainsAny(name, `\`) || path.IsAbs(name) {
		return false
	}
	parts := strings.Split(name, "/")
	switch {
	case len(parts) == 1:
	case len(parts) == 2 && strings.HasPrefix(parts[0], "@"):
	default:
		return false
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." || part == "@" {
			return false
		}
	}
	return true
}

func parseUpstream(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, zerr.With(domain.ErrInvalidUpstream, "upstream", raw)
	}
	return u, nil
}

func cleanAssetsPrefix(prefix string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(prefix))
	if !strings.HasPrefix(prefix, "/") || cleaned == "/" {
		return "", zerr.With(domain.ErrInvalidAssetsPrefix, "assets_prefix", prefix)
	}
	return cleaned, nil
}

func orDefault(values, fallback []string) []string {
	if values == nil {
		return fallback
	}
	return slices.Clone(values)
}

func cmpOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// readAndUnmarshalYAML reads a YAML file and decodes it into target, rejecting unknown keys.
func readAndUnmarshalYAML[T any](fsys FileSystem, configPath string, target *T) error {
	data, readErr := fsys.ReadFile(configPath)
	if readErr != nil {
		err := zerr.With(domain.ErrConfigReadFailed, "path", configPath)
		return zerr.With(err, "reason", readErr.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if parseErr := dec.Decode(target); parseErr != nil && !errors.Is(parseErr, io.EOF) {
		err := zerr.With(domain.ErrConfigParseFailed, "path", configPath)
		return zerr.With(err, "reason", parseErr.Error())
	}
	return nil
}
