package fs

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ModuleResolver = (*ModuleResolver)(nil)

const manifestName = "package.json"

// ModuleResolver finds the runtime file of an installed npm package.
type ModuleResolver struct {
	walker *Walker
}

// NewModuleResolver creates a new ModuleResolver.
func NewModuleResolver(walker *Walker) *ModuleResolver {
	return &ModuleResolver{walker: walker}
}

// Resolve reads the module's package.json and returns its "browser" file, falling back to "main",
// then index.js, then the first JavaScript file in the package.
func (r *ModuleResolver) Resolve(nodeModulesDir, module string) (string, error) {
	moduleDir := filepath.Join(nodeModulesDir, filepath.FromSlash(module))
	info, err := os.Stat(moduleDir)
	if err != nil || !info.IsDir() {
		err := zerr.With(domain.ErrModuleNotInstalled, "module", module)
		return "", zerr.With(err, "node_modules", nodeModulesDir)
	}

	manifest, err := os.ReadFile(filepath.Join(moduleDir, manifestName)) //nolint:gosec // inside node_modules
	if err == nil && gjson.ValidBytes(manifest) {
		for _, field := range []string{"browser", "main"} {
			value := gjson.GetBytes(manifest, field)
			if value.Type != gjson.String || value.Str == "" {
				continue
			}
			if rel, ok := r.candidate(moduleDir, value.Str); ok {
				return path.Join(module, rel), nil
			}
		}
	}

	if rel, ok := r.candidate(moduleDir, "index.js"); ok {
		return path.Join(module, rel), nil
	}

	for file := range r.walker.WalkFiles(moduleDir) {
		if strings.EqualFold(filepath.Ext(file), ".js") {
			rel, relErr := filepath.Rel(moduleDir, file)
			if relErr == nil {
				return path.Join(module, filepath.ToSlash(rel)), nil
			}
		}
	}

	return "", zerr.With(domain.ErrModuleEntryMissing, "module", module)
}

// candidate resolves a manifest path the way Node does for plain files: as written, with a
// .js suffix, or as a directory holding index.js.
func (r *ModuleResolver) candidate(moduleDir, entry string) (string, bool) {
	cleaned := path.Clean(strings.TrimPrefix(filepath.ToSlash(entry), "./"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}

	for _, rel := range []string{cleaned, cleaned + ".js", path.Join(cleaned, "index.js")} {
		info, err := os.Stat(filepath.Join(moduleDir, filepath.FromSlash(rel)))
		if err == nil && info.Mode().IsRegular() {
			return rel, true
		}
	}
	return "", false
}
