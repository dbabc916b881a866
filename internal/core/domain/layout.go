package domain

import "path/filepath"

const (
	// KilnDirName is the name of the internal state directory, next to the config file.
	KilnDirName = ".kiln"

	// StateFileName is the name of the build state database.
	StateFileName = "state.db"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "kiln.yaml"

	// LibDirName is the sub-path of the destination root that receives server-side modules.
	LibDirName = "lib"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// Defaults applied to a configuration file that leaves an option out.
const (
	DefaultSourceRoot         = "src"
	DefaultDestRoot           = "dist"
	DefaultNodeModulesDir     = "node_modules"
	DefaultBundleAssetPattern = "**.asset.*"
	DefaultUpstreamOrigin     = "http://localhost:8080"
	DefaultServerPort         = 18080
	DefaultAssetsPrefix       = "/dist"
	DefaultSassBinary         = "sass"
)

// DefaultTranspileExtensions are the source extensions compiled to plain JavaScript.
func DefaultTranspileExtensions() []string {
	return []string{".es6", ".jsx", ".ts", ".tsx", ".mjs"}
}

// DefaultStaticExtensions are the extensions copied verbatim.
func DefaultStaticExtensions() []string {
	return []string{
		".html", ".htm", ".xhtml", ".ftl", ".mustache", ".hbs", ".vm",
		".js", ".css", ".map", ".json", ".xml", ".txt", ".properties", ".yml", ".yaml",
		".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif", ".ico", ".bmp",
		".woff", ".woff2", ".ttf", ".otf", ".eot",
		".mp4", ".webm", ".mp3", ".ogg", ".wav", ".pdf",
	}
}

// DefaultTargets is the browser list used for vendor prefixes and syntax lowering.
func DefaultTargets() []string {
	return []string{"chrome58", "edge16", "firefox57", "safari11"}
}

// DefaultStyleExtensions are the stylesheet sources handled by the style compiler.
func DefaultStyleExtensions() []string {
	return []string{".scss", ".sass"}
}

// DefaultIgnores are always excluded from discovery, relative to the source root.
// Lock and manifest files would otherwise be copied into the destination tree.
func DefaultIgnores() []string {
	return []string{
		"**/.DS_Store",
		"**/package.json",
		"**/package-lock.json",
		"**/npm-shrinkwrap.json",
		"**/yarn.lock",
		"**/pnpm-lock.yaml",
		"**/bun.lockb",
		"**/" + ConfigFileName,
	}
}

// SkippedDirs are directories never descended into during discovery or watching.
func SkippedDirs() []string {
	return []string{".git", ".jj", ".hg", ".svn", "node_modules", KilnDirName}
}

// DefaultKilnPath returns the state directory for the project rooted at root.
func DefaultKilnPath(root string) string {
	return filepath.Join(root, KilnDirName)
}

// DefaultStatePath returns the build state database path for the project rooted at root.
// It joins root, .kiln and state.db.
func DefaultStatePath(root string) string {
	return filepath.Join(root, KilnDirName, StateFileName)
}
