package domain

import (
	"path"
	"path/filepath"
	"strings"
)

// SourceFile is a discovered file, relative to the source root and slash separated.
// It is comparable and safe to use as a map key.
type SourceFile struct {
	path InternedString
}

// NewSourceFile normalizes p to a clean, slash separated relative path.
func NewSourceFile(p string) SourceFile {
	p = path.Clean(filepath.ToSlash(p))
	p = strings.TrimPrefix(p, "./")
	return SourceFile{path: NewInternedString(p)}
}

// NewSourceFiles converts a slice of relative paths.
func NewSourceFiles(paths []string) []SourceFile {
	res := make([]SourceFile, len(paths))
	for i, p := range paths {
		res[i] = NewSourceFile(p)
	}
	return res
}

// String returns the relative path.
func (s SourceFile) String() string {
	return s.path.String()
}

// IsZero reports whether s was never assigned.
func (s SourceFile) IsZero() bool {
	return s == SourceFile{}
}

// Ext returns the lower-cased extension including the dot.
func (s SourceFile) Ext() string {
	return strings.ToLower(path.Ext(s.String()))
}

// Base returns the last element of the path.
func (s SourceFile) Base() string {
	return path.Base(s.String())
}

// WithExt returns the path with its extension replaced by ext.
func (s SourceFile) WithExt(ext string) string {
	p := s.String()
	return strings.TrimSuffix(p, path.Ext(p)) + ext
}

// MarshalText implements encoding.TextMarshaler.
func (s SourceFile) MarshalText() ([]byte, error) {
	return s.path.MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SourceFile) UnmarshalText(text []byte) error {
	*s = NewSourceFile(string(text))
	return nil
}
