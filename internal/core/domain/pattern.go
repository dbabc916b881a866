package domain

import (
	"strings"

	"github.com/gobwas/glob"
	"go.trai.ch/zerr"
)

// Pattern is a compiled glob over slash separated relative paths.
// '*' stops at '/', '**' crosses it, and a leading "**/" also matches at the top level.
type Pattern struct {
	source string
	g      glob.Glob
}

// CompilePattern compiles p.
func CompilePattern(p string) (Pattern, error) {
	expr := p
	if rest, ok := strings.CutPrefix(p, "**/"); ok {
		expr = "{" + rest + "," + p + "}"
	}
	g, err := glob.Compile(expr, '/')
	if err != nil {
		return Pattern{}, zerr.With(zerr.With(ErrInvalidPattern, "pattern", p), "reason", err.Error())
	}
	return Pattern{source: p, g: g}, nil
}

// CompilePatterns compiles every pattern, failing on the first invalid one.
func CompilePatterns(patterns []string) ([]Pattern, error) {
	compiled := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		c, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

// Match reports whether rel matches the pattern.
func (p Pattern) Match(rel string) bool {
	return p.g != nil && p.g.Match(rel)
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.source
}

// MatchAny reports whether rel matches any of patterns.
func MatchAny(patterns []Pattern, rel string) bool {
	for _, p := range patterns {
		if p.Match(rel) {
			return true
		}
	}
	return false
}
