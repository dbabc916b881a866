package planner

import (
	"path"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Classification is the outcome of the first rule matching a source.
type Classification struct {
	Source domain.SourceFile
	Action domain.Action
	// Destination is the file the source's own task writes, or for a satellite the
	// destination of the aggregate task it is bound to.
	Destination domain.InternedString
	// Satellite is set for sources consumed by an aggregate task.
	Satellite bool
	// Rule names the rule that matched.
	Rule string
}

// rule is one row of the classification table.
type rule struct {
	name      string
	action    domain.Action
	satellite bool
	match     func(domain.SourceFile) bool
	dest      func(domain.SourceFile) string
}

// Classifier assigns each source an action with an ordered rule table. The first matching rule wins.
type Classifier struct {
	rules       []rule
	styleEntry  domain.SourceFile
	bundleEntry domain.SourceFile
}

// NewClassifier resolves the entry globs of cfg against sources and builds the rule table.
// An entry glob must match exactly one source.
func NewClassifier(cfg *domain.Config, sources []domain.SourceFile) (*Classifier, error) {
	styleEntry, err := resolveEntry("styleEntry", cfg.StyleEntry, sources)
	if err != nil {
		return nil, err
	}
	bundleEntry, err := resolveEntry("bundleEntry", cfg.BundleEntry, sources)
	if err != nil {
		return nil, err
	}

	var assets domain.Pattern
	if cfg.BundleAssetPattern != "" {
		if assets, err = domain.CompilePattern(cfg.BundleAssetPattern); err != nil {
			return nil, err
		}
	}

	c := &Classifier{styleEntry: styleEntry, bundleEntry: bundleEntry}
	styleDest := entryDestination(styleEntry, cfg.StyleOutput, ".css")
	bundleDest := entryDestination(bundleEntry, cfg.BundleOutput, ".js")

	c.rules = []rule{
		{
			name:   "style entry",
			action: domain.ActionCompileStyle,
			match:  func(s domain.SourceFile) bool { return !styleEntry.IsZero() && s == styleEntry },
			dest:   func(domain.SourceFile) string { return styleDest },
		},
		{
			name:      "stylesheet",
			action:    domain.ActionPassThrough,
			satellite: true,
			match:     hasExtension(cfg.StyleExtensions),
			dest:      func(domain.SourceFile) string { return styleDest },
		},
		{
			name:   "bundle entry",
			action: domain.ActionBundle,
			match:  func(s domain.SourceFile) bool { return !bundleEntry.IsZero() && s == bundleEntry },
			dest:   func(domain.SourceFile) string { return bundleDest },
		},
		{
			name:      "bundle asset",
			action:    domain.ActionPassThrough,
			satellite: true,
			match:     func(s domain.SourceFile) bool { return assets.Match(s.String()) },
			dest:      func(domain.SourceFile) string { return bundleDest },
		},
		{
			name:   "transpile",
			action: domain.ActionTranspile,
			match:  hasExtension(cfg.TranspileExtensions),
			dest:   func(s domain.SourceFile) string { return s.WithExt(".js") },
		},
		{
			name:   "static",
			action: domain.ActionCopy,
			match:  hasExtension(cfg.StaticExtensions),
			dest:   func(s domain.SourceFile) string { return s.String() },
		},
	}

	return c, nil
}

// Classify returns the classification of src, or false when no rule matches.
// A satellite whose aggregate entry is not configured is a configuration error.
func (c *Classifier) Classify(src domain.SourceFile) (Classification, bool, error) {
	for _, r := range c.rules {
		if !r.match(src) {
			continue
		}
		dest := r.dest(src)
		if r.satellite && dest == "" {
			err := zerr.With(domain.ErrSatelliteWithoutEntry, "source", src.String())
			return Classification{}, false, zerr.With(err, "rule", r.name)
		}
		return Classification{
			Source:      src,
			Action:      r.action,
			Destination: domain.NewInternedString(dest),
			Satellite:   r.satellite,
			Rule:        r.name,
		}, true, nil
	}
	return Classification{}, false, nil
}

// StyleEntry returns the resolved style entry, or the zero SourceFile when none is configured.
func (c *Classifier) StyleEntry() domain.SourceFile {
	return c.styleEntry
}

// BundleEntry returns the resolved bundle entry, or the zero SourceFile when none is configured.
func (c *Classifier) BundleEntry() domain.SourceFile {
	return c.bundleEntry
}

func resolveEntry(option, pattern string, sources []domain.SourceFile) (domain.SourceFile, error) {
	if pattern == "" {
		return domain.SourceFile{}, nil
	}

	p, err := domain.CompilePattern(pattern)
	if err != nil {
		return domain.SourceFile{}, err
	}

	var matches []string
	var entry domain.SourceFile
	for _, s := range sources {
		if p.Match(s.String()) {
			matches = append(matches, s.String())
			entry = s
		}
	}

	switch len(matches) {
	case 1:
		return entry, nil
	case 0:
		err := zerr.With(domain.ErrEntryNotFound, "option", option)
		return domain.SourceFile{}, zerr.With(err, "pattern", pattern)
	default:
		err := zerr.With(domain.ErrAmbiguousEntry, "option", option)
		err = zerr.With(err, "pattern", pattern)
		return domain.SourceFile{}, zerr.With(err, "matches", strings.Join(matches, ", "))
	}
}

// entryDestination places an entry's output next to where the entry sits in the source tree,
// unless the configured output path overrides it.
func entryDestination(entry domain.SourceFile, override, ext string) string {
	switch {
	case entry.IsZero():
		return ""
	case override != "":
		return override
	default:
		return entry.WithExt(ext)
	}
}

func hasExtension(exts []string) func(domain.SourceFile) bool {
	return func(s domain.SourceFile) bool {
		return slices.Contains(exts, s.Ext())
	}
}

// moduleDestination places a server-side module file under the lib directory of the destination root.
func moduleDestination(resolved string) string {
	return path.Join(domain.LibDirName, resolved)
}
