// Package planner turns a configuration and a source tree into an immutable build plan.
package planner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Planner discovers, classifies and registers every source of a project.
type Planner struct {
	discoverer ports.Discoverer
	resolver   ports.ModuleResolver
	logger     ports.Logger
}

// New creates a planner.
func New(discoverer ports.Discoverer, resolver ports.ModuleResolver, logger ports.Logger) *Planner {
	return &Planner{discoverer: discoverer, resolver: resolver, logger: logger}
}

// Plan builds the plan for cfg. Every configuration error found is returned, joined, and no
// plan is produced when there is at least one.
func (p *Planner) Plan(ctx context.Context, cfg *domain.Config) (*domain.Plan, error) {
	sources, err := p.discoverer.Discover(ctx, cfg.SourceRoot, ignoresFor(cfg))
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(cfg, sources)
	if err != nil {
		return nil, err
	}

	builder := domain.NewPlanBuilder(cfg.Paths(), cfg.Toolchain())

	var errs []error
	var satellites []Classification
	var unclassified []string

	for _, src := range sources {
		c, ok, err := classifier.Classify(src)
		switch {
		case err != nil:
			errs = append(errs, err)
		case !ok:
			unclassified = append(unclassified, src.String())
			builder.MarkUnclassified(src)
		case c.Satellite:
			satellites = append(satellites, c)
		default:
			task := domain.BuildTask{Destination: c.Destination, Source: c.Source, Action: c.Action}
			if err := builder.Register(task); err != nil {
				errs = append(errs, err)
			}
		}
	}

	// Aggregate tasks are registered above, so satellites can now be bound to them.
	for _, c := range satellites {
		if err := builder.RegisterWatchOnly(c.Source, c.Destination); err != nil {
			errs = append(errs, err)
		}
	}

	for _, module := range cfg.ServerSideModules {
		task, err := p.moduleTask(cfg, module)
		if err == nil {
			err = builder.Register(task)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(unclassified) > 0 {
		if !cfg.AllowUnclassified {
			errs = append(errs, zerr.With(domain.ErrUnclassifiedSources, "sources", strings.Join(unclassified, ", ")))
		} else {
			p.logger.Warn(fmt.Sprintf("%d source file(s) match no rule and are not built: %s",
				len(unclassified), strings.Join(unclassified, ", ")))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return builder.Build(), nil
}

func (p *Planner) moduleTask(cfg *domain.Config, module string) (domain.BuildTask, error) {
	resolved, err := p.resolver.Resolve(cfg.NodeModulesDir, module)
	if err != nil {
		return domain.BuildTask{}, err
	}
	return domain.BuildTask{
		Destination: domain.NewInternedString(moduleDestination(resolved)),
		Source:      domain.NewSourceFile(resolved),
		Action:      domain.ActionPassThrough,
		Module:      module,
	}, nil
}

// ignoresFor returns the configured ignore globs plus the destination root when it lies inside
// the source root, so build output is never discovered as a source.
func ignoresFor(cfg *domain.Config) []string {
	ignore := append([]string(nil), cfg.Ignore...)
	rel, err := filepath.Rel(cfg.SourceRoot, cfg.DestRoot)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ignore
	}
	rel = filepath.ToSlash(rel)
	return append(ignore, rel, rel+"/**")
}
