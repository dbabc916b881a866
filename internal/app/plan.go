package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// PlanOptions configuration for the Plan method.
type PlanOptions struct {
	ConfigPath string
	JSON       bool
}

// Plan prints the classified plan without running any task.
func (a *App) Plan(ctx context.Context, opts PlanOptions) error {
	_, plan, err := a.load(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	if opts.JSON {
		return writePlanJSON(a.stdout, plan)
	}
	return writePlanText(a.stdout, plan)
}

type planView struct {
	SourceRoot   string            `json:"sourceRoot"`
	DestRoot     string            `json:"destRoot"`
	Tasks        []taskView        `json:"tasks"`
	Watch        map[string]string `json:"watch"`
	Unclassified []string          `json:"unclassified,omitempty"`
}

type taskView struct {
	Destination string        `json:"destination"`
	Source      string        `json:"source"`
	Action      domain.Action `json:"action"`
	Module      string        `json:"module,omitempty"`
	Satellites  []string      `json:"satellites,omitempty"`
}

func writePlanJSON(w io.Writer, plan *domain.Plan) error {
	paths := plan.Paths()
	view := planView{
		SourceRoot: paths.SourceRoot,
		DestRoot:   paths.DestRoot,
		Tasks:      make([]taskView, 0, plan.TaskCount()),
		Watch:      make(map[string]string),
	}

	for task := range plan.Tasks() {
		tv := taskView{
			Destination: task.Destination.String(),
			Source:      task.Source.String(),
			Action:      task.Action,
			Module:      task.Module,
		}
		for _, s := range task.Satellites {
			tv.Satellites = append(tv.Satellites, s.String())
		}
		view.Tasks = append(view.Tasks, tv)
	}
	for src, dest := range plan.WatchMap() {
		view.Watch[src.String()] = dest.String()
	}
	for _, src := range plan.Unclassified() {
		view.Unclassified = append(view.Unclassified, src.String())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return zerr.Wrap(err, "failed to encode plan")
	}
	return nil
}

func writePlanText(w io.Writer, plan *domain.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "DESTINATION\tACTION\tSOURCE")
	for task := range plan.Tasks() {
		source := task.Source.String()
		if task.Module != "" {
			source += " (" + task.Module + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", task.Destination, task.Action, source)
		for _, s := range task.Satellites {
			_, _ = fmt.Fprintf(tw, "\t\t+ %s\n", s)
		}
	}
	if err := tw.Flush(); err != nil {
		return zerr.Wrap(err, "failed to write plan")
	}

	_, _ = fmt.Fprintf(w, "\n%d task(s), %d watched source(s)\n", plan.TaskCount(), len(plan.WatchMap()))

	if unclassified := plan.Unclassified(); len(unclassified) > 0 {
		_, _ = fmt.Fprintln(w, "\nNot built (no matching rule):")
		for _, src := range unclassified {
			_, _ = fmt.Fprintf(w, "  %s\n", src)
		}
	}
	return nil
}
