package transform

import (
	"io"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var languageTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// resolveTargets turns entries such as "chrome58" or "es2020" into esbuild settings.
func resolveTargets(targets []string) (api.Target, []api.Engine, error) {
	target := api.DefaultTarget
	engines := make([]api.Engine, 0, len(targets))

	for _, raw := range targets {
		entry := strings.ToLower(strings.TrimSpace(raw))
		if t, ok := languageTargets[entry]; ok {
			target = t
			continue
		}

		split := strings.IndexAny(entry, "0123456789")
		if split <= 0 {
			return 0, nil, zerr.With(domain.ErrTransformFailed, "unknown_target", raw)
		}
		name, ok := engineNames[entry[:split]]
		if !ok {
			return 0, nil, zerr.With(domain.ErrTransformFailed, "unknown_target", raw)
		}
		engines = append(engines, api.Engine{Name: name, Version: entry[split:]})
	}
	return target, engines, nil
}

// legalComments keeps license comments only when the run keeps comments.
func legalComments(opts domain.Options) api.LegalComments {
	if opts.Comments {
		return api.LegalCommentsInline
	}
	return api.LegalCommentsNone
}

// loaderFor picks the esbuild loader for a script extension.
func loaderFor(ext string) api.Loader {
	switch ext {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

// scriptLoaders maps every script extension an entry may import.
func scriptLoaders() map[string]api.Loader {
	return map[string]api.Loader{
		".es6": api.LoaderJS,
		".mjs": api.LoaderJS,
		".jsx": api.LoaderJSX,
		".ts":  api.LoaderTS,
		".tsx": api.LoaderTSX,
	}
}

// reportMessages writes warnings and errors to log and converts the first error into a Go error.
func reportMessages(log io.Writer, errs, warnings []api.Message) error {
	for _, line := range api.FormatMessages(warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}) {
		_, _ = io.WriteString(log, line)
	}
	if len(errs) == 0 {
		return nil
	}
	for _, line := range api.FormatMessages(errs, api.FormatMessagesOptions{Kind: api.ErrorMessage}) {
		_, _ = io.WriteString(log, line)
	}

	first := errs[0]
	err := zerr.Wrap(zerr.New(first.Text), domain.ErrTransformFailed.Error())
	if loc := first.Location; loc != nil {
		err = zerr.With(err, "file", loc.File)
		err = zerr.With(err, "line", loc.Line)
		err = zerr.With(err, "column", loc.Column)
	}
	if len(errs) > 1 {
		err = zerr.With(err, "more_errors", len(errs)-1)
	}
	return err
}
