package app

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pyshape/internal/analyzer"
	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
	"pyshape/internal/engine/pyclass"
	"pyshape/internal/shared/observability"
	"pyshape/internal/shared/util"
)

var _ ports.AnalysisService = (*App)(nil)

// ResolveClasses looks every name up before anything is analyzed. Names are
// module-qualified (pkg.mod.Outer.Inner) or a qualified name that is unique
// across modules.
func (a *App) ResolveClasses(names []string) ([]*pyclass.Class, error) {
	registry := a.Registry()
	out := make([]*pyclass.Class, 0, len(names))
	for i, name := range names {
		cls, err := registry.Class(name)
		if err != nil {
			return nil, errors.AddContext(errors.AddContext(err, errors.CtxOperation, "resolve_classes"), errors.CtxIndex, i)
		}
		out = append(out, cls)
	}
	return out, nil
}

// NewAnalyzer returns an analyzer configured from the analyzer section.
func (a *App) NewAnalyzer() *analyzer.Analyzer {
	settings, _ := a.settings()
	return analyzer.New(analyzer.Options{
		Inclusion:         analyzer.InclusionMode(settings.Inclusion),
		ExtraMagicMethods: settings.ExtraMagicMethods,
		Logger:            a.logger,
	})
}

// Describe renders the requested classes. Each call uses a fresh analyzer,
// so separate requests never see each other's stubs. Without names the
// configured class list is used, and without that every loaded class.
func (a *App) Describe(ctx context.Context, req ports.DescribeRequest) (ports.DescribeResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Describe", trace.WithAttributes(
		attribute.Int("requested", len(req.Classes)),
	))
	defer span.End()

	_, output := a.settings()
	names := req.Classes
	if len(names) == 0 {
		names = output.Classes
	}
	if len(names) == 0 {
		names = a.Registry().Names()
	}

	classes, err := a.ResolveClasses(names)
	if err != nil {
		return ports.DescribeResult{}, err
	}
	doc, err := a.NewAnalyzer().Serialize(ctx, classes...)
	if err != nil {
		return ports.DescribeResult{}, err
	}

	result := ports.DescribeResult{JSON: doc, Classes: len(classes)}
	if req.Write && output.Path != "" {
		if err := a.writeOutput(output.Path, doc); err != nil {
			return ports.DescribeResult{}, err
		}
		result.Path = output.Path
		result.Written = true
	}
	return result, nil
}

// WriteOutput writes doc to the configured output path, creating parent
// directories.
func (a *App) WriteOutput(doc string) error {
	_, output := a.settings()
	return a.writeOutput(output.Path, doc)
}

func (a *App) writeOutput(path, doc string) error {
	if path == "" {
		return errors.New(errors.CodeValidationError, "output path is not configured")
	}
	if err := util.WriteDocument(path, doc); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "write output"), errors.CtxPath, path)
	}
	a.logger.Info("descriptors written", "path", path)
	return nil
}

// ListClasses summarizes every loaded class, ordered by module-qualified name.
func (a *App) ListClasses(ctx context.Context) ([]ports.ClassSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	classes := a.Registry().Classes()
	out := lo.Map(classes, func(cls *pyclass.Class, _ int) ports.ClassSummary {
		return ports.ClassSummary{
			Name:   cls.QualName,
			Module: cls.Module,
			File:   cls.File,
			Line:   cls.Line,
			Bases: lo.FilterMap(cls.Bases, func(b *pyclass.Class, _ int) (string, bool) {
				return b.Name, b != pyclass.Object
			}),
			Abstract: cls.IsAbstract(),
			Kind:     classKind(cls),
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Module+"."+out[i].Name < out[j].Module+"."+out[j].Name
	})
	return out, nil
}

func classKind(cls *pyclass.Class) string {
	switch {
	case cls.IsSchemaModel():
		return "model"
	case cls.IsDataclass():
		return "dataclass"
	case cls.IsABCMeta():
		return "abc"
	}
	return "class"
}
