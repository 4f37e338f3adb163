package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/pyclass"
	"pyshape/internal/shared/observability"
)

// Options configures an Analyzer. The zero value uses the joint inclusion rule.
type Options struct {
	Inclusion InclusionMode
	// ExtraMagicMethods extends DefaultMagicMethods.
	ExtraMagicMethods []string
	Logger            *slog.Logger
}

// Analyzer describes classes. It remembers every class it has described:
// a class requested again, in the same or a later batch, yields a stub.
// Independent runs need a fresh Analyzer or a Reset.
type Analyzer struct {
	opts           Options
	baseLogger     *slog.Logger
	logger         *slog.Logger
	magic          map[string]struct{}
	frameworkAttrs map[string]struct{}
	seen           map[*pyclass.Class]struct{}
	session        string
}

// New returns an Analyzer with an empty memo and a fresh session id.
func New(opts Options) *Analyzer {
	if opts.Inclusion == "" {
		opts.Inclusion = InclusionJoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	magic := make(map[string]struct{}, len(DefaultMagicMethods)+len(opts.ExtraMagicMethods))
	for _, name := range append(append([]string(nil), DefaultMagicMethods...), opts.ExtraMagicMethods...) {
		magic[strings.TrimSpace(name)] = struct{}{}
	}
	framework := make(map[string]struct{})
	for _, name := range append(pyclass.ABC.Dir(), pyclass.BaseModel.Dir()...) {
		framework[name] = struct{}{}
	}

	a := &Analyzer{
		opts:           opts,
		baseLogger:     logger,
		magic:          magic,
		frameworkAttrs: framework,
		seen:           make(map[*pyclass.Class]struct{}),
		session:        uuid.NewString(),
	}
	a.logger = logger.With("session", a.session)
	return a
}

// Session identifies the analyzer's memoization scope in logs and traces.
func (a *Analyzer) Session() string {
	return a.session
}

// Reset forgets every described class and starts a new session.
func (a *Analyzer) Reset() {
	a.seen = make(map[*pyclass.Class]struct{})
	a.session = uuid.NewString()
	a.logger = a.baseLogger.With("session", a.session)
}

// Analyze returns one descriptor per class, in input order. Every argument is
// validated before any class is described.
func (a *Analyzer) Analyze(ctx context.Context, classes ...*pyclass.Class) (*Batch, error) {
	for i, cls := range classes {
		if cls == nil {
			return nil, errors.AddContext(errors.New(errors.CodeValidationError, "not a class: nil"), errors.CtxIndex, i)
		}
		if cls.Name == "" {
			return nil, errors.AddContext(errors.New(errors.CodeValidationError, "not a class: missing name"), errors.CtxIndex, i)
		}
	}

	ctx, span := observability.Tracer.Start(ctx, "analyzer.Analyze", trace.WithAttributes(
		attribute.Int("classes", len(classes)),
		attribute.String("session", a.session),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	}()

	batch := &Batch{Classes: make([]*ClassDescriptor, 0, len(classes))}
	for _, cls := range classes {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		batch.Classes = append(batch.Classes, a.analyzeClass(ctx, cls))
	}
	return batch, nil
}

// Serialize renders Analyze's result as two-space indented JSON. Non-ASCII
// text is written verbatim.
func (a *Analyzer) Serialize(ctx context.Context, classes ...*pyclass.Class) (string, error) {
	batch, err := a.Analyze(ctx, classes...)
	if err != nil {
		return "", err
	}
	return Encode(batch)
}

// Encode renders a batch the way Serialize does.
func Encode(batch *Batch) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "encode descriptors")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (a *Analyzer) analyzeClass(ctx context.Context, cls *pyclass.Class) *ClassDescriptor {
	if _, ok := a.seen[cls]; ok {
		observability.ClassesAnalyzedTotal.WithLabelValues("stub").Inc()
		return &ClassDescriptor{Name: cls.Name, Stub: true}
	}
	a.seen[cls] = struct{}{}

	_, span := observability.Tracer.Start(ctx, "analyzer.describeClass", trace.WithAttributes(
		attribute.String("class", cls.FullName()),
	))
	defer span.End()

	d := a.describeClass(cls)
	observability.ClassesAnalyzedTotal.WithLabelValues("full").Inc()
	span.SetAttributes(
		attribute.Int("methods", len(d.Methods)),
		attribute.Int("properties", len(d.Properties)),
	)
	return d
}

func (a *Analyzer) describeClass(cls *pyclass.Class) *ClassDescriptor {
	schema := cls.IsSchemaModel()
	record := cls.IsDataclass() && !schema

	d := &ClassDescriptor{
		Name:          cls.Name,
		Description:   cls.GetDoc(),
		IsAbstract:    cls.IsAbstract() || lo.Contains(cls.Bases, pyclass.ABC),
		IsRecordType:  record,
		IsSchemaModel: schema,
		ParentClasses: lo.FilterMap(cls.Bases, func(b *pyclass.Class, _ int) (string, bool) {
			return b.Name, b != pyclass.Object
		}),
		Methods:        []MethodDescriptor{},
		Properties:     []PropertyDescriptor{},
		Fields:         extractFields(cls),
		ClassVariables: a.classVariables(cls),
	}

	decorators := a.decorators(cls)
	for _, m := range cls.Members() {
		switch kind := classify(m.Attr); kind {
		case KindMethod, KindClassMethod, KindStaticMethod:
			if !a.includeMethod(cls, record, m.Name, m.Attr) {
				continue
			}
			d.Methods = append(d.Methods, a.describeMethod(cls, m.Name, m.Attr, kind, decorators))
		case KindProperty:
			prop := m.Attr.(*pyclass.Property)
			if isFrameworkProperty(cls, m.Name, prop) {
				continue
			}
			d.Properties = append(d.Properties, a.describeProperty(cls, m.Name, prop))
		}
	}
	return d
}

// decorators re-parses the class source. Failure leaves every method with an
// empty decorator list and never affects the rest of the descriptor.
func (a *Analyzer) decorators(cls *pyclass.Class) map[string][]string {
	source, ok := cls.Source()
	if !ok {
		return nil
	}
	decs, err := ResolveDecorators(source)
	if err != nil {
		observability.DecoratorResolutionFailures.Inc()
		a.logger.Debug("decorator resolution failed", "class", cls.FullName(), "error", err)
		return nil
	}
	return decs
}
