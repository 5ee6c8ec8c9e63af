package renketsu

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/mazrean/renketsu"

// Engine runs the pipeline: extract registrations and dependency edges from
// facts, validate the graph and order the units.
type Engine struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	extractor   *Extractor
	registry    *Registry
	edges       []*DependencyEdge
	warnings    []Warning
	concurrency int
}

type Option func(*Engine)

func WithTieBreaker(policy TieBreaker) Option {
	return func(e *Engine) {
		e.registry.SetTieBreaker(policy)
	}
}

func WithStateFamilies(families StateFamilies) Option {
	return func(e *Engine) {
		e.extractor = NewExtractor(families)
	}
}

// WithConcurrency bounds the number of facts extracted in parallel.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		extractor:   NewExtractor(DefaultStateFamilies()),
		registry:    NewRegistry(FirstRegistered),
		concurrency: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type unitBatch struct {
	registrations []*Registration
	edges         []*DependencyEdge
	warnings      []Warning
}

// Scan replaces the engine state with the registrations and dependency edges
// of facts. Facts are extracted in parallel and merged in input order, so
// the result does not depend on scheduling.
func (e *Engine) Scan(ctx context.Context, facts []*ServiceUnitFact) error {
	ctx, span := e.tracer.Start(ctx, "renketsu.Scan", trace.WithAttributes(attribute.Int("facts", len(facts))))
	defer span.End()

	e.registry.Reset()
	e.edges = nil
	e.warnings = nil

	batches := make([]unitBatch, len(facts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.concurrency)
	for i, fact := range facts {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			regs, regWarnings := e.extractor.Extract(fact)
			edges, edgeWarnings := ExtractDependencies(fact)
			batches[i] = unitBatch{
				registrations: regs,
				edges:         edges,
				warnings:      append(regWarnings, edgeWarnings...),
			}

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("extract facts: %w", err)
	}

	for i, batch := range batches {
		for _, reg := range batch.registrations {
			if err := e.registry.Register(reg); err != nil {
				batch.warnings = append(batch.warnings, newWarning(facts[i], WarnDuplicateKey, reg.ContractName, err))
			}
		}

		e.edges = append(e.edges, batch.edges...)
		e.warnings = append(e.warnings, batch.warnings...)
	}

	for _, w := range e.warnings {
		w.log(e.logger)
	}

	span.SetAttributes(
		attribute.Int("registrations", e.registry.Len()),
		attribute.Int("edges", len(e.edges)),
		attribute.Int("warnings", len(e.warnings)),
	)
	e.logger.Info("Scanned service units",
		"units", len(facts),
		"registrations", e.registry.Len(),
		"edges", len(e.edges),
		"warnings", len(e.warnings),
	)

	return nil
}

// Validate checks the scanned graph.
func (e *Engine) Validate(ctx context.Context) *ValidationReport {
	_, span := e.tracer.Start(ctx, "renketsu.Validate")
	defer span.End()

	report := Validate(e.registry, e.edges)

	span.SetAttributes(
		attribute.Bool("valid", report.IsValid),
		attribute.Int("missing", len(report.MissingImplementations)),
		attribute.Int("cycles", len(report.CircularDependencies)),
	)
	if !report.IsValid {
		span.SetStatus(codes.Error, "invalid dependency graph")
	}

	e.logger.Debug("Validated dependency graph",
		"valid", report.IsValid,
		"missing", report.MissingImplementations,
		"cycles", report.CircularDependencies,
		"optionalMissing", report.OptionalMissing,
	)

	return report
}

// Plan orders the scanned units for construction.
func (e *Engine) Plan(ctx context.Context) ([]*TreeNode, error) {
	_, span := e.tracer.Start(ctx, "renketsu.Plan")
	defer span.End()

	nodes, err := NewOrderer(e.logger).Order(e.registry, e.edges)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("nodes", len(nodes)))

	return nodes, nil
}

// Resolve resolves query against the scanned registry.
func (e *Engine) Resolve(query string) ResolutionResult {
	return e.registry.ResolveResult(query)
}

// Result is the outcome of a full build.
type Result struct {
	Registry *Registry
	Report   *ValidationReport
	Edges    []*DependencyEdge
	Warnings []Warning
	Plan     []*TreeNode
}

// Build scans facts, validates the graph and orders the units. An invalid
// graph fails with an error wrapping ErrInvalidGraph; the returned result
// still carries the report.
func (e *Engine) Build(ctx context.Context, facts []*ServiceUnitFact) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "renketsu.Build")
	defer span.End()

	if err := e.Scan(ctx, facts); err != nil {
		return nil, err
	}

	result := &Result{
		Registry: e.registry,
		Edges:    e.Edges(),
		Warnings: e.Warnings(),
	}

	result.Report = e.Validate(ctx)
	if err := result.Report.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	plan, err := e.Plan(ctx)
	if err != nil {
		return result, fmt.Errorf("order units: %w", err)
	}
	result.Plan = plan

	return result, nil
}

// Registry returns the registry filled by the last scan.
func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) Edges() []*DependencyEdge {
	return append([]*DependencyEdge(nil), e.edges...)
}

func (e *Engine) Warnings() []Warning {
	return append([]Warning(nil), e.warnings...)
}
