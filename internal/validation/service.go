package validation

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docgate/internal/catalog"
	"docgate/internal/validation/metrics"
	"docgate/pkg/requestcontext"
)

// Service wraps the pure engine with a catalog source, tracing, and
// metrics. Each call re-reads the snapshot so toggled rules apply on the
// next evaluation without mixing versions inside one.
type Service struct {
	source  catalog.Source
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(source catalog.Source, opts ...ServiceOption) *Service {
	s := &Service{
		source: source,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer("docgate/validation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs the full rulebook against the case's documents and returns
// the verdict. The clock comes from the request context so tests can pin
// date-based rules.
func (s *Service) Evaluate(ctx context.Context, productCode string, inputs []DocumentInput) (CaseVerdict, error) {
	ctx, span := s.tracer.Start(ctx, "validation.Evaluate",
		trace.WithAttributes(
			attribute.String("product_code", productCode),
			attribute.Int("document_count", len(inputs)),
		))
	defer span.End()

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.metrics.RecordEvaluation(err)
		return CaseVerdict{}, err
	}

	verdict, err := EvaluateCase(ctx, snap, productCode, inputs, requestcontext.Now(ctx))
	s.metrics.RecordEvaluation(err)
	if err != nil {
		s.logger.WarnContext(ctx, "evaluation failed",
			"product_code", productCode,
			"error", err,
		)
		return CaseVerdict{}, err
	}

	s.metrics.RecordVerdict(verdict.Valid)
	span.SetAttributes(attribute.Bool("verdict.valid", verdict.Valid))
	s.logger.InfoContext(ctx, "case evaluated",
		"product_code", productCode,
		"valid", verdict.Valid,
		"missing_required_docs", len(verdict.MissingRequiredDocs),
	)
	return verdict, nil
}
