package recommend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pantrychef"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Recommender is the surface shared by Service and its instrumented wrapper.
type Recommender interface {
	Recommend(ctx context.Context, ingredients []pantrychef.IngredientSnapshot, history []pantrychef.HistoryEntry) (Result, error)
}

// InstrumentedService decorates a Recommender with observability metrics
// and tracing.
type InstrumentedService struct {
	inner  Recommender
	tracer trace.Tracer
	meter  metric.Meter
}

// NewInstrumentedService initializes a new instrumented recommender.
func NewInstrumentedService(inner Recommender, tracer trace.Tracer, meter metric.Meter) *InstrumentedService {
	return &InstrumentedService{
		inner:  inner,
		tracer: tracer,
		meter:  meter,
	}
}

// Recommend executes the recommendation with full instrumentation.
func (s *InstrumentedService) Recommend(ctx context.Context, ingredients []pantrychef.IngredientSnapshot, history []pantrychef.HistoryEntry) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "InstrumentedService.Recommend")
	defer span.End()

	requestsCounter, _ := s.meter.Int64Counter("recommendation_requests_total",
		metric.WithDescription("Total number of recommendation requests started"))
	completedCounter, _ := s.meter.Int64Counter("recommendation_requests_completed_total",
		metric.WithDescription("Total number of recommendation requests completed successfully"))
	failedCounter, _ := s.meter.Int64Counter("recommendation_requests_failed_total",
		metric.WithDescription("Total number of recommendation requests that failed"))
	cacheHitsCounter, _ := s.meter.Int64Counter("recommendation_cache_hits_total",
		metric.WithDescription("Total number of requests answered from cache"))
	droppedCounter, _ := s.meter.Int64Counter("recipes_dropped_total",
		metric.WithDescription("Total number of recipes dropped during validation"))

	ingredientsGauge, _ := s.meter.Int64Gauge("snapshot_ingredients_count",
		metric.WithDescription("Number of ingredients in the latest request snapshot"))
	recipesGauge, _ := s.meter.Int64Gauge("recipes_returned_count",
		metric.WithDescription("Number of recipes returned by the latest request"))

	durationHist, _ := s.meter.Float64Histogram("recommendation_duration_seconds",
		metric.WithDescription("Total duration of recommendation requests in seconds"))

	requestsCounter.Add(ctx, 1)
	ingredientsGauge.Record(ctx, int64(len(ingredients)))

	span.AddEvent("Recommendation started", trace.WithAttributes(
		attribute.Int("ingredients_count", len(ingredients)),
		attribute.Int("history_count", len(history)),
	))

	start := time.Now()
	res, err := s.inner.Recommend(ctx, ingredients, history)
	duration := time.Since(start)
	durationHist.Record(ctx, duration.Seconds())

	if err != nil {
		failedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error.class", classifyError(err)),
		))
		span.SetStatus(codes.Error, "Recommendation failed")
		span.RecordError(err)
		slog.Error("RECOMMENDER: Instrumented run failed",
			"error", err,
			"error_class", classifyError(err),
			"duration_ms", duration.Milliseconds(),
		)
		return res, err
	}

	completedCounter.Add(ctx, 1)
	if res.CacheHit {
		cacheHitsCounter.Add(ctx, 1)
	}
	if len(res.Dropped) > 0 {
		droppedCounter.Add(ctx, int64(len(res.Dropped)))
	}
	recipesGauge.Record(ctx, int64(len(res.Recipes)))

	span.AddEvent("Recommendation complete", trace.WithAttributes(
		attribute.Bool("cache_hit", res.CacheHit),
		attribute.Int("recipes_returned", len(res.Recipes)),
		attribute.Int("recipes_dropped", len(res.Dropped)),
		attribute.Float64("duration_seconds", duration.Seconds()),
	))

	return res, nil
}

// classifyError maps a pipeline failure onto its taxonomy label for the
// failure counter attribute.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "unknown"
}
