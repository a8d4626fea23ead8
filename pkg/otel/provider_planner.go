package otel

import (
	"context"
	"errors"
	"time"

	"github.com/adrianliechti/forge/pkg/planner"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

type Planner interface {
	Observable
	planner.Provider
}

type observablePlanner struct {
	name string

	planner planner.Provider

	durationMetric metric.Float64Histogram
	failureMetric  metric.Int64Counter
}

func NewPlanner(name string, p planner.Provider) Planner {
	meter := otel.Meter(instrumentationName)

	durationMetric, _ := meter.Float64Histogram("forge.plan.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of plan generation"),
	)

	failureMetric, _ := meter.Int64Counter("forge.plan.failures",
		metric.WithDescription("Plans rejected after all attempts"),
	)

	return &observablePlanner{
		name: name,

		planner: p,

		durationMetric: durationMetric,
		failureMetric:  failureMetric,
	}
}

func (p *observablePlanner) otelSetup() {
}

func (p *observablePlanner) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "plan "+p.name)
	defer span.End()

	span.SetAttributes(
		String("forge.doc_id", req.DocumentID),
		attribute.Int("forge.page_index", req.PageIndex),
		Strings("forge.selection", req.SelectedIDs()),
	)

	timestamp := time.Now()

	result, err := p.planner.Plan(ctx, req)

	attrs := KeyValues([]KeyValue{String("forge.planner", p.name)}, EndUserAttrs(ctx))

	p.durationMetric.Record(ctx, time.Since(timestamp).Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, planner.ErrPlanningFailed) {
			p.failureMetric.Add(ctx, 1, metric.WithAttributes(attrs...))
		}

		return nil, err
	}

	span.SetAttributes(attribute.Int("forge.ops", len(result.Ops)))

	return result, nil
}
