package otel

import (
	"context"
	"testing"

	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/store/memory"
	"github.com/adrianliechti/forge/pkg/store/storetest"

	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func record(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
	})

	return recorder
}

func TestUseGRPC(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL", "http/protobuf")

	require.True(t, useGRPC("TRACES"))
	require.False(t, useGRPC("LOGS"))
}

func TestObservableStore(t *testing.T) {
	recorder := record(t)

	storetest.Run(t, NewStore("memory", memory.New()))

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	var failed bool

	for _, span := range spans {
		if span.Status().Code == codes.Error {
			failed = true
		}
	}

	// conflicts and missing documents are exercised by the suite
	require.True(t, failed)
}

type plannerFunc func(ctx context.Context, req *planner.Request) (*planner.Plan, error)

func (f plannerFunc) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	return f(ctx, req)
}

func TestObservablePlanner(t *testing.T) {
	recorder := record(t)

	p := NewPlanner("test", plannerFunc(func(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
		return nil, planner.ErrPlanningFailed
	}))

	_, err := p.Plan(context.Background(), &planner.Request{DocumentID: "doc"})
	require.ErrorIs(t, err, planner.ErrPlanningFailed)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "plan test", spans[0].Name())
	require.Equal(t, codes.Error, spans[0].Status().Code)
}
