package otel

import (
	"context"
	"errors"
	"os"

	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.38.0"
)

const instrumentationName = "github.com/adrianliechti/forge"

var (
	EnableDebug     = false
	EnableTelemetry = false
)

func init() {
	EnableDebug = os.Getenv("DEBUG") != ""
	EnableTelemetry = os.Getenv("TELEMETRY") != ""
}

type Observable interface {
	otelSetup()
}

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(ctx context.Context) error

// Setup installs OTLP tracer, meter and logger providers when telemetry is
// enabled. Exporters are configured through the standard OTEL_* variables.
func Setup(ctx context.Context, service, version string) (ShutdownFunc, error) {
	if !EnableTelemetry {
		return func(context.Context) error { return nil }, nil
	}

	resource, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithTelemetrySDK(),
		sdkresource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		),
	)

	if err != nil {
		return nil, err
	}

	var shutdowns []ShutdownFunc

	for _, setup := range []func(context.Context, *sdkresource.Resource) (ShutdownFunc, error){
		setupTracer,
		setupMeter,
		setupLogger,
	} {
		shutdown, err := setup(ctx, resource)

		if err != nil {
			for _, s := range shutdowns {
				s(ctx)
			}

			return nil, err
		}

		shutdowns = append(shutdowns, shutdown)
	}

	return func(ctx context.Context) error {
		var errs []error

		for _, s := range shutdowns {
			errs = append(errs, s(ctx))
		}

		return errors.Join(errs...)
	}, nil
}
