package otel

import (
	"context"
	"iter"
	"time"

	"github.com/adrianliechti/forge/pkg/provider"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.38.0/genaiconv"
)

type Completer interface {
	Observable
	provider.Completer
}

type observableCompleter struct {
	model    string
	provider string

	completer provider.Completer

	tokenUsageMetric        genaiconv.ClientTokenUsage
	operationDurationMetric genaiconv.ClientOperationDuration
}

func NewCompleter(provider, model string, p provider.Completer) Completer {
	meter := otel.Meter(instrumentationName)

	tokenUsageMetric, _ := genaiconv.NewClientTokenUsage(meter)
	operationDurationMetric, _ := genaiconv.NewClientOperationDuration(meter)

	return &observableCompleter{
		completer: p,

		model:    model,
		provider: provider,

		tokenUsageMetric:        tokenUsageMetric,
		operationDurationMetric: operationDurationMetric,
	}
}

func (p *observableCompleter) otelSetup() {
}

func (p *observableCompleter) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		ctx, span := otel.Tracer(instrumentationName).Start(ctx, "chat "+p.model)
		defer span.End()

		if options != nil && options.Schema != nil {
			span.SetAttributes(String("gen_ai.output.schema", options.Schema.Name))
		}

		timestamp := time.Now()

		var acc provider.CompletionAccumulator
		var received bool

		for completion, err := range p.completer.Complete(ctx, messages, options) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())

				yield(nil, err)
				return
			}

			if completion != nil {
				received = true
				acc.Add(*completion)
			}

			if !yield(completion, nil) {
				return
			}
		}

		if !received {
			return
		}

		p.record(ctx, acc.Result(), time.Since(timestamp))
	}
}

func (p *observableCompleter) record(ctx context.Context, result *provider.Completion, duration time.Duration) {
	providerName := genaiconv.ProviderNameAttr(p.provider)
	responseModel := p.model

	if result.Model != "" {
		responseModel = result.Model
	}

	p.operationDurationMetric.Record(ctx, duration.Seconds(),
		genaiconv.OperationNameChat,
		providerName,
		KeyValues([]KeyValue{
			p.operationDurationMetric.AttrRequestModel(p.model),
			p.operationDurationMetric.AttrResponseModel(responseModel),
		}, EndUserAttrs(ctx))...,
	)

	if result.Usage == nil {
		return
	}

	tokens := []struct {
		kind  genaiconv.TokenTypeAttr
		count int
	}{
		{genaiconv.TokenTypeInput, result.Usage.InputTokens},
		{genaiconv.TokenTypeOutput, result.Usage.OutputTokens},
	}

	for _, t := range tokens {
		if t.count <= 0 {
			continue
		}

		p.tokenUsageMetric.Record(ctx, int64(t.count),
			genaiconv.OperationNameChat,
			providerName,
			t.kind,
			KeyValues([]KeyValue{
				p.tokenUsageMetric.AttrRequestModel(p.model),
				p.tokenUsageMetric.AttrResponseModel(responseModel),
			}, EndUserAttrs(ctx))...,
		)
	}
}
