package anthropic

import (
	"context"
	"iter"
	"strings"

	"github.com/adrianliechti/forge/pkg/provider"

	"github.com/anthropics/anthropic-sdk-go"
)

var _ provider.Completer = (*Completer)(nil)

type Completer struct {
	*Config
	messages anthropic.MessageService
}

func NewCompleter(url, model string, options ...Option) (*Completer, error) {
	cfg := &Config{
		url:   url,
		model: model,

		maxTokens: 8192,
	}

	for _, option := range options {
		option(cfg)
	}

	return &Completer{
		Config:   cfg,
		messages: anthropic.NewMessageService(cfg.Options()...),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		if options == nil {
			options = new(provider.CompleteOptions)
		}

		req := c.convertMessageRequest(messages, options)

		message := anthropic.Message{}
		stream := c.messages.NewStreaming(ctx, *req)

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				yield(nil, err)
				return
			}

			switch event := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				switch block := event.ContentBlock.AsAny().(type) {
				case anthropic.TextBlock:
					if block.Text == "" {
						continue
					}

					if !yield(c.delta(message, provider.TextContent(block.Text)), nil) {
						return
					}
				}

			case anthropic.ContentBlockDeltaEvent:
				switch delta := event.Delta.AsAny().(type) {
				case anthropic.ThinkingDelta:
					if !yield(c.delta(message, provider.ReasoningContent(provider.Reasoning{Text: delta.Thinking})), nil) {
						return
					}

				case anthropic.TextDelta:
					if !yield(c.delta(message, provider.TextContent(delta.Text)), nil) {
						return
					}
				}

			case anthropic.MessageStopEvent:
				completion := c.delta(message)
				completion.Usage = toUsage(message.Usage)

				if !yield(completion, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(nil, convertError(err))
			return
		}
	}
}

func (c *Completer) delta(message anthropic.Message, content ...provider.Content) *provider.Completion {
	return &provider.Completion{
		ID:    message.ID,
		Model: c.model,

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: content,
		},
	}
}

func (c *Completer) convertMessageRequest(input []provider.Message, options *provider.CompleteOptions) *anthropic.MessageNewParams {
	req := &anthropic.MessageNewParams{
		Model: anthropic.Model(c.model),

		MaxTokens: c.maxTokens,
	}

	if options.Stop != nil {
		req.StopSequences = options.Stop
	}

	if options.MaxTokens != nil {
		req.MaxTokens = int64(*options.MaxTokens)
	}

	if options.Temperature != nil {
		req.Temperature = anthropic.Float(float64(*options.Temperature))
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, m := range input {
		switch m.Role {
		case provider.MessageRoleSystem:
			for _, c := range m.Content {
				if c.Text != "" {
					system = append(system, anthropic.TextBlockParam{Text: c.Text})
				}
			}

		case provider.MessageRoleUser:
			var blocks []anthropic.ContentBlockParamUnion

			for _, c := range m.Content {
				if text := strings.TrimRight(c.Text, " \t\n\r"); text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(text))
				}
			}

			messages = append(messages, anthropic.NewUserMessage(blocks...))

		case provider.MessageRoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion

			for _, c := range m.Content {
				if text := strings.TrimRight(c.Text, " \t\n\r"); text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(text))
				}
			}

			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		}
	}

	// the last system block is stable across planning calls
	if len(system) > 0 {
		system[len(system)-1].CacheControl = anthropic.NewCacheControlEphemeralParam()
		req.System = system
	}

	if options.Schema != nil {
		req.OutputConfig.Format = anthropic.JSONOutputFormatParam{Schema: options.Schema.Schema}
	}

	req.Messages = messages

	return req
}

func toUsage(usage anthropic.Usage) *provider.Usage {
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return nil
	}

	return &provider.Usage{
		InputTokens:  int(usage.InputTokens),
		OutputTokens: int(usage.OutputTokens),

		CacheReadInputTokens:     int(usage.CacheReadInputTokens),
		CacheCreationInputTokens: int(usage.CacheCreationInputTokens),
	}
}
