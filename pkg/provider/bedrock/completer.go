package bedrock

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/adrianliechti/forge/pkg/provider"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

var _ provider.Completer = (*Completer)(nil)

type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Completer uses the Bedrock Converse API. Credentials and region come from
// the default AWS configuration chain unless a region is given.
type Completer struct {
	*Config

	client converser
}

func NewCompleter(ctx context.Context, model string, options ...Option) (*Completer, error) {
	cfg := &Config{
		model: model,
	}

	for _, option := range options {
		option(cfg)
	}

	var loaders []func(*config.LoadOptions) error

	if cfg.region != "" {
		loaders = append(loaders, config.WithRegion(cfg.region))
	}

	if cfg.client != nil {
		loaders = append(loaders, config.WithHTTPClient(cfg.client))
	}

	awscfg, err := config.LoadDefaultConfig(ctx, loaders...)

	if err != nil {
		return nil, err
	}

	return &Completer{
		Config: cfg,

		client: bedrockruntime.NewFromConfig(awscfg),
	}, nil
}

// Complete sends one Converse request and yields the whole answer as a
// single completion.
func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		if options == nil {
			options = new(provider.CompleteOptions)
		}

		req, err := c.convertConverseInput(messages, options)

		if err != nil {
			yield(nil, err)
			return
		}

		resp, err := c.client.Converse(ctx, req)

		if err != nil {
			yield(nil, convertError(err))
			return
		}

		yield(&provider.Completion{
			ID:    uuid.NewString(),
			Model: c.model,

			Message: &provider.Message{
				Role: provider.MessageRoleAssistant,

				Content: toContent(resp.Output),
			},

			Usage: toUsage(resp.Usage),
		}, nil)
	}
}

func (c *Completer) convertConverseInput(input []provider.Message, options *provider.CompleteOptions) (*bedrockruntime.ConverseInput, error) {
	messages, err := convertMessages(input)

	if err != nil {
		return nil, err
	}

	req := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),

		Messages: messages,
		System:   convertSystem(input, options),
	}

	if options.MaxTokens != nil || options.Temperature != nil || len(options.Stop) > 0 {
		inference := &types.InferenceConfiguration{
			Temperature:   options.Temperature,
			StopSequences: options.Stop,
		}

		if options.MaxTokens != nil {
			inference.MaxTokens = aws.Int32(int32(*options.MaxTokens))
		}

		req.InferenceConfig = inference
	}

	return req, nil
}

// convertSystem collects system messages. Converse has no JSON mode, so a
// requested format is appended as an instruction.
func convertSystem(messages []provider.Message, options *provider.CompleteOptions) []types.SystemContentBlock {
	var result []types.SystemContentBlock

	for _, m := range messages {
		if m.Role != provider.MessageRoleSystem {
			continue
		}

		for _, c := range m.Content {
			if c.Text == "" {
				continue
			}

			result = append(result, &types.SystemContentBlockMemberText{
				Value: c.Text,
			})
		}
	}

	if options.Format == provider.CompletionFormatJSON {
		result = append(result, &types.SystemContentBlockMemberText{
			Value: "Respond with a single JSON object and nothing else.",
		})
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

func convertMessages(messages []provider.Message) ([]types.Message, error) {
	var result []types.Message

	for _, m := range messages {
		var role types.ConversationRole

		switch m.Role {
		case provider.MessageRoleSystem:
			continue

		case provider.MessageRoleUser:
			role = types.ConversationRoleUser

		case provider.MessageRoleAssistant:
			role = types.ConversationRoleAssistant

		default:
			return nil, errors.New("unsupported message role: " + string(m.Role))
		}

		message := types.Message{
			Role: role,
		}

		for _, c := range m.Content {
			if c.Text == "" {
				continue
			}

			message.Content = append(message.Content, &types.ContentBlockMemberText{
				Value: c.Text,
			})
		}

		if len(message.Content) == 0 {
			continue
		}

		result = append(result, message)
	}

	if len(result) == 0 {
		return nil, errors.New("no messages")
	}

	return result, nil
}

func convertError(err error) error {
	var apiErr smithy.APIError

	if errors.As(err, &apiErr) {
		return fmt.Errorf("bedrock %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}

	return err
}

func toContent(val types.ConverseOutput) []provider.Content {
	message, ok := val.(*types.ConverseOutputMemberMessage)

	if !ok {
		return nil
	}

	var parts []provider.Content

	for _, b := range message.Value.Content {
		switch block := b.(type) {
		case *types.ContentBlockMemberText:
			parts = append(parts, provider.TextContent(block.Value))

		case *types.ContentBlockMemberReasoningContent:
			if text, ok := block.Value.(*types.ReasoningContentBlockMemberReasoningText); ok {
				parts = append(parts, provider.ReasoningContent(provider.Reasoning{
					Text:      aws.ToString(text.Value.Text),
					Signature: aws.ToString(text.Value.Signature),
				}))
			}
		}
	}

	return parts
}

func toUsage(val *types.TokenUsage) *provider.Usage {
	if val == nil {
		return nil
	}

	usage := &provider.Usage{
		InputTokens:  int(aws.ToInt32(val.InputTokens)),
		OutputTokens: int(aws.ToInt32(val.OutputTokens)),
	}

	if val.CacheReadInputTokens != nil {
		usage.CacheReadInputTokens = int(aws.ToInt32(val.CacheReadInputTokens))
	}

	if val.CacheWriteInputTokens != nil {
		usage.CacheCreationInputTokens = int(aws.ToInt32(val.CacheWriteInputTokens))
	}

	return usage
}
