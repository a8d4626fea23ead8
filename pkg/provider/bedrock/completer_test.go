package bedrock

import (
	"context"
	"testing"

	"github.com/adrianliechti/forge/pkg/provider"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/stretchr/testify/require"
)

type mockConverser struct {
	input *bedrockruntime.ConverseInput

	output *bedrockruntime.ConverseOutput
	err    error
}

func (m *mockConverser) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = params
	return m.output, m.err
}

func TestComplete(t *testing.T) {
	mock := &mockConverser{
		output: &bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{
				Value: types.Message{
					Role: types.ConversationRoleAssistant,

					Content: []types.ContentBlock{
						&types.ContentBlockMemberText{Value: `{"ops":[]}`},
					},
				},
			},

			Usage: &types.TokenUsage{
				InputTokens:  aws.Int32(12),
				OutputTokens: aws.Int32(5),
			},
		},
	}

	c := &Completer{
		Config: &Config{model: "anthropic.claude-sonnet"},
		client: mock,
	}

	completion, err := provider.Collect(c.Complete(context.Background(), []provider.Message{
		provider.SystemMessage("plan edits"),
		provider.UserMessage("make it shorter"),
	}, &provider.CompleteOptions{
		Format:      provider.CompletionFormatJSON,
		Temperature: aws.Float32(0.2),
	}))

	require.NoError(t, err)
	require.Equal(t, `{"ops":[]}`, completion.Message.Text())
	require.Equal(t, 12, completion.Usage.InputTokens)

	require.Len(t, mock.input.Messages, 1)
	require.Len(t, mock.input.System, 2)
	require.Equal(t, "anthropic.claude-sonnet", aws.ToString(mock.input.ModelId))
	require.Equal(t, float32(0.2), aws.ToFloat32(mock.input.InferenceConfig.Temperature))
}

func TestCompleteError(t *testing.T) {
	c := &Completer{
		Config: &Config{model: "m"},
		client: &mockConverser{
			err: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
		},
	}

	_, err := provider.Collect(c.Complete(context.Background(), []provider.Message{provider.UserMessage("hi")}, nil))
	require.ErrorContains(t, err, "ThrottlingException")

	_, err = provider.Collect(c.Complete(context.Background(), []provider.Message{provider.SystemMessage("only system")}, nil))
	require.Error(t, err)
}
