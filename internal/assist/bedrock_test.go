package assist

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	lastInput *bedrockruntime.ConverseInput
	output    *bedrockruntime.ConverseOutput
	err       error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func converseReply(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(4),
			TotalTokens:  aws.Int32(16),
		},
	}
}

func TestBedrockClientComplete(t *testing.T) {
	api := &fakeConverseAPI{output: converseReply("  Hi there!  ")}
	client := NewBedrockClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(t.Context(), LLMRequest{
		System:      []string{"Be brief."},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "Hello"}},
		MaxTokens:   256,
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi there!", resp.Text)
	assert.Equal(t, string(brtypes.StopReasonEndTurn), resp.StopReason)
	assert.Equal(t, int32(12), resp.Usage.InputTokens)
	assert.Equal(t, int32(16), resp.Usage.TotalTokens)

	require.NotNil(t, api.lastInput)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.lastInput.ModelId))
	require.Len(t, api.lastInput.System, 1)
	require.Len(t, api.lastInput.Messages, 1)
	require.NotNil(t, api.lastInput.InferenceConfig)
	assert.Equal(t, int32(256), aws.ToInt32(api.lastInput.InferenceConfig.MaxTokens))
}

func TestBedrockClientModelOverride(t *testing.T) {
	api := &fakeConverseAPI{output: converseReply("ok")}
	client := NewBedrockClient(api, "default-model")

	_, err := client.Complete(t.Context(), LLMRequest{
		Model:       "per-request-model",
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "Hello"}},
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "per-request-model", aws.ToString(api.lastInput.ModelId))
	// Negative temperature means "omit"; with no other knobs set the whole
	// inference config stays nil.
	assert.Nil(t, api.lastInput.InferenceConfig)
}

func TestBedrockClientNoModelConfigured(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{}, "")

	_, err := client.Complete(t.Context(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "Hello"}},
	})
	require.Error(t, err)
}

func TestBedrockClientEmptyResponse(t *testing.T) {
	api := &fakeConverseAPI{output: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "   "}},
		}},
	}}
	client := NewBedrockClient(api, "m")

	_, err := client.Complete(t.Context(), LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "Hello"}},
		Temperature: -1,
	})
	require.Error(t, err)
}
