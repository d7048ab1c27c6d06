package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// SuggestClient sends a single-turn Converse request to a chat model.
type SuggestClient struct {
	api         runtimeAPI
	modelID     string
	temperature float32
}

type SuggestOption func(*SuggestClient)

func WithSuggestModel(modelID string) SuggestOption {
	return func(c *SuggestClient) {
		if id := strings.TrimSpace(modelID); id != "" {
			c.modelID = id
		}
	}
}

func NewSuggestClient(api runtimeAPI, opts ...SuggestOption) (*SuggestClient, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	c := &SuggestClient{api: api, modelID: DefaultSuggestModelID, temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Suggest returns the concatenated text blocks of the model's reply.
func (c *SuggestClient) Suggest(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemInstruction},
		},
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: userPrompt},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(c.temperature),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: converse %s: %w", c.modelID, err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock: converse %s: unexpected output %T", c.modelID, out.Output)
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("bedrock: converse returned no text")
	}
	return sb.String(), nil
}
