// Package bedrock adapts Amazon Bedrock models to the image generation and
// item suggestion collaborators.
package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	DefaultImageModelID   = "stability.sd3-5-large-v1:0"
	DefaultSuggestModelID = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
	DefaultImageStrength  = 0.7
	DefaultTemperature    = 0.5
)

// runtimeAPI is the minimal Bedrock runtime interface used by this package.
// *bedrockruntime.Client satisfies it.
type runtimeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}
