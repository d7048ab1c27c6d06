package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type imageRequest struct {
	Prompt       string  `json:"prompt"`
	Image        string  `json:"image"`
	Strength     float64 `json:"strength"`
	Mode         string  `json:"mode"`
	OutputFormat string  `json:"output_format"`
}

// imageResponse covers the current "images" shape and the older
// "artifacts" shape returned by Stability models.
type imageResponse struct {
	Images    []string `json:"images"`
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
	FinishReasons []*string `json:"finish_reasons"`
}

// ImageClient runs image-to-image generation on a Stability model.
type ImageClient struct {
	api      runtimeAPI
	modelID  string
	strength float64
}

type ImageOption func(*ImageClient)

func WithImageModel(modelID string) ImageOption {
	return func(c *ImageClient) {
		if id := strings.TrimSpace(modelID); id != "" {
			c.modelID = id
		}
	}
}

// WithStrength sets how far the output may drift from the reference image,
// between 0 and 1.
func WithStrength(strength float64) ImageOption {
	return func(c *ImageClient) {
		if strength > 0 && strength <= 1 {
			c.strength = strength
		}
	}
}

func NewImageClient(api runtimeAPI, opts ...ImageOption) (*ImageClient, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	c := &ImageClient{api: api, modelID: DefaultImageModelID, strength: DefaultImageStrength}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate returns PNG bytes for prompt applied to image.
func (c *ImageClient) Generate(ctx context.Context, prompt string, image []byte) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("bedrock: reference image is empty")
	}
	body, err := json.Marshal(imageRequest{
		Prompt:       prompt,
		Image:        base64.StdEncoding.EncodeToString(image),
		Strength:     c.strength,
		Mode:         "image-to-image",
		OutputFormat: "png",
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: marshal image request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		slog.Error("bedrock: invoke image model failed", "model", c.modelID, "promptBytes", len(prompt), "imageBytes", len(image), "err", err)
		return nil, fmt.Errorf("bedrock: invoke %s: %w", c.modelID, err)
	}

	var payload imageResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		slog.Error("bedrock: undecodable image response", "model", c.modelID, "responseBytes", len(out.Body))
		return nil, fmt.Errorf("bedrock: decode image response: %w", err)
	}

	encoded := ""
	switch {
	case len(payload.Images) > 0:
		encoded = payload.Images[0]
	case len(payload.Artifacts) > 0:
		encoded = payload.Artifacts[0].Base64
	}
	if encoded == "" {
		slog.Error("bedrock: image response has no image", "model", c.modelID, "responseBytes", len(out.Body), "finishReasons", len(payload.FinishReasons))
		return nil, errors.New("bedrock: image response has no image")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("bedrock: decode image bytes: %w", err)
	}
	return decoded, nil
}
