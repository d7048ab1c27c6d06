package usecase

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"room-designer/internal/domain"
)

const (
	originalKeyPrefix  = "originals"
	generatedKeyPrefix = "generated"
	defaultFilename    = "upload.png"
	defaultURLTTL      = time.Hour
)

// RenderInput carries everything the render stage consumes.
type RenderInput struct {
	ThreadToken string
	Prompt      string
	Items       []domain.Item
	Image       []byte
	Filename    string
}

// RenderStage produces the redesigned image and stores it.
type RenderStage struct {
	generator ImageGenerator
	blobs     BlobStore
	urlTTL    time.Duration
}

func NewRenderStage(g ImageGenerator, b BlobStore, urlTTL time.Duration) (*RenderStage, error) {
	if g == nil {
		return nil, errors.New("usecase: image generator must not be nil")
	}
	if b == nil {
		return nil, errors.New("usecase: blob store must not be nil")
	}
	if urlTTL <= 0 {
		urlTTL = defaultURLTTL
	}
	return &RenderStage{generator: g, blobs: b, urlTTL: urlTTL}, nil
}

func (r *RenderStage) Render(ctx context.Context, in RenderInput) (domain.ImageRef, error) {
	prompt := enhancePrompt(in.Prompt, in.Items)

	generated, err := r.generator.Generate(ctx, prompt, in.Image)
	if err != nil {
		return domain.ImageRef{}, &RenderError{Step: RenderStepGenerate, Err: err}
	}
	if len(generated) == 0 {
		slog.Error("render: generator returned no image", "promptBytes", len(prompt), "imageBytes", len(in.Image))
		return domain.ImageRef{}, &RenderError{Step: RenderStepGenerate}
	}

	key, err := r.blobs.Put(ctx, generatedKey(in.ThreadToken, in.Filename), generated, "image/png")
	if err != nil {
		return domain.ImageRef{}, &RenderError{Step: RenderStepStore, Err: err}
	}
	accessURL, err := r.blobs.AccessURL(ctx, key, r.urlTTL)
	if err != nil {
		return domain.ImageRef{}, &RenderError{Step: RenderStepAccessURL, Err: err}
	}
	return domain.ImageRef{Key: key, URL: accessURL}, nil
}

// enhancePrompt is the only place suggested items feed into rendering.
func enhancePrompt(prompt string, items []domain.Item) string {
	if len(items) == 0 {
		return prompt
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return prompt + " The room features these key items: " + strings.Join(names, ", ") + "."
}

func originalKey(threadToken, filename string) string {
	return path.Join(originalKeyPrefix, threadToken, cleanFilename(filename))
}

func generatedKey(threadToken, filename string) string {
	return path.Join(generatedKeyPrefix, threadToken, cleanFilename(filename))
}

// cleanFilename keeps only the final path element of a client-supplied name.
func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" || base == "" {
		return defaultFilename
	}
	return base
}
