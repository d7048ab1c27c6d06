package usecase

import (
	"context"
	"time"

	"room-designer/internal/domain"
)

// Suggester returns a free-text model response for a system instruction and a
// user prompt.
type Suggester interface {
	Suggest(ctx context.Context, systemInstruction, userPrompt string) (string, error)
}

// ImageGenerator renders a new image from a prompt and a reference image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, image []byte) ([]byte, error)
}

// BlobStore stores image bytes and issues time-limited read URLs.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CheckpointStore persists session records by thread token. Expired records
// must be reported as not found.
type CheckpointStore interface {
	Get(ctx context.Context, threadToken string) (domain.SessionState, bool, error)
	Put(ctx context.Context, state domain.SessionState) error
}

// KeyResolver recovers a blob key from an access URL the store issued earlier.
// Results are best effort and depend on the backend's URL layout.
type KeyResolver interface {
	ResolveKey(accessURL string) (string, error)
}

// PromptComposer maps preferences to a prompt.
type PromptComposer interface {
	Compose(p domain.Preferences) string
}
