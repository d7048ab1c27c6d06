package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"room-designer/internal/domain"
)

// Runner executes one pipeline run.
type Runner interface {
	Invoke(ctx context.Context, in RunInput) (RunOutput, error)
}

// SessionService owns thread tokens and the session records behind them.
// Concurrent Generate calls on one token are not serialised; the last
// checkpoint write wins.
type SessionService struct {
	blobs       BlobStore
	checkpoints CheckpointStore
	pipeline    Runner
	keys        KeyResolver
	urlTTL      time.Duration
}

type OpenSessionInput struct {
	Image    []byte
	Filename string
}

type OpenSessionOutput struct {
	ThreadToken string
	OriginalURL string
}

type GenerateInput struct {
	ThreadToken string
	Preferences domain.Preferences
	Image       []byte
	Filename    string
}

func NewSessionService(b BlobStore, c CheckpointStore, p Runner, k KeyResolver, urlTTL time.Duration) (*SessionService, error) {
	if b == nil {
		return nil, errors.New("usecase: blob store must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: checkpoint store must not be nil")
	}
	if p == nil {
		return nil, errors.New("usecase: pipeline must not be nil")
	}
	if k == nil {
		k = PathKeyResolver{}
	}
	if urlTTL <= 0 {
		urlTTL = defaultURLTTL
	}
	return &SessionService{blobs: b, checkpoints: c, pipeline: p, keys: k, urlTTL: urlTTL}, nil
}

// OpenSession stores the original photo and records a session holding only
// that reference. The pipeline does not run.
func (s *SessionService) OpenSession(ctx context.Context, in OpenSessionInput) (OpenSessionOutput, error) {
	if len(in.Image) == 0 {
		return OpenSessionOutput{}, newError(ErrorInvalidInput, "empty_image", nil)
	}
	token := newUUID()
	filename := cleanFilename(in.Filename)

	ref, err := s.storeOriginal(ctx, token, filename, in.Image)
	if err != nil {
		return OpenSessionOutput{}, err
	}

	state := domain.SessionState{
		ThreadToken:      token,
		OriginalImage:    ref,
		OriginalFilename: filename,
		UpdatedAt:        now().UTC(),
	}
	if err := s.checkpoints.Put(ctx, state); err != nil {
		return OpenSessionOutput{}, newError(ErrorStore, "checkpoint_write_error", err)
	}
	slog.Info("session: opened", "threadId", token, "imageBytes", len(in.Image))
	return OpenSessionOutput{ThreadToken: token, OriginalURL: ref.URL}, nil
}

// Generate resolves the effective input for a thread, runs the pipeline and
// persists the merged record. Nothing is written when the run fails.
func (s *SessionService) Generate(ctx context.Context, in GenerateInput) (domain.SessionState, error) {
	if err := validatePreferences(in.Preferences); err != nil {
		return domain.SessionState{}, err
	}

	token := strings.TrimSpace(in.ThreadToken)
	if token == "" {
		token = newUUID()
	}

	state, found, err := s.checkpoints.Get(ctx, token)
	if err != nil {
		return domain.SessionState{}, newError(ErrorStore, "checkpoint_read_error", err)
	}
	if !found {
		state = domain.SessionState{}
	}
	state.ThreadToken = token

	// An override photo is uploaded only after a successful run, so a failed
	// call leaves the stored original untouched.
	override := len(in.Image) > 0
	var (
		image    []byte
		filename string
	)
	if override {
		image = in.Image
		filename = cleanFilename(in.Filename)
	} else {
		var key string
		image, key, err = s.loadOriginal(ctx, state.OriginalImage)
		if err != nil {
			return domain.SessionState{}, err
		}
		filename = state.OriginalFilename
		if filename == "" {
			filename = cleanFilename(path.Base(key))
		}
	}

	out, err := s.pipeline.Invoke(ctx, RunInput{
		ThreadToken: token,
		Preferences: in.Preferences,
		Image:       image,
		Filename:    filename,
	})
	if err != nil {
		return domain.SessionState{}, classifyRunError(err)
	}

	if override {
		ref, err := s.storeOriginal(ctx, token, filename, image)
		if err != nil {
			return domain.SessionState{}, err
		}
		state.OriginalImage = ref
	}
	state.OriginalFilename = filename
	state.Preferences = in.Preferences

	state.ComposedPrompt = out.Prompt
	state.Items = out.Items
	state.GeneratedImage = out.Generated
	state.UpdatedAt = now().UTC()

	if err := s.checkpoints.Put(ctx, state); err != nil {
		return domain.SessionState{}, newError(ErrorStore, "checkpoint_write_error", err)
	}
	slog.Info("session: generated", "threadId", token, "resumed", found, "items", len(out.Items))
	return state, nil
}

// GetSession reads a session record. Expired and unknown tokens are both
// reported as ErrorNotFound.
func (s *SessionService) GetSession(ctx context.Context, threadToken string) (domain.SessionState, error) {
	token := strings.TrimSpace(threadToken)
	if token == "" {
		return domain.SessionState{}, newError(ErrorInvalidInput, "empty_thread_id", nil)
	}
	state, found, err := s.checkpoints.Get(ctx, token)
	if err != nil {
		return domain.SessionState{}, newError(ErrorStore, "checkpoint_read_error", err)
	}
	if !found {
		return domain.SessionState{}, newError(ErrorNotFound, "session_not_found", nil)
	}
	return state, nil
}

func (s *SessionService) storeOriginal(ctx context.Context, token, filename string, image []byte) (domain.ImageRef, error) {
	key, err := s.blobs.Put(ctx, originalKey(token, filename), image, http.DetectContentType(image))
	if err != nil {
		return domain.ImageRef{}, newError(ErrorStore, "blob_write_error", err)
	}
	accessURL, err := s.blobs.AccessURL(ctx, key, s.urlTTL)
	if err != nil {
		return domain.ImageRef{}, newError(ErrorStore, "access_url_error", err)
	}
	return domain.ImageRef{Key: key, URL: accessURL}, nil
}

// loadOriginal fetches the stored photo. Records that only kept the access
// URL get a key derived from it; that key is used for this read only and is
// never written back.
func (s *SessionService) loadOriginal(ctx context.Context, ref domain.ImageRef) ([]byte, string, error) {
	if ref.URL == "" && ref.Key == "" {
		return nil, "", newError(ErrorNoImage, "no_image", ErrNoImage)
	}
	key := ref.Key
	if key == "" {
		derived, err := s.keys.ResolveKey(ref.URL)
		if err != nil {
			return nil, "", newError(ErrorNoImage, "original_key_unresolved", errors.Join(ErrNoImage, err))
		}
		slog.Warn("session: derived original key from access url", "key", derived)
		key = derived
	}
	image, err := s.blobs.Get(ctx, key)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil, "", newError(ErrorNoImage, "original_missing", errors.Join(ErrNoImage, err))
	}
	if err != nil {
		return nil, "", newError(ErrorStore, "blob_read_error", err)
	}
	if len(image) == 0 {
		return nil, "", newError(ErrorNoImage, "original_empty", ErrNoImage)
	}
	return image, key, nil
}

func validatePreferences(p domain.Preferences) error {
	required := []struct {
		name  string
		value string
	}{
		{"style", p.Style},
		{"mood", p.Mood},
		{"functionality", p.Functionality},
		{"palette", p.Palette},
		{"clutter", p.Clutter},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return newError(ErrorInvalidInput, "missing_"+r.name, nil)
		}
	}
	return nil
}

func classifyRunError(err error) error {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		if renderErr.Step == RenderStepGenerate {
			return newError(ErrorUpstream, "render_failed", err)
		}
		return newError(ErrorStore, "generated_blob_error", err)
	}
	return newError(ErrorInternal, "pipeline_error", err)
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
