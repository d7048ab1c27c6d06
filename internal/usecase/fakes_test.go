package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"room-designer/internal/domain"
)

type fakeSuggester struct {
	response   string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (f *fakeSuggester) Suggest(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastPrompt = prompt
	return f.response, f.err
}

type fakeGenerator struct {
	out        []byte
	err        error
	calls      int
	lastPrompt string
	lastImage  []byte
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, image []byte) ([]byte, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastImage = image
	return f.out, f.err
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	urlErr  error
	puts    []string
	gets    []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	f.puts = append(f.puts, key)
	return key, nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, key)
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("fake: %q: %w", key, domain.ErrBlobNotFound)
	}
	return data, nil
}

func (f *fakeBlobs) AccessURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://blobs.example.com/" + key + "?sig=abc", nil
}

type fakeCheckpoints struct {
	mu      sync.Mutex
	records map[string]domain.SessionState
	getErr  error
	putErr  error
	puts    int
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{records: map[string]domain.SessionState{}}
}

func (f *fakeCheckpoints) Get(_ context.Context, token string) (domain.SessionState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.SessionState{}, false, f.getErr
	}
	s, ok := f.records[token]
	return s, ok, nil
}

func (f *fakeCheckpoints) Put(_ context.Context, state domain.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.records[state.ThreadToken] = state
	return nil
}

type stubComposer struct{}

func (stubComposer) Compose(p domain.Preferences) string {
	return "style=" + p.Style + " mood=" + p.Mood
}

type stubRunner struct {
	out   RunOutput
	err   error
	calls int
	last  RunInput
}

func (s *stubRunner) Invoke(_ context.Context, in RunInput) (RunOutput, error) {
	s.calls++
	s.last = in
	return s.out, s.err
}

func expectUsecaseError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	require.Equal(t, reason, usecaseErr.Reason)
}

func fixedToken(t *testing.T, tokens ...string) {
	t.Helper()
	prev := newUUID
	i := 0
	newUUID = func() string {
		if i >= len(tokens) {
			return fmt.Sprintf("token-%d", i)
		}
		tok := tokens[i]
		i++
		return tok
	}
	t.Cleanup(func() { newUUID = prev })
}

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

var errBoom = errors.New("boom")

func defaultPrefs() domain.Preferences {
	return domain.Preferences{
		Style:         "Modern Minimalist",
		Mood:          "Calm & Zen",
		Functionality: "Relaxation / Lounge",
		Palette:       "Monochrome",
		Clutter:       "Showroom Perfect",
	}
}
