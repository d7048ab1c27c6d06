// Package handler exposes the session use case over HTTP, both as a plain
// http.Handler and as an API Gateway Lambda handler.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"room-designer/internal/domain"
	"room-designer/internal/usecase"
)

const DefaultMaxUploadBytes int64 = 10 << 20

// DefaultAllowedOrigins matches the local frontend dev server.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

type SessionUseCase interface {
	OpenSession(ctx context.Context, in usecase.OpenSessionInput) (usecase.OpenSessionOutput, error)
	Generate(ctx context.Context, in usecase.GenerateInput) (domain.SessionState, error)
	GetSession(ctx context.Context, threadToken string) (domain.SessionState, error)
}

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
}

type Handler struct {
	uc             SessionUseCase
	maxUploadBytes int64
	router         chi.Router
}

type statusResponse struct {
	Message string `json:"message"`
}

type initSessionResponse struct {
	ThreadID    string `json:"thread_id"`
	OriginalURL string `json:"original_url"`
}

type generateResponse struct {
	OriginalURL  string        `json:"original_url"`
	GeneratedURL string        `json:"generated_url"`
	Items        []domain.Item `json:"items"`
	ThreadID     string        `json:"thread_id"`
}

type sessionResponse struct {
	OriginalURL  string        `json:"original_url"`
	GeneratedURL string        `json:"generated_url"`
	Items        []domain.Item `json:"items"`
}

func NewHandler(uc SessionUseCase, opts Options) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: session use case must not be nil")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultAllowedOrigins
	}

	h := &Handler{uc: uc, maxUploadBytes: opts.MaxUploadBytes}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(correlationID)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{correlationHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, string(usecase.ErrorNotFound), "route_not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, string(usecase.ErrorInvalidInput), "method_not_allowed")
	})

	r.Get("/", h.status)
	r.Post("/init-session", h.initSession)
	r.Post("/generate", h.generate)
	r.Get("/session/{thread_id}", h.getSession)

	h.router = r
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Message: "AI Room Designer API is running"})
}

func (h *Handler) initSession(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	image, filename, err := formFile(r)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	if len(image) == 0 {
		writeError(w, r, http.StatusBadRequest, string(usecase.ErrorInvalidInput), "missing_file")
		return
	}

	out, err := h.uc.OpenSession(r.Context(), usecase.OpenSessionInput{Image: image, Filename: filename})
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initSessionResponse{ThreadID: out.ThreadToken, OriginalURL: out.OriginalURL})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	image, filename, err := formFile(r)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	state, err := h.uc.Generate(r.Context(), usecase.GenerateInput{
		ThreadToken: strings.TrimSpace(r.FormValue("thread_id")),
		Preferences: domain.Preferences{
			Style:         strings.TrimSpace(r.FormValue("style")),
			Mood:          strings.TrimSpace(r.FormValue("mood")),
			Functionality: strings.TrimSpace(r.FormValue("functionality")),
			Palette:       strings.TrimSpace(r.FormValue("palette")),
			Clutter:       strings.TrimSpace(r.FormValue("clutter")),
			Addendum:      r.FormValue("additional_prompt"),
		},
		Image:    image,
		Filename: filename,
	})
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		OriginalURL:  state.OriginalImage.URL,
		GeneratedURL: state.GeneratedImage.URL,
		Items:        nonNilItems(state.Items),
		ThreadID:     state.ThreadToken,
	})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.uc.GetSession(r.Context(), chi.URLParam(r, "thread_id"))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		OriginalURL:  state.OriginalImage.URL,
		GeneratedURL: state.GeneratedImage.URL,
		Items:        nonNilItems(state.Items),
	})
}

// parseForm accepts multipart and urlencoded bodies up to maxUploadBytes and
// writes a 400 itself when the body is unusable.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	// ParseForm reads urlencoded bodies; ParseMultipartForm would report
	// ErrNotMultipart for them and drop the read error.
	err := r.ParseForm()
	if err == nil {
		err = r.ParseMultipartForm(h.maxUploadBytes)
		if err == nil || errors.Is(err, http.ErrNotMultipart) {
			return true
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusBadRequest, string(usecase.ErrorInvalidInput), "upload_too_large")
		return false
	}
	writeError(w, r, http.StatusBadRequest, string(usecase.ErrorInvalidInput), "malformed_form")
	return false
}

// formFile returns the optional "file" part. A missing part yields nil bytes.
func formFile(r *http.Request) ([]byte, string, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "malformed_file", Err: err}
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "unreadable_file", Err: err}
	}
	return data, header.Filename, nil
}

func nonNilItems(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	return items
}
