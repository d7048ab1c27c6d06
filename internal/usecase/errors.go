package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNoImage      ErrorCode = "NO_IMAGE"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorStore        ErrorCode = "STORE_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

var (
	// ErrRenderFailed matches every error returned by the render stage.
	ErrRenderFailed = errors.New("usecase: render failed")
	// ErrNoImage is returned when neither the request nor the session carries a photo.
	ErrNoImage = errors.New("usecase: no image available")
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// Render steps reported by RenderError.
const (
	RenderStepGenerate  = "generate"
	RenderStepStore     = "store"
	RenderStepAccessURL = "access_url"
)

// RenderError describes which step of the render stage failed.
type RenderError struct {
	Step string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("usecase: render %s failed", e.Step)
	}
	return fmt.Sprintf("usecase: render %s failed: %v", e.Step, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRenderFailed }
