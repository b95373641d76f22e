package workflow

import (
	"errors"
	"fmt"

	"photo-studio-backend/internal/proxy"
)

// Kind classifies where a generation failed.
type Kind string

const (
	KindValidation Kind = "validation"
	KindUpload     Kind = "upload"
	KindSubmit     Kind = "submit"
	KindPoll       Kind = "poll"
	KindProvider   Kind = "provider"
	KindTimeout    Kind = "timeout"
	KindResult     Kind = "result"
)

var (
	ErrNoImage     = errors.New("no image selected")
	ErrNoPrompt    = errors.New("prompt is required")
	ErrNoSubmitURL = errors.New("submit URL is required")
	ErrNoStatusURL = errors.New("status URL is required")
	ErrNoResultURL = errors.New("result URL is required")
	ErrModeImages  = errors.New("single-image mode takes exactly one image")

	ErrUploadFailed   = errors.New("image could not be uploaded")
	ErrNoJobID        = errors.New("no job id in submit response")
	ErrProviderFailed = errors.New("generation failed")
	ErrPollTimeout    = errors.New("generation timed out")
	ErrNoResult       = errors.New("no valid result in response")

	// ErrMalformedResponse aliases the proxy error so callers need only this
	// package.
	ErrMalformedResponse = proxy.ErrMalformedResponse
)

// Error is the single failure a run ends with. Msg is user-facing; Err keeps
// the cause for errors.Is / errors.As.
type Error struct {
	Kind       Kind
	Msg        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind, or "" for errors this package did not
// produce.
func KindOf(err error) Kind {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}
	return ""
}

func validationError(sentinel error) *Error {
	return &Error{Kind: KindValidation, Msg: sentinel.Error(), Err: sentinel}
}

// remoteError turns a proxy failure into an Error of the given kind. HTTP
// failures echo the status and body.
func remoteError(kind Kind, what string, err error) *Error {
	var httpErr *proxy.HTTPError
	if errors.As(err, &httpErr) {
		return &Error{
			Kind:       kind,
			Msg:        fmt.Sprintf("%s failed: status %d, body: %s", what, httpErr.StatusCode, httpErr.Body),
			StatusCode: httpErr.StatusCode,
			Err:        err,
		}
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf("%s failed: %v", what, err), Err: err}
}
