package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/proxy"
	"photo-studio-backend/internal/storage"
)

const (
	statusCompleted = "COMPLETED"
	statusFailed    = "FAILED"
)

// JobClient talks to the remote job proxy. *proxy.Client implements it.
type JobClient interface {
	Submit(ctx context.Context, token string, req proxy.SubmitRequest) (*proxy.SubmitResponse, error)
	Status(ctx context.Context, token string, req proxy.PollRequest) (*proxy.StatusResponse, error)
	Result(ctx context.Context, token string, req proxy.PollRequest) (*proxy.ResultResponse, error)
}

// Observer receives phase transitions as they happen. Calls are made from the
// goroutine running the job, in order.
type Observer interface {
	Uploading(index int)
	Uploaded(index int, url string)
	Submitting(imageURLs []string)
	Submitted(providerJobID string)
	Polled(attempt int, status string)
}

// NopObserver ignores every transition.
type NopObserver struct{}

func (NopObserver) Uploading(int)        {}
func (NopObserver) Uploaded(int, string) {}
func (NopObserver) Submitting([]string)  {}
func (NopObserver) Submitted(string)     {}
func (NopObserver) Polled(int, string)   {}

// FileReader loads the bytes behind a local image reference.
type FileReader func(uri string) ([]byte, error)

type Option func(*Engine)

func WithPollPolicy(p PollPolicy) Option {
	return func(e *Engine) { e.policy = p.normalized() }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithFileReader(r FileReader) Option {
	return func(e *Engine) { e.readFile = r }
}

func WithObjectPrefix(prefix string) Option {
	return func(e *Engine) { e.prefix = strings.Trim(prefix, "/") }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine drives one generation from upload to a result URL.
type Engine struct {
	uploader storage.Uploader
	client   JobClient
	policy   PollPolicy
	logger   zerolog.Logger
	readFile FileReader
	prefix   string
	now      func() time.Time
}

func NewEngine(uploader storage.Uploader, client JobClient, opts ...Option) *Engine {
	e := &Engine{
		uploader: uploader,
		client:   client,
		policy:   DefaultPollPolicy(),
		logger:   zerolog.Nop(),
		readFile: storage.ReadLocalFile,
		prefix:   "uploads",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() PollPolicy {
	return e.policy
}

// Validate checks the preconditions of a run in a fixed order and returns the
// first one that fails. It makes no network calls.
func Validate(req models.JobRequest) error {
	if len(req.Images) == 0 {
		return validationError(ErrNoImage)
	}
	for _, img := range req.Images {
		if strings.TrimSpace(img) == "" {
			return validationError(ErrNoImage)
		}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return validationError(ErrNoPrompt)
	}
	if strings.TrimSpace(req.Endpoints.SubmitURL) == "" {
		return validationError(ErrNoSubmitURL)
	}
	if strings.TrimSpace(req.Endpoints.StatusURL) == "" {
		return validationError(ErrNoStatusURL)
	}
	if strings.TrimSpace(req.Endpoints.ResultURL) == "" {
		return validationError(ErrNoResultURL)
	}
	if req.Mode == models.ModeSingle && len(req.Images) > 1 {
		return validationError(ErrModeImages)
	}
	return nil
}

// Run executes the whole workflow: upload every image in order, submit, poll
// until a terminal status and fetch the result. It returns the result URL or a
// single *Error.
func (e *Engine) Run(ctx context.Context, req models.JobRequest, obs Observer) (string, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if req.Mode == "" {
		req.Mode = models.ModeSingle
		if len(req.Images) > 1 {
			req.Mode = models.ModeMulti
		}
	}
	if err := Validate(req); err != nil {
		return "", err
	}

	log := e.logger.With().
		Str("user_id", req.UserID).
		Str("mode", string(req.Mode)).
		Int("images", len(req.Images)).
		Logger()

	imageURLs, err := e.upload(ctx, req, obs)
	if err != nil {
		log.Error().Err(err).Msg("upload failed")
		return "", err
	}

	jobID, err := e.submit(ctx, req, imageURLs, obs)
	if err != nil {
		log.Error().Err(err).Msg("submit failed")
		return "", err
	}
	log = log.With().Str("provider_job_id", jobID).Logger()
	log.Info().Msg("job submitted")

	attempts, err := e.poll(ctx, req, jobID, obs)
	if err != nil {
		log.Error().Err(err).Int("attempts", attempts).Msg("polling failed")
		return "", err
	}

	resultURL, err := e.fetchResult(ctx, req, jobID)
	if err != nil {
		log.Error().Err(err).Msg("result fetch failed")
		return "", err
	}

	log.Info().Int("attempts", attempts).Str("result_url", resultURL).Msg("generation completed")
	return resultURL, nil
}

func (e *Engine) upload(ctx context.Context, req models.JobRequest, obs Observer) ([]string, error) {
	at := e.now()
	urls := make([]string, 0, len(req.Images))
	for i, uri := range req.Images {
		if err := ctx.Err(); err != nil {
			return nil, interrupted(KindUpload, err)
		}
		obs.Uploading(i)

		data, err := e.readFile(uri)
		if err != nil {
			return nil, uploadError(err)
		}
		contentType, ext := storage.DetectContent(uri, data)

		index := i
		if req.Mode == models.ModeSingle {
			index = -1
		}
		objectPath := storage.ObjectPath(e.prefix, req.UserID, at, index, ext)

		publicURL, err := e.uploader.Upload(ctx, objectPath, data, contentType)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, interrupted(KindUpload, ctxErr)
			}
			return nil, uploadError(err)
		}
		e.logger.Debug().Int("index", i).Str("path", objectPath).Msg("image uploaded")
		obs.Uploaded(i, publicURL)
		urls = append(urls, publicURL)
	}
	return urls, nil
}

func (e *Engine) submit(ctx context.Context, req models.JobRequest, imageURLs []string, obs Observer) (string, error) {
	obs.Submitting(imageURLs)

	resp, err := e.client.Submit(ctx, req.AuthToken, proxy.SubmitRequest{
		Prompt:     req.Prompt,
		ImageURLs:  imageURLs,
		ServiceURL: req.Endpoints.SubmitURL,
		Extra:      req.Extra,
	})
	if err != nil {
		return "", remoteError(KindSubmit, "submit", err)
	}

	jobID := resp.JobID()
	if jobID == "" {
		return "", &Error{Kind: KindSubmit, Msg: ErrNoJobID.Error(), Err: ErrNoJobID}
	}
	obs.Submitted(jobID)
	return jobID, nil
}

// poll returns the number of status calls made.
func (e *Engine) poll(ctx context.Context, req models.JobRequest, jobID string, obs Observer) (int, error) {
	pollReq := proxy.PollRequest{
		RequestID:  jobID,
		ServiceURL: SubstituteJobID(req.Endpoints.StatusURL, jobID),
		Extra:      req.Extra,
	}

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		resp, err := e.client.Status(ctx, req.AuthToken, pollReq)
		if err != nil {
			return attempt, remoteError(KindPoll, "status check", err)
		}

		status := strings.ToUpper(strings.TrimSpace(resp.Data.Status))
		obs.Polled(attempt, status)

		switch status {
		case statusCompleted:
			return attempt, nil
		case statusFailed:
			reason := resp.ErrorText()
			if reason == "" {
				reason = "unknown provider error"
			}
			return attempt, &Error{
				Kind: KindProvider,
				Msg:  fmt.Sprintf("%s: %s", ErrProviderFailed.Error(), reason),
				Err:  ErrProviderFailed,
			}
		}

		if attempt < e.policy.MaxAttempts {
			if err := sleep(ctx, e.policy.Interval); err != nil {
				return attempt, interrupted(KindPoll, err)
			}
		}
	}

	return e.policy.MaxAttempts, &Error{
		Kind: KindTimeout,
		Msg:  fmt.Sprintf("%s after %d status checks", ErrPollTimeout.Error(), e.policy.MaxAttempts),
		Err:  ErrPollTimeout,
	}
}

func (e *Engine) fetchResult(ctx context.Context, req models.JobRequest, jobID string) (string, error) {
	resp, err := e.client.Result(ctx, req.AuthToken, proxy.PollRequest{
		RequestID:  jobID,
		ServiceURL: SubstituteJobID(req.Endpoints.ResultURL, jobID),
		Extra:      req.Extra,
	})
	if err != nil {
		return "", remoteError(KindResult, "result fetch", err)
	}

	resultURL := resp.FirstImageURL()
	if resultURL == "" {
		return "", &Error{Kind: KindResult, Msg: ErrNoResult.Error(), Err: ErrNoResult}
	}
	return resultURL, nil
}

var jobIDPlaceholders = []string{"{requestId}", "{request_id}", "{jobId}", "{id}", ":requestId"}

// SubstituteJobID fills the job id into a status or result URL template.
// Templates without a placeholder come back unchanged.
func SubstituteJobID(template, jobID string) string {
	escaped := url.PathEscape(jobID)
	out := template
	for _, p := range jobIDPlaceholders {
		out = strings.ReplaceAll(out, p, escaped)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func uploadError(err error) *Error {
	return &Error{
		Kind: KindUpload,
		Msg:  fmt.Sprintf("%s: %v", ErrUploadFailed.Error(), err),
		Err:  errors.Join(ErrUploadFailed, err),
	}
}

func interrupted(kind Kind, err error) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf("generation interrupted: %v", err), Err: err}
}
