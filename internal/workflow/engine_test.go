package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/proxy"
	"photo-studio-backend/internal/workflow"
)

type fakeUploader struct {
	mu     sync.Mutex
	paths  []string
	failAt int
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{failAt: -1}
}

func (u *fakeUploader) Upload(_ context.Context, objectPath string, _ []byte, _ string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.paths) == u.failAt {
		return "", errors.New("bucket unavailable")
	}
	u.paths = append(u.paths, objectPath)
	return "https://cdn.test/" + objectPath, nil
}

func (u *fakeUploader) Remove(context.Context, []string) error { return nil }

func (u *fakeUploader) ObjectPathFromURL(url string) (string, bool) {
	return strings.TrimPrefix(url, "https://cdn.test/"), strings.HasPrefix(url, "https://cdn.test/")
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.paths)
}

// fakeProxy answers /submit, /status and /result like the job proxy does.
type fakeProxy struct {
	t *testing.T

	mu           sync.Mutex
	submitBodies []map[string]interface{}
	statusBodies []map[string]interface{}
	resultCalls  int
	authHeaders  []string

	submitStatus int
	submitBody   string
	statuses     []string
	failureError string
	resultBody   string

	// Non-zero codes make the endpoint answer with that status and the
	// matching body.
	statusCode       int
	statusErrBody    string
	resultStatusCode int
	resultErrBody    string
}

func newFakeProxy(t *testing.T, statuses ...string) *fakeProxy {
	return &fakeProxy{
		t:            t,
		submitStatus: http.StatusOK,
		submitBody:   `{"data":{"request_id":"42"}}`,
		statuses:     statuses,
		resultBody:   `{"data":{"images":[{"url":"https://cdn/x.jpg"}]}}`,
	}
}

func (p *fakeProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	require.NoError(p.t, json.NewDecoder(r.Body).Decode(&body))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.authHeaders = append(p.authHeaders, r.Header.Get("Authorization"))

	switch r.URL.Path {
	case "/submit":
		p.submitBodies = append(p.submitBodies, body)
		w.WriteHeader(p.submitStatus)
		_, _ = w.Write([]byte(p.submitBody))
	case "/status":
		p.statusBodies = append(p.statusBodies, body)
		if p.statusCode != 0 {
			w.WriteHeader(p.statusCode)
			_, _ = w.Write([]byte(p.statusErrBody))
			return
		}
		status := "IN_PROGRESS"
		if n := len(p.statusBodies); n <= len(p.statuses) {
			status = p.statuses[n-1]
		}
		resp := map[string]interface{}{"status": status}
		if status == "FAILED" {
			resp["error"] = p.failureError
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": resp})
	case "/result":
		p.resultCalls++
		if p.resultStatusCode != 0 {
			w.WriteHeader(p.resultStatusCode)
			_, _ = w.Write([]byte(p.resultErrBody))
			return
		}
		_, _ = w.Write([]byte(p.resultBody))
	default:
		http.NotFound(w, r)
	}
}

func (p *fakeProxy) counts() (submits, statuses, results int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.submitBodies), len(p.statusBodies), p.resultCalls
}

type recordingObserver struct {
	workflow.NopObserver
	events []string
}

func (o *recordingObserver) Uploaded(i int, url string) {
	o.events = append(o.events, fmt.Sprintf("uploaded:%d", i))
}

func (o *recordingObserver) Submitting(urls []string) {
	o.events = append(o.events, fmt.Sprintf("submitting:%d", len(urls)))
}

func (o *recordingObserver) Submitted(id string) {
	o.events = append(o.events, "submitted:"+id)
}

func (o *recordingObserver) Polled(n int, status string) {
	o.events = append(o.events, fmt.Sprintf("polled:%d:%s", n, status))
}

func mapReader(files map[string]string) workflow.FileReader {
	return func(uri string) ([]byte, error) {
		data, ok := files[uri]
		if !ok {
			return nil, fmt.Errorf("no such file %s", uri)
		}
		return []byte(data), nil
	}
}

var testFiles = map[string]string{
	"file://a.jpg": "jpeg-a",
	"file://b.jpg": "jpeg-b",
	"file://c.png": "png-c",
}

func setup(t *testing.T, p *fakeProxy, policy workflow.PollPolicy) (*workflow.Engine, *fakeUploader) {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	uploader := newFakeUploader()
	engine := workflow.NewEngine(
		uploader,
		proxy.NewClient(proxy.Options{BaseURL: srv.URL}),
		workflow.WithPollPolicy(policy),
		workflow.WithFileReader(mapReader(testFiles)),
		workflow.WithObjectPrefix("uploads"),
		workflow.WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	return engine, uploader
}

func fastPolicy(attempts int) workflow.PollPolicy {
	return workflow.PollPolicy{MaxAttempts: attempts, Interval: time.Millisecond}
}

func validRequest() models.JobRequest {
	return models.JobRequest{
		UserID: "user-1",
		Mode:   models.ModeSingle,
		Images: []string{"file://a.jpg"},
		Prompt: "add a hat",
		Endpoints: models.Endpoints{
			SubmitURL: "https://provider.test/submit",
			StatusURL: "https://provider.test/requests/{requestId}/status",
			ResultURL: "https://provider.test/requests/{requestId}",
		},
		AuthToken: "jwt-token",
	}
}

func TestValidatePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.JobRequest)
		want   error
	}{
		{"everything missing", func(r *models.JobRequest) { *r = models.JobRequest{} }, workflow.ErrNoImage},
		{"no image", func(r *models.JobRequest) { r.Images = nil; r.Prompt = "" }, workflow.ErrNoImage},
		{"blank image", func(r *models.JobRequest) { r.Images = []string{"  "} }, workflow.ErrNoImage},
		{"no prompt", func(r *models.JobRequest) { r.Prompt = " "; r.Endpoints = models.Endpoints{} }, workflow.ErrNoPrompt},
		{"no submit url", func(r *models.JobRequest) { r.Endpoints.SubmitURL = ""; r.Endpoints.StatusURL = "" }, workflow.ErrNoSubmitURL},
		{"no status url", func(r *models.JobRequest) { r.Endpoints.StatusURL = ""; r.Endpoints.ResultURL = "" }, workflow.ErrNoStatusURL},
		{"no result url", func(r *models.JobRequest) { r.Endpoints.ResultURL = "" }, workflow.ErrNoResultURL},
		{"single mode with many images", func(r *models.JobRequest) { r.Images = []string{"file://a.jpg", "file://b.jpg"} }, workflow.ErrModeImages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProxy(t, "COMPLETED")
			engine, uploader := setup(t, p, fastPolicy(3))

			req := validRequest()
			tt.mutate(&req)
			if req.Mode == "" {
				req.Mode = models.ModeSingle
			}

			_, err := engine.Run(context.Background(), req, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want.Error(), err.Error())
			assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))

			submits, statuses, results := p.counts()
			assert.Zero(t, uploader.count())
			assert.Zero(t, submits+statuses+results)
		})
	}
}

func TestRunEndToEndSingleImage(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	engine, uploader := setup(t, p, fastPolicy(60))
	obs := &recordingObserver{}

	resultURL, err := engine.Run(context.Background(), validRequest(), obs)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.jpg", resultURL)

	submits, statuses, results := p.counts()
	assert.Equal(t, 1, submits)
	assert.Equal(t, 1, statuses)
	assert.Equal(t, 1, results)

	assert.Equal(t, []string{"uploads/user-1/1700000000000.jpg"}, uploader.paths)

	submit := p.submitBodies[0]
	assert.Equal(t, "add a hat", submit["prompt"])
	assert.Equal(t, "https://provider.test/submit", submit["serviceUrl"])
	assert.Equal(t, []interface{}{"https://cdn.test/uploads/user-1/1700000000000.jpg"}, submit["image_urls"])

	status := p.statusBodies[0]
	assert.Equal(t, "42", status["requestId"])
	assert.Equal(t, "https://provider.test/requests/42/status", status["serviceUrl"])

	for _, h := range p.authHeaders {
		assert.Equal(t, "Bearer jwt-token", h)
	}
	assert.Equal(t, []string{"uploaded:0", "submitting:1", "submitted:42", "polled:1:COMPLETED"}, obs.events)
}

func TestRunPreservesImageOrder(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	engine, uploader := setup(t, p, fastPolicy(5))

	req := validRequest()
	req.Mode = models.ModeMulti
	req.Images = []string{"file://a.jpg", "file://b.jpg", "file://c.png"}

	_, err := engine.Run(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"uploads/user-1/1700000000000-0.jpg",
		"uploads/user-1/1700000000000-1.jpg",
		"uploads/user-1/1700000000000-2.png",
	}, uploader.paths)
	assert.Equal(t, []interface{}{
		"https://cdn.test/uploads/user-1/1700000000000-0.jpg",
		"https://cdn.test/uploads/user-1/1700000000000-1.jpg",
		"https://cdn.test/uploads/user-1/1700000000000-2.png",
	}, p.submitBodies[0]["image_urls"])
}

func TestRunPollsUntilCompleted(t *testing.T) {
	p := newFakeProxy(t, "PENDING", "in_progress", "completed")
	engine, _ := setup(t, p, fastPolicy(60))

	resultURL, err := engine.Run(context.Background(), validRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.jpg", resultURL)

	_, statuses, results := p.counts()
	assert.Equal(t, 3, statuses)
	assert.Equal(t, 1, results)
}

func TestRunProviderFailure(t *testing.T) {
	p := newFakeProxy(t, "PENDING", "FAILED")
	p.failureError = "content policy violation"
	engine, _ := setup(t, p, fastPolicy(60))

	resultURL, err := engine.Run(context.Background(), validRequest(), nil)
	require.Error(t, err)
	assert.Empty(t, resultURL)
	assert.ErrorIs(t, err, workflow.ErrProviderFailed)
	assert.Equal(t, workflow.KindProvider, workflow.KindOf(err))
	assert.Contains(t, err.Error(), "content policy violation")

	_, statuses, results := p.counts()
	assert.Equal(t, 2, statuses)
	assert.Zero(t, results)
}

func TestRunTimesOut(t *testing.T) {
	p := newFakeProxy(t)
	engine, _ := setup(t, p, workflow.PollPolicy{MaxAttempts: 60, Interval: 0})

	_, err := engine.Run(context.Background(), validRequest(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrPollTimeout)
	assert.Equal(t, workflow.KindTimeout, workflow.KindOf(err))
	assert.Equal(t, "generation timed out after 60 status checks", err.Error())

	_, statuses, results := p.counts()
	assert.Equal(t, 60, statuses)
	assert.Zero(t, results)
}

func TestRunDoesNotSleepAfterLastAttempt(t *testing.T) {
	p := newFakeProxy(t)
	engine, _ := setup(t, p, workflow.PollPolicy{MaxAttempts: 1, Interval: time.Second})

	start := time.Now()
	_, err := engine.Run(context.Background(), validRequest(), nil)
	require.ErrorIs(t, err, workflow.ErrPollTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRunSubmitHTTPError(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	p.submitStatus = http.StatusBadGateway
	p.submitBody = "upstream down"
	engine, _ := setup(t, p, fastPolicy(3))

	_, err := engine.Run(context.Background(), validRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, workflow.KindSubmit, workflow.KindOf(err))
	assert.Equal(t, "submit failed: status 502, body: upstream down", err.Error())

	var wfErr *workflow.Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, http.StatusBadGateway, wfErr.StatusCode)

	_, statuses, _ := p.counts()
	assert.Zero(t, statuses)
}

func TestRunStatusHTTPError(t *testing.T) {
	p := newFakeProxy(t)
	p.statusCode = http.StatusServiceUnavailable
	p.statusErrBody = "busy"
	engine, _ := setup(t, p, fastPolicy(5))

	_, err := engine.Run(context.Background(), validRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, workflow.KindPoll, workflow.KindOf(err))
	assert.Equal(t, "status check failed: status 503, body: busy", err.Error())

	var wfErr *workflow.Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, http.StatusServiceUnavailable, wfErr.StatusCode)

	_, statuses, results := p.counts()
	assert.Equal(t, 1, statuses)
	assert.Zero(t, results)
}

func TestRunResultHTTPError(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	p.resultStatusCode = http.StatusInternalServerError
	p.resultErrBody = "result store offline"
	engine, _ := setup(t, p, fastPolicy(3))

	_, err := engine.Run(context.Background(), validRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, workflow.KindResult, workflow.KindOf(err))
	assert.Equal(t, "result fetch failed: status 500, body: result store offline", err.Error())

	var wfErr *workflow.Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, http.StatusInternalServerError, wfErr.StatusCode)

	_, statuses, results := p.counts()
	assert.Equal(t, 1, statuses)
	assert.Equal(t, 1, results)
}

func TestRunMissingJobID(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	p.submitBody = `{"data":{}}`
	engine, _ := setup(t, p, fastPolicy(3))

	_, err := engine.Run(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, workflow.ErrNoJobID)
}

func TestRunMalformedSubmitResponse(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	p.submitBody = `<html>oops</html>`
	engine, _ := setup(t, p, fastPolicy(3))

	_, err := engine.Run(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, workflow.ErrMalformedResponse)
	assert.Equal(t, workflow.KindSubmit, workflow.KindOf(err))
}

func TestRunNoResultURL(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	p.resultBody = `{"data":{"images":[]}}`
	engine, _ := setup(t, p, fastPolicy(3))

	resultURL, err := engine.Run(context.Background(), validRequest(), nil)
	assert.Empty(t, resultURL)
	assert.ErrorIs(t, err, workflow.ErrNoResult)
	assert.Equal(t, workflow.KindResult, workflow.KindOf(err))
}

func TestRunUploadFailureAbortsJob(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	engine, uploader := setup(t, p, fastPolicy(3))
	uploader.failAt = 1

	req := validRequest()
	req.Mode = models.ModeMulti
	req.Images = []string{"file://a.jpg", "file://b.jpg", "file://c.png"}

	_, err := engine.Run(context.Background(), req, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrUploadFailed)
	assert.Equal(t, workflow.KindUpload, workflow.KindOf(err))
	assert.Contains(t, err.Error(), "image could not be uploaded")
	assert.Equal(t, 1, uploader.count())

	submits, _, _ := p.counts()
	assert.Zero(t, submits)
}

func TestRunUnreadableImage(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	engine, _ := setup(t, p, fastPolicy(3))

	req := validRequest()
	req.Images = []string{"file://missing.jpg"}

	_, err := engine.Run(context.Background(), req, nil)
	assert.Equal(t, workflow.KindUpload, workflow.KindOf(err))
}

func TestRunCancelledWhilePolling(t *testing.T) {
	p := newFakeProxy(t)
	engine, _ := setup(t, p, workflow.PollPolicy{MaxAttempts: 60, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	obs := &cancelOnPoll{cancel: cancel}

	_, err := engine.Run(ctx, validRequest(), obs)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, workflow.KindPoll, workflow.KindOf(err))

	_, statuses, _ := p.counts()
	assert.Equal(t, 1, statuses)
}

type cancelOnPoll struct {
	workflow.NopObserver
	cancel context.CancelFunc
}

func (c *cancelOnPoll) Polled(int, string) { c.cancel() }

func TestRunInfersMode(t *testing.T) {
	p := newFakeProxy(t, "COMPLETED")
	engine, uploader := setup(t, p, fastPolicy(3))

	req := validRequest()
	req.Mode = ""
	req.Images = []string{"file://a.jpg", "file://b.jpg"}

	_, err := engine.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"uploads/user-1/1700000000000-0.jpg",
		"uploads/user-1/1700000000000-1.jpg",
	}, uploader.paths)
}

func TestSubstituteJobID(t *testing.T) {
	assert.Equal(t, "https://p.test/r/42/status", workflow.SubstituteJobID("https://p.test/r/{requestId}/status", "42"))
	assert.Equal(t, "https://p.test/r/42", workflow.SubstituteJobID("https://p.test/r/{request_id}", "42"))
	assert.Equal(t, "https://p.test/r/42", workflow.SubstituteJobID("https://p.test/r/:requestId", "42"))
	assert.Equal(t, "https://p.test/r/a%2Fb", workflow.SubstituteJobID("https://p.test/r/{id}", "a/b"))
	assert.Equal(t, "https://p.test/status", workflow.SubstituteJobID("https://p.test/status", "42"))
}

func TestPollPolicyBudget(t *testing.T) {
	assert.Equal(t, 177*time.Second, workflow.DefaultPollPolicy().Budget())
	assert.Zero(t, workflow.PollPolicy{MaxAttempts: 1, Interval: time.Second}.Budget())
}
