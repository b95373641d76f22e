package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMalformedResponse is returned when a 2xx body does not decode into the
// endpoint's response schema.
var ErrMalformedResponse = errors.New("malformed response")

// HTTPError is a non-2xx answer from the proxy. Body is kept verbatim.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s failed: status %d, body: %s", e.Op, e.StatusCode, e.Body)
}

type Options struct {
	// BaseURL is the job proxy. Requests go to <BaseURL>/submit, /status and
	// /result with the provider URL in serviceUrl. When empty, requests go
	// straight to the provider URL.
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type SubmitRequest struct {
	Prompt     string                 `json:"prompt"`
	ImageURLs  []string               `json:"image_urls"`
	ServiceURL string                 `json:"serviceUrl"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

type SubmitResponse struct {
	Data struct {
		RequestID      ProviderID `json:"request_id"`
		RequestIDCamel ProviderID `json:"requestId"`
		ID             ProviderID `json:"id"`
	} `json:"data"`
}

// JobID returns the provider job id, whichever spelling the provider used.
func (r *SubmitResponse) JobID() string {
	for _, id := range []ProviderID{r.Data.RequestID, r.Data.RequestIDCamel, r.Data.ID} {
		if s := strings.TrimSpace(string(id)); s != "" {
			return s
		}
	}
	return ""
}

// ProviderID is a provider job id. Providers send it as a JSON string or
// number.
type ProviderID string

func (id *ProviderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProviderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("job id must be a string or number: %w", err)
	}
	*id = ProviderID(n.String())
	return nil
}

// PollRequest is the body for both the status and the result endpoint.
type PollRequest struct {
	RequestID  string                 `json:"requestId"`
	ServiceURL string                 `json:"serviceUrl"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

type StatusResponse struct {
	Data struct {
		Status string          `json:"status"`
		Error  json.RawMessage `json:"error,omitempty"`
	} `json:"data"`
}

// ErrorText renders data.error whether the provider sent a string or an
// object.
func (r *StatusResponse) ErrorText() string {
	raw := bytes.TrimSpace(r.Data.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Detail != "" {
			return obj.Detail
		}
	}
	return string(raw)
}

type ResultResponse struct {
	Data struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"data"`
}

// FirstImageURL returns the first non-empty image URL.
func (r *ResultResponse) FirstImageURL() string {
	for _, img := range r.Data.Images {
		if u := strings.TrimSpace(img.URL); u != "" {
			return u
		}
	}
	return ""
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
	}
}

func (c *Client) Submit(ctx context.Context, token string, req SubmitRequest) (*SubmitResponse, error) {
	var result SubmitResponse
	if err := c.post(ctx, "submit", c.target("submit", req.ServiceURL), token, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Status(ctx context.Context, token string, req PollRequest) (*StatusResponse, error) {
	var result StatusResponse
	if err := c.post(ctx, "status", c.target("status", req.ServiceURL), token, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Result(ctx context.Context, token string, req PollRequest) (*ResultResponse, error) {
	var result ResultResponse
	if err := c.post(ctx, "result", c.target("result", req.ServiceURL), token, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) target(route, serviceURL string) string {
	if c.baseURL == "" {
		return serviceURL
	}
	return c.baseURL + "/" + route
}

func (c *Client) post(ctx context.Context, op, url, token string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v, body: %s", op, ErrMalformedResponse, err, string(body))
	}
	return nil
}
