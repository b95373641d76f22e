package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Phase is the lifecycle position of the single job held by a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUploading  Phase = "uploading"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Working reports whether the phase belongs to an in-flight job.
func (p Phase) Working() bool {
	switch p {
	case PhaseUploading, PhaseSubmitting, PhasePolling:
		return true
	}
	return false
}

// Terminal reports whether the job has finished, successfully or not.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Mode selects between the single-image and multi-image code paths.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ParseMode accepts "single" or "multi" (case-insensitive). Anything else
// falls back to def.
func ParseMode(s string, def Mode) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle:
		return ModeSingle
	case ModeMulti:
		return ModeMulti
	}
	return def
}

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadUploaded  UploadStatus = "uploaded"
	UploadFailed    UploadStatus = "failed"
)

// ImageRef is a locally selected image and, once uploaded, its durable URL.
type ImageRef struct {
	LocalURI     string       `json:"local_uri"`
	RemoteURL    string       `json:"remote_url,omitempty"`
	UploadStatus UploadStatus `json:"upload_status"`
}

func NewImageRef(localURI string) ImageRef {
	return ImageRef{LocalURI: localURI, UploadStatus: UploadPending}
}

// Endpoints are the caller-supplied provider URLs. StatusURL and ResultURL may
// contain a job id placeholder.
type Endpoints struct {
	SubmitURL string `json:"submit_url"`
	StatusURL string `json:"status_url"`
	ResultURL string `json:"result_url"`
}

// JobRequest is everything the workflow engine needs to run one generation.
type JobRequest struct {
	UserID    string
	Mode      Mode
	Images    []string
	Prompt    string
	Endpoints Endpoints
	AuthToken string
	Extra     map[string]interface{}
}

// JobRecord is a finished generation as kept in the history table.
type JobRecord struct {
	ID            string
	UserID        string
	Mode          Mode
	Prompt        string
	ImageCount    int
	ProviderJobID string
	Status        Phase
	ResultURL     string
	FailureReason string
	PollAttempts  int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// ParseCreditHint validates the optional usage-credit hint sent by clients.
// Only positive finite numbers survive; numeric strings are accepted too.
func ParseCreditHint(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}
