package models

import "time"

type SessionState struct {
	Phase          Phase      `json:"phase"`
	Mode           Mode       `json:"mode,omitempty"`
	Image          *ImageRef  `json:"image,omitempty"`
	Images         []ImageRef `json:"images"`
	OriginalImages []ImageRef `json:"original_images"`
	UploadedURLs   []string   `json:"uploaded_urls"`
	ProviderJobID  string     `json:"provider_job_id,omitempty"`
	ResultURL      string     `json:"result_url,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ViewerVisible  bool       `json:"viewer_visible"`
	CarouselIndex  int        `json:"carousel_index"`
	PollAttempts   int        `json:"poll_attempts"`
	Prompt         string     `json:"prompt,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type ViewStateResponse struct {
	IsIdle       bool `json:"is_idle"`
	IsEditing    bool `json:"is_editing"`
	IsGenerating bool `json:"is_generating"`
	HasResult    bool `json:"has_result"`
}

type SessionResponse struct {
	State SessionState      `json:"state"`
	View  ViewStateResponse `json:"view"`
}

type JobSummary struct {
	ID            string    `json:"id"`
	Mode          Mode      `json:"mode"`
	Prompt        string    `json:"prompt"`
	ImageCount    int       `json:"image_count"`
	ProviderJobID string    `json:"provider_job_id,omitempty"`
	Status        Phase     `json:"status"`
	ResultURL     string    `json:"result_url,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	PollAttempts  int       `json:"poll_attempts"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

type JobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
