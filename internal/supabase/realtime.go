package supabase

import (
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"
)

const eventsTable = "generation_events"

// RealtimeClient publishes session events as rows in generation_events.
// Clients subscribe to that table through Supabase Realtime.
type RealtimeClient struct {
	client *supabase.Client
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
	}
}

type eventRow struct {
	UserID    string                 `json:"user_id"`
	Event     string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

func (r *RealtimeClient) PublishUserEvent(userID string, event string, payload map[string]interface{}) error {
	row := eventRow{
		UserID:    userID,
		Event:     event,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if _, _, err := r.client.From(eventsTable).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	return nil
}

// Event payloads
func UploadStartedPayload(imageCount int) map[string]interface{} {
	return map[string]interface{}{
		"status":      "uploading",
		"image_count": imageCount,
	}
}

func GenerationSubmittedPayload(imageURLs []string) map[string]interface{} {
	return map[string]interface{}{
		"status":     "submitting",
		"image_urls": imageURLs,
	}
}

func GenerationPollingPayload(providerJobID string) map[string]interface{} {
	return map[string]interface{}{
		"status":          "polling",
		"provider_job_id": providerJobID,
	}
}

func GenerationCompletedPayload(providerJobID, resultURL string) map[string]interface{} {
	return map[string]interface{}{
		"status":          "completed",
		"provider_job_id": providerJobID,
		"result_url":      resultURL,
	}
}

func GenerationFailedPayload(providerJobID, errorMsg string) map[string]interface{} {
	return map[string]interface{}{
		"status":          "failed",
		"provider_job_id": providerJobID,
		"error":           errorMsg,
	}
}
