package models

// GenerateRequest is the body of POST /session/generate. Field names follow
// the configuration keys the mobile screens pass around.
type GenerateRequest struct {
	Prompt       string                 `json:"prompt"`
	AIRequestURL string                 `json:"ai_request_url"`
	AIStatusURL  string                 `json:"ai_status_url"`
	AIResultURL  string                 `json:"ai_result_url"`
	// Token is a usage-credit hint. Anything other than a positive finite
	// number is dropped.
	Token interface{}            `json:"token,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}

func (r GenerateRequest) Endpoints() Endpoints {
	return Endpoints{
		SubmitURL: r.AIRequestURL,
		StatusURL: r.AIStatusURL,
		ResultURL: r.AIResultURL,
	}
}

type ViewerRequest struct {
	Visible       *bool `json:"visible,omitempty"`
	CarouselIndex *int  `json:"carousel_index,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
