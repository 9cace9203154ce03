package brain

import "context"

// Request is a single generation call. Images are base64-encoded and
// only honored by vision-capable models.
type Request struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
}

// Response is the normalized generation result. The engine's native
// return shape (structured object or opaque string) never leaks past
// the adapter boundary.
type Response struct {
	Text string `json:"text"`
}

// Adapter invokes the text-generation engine. Calls are blocking and
// may take seconds; cancellation flows through ctx.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
