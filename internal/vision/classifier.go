// Package vision issues the single request/response exchange with the
// remote image-classification service and parses its structured reply.
package vision

import (
	"context"
	"errors"
)

// Sentinel errors for classification.
var (
	ErrNoAPIKey    = errors.New("vision: api key not configured")
	ErrUnparsable  = errors.New("vision: response is not valid JSON")
	ErrEmptyResult = errors.New("vision: empty response")
)

// Verdict is the structured classification result. IsTricolorPresent,
// Reason and ColorsFound are the consumed contract; Confidence and
// Orientation are requested from the service and retained for forward
// compatibility but never drive control flow.
type Verdict struct {
	IsTricolorPresent bool     `json:"isTricolorPresent"`
	Reason            string   `json:"reason"`
	ColorsFound       []string `json:"colorsFound"`
	Confidence        float64  `json:"confidence,omitempty"`
	Orientation       string   `json:"orientation,omitempty"`
}

// Classifier performs exactly one classification attempt per call.
// Retries, backoff and caching are the caller's concern, and the caller
// never issues concurrent calls for the same session.
type Classifier interface {
	Classify(ctx context.Context, image []byte, mime string) (Verdict, error)
}
