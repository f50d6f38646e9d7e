// Package camera wraps acquisition of a live device feed and extraction
// of single still frames as encoded JPEG buffers.
package camera

import (
	"context"
	"errors"
	"time"
)

// Facing selects which camera to prefer when a device has more than one.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Sentinel errors for adapter operations.
var (
	ErrUnavailable = errors.New("camera unavailable")
	ErrPlayFailed  = errors.New("camera playback failed")
	ErrNoFrame     = errors.New("no decoded frame available")
)

// Frame is one captured still, compressed and ready for transmission.
type Frame struct {
	TraceID string
	Data    []byte
	MIME    string
	TakenAt time.Time
}

// Stream is an exclusively owned handle to a live feed. At most one
// stream is active per adapter and a stream never outlives the phase
// that acquired it.
type Stream interface {
	// TraceID identifies the acquisition for logging.
	TraceID() string
}

// Adapter is the capture device boundary used by the session machine.
//
// Acquire requests device access and holds the hardware resource until
// Release. AttachAndPlay starts decoding and blocks until the first
// frame is available; a failure there must leave no half-initialized
// sink behind the caller's back. ExtractFrame returns the most recent
// decoded frame synchronously. Release stops the feed and is
// idempotent, including for a nil stream.
type Adapter interface {
	Acquire(ctx context.Context, facing Facing) (Stream, error)
	AttachAndPlay(ctx context.Context, s Stream) error
	ExtractFrame(s Stream) (Frame, error)
	Release(s Stream)
}
