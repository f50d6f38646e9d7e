// Package session implements the capture interaction state machine. It
// owns the current phase, drives transitions in response to user intent
// and asynchronous outcomes, and is the only component with invariants
// spanning time.
package session

import (
	"github.com/jask/flagspot/internal/camera"
	"github.com/jask/flagspot/internal/vision"
)

// Phase is the discrete named state of a session.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseCameraActive Phase = "camera-active"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseResult       Phase = "result"
)

// ErrorKind tags the failure taxonomy surfaced to the user.
type ErrorKind string

const (
	ErrCameraUnavailable ErrorKind = "camera-unavailable"
	ErrCameraPlayFailed  ErrorKind = "camera-play-failed"
	ErrNetworkOrParse    ErrorKind = "network-or-parse-failure"
)

// ErrorDescriptor is a tagged reason plus a human-readable message.
// Transient: cleared on reset or on entering a new cycle.
type ErrorDescriptor struct {
	Kind    ErrorKind
	Message string
}

// Session is the single live interaction instance. Exactly one exists
// at a time; it is reset in place per user cycle and never persisted.
//
// Invariants: CapturedImage is present iff Phase is Analyzing or
// Result; Verdict is present only in Result with no error.
type Session struct {
	Phase         Phase
	CapturedImage *camera.Frame
	Verdict       *vision.Verdict
	LastError     *ErrorDescriptor

	// Live is true once playback has started on the held stream, i.e.
	// the shutter affordance may be offered.
	Live bool
}
