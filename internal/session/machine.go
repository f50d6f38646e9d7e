package session

import (
	"fmt"
	"log/slog"

	"github.com/jask/flagspot/internal/camera"
	"github.com/jask/flagspot/internal/vision"
)

// Event is the closed set of inputs the machine consumes. User intent
// and asynchronous completions both arrive here; asynchronous work
// never mutates the session directly.
type Event interface{ isEvent() }

type (
	// StartRequested begins a cycle from Idle.
	StartRequested struct{}
	// StreamReady reports a successful acquire + playback sequence.
	StreamReady struct{ Stream camera.Stream }
	// AcquireFailed reports that no stream could be obtained.
	AcquireFailed struct{ Err error }
	// PlaybackFailed reports a stream that was acquired but refused to
	// play. It carries the handle so the machine can release it.
	PlaybackFailed struct {
		Stream camera.Stream
		Err    error
	}
	// ShutterPressed captures the current frame.
	ShutterPressed struct{}
	// CancelRequested abandons the camera without capturing.
	CancelRequested struct{}
	// ClassifyDone reports a successful classification.
	ClassifyDone struct{ Verdict vision.Verdict }
	// ClassifyFailed reports a transport or parse failure.
	ClassifyFailed struct{ Err error }
	// ResetRequested returns a finished cycle to Idle.
	ResetRequested struct{}
)

func (StartRequested) isEvent()  {}
func (StreamReady) isEvent()     {}
func (AcquireFailed) isEvent()   {}
func (PlaybackFailed) isEvent()  {}
func (ShutterPressed) isEvent()  {}
func (CancelRequested) isEvent() {}
func (ClassifyDone) isEvent()    {}
func (ClassifyFailed) isEvent()  {}
func (ResetRequested) isEvent()  {}

// Op is the follow-up operation the caller must start after a
// transition. At most one asynchronous operation is outstanding at any
// time; the machine never requests a second one while the first is in
// flight.
type Op int

const (
	OpNone Op = iota
	// OpAcquire: run the acquire + attach-and-play sequence and post
	// StreamReady, AcquireFailed or PlaybackFailed.
	OpAcquire
	// OpClassify: classify Session().CapturedImage and post
	// ClassifyDone or ClassifyFailed.
	OpClassify
)

// Machine applies events to the session. Transitions are synchronous
// and total over (phase, event): events illegal in the current phase
// are dropped, except that a stray StreamReady is released so the
// hardware resource can never leak.
type Machine struct {
	cam camera.Adapter

	s      Session
	stream camera.Stream

	// pendingAcquire is true from issuing OpAcquire until its completion
	// event arrives, even if the user cancels in between. A restart
	// while it is set reuses the in-flight acquisition instead of
	// opening a second one against a single-stream device.
	pendingAcquire bool
}

func NewMachine(cam camera.Adapter) *Machine {
	return &Machine{cam: cam, s: Session{Phase: PhaseIdle}}
}

// Session returns a snapshot of the current session state.
func (m *Machine) Session() Session { return m.s }

// Apply runs one transition and returns the operation the caller must
// start, if any. Leaving CameraActive always releases the stream before
// the next phase is entered.
func (m *Machine) Apply(ev Event) Op {
	op := m.apply(ev)
	if msg := m.invariantViolation(); msg != "" {
		slog.Warn("session: invariant violated", "phase", m.s.Phase, "violation", msg)
	}
	return op
}

func (m *Machine) apply(ev Event) Op {
	switch e := ev.(type) {
	case StartRequested:
		if m.s.Phase != PhaseIdle {
			return OpNone
		}
		m.s.LastError = nil
		m.s.Phase = PhaseCameraActive
		m.s.Live = false
		if m.pendingAcquire {
			// an earlier cancelled acquisition is still in flight; its
			// completion will be adopted instead of starting another
			return OpNone
		}
		m.pendingAcquire = true
		return OpAcquire

	case StreamReady:
		m.pendingAcquire = false
		if m.s.Phase != PhaseCameraActive || m.stream != nil {
			// stale completion (cancelled or duplicate): the handle
			// must still be released exactly once
			m.cam.Release(e.Stream)
			return OpNone
		}
		m.stream = e.Stream
		m.s.Live = true
		return OpNone

	case AcquireFailed:
		m.pendingAcquire = false
		if m.s.Phase != PhaseCameraActive {
			return OpNone
		}
		m.toIdle(&ErrorDescriptor{Kind: ErrCameraUnavailable, Message: message(e.Err)})
		return OpNone

	case PlaybackFailed:
		m.pendingAcquire = false
		if m.s.Phase != PhaseCameraActive {
			m.cam.Release(e.Stream)
			return OpNone
		}
		m.cam.Release(e.Stream)
		m.toIdle(&ErrorDescriptor{Kind: ErrCameraPlayFailed, Message: message(e.Err)})
		return OpNone

	case ShutterPressed:
		if m.s.Phase != PhaseCameraActive || !m.s.Live || m.stream == nil {
			return OpNone
		}
		frame, err := m.cam.ExtractFrame(m.stream)
		m.releaseStream()
		if err != nil {
			// the sink had no decoded frame; should not happen once
			// playback has started
			m.toIdle(&ErrorDescriptor{Kind: ErrCameraPlayFailed, Message: message(err)})
			return OpNone
		}
		m.s.CapturedImage = &frame
		m.s.Phase = PhaseAnalyzing
		m.s.Live = false
		return OpClassify

	case CancelRequested:
		if m.s.Phase != PhaseCameraActive {
			return OpNone
		}
		m.releaseStream()
		m.toIdle(nil)
		return OpNone

	case ClassifyDone:
		if m.s.Phase != PhaseAnalyzing {
			return OpNone
		}
		v := e.Verdict
		m.s.Verdict = &v
		m.s.LastError = nil
		m.enterResult()
		return OpNone

	case ClassifyFailed:
		if m.s.Phase != PhaseAnalyzing {
			return OpNone
		}
		m.s.Verdict = nil
		m.s.LastError = &ErrorDescriptor{Kind: ErrNetworkOrParse, Message: message(e.Err)}
		m.enterResult()
		return OpNone

	case ResetRequested:
		// idempotent: reset from Idle is a no-op
		if m.s.Phase != PhaseResult && m.s.Phase != PhaseIdle {
			return OpNone
		}
		m.reset()
		return OpNone
	}
	return OpNone
}

// enterResult moves to Result, repairing the state if neither a verdict
// nor an error is present. That combination is unreachable through the
// transition table; hitting the repair indicates a logic defect.
func (m *Machine) enterResult() {
	if m.s.Verdict == nil && m.s.LastError == nil {
		slog.Warn("session: result reached with no verdict and no error, forcing reset")
		m.reset()
		return
	}
	m.s.Phase = PhaseResult
}

func (m *Machine) reset() {
	m.releaseStream()
	m.s = Session{Phase: PhaseIdle}
}

func (m *Machine) toIdle(desc *ErrorDescriptor) {
	m.s = Session{Phase: PhaseIdle, LastError: desc}
}

// releaseStream synchronously releases the held stream, if any, before
// the next phase is entered.
func (m *Machine) releaseStream() {
	if m.stream == nil {
		return
	}
	m.cam.Release(m.stream)
	m.stream = nil
	m.s.Live = false
}

// invariantViolation reports the first broken session invariant, or ""
// when the state is consistent. Checked after every transition.
func (m *Machine) invariantViolation() string {
	capturing := m.s.Phase == PhaseAnalyzing || m.s.Phase == PhaseResult
	switch {
	case capturing && m.s.CapturedImage == nil:
		return fmt.Sprintf("no captured image in phase %s", m.s.Phase)
	case !capturing && m.s.CapturedImage != nil:
		return fmt.Sprintf("captured image present in phase %s", m.s.Phase)
	case m.s.Verdict != nil && (m.s.Phase != PhaseResult || m.s.LastError != nil):
		return "verdict present outside a successful result"
	case m.stream != nil && m.s.Phase != PhaseCameraActive:
		return fmt.Sprintf("stream held in phase %s", m.s.Phase)
	}
	return ""
}

func message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
