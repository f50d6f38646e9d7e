package tui

import (
	"github.com/jask/flagspot/internal/camera"
	"github.com/jask/flagspot/internal/session"
	"github.com/jask/flagspot/internal/vision"
)

// ViewKind names the fixed set of renderable views.
type ViewKind int

const (
	ViewIdle ViewKind = iota
	ViewCamera
	ViewAnalyzing
	ViewSuccess
	ViewFailure
)

// ViewDescriptor is the pure mapping output consumed by the render
// layer. Only the fields relevant to Kind are set.
type ViewDescriptor struct {
	Kind    ViewKind
	Live    bool // camera view: playback has started
	Error   *session.ErrorDescriptor
	Image   *camera.Frame
	Verdict *vision.Verdict
}

// SelectView maps a session snapshot to its view descriptor. No state,
// no I/O, fully deterministic.
func SelectView(s session.Session) ViewDescriptor {
	switch s.Phase {
	case session.PhaseCameraActive:
		return ViewDescriptor{Kind: ViewCamera, Live: s.Live}
	case session.PhaseAnalyzing:
		return ViewDescriptor{Kind: ViewAnalyzing}
	case session.PhaseResult:
		if s.LastError != nil {
			return ViewDescriptor{Kind: ViewFailure, Error: s.LastError}
		}
		return ViewDescriptor{Kind: ViewSuccess, Image: s.CapturedImage, Verdict: s.Verdict}
	default:
		return ViewDescriptor{Kind: ViewIdle, Error: s.LastError}
	}
}
