package tui

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/flagspot/internal/camera"
	"github.com/jask/flagspot/internal/config"
	"github.com/jask/flagspot/internal/secrets"
	"github.com/jask/flagspot/internal/session"
	"github.com/jask/flagspot/internal/vision"
)

type stubClassifier struct {
	v   vision.Verdict
	err error
}

func (s stubClassifier) Classify(ctx context.Context, image []byte, mime string) (vision.Verdict, error) {
	return s.v, s.err
}

func newTestApp(cam camera.Adapter, c vision.Classifier) *App {
	cfg := config.Config{
		Camera: config.CameraConfig{Facing: "environment"},
		UI:     config.UIConfig{ShowConfidence: true},
	}
	return New(context.Background(), cfg, cam, c)
}

// step feeds one message through Update and synchronously executes the
// returned command, yielding the completion message to feed back in.
func step(a *App, msg tea.Msg) tea.Msg {
	_, cmd := a.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestFullCaptureCycle(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{v: vision.Verdict{
		IsTricolorPresent: true,
		Reason:            "three bands in order",
		ColorsFound:       []string{"saffron", "white", "green"},
		Confidence:        0.95,
	}})

	// start: key press kicks off acquisition, completion comes back in
	done := step(a, keyRune('s'))
	require.IsType(t, streamReadyMsg{}, done)
	require.Equal(t, session.PhaseCameraActive, a.machine.Session().Phase)
	step(a, done)
	require.True(t, a.machine.Session().Live)

	// shutter: frame extracted, stream released, classify issued
	done = step(a, tea.KeyMsg{Type: tea.KeySpace})
	require.IsType(t, classifyDoneMsg{}, done)
	require.Equal(t, session.PhaseAnalyzing, a.machine.Session().Phase)
	require.False(t, f.Held())

	step(a, done)
	s := a.machine.Session()
	require.Equal(t, session.PhaseResult, s.Phase)
	require.True(t, s.Verdict.IsTricolorPresent)

	view := a.View()
	require.Contains(t, view, "Tricolor detected")
	require.Contains(t, view, "saffron, white, green")
	require.Contains(t, view, "95%")

	// reset returns to idle with everything cleared
	step(a, keyRune('r'))
	s = a.machine.Session()
	require.Equal(t, session.PhaseIdle, s.Phase)
	require.Nil(t, s.CapturedImage)
	require.Nil(t, s.Verdict)
	require.Equal(t, 1, f.Acquired())
	require.Equal(t, 1, f.Released())
}

func TestAcquireFailureShowsInlineError(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{AcquireErr: camera.ErrUnavailable}
	a := newTestApp(f, stubClassifier{})

	done := step(a, keyRune('s'))
	require.IsType(t, acquireFailedMsg{}, done)
	step(a, done)

	s := a.machine.Session()
	require.Equal(t, session.PhaseIdle, s.Phase)
	require.Equal(t, session.ErrCameraUnavailable, s.LastError.Kind)
	require.Contains(t, a.View(), "camera-unavailable")
}

func TestClassifyFailureShowsFailureView(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{err: errors.New("vision: response is not valid JSON")})

	step(a, step(a, keyRune('s')))
	done := step(a, tea.KeyMsg{Type: tea.KeySpace})
	require.IsType(t, classifyFailedMsg{}, done)
	step(a, done)

	s := a.machine.Session()
	require.Equal(t, session.PhaseResult, s.Phase)
	require.Nil(t, s.Verdict)
	require.Equal(t, session.ErrNetworkOrParse, s.LastError.Kind)

	view := a.View()
	require.Contains(t, view, "Analysis failed")
	require.Contains(t, view, "network-or-parse-failure")
}

func TestCancelReleasesCamera(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{})

	step(a, step(a, keyRune('s')))
	require.True(t, f.Held())

	step(a, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, session.PhaseIdle, a.machine.Session().Phase)
	require.Nil(t, a.machine.Session().LastError)
	require.False(t, f.Held())
}

func TestQuitFromCameraReleasesStream(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{})

	step(a, step(a, keyRune('s')))
	require.True(t, f.Held())

	msg := step(a, keyRune('q'))
	require.IsType(t, tea.QuitMsg{}, msg)
	require.False(t, f.Held())
}

func TestShutterIgnoredBeforePlaybackStarts(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{})

	// acquisition still pending: start pressed, completion not applied
	step(a, keyRune('s'))
	done := step(a, tea.KeyMsg{Type: tea.KeySpace})
	require.Nil(t, done)
	require.Equal(t, session.PhaseCameraActive, a.machine.Session().Phase)
}

func TestToggleConfidencePersistsPreference(t *testing.T) {
	t.Setenv("FLAGSPOT_CONFIG", filepath.Join(t.TempDir(), "config.toml"))

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{v: vision.Verdict{
		IsTricolorPresent: true,
		Reason:            "ok",
		Confidence:        0.95,
	}})

	step(a, step(a, keyRune('s')))
	step(a, step(a, tea.KeyMsg{Type: tea.KeySpace}))
	require.Contains(t, a.View(), "Confidence: 95%")

	saved := step(a, keyRune('c'))
	require.IsType(t, prefsSavedMsg{}, saved)
	require.NoError(t, saved.(prefsSavedMsg).err)
	require.NotContains(t, a.View(), "Confidence")

	got, err := config.Load()
	require.NoError(t, err)
	require.False(t, got.UI.ShowConfidence)

	// toggling back persists again
	saved = step(a, keyRune('c'))
	require.NoError(t, saved.(prefsSavedMsg).err)
	got, err = config.Load()
	require.NoError(t, err)
	require.True(t, got.UI.ShowConfidence)
}

func TestKeyModalClearsStoredKey(t *testing.T) {
	if runtime.GOOS == "darwin" {
		// os.UserConfigDir ignores XDG_CONFIG_HOME on darwin
		t.Skip("test relies on XDG_CONFIG_HOME redirection")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, secrets.StoreAPIKey("stale-key"))

	a := newTestApp(&camera.Fake{}, stubClassifier{})

	step(a, keyRune('k'))
	require.True(t, a.editingKey)

	cleared := step(a, tea.KeyMsg{Type: tea.KeyCtrlD})
	require.IsType(t, keyClearedMsg{}, cleared)
	require.False(t, a.editingKey)
	step(a, cleared)
	require.Contains(t, a.View(), "stored API key cleared")

	_, err := secrets.FetchAPIKey()
	require.Error(t, err, "key must be gone after clearing")
}

func TestViewsPerPhase(t *testing.T) {
	t.Parallel()

	f := &camera.Fake{}
	a := newTestApp(f, stubClassifier{v: vision.Verdict{Reason: "nothing flag-like here"}})

	require.Contains(t, a.View(), "Start camera")

	ready := step(a, keyRune('s'))
	require.Contains(t, a.View(), "starting camera")

	step(a, ready)
	require.Contains(t, a.View(), "press the shutter")

	done := step(a, tea.KeyMsg{Type: tea.KeySpace})
	require.Contains(t, a.View(), "asking the vision service")

	step(a, done)
	require.Contains(t, a.View(), "No tricolor in frame")
}
