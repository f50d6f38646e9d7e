// Package tui is the bubbletea front end. Key presses and asynchronous
// completions are translated into session events; rendering consumes
// the pure view selector's output.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/flagspot/internal/camera"
	"github.com/jask/flagspot/internal/config"
	"github.com/jask/flagspot/internal/secrets"
	"github.com/jask/flagspot/internal/session"
	"github.com/jask/flagspot/internal/vision"
)

// App ties the state machine to the terminal.
type App struct {
	ctx        context.Context
	cfg        config.Config
	machine    *session.Machine
	cam        camera.Adapter
	classifier vision.Classifier

	spin   spinner.Model
	keys   keyMap
	status string
	width  int

	// API key modal
	editingKey bool
	keyBuffer  string
}

type keyMap struct {
	Start      key.Binding
	Shutter    key.Binding
	Cancel     key.Binding
	Reset      key.Binding
	EditKey    key.Binding
	ToggleConf key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start:      key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "start camera")),
		Shutter:    key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "capture")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new capture")),
		EditKey:    key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "set API key")),
		ToggleConf: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "toggle confidence")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func New(ctx context.Context, cfg config.Config, cam camera.Adapter, classifier vision.Classifier) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return &App{
		ctx:        ctx,
		cfg:        cfg,
		machine:    session.NewMachine(cam),
		cam:        cam,
		classifier: classifier,
		spin:       sp,
		keys:       defaultKeys(),
	}
}

func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// messages posted by asynchronous commands
type (
	streamReadyMsg    struct{ stream camera.Stream }
	acquireFailedMsg  struct{ err error }
	playbackFailedMsg struct {
		stream camera.Stream
		err    error
	}
	classifyDoneMsg   struct{ verdict vision.Verdict }
	classifyFailedMsg struct{ err error }
	keySavedMsg       struct{ err error }
	keyClearedMsg     struct{ err error }
	prefsSavedMsg     struct{ err error }
)

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd
	case tea.KeyMsg:
		if a.editingKey {
			return a.handleKeyModal(m)
		}
		return a.handleKey(m)
	case streamReadyMsg:
		return a, a.dispatch(session.StreamReady{Stream: m.stream})
	case acquireFailedMsg:
		return a, a.dispatch(session.AcquireFailed{Err: m.err})
	case playbackFailedMsg:
		return a, a.dispatch(session.PlaybackFailed{Stream: m.stream, Err: m.err})
	case classifyDoneMsg:
		return a, a.dispatch(session.ClassifyDone{Verdict: m.verdict})
	case classifyFailedMsg:
		return a, a.dispatch(session.ClassifyFailed{Err: m.err})
	case keySavedMsg:
		if m.err != nil {
			a.status = "error: " + m.err.Error()
		} else {
			a.status = "API key saved (restart to apply)"
		}
	case keyClearedMsg:
		if m.err != nil {
			a.status = "error: " + m.err.Error()
		} else {
			a.status = "stored API key cleared"
		}
	case prefsSavedMsg:
		if m.err != nil {
			a.status = "error: " + m.err.Error()
		}
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	phase := a.machine.Session().Phase

	switch {
	case key.Matches(m, a.keys.Quit):
		// leaving CameraActive must release the hardware first
		a.machine.Apply(session.CancelRequested{})
		return a, tea.Quit

	case key.Matches(m, a.keys.Start) && phase == session.PhaseIdle:
		a.status = ""
		return a, a.dispatch(session.StartRequested{})

	case key.Matches(m, a.keys.Shutter) && phase == session.PhaseCameraActive:
		return a, a.dispatch(session.ShutterPressed{})

	case key.Matches(m, a.keys.Cancel) && phase == session.PhaseCameraActive:
		return a, a.dispatch(session.CancelRequested{})

	case key.Matches(m, a.keys.Reset) && phase == session.PhaseResult:
		a.status = ""
		return a, a.dispatch(session.ResetRequested{})

	case key.Matches(m, a.keys.EditKey) && phase == session.PhaseIdle:
		a.editingKey = true
		a.keyBuffer = ""

	case key.Matches(m, a.keys.ToggleConf) && phase == session.PhaseResult:
		a.cfg.UI.ShowConfidence = !a.cfg.UI.ShowConfidence
		return a, savePrefsCmd(a.cfg)
	}
	return a, nil
}

func (a *App) handleKeyModal(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.editingKey = false
		a.keyBuffer = ""
	case tea.KeyEnter:
		text := strings.TrimSpace(a.keyBuffer)
		a.editingKey = false
		a.keyBuffer = ""
		if text == "" {
			a.status = "enter a value"
			return a, nil
		}
		return a, saveKeyCmd(text)
	case tea.KeyCtrlD:
		a.editingKey = false
		a.keyBuffer = ""
		return a, clearKeyCmd()
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(a.keyBuffer) > 0 {
			a.keyBuffer = a.keyBuffer[:len(a.keyBuffer)-1]
		}
	case tea.KeyRunes:
		a.keyBuffer += string(m.Runes)
	}
	return a, nil
}

// dispatch applies one event and starts whatever follow-up operation
// the machine requests.
func (a *App) dispatch(ev session.Event) tea.Cmd {
	switch a.machine.Apply(ev) {
	case session.OpAcquire:
		return a.acquireCmd()
	case session.OpClassify:
		if img := a.machine.Session().CapturedImage; img != nil {
			return a.classifyCmd(*img)
		}
	}
	return nil
}

// acquireCmd runs the acquire + attach-and-play sequence off the update
// loop and posts the outcome back as a message.
func (a *App) acquireCmd() tea.Cmd {
	facing := camera.Facing(a.cfg.Camera.Facing)
	return func() tea.Msg {
		stream, err := a.cam.Acquire(a.ctx, facing)
		if err != nil {
			return acquireFailedMsg{err: err}
		}
		if err := a.cam.AttachAndPlay(a.ctx, stream); err != nil {
			return playbackFailedMsg{stream: stream, err: err}
		}
		return streamReadyMsg{stream: stream}
	}
}

// classifyCmd issues the single classification exchange.
func (a *App) classifyCmd(frame camera.Frame) tea.Cmd {
	return func() tea.Msg {
		v, err := a.classifier.Classify(a.ctx, frame.Data, frame.MIME)
		if err != nil {
			return classifyFailedMsg{err: err}
		}
		return classifyDoneMsg{verdict: v}
	}
}

func saveKeyCmd(value string) tea.Cmd {
	return func() tea.Msg {
		return keySavedMsg{err: secrets.StoreAPIKey(value)}
	}
}

func clearKeyCmd() tea.Cmd {
	return func() tea.Msg {
		return keyClearedMsg{err: secrets.DeleteAPIKey()}
	}
}

// savePrefsCmd persists non-sensitive preferences changed from within
// the app, such as the confidence toggle.
func savePrefsCmd(cfg config.Config) tea.Cmd {
	return func() tea.Msg {
		return prefsSavedMsg{err: config.Save(cfg)}
	}
}

// styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

func (a *App) View() string {
	vd := SelectView(a.machine.Session())

	var body string
	switch vd.Kind {
	case ViewCamera:
		body = a.renderCamera(vd)
	case ViewAnalyzing:
		body = a.renderAnalyzing()
	case ViewSuccess:
		body = a.renderSuccess(vd)
	case ViewFailure:
		body = a.renderFailure(vd)
	default:
		body = a.renderIdle(vd)
	}

	if a.editingKey {
		body += "\n\n" + a.renderKeyModal()
	}
	if a.status != "" {
		body += "\n" + a.status
	}
	return body
}

func (a *App) renderIdle(vd ViewDescriptor) string {
	out := titleStyle.Render("flagspot") + "\n"
	out += "Point the camera at a flag and find out whether the tricolor is flying.\n"
	if vd.Error != nil {
		out += errStyle.Render(fmt.Sprintf("%s: %s", vd.Error.Kind, vd.Error.Message)) + "\n"
		out += hintStyle.Render("[s] Try again  [k] Set API key  [q] Quit")
		return out
	}
	out += hintStyle.Render("[s] Start camera  [k] Set API key  [q] Quit")
	return out
}

func (a *App) renderCamera(vd ViewDescriptor) string {
	out := titleStyle.Render("Camera") + "\n"
	if !vd.Live {
		out += a.spin.View() + " starting camera...\n"
		out += hintStyle.Render("[esc] Cancel  [q] Quit")
		return out
	}
	out += "Live. Frame the flag and press the shutter.\n"
	out += hintStyle.Render("[space] Capture  [esc] Cancel  [q] Quit")
	return out
}

func (a *App) renderAnalyzing() string {
	out := titleStyle.Render("Analyzing") + "\n"
	out += a.spin.View() + " asking the vision service about this frame...\n"
	out += hintStyle.Render("[q] Quit")
	return out
}

func (a *App) renderSuccess(vd ViewDescriptor) string {
	out := titleStyle.Render("Result") + "\n"
	if vd.Verdict.IsTricolorPresent {
		out += okStyle.Render("Tricolor detected") + "\n"
	} else {
		out += failStyle.Render("No tricolor in frame") + "\n"
	}
	out += vd.Verdict.Reason + "\n"
	if len(vd.Verdict.ColorsFound) > 0 {
		out += "Colors (top to bottom): " + strings.Join(vd.Verdict.ColorsFound, ", ") + "\n"
	}
	if a.cfg.UI.ShowConfidence && vd.Verdict.Confidence > 0 {
		out += fmt.Sprintf("Confidence: %.0f%%\n", vd.Verdict.Confidence*100)
	}
	if vd.Image != nil {
		out += hintStyle.Render(fmt.Sprintf("frame %s, %d KiB jpeg", vd.Image.TraceID, len(vd.Image.Data)/1024)) + "\n"
	}
	out += hintStyle.Render("[r] New capture  [c] Toggle confidence  [q] Quit")
	return out
}

func (a *App) renderFailure(vd ViewDescriptor) string {
	out := titleStyle.Render("Result") + "\n"
	out += failStyle.Render("Analysis failed") + "\n"
	out += errStyle.Render(fmt.Sprintf("%s: %s", vd.Error.Kind, vd.Error.Message)) + "\n"
	out += hintStyle.Render("[r] Try another capture  [q] Quit")
	return out
}

func (a *App) renderKeyModal() string {
	masked := strings.Repeat("*", len(a.keyBuffer))
	return titleStyle.Render("Set Gemini API key") + fmt.Sprintf("\n%s\n%s", masked,
		hintStyle.Render("[enter] Save  [ctrl+d] Clear stored  [esc] Cancel"))
}
