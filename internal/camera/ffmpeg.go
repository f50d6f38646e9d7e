package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mjpegMaxBuffer bounds the scan buffer so a stream that never yields a
// complete frame cannot grow memory without limit.
const mjpegMaxBuffer = 8 << 20

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpeg captures frames by running ffmpeg against the platform camera
// device and splitting its MJPEG output into individual JPEG buffers.
type FFmpeg struct {
	device string // explicit device path/index, "" picks the platform default

	mu     sync.Mutex
	active *ffmpegStream
}

// NewFFmpeg validates that the ffmpeg binary is present (fail-fast) and
// returns an adapter bound to the given device. An empty device selects
// the platform default.
func NewFFmpeg(device string) (*FFmpeg, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not installed or not in PATH: %v", ErrUnavailable, err)
	}
	return &FFmpeg{device: device}, nil
}

type ffmpegStream struct {
	id     string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc

	mu      sync.Mutex
	latest  []byte
	frames  uint64
	runErr  error
	started bool

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
}

func (s *ffmpegStream) TraceID() string { return s.id }

// Acquire starts the capture subprocess. The device resource is held
// from here until Release, even if playback never starts.
func (f *FFmpeg) Acquire(ctx context.Context, facing Facing) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active != nil {
		return nil, fmt.Errorf("%w: stream already active", ErrUnavailable)
	}

	args, err := captureArgs(runtime.GOOS, f.device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start capture: %v", ErrUnavailable, err)
	}

	s := &ffmpegStream{
		id:     uuid.NewString(),
		cmd:    cmd,
		stdout: stdout,
		cancel: cancel,
		first:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	f.active = s

	slog.Info("camera: stream acquired",
		"trace_id", s.id,
		"facing", string(facing),
		"device", f.device,
		"os", runtime.GOOS,
	)
	return s, nil
}

// AttachAndPlay starts the frame reader and blocks until the first
// complete frame has been decoded. A stream whose subprocess exits
// before producing a frame fails here, not later in ExtractFrame.
func (f *FFmpeg) AttachAndPlay(ctx context.Context, stream Stream) error {
	s, ok := stream.(*ffmpegStream)
	if !ok || s == nil {
		return fmt.Errorf("%w: not an ffmpeg stream", ErrPlayFailed)
	}

	s.mu.Lock()
	if !s.started {
		s.started = true
		go s.run()
	}
	s.mu.Unlock()

	select {
	case <-s.first:
		slog.Info("camera: playback started", "trace_id", s.id)
		return nil
	case <-s.done:
		return fmt.Errorf("%w: capture process exited before first frame: %v", ErrPlayFailed, s.err())
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPlayFailed, ctx.Err())
	}
}

// ExtractFrame returns a copy of the most recent decoded frame.
func (f *FFmpeg) ExtractFrame(stream Stream) (Frame, error) {
	s, ok := stream.(*ffmpegStream)
	if !ok || s == nil {
		return Frame{}, ErrNoFrame
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latest) == 0 {
		return Frame{}, ErrNoFrame
	}
	data := make([]byte, len(s.latest))
	copy(data, s.latest)
	return Frame{
		TraceID: s.id,
		Data:    data,
		MIME:    "image/jpeg",
		TakenAt: time.Now().UTC(),
	}, nil
}

// Release stops the subprocess and detaches the stream. Idempotent;
// releasing nil or an already-released stream is a no-op.
func (f *FFmpeg) Release(stream Stream) {
	s, ok := stream.(*ffmpegStream)
	if !ok || s == nil {
		return
	}

	f.mu.Lock()
	if f.active == s {
		f.active = nil
	}
	f.mu.Unlock()

	s.cancel()
	_ = s.stdout.Close()

	// Wait must not race the reader goroutine's stdout reads
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
	_ = s.cmd.Wait()

	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()
	slog.Info("camera: stream released", "trace_id", s.id, "frames_decoded", frames)
}

func (s *ffmpegStream) run() {
	defer close(s.done)

	buf := make([]byte, 32*1024)
	var acc []byte
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			for {
				frame, rest, ok := splitJPEG(acc)
				if !ok {
					acc = rest
					break
				}
				s.mu.Lock()
				s.latest = frame
				s.frames++
				s.mu.Unlock()
				s.firstOnce.Do(func() { close(s.first) })
				acc = rest
			}
			if len(acc) > mjpegMaxBuffer {
				// corrupt stream with no frame boundary in sight
				acc = nil
			}
		}
		if err != nil {
			s.mu.Lock()
			s.runErr = err
			s.mu.Unlock()
			return
		}
	}
}

func (s *ffmpegStream) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// splitJPEG extracts the first complete JPEG from b. rest is the
// remaining unconsumed bytes (with any garbage before the start marker
// dropped); ok is false when no complete frame is present yet.
func splitJPEG(b []byte) (frame, rest []byte, ok bool) {
	start := bytes.Index(b, jpegSOI)
	if start < 0 {
		// the tail may be a start marker split across a read boundary
		if keep := len(jpegSOI) - 1; len(b) > keep {
			b = b[len(b)-keep:]
		}
		return nil, b, false
	}
	b = b[start:]
	end := bytes.Index(b[2:], jpegEOI)
	if end < 0 {
		return nil, b, false
	}
	end += 2 + len(jpegEOI)
	frame = make([]byte, end)
	copy(frame, b[:end])
	return frame, b[end:], true
}

// captureArgs builds the ffmpeg invocation for one MJPEG stream on
// stdout. Device defaults: /dev/video0 on linux, avfoundation index 0
// on darwin.
func captureArgs(goos, device string) ([]string, error) {
	switch goos {
	case "linux":
		if device == "" {
			device = "/dev/video0"
		}
		return []string{
			"-loglevel", "error",
			"-f", "v4l2",
			"-i", device,
			"-f", "mjpeg",
			"-q:v", "4",
			"-",
		}, nil
	case "darwin":
		if device == "" {
			device = "0"
		}
		return []string{
			"-loglevel", "error",
			"-f", "avfoundation",
			"-framerate", "30",
			"-i", device,
			"-f", "mjpeg",
			"-q:v", "4",
			"-",
		}, nil
	default:
		return nil, fmt.Errorf("no capture backend for %s", goos)
	}
}
