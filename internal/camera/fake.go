package camera

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fake is an in-memory Adapter for tests and offline development. It
// tracks acquire/release pairing so tests can assert that no stream
// leaks and none is released twice.
type Fake struct {
	AcquireErr error // returned by Acquire when set
	PlayErr    error // returned by AttachAndPlay when set
	FrameErr   error // returned by ExtractFrame when set
	FrameData  []byte

	mu           sync.Mutex
	acquired     int
	releaseCalls int
	released     int
	active       *fakeStream
}

type fakeStream struct {
	id       string
	released bool
}

func (s *fakeStream) TraceID() string { return s.id }

func (f *Fake) Acquire(ctx context.Context, facing Facing) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AcquireErr != nil {
		return nil, f.AcquireErr
	}
	if f.active != nil {
		return nil, ErrUnavailable
	}
	s := &fakeStream{id: uuid.NewString()}
	f.active = s
	f.acquired++
	return s, nil
}

func (f *Fake) AttachAndPlay(ctx context.Context, s Stream) error {
	if f.PlayErr != nil {
		return f.PlayErr
	}
	return nil
}

func (f *Fake) ExtractFrame(s Stream) (Frame, error) {
	if f.FrameErr != nil {
		return Frame{}, f.FrameErr
	}
	data := f.FrameData
	if data == nil {
		data = []byte{0xFF, 0xD8, 0xFF, 0xDB, 0xFF, 0xD9}
	}
	return Frame{TraceID: s.TraceID(), Data: data, MIME: "image/jpeg", TakenAt: time.Now().UTC()}, nil
}

func (f *Fake) Release(s Stream) {
	fs, ok := s.(*fakeStream)
	if !ok || fs == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	if fs.released {
		return
	}
	fs.released = true
	f.released++
	if f.active == fs {
		f.active = nil
	}
}

// Acquired and Released report how many unique streams were acquired
// and released; ReleaseCalls counts every non-nil Release invocation so
// tests can distinguish idempotent re-release from a missing one. Held
// reports whether a stream is currently live.
func (f *Fake) Acquired() int     { f.mu.Lock(); defer f.mu.Unlock(); return f.acquired }
func (f *Fake) Released() int     { f.mu.Lock(); defer f.mu.Unlock(); return f.released }
func (f *Fake) ReleaseCalls() int { f.mu.Lock(); defer f.mu.Unlock(); return f.releaseCalls }
func (f *Fake) Held() bool        { f.mu.Lock(); defer f.mu.Unlock(); return f.active != nil }
