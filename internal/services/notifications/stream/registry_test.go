package stream

import (
	"errors"
	"sync"
	"testing"
)

// fakeSink records frames and closes so tests can assert delivery and
// teardown ordering.
type fakeSink struct {
	mu       sync.Mutex
	frames   []Frame
	closed   int
	writeErr error
}

func (s *fakeSink) WriteFrame(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *fakeSink) lastFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}
	}
	return s.frames[len(s.frames)-1]
}

func (s *fakeSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) failWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = errors.New("write failed")
}

func TestRegister_ReplacesAndClosesPreviousConnection(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	first := &fakeSink{}
	second := &fakeSink{}

	registry.Register("user-1", first)
	registry.Register("user-1", second)

	if got := first.closeCount(); got != 1 {
		t.Fatalf("expected replaced sink to be closed once, got %d closes", got)
	}
	if got := registry.Count(); got != 1 {
		t.Fatalf("expected one live connection after replacement, got %d", got)
	}

	if !registry.TryDeliver("user-1", Frame{Type: FrameTypePing}) {
		t.Fatal("expected delivery to the replacement connection to succeed")
	}
	if got := first.frameCount(); got != 0 {
		t.Fatalf("expected no frames on the replaced sink, got %d", got)
	}
	if got := second.frameCount(); got != 1 {
		t.Fatalf("expected one frame on the replacement sink, got %d", got)
	}
}

func TestUnregister_IsIdempotent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	sink := &fakeSink{}
	registry.Register("user-1", sink)

	registry.Unregister("user-1")
	registry.Unregister("user-1")
	registry.Unregister("never-connected")

	if registry.IsConnected("user-1") {
		t.Fatal("expected user to be disconnected after unregister")
	}
	if got := sink.closeCount(); got != 1 {
		t.Fatalf("expected exactly one close, got %d", got)
	}
}

func TestRemove_LeavesNewerReplacementAlone(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	stale := registry.Register("user-1", &fakeSink{})
	registry.Register("user-1", &fakeSink{})

	registry.Remove(stale)

	if !registry.IsConnected("user-1") {
		t.Fatal("expected removing a stale handle to leave the newer connection registered")
	}
}

func TestRemove_DetachesCurrentConnection(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	sink := &fakeSink{}
	conn := registry.Register("user-1", sink)

	registry.Remove(conn)

	if registry.IsConnected("user-1") {
		t.Fatal("expected user to be disconnected after remove")
	}
	if got := sink.closeCount(); got != 1 {
		t.Fatalf("expected sink to be closed once, got %d", got)
	}
}

func TestTryDeliver_ReportsMissWithoutConnection(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	if registry.TryDeliver("user-1", Frame{Type: FrameTypePing}) {
		t.Fatal("expected delivery to an unconnected user to report false")
	}
}

func TestTryDeliver_UnregistersOnWriteFailure(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	sink := &fakeSink{}
	registry.Register("user-1", sink)
	sink.failWrites()

	if registry.TryDeliver("user-1", Frame{Type: FrameTypePing}) {
		t.Fatal("expected delivery over a broken sink to report false")
	}
	if registry.IsConnected("user-1") {
		t.Fatal("expected broken connection to be unregistered after write failure")
	}
	if got := sink.closeCount(); got != 1 {
		t.Fatalf("expected broken sink to be closed once, got %d", got)
	}
}

func TestCount_TracksDistinctUsers(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("user-1", &fakeSink{})
	registry.Register("user-2", &fakeSink{})
	registry.Register("user-1", &fakeSink{})

	if got := registry.Count(); got != 2 {
		t.Fatalf("expected two live connections, got %d", got)
	}
}
