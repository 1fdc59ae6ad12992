package sessions

import (
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/armaxri/termihub-agent/internal/backend"
	"github.com/armaxri/termihub-agent/internal/coalesce"
)

type fakeBackend struct {
	alive   atomic.Bool
	written [][]byte
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.alive.Store(true)
	return b
}

func (f *fakeBackend) WriteInput(data []byte) error {
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}
func (f *fakeBackend) Resize(cols, rows int) error { return nil }
func (f *fakeBackend) Attach() error               { return nil }
func (f *fakeBackend) Detach() error                { return nil }
func (f *fakeBackend) Close() error {
	f.alive.Store(false)
	return nil
}
func (f *fakeBackend) IsAlive() bool { return f.alive.Load() }

// newTestManagerWithFakeSession bypasses the real backend factory so
// tests exercise registry semantics without spawning OS processes.
func newTestManagerWithFakeSession(t *testing.T) (*Manager, string, *fakeBackend) {
	t.Helper()
	m := NewManager(0, 64)
	id := "test-session"
	fb := newFakeBackend()

	rec := &record{
		snapshot: Snapshot{
			ID:        id,
			Type:      backend.KindShell,
			Status:    StatusRunning,
			CreatedAt: time.Now().UTC(),
		},
		buf:     newTestRingbuf(),
		backend: fb,
	}
	m.records[id] = rec
	return m, id, fb
}

func TestAttachEmptyBufferOmitsReplay(t *testing.T) {
	m, id, _ := newTestManagerWithFakeSession(t)
	if err := m.Attach(id); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, ok := m.notify.Pop(); ok {
		t.Fatal("expected no replay notification for empty buffer")
	}
}

func TestAttachReplaysBufferContents(t *testing.T) {
	m, id, _ := newTestManagerWithFakeSession(t)
	rec := m.records[id]
	rec.buf.Write([]byte("hello"))

	if err := m.Attach(id); err != nil {
		t.Fatalf("attach: %v", err)
	}
	n, ok := m.notify.Pop()
	if !ok {
		t.Fatal("expected a replay notification")
	}
	if n.Method != "session.output" {
		t.Fatalf("method = %q", n.Method)
	}
}

func TestInputToExitedSessionFails(t *testing.T) {
	m, id, _ := newTestManagerWithFakeSession(t)
	m.records[id].setSnapshot(func(s *Snapshot) { s.Status = StatusExited })

	err := m.SendInput(id, []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	rpcErr, ok := asRPCError(err)
	if !ok || rpcErr.Code != -32006 {
		t.Fatalf("expected SESSION_NOT_RUNNING, got %v", err)
	}
}

func TestCloseAlreadyExitedIsNoOpSuccess(t *testing.T) {
	m, id, fb := newTestManagerWithFakeSession(t)
	m.records[id].setSnapshot(func(s *Snapshot) { s.Status = StatusExited })

	if err := m.Close(id); err != nil {
		t.Fatalf("close on exited session should succeed: %v", err)
	}
	if fb.IsAlive() {
		t.Fatal("backend should have been closed")
	}
	if err := m.Close(id); err == nil {
		t.Fatal("closing a removed session should fail with SESSION_NOT_FOUND")
	}
}

func TestCloseUnknownSessionFails(t *testing.T) {
	m := NewManager(0, 64)
	if err := m.Close("nope"); err == nil {
		t.Fatal("expected SESSION_NOT_FOUND")
	}
}

func TestRecordSinkCoalescesOutputIntoFullBatches(t *testing.T) {
	m, id, _ := newTestManagerWithFakeSession(t)
	m.records[id].setSnapshot(func(s *Snapshot) { s.Attached = true })
	sink := &recordSink{mgr: m, rec: m.records[id], coalescer: coalesce.New(4)}

	sink.OnOutput(id, []byte("ab"))
	if _, ok := m.notify.Pop(); ok {
		t.Fatal("expected no notification before the batch threshold is reached")
	}

	sink.OnOutput(id, []byte("cd"))
	n, ok := m.notify.Pop()
	if !ok {
		t.Fatal("expected a session.output notification once 4 bytes accumulated")
	}
	if n.Method != "session.output" {
		t.Fatalf("method = %q", n.Method)
	}
	var params outputParams
	if err := json.Unmarshal(n.Params, &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(params.Data)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if string(data) != "abcd" {
		t.Fatalf("batch = %q, want %q", data, "abcd")
	}
}

func TestRecordSinkFlushesSubThresholdRemainderAfterDelay(t *testing.T) {
	m, id, _ := newTestManagerWithFakeSession(t)
	m.records[id].setSnapshot(func(s *Snapshot) { s.Attached = true })
	sink := &recordSink{mgr: m, rec: m.records[id], coalescer: coalesce.New(4096)}

	sink.OnOutput(id, []byte("hi"))
	if _, ok := m.notify.Pop(); ok {
		t.Fatal("expected no notification before the debounce flush fires")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, ok := m.notify.Pop(); ok {
			if n.Method != "session.output" {
				t.Fatalf("method = %q", n.Method)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the debounce flush to emit the remainder")
}
