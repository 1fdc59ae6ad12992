package sessions

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/armaxri/termihub-agent/internal/backend"
	"github.com/armaxri/termihub-agent/internal/coalesce"
	"github.com/armaxri/termihub-agent/internal/logger"
	"github.com/armaxri/termihub-agent/internal/ringbuf"
	"github.com/armaxri/termihub-agent/internal/rpc"
	"github.com/armaxri/termihub-agent/internal/screenclear"
	"github.com/google/uuid"
)

// CreateParams is the decoded body of a session.create request.
type CreateParams struct {
	Type   backend.Kind    `json:"type"`
	Config json.RawMessage `json:"config"`
	Title  string          `json:"title,omitempty"`
}

// Manager is the session registry: a single mutex protects the id->record
// map, each record's backend handle has its own mutex, and a shared
// unbounded notification queue fans backend output out to the transport
// (spec.md §4.H).
type Manager struct {
	mu          sync.Mutex
	records     map[string]*record
	maxSessions int
	defaultBuf  int

	notify *notifyQueue
}

// NewManager creates an empty registry.
func NewManager(maxSessions, defaultRingBufferBytes int) *Manager {
	return &Manager{
		records:     make(map[string]*record),
		maxSessions: maxSessions,
		defaultBuf:  defaultRingBufferBytes,
		notify:      newNotifyQueue(),
	}
}

// Notifications exposes the shared outbound queue to the transport loop.
func (m *Manager) Notifications() *notifyQueue { return m.notify }

func (m *Manager) emit(method string, params any) {
	n, err := rpc.NewNotification(method, params)
	if err != nil {
		logger.Error("failed to build notification", "method", method, "err", err)
		return
	}
	m.notify.push(n)
}

// Emit pushes a notification of the given method/params onto the
// shared outbound queue. Exported so the dispatcher can fan monitoring
// updates through the same channel as session notifications.
func (m *Manager) Emit(method string, params any) {
	m.emit(method, params)
}

// Config returns the raw creation config of a session, for callers
// (e.g. the monitoring subscribe handler) that need to reconstruct a
// connection to the same remote host.
func (m *Manager) Config(id string) (json.RawMessage, backend.Kind, bool) {
	rec, ok := m.lookup(id)
	if !ok {
		return nil, "", false
	}
	snap := rec.getSnapshot()
	return snap.Config, snap.Type, true
}

type outputParams struct {
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
}

type exitParams struct {
	SessionID string `json:"session_id"`
	ExitCode  *int   `json:"exit_code,omitempty"`
}

type errorParams struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Create allocates a new session: enforces max_sessions, constructs the
// backend, registers it, emits session.created, and returns a snapshot.
func (m *Manager) Create(p CreateParams) (Snapshot, error) {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.records) >= m.maxSessions {
		m.mu.Unlock()
		return Snapshot{}, rpc.ErrSessionLimitReached()
	}
	m.mu.Unlock()

	id := uuid.NewString()
	buf := ringbuf.New(m.bufferSize())

	rec := &record{
		snapshot: Snapshot{
			ID:        id,
			Type:      p.Type,
			Status:    StatusRunning,
			Title:     p.Title,
			Config:    p.Config,
			CreatedAt: time.Now().UTC(),
		},
		buf: buf,
	}
	rec.snapshot.LastActivity = rec.snapshot.CreatedAt

	sink := &recordSink{mgr: m, rec: rec, coalescer: coalesce.New(coalesceMaxBatch)}
	be, err := constructBackend(id, p.Type, p.Config, sink)
	if err != nil {
		return Snapshot{}, rpc.ErrSessionCreationFailed(err.Error())
	}
	rec.backend = be

	m.mu.Lock()
	m.records[id] = rec
	m.mu.Unlock()

	m.emit("session.created", rec.getSnapshot())
	return rec.getSnapshot(), nil
}

func (m *Manager) bufferSize() int {
	if m.defaultBuf > 0 {
		return m.defaultBuf
	}
	return ringbuf.DefaultCapacity
}

// List returns read-only snapshots of every registered session.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.getSnapshot())
	}
	return out
}

func (m *Manager) lookup(id string) (*record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// SendInput validates the session is running, writes to the backend,
// and advances last-activity.
func (m *Manager) SendInput(id string, data []byte) error {
	rec, ok := m.lookup(id)
	if !ok {
		return rpc.ErrSessionNotFound(id)
	}
	snap := rec.getSnapshot()
	if snap.Status != StatusRunning {
		return rpc.ErrSessionNotRunning(id)
	}

	rec.backendMu.Lock()
	err := rec.backend.WriteInput(data)
	rec.backendMu.Unlock()
	if err != nil {
		return rpc.ErrInternal(err.Error())
	}

	rec.setSnapshot(func(s *Snapshot) { s.LastActivity = time.Now().UTC() })
	return nil
}

// Resize forwards to the backend (no-op for serial/telnet backends).
func (m *Manager) Resize(id string, cols, rows int) error {
	rec, ok := m.lookup(id)
	if !ok {
		return rpc.ErrSessionNotFound(id)
	}
	rec.backendMu.Lock()
	defer rec.backendMu.Unlock()
	if err := rec.backend.Resize(cols, rows); err != nil {
		return rpc.ErrInternal(err.Error())
	}
	return nil
}

// Attach marks the session attached and, unless the ring buffer is
// empty, emits one session.output notification replaying its full
// current contents (spec.md §4.H, Open Question (b) resolved in
// SPEC_FULL.md §9: omit the replay when the buffer is empty).
func (m *Manager) Attach(id string) error {
	rec, ok := m.lookup(id)
	if !ok {
		return rpc.ErrSessionNotFound(id)
	}

	rec.backendMu.Lock()
	if err := rec.backend.Attach(); err != nil {
		rec.backendMu.Unlock()
		return rpc.ErrInternal(err.Error())
	}
	replay := rec.buf.ReadAll()
	rec.backendMu.Unlock()

	rec.setSnapshot(func(s *Snapshot) { s.Attached = true })

	if len(replay) > 0 {
		m.emit("session.output", outputParams{
			SessionID: id,
			Data:      base64.StdEncoding.EncodeToString(replay),
		})
	}
	return nil
}

// Detach marks the session detached; the backend and its ring buffer
// keep running/accumulating.
func (m *Manager) Detach(id string) error {
	rec, ok := m.lookup(id)
	if !ok {
		return rpc.ErrSessionNotFound(id)
	}
	rec.backendMu.Lock()
	err := rec.backend.Detach()
	rec.backendMu.Unlock()
	if err != nil {
		return rpc.ErrInternal(err.Error())
	}
	rec.setSnapshot(func(s *Snapshot) { s.Attached = false })
	return nil
}

// DetachAll marks every session detached without closing any backend
// (called on transport disconnect, spec.md §4.H).
func (m *Manager) DetachAll() {
	m.mu.Lock()
	recs := make([]*record, 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, rec)
	}
	m.mu.Unlock()

	for _, rec := range recs {
		rec.backendMu.Lock()
		_ = rec.backend.Detach()
		rec.backendMu.Unlock()
		rec.setSnapshot(func(s *Snapshot) { s.Attached = false })
	}
}

// Close terminates the backend, removes the record, and emits
// session.closed. Closing an already-exited session is a no-op that
// still succeeds and still emits session.closed (SPEC_FULL.md §9 Open
// Question (a)).
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	rec, ok := m.records[id]
	if ok {
		delete(m.records, id)
	}
	m.mu.Unlock()
	if !ok {
		return rpc.ErrSessionNotFound(id)
	}

	rec.backendMu.Lock()
	_ = rec.backend.Close()
	rec.backendMu.Unlock()

	m.emit("session.closed", map[string]string{"session_id": id})
	return nil
}

// CloseAll closes every backend, best-effort, for agent shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	recs := make([]*record, 0, len(m.records))
	for id, rec := range m.records {
		recs = append(recs, rec)
		delete(m.records, id)
	}
	m.mu.Unlock()

	for _, rec := range recs {
		rec.backendMu.Lock()
		if err := rec.backend.Close(); err != nil {
			logger.Session(rec.snapshot.ID).Warn("error closing session during shutdown", "err", err)
		}
		rec.backendMu.Unlock()
	}
}

// coalesceMaxBatch is the output coalescer's threshold (spec.md §4.B):
// live session.output notifications are batched up to this many bytes
// before a full batch is flushed on its own.
const coalesceMaxBatch = 4096

// coalesceFlushDelay bounds how long a sub-threshold remainder can sit
// unflushed when the backend goes quiet, so a short burst of output
// below coalesceMaxBatch still reaches an attached frontend promptly.
const coalesceFlushDelay = 20 * time.Millisecond

// recordSink adapts backend.OutputSink callbacks for one record into
// ring-buffer writes plus (if attached) coalesced live notifications.
type recordSink struct {
	mgr *Manager
	rec *record

	coalesceMu sync.Mutex
	coalescer  *coalesce.Coalescer
	flushTimer *time.Timer
}

func (s *recordSink) OnOutput(sessionID string, data []byte) {
	rec := s.rec
	rec.backendMu.Lock()
	rec.buf.Write(data)
	rec.backendMu.Unlock()

	rec.setSnapshot(func(snap *Snapshot) { snap.LastActivity = time.Now().UTC() })

	if screenclear.ContainsScreenClear(data) {
		logger.Session(sessionID).Debug("screen clear detected")
	}

	if !rec.getSnapshot().Attached {
		return
	}
	s.pushAndFlush(sessionID, data)
}

// pushAndFlush feeds data through the coalescer, emitting every full
// batch it yields immediately and arming coalesceFlushDelay to emit
// whatever sub-threshold remainder is left once output goes quiet.
func (s *recordSink) pushAndFlush(sessionID string, data []byte) {
	s.coalesceMu.Lock()
	defer s.coalesceMu.Unlock()

	s.coalescer.Push(data)
	for {
		batch, ok := s.coalescer.TryCoalesce()
		if !ok {
			break
		}
		s.emitOutputLocked(sessionID, batch)
	}

	if s.coalescer.PendingLen() == 0 {
		return
	}
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(coalesceFlushDelay, func() { s.flushPending(sessionID) })
}

func (s *recordSink) flushPending(sessionID string) {
	s.coalesceMu.Lock()
	defer s.coalesceMu.Unlock()
	if batch, ok := s.coalescer.Flush(); ok {
		s.emitOutputLocked(sessionID, batch)
	}
}

// emitOutputLocked emits one session.output notification; callers hold coalesceMu.
func (s *recordSink) emitOutputLocked(sessionID string, batch []byte) {
	s.mgr.emit("session.output", outputParams{
		SessionID: sessionID,
		Data:      base64.StdEncoding.EncodeToString(batch),
	})
}

func (s *recordSink) OnExit(sessionID string, exitCode *int) {
	rec := s.rec
	rec.setSnapshot(func(snap *Snapshot) { snap.Status = StatusExited })
	s.mgr.emit("session.exit", exitParams{SessionID: sessionID, ExitCode: exitCode})
}

func (s *recordSink) onError(sessionID, message string) {
	s.mgr.emit("session.error", errorParams{SessionID: sessionID, Message: message})
}
