// Package sessions implements the session registry, lifecycle, and
// attach/detach/replay model (spec.md §4.H).
package sessions

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/armaxri/termihub-agent/internal/backend"
	"github.com/armaxri/termihub-agent/internal/ringbuf"
)

// Status is a session's lifecycle state (spec.md §4.H state machine:
// Created -> Running -> Exited -> Removed; Removed means "no longer in
// the registry" so it has no corresponding Status value here).
type Status string

const (
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
)

// Snapshot is a read-only, Clone-safe copy of a session's externally
// visible state — the shape returned by session.create/session.list
// (spec.md §3's "SessionInfo vs SessionSnapshot" split, ported from
// original_source/agent/src/session/types.rs).
type Snapshot struct {
	ID           string          `json:"id"`
	Type         backend.Kind    `json:"type"`
	Status       Status          `json:"status"`
	Attached     bool            `json:"attached"`
	Title        string          `json:"title,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActivity time.Time       `json:"last_activity"`
}

// record is the internal, non-snapshot session entry. Its backend
// field is guarded by backendMu, never by the registry mutex, so
// callers never hold the registry lock across a blocking backend call.
type record struct {
	snapshot Snapshot

	backendMu sync.Mutex
	backend   backend.Backend
	buf       *ringbuf.Buffer

	mu sync.Mutex // guards snapshot mutation
}

func (r *record) getSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

func (r *record) setSnapshot(f func(*Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(&r.snapshot)
}
