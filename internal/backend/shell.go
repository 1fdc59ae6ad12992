package backend

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/armaxri/termihub-agent/internal/daemonclient"
)

// ShellConfig configures a PTY shell session.
type ShellConfig struct {
	SessionID string
	Shell     string
	Env       map[string]string
	Cols, Rows int
	ConfigDir string
}

const daemonSocketWaitTimeout = 5 * time.Second

// shellSink adapts a session-level OutputSink to daemonclient's narrower
// OutputSink interface and tracks liveness.
type shellSink struct {
	sessionID string
	upstream  OutputSink
	alive     atomic.Bool
}

func (s *shellSink) OnOutput(sessionID string, data []byte) {
	s.upstream.OnOutput(sessionID, data)
}

func (s *shellSink) OnExit(sessionID string, exitCode *int) {
	s.alive.Store(false)
	s.upstream.OnExit(sessionID, exitCode)
}

// ShellBackend is a PTY shell session backed by an out-of-process
// daemon helper (spec.md §4.F).
type ShellBackend struct {
	cfg  ShellConfig
	sink *shellSink

	mu     sync.Mutex
	client *daemonclient.Client
}

// NewShellBackend spawns the daemon helper and connects to it.
func NewShellBackend(cfg ShellConfig, upstream OutputSink) (*ShellBackend, error) {
	sink := &shellSink{sessionID: cfg.SessionID, upstream: upstream}
	sink.alive.Store(true)

	client, err := daemonclient.Spawn(daemonclient.SpawnConfig{
		SessionID: cfg.SessionID,
		Shell:     cfg.Shell,
		Env:       cfg.Env,
		Cols:      cfg.Cols,
		Rows:      cfg.Rows,
		ConfigDir: cfg.ConfigDir,
	}, sink, daemonSocketWaitTimeout)
	if err != nil {
		return nil, err
	}

	return &ShellBackend{cfg: cfg, sink: sink, client: client}, nil
}

func (b *ShellBackend) WriteInput(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client.WriteInput(data)
}

func (b *ShellBackend) Resize(cols, rows int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client.Resize(cols, rows)
}

// Attach reconnects to the helper's socket if the client had detached;
// otherwise it is a no-op (spec.md §4.K).
func (b *ShellBackend) Attach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return nil
	}
	client, err := daemonclient.Reconnect(b.cfg.SessionID,
		daemonclient.SocketPath(b.cfg.ConfigDir, b.cfg.SessionID), b.sink)
	if err != nil {
		return err
	}
	b.client = client
	return nil
}

// Detach closes the socket but leaves the helper process running.
func (b *ShellBackend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Detach()
	b.client = nil
	return err
}

func (b *ShellBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink.alive.Store(false)
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

func (b *ShellBackend) IsAlive() bool {
	return b.sink.alive.Load()
}
