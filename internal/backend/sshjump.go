package backend

import (
	"fmt"
	"os"
	"sync"

	"github.com/armaxri/termihub-agent/internal/daemonclient"
)

// SSHJumpConfig configures an SSH jump-host session. The daemon helper
// runs `ssh` as its child command, so this reuses the daemon-backed
// mechanism (spec.md §4.F groups "PTY shell / SSH jump" together).
type SSHJumpConfig struct {
	SessionID  string
	Host       string
	Port       int
	User       string
	IdentityFile string
	ExtraArgs  []string
	Env        map[string]string
	Cols, Rows int
	ConfigDir  string
}

func validateSSHConfig(cfg SSHJumpConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("ssh-jump: host is required")
	}
	if cfg.User == "" {
		return fmt.Errorf("ssh-jump: user is required")
	}
	return nil
}

func buildSSHArgs(cfg SSHJumpConfig) []string {
	args := []string{}
	if cfg.Port != 0 && cfg.Port != 22 {
		args = append(args, "-p", fmt.Sprint(cfg.Port))
	}
	if cfg.IdentityFile != "" {
		args = append(args, "-i", cfg.IdentityFile)
	}
	args = append(args, cfg.ExtraArgs...)
	args = append(args, fmt.Sprintf("%s@%s", cfg.User, cfg.Host))
	return args
}

// SSHJumpBackend runs `ssh` under the daemon helper's PTY.
type SSHJumpBackend struct {
	cfg  SSHJumpConfig
	sink *shellSink

	mu     sync.Mutex
	client *daemonclient.Client
}

func NewSSHJumpBackend(cfg SSHJumpConfig, upstream OutputSink) (*SSHJumpBackend, error) {
	if err := validateSSHConfig(cfg); err != nil {
		return nil, err
	}

	sink := &shellSink{sessionID: cfg.SessionID, upstream: upstream}
	sink.alive.Store(true)

	client, err := daemonclient.Spawn(daemonclient.SpawnConfig{
		SessionID:   cfg.SessionID,
		Command:     "ssh",
		CommandArgs: buildSSHArgs(cfg),
		Env:         cfg.Env,
		Cols:        cfg.Cols,
		Rows:        cfg.Rows,
		ConfigDir:   cfg.ConfigDir,
	}, sink, daemonSocketWaitTimeout)
	if err != nil {
		return nil, err
	}

	return &SSHJumpBackend{cfg: cfg, sink: sink, client: client}, nil
}

func (b *SSHJumpBackend) WriteInput(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client.WriteInput(data)
}

func (b *SSHJumpBackend) Resize(cols, rows int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client.Resize(cols, rows)
}

// Attach reconnects to a surviving helper. If that single reconnect
// attempt fails, the stale socket path entry is removed and the error
// is returned; no second attempt is made.
func (b *SSHJumpBackend) Attach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return nil
	}
	socketPath := daemonclient.SocketPath(b.cfg.ConfigDir, b.cfg.SessionID)
	client, err := daemonclient.Reconnect(b.cfg.SessionID, socketPath, b.sink)
	if err != nil {
		_ = os.Remove(socketPath)
		return err
	}
	b.client = client
	return nil
}

func (b *SSHJumpBackend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Detach()
	b.client = nil
	return err
}

func (b *SSHJumpBackend) Close() error {
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

func (b *SSHJumpBackend) IsAlive() bool {
	return b.sink.alive.Load()
}
