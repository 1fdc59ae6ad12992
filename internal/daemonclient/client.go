package daemonclient

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/armaxri/termihub-agent/internal/logger"
)

// SpawnConfig describes the helper process to launch (spec.md §6 env vars).
type SpawnConfig struct {
	SessionID   string
	Command     string // TERMIHUB_COMMAND, e.g. "ssh" or the shell binary
	CommandArgs []string
	Shell       string // TERMIHUB_SHELL, used when Command is empty
	Env         map[string]string
	Cols, Rows  int
	ConfigDir   string
}

// SocketPath derives the per-session socket path from the session id,
// under an OS-appropriate runtime directory (spec.md §6).
func SocketPath(configDir, sessionID string) string {
	base := configDir
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, fmt.Sprintf("session-%s.sock", sessionID))
}

const socketPollInterval = 50 * time.Millisecond

// Client owns the connection to one daemon helper process: a writer
// half for outgoing frames and a reader goroutine decoding inbound
// output/exit frames into the session's OutputSink.
type Client struct {
	sessionID  string
	socketPath string
	sink       OutputSink

	mu      sync.Mutex
	conn    net.Conn
	proc    *os.Process
	closed  bool
}

// OutputSink receives decoded output bytes and the terminal exit code.
type OutputSink interface {
	OnOutput(sessionID string, data []byte)
	OnExit(sessionID string, exitCode *int)
}

// Spawn launches a new helper process for cfg, waits for its socket to
// appear (bounded timeout), and connects.
func Spawn(cfg SpawnConfig, sink OutputSink, waitTimeout time.Duration) (*Client, error) {
	socketPath := SocketPath(cfg.ConfigDir, cfg.SessionID)
	_ = os.Remove(socketPath)

	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve self executable: %w", err)
	}

	cmd := exec.Command(exePath, "--daemon", cfg.SessionID)
	cmd.Env = append(os.Environ(),
		"TERMIHUB_SOCKET_PATH="+socketPath,
		"TERMIHUB_SHELL="+cfg.Shell,
		"TERMIHUB_COMMAND="+cfg.Command,
		"TERMIHUB_COLS="+fmt.Sprint(cfg.Cols),
		"TERMIHUB_ROWS="+fmt.Sprint(cfg.Rows),
	)
	if cfg.ConfigDir != "" {
		cmd.Env = append(cmd.Env, "TERMIHUB_CONFIG_DIR="+cfg.ConfigDir)
	}
	if len(cfg.CommandArgs) > 0 {
		if b, err := json.Marshal(cfg.CommandArgs); err == nil {
			cmd.Env = append(cmd.Env, "TERMIHUB_COMMAND_ARGS="+string(b))
		}
	}
	if len(cfg.Env) > 0 {
		if b, err := json.Marshal(cfg.Env); err == nil {
			cmd.Env = append(cmd.Env, "TERMIHUB_ENV="+string(b))
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn daemon helper: %w", err)
	}

	if err := waitForSocket(socketPath, waitTimeout); err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("connect to daemon helper: %w", err)
	}

	c := &Client{
		sessionID:  cfg.SessionID,
		socketPath: socketPath,
		sink:       sink,
		conn:       conn,
		proc:       cmd.Process,
	}
	go c.readLoop()
	return c, nil
}

// Reconnect connects to a surviving helper's socket without spawning a
// new process (spec.md §4.K "reconnect to a surviving helper").
func Reconnect(sessionID, socketPath string, sink OutputSink) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("reconnect to daemon helper: %w", err)
	}
	c := &Client{sessionID: sessionID, socketPath: socketPath, sink: sink, conn: conn}
	go c.readLoop()
	return c, nil
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for daemon socket %s", path)
		}
		time.Sleep(socketPollInterval)
	}
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		frame, err := ReadFrame(conn)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				logger.Session(c.sessionID).Debug("daemon client read ended", "err", err)
				c.sink.OnExit(c.sessionID, nil)
			}
			return
		}

		switch frame.Kind {
		case FrameOutput:
			c.sink.OnOutput(c.sessionID, frame.Payload)
		case FrameExit:
			code := DecodeExitPayload(frame.Payload)
			c.sink.OnExit(c.sessionID, code)
			return
		default:
			// Unknown frame kinds are skipped.
		}
	}
}

func (c *Client) WriteInput(data []byte) error {
	return c.writeFrame(Frame{Kind: FrameInput, Payload: data})
}

func (c *Client) Resize(cols, rows int) error {
	return c.writeFrame(Frame{Kind: FrameResize, Payload: ResizePayload(cols, rows)})
}

func (c *Client) writeFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("daemon client not connected")
	}
	return WriteFrame(c.conn, f)
}

// Detach closes the socket connection only, leaving the helper process
// running (spec.md §4.K "Detach: close the socket, leave the helper
// running").
func (c *Client) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Close sends a close frame (best-effort) and terminates the helper
// process.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	proc := c.proc
	c.mu.Unlock()

	if conn != nil {
		_ = WriteFrame(conn, Frame{Kind: FrameClose})
		_ = conn.Close()
	}
	if proc != nil {
		_ = proc.Kill()
	}
	_ = os.Remove(c.socketPath)
	return nil
}

func (c *Client) SocketPath() string {
	return c.socketPath
}
