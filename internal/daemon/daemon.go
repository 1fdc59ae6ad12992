// Package daemon implements the out-of-process PTY-owning helper that
// internal/daemonclient spawns and talks to (spec.md §4.K, §4.P). It is
// the server side of the length-prefixed frame protocol: one helper
// process per shell/ssh-jump session, running until its child exits or
// it receives a close frame, grounded on internal/egg/server.go's
// RunSession/readPTY PTY-ownership pattern.
package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/creack/pty"

	"github.com/armaxri/termihub-agent/internal/daemonclient"
	"github.com/armaxri/termihub-agent/internal/logger"
)

// Config is read from the TERMIHUB_* environment variables the client
// sets before spawning the helper (spec.md §4.P).
type Config struct {
	SocketPath  string
	Shell       string
	Command     string
	CommandArgs []string
	Cols, Rows  int
	Env         map[string]string
}

// ConfigFromEnv decodes the helper's launch configuration from its
// process environment.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		SocketPath: os.Getenv("TERMIHUB_SOCKET_PATH"),
		Shell:      os.Getenv("TERMIHUB_SHELL"),
		Command:    os.Getenv("TERMIHUB_COMMAND"),
	}
	if cfg.SocketPath == "" {
		return Config{}, fmt.Errorf("TERMIHUB_SOCKET_PATH is required")
	}

	if v := os.Getenv("TERMIHUB_COLS"); v != "" {
		cfg.Cols, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("TERMIHUB_ROWS"); v != "" {
		cfg.Rows, _ = strconv.Atoi(v)
	}
	if cfg.Cols == 0 {
		cfg.Cols = 80
	}
	if cfg.Rows == 0 {
		cfg.Rows = 24
	}

	if v := os.Getenv("TERMIHUB_COMMAND_ARGS"); v != "" {
		if err := json.Unmarshal([]byte(v), &cfg.CommandArgs); err != nil {
			return Config{}, fmt.Errorf("decode TERMIHUB_COMMAND_ARGS: %w", err)
		}
	}
	if v := os.Getenv("TERMIHUB_ENV"); v != "" {
		if err := json.Unmarshal([]byte(v), &cfg.Env); err != nil {
			return Config{}, fmt.Errorf("decode TERMIHUB_ENV: %w", err)
		}
	}

	return cfg, nil
}

// Run spawns the configured child command under a PTY, listens on the
// Unix socket, and proxies bytes between the PTY and whichever client
// is currently connected until the child exits.
func Run(sessionID string, cfg Config) error {
	command := cfg.Command
	if command == "" {
		command = cfg.Shell
	}
	if command == "" {
		command = "/bin/sh"
	}

	cmd := exec.Command(command, cfg.CommandArgs...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cfg.Cols),
		Rows: uint16(cfg.Rows),
	})
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	defer ptmx.Close()

	_ = os.Remove(cfg.SocketPath)
	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.SocketPath, err)
	}
	defer listener.Close()
	defer os.Remove(cfg.SocketPath)

	h := &helper{sessionID: sessionID, ptmx: ptmx, cmd: cmd}
	go h.acceptLoop(listener)
	go h.readPTY()

	exitCode := h.waitForChild()
	h.broadcastExit(exitCode)
	return nil
}

// helper owns one PTY and fans its output to whichever client
// connection is currently attached; at most one connection is served
// at a time, matching daemonclient's single-connection model.
type helper struct {
	sessionID string
	ptmx      *os.File
	cmd       *exec.Cmd

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func (h *helper) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			h.mu.Lock()
			closed := h.closed
			h.mu.Unlock()
			if !closed {
				logger.Session(h.sessionID).Warn("daemon accept failed", "err", err)
			}
			return
		}

		h.mu.Lock()
		if h.conn != nil {
			_ = h.conn.Close()
		}
		h.conn = conn
		h.mu.Unlock()

		go h.readClient(conn)
	}
}

func (h *helper) readClient(conn net.Conn) {
	for {
		frame, err := daemonclient.ReadFrame(conn)
		if err != nil {
			h.mu.Lock()
			if h.conn == conn {
				h.conn = nil
			}
			h.mu.Unlock()
			return
		}

		switch frame.Kind {
		case daemonclient.FrameInput:
			if _, err := h.ptmx.Write(frame.Payload); err != nil {
				logger.Session(h.sessionID).Debug("daemon pty write failed", "err", err)
			}
		case daemonclient.FrameResize:
			cols, rows, err := daemonclient.DecodeResizePayload(frame.Payload)
			if err == nil {
				_ = pty.Setsize(h.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
			}
		case daemonclient.FrameClose:
			h.mu.Lock()
			h.closed = true
			h.mu.Unlock()
			_ = h.cmd.Process.Kill()
			return
		default:
			// Unknown frame kinds are skipped.
		}
	}
}

func (h *helper) readPTY() {
	buf := make([]byte, 4096)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			h.writeToClient(daemonclient.Frame{Kind: daemonclient.FrameOutput, Payload: append([]byte(nil), buf[:n]...)})
		}
		if err != nil {
			return
		}
	}
}

func (h *helper) writeToClient(f daemonclient.Frame) {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return
	}
	if err := daemonclient.WriteFrame(conn, f); err != nil {
		logger.Session(h.sessionID).Debug("daemon write to client failed", "err", err)
	}
}

func (h *helper) waitForChild() *int {
	err := h.cmd.Wait()
	if err == nil {
		code := h.cmd.ProcessState.ExitCode()
		return &code
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		return &code
	}
	return nil
}

func (h *helper) broadcastExit(code *int) {
	h.mu.Lock()
	h.closed = true
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return
	}
	_ = daemonclient.WriteFrame(conn, daemonclient.Frame{
		Kind:    daemonclient.FrameExit,
		Payload: daemonclient.ExitPayload(code),
	})
}
