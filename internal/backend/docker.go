package backend

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"
)

// DockerConfig configures a `docker run -it` session (spec.md §4.F).
// Unlike shell/ssh-jump, Docker sessions own their PTY in-process —
// the container itself is the isolation boundary, so no daemon helper
// indirection is used for it.
type DockerConfig struct {
	Image        string
	Shell        string // command run inside the container, default "/bin/sh"
	Env          map[string]string
	Volumes      []string // "hostPath:containerPath:ro" or ":rw"
	WorkDir      string
	RemoveOnExit bool
	Cols, Rows   int
}

func buildDockerArgs(cfg DockerConfig) []string {
	args := []string{"run", "-it"}
	if cfg.RemoveOnExit {
		args = append(args, "--rm")
	}
	for k, v := range cfg.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	for _, v := range cfg.Volumes {
		args = append(args, "-v", v)
	}
	if cfg.WorkDir != "" {
		args = append(args, "-w", cfg.WorkDir)
	}
	args = append(args, cfg.Image)
	if cfg.Shell != "" {
		args = append(args, cfg.Shell)
	} else {
		args = append(args, "/bin/sh")
	}
	return args
}

// DockerBackend runs `docker run -it ...` through a local PTY.
type DockerBackend struct {
	cmd *exec.Cmd
	tty *os.File

	mu    sync.Mutex
	alive atomic.Bool
	sink  OutputSink
}

func NewDockerBackend(cfg DockerConfig, sink OutputSink, sessionID string) (*DockerBackend, error) {
	cmd := exec.Command("docker", buildDockerArgs(cfg)...)

	tty, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(cfg.Rows),
		Cols: uint16(cfg.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("start docker pty: %w", err)
	}

	b := &DockerBackend{cmd: cmd, tty: tty, sink: sink}
	b.alive.Store(true)
	go b.readLoop(sessionID)
	return b, nil
}

func (b *DockerBackend) readLoop(sessionID string) {
	buf := make([]byte, 32*1024)
	reader := bufio.NewReaderSize(b.tty, len(buf))
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			b.sink.OnOutput(sessionID, chunk)
		}
		if err != nil {
			b.alive.Store(false)
			var exitCode *int
			if state := b.cmd.ProcessState; state != nil {
				c := state.ExitCode()
				exitCode = &c
			} else {
				_ = b.cmd.Wait()
				if b.cmd.ProcessState != nil {
					c := b.cmd.ProcessState.ExitCode()
					exitCode = &c
				}
			}
			b.sink.OnExit(sessionID, exitCode)
			return
		}
	}
}

func (b *DockerBackend) WriteInput(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.tty.Write(data)
	return err
}

func (b *DockerBackend) Resize(cols, rows int) error {
	return pty.Setsize(b.tty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Attach/Detach are no-ops: the PTY is owned in-process for the
// lifetime of the backend regardless of transport attachment.
func (b *DockerBackend) Attach() error { return nil }
func (b *DockerBackend) Detach() error { return nil }

func (b *DockerBackend) Close() error {
	b.alive.Store(false)
	if b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
	return b.tty.Close()
}

func (b *DockerBackend) IsAlive() bool {
	return b.alive.Load()
}
