// Package backend defines the capability set every session type
// implements (spec.md §4.F) and the notification sink backends push
// output through.
package backend

// Kind is the closed set of session backend types (spec.md §3).
type Kind string

const (
	KindShell   Kind = "shell"
	KindSerial  Kind = "serial"
	KindDocker  Kind = "docker"
	KindSSHJump Kind = "ssh-jump"
	KindTelnet  Kind = "telnet"
)

// OutputSink receives bytes and lifecycle events from a backend's reader
// goroutine. The session manager implements this, fanning bytes into
// the session's ring buffer and, if attached, the notification channel.
type OutputSink interface {
	// OnOutput is called with every chunk of raw backend output.
	OnOutput(sessionID string, data []byte)
	// OnExit is called exactly once, when the backend's reader observes
	// EOF or a fatal error. exitCode is nil when unknown.
	OnExit(sessionID string, exitCode *int)
}

// Backend is the capability set every session variant implements.
// Construction is variant-specific (see shell/serial/docker/sshjump/
// telnet) and always takes a configuration snapshot plus an OutputSink;
// the backend spawns its own reader goroutine immediately.
type Backend interface {
	WriteInput(data []byte) error
	// Resize is a no-op for backends without a notion of terminal size
	// (serial, telnet).
	Resize(cols, rows int) error
	Attach() error
	Detach() error
	Close() error
	IsAlive() bool
}
