package monitor

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// SSHExecutor runs MonitoringCommand over its own auxiliary SSH
// connection to a remote host (spec.md §4.G: "a background worker opens
// an auxiliary channel to the remote host"), separate from any PTY
// session the core may also have open to the same host.
type SSHExecutor struct {
	client *ssh.Client
}

// DialSSHExecutor opens the auxiliary SSH connection used for polling.
// Authentication uses the private key file when one is given; no other
// method (such as a local SSH agent) is tried, so without a key file the
// connection is attempted with no auth methods.
func DialSSHExecutor(host string, port int, user, identityFile string) (*SSHExecutor, error) {
	var auths []ssh.AuthMethod
	if identityFile != "" {
		key, err := os.ReadFile(identityFile)
		if err != nil {
			return nil, fmt.Errorf("read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse identity file: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := fmt.Sprintf("%s:%d", host, portOrDefault(port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial ssh %s: %w", addr, err)
	}
	return &SSHExecutor{client: client}, nil
}

func portOrDefault(port int) int {
	if port == 0 {
		return 22
	}
	return port
}

// Client exposes the underlying SSH connection so other subsystems
// (the file backend's SFTP subsystem, in particular) can open their own
// channels over the same auxiliary connection rather than dialing SSH a
// second time.
func (e *SSHExecutor) Client() *ssh.Client { return e.client }

func (e *SSHExecutor) Run(command string) ([]byte, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()
	return session.CombinedOutput(command)
}

func (e *SSHExecutor) Close() error {
	return e.client.Close()
}
