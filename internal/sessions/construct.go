package sessions

import (
	"encoding/json"
	"fmt"

	"github.com/armaxri/termihub-agent/internal/backend"
)

// constructBackend dispatches session.create's raw config JSON to the
// concrete backend constructor for kind (spec.md §4.F, modeled on the
// teacher's sandbox.New platform-dispatch pattern).
func constructBackend(sessionID string, kind backend.Kind, rawConfig json.RawMessage, sink backend.OutputSink) (backend.Backend, error) {
	switch kind {
	case backend.KindShell:
		var cfg backend.ShellConfig
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("invalid shell config: %w", err)
		}
		cfg.SessionID = sessionID
		return backend.NewShellBackend(cfg, sink)

	case backend.KindSerial:
		var cfg backend.SerialConfig
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("invalid serial config: %w", err)
		}
		return backend.NewSerialBackend(cfg, sink, sessionID)

	case backend.KindDocker:
		var cfg backend.DockerConfig
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("invalid docker config: %w", err)
		}
		return backend.NewDockerBackend(cfg, sink, sessionID)

	case backend.KindSSHJump:
		var cfg backend.SSHJumpConfig
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("invalid ssh-jump config: %w", err)
		}
		cfg.SessionID = sessionID
		return backend.NewSSHJumpBackend(cfg, sink)

	case backend.KindTelnet:
		var cfg backend.TelnetConfig
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("invalid telnet config: %w", err)
		}
		return backend.NewTelnetBackend(cfg, sink, sessionID)

	default:
		return nil, fmt.Errorf("unknown session type %q", kind)
	}
}
