// Command termihub-agent is the terminal-hub agent process: it speaks
// NDJSON-framed JSON-RPC over stdio or TCP, manages PTY/serial/docker/
// ssh-jump/telnet sessions, and (in --daemon mode) is the out-of-process
// PTY helper a running agent spawns per shell/ssh-jump session.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/armaxri/termihub-agent/internal/config"
	"github.com/armaxri/termihub-agent/internal/daemon"
	"github.com/armaxri/termihub-agent/internal/dispatch"
	"github.com/armaxri/termihub-agent/internal/logger"
	"github.com/armaxri/termihub-agent/internal/sessions"
	"github.com/armaxri/termihub-agent/internal/transport"
)

func main() {
	var stdioFlag bool
	var tcpAddr string
	var configDir string

	root := &cobra.Command{
		Use:     "termihub-agent",
		Short:   "terminal-hub agent",
		Long:    "Hosts terminal sessions (shell, serial, docker, ssh-jump, telnet) behind an NDJSON JSON-RPC transport.",
		Version: dispatch.AgentVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stdioFlag && tcpAddr == "" {
				return cmd.Help()
			}
			return runAgent(stdioFlag, tcpAddr, configDir)
		},
	}

	root.Flags().BoolVar(&stdioFlag, "stdio", false, "serve NDJSON over stdin/stdout")
	root.Flags().StringVar(&tcpAddr, "tcp", "", "serve NDJSON over TCP at the given address (e.g. 127.0.0.1:7890)")
	root.Flags().StringVar(&configDir, "config-dir", "", "configuration directory (defaults to ~/.config/termihub-agent)")

	daemonCmd := &cobra.Command{
		Use:    "daemon-helper [session-id]",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(args[0])
		},
	}
	root.AddCommand(daemonCmd)

	// A bare "--daemon <id>" invocation (as spawned by internal/daemonclient)
	// is rewritten to the hidden subcommand so cobra's normal flag parsing
	// doesn't have to special-case it.
	if len(os.Args) >= 3 && os.Args[1] == "--daemon" {
		os.Args = append([]string{os.Args[0], "daemon-helper", os.Args[2]}, os.Args[3:]...)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(sessionID string) error {
	cfg, err := daemon.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("daemon config: %w", err)
	}
	return daemon.Run(sessionID, cfg)
}

func runAgent(stdio bool, tcpAddr, configDirFlag string) error {
	dir := configDirFlag
	if dir == "" {
		if v := os.Getenv("TERMIHUB_CONFIG_DIR"); v != "" {
			dir = v
		} else if d, err := config.DefaultConfigDir(); err == nil {
			dir = d
		}
	}
	if dir != "" {
		_ = config.EnsureConfigDir(dir)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	mgr := sessions.NewManager(cfg.MaxSessions, cfg.RingBufferBytes)
	d := dispatch.New(mgr)

	if stdio {
		transport.RunStdio(d, mgr)
		return nil
	}
	return transport.RunTCP(d, mgr, tcpAddr)
}
