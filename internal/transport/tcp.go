package transport

import (
	"fmt"
	"net"

	"github.com/armaxri/termihub-agent/internal/dispatch"
	"github.com/armaxri/termihub-agent/internal/logger"
	"github.com/armaxri/termihub-agent/internal/sessions"
)

// RunTCP listens on addr and serves one NDJSON client at a time (spec.md
// §4.J's `--tcp` mode). When a client disconnects, every session is
// detached (backends keep running); notifications queued since the last
// client was served are drained once the next client is accepted, before
// its loop starts.
func RunTCP(d *dispatch.Dispatcher, mgr *sessions.Manager, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	defer ln.Close()

	logger.Info("transport listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}

		logger.Info("client connected", "remote", conn.RemoteAddr().String())
		mgr.Notifications().Drain()

		loop := newLoop(d, mgr, conn)
		loop.Run(conn)

		logger.Info("client disconnected", "remote", conn.RemoteAddr().String())
		conn.Close()
		mgr.DetachAll()
	}
}
