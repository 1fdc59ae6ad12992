package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	goserial "go.bug.st/serial"
)

// SerialConfig configures a serial port session (spec.md §4.F).
type SerialConfig struct {
	Port     string
	BaudRate int
	DataBits int
	StopBits int // 1, 2 (1.5 not modeled)
	Parity   string // "none", "odd", "even"
	FlowControl string // "none", "hardware"
}

const serialReadTimeout = 100 * time.Millisecond

func toGoSerialMode(cfg SerialConfig) (*goserial.Mode, error) {
	mode := &goserial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	switch cfg.StopBits {
	case 0, 1:
		mode.StopBits = goserial.OneStopBit
	case 2:
		mode.StopBits = goserial.TwoStopBits
	default:
		return nil, fmt.Errorf("serial: unsupported stop bits %d", cfg.StopBits)
	}
	switch cfg.Parity {
	case "", "none":
		mode.Parity = goserial.NoParity
	case "odd":
		mode.Parity = goserial.OddParity
	case "even":
		mode.Parity = goserial.EvenParity
	default:
		return nil, fmt.Errorf("serial: unsupported parity %q", cfg.Parity)
	}
	return mode, nil
}

// SerialBackend reads/writes a serial port. It has no notion of
// terminal size or attach/detach state beyond liveness, matching
// spec.md §4.F ("Resize no-op for serial/telnet").
type SerialBackend struct {
	port goserial.Port

	mu    sync.Mutex
	alive atomic.Bool
	sink  OutputSink
}

func NewSerialBackend(cfg SerialConfig, sink OutputSink, sessionID string) (*SerialBackend, error) {
	mode, err := toGoSerialMode(cfg)
	if err != nil {
		return nil, err
	}

	port, err := goserial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if cfg.FlowControl == "hardware" {
		_ = port.SetRTS(true)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}

	b := &SerialBackend{port: port, sink: sink}
	b.alive.Store(true)
	go b.readLoop(sessionID)
	return b, nil
}

func (b *SerialBackend) readLoop(sessionID string) {
	buf := make([]byte, 4096)
	for {
		if !b.alive.Load() {
			return
		}
		n, err := b.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			b.sink.OnOutput(sessionID, chunk)
		}
		if err != nil {
			b.alive.Store(false)
			b.sink.OnExit(sessionID, nil)
			return
		}
		// n == 0, err == nil is the read-timeout case (no data within
		// 100ms); loop again so Close() is observed promptly.
	}
}

func (b *SerialBackend) WriteInput(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.port.Write(data)
	return err
}

// Resize is a no-op: serial ports have no terminal dimensions.
func (b *SerialBackend) Resize(cols, rows int) error { return nil }

func (b *SerialBackend) Attach() error { return nil }
func (b *SerialBackend) Detach() error { return nil }

func (b *SerialBackend) Close() error {
	b.alive.Store(false)
	return b.port.Close()
}

func (b *SerialBackend) IsAlive() bool {
	return b.alive.Load()
}
