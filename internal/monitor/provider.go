package monitor

import (
	"sync"
	"time"

	"github.com/armaxri/termihub-agent/internal/logger"
)

const (
	// PollInterval is the monitoring cadence.
	PollInterval = 2 * time.Second
	// tickInterval bounds cancellation latency: the worker sleeps in
	// short ticks rather than one long sleep so stop/unsubscribe is
	// observed promptly.
	tickInterval = 100 * time.Millisecond
	// ChannelCapacity is the stats channel buffer size; a full channel
	// drops the oldest pending sample rather than blocking the worker.
	ChannelCapacity = 16
)

// Executor runs MonitoringCommand over whatever channel the caller has
// open to the remote host (an SSH session, typically) and returns its
// combined output.
type Executor interface {
	Run(command string) ([]byte, error)
}

// Provider is the subscribe/unsubscribe monitoring capability attached
// to a connection type (spec.md §4.G). One Provider serves at most one
// live subscription at a time; a new Subscribe call replaces the old.
type Provider struct {
	exec Executor

	mu     sync.Mutex
	cancel func()
}

// NewProvider creates a Provider that runs MonitoringCommand via exec.
func NewProvider(exec Executor) *Provider {
	return &Provider{exec: exec}
}

// Subscribe starts (or restarts) the background poll worker and returns
// a channel of parsed stats. Calling Subscribe again replaces the
// previous subscription, stopping its worker.
func (p *Provider) Subscribe(hostLabel string) <-chan SystemStats {
	p.Unsubscribe()

	ch := make(chan SystemStats, ChannelCapacity)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(hostLabel, ch, done)

	return ch
}

// Unsubscribe stops the current worker, if any. Safe to call when no
// subscription is active.
func (p *Provider) Unsubscribe() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Provider) run(hostLabel string, ch chan<- SystemStats, done <-chan struct{}) {
	defer close(ch)

	tracker := NewCpuDeltaTracker()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			elapsed += tickInterval
			if elapsed < PollInterval {
				continue
			}
			elapsed = 0

			stats, cpu, err := p.poll(hostLabel, tracker)
			if err != nil {
				logger.Warn("monitoring poll failed", "host", hostLabel, "err", err)
				continue
			}
			_ = cpu

			select {
			case ch <- stats:
			case <-done:
				return
			default:
				// Channel full: drop the oldest pending sample, then push.
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- stats:
				default:
				}
			}
		}
	}
}

func (p *Provider) poll(hostLabel string, tracker *CpuDeltaTracker) (SystemStats, CpuCounters, error) {
	out, err := p.exec.Run(MonitoringCommand)
	if err != nil {
		return SystemStats{}, CpuCounters{}, err
	}
	stats, cpu, err := ParseStats(out)
	if err != nil {
		return SystemStats{}, CpuCounters{}, err
	}
	if pct, ok := tracker.Update(cpu); ok {
		stats.CPUUsagePercent = pct
	}
	return stats, cpu, nil
}
