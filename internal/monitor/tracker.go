package monitor

// CpuDeltaTracker maintains the previous CPU counter snapshot so a caller
// can derive a usage percentage from two cumulative readings without
// managing the "no previous sample yet" case itself.
type CpuDeltaTracker struct {
	previous   *CpuCounters
	hasPrevious bool
}

// NewCpuDeltaTracker creates a tracker with no previous snapshot.
func NewCpuDeltaTracker() *CpuDeltaTracker {
	return &CpuDeltaTracker{}
}

// Update records current and returns the CPU usage percentage relative
// to the previous snapshot. The first call always returns (0, false).
func (t *CpuDeltaTracker) Update(current CpuCounters) (float64, bool) {
	if !t.hasPrevious {
		prev := current
		t.previous = &prev
		t.hasPrevious = true
		return 0, false
	}

	pct := cpuPercentFromDelta(*t.previous, current)
	prev := current
	t.previous = &prev
	return pct, true
}

// cpuPercentFromDelta computes 100 * active_delta / total_delta between
// two cumulative snapshots, where active = total - idleTotal.
func cpuPercentFromDelta(prev, cur CpuCounters) float64 {
	totalDelta := cur.Total() - prev.Total()
	if totalDelta == 0 {
		return 0
	}
	idleDelta := cur.IdleTotal() - prev.IdleTotal()
	activeDelta := totalDelta - idleDelta
	return 100 * float64(activeDelta) / float64(totalDelta)
}
