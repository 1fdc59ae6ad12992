package monitor

import "testing"

func TestCpuDeltaTrackerFirstCallReturnsFalse(t *testing.T) {
	tr := NewCpuDeltaTracker()
	_, ok := tr.Update(CpuCounters{User: 100, System: 50, Idle: 800})
	if ok {
		t.Fatal("first update should not produce a percentage")
	}
}

func TestCpuDeltaTrackerSecondCall(t *testing.T) {
	tr := NewCpuDeltaTracker()
	first := CpuCounters{User: 10, System: 10, Idle: 70, IOWait: 10}
	second := CpuCounters{User: 30, System: 30, Idle: 110, IOWait: 20, IRQ: 5, SoftIRQ: 5}

	if _, ok := tr.Update(first); ok {
		t.Fatal("first update should be false")
	}
	pct, ok := tr.Update(second)
	if !ok {
		t.Fatal("second update should produce a percentage")
	}
	if diff := pct - 50.0; diff > 0.01 || diff < -0.01 {
		t.Fatalf("pct = %v, want ~50.0", pct)
	}
}

func TestCpuDeltaTrackerMultipleUpdates(t *testing.T) {
	tr := NewCpuDeltaTracker()
	snap1 := CpuCounters{User: 100, System: 50, Idle: 800, IOWait: 50}
	snap2 := CpuCounters{User: 200, System: 100, Idle: 1600, IOWait: 100}
	snap3 := CpuCounters{User: 400, System: 200, Idle: 1800, IOWait: 100}

	tr.Update(snap1)
	pct2, _ := tr.Update(snap2)
	if diff := pct2 - 15.0; diff > 0.01 || diff < -0.01 {
		t.Fatalf("pct2 = %v, want ~15.0", pct2)
	}
	pct3, _ := tr.Update(snap3)
	if diff := pct3 - 60.0; diff > 0.01 || diff < -0.01 {
		t.Fatalf("pct3 = %v, want ~60.0", pct3)
	}
}

func TestCpuDeltaBoundsForMonotonicCounters(t *testing.T) {
	tr := NewCpuDeltaTracker()
	a := CpuCounters{User: 10, System: 5, Idle: 100}
	b := CpuCounters{User: 20, System: 15, Idle: 150}
	tr.Update(a)
	pct, ok := tr.Update(b)
	if !ok {
		t.Fatal("expected a percentage")
	}
	if pct < 0 || pct > 100 {
		t.Fatalf("pct out of bounds: %v", pct)
	}
}
