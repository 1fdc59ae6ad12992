package monitor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeExecutor struct {
	calls atomic.Int64
	fail  bool
}

func (f *fakeExecutor) Run(command string) ([]byte, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, errors.New("exec failed")
	}
	return []byte(
		"H:testhost\nU:123.45\nL:0.10 0.20 0.30\n" +
			"C:cpu  100 0 50 800 10 0 0 0\n" +
			"M:MemTotal:       16000000 kB\nMemAvailable:   8000000 kB\n" +
			"D:/dev/sda1 100000 40000 60000 40% /\nO:Linux 6.1\n"), nil
}

func TestSubscribeReturnsOpenChannel(t *testing.T) {
	p := NewProvider(&fakeExecutor{})
	ch := p.Subscribe("host1")
	if ch == nil {
		t.Fatal("Subscribe returned nil channel")
	}
	p.Unsubscribe()
}

func TestUnsubscribeWithoutSubscribeIsNoOp(t *testing.T) {
	p := NewProvider(&fakeExecutor{})
	p.Unsubscribe() // must not panic or block
}

func TestSubscribeAgainReplacesPreviousWorkerAndClosesItsChannel(t *testing.T) {
	p := NewProvider(&fakeExecutor{})
	first := p.Subscribe("host1")
	second := p.Subscribe("host2")
	if first == second {
		t.Fatal("expected a fresh channel on re-subscribe")
	}

	select {
	case _, ok := <-first:
		if ok {
			t.Fatal("expected the replaced subscription's channel to be closed, not yield a value")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for replaced channel to close")
	}

	p.Unsubscribe()
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewProvider(&fakeExecutor{})
	ch := p.Subscribe("host1")
	p.Unsubscribe()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after Unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel to close after Unsubscribe")
	}
}
