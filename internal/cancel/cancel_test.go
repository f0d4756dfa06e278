package cancel

import (
	"sync"
	"testing"
)

func TestTokenLatch(t *testing.T) {
	token := NewToken()
	if token.IsCancelled() {
		t.Fatal("new token must be unset")
	}
	token.Cancel()
	if !token.IsCancelled() {
		t.Fatal("token not set after Cancel")
	}
	token.Reset()
	if token.IsCancelled() {
		t.Fatal("token still set after Reset")
	}
}

func TestTokenConcurrentSet(t *testing.T) {
	token := NewToken()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token.Cancel()
			_ = token.IsCancelled()
		}()
	}
	wg.Wait()
	if !token.IsCancelled() {
		t.Fatal("token unset after concurrent cancels")
	}
}

// fakeMonitor records arming state and lets the test fire an event.
type fakeMonitor struct {
	fn      func()
	started bool
	stopped bool
}

func (m *fakeMonitor) Start(fn func()) error {
	m.fn = fn
	m.started = true
	return nil
}

func (m *fakeMonitor) Stop() { m.stopped = true }

func (m *fakeMonitor) fire() {
	if m.fn != nil {
		m.fn()
	}
}

func TestKillSwitchTripSetsTokenOnce(t *testing.T) {
	token := NewToken()
	monitor := &fakeMonitor{}
	var reasons []string
	ks := NewKillSwitch(token, monitor, func(reason string) {
		reasons = append(reasons, reason)
	})

	if err := ks.Arm(); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if !monitor.started {
		t.Fatal("monitor not started")
	}

	monitor.fire()
	monitor.fire()

	if !token.IsCancelled() {
		t.Fatal("token not cancelled after input event")
	}
	if len(reasons) != 1 {
		t.Fatalf("expected callback once, got %d calls", len(reasons))
	}
	if reasons[0] != "Cancelled by user input" {
		t.Errorf("unexpected reason %q", reasons[0])
	}
}

func TestKillSwitchDisarm(t *testing.T) {
	monitor := &fakeMonitor{}
	ks := NewKillSwitch(NewToken(), monitor, nil)

	if err := ks.Arm(); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if !ks.Armed() {
		t.Fatal("expected armed")
	}
	ks.Disarm()
	if ks.Armed() {
		t.Fatal("expected disarmed")
	}
	if !monitor.stopped {
		t.Fatal("monitor not stopped")
	}
}

// countingMonitor relies on KillSwitch serializing Start/Stop; the
// bare counters would race otherwise.
type countingMonitor struct {
	starts int
	stops  int
}

func (m *countingMonitor) Start(fn func()) error { m.starts++; return nil }
func (m *countingMonitor) Stop()                 { m.stops++ }

func TestKillSwitchConcurrentToggle(t *testing.T) {
	monitor := &countingMonitor{}
	ks := NewKillSwitch(NewToken(), monitor, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = ks.Arm()
			} else {
				ks.Disarm()
			}
			_ = ks.Armed()
		}(i)
	}
	wg.Wait()

	running := monitor.starts - monitor.stops
	if running != 0 && running != 1 {
		t.Fatalf("monitor started %d times, stopped %d", monitor.starts, monitor.stops)
	}
	if (running == 1) != ks.Armed() {
		t.Fatalf("armed = %v but monitor running = %d", ks.Armed(), running)
	}
}

func TestKillSwitchArmIsIdempotent(t *testing.T) {
	monitor := &fakeMonitor{}
	ks := NewKillSwitch(NewToken(), monitor, nil)

	_ = ks.Arm()
	monitor.started = false
	_ = ks.Arm()
	if monitor.started {
		t.Fatal("second Arm must not restart the monitor")
	}
}
