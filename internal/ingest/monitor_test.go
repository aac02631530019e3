package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSyncer records sync calls and returns canned results
type fakeSyncer struct {
	mu       sync.Mutex
	calls    []uint
	newCount int
	err      error
	busy     sync.Map
}

func (s *fakeSyncer) Sync(ctx context.Context, userID, accountID uint, since time.Time) (*Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, accountID)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &Result{NewCount: s.newCount, Processed: s.newCount, Total: s.newCount}, nil
}

func (s *fakeSyncer) TryLockAccount(accountID uint) bool {
	_, loaded := s.busy.LoadOrStore(accountID, true)
	return !loaded
}

func (s *fakeSyncer) UnlockAccount(accountID uint) {
	s.busy.Delete(accountID)
}

func (s *fakeSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestMonitorNotifiesOnNewMail(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{newCount: 2}

	monitor := NewMonitor(env.accountService, env.logService, syncer, 10*time.Millisecond, time.Hour)
	monitor.Start()
	defer monitor.Stop()

	select {
	case n := <-monitor.Notifications():
		if n.AccountID != env.account.ID {
			t.Errorf("AccountID = %d, want %d", n.AccountID, env.account.ID)
		}
		if n.NewCount != 2 {
			t.Errorf("NewCount = %d, want 2", n.NewCount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification within deadline")
	}
}

func TestMonitorNoNotificationWithoutNewMail(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{newCount: 0}

	monitor := NewMonitor(env.accountService, env.logService, syncer, 10*time.Millisecond, time.Hour)
	monitor.Start()
	defer monitor.Stop()

	// Give the monitor a few cycles
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case n := <-monitor.Notifications():
			t.Fatalf("unexpected notification: %+v", n)
		case <-deadline:
			if syncer.callCount() == 0 {
				t.Error("syncer was never called")
			}
			return
		}
	}
}

func TestMonitorStops(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{}

	monitor := NewMonitor(env.accountService, env.logService, syncer, time.Hour, time.Hour)
	monitor.Start()
	if !monitor.IsRunning() {
		t.Fatal("monitor should report running")
	}

	monitor.Stop()
	if monitor.IsRunning() {
		t.Error("monitor should report stopped")
	}

	// Stop twice must not panic
	monitor.Stop()
}

func TestMonitorRestarts(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{newCount: 1}

	monitor := NewMonitor(env.accountService, env.logService, syncer, 10*time.Millisecond, time.Hour)
	monitor.Start()

	select {
	case <-monitor.Notifications():
	case <-time.After(2 * time.Second):
		t.Fatal("no notification before stop")
	}

	monitor.Stop()
	callsAfterStop := syncer.callCount()

	// A stopped monitor can be started again and keeps checking
	monitor.Start()
	defer monitor.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-monitor.Notifications():
			// Drain; a pre-stop notification may still be buffered
			if syncer.callCount() > callsAfterStop {
				return
			}
		case <-deadline:
			t.Fatalf("sync calls still %d after restart, want more than %d", syncer.callCount(), callsAfterStop)
		}
	}
}

func TestMonitorBacksOffFailingAccount(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{err: errors.New("connect: refused")}

	monitor := NewMonitor(env.accountService, env.logService, syncer, 10*time.Millisecond, time.Hour)
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(200 * time.Millisecond)

	// The failing account is tried once and then left alone for the
	// backoff window, far longer than this test runs.
	if got := syncer.callCount(); got != 1 {
		t.Errorf("sync calls = %d, want 1 while backed off", got)
	}
}

func TestMonitorSkipsBusyAccounts(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{newCount: 1}
	syncer.TryLockAccount(env.account.ID)

	monitor := NewMonitor(env.accountService, env.logService, syncer, 10*time.Millisecond, time.Hour)
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(100 * time.Millisecond)

	if got := syncer.callCount(); got != 0 {
		t.Errorf("sync calls = %d, want 0 while account is locked", got)
	}
}
