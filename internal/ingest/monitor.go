package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/maildeck/core/internal/database/models"
	"github.com/maildeck/core/internal/services"
)

const (
	// DefaultMonitorInterval is the pause between mailbox checks
	DefaultMonitorInterval = 30 * time.Second
	// DefaultLookback bounds the first check so a fresh monitor does not
	// re-walk the whole mailbox
	DefaultLookback = time.Hour
	// errorBackoff is how long a failing account is left alone before the
	// monitor tries it again
	errorBackoff = 60 * time.Second

	// The inter-check sleep is taken in one-second slices so a stop
	// request is honored promptly instead of after a full interval.
	stopPollInterval = time.Second
)

// Syncer runs one ingestion pass for an account. *Engine satisfies it; tests
// substitute their own.
type Syncer interface {
	Sync(ctx context.Context, userID, accountID uint, since time.Time) (*Result, error)
	TryLockAccount(accountID uint) bool
	UnlockAccount(accountID uint)
}

// Notification reports that a monitor check found new mail on an account.
type Notification struct {
	AccountID uint      `json:"account_id"`
	NewCount  int       `json:"new_count"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor periodically re-syncs every enabled account and surfaces
// new-mail notifications. One check cycle covers all accounts; an account
// that errors is backed off individually without disturbing the others.
type Monitor struct {
	accountService *services.AccountService
	logService     *services.LogService
	syncer         Syncer
	interval       time.Duration
	lookback       time.Duration

	notifications chan Notification
	stopChan      chan struct{}
	running       bool
	mu            sync.Mutex

	lastCheck    time.Time
	backoffUntil map[uint]time.Time
}

// NewMonitor creates a new Monitor. Zero interval/lookback fall back to the
// defaults.
func NewMonitor(accountService *services.AccountService, logService *services.LogService, syncer Syncer, interval, lookback time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Monitor{
		accountService: accountService,
		logService:     logService,
		syncer:         syncer,
		interval:       interval,
		lookback:       lookback,
		notifications:  make(chan Notification, 16),
		stopChan:       make(chan struct{}),
		backoffUntil:   make(map[uint]time.Time),
	}
}

// Notifications returns the channel new-mail notifications arrive on.
// Sends never block; if nobody drains the channel, notifications are
// dropped rather than stalling the monitor.
func (m *Monitor) Notifications() <-chan Notification {
	return m.notifications
}

// Start launches the monitor loop. Calling Start on a running monitor is a
// no-op; a stopped monitor can be started again.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	// Fresh channel per run: the previous one was closed by Stop. The loop
	// goroutine holds its own reference so a restart never races a check
	// cycle still draining from the previous run.
	m.stopChan = make(chan struct{})
	m.running = true
	go m.run(m.stopChan)
}

// Stop requests the monitor to stop. The loop notices within about a
// second, and the check in flight finishes its current account first.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopChan)
	m.running = false
}

// IsRunning reports whether the monitor loop is active
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) run(stop <-chan struct{}) {
	for {
		m.checkAll(stop)
		if !m.sleep(m.interval, stop) {
			return
		}
	}
}

// sleep pauses for d, polling for a stop request every second. Returns
// false when the monitor should exit.
func (m *Monitor) sleep(d time.Duration, stop <-chan struct{}) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := stopPollInterval
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-time.After(slice):
		case <-stop:
			return false
		}
	}
}

// checkAll runs one check cycle over every enabled account
func (m *Monitor) checkAll(stop <-chan struct{}) {
	cycleStart := time.Now()

	since := m.lastCheck
	if since.IsZero() {
		since = cycleStart.Add(-m.lookback)
	}

	accounts, err := m.accountService.GetEnabledAccounts()
	if err != nil {
		m.logService.LogError(0, models.LogModuleMonitor, "check", "Failed to list accounts", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for i := range accounts {
		select {
		case <-stop:
			return
		default:
		}
		m.checkAccount(&accounts[i], since)
	}

	m.lastCheck = cycleStart
}

// checkAccount re-syncs one account unless it is backed off or already
// syncing elsewhere
func (m *Monitor) checkAccount(account *models.Account, since time.Time) {
	if until, ok := m.backoffUntil[account.ID]; ok {
		if time.Now().Before(until) {
			return
		}
		delete(m.backoffUntil, account.ID)
	}

	// A manual sync in flight for this account wins; skip this cycle
	if !m.syncer.TryLockAccount(account.ID) {
		return
	}
	defer m.syncer.UnlockAccount(account.ID)

	result, err := m.syncer.Sync(context.Background(), account.UserID, account.ID, since)
	if err != nil {
		m.backoffUntil[account.ID] = time.Now().Add(errorBackoff)
		m.logService.LogWarn(account.UserID, models.LogModuleMonitor, "check", "Monitor sync failed, backing off", map[string]interface{}{
			"account_id": account.ID,
			"error":      err.Error(),
		})
		return
	}

	if result.NewCount > 0 {
		m.logService.LogInfo(account.UserID, models.LogModuleMonitor, "check", "New mail detected", map[string]interface{}{
			"account_id": account.ID,
			"new":        result.NewCount,
		})
		select {
		case m.notifications <- Notification{AccountID: account.ID, NewCount: result.NewCount, CheckedAt: time.Now()}:
		default:
		}
	}
}
