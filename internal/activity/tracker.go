// File: internal/activity/tracker.go
package activity

import (
	"os"
	"strconv"
	"time"

	"github.com/krellwind/tether/internal/config"
	"github.com/krellwind/tether/internal/proc"
	"go.uber.org/zap"
)

// Tracker stamps the session's activity record on every command and makes
// sure an idle watchdog is running. Touch never reports failure upward;
// bookkeeping problems are logged and swallowed so a command in flight is
// never harmed by them.
type Tracker struct {
	store *Store
	log   *zap.Logger

	env   func(key string) string
	alive func(pid int) bool
	now   func() time.Time

	// spawnWatchdog launches a detached watchdog process for this session
	// and returns its PID. Nil disables auto-spawn.
	spawnWatchdog func() (int, error)
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithWatchdogSpawner enables watchdog auto-spawn on activity.
func WithWatchdogSpawner(spawn func() (int, error)) TrackerOption {
	return func(t *Tracker) { t.spawnWatchdog = spawn }
}

// WithEnvLookup substitutes the environment lookup.
func WithEnvLookup(env func(string) string) TrackerOption {
	return func(t *Tracker) { t.env = env }
}

// WithAliveCheck substitutes the PID liveness check.
func WithAliveCheck(alive func(int) bool) TrackerOption {
	return func(t *Tracker) { t.alive = alive }
}

// WithClock substitutes the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker builds a tracker over a session's activity store.
func NewTracker(store *Store, logger *zap.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: store,
		log:   logger.Named("activity"),
		env:   os.Getenv,
		alive: proc.Alive,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch records activity best-effort.
func (t *Tracker) Touch() {
	if err := t.Record(); err != nil {
		t.log.Debug("Activity record write failed", zap.Error(err))
	}
}

// Record stamps the activity record with the current time and the resolved
// owner, then makes sure a watchdog is up.
func (t *Tracker) Record() error {
	rec := &Record{
		Timestamp: unixSeconds(t.now()),
		OwnerPID:  t.resolveOwner(),
	}
	if err := t.store.WriteRecord(rec); err != nil {
		return err
	}
	t.ensureWatchdog()
	return nil
}

// resolveOwner picks the owning PID for the new record: an explicit
// environment override wins, else the previous record's owner is kept while
// that process is still alive, else the owner is cleared.
func (t *Tracker) resolveOwner() *int {
	if raw := t.env(config.EnvOwnerPID); raw != "" {
		if pid, err := strconv.Atoi(raw); err == nil && pid > 0 {
			return &pid
		}
		t.log.Debug("Ignoring unparsable owner override", zap.String("value", raw))
	}
	prev, err := t.store.ReadRecord()
	if err != nil || prev.OwnerPID == nil {
		return nil
	}
	if !t.alive(*prev.OwnerPID) {
		return nil
	}
	return prev.OwnerPID
}

// ensureWatchdog spawns a watchdog when none is alive for this session. The
// PID is recorded immediately so back-to-back touches cannot double-spawn;
// the watchdog rewrites the record itself once it starts.
func (t *Tracker) ensureWatchdog() {
	if t.spawnWatchdog == nil {
		return
	}
	if pid := t.store.ReadWatchdogPID(); pid != 0 && t.alive(pid) {
		return
	}
	pid, err := t.spawnWatchdog()
	if err != nil {
		t.log.Warn("Watchdog spawn failed", zap.Error(err))
		return
	}
	if err := t.store.WriteWatchdogPID(pid); err != nil {
		t.log.Warn("Watchdog pid record write failed", zap.Error(err))
		return
	}
	t.log.Info("Idle watchdog started", zap.Int("pid", pid))
}
