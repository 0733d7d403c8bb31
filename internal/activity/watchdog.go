// File: internal/activity/watchdog.go
package activity

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/krellwind/tether/internal/config"
	"github.com/krellwind/tether/internal/proc"
	"go.uber.org/zap"
)

// DaemonStopper is the one capability the watchdog needs from the session
// layer. session.Client's supervisor satisfies it.
type DaemonStopper interface {
	Stop(timeout time.Duration) (bool, error)
}

// ResolveOwnerPID determines which process owns the session: the activity
// record's owner when one is set, else the environment override. Returns 0
// when neither names a PID.
func ResolveOwnerPID(store *Store, env func(string) string) int {
	if rec, err := store.ReadRecord(); err == nil && rec.OwnerPID != nil && *rec.OwnerPID > 0 {
		return *rec.OwnerPID
	}
	if raw := env(config.EnvOwnerPID); raw != "" {
		if pid, err := strconv.Atoi(raw); err == nil && pid > 0 {
			return pid
		}
	}
	return 0
}

// ShouldShutdown decides whether the session's daemon should be reclaimed:
// when the owning process is dead, or when the session has been idle for at
// least the timeout. The idle boundary is inclusive, and the arithmetic stays
// in float64 seconds to match the record's representation exactly.
func ShouldShutdown(rec *Record, now time.Time, idleTimeoutSeconds float64, alive func(int) bool) (bool, string) {
	if rec.OwnerPID != nil && *rec.OwnerPID > 0 && !alive(*rec.OwnerPID) {
		return true, fmt.Sprintf("owner process %d exited", *rec.OwnerPID)
	}
	if idle := rec.Age(now); idle >= idleTimeoutSeconds {
		return true, fmt.Sprintf("idle for %.0fs (limit %.0fs)", idle, idleTimeoutSeconds)
	}
	return false, ""
}

// Watchdog is the independent process that reclaims an unused daemon. It
// claims the session's watchdog slot via a pid file, polls the activity
// record, and exits after stopping the daemon (or when its context ends).
type Watchdog struct {
	store           *Store
	stopper         DaemonStopper
	log             *zap.Logger
	idleTimeout     float64
	poll            time.Duration
	shutdownTimeout time.Duration

	pid   int
	env   func(string) string
	alive func(int) bool
	now   func() time.Time
}

// NewWatchdog wires a watchdog for one session.
func NewWatchdog(store *Store, stopper DaemonStopper, logger *zap.Logger, cfg config.WatchdogConfig, shutdownTimeout time.Duration) *Watchdog {
	return &Watchdog{
		store:           store,
		stopper:         stopper,
		log:             logger.Named("watchdog"),
		idleTimeout:     float64(cfg.IdleTimeoutSeconds),
		poll:            cfg.PollInterval(),
		shutdownTimeout: shutdownTimeout,
		pid:             os.Getpid(),
		env:             os.Getenv,
		alive:           proc.Alive,
		now:             time.Now,
	}
}

// Run executes the watchdog loop until the daemon is reclaimed or ctx ends.
// At most one watchdog runs per session: a live PID in the slot that is not
// ours means another watchdog got there first.
func (w *Watchdog) Run(ctx context.Context) error {
	if existing := w.store.ReadWatchdogPID(); existing != 0 && existing != w.pid && w.alive(existing) {
		return fmt.Errorf("watchdog already running for this session (pid %d)", existing)
	}
	if err := w.store.WriteWatchdogPID(w.pid); err != nil {
		return err
	}
	defer func() {
		if err := w.store.ClearWatchdogPID(); err != nil {
			w.log.Warn("Watchdog pid cleanup failed", zap.Error(err))
		}
	}()

	w.log.Info("Watchdog running",
		zap.Int("pid", w.pid),
		zap.Float64("idle_timeout_seconds", w.idleTimeout),
		zap.Duration("poll_interval", w.poll))

	// A session with no record yet is measured from watchdog start. The
	// owner is remembered across iterations: the record's value wins when
	// present, but a record that lost its owner does not erase what an
	// earlier record (or the environment) established.
	baseline := &Record{Timestamp: unixSeconds(w.now())}
	remembered := ResolveOwnerPID(w.store, w.env)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		rec, err := w.store.ReadRecord()
		if err != nil {
			rec = baseline
		}
		if rec.OwnerPID != nil && *rec.OwnerPID > 0 {
			remembered = *rec.OwnerPID
		}
		decision := &Record{Timestamp: rec.Timestamp}
		if remembered > 0 {
			owner := remembered
			decision.OwnerPID = &owner
		}
		stop, reason := ShouldShutdown(decision, w.now(), w.idleTimeout, w.alive)
		if !stop {
			continue
		}

		w.log.Info("Reclaiming session daemon", zap.String("reason", reason))
		stopped, err := w.stopper.Stop(w.shutdownTimeout)
		if err != nil {
			w.log.Warn("Daemon stop reported error", zap.Error(err))
		} else if !stopped {
			w.log.Warn("Daemon did not stop within timeout")
		}
		if err := w.store.RemoveRecord(); err != nil {
			w.log.Warn("Activity record cleanup failed", zap.Error(err))
		}
		return nil
	}
}
