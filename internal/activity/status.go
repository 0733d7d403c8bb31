// File: internal/activity/status.go
package activity

import (
	"time"
)

// Status is one session's observable lifecycle state, assembled for the
// status surface.
type Status struct {
	Session       string  `json:"session"`
	DaemonRunning bool    `json:"daemon_running"`
	WatchdogPID   int     `json:"watchdog_pid,omitempty"`
	WatchdogAlive bool    `json:"watchdog_alive"`
	OwnerPID      int     `json:"owner_pid,omitempty"`
	OwnerAlive    bool    `json:"owner_alive"`
	LastActivity  string  `json:"last_activity,omitempty"`
	IdleSeconds   float64 `json:"idle_seconds,omitempty"`
	IdleTimeout   int     `json:"idle_timeout_seconds"`
}

// CollectStatus assembles the status for one session from its record files
// and the daemon's probed liveness.
func CollectStatus(store *Store, daemonRunning bool, idleTimeoutSeconds int, alive func(int) bool, now time.Time) Status {
	st := Status{
		Session:       store.session,
		DaemonRunning: daemonRunning,
		IdleTimeout:   idleTimeoutSeconds,
	}

	if pid := store.ReadWatchdogPID(); pid != 0 {
		st.WatchdogPID = pid
		st.WatchdogAlive = alive(pid)
	}

	rec, err := store.ReadRecord()
	if err != nil {
		return st
	}
	sec := int64(rec.Timestamp)
	nsec := int64((rec.Timestamp - float64(sec)) * float64(time.Second))
	st.LastActivity = time.Unix(sec, nsec).UTC().Format(time.RFC3339)
	st.IdleSeconds = rec.Age(now)
	if rec.OwnerPID != nil && *rec.OwnerPID > 0 {
		st.OwnerPID = *rec.OwnerPID
		st.OwnerAlive = alive(*rec.OwnerPID)
	}
	return st
}
