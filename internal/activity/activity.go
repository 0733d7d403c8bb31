// File: internal/activity/activity.go
//
// Package activity tracks when a browser session was last used and by whom,
// and hosts the idle watchdog that reclaims daemons nobody is using. All
// bookkeeping lives in small per-session files under the run directory; the
// tracker side is strictly fail-soft so bookkeeping can never break a live
// automation command.
package activity

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
)

// Record is one session's last-activity note. Timestamp is seconds since the
// Unix epoch with fractional precision; OwnerPID is nil when no owning
// process could be determined.
type Record struct {
	Timestamp float64 `json:"timestamp"`
	OwnerPID  *int    `json:"owner_pid"`
}

// Age returns how long ago the record was written, in seconds.
func (r *Record) Age(now time.Time) float64 {
	return unixSeconds(now) - r.Timestamp
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Store reads and writes one session's activity and watchdog-pid files.
// Records are namespaced by session identity so concurrent sessions never
// observe each other's activity.
type Store struct {
	dir     string
	session string
}

// NewStore binds a store to a run directory and session identity.
func NewStore(dir, session string) *Store {
	return &Store{dir: dir, session: session}
}

// RecordPath is the session's activity record file.
func (s *Store) RecordPath() string {
	return filepath.Join(s.dir, s.session+".activity.json")
}

// WatchdogPIDPath is the session's watchdog pid file.
func (s *Store) WatchdogPIDPath() string {
	return filepath.Join(s.dir, s.session+".watchdog.pid")
}

// WriteRecord persists an activity record.
func (s *Store) WriteRecord(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating run dir: %w", err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding activity record: %w", err)
	}
	if err := os.WriteFile(s.RecordPath(), payload, 0o600); err != nil {
		return fmt.Errorf("writing activity record: %w", err)
	}
	return nil
}

// ReadRecord loads the session's activity record. A missing file returns
// os.ErrNotExist; a corrupt file is an error the caller decides how to treat.
func (s *Store) ReadRecord() (*Record, error) {
	raw, err := os.ReadFile(s.RecordPath())
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding activity record: %w", err)
	}
	return &rec, nil
}

// RemoveRecord deletes the activity record if present.
func (s *Store) RemoveRecord() error {
	if err := os.Remove(s.RecordPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// WriteWatchdogPID claims the watchdog slot for a process.
func (s *Store) WriteWatchdogPID(pid int) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating run dir: %w", err)
	}
	if err := os.WriteFile(s.WatchdogPIDPath(), []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return fmt.Errorf("writing watchdog pid: %w", err)
	}
	return nil
}

// ReadWatchdogPID returns the recorded watchdog PID, or 0 when the file is
// missing or unparsable.
func (s *Store) ReadWatchdogPID() int {
	raw, err := os.ReadFile(s.WatchdogPIDPath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// ClearWatchdogPID releases the watchdog slot.
func (s *Store) ClearWatchdogPID() error {
	if err := os.Remove(s.WatchdogPIDPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
