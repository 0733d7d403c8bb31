// File: cmd/helpers.go
package cmd

import (
	"os"

	"github.com/krellwind/tether/internal/activity"
	"github.com/krellwind/tether/internal/config"
	"github.com/krellwind/tether/internal/observability"
	"github.com/krellwind/tether/internal/proc"
	"github.com/krellwind/tether/internal/session"
	"github.com/krellwind/tether/internal/statestore"
)

// buildActivityStore binds the per-session record files.
func buildActivityStore(cfg *config.Config) *activity.Store {
	return activity.NewStore(cfg.RunDir(), cfg.Session.ID)
}

// buildTracker wires a tracker that also keeps a watchdog process alive for
// the session.
func buildTracker(cfg *config.Config) *activity.Tracker {
	return activity.NewTracker(buildActivityStore(cfg), observability.GetLogger(),
		activity.WithWatchdogSpawner(watchdogSpawner(cfg)))
}

// watchdogSpawner relaunches this binary as a detached watchdog process for
// the session, carrying the session identity and owner PID through the
// environment.
func watchdogSpawner(cfg *config.Config) func() (int, error) {
	return func() (int, error) {
		exe, err := os.Executable()
		if err != nil {
			return 0, err
		}
		env := []string{config.EnvSession + "=" + cfg.Session.ID}
		if owner := os.Getenv(config.EnvOwnerPID); owner != "" {
			env = append(env, config.EnvOwnerPID+"="+owner)
		}
		return proc.StartDetached([]string{exe, "watchdog"}, env...)
	}
}

// buildClient assembles a session client. Tracked clients stamp activity on
// every command and keep a watchdog alive; untracked ones are for passive
// surfaces like status.
func buildClient(cfg *config.Config, headed, tracked bool) (*session.Client, error) {
	opts := []session.Option{session.WithHeaded(headed)}

	states, err := statestore.New(cfg.AuthDir(), observability.GetLogger())
	if err != nil {
		return nil, err
	}
	opts = append(opts, session.WithStateStore(states))

	if tracked {
		opts = append(opts, session.WithRecorder(buildTracker(cfg)))
	}
	return session.New(cfg, observability.GetLogger(), opts...), nil
}
