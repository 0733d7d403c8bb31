// File: cmd/watchdog.go
package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/krellwind/tether/internal/activity"
	"github.com/krellwind/tether/internal/observability"
)

// newWatchdogCmd creates the hidden `watchdog` command. It is the entry point
// for the detached watchdog process the tracker spawns; users normally never
// run it by hand.
func newWatchdogCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "watchdog",
		Short:  "Run the idle watchdog loop for this session",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient(appCfg, false, false)
			if err != nil {
				return err
			}

			wd := activity.NewWatchdog(buildActivityStore(appCfg),
				client.Supervisor(), observability.GetLogger(),
				appCfg.Watchdog, appCfg.Daemon.ShutdownTimeout)

			err = wd.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				// Normal teardown on SIGINT/SIGTERM.
				return nil
			}
			return err
		},
	}
}
