// File: cmd/status.go
package cmd

import (
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/krellwind/tether/internal/activity"
	"github.com/krellwind/tether/internal/proc"
)

// newStatusCmd creates the `status` command.
func newStatusCmd() *cobra.Command {
	var asJSON bool

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session's daemon, owner, and watchdog state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient(appCfg, false, false)
			if err != nil {
				return err
			}

			st := activity.CollectStatus(buildActivityStore(appCfg),
				client.DaemonRunning(), appCfg.Watchdog.IdleTimeoutSeconds,
				proc.Alive, time.Now())

			if asJSON {
				out, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(out))
				return nil
			}

			cmd.Printf("session:         %s\n", st.Session)
			cmd.Printf("daemon running:  %v\n", st.DaemonRunning)
			if st.OwnerPID != 0 {
				cmd.Printf("owner:           pid %d (alive: %v)\n", st.OwnerPID, st.OwnerAlive)
			} else {
				cmd.Println("owner:           unknown")
			}
			if st.WatchdogPID != 0 {
				cmd.Printf("watchdog:        pid %d (alive: %v)\n", st.WatchdogPID, st.WatchdogAlive)
			} else {
				cmd.Println("watchdog:        not running")
			}
			if st.LastActivity != "" {
				cmd.Printf("last activity:   %s (%.0fs ago)\n", st.LastActivity, st.IdleSeconds)
			} else {
				cmd.Println("last activity:   none recorded")
			}
			cmd.Printf("idle timeout:    %ds\n", st.IdleTimeout)
			return nil
		},
	}

	statusCmd.Flags().BoolVar(&asJSON, "json", false, "emit machine-readable JSON")
	return statusCmd
}
