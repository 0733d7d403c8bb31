// File: cmd/stop.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krellwind/tether/internal/observability"
)

// newStopCmd creates the `stop` command.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the session's automation daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient(appCfg, false, false)
			if err != nil {
				return err
			}

			stopped, err := client.Shutdown(appCfg.Daemon.ShutdownTimeout)
			if err != nil {
				return err
			}
			if !stopped {
				cmd.Println("no daemon running")
				return nil
			}

			// The session is over; its activity record is noise from here on.
			if err := buildActivityStore(appCfg).RemoveRecord(); err != nil {
				observability.GetLogger().Warn("Activity record cleanup failed", zap.Error(err))
			}
			cmd.Println("daemon stopped")
			return nil
		},
	}
}
