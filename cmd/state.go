// File: cmd/state.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krellwind/tether/internal/observability"
	"github.com/krellwind/tether/internal/statestore"
)

// newStateCmd creates the `state` command group for saved browser identities.
func newStateCmd() *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Save, restore, and switch persisted browser identities",
	}
	stateCmd.AddCommand(newStateSaveCmd())
	stateCmd.AddCommand(newStateRestoreCmd())
	stateCmd.AddCommand(newStateSwitchCmd())
	stateCmd.AddCommand(newStateListCmd())
	stateCmd.AddCommand(newStateRemoveCmd())
	stateCmd.AddCommand(newStateClearCmd())
	return stateCmd
}

func openStateStore() (*statestore.Store, error) {
	return statestore.New(appCfg.AuthDir(), observability.GetLogger())
}

func newStateSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <identity>",
		Short: "Capture the live browser's cookies and storage under an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := openStateStore()
			if err != nil {
				return err
			}
			client, err := buildClient(appCfg, false, true)
			if err != nil {
				return err
			}
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}
			defer client.Close()

			if err := client.SaveStateAs(states, args[0]); err != nil {
				return err
			}
			cmd.Printf("saved identity %q\n", args[0])
			return nil
		},
	}
}

func newStateRestoreCmd() *cobra.Command {
	var identity string

	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Replay a saved identity's state into the live browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := openStateStore()
			if err != nil {
				return err
			}

			var state *statestore.StorageState
			if identity != "" {
				state, err = states.Load(identity)
			} else {
				state, err = states.LoadCurrent()
			}
			if err != nil {
				return err
			}

			client, err := buildClient(appCfg, false, true)
			if err != nil {
				return err
			}
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}
			defer client.Close()

			if err := client.SetStorageState(state); err != nil {
				return err
			}
			cmd.Println("state restored")
			return nil
		},
	}

	restoreCmd.Flags().StringVar(&identity, "identity", "", "identity to restore (default: the current one)")
	return restoreCmd
}

func newStateSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <identity>",
		Short: "Make a saved identity the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := openStateStore()
			if err != nil {
				return err
			}
			if err := states.Switch(args[0]); err != nil {
				return err
			}
			cmd.Printf("current identity is now %q\n", args[0])
			return nil
		},
	}
}

func newStateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := openStateStore()
			if err != nil {
				return err
			}
			ids, err := states.Identities()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				cmd.Println("no identities saved")
				return nil
			}

			active, _ := states.ActiveIdentity()
			for _, id := range ids {
				marker := " "
				if id.Name == active {
					marker = "*"
				}
				cmd.Printf("%s %s (added %s)\n", marker, id.Name, id.AddedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newStateRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <identity>",
		Short: "Delete a saved identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := openStateStore()
			if err != nil {
				return err
			}
			if err := states.Remove(args[0]); err != nil {
				return err
			}
			cmd.Printf("removed identity %q\n", args[0])
			return nil
		},
	}
}

func newStateClearCmd() *cobra.Command {
	var yes bool

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all identities without --yes")
			}
			states, err := openStateStore()
			if err != nil {
				return err
			}
			if err := states.Clear(); err != nil {
				return err
			}
			cmd.Println("all identities removed")
			return nil
		},
	}

	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return clearCmd
}
