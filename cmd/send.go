// File: cmd/send.go
package cmd

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

// newSendCmd creates the `send` command, the raw escape hatch into the
// daemon's action vocabulary.
func newSendCmd() *cobra.Command {
	var (
		headed  bool
		params  []string
		rawData string
	)

	sendCmd := &cobra.Command{
		Use:   "send <action>",
		Short: "Send one protocol command to the session's daemon",
		Long: `Send one protocol command to the session's daemon, starting the daemon
if needed. Parameters are given as repeated --param key=value pairs (values
are parsed as JSON when possible, kept as strings otherwise) or as a single
--data JSON object.

Examples:
  tether send navigate --param url=https://example.com
  tether send snapshot --param compact=true --param interactive=true
  tether send evaluate --data '{"script":"document.title"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdParams, err := parseParams(params, rawData)
			if err != nil {
				return err
			}

			client, err := buildClient(appCfg, headed, true)
			if err != nil {
				return err
			}
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}
			defer client.Close()

			data, err := client.Send(args[0], cmdParams)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				cmd.Println("ok")
				return nil
			}
			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}

	sendCmd.Flags().BoolVar(&headed, "headed", false, "run the browser with a visible window (restarts a headless daemon)")
	sendCmd.Flags().StringArrayVar(&params, "param", nil, "command parameter as key=value (repeatable)")
	sendCmd.Flags().StringVar(&rawData, "data", "", "command parameters as one JSON object")
	return sendCmd
}

// parseParams merges --data and --param inputs into one parameter map.
// --param values win over --data keys.
func parseParams(pairs []string, rawData string) (map[string]any, error) {
	out := map[string]any{}
	if rawData != "" {
		if err := json.Unmarshal([]byte(rawData), &out); err != nil {
			return nil, fmt.Errorf("invalid --data JSON: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		out[key] = coerceValue(value)
	}
	return out, nil
}

// coerceValue interprets a flag value as JSON when it parses as one, so
// booleans and numbers arrive typed; everything else stays a string.
func coerceValue(value string) any {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err == nil {
		return v
	}
	return value
}
