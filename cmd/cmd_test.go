package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamsMergesDataAndPairs(t *testing.T) {
	params, err := parseParams(
		[]string{"url=https://example.com", "compact=true", "depth=3"},
		`{"compact":false,"extra":"kept"}`)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", params["url"])
	assert.Equal(t, true, params["compact"], "--param overrides --data")
	assert.Equal(t, float64(3), params["depth"])
	assert.Equal(t, "kept", params["extra"])
}

func TestParseParamsRejectsMalformedPair(t *testing.T) {
	_, err := parseParams([]string{"no-equals-sign"}, "")
	require.Error(t, err)

	_, err = parseParams([]string{"=value"}, "")
	require.Error(t, err)
}

func TestParseParamsRejectsBadData(t *testing.T) {
	_, err := parseParams(nil, "{broken")
	require.Error(t, err)
}

func TestCoerceValueTypes(t *testing.T) {
	assert.Equal(t, true, coerceValue("true"))
	assert.Equal(t, float64(42), coerceValue("42"))
	assert.Equal(t, nil, coerceValue("null"))
	assert.Equal(t, "hello world", coerceValue("hello world"))
	// URLs contain colons and slashes that are not valid JSON.
	assert.Equal(t, "https://example.com", coerceValue("https://example.com"))
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	hidden := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
		hidden[sub.Name()] = sub.Hidden
	}

	for _, want := range []string{"status", "stop", "send", "state", "watchdog"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	assert.True(t, hidden["watchdog"], "watchdog is an internal entry point")
	assert.False(t, hidden["status"])
}

func TestStateSubcommands(t *testing.T) {
	stateCmd := newStateCmd()
	names := map[string]bool{}
	for _, sub := range stateCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"save", "restore", "switch", "list", "remove", "clear"} {
		assert.True(t, names[want], "missing state subcommand %s", want)
	}
}
