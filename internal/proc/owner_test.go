package proc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

// chainLookup builds a lookupFn from a static ancestry table.
func chainLookup(chain map[int]ancestor) lookupFn {
	return func(pid int) (ancestor, bool) {
		a, ok := chain[pid]
		return a, ok
	}
}

func TestDetectOwnerFindsAgentAncestor(t *testing.T) {
	lookup := chainLookup(map[int]ancestor{
		100: {PID: 100, PPID: 90, Cmdline: "/bin/bash"},
		90:  {PID: 90, PPID: 80, Cmdline: "claude --dangerously-skip-permissions"},
		80:  {PID: 80, PPID: 1, Cmdline: "/sbin/init"},
	})

	assert.Equal(t, 90, detectOwnerPID(100, lookup))
}

func TestDetectOwnerFallsBackToNearestNonShell(t *testing.T) {
	lookup := chainLookup(map[int]ancestor{
		100: {PID: 100, PPID: 90, Cmdline: "/bin/zsh"},
		90:  {PID: 90, PPID: 80, Cmdline: "tmux new-session"},
		80:  {PID: 80, PPID: 1, Cmdline: "/sbin/init"},
	})

	assert.Equal(t, 90, detectOwnerPID(100, lookup))
}

func TestDetectOwnerIgnoresShellsAndInterpreters(t *testing.T) {
	lookup := chainLookup(map[int]ancestor{
		100: {PID: 100, PPID: 90, Cmdline: "python3 script.py"},
		90:  {PID: 90, PPID: 1, Cmdline: "/bin/bash -l"},
	})

	assert.Equal(t, 0, detectOwnerPID(100, lookup))
}

func TestDetectOwnerStopsOnCycle(t *testing.T) {
	lookup := chainLookup(map[int]ancestor{
		100: {PID: 100, PPID: 90, Cmdline: "/bin/bash"},
		90:  {PID: 90, PPID: 100, Cmdline: "/bin/bash"},
	})

	assert.Equal(t, 0, detectOwnerPID(100, lookup))
}

func TestDetectOwnerStopsWhenLookupFails(t *testing.T) {
	lookup := chainLookup(map[int]ancestor{})
	assert.Equal(t, 0, detectOwnerPID(100, lookup))
}

func TestAliveRejectsNonPositivePIDs(t *testing.T) {
	assert.False(t, Alive(0))
	assert.False(t, Alive(-7))
}

func TestAliveSeesOwnProcess(t *testing.T) {
	// The test binary itself is the one process guaranteed to be alive.
	assert.True(t, Alive(os.Getpid()))
}
