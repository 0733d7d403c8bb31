// File: internal/proc/proc.go
//
// Package proc wraps the process-level primitives the session core needs:
// PID liveness, detached child spawning, and owner detection by walking the
// process ancestry.
package proc

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Alive reports whether a PID names a live process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// StartDetached launches argv as a detached OS process with extra environment
// entries appended to the current environment. The child outlives the caller;
// stdio is discarded. Returns the child's PID.
func StartDetached(argv []string, extraEnv ...string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedSysProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	pid := cmd.Process.Pid
	// Release so the child is not reparented to us as a zombie-in-waiting.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("releasing %s (pid %d): %w", argv[0], pid, err)
	}
	return pid, nil
}

// Supervisor is the minimal contract for keeping one external process
// available. The default implementation polls a socket endpoint; platform
// native supervision can be substituted without touching call sites.
type Supervisor interface {
	// Start spawns the process and blocks until it is reachable or the
	// startup timeout elapses.
	Start() error
	// IsAlive reports whether the process is currently reachable.
	IsAlive() bool
	// Stop asks the process to exit and reports whether it disappeared
	// within the timeout.
	Stop(timeout time.Duration) (bool, error)
}
