// File: internal/proc/owner.go
package proc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// agentHints name the interactive agent processes a session is considered
// owned by. Matching is case-insensitive substring over the command line.
var agentHints = []string{"claude", "codex", "cursor", "aider"}

// ignoredNames are shells and interpreters that never count as an owner;
// when the walk finds nothing better it falls back to the nearest ancestor
// that is not one of these.
var ignoredNames = map[string]struct{}{
	"bash": {}, "dash": {}, "fish": {}, "sh": {}, "zsh": {},
	"cmd": {}, "cmd.exe": {}, "powershell": {}, "powershell.exe": {},
	"pwsh": {}, "pwsh.exe": {},
	"python": {}, "python3": {}, "python.exe": {},
	"node": {}, "node.exe": {}, "npm": {}, "npm.cmd": {},
	"go": {}, "tether": {},
}

// ancestor is one hop of the process ancestry chain.
type ancestor struct {
	PID     int
	PPID    int
	Cmdline string
}

// lookupFn resolves a PID to its ancestry info. Factored out so the walk is
// testable without real processes.
type lookupFn func(pid int) (ancestor, bool)

// DetectOwnerPID walks the process ancestry looking for a recognizable
// interactive agent, falling back to the nearest non-shell ancestor. Returns
// 0 when nothing plausible is found.
func DetectOwnerPID() int {
	return detectOwnerPID(os.Getppid(), gopsutilLookup)
}

func detectOwnerPID(start int, lookup lookupFn) int {
	pid := start
	fallback := 0
	seen := make(map[int]struct{})

	for i := 0; i < 20; i++ {
		if pid <= 1 {
			break
		}
		if _, dup := seen[pid]; dup {
			break
		}
		seen[pid] = struct{}{}

		info, ok := lookup(pid)
		if !ok {
			break
		}
		if looksLikeAgent(info.Cmdline) {
			return pid
		}
		if fallback == 0 && !isIgnoredCommand(info.Cmdline) {
			fallback = pid
		}
		if info.PPID == 0 || info.PPID == pid {
			break
		}
		pid = info.PPID
	}
	return fallback
}

func looksLikeAgent(cmdline string) bool {
	lower := strings.ToLower(cmdline)
	for _, hint := range agentHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func isIgnoredCommand(cmdline string) bool {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(fields[0]))
	_, ignored := ignoredNames[base]
	return ignored
}

func gopsutilLookup(pid int) (ancestor, bool) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ancestor{}, false
	}
	ppid, err := p.Ppid()
	if err != nil {
		return ancestor{}, false
	}
	cmdline, err := p.Cmdline()
	if err != nil || cmdline == "" {
		// Fall back to the bare process name; kernel threads and foreign
		// processes often refuse Cmdline.
		if name, nerr := p.Name(); nerr == nil {
			cmdline = name
		}
	}
	return ancestor{PID: pid, PPID: int(ppid), Cmdline: cmdline}, true
}
