//go:build !windows

package proc

import "syscall"

// detachedSysProcAttr puts the child in its own session so it survives the
// parent's exit and never receives the parent's terminal signals.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
