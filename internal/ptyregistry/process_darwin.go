//go:build darwin

package ptyregistry

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// foregroundProcessName resolves the PTY's foreground process group leader
// via TIOCGPGRP, then shells out to ps for the command name (no /proc on
// macOS).
func foregroundProcessName(ptyFd int) (string, bool) {
	pgrp, err := unix.IoctlGetInt(ptyFd, unix.TIOCGPGRP)
	if err != nil || pgrp <= 0 {
		return "", false
	}

	out, err := exec.Command("ps", "-p", fmt.Sprintf("%d", pgrp), "-o", "comm=").Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

// processCwd resolves a process's current working directory via lsof,
// the closest equivalent to /proc/<pid>/cwd available without cgo.
func processCwd(pid int) (string, bool) {
	out, err := exec.Command("lsof", "-a", "-p", fmt.Sprintf("%d", pid), "-d", "cwd", "-Fn").Output()
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "n") {
			return strings.TrimPrefix(line, "n"), true
		}
	}
	return "", false
}
