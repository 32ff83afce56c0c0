//go:build linux

package ptyregistry

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// foregroundProcessName resolves the PTY's foreground process group leader
// via TIOCGPGRP on the PTY master fd, then reads its /proc/<pid>/comm.
func foregroundProcessName(ptyFd int) (string, bool) {
	pgrp, err := unix.IoctlGetInt(ptyFd, unix.TIOCGPGRP)
	if err != nil || pgrp <= 0 {
		return "", false
	}

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pgrp))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// processCwd resolves a process's current working directory via the
// /proc/<pid>/cwd symlink.
func processCwd(pid int) (string, bool) {
	link, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	if err != nil {
		return "", false
	}
	return link, true
}
