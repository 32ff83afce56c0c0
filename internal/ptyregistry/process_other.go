//go:build !linux && !darwin

package ptyregistry

// foregroundProcessName and processCwd have no portable implementation
// outside Linux/macOS; callers treat the false return as "unknown" (§4.C).
func foregroundProcessName(ptyFd int) (string, bool) { return "", false }

func processCwd(pid int) (string, bool) { return "", false }
