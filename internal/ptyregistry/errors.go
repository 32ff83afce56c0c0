package ptyregistry

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// ErrNotFound is returned by any operation addressing an unknown PtyId.
var ErrNotFound = goerrors.New("ptyregistry: session not found")

// ErrSpawnFailed wraps the underlying pty.Start error on Create failure,
// keeping the go-errors stack trace attached (available through
// .ErrorStack() on the returned *goerrors.Error).
type ErrSpawnFailed struct {
	Cause error
}

func (e *ErrSpawnFailed) Error() string {
	return fmt.Sprintf("ptyregistry: spawn failed: %v", e.Cause)
}

func (e *ErrSpawnFailed) Unwrap() error { return e.Cause }

func wrapSpawn(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(&ErrSpawnFailed{Cause: err}, 1)
}
