package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/openmux/openmux/internal/remoteshim"
)

// runAttach connects to a running session's shim socket, puts the local
// tty into raw mode, and relays bytes in both directions until the
// session detaches the client or the connection drops. Grounded on
// dcosson-h2/internal/overlay/overlay.go's MakeRaw/Restore/SIGWINCH
// dance for putting a real terminal into passthrough mode.
func runAttach(sessionId string) int {
	socketPath, err := remoteshim.SocketPath(sessionId)
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux attach: resolve socket path:", err)
		return 1
	}
	if !remoteshim.IsSocketLive(socketPath) {
		fmt.Fprintln(os.Stderr, "openmux attach: no running session with that id")
		return 1
	}

	fd := int(os.Stdin.Fd())
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}

	client, err := remoteshim.Dial(socketPath, rows, cols)
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux attach:", err)
		return 1
	}
	defer client.Close()

	state, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "openmux attach: set raw mode:", err)
		return 1
	}
	defer term.Restore(fd, state)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	go func() {
		for range sigCh {
			if c, r, err := term.GetSize(fd); err == nil {
				client.SendResize(r, c)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if err := client.SendInput(buf[:n]); err != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if err != io.EOF {
				fmt.Fprintln(os.Stderr, "openmux attach: connection lost:", err)
			}
			return 0
		}
		switch frame.Type {
		case remoteshim.FrameData:
			os.Stdout.Write(frame.Payload)
		case remoteshim.FrameClose:
			return 0
		}
	}
}
