// Package remoteshim implements a Unix-socket front end that lets a
// second terminal attach to an already-running openmux process. The
// host process keeps owning the ptyregistry.Registry and layout.Workspace;
// a shim connection only relays the bytes the local event loop already
// produces and consumes, so there is no second rendering or input path.
//
// Grounded on thicc's internal/session package: the same length-prefixed
// frame format, the same single-client-at-a-time socket server shape,
// generalized from "forward bytes to a child PTY" to "forward bytes to
// whatever Host the hosting process hands us".
package remoteshim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame types.
const (
	FrameData    byte = 1 // raw terminal bytes, either direction
	FrameResize  byte = 2 // client -> server, rows/cols changed
	FrameClose   byte = 3 // either direction, connection is ending
	FrameHello   byte = 4 // client -> server, initial handshake
	FrameWelcome byte = 5 // server -> client, handshake response
)

// MaxFrameSize bounds a single frame's payload to guard against a
// corrupt length prefix turning into an unbounded allocation.
const MaxFrameSize = 1024 * 1024

// ProtocolVersion is exchanged during the hello/welcome handshake. A
// mismatch fails the handshake rather than risk decoding frames a peer
// built for a different wire format.
const ProtocolVersion = "1"

// Frame is one length-prefixed message read off the socket.
type Frame struct {
	Type    byte
	Payload []byte
}

var (
	ErrFrameTooLarge = errors.New("remoteshim: frame exceeds MaxFrameSize")
	ErrBadPayload    = errors.New("remoteshim: malformed frame payload")
)

// WriteFrame writes a single frame as [type:1][length:4 BE][payload]
// in one Write call so the OS never sees a torn header.
func WriteFrame(w io.Writer, frameType byte, payload []byte) error {
	buf := make([]byte, 5+len(payload))
	buf[0] = frameType
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame blocks until a full frame has arrived on r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[1:5])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &Frame{Type: header[0], Payload: payload}, nil
}

// EncodeResize packs rows/cols into a 4-byte payload for FrameResize.
func EncodeResize(rows, cols int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], uint16(rows))
	binary.BigEndian.PutUint16(buf[2:4], uint16(cols))
	return buf
}

// DecodeResize is the inverse of EncodeResize.
func DecodeResize(payload []byte) (rows, cols int, err error) {
	if len(payload) != 4 {
		return 0, 0, ErrBadPayload
	}
	rows = int(binary.BigEndian.Uint16(payload[0:2]))
	cols = int(binary.BigEndian.Uint16(payload[2:4]))
	return rows, cols, nil
}

// EncodeHello packs the client's initial terminal size and protocol
// version for FrameHello.
func EncodeHello(rows, cols int, version string) []byte {
	buf := make([]byte, 4+len(version))
	binary.BigEndian.PutUint16(buf[0:2], uint16(rows))
	binary.BigEndian.PutUint16(buf[2:4], uint16(cols))
	copy(buf[4:], version)
	return buf
}

// DecodeHello is the inverse of EncodeHello.
func DecodeHello(payload []byte) (rows, cols int, version string, err error) {
	if len(payload) < 4 {
		return 0, 0, "", ErrBadPayload
	}
	rows = int(binary.BigEndian.Uint16(payload[0:2]))
	cols = int(binary.BigEndian.Uint16(payload[2:4]))
	version = string(payload[4:])
	return rows, cols, version, nil
}

// EncodeWelcome packs the server's handshake response: whether the
// client was accepted, the session name, protocol version, and (on
// rejection) a human-readable reason.
func EncodeWelcome(accepted bool, sessionName, version, reason string) []byte {
	var flag byte
	if accepted {
		flag = 1
	}
	parts := fmt.Sprintf("%s\x00%s\x00%s", sessionName, version, reason)
	buf := make([]byte, 1+len(parts))
	buf[0] = flag
	copy(buf[1:], parts)
	return buf
}

// DecodeWelcome is the inverse of EncodeWelcome.
func DecodeWelcome(payload []byte) (accepted bool, sessionName, version, reason string, err error) {
	if len(payload) < 1 {
		return false, "", "", "", ErrBadPayload
	}
	accepted = payload[0] == 1
	fields := splitN3(string(payload[1:]))
	if fields == nil {
		return false, "", "", "", ErrBadPayload
	}
	return accepted, fields[0], fields[1], fields[2], nil
}

// splitN3 splits s on NUL into exactly 3 fields, or returns nil.
func splitN3(s string) []string {
	out := make([]string, 0, 3)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	if len(out) != 3 {
		return nil
	}
	return out
}

// CloseReason strings sent in a FrameClose payload.
var CloseReasons = struct {
	NewClient     string
	ServerStop    string
	HostExited    string
	Detached      string
	VersionSkew   string
}{
	NewClient:   "superseded by a new attach",
	ServerStop:  "host session is shutting down",
	HostExited:  "host process exited",
	Detached:    "detached",
	VersionSkew: "protocol version mismatch",
}
