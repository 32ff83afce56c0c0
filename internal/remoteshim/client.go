package remoteshim

import (
	"fmt"
	"net"
	"time"
)

// Client is the thin front end: it owns nothing but the socket
// connection and relays bytes between the local tty and the host
// process on the other end.
type Client struct {
	conn        net.Conn
	SessionName string
}

// Dial connects to a running session's shim server and completes the
// hello/welcome handshake, reporting rows/cols as the client's current
// terminal size.
func Dial(socketPath string, rows, cols int) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("remoteshim: dial %s: %w", socketPath, err)
	}

	if err := WriteFrame(conn, FrameHello, EncodeHello(rows, cols, ProtocolVersion)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("remoteshim: send hello: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	frame, err := ReadFrame(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("remoteshim: read welcome: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if frame.Type != FrameWelcome {
		conn.Close()
		return nil, fmt.Errorf("remoteshim: expected welcome, got frame type %d", frame.Type)
	}

	accepted, sessionName, _, reason, err := DecodeWelcome(frame.Payload)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("remoteshim: decode welcome: %w", err)
	}
	if !accepted {
		conn.Close()
		return nil, fmt.Errorf("remoteshim: attach rejected: %s", reason)
	}

	return &Client{conn: conn, SessionName: sessionName}, nil
}

// ReadFrame reads the next frame from the host (data to render or a
// close notice).
func (c *Client) ReadFrame() (*Frame, error) {
	return ReadFrame(c.conn)
}

// SendInput forwards locally typed bytes to the host.
func (c *Client) SendInput(data []byte) error {
	return WriteFrame(c.conn, FrameData, data)
}

// SendResize tells the host the attached terminal changed size.
func (c *Client) SendResize(rows, cols int) error {
	return WriteFrame(c.conn, FrameResize, EncodeResize(rows, cols))
}

// Close ends the connection, telling the host this client is
// detaching cleanly.
func (c *Client) Close() error {
	WriteFrame(c.conn, FrameClose, []byte(CloseReasons.Detached))
	return c.conn.Close()
}
