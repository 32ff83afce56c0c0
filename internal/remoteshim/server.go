package remoteshim

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Host is what the hosting process exposes to a Server: the sink for
// bytes a remote client typed, and a hook for the resize it reports on
// attach or window change. Output flows the other way through
// Server.Broadcast, which the host calls from the same place it writes
// to the local tty, so a remote attach is never a second render path.
type Host interface {
	HandleInput(data []byte)
	HandleResize(rows, cols int)
}

// ErrSessionLocked is returned by NewServer when another process
// already holds the session's attach lock.
var ErrSessionLocked = errors.New("remoteshim: session socket is already owned by another process")

// Server listens on a Unix socket and relays frames between a single
// remote client at a time and a Host. A second client bumps the first
// one off with FrameClose rather than being refused.
type Server struct {
	socketPath  string
	sessionName string
	host        Host

	lock     *flock.Flock
	listener net.Listener

	mu     sync.Mutex
	client net.Conn

	stopCh  chan struct{}
	stopped bool
}

// NewServer acquires the session's attach lock and binds its socket.
// Call Serve to start accepting clients, and Stop to release both.
func NewServer(socketPath, sessionName string, host Host) (*Server, error) {
	lock := flock.New(socketPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("remoteshim: acquire session lock: %w", err)
	}
	if !locked {
		return nil, ErrSessionLocked
	}

	os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("remoteshim: listen on %s: %w", socketPath, err)
	}

	return &Server{
		socketPath:  socketPath,
		sessionName: sessionName,
		host:        host,
		lock:        lock,
		listener:    listener,
		stopCh:      make(chan struct{}),
	}, nil
}

// Serve accepts connections until Stop is called. Run it in its own
// goroutine.
func (s *Server) Serve() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if ul, ok := s.listener.(*net.UnixListener); ok {
			ul.SetDeadline(time.Now().Add(time.Second))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
				return
			default:
				continue
			}
		}

		go s.handleClient(conn)
	}
}

func (s *Server) handleClient(conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	frame, err := ReadFrame(conn)
	if err != nil {
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	if frame.Type != FrameHello {
		conn.Close()
		return
	}

	rows, cols, clientVersion, err := DecodeHello(frame.Payload)
	if err != nil {
		conn.Close()
		return
	}

	if clientVersion != ProtocolVersion {
		payload := EncodeWelcome(false, s.sessionName, ProtocolVersion, CloseReasons.VersionSkew)
		WriteFrame(conn, FrameWelcome, payload)
		conn.Close()
		return
	}

	s.mu.Lock()
	if s.client != nil {
		WriteFrame(s.client, FrameClose, []byte(CloseReasons.NewClient))
		time.Sleep(50 * time.Millisecond)
		s.client.Close()
	}
	s.client = conn
	s.mu.Unlock()

	s.host.HandleResize(rows, cols)

	if err := WriteFrame(conn, FrameWelcome, EncodeWelcome(true, s.sessionName, ProtocolVersion, "")); err != nil {
		s.clearClient(conn)
		return
	}

	s.clientReadLoop(conn)

	s.clearClient(conn)
}

func (s *Server) clientReadLoop(conn net.Conn) {
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			return
		}

		switch frame.Type {
		case FrameData:
			s.host.HandleInput(frame.Payload)

		case FrameResize:
			rows, cols, err := DecodeResize(frame.Payload)
			if err != nil {
				continue
			}
			s.host.HandleResize(rows, cols)

		case FrameClose:
			return

		default:
			// unknown frame types are ignored rather than treated as fatal
		}
	}
}

// Broadcast writes data to the currently attached client, if any. The
// host calls this with exactly the bytes it renders locally.
func (s *Server) Broadcast(data []byte) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return
	}
	if err := WriteFrame(client, FrameData, data); err != nil {
		s.clearClient(client)
	}
}

// HasClient reports whether a remote client is currently attached.
func (s *Server) HasClient() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

func (s *Server) clearClient(conn net.Conn) {
	s.mu.Lock()
	if s.client == conn {
		s.client = nil
	}
	s.mu.Unlock()
}

// Stop closes the listener, disconnects any attached client, and
// releases the session lock. Safe to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopCh)

	s.mu.Lock()
	if s.client != nil {
		WriteFrame(s.client, FrameClose, []byte(CloseReasons.ServerStop))
		time.Sleep(50 * time.Millisecond)
		s.client.Close()
		s.client = nil
	}
	s.mu.Unlock()

	s.listener.Close()
	os.Remove(s.socketPath)
	s.lock.Unlock()
	os.Remove(s.lock.Path())
}
