package transport

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/pion/logging"
)

// Handler processes one command APDU and returns the response APDU.
type Handler func(command []byte) []byte

// ServerConfig configures a Server.
type ServerConfig struct {
	// Listener is an optional pre-existing Listener to use.
	// If nil, a new listener will be created using ListenAddr.
	Listener net.Listener

	// ListenAddr is the address to listen on (e.g., ":4050").
	// Ignored if Listener is provided.
	ListenAddr string

	// Handler is called for each received command.
	// Required.
	Handler Handler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Server accepts client connections and serves their commands.
type Server struct {
	listener net.Listener
	handler  Handler
	closeCh  chan struct{}
	wg       sync.WaitGroup
	log      logging.LeveledLogger

	// handlerMu serializes commands across connections.
	handlerMu sync.Mutex

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewServer creates a server. It does not accept connections until
// Start is called.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}

	s := &Server{
		listener: config.Listener,
		handler:  config.Handler,
		closeCh:  make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}

	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("transport")
	}

	if s.listener == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		s.listener = listener
	}

	return s, nil
}

// Start begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("listening on %s", s.listener.Addr())
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and all connections and waits for their
// goroutines to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("stopping")
	}

	close(s.closeCh)
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ServeConn serves an already established connection, such as one end
// of a Pipe. The connection is closed when the server stops.
func (s *Server) ServeConn(conn net.Conn) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	s.wg.Add(1)
	go s.handleConn(conn)
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if s.log != nil {
				s.log.Warnf("accept: %v", err)
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	if !s.track(conn) {
		conn.Close()
		return
	}
	defer func() {
		conn.Close()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
	}()

	if s.log != nil {
		s.log.Debugf("client %s connected", conn.RemoteAddr())
	}

	reader := NewStreamReader(conn)
	writer := NewStreamWriter(conn)
	for {
		command, err := reader.Read()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			if s.log != nil && !errors.Is(err, io.EOF) {
				s.log.Debugf("client %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		s.handlerMu.Lock()
		response := s.handler(command)
		s.handlerMu.Unlock()

		if err := writer.Write(response); err != nil {
			if s.log != nil {
				s.log.Debugf("client %s: writing response: %v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

// track registers conn so Stop closes it. It returns false once the
// server is stopping.
func (s *Server) track(conn net.Conn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	select {
	case <-s.closeCh:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}
