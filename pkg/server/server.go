package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niels/staticd/pkg/config"
	"github.com/niels/staticd/pkg/logging"
	"github.com/niels/staticd/pkg/resolver"
	"github.com/rs/zerolog"
)

// ErrShutdownIncomplete is returned by Stop when connection handlers are
// still running after both grace periods. It is non-fatal: the listener is
// unbound either way, and the caller decides whether to force-exit.
var ErrShutdownIncomplete = errors.New("shutdown incomplete: connection handlers still running")

// acceptPollInterval bounds each Accept call so the loop observes the
// running flag promptly.
const acceptPollInterval = 1 * time.Second

// Server owns the listening socket and the per-connection workers. One
// goroutine runs the accept loop; every accepted connection is handled on
// its own goroutine with no shared mutable state beyond the running flag.
type Server struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	log      zerolog.Logger

	running atomic.Bool

	mu       sync.Mutex
	listener *net.TCPListener
	stopCh   chan struct{}
	active   map[net.Conn]struct{}

	handlers sync.WaitGroup

	// sem gates admission when max_connections is configured; nil means
	// one worker per connection with no admission control.
	sem chan struct{}
}

// New validates the configuration and canonicalizes the base directory.
// The returned server is stopped; call Start to bind the listener.
func New(cfg *config.Config) (*Server, error) {
	res, err := resolver.New(cfg.Server.BaseDir)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		resolver: res,
		log:      logging.WithComponent("server"),
		active:   make(map[net.Conn]struct{}),
	}
	if cfg.Server.MaxConnections > 0 {
		s.sem = make(chan struct{}, cfg.Server.MaxConnections)
	}
	return s, nil
}

// Start binds the listener and launches the accept loop on its own
// goroutine. It does not block. A bind failure leaves the server stopped
// and is returned to the caller; it is the only fatal startup condition.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("server is already running")
	}
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: s.cfg.Server.Port})
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("binding port %d: %w", s.cfg.Server.Port, err)
	}
	stopCh := make(chan struct{})
	s.mu.Lock()
	s.listener = ln
	s.stopCh = stopCh
	s.mu.Unlock()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("base_dir", s.resolver.Base()).
		Msg("server started")

	go s.acceptLoop(ln, stopCh)
	return nil
}

// Addr returns the listener's address, or nil when the server is stopped.
// Useful when the configured port is 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop halts the accept loop, unbinds the port, and waits for in-flight
// handlers: up to one grace period for them to finish on their own, then
// their connections are force-closed and a second grace period starts.
// Handlers still running after that make Stop return ErrShutdownIncomplete.
// Stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.mu.Lock()
	ln := s.listener
	stopCh := s.stopCh
	s.listener = nil
	s.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
	}
	if ln != nil {
		ln.Close()
	}

	grace := s.cfg.Server.ShutdownGraceDuration()
	if waitWithTimeout(&s.handlers, grace) {
		s.log.Info().Msg("server stopped")
		return nil
	}

	// A handler blocked on a socket read or write has no cancellation
	// signal; closing its connection is the only way to unstick it.
	s.mu.Lock()
	remaining := len(s.active)
	for conn := range s.active {
		conn.Close()
	}
	s.mu.Unlock()
	s.log.Warn().
		Int("connections", remaining).
		Msg("grace period expired, forcing connections closed")

	if waitWithTimeout(&s.handlers, grace) {
		s.log.Info().Msg("server stopped")
		return nil
	}
	s.log.Error().Msg("connection handlers still running after forced close")
	return ErrShutdownIncomplete
}

// acceptLoop accepts connections until the running flag drops or the
// listener is closed. The listener is closed on every exit path.
func (s *Server) acceptLoop(ln *net.TCPListener, stopCh chan struct{}) {
	defer ln.Close()
	for s.running.Load() {
		ln.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// Re-poll the running flag.
				continue
			}
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("accept failed")
			continue
		}
		if !s.dispatch(conn, stopCh) {
			conn.Close()
			return
		}
	}
}

// dispatch hands an accepted connection to its worker goroutine, blocking
// on the admission semaphore when one is configured. It reports false when
// the server stopped while waiting for a slot.
func (s *Server) dispatch(conn net.Conn, stopCh chan struct{}) bool {
	if s.sem != nil {
		select {
		case s.sem <- struct{}{}:
		case <-stopCh:
			return false
		}
	}
	// Read deadline only: a stalled peer must still be able to receive
	// the timeout error response.
	conn.SetReadDeadline(time.Now().Add(s.cfg.Server.ReadTimeoutDuration()))

	s.mu.Lock()
	s.active[conn] = struct{}{}
	s.mu.Unlock()

	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, conn)
			s.mu.Unlock()
			if s.sem != nil {
				<-s.sem
			}
		}()
		s.handleConn(conn)
	}()
	return true
}

// waitWithTimeout waits for wg up to d and reports whether it finished.
func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
