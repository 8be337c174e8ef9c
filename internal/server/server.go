// Package server owns the TCP accept loop and the per-connection workers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"authsrv-go/internal/config"
	"authsrv-go/internal/metrics"
	"authsrv-go/internal/model"
	"authsrv-go/internal/protocol"
)

// Handler answers one received buffer. A nil reply with a nil error closes
// the connection silently; a non-nil error closes it and is logged.
type Handler interface {
	Handle(buf []byte) ([]byte, error)
}

// Server accepts connections and runs one goroutine per connection.
type Server struct {
	addr        string
	bufferSize  int
	keepAlive   bool
	readTimeout time.Duration
	maxConns    int
	reuseAddr   bool

	handler Handler
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
	loopDone chan struct{}
}

// New creates a Server from the [server] config section. The metrics
// parameter is optional; pass nil to disable recording.
func New(cfg *config.Config, h Handler, logger *slog.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		addr:        cfg.Server.Addr(),
		bufferSize:  cfg.Server.BufferSize,
		keepAlive:   cfg.Server.KeepAlive,
		readTimeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		maxConns:    cfg.Server.MaxConnections,
		reuseAddr:   cfg.Server.ReuseAddr == nil || *cfg.Server.ReuseAddr,
		handler:     h,
		logger:      logger.With("component", "server"),
		metrics:     m,
		conns:       make(map[net.Conn]struct{}),
	}
	if s.bufferSize <= 0 {
		s.bufferSize = 16384
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		burst := rl.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rl.ConnectionsPerSecond), burst)
	}
	return s
}

// Listen binds the configured address.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	lc := listenConfig(s.reuseAddr)
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", s.addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until Shutdown is called or ln fails.
// It returns nil after a Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.loopDone = make(chan struct{})
	s.mu.Unlock()
	defer close(s.loopDone)

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay = min(2*tempDelay, time.Second)
				}
				s.logger.Warn("accept error; retrying", "err", err, "delay", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		tempDelay = 0

		if s.metrics != nil {
			s.metrics.ConnectionsTotal.Inc()
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		if s.limiter != nil && !s.limiter.Allow() {
			go s.reject(conn)
			continue
		}
		go s.serveConn(conn)
	}
}

// reject answers an over-limit connection with 429 and closes it. It runs
// off the accept loop so a peer that never reads cannot stall accepting.
func (s *Server) reject(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()
	if s.metrics != nil {
		s.metrics.DroppedTotal.WithLabelValues(metrics.DropRateLimited).Inc()
	}
	s.logger.Warn("connection rate limited", "remote", conn.RemoteAddr().String())
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = conn.Write(protocol.Encode(model.NewResponse(http.StatusTooManyRequests)))
}

// serveConn runs the read/handle/write cycle for one connection. The
// connection is closed on every exit path.
func (s *Server) serveConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer s.wg.Done()
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("connection panic", "remote", remote, "panic", r)
			s.dropped(metrics.DropError)
		}
	}()

	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
		defer s.metrics.ConnectionsActive.Dec()
	}

	// One fixed-size read per request; headers larger than the buffer fail framing.
	buf := make([]byte, s.bufferSize)
	for {
		if s.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		n, err := conn.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Error("read", "remote", remote, "err", err)
			s.dropped(metrics.DropError)
			return
		}

		reply, herr := s.handler.Handle(buf[:n])
		if herr != nil {
			s.logger.Error("request failed", "remote", remote, "err", herr)
			return
		}
		if reply == nil {
			return
		}
		if _, werr := conn.Write(reply); werr != nil {
			s.logger.Error("write", "remote", remote, "err", werr)
			s.dropped(metrics.DropError)
			return
		}

		if !s.keepAlive || err != nil {
			return
		}
	}
}

// Shutdown stops accepting and waits for workers to finish. When ctx expires
// first, remaining connections are closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	ln := s.ln
	loopDone := s.loopDone
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
		<-loopDone
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

// ActiveConnections returns the number of connections being served.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) dropped(reason string) {
	if s.metrics != nil {
		s.metrics.DroppedTotal.WithLabelValues(reason).Inc()
	}
}
