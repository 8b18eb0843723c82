package tcpapi

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/service"
	"github.com/cardea-gate/cardea/internal/cardea/store"
	"github.com/cardea-gate/cardea/internal/cardea/types"
)

// connTimeout bounds one whole request/response exchange.
const connTimeout = 2 * time.Second

type Dependencies struct {
	Logger   *zap.Logger
	Addr     string
	Engine   *service.Engine
	Markers  store.MarkerStore
	WipeKeep []string
}

// Server is the authority listener: it exposes the shared validation
// engine (and the wipe command) to client nodes, one request per
// connection. The engine and store are injected at construction; nothing
// is resolved from ambient state.
type Server struct {
	logger   *zap.Logger
	addr     string
	engine   *service.Engine
	markers  store.MarkerStore
	wipeKeep []string

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:   logger,
		addr:     d.Addr,
		engine:   d.Engine,
		markers:  d.Markers,
		wipeKeep: d.WipeKeep,
	}
}

// Start listens and serves until Shutdown. Blocks.
func (s *Server) Start() error {
	// The store root must exist before the first request; creating it
	// twice is harmless.
	if err := s.markers.EnsureRoot(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting and waits for in-flight connections, bounded
// by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
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
		return ctx.Err()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	buf := make([]byte, maxMessage)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}
	msg := strings.TrimSpace(string(buf[:n]))
	if msg == "" {
		// Empty request: drop without a reply.
		return
	}

	s.logger.Info("request", zap.String("from", conn.RemoteAddr().String()), zap.String("msg", msg))

	if msg == WipeSentinel {
		// Wipe is best-effort: the acknowledgement goes out regardless.
		if err := s.markers.Wipe(s.wipeKeep); err != nil {
			s.logger.Error("remote-commanded wipe incomplete", zap.Error(err))
		}
		_, _ = conn.Write([]byte(WipeAck))
		return
	}

	code, override, ok := parseRequest(msg)
	if !ok {
		// Malformed request: drop the connection, no reply.
		s.logger.Warn("malformed request dropped", zap.String("msg", msg))
		return
	}

	resp := respClose
	if s.engine.Evaluate(context.Background(), code, override) == types.Granted {
		resp = respOpen
	}
	_, _ = conn.Write([]byte(resp))
}

// parseRequest splits "<code>:<True|False>".
func parseRequest(msg string) (code string, override bool, ok bool) {
	code, flag, found := strings.Cut(msg, ":")
	if !found || code == "" {
		return "", false, false
	}
	switch flag {
	case overrideTrue:
		return code, true, true
	case overrideFalse:
		return code, false, true
	default:
		return "", false, false
	}
}
