// Package server implements the chat server: an accept loop that spawns one
// session per incoming connection, a registry of live sessions, and the
// per-message handler that feeds inbound text to the reply engine and sends
// the reply back on the same session. Sessions are fully independent; the
// failure or disconnect of one never affects the others.
package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/go-chat/config"
	"github.com/cyberinferno/go-chat/floodguard"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/replyengine"
	"github.com/cyberinferno/go-chat/session"
)

// Server accepts chat connections and runs one Session per client. The
// accept loop runs in a goroutine after Start; Stop disconnects every
// registered session, drains the registry, and joins the accept loop.
type Server struct {
	name    string
	cfg     config.ServerConfig
	log     logger.Logger
	engine  replyengine.Engine
	limiter floodguard.Limiter

	listener net.Listener
	running  atomic.Bool
	registry *registry
	wg       sync.WaitGroup
}

// New creates a chat server. The reply engine is the strategy invoked once
// per received message; its reply is sent back on the originating session.
//
// Parameters:
//   - cfg: Server settings (address, message bound, quit sentinel, timeouts, flood)
//   - engine: The reply strategy; must be safe for concurrent use
//   - limiter: Flood limiter; nil means unlimited
//   - log: Logger for server events; nil uses a no-op logger
//
// Returns:
//   - A new *Server ready to Start
func New(cfg config.ServerConfig, engine replyengine.Engine, limiter floodguard.Limiter, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if limiter == nil {
		limiter = floodguard.Unlimited()
	}

	return &Server{
		name:     "chat",
		cfg:      cfg,
		log:      log,
		engine:   engine,
		limiter:  limiter,
		registry: newRegistry(),
	}
}

// Start binds the listen address and begins accepting connections in a
// goroutine. It is an error to start a server that is already running.
//
// Returns:
//   - An error if the server is already running or if listening fails
func (s *Server) Start() error {
	if s.running.Load() {
		s.log.Error("server already running")
		return fmt.Errorf("server %s already running", s.name)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to start: %w", s.name, err)
	}

	s.listener = ln
	s.running.Store(true)

	s.log.Info("server started", logger.Field{Key: "addr", Value: ln.Addr().String()})
	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop shuts the server down: it closes the listener, disconnects every
// registered session concurrently, waits for all of their receive loops to
// stop, and joins the accept loop. Safe to call when not running.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		s.log.Info("server not running")
		return
	}

	if s.listener != nil {
		_ = s.listener.Close()
	}

	g := new(errgroup.Group)
	for _, sess := range s.registry.snapshot() {
		g.Go(sess.Disconnect)
	}
	_ = g.Wait()

	s.wg.Wait()

	s.log.Info("server stopped")
}

// Addr returns the actual listen address, which differs from the configured
// one when port 0 was requested. Empty when the server has not started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// GetSession returns the registered session for the given id, if present.
//
// Parameters:
//   - id: The session ID to look up
//
// Returns:
//   - The session and true if found, or nil and false otherwise
func (s *Server) GetSession(id string) (*session.Session, bool) {
	return s.registry.get(id)
}

// SessionCount returns the number of currently registered sessions.
func (s *Server) SessionCount() int {
	return s.registry.count()
}

// acceptLoop accepts incoming connections until the server stops. Each
// connection gets a uuid, a Session, a registry entry, and its own receive
// loop; an accept error while running is logged and the loop continues.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.log.Error("accept error", logger.Field{Key: "error", Value: err})
			continue
		}

		s.startSession(conn)
	}
}

// startSession wires a freshly accepted connection into a registered,
// running session.
func (s *Server) startSession(conn net.Conn) {
	if !s.running.Load() {
		_ = conn.Close()
		return
	}

	id := uuid.NewString()
	sess := session.Accepted(id, conn, session.Config{
		MaxMessageSize: s.cfg.MaxMessageSize,
		WriteTimeout:   s.cfg.WriteTimeout.Std(),
	}, s.log)

	sess.OnMessage(s.messageHandler(sess))
	sess.OnStateChange(func(sessionID string, state session.State, err error) {
		if state == session.StateDisconnected {
			s.registry.remove(sessionID)
		}
	})

	s.registry.add(id, sess)

	if err := sess.Start(); err != nil {
		s.log.Error("failed to start session",
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "error", Value: err})
		s.registry.remove(id)
		_ = sess.Close()
		return
	}

	s.log.Info("session accepted",
		logger.Field{Key: "session", Value: id},
		logger.Field{Key: "remote", Value: conn.RemoteAddr().String()})
}

// messageHandler builds the per-session receive handler: flood check, reply
// generation under the configured timeout, reply send, and the quit sentinel
// that ends the session gracefully after its farewell reply.
func (s *Server) messageHandler(sess *session.Session) session.MessageHandler {
	return func(sessionID string, payload []byte) {
		input := string(payload)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReplyTimeout.Std())
		defer cancel()

		allowed, err := s.limiter.Allow(ctx, sessionID)
		if err != nil {
			// A limiter backend outage must not take the chat down.
			s.log.Warn("flood limiter error",
				logger.Field{Key: "session", Value: sessionID},
				logger.Field{Key: "error", Value: err})
			allowed = true
		}

		if !allowed {
			s.log.Warn("message dropped by flood guard",
				logger.Field{Key: "session", Value: sessionID})
			_ = sess.SendText(s.cfg.Flood.Warning)
			return
		}

		reply, err := s.engine.Reply(ctx, input)
		if err != nil {
			s.log.Error("reply generation failed",
				logger.Field{Key: "session", Value: sessionID},
				logger.Field{Key: "error", Value: err})
			return
		}

		if err := sess.SendText(reply); err != nil {
			s.log.Error("failed to send reply",
				logger.Field{Key: "session", Value: sessionID},
				logger.Field{Key: "error", Value: err})
			return
		}

		if strings.EqualFold(strings.TrimSpace(input), s.cfg.QuitCommand) {
			s.log.Info("session quit requested",
				logger.Field{Key: "session", Value: sessionID})
			// Close, not Disconnect: this runs on the session's own receive
			// goroutine, and the loop exits before the next read.
			_ = sess.Close()
		}
	}
}
