// Package session implements one side of a chat connection: lifecycle
// (connect, send, disconnect), the synchronized tri-state connection flag,
// and the receive loop that reads framed messages and dispatches them to a
// registered handler. The same Session type backs both the dialing client and
// each connection the server accepts.
package session

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/message"
)

// readBufferSize is the bufio read buffer for the receive loop. Messages
// larger than this are assembled across reads up to the configured maximum.
const readBufferSize = 4096

// MessageHandler is called by the receive loop once per complete inbound
// message, in wire order, from the receive goroutine. Implementations that
// touch UI or other thread-bound state must marshal to the right context
// themselves; the session makes no assumptions about the surrounding
// framework.
type MessageHandler func(sessionID string, payload []byte)

// StateChangeHandler is called when the session's state changes. err is
// non-nil when the change was caused by a failure (e.g. a mid-session I/O
// error). Invoked from whichever goroutine drove the transition; must be
// safe for concurrent use.
type StateChangeHandler func(sessionID string, state State, err error)

// ErrorHandler is called when a read or write error occurs mid-session.
// Invoked from the goroutine that hit the error; must be safe for concurrent use.
type ErrorHandler func(sessionID string, err error)

// Config holds the per-session tuneables.
type Config struct {
	// MaxMessageSize bounds a single message payload in bytes; 0 means
	// message.DefaultMaxSize.
	MaxMessageSize int
	// ConnectTimeout is the maximum duration for establishing the transport.
	ConnectTimeout time.Duration
	// WriteTimeout is the maximum duration for a single send; 0 means no timeout.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with the default message bound, a 10 second
// connect timeout, and a 10 second write timeout.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: message.DefaultMaxSize,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Session owns one chat connection: its transport handle, its connection
// state, and its receive loop goroutine. A Session is single-shot: once
// Disconnected it cannot be reused; create a new Session to reconnect.
// All methods are safe for concurrent use.
type Session struct {
	id  string
	cfg Config
	log logger.Logger

	state  atomic.Int32
	closed atomic.Bool

	// started guards against launching more than one receive loop.
	started atomic.Bool

	// mu guards conn and the registered handlers.
	mu   sync.RWMutex
	conn net.Conn

	// sendMu serializes Send calls so outbound frames never interleave.
	sendMu sync.Mutex

	wg sync.WaitGroup

	onMessage     MessageHandler
	onStateChange StateChangeHandler
	onError       ErrorHandler
}

// New creates a client-side session in the Connecting state with a fresh
// uuid identifier. Call Connect to establish the transport.
//
// Parameters:
//   - cfg: Session tuneables (e.g. from DefaultConfig)
//   - log: Logger for session events; nil uses a no-op logger
//
// Returns:
//   - A new *Session ready for Connect
func New(cfg Config, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}

	id := uuid.NewString()
	s := &Session{
		id:  id,
		cfg: cfg,
		log: log.With(logger.Field{Key: "session", Value: id}),
	}
	s.state.Store(int32(StateConnecting))

	return s
}

// Accepted creates a server-side session for a connection that is already
// established. The session starts in the Connected state; the caller must
// invoke Start to launch the receive loop.
//
// Parameters:
//   - id: The session identifier assigned by the server
//   - conn: The accepted connection; the session takes ownership
//   - cfg: Session tuneables
//   - log: Logger for session events; nil uses a no-op logger
//
// Returns:
//   - A new *Session in the Connected state
func Accepted(id string, conn net.Conn, cfg Config, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Session{
		id:   id,
		cfg:  cfg,
		log:  log.With(logger.Field{Key: "session", Value: id}),
		conn: conn,
	}
	s.state.Store(int32(StateConnected))

	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current connection state. The value is read atomically;
// concurrent readers never observe a torn or invalid state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// IsConnected reports whether the session is in the Connected state.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// RemoteAddr returns the peer address, or "" when no transport is established.
func (s *Session) RemoteAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.conn == nil {
		return ""
	}

	return s.conn.RemoteAddr().String()
}

// OnMessage registers the handler invoked once per received message. Only one
// handler is active; repeated calls replace the previous handler. Pass nil to
// clear. Register before Connect or Start to avoid missing early messages.
//
// Parameters:
//   - handler: Function called with the session ID and message payload
func (s *Session) OnMessage(handler MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = handler
}

// OnStateChange registers the handler invoked on state transitions. Only one
// handler is active; repeated calls replace the previous handler. Pass nil to
// clear.
//
// Parameters:
//   - handler: Function called with the session ID, new state, and causal error
func (s *Session) OnStateChange(handler StateChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = handler
}

// OnError registers the handler invoked on mid-session I/O errors. Only one
// handler is active; repeated calls replace the previous handler. Pass nil to
// clear.
//
// Parameters:
//   - handler: Function called with the session ID and the error
func (s *Session) OnError(handler ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = handler
}

// Connect establishes the transport to the given "host:port" address and, on
// success, transitions the session to Connected and starts its receive loop.
// On failure the session transitions to Disconnected and a *ConnectError is
// returned distinguishing resolution, refusal, and timeout failures.
//
// Parameters:
//   - address: The "host:port" dial target
//
// Returns:
//   - nil on success; ErrAlreadyStarted, ErrSessionClosed, or a *ConnectError otherwise
func (s *Session) Connect(address string) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if s.closed.Load() {
		return ErrSessionClosed
	}

	dialer := net.Dialer{Timeout: s.cfg.ConnectTimeout}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		connErr := newConnectError(address, err)
		s.log.Error("connect failed",
			logger.Field{Key: "addr", Value: address},
			logger.Field{Key: "kind", Value: connErr.Kind.String()},
			logger.Field{Key: "error", Value: err})
		s.closeInternal(connErr)
		return connErr
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// Disconnect may have raced the dial; the CAS keeps a closed session
	// from ever re-entering Connected, and the connection must not leak.
	if s.closed.Load() || !s.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
		_ = conn.Close()
		return ErrSessionClosed
	}

	s.emitStateChange(StateConnected, nil)
	s.log.Info("connected", logger.Field{Key: "addr", Value: address})

	s.wg.Add(1)
	go s.receiveLoop(conn)

	return nil
}

// Start launches the receive loop for a session created with Accepted. It is
// an error to call Start on a dialing session or more than once.
//
// Returns:
//   - nil on success; ErrAlreadyStarted or ErrNotConnected otherwise
func (s *Session) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil || s.State() != StateConnected {
		return ErrNotConnected
	}

	s.wg.Add(1)
	go s.receiveLoop(conn)

	return nil
}

// Send validates payload against the configured maximum size and writes it as
// one framed message. Sends on the same session are serialized; outbound
// bytes are never interleaved or reordered. Send fails fast with
// ErrNotConnected when the session is not Connected.
//
// Parameters:
//   - payload: The message bytes; must not contain '\n'
//
// Returns:
//   - nil on success; ErrNotConnected, message.ErrMessageTooLong,
//     message.ErrEmbeddedNewline, or the underlying write error otherwise
func (s *Session) Send(payload []byte) error {
	if err := message.Validate(payload, s.cfg.MaxMessageSize); err != nil {
		return err
	}

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if s.State() != StateConnected || conn == nil {
		return ErrNotConnected
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	// Re-check under the send lock; a concurrent disconnect may have won.
	if s.State() != StateConnected {
		return ErrNotConnected
	}

	if s.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = conn.SetWriteDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	if err := message.Write(conn, payload, s.cfg.MaxMessageSize); err != nil {
		s.log.Error("send failed", logger.Field{Key: "error", Value: err})
		s.emitError(err)
		s.closeInternal(err)
		return err
	}

	return nil
}

// SendText is a convenience wrapper around Send for string payloads.
//
// Parameters:
//   - text: The message text; must not contain '\n'
//
// Returns:
//   - The result of Send
func (s *Session) SendText(text string) error {
	return s.Send([]byte(text))
}

// Close requests disconnection without waiting for the receive loop to stop.
// It is idempotent and safe to call from any goroutine, including from inside
// a MessageHandler (where Disconnect would deadlock waiting on the loop that
// is running the handler). The state transitions to Disconnected and the
// transport is closed, which unblocks any in-flight read.
//
// Returns:
//   - nil
func (s *Session) Close() error {
	s.closeInternal(nil)
	return nil
}

// Disconnect closes the session and waits until its receive loop has fully
// stopped, guaranteeing no message dispatch occurs after it returns. It is
// idempotent: disconnecting an already-disconnected session is a no-op.
// Must not be called from inside a MessageHandler; use Close there.
//
// Returns:
//   - nil
func (s *Session) Disconnect() error {
	s.closeInternal(nil)
	s.wg.Wait()
	return nil
}

// closeInternal performs the one-time teardown: flips the closed flag, moves
// the state to Disconnected, and closes the transport so a blocked read
// unblocks promptly. cause is the error that forced the close, nil for a
// deliberate disconnect or a clean peer close. Returns false when the session
// was already closed.
func (s *Session) closeInternal(cause error) bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}

	s.state.Store(int32(StateDisconnected))

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	s.emitStateChange(StateDisconnected, cause)
	s.log.Info("disconnected")

	return true
}

// receiveLoop blocks on the transport reading framed messages and dispatches
// each one to the registered handler, in arrival order, until the peer
// closes, an I/O error occurs, or the session is disconnected. It runs in its
// own goroutine; Disconnect joins it via the session WaitGroup.
func (s *Session) receiveLoop(conn net.Conn) {
	defer s.wg.Done()

	reader := bufio.NewReaderSize(conn, readBufferSize)
	for {
		payload, err := message.Read(reader, s.cfg.MaxMessageSize)

		// A caller-initiated disconnect closed the transport out from under
		// the read; the state transition already happened there.
		if s.closed.Load() {
			s.log.Debug("receive loop cancelled")
			return
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info("peer closed connection")
				s.closeInternal(nil)
				return
			}

			s.log.Error("receive failed", logger.Field{Key: "error", Value: err})
			s.emitError(err)
			s.closeInternal(err)
			return
		}

		s.dispatch(payload)

		// The handler may have requested disconnection (e.g. on a quit
		// message); stop before blocking on the next read.
		if s.closed.Load() {
			return
		}
	}
}

// dispatch invokes the registered message handler synchronously.
func (s *Session) dispatch(payload []byte) {
	s.mu.RLock()
	handler := s.onMessage
	s.mu.RUnlock()

	if handler != nil {
		handler(s.id, payload)
	}
}

// emitStateChange invokes the registered state-change handler.
func (s *Session) emitStateChange(state State, err error) {
	s.mu.RLock()
	handler := s.onStateChange
	s.mu.RUnlock()

	if handler != nil {
		handler(s.id, state, err)
	}
}

// emitError invokes the registered error handler.
func (s *Session) emitError(err error) {
	s.mu.RLock()
	handler := s.onError
	s.mu.RUnlock()

	if handler != nil {
		handler(s.id, err)
	}
}
