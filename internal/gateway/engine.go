package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qyzk/ohno/internal/logging"
)

// State names a position in the connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingHello
	StateAuthenticating
	StateReady
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventHandler receives every Dispatch frame after sequence tracking has
// run. Stale or duplicate frames are still delivered; only the stored
// sequence ignores them.
type EventHandler func(event string, data json.RawMessage, seq *int64)

// EngineConfig assembles one connection attempt.
type EngineConfig struct {
	Token   string
	Intents int
	URL     string // fully-formed gateway URL, version and encoding applied
	Session Session
	Cache   Cache
	Dial    Dialer
	Handler EventHandler
	Log     *logging.Logger

	DialTimeout  time.Duration
	HelloTimeout time.Duration
	AuthTimeout  time.Duration
}

const (
	defaultDialTimeout  = 30 * time.Second
	defaultHelloTimeout = 15 * time.Second
	defaultAuthTimeout  = 15 * time.Second
)

// Engine owns one gateway connection from dial to disconnect. All
// per-connection state lives on the Run goroutine: the read loop feeds a
// channel, the heartbeat timer is selected alongside it, and nothing else
// mutates the engine, so no locks are needed. An Engine is not reused;
// the supervisor builds a fresh one per attempt.
type Engine struct {
	cfg    EngineConfig
	log    *logging.Logger
	connID string

	state     State
	conn      Conn
	session   Session
	hb        *Scheduler
	resumeURL string
}

// Outcome tells the supervisor what to do after an engine run ends.
type Outcome struct {
	Session    Session       // authoritative session state after this attempt
	Reconnect  bool          // false only on operator stop
	RefreshURL bool          // re-fetch bootstrap info before the next dial
	ResumeURL  string        // preferred dial target while the session resumes
	Wait       time.Duration // delay before the next attempt
}

// NewEngine creates an engine for a single connection attempt.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Dial == nil {
		cfg.Dial = Dial
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.HelloTimeout == 0 {
		cfg.HelloTimeout = defaultHelloTimeout
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = defaultAuthTimeout
	}

	e := &Engine{
		cfg:     cfg,
		log:     cfg.Log.Sub("engine"),
		connID:  uuid.New().String()[:8],
		session: cfg.Session,
		state:   StateDisconnected,
	}
	e.hb = NewScheduler(e.sendHeartbeat, e.log.Sub("heartbeat"))
	return e
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

type readResult struct {
	frame Frame
	err   error
}

// readLoop pulls messages off the transport and hands decoded frames to the
// control loop. It exits on the first read or decode error, or when the
// control loop has already returned.
func (e *Engine) readLoop(conn Conn, frames chan<- readResult, done <-chan struct{}) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case frames <- readResult{err: err}:
			case <-done:
			}
			return
		}

		f, derr := DecodeFrame(mt, data)
		select {
		case frames <- readResult{frame: f, err: derr}:
		case <-done:
			return
		}
		if derr != nil {
			return
		}
	}
}

// Run drives the state machine for one connection: dial, await Hello,
// authenticate (identify or resume), then heartbeat and dispatch until the
// connection ends. The returned Outcome carries the session state and the
// reconnect decision; the error, when non-nil, is a Failure describing why
// the connection ended.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	e.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, e.cfg.DialTimeout)
	conn, err := e.cfg.Dial(dialCtx, e.cfg.URL)
	cancel()
	if err != nil {
		e.setState(StateDisconnected)
		if ctx.Err() != nil {
			return e.outcome(false, false, 0), nil
		}
		return e.outcome(true, false, 0), classifyDialError(err)
	}
	e.conn = conn
	e.log.Info().Str("conn", e.connID).Str("url", e.cfg.URL).Msg("gateway connected")

	done := make(chan struct{})
	defer close(done)
	frames := make(chan readResult)
	go e.readLoop(conn, frames, done)

	// Hello must arrive before anything else.
	e.setState(StateAwaitingHello)
	helloTimer := time.NewTimer(e.cfg.HelloTimeout)
	defer helloTimer.Stop()

	select {
	case <-ctx.Done():
		e.closeGraceful(websocket.CloseNormalClosure)
		return e.outcome(false, false, 0), nil

	case <-helloTimer.C:
		e.forceClose()
		return e.outcome(true, false, 0),
			NewFailure(KindTransport, errors.New("timed out waiting for hello"))

	case r := <-frames:
		if r.err != nil {
			return e.readFailure(r.err)
		}
		if r.frame.Op != OpHello {
			e.forceClose()
			return e.outcome(true, false, 0),
				NewFailure(KindProtocol, fmt.Errorf("expected hello, got %s", r.frame.Op))
		}
		intervalMs, herr := decodeHello(r.frame)
		if herr != nil {
			e.forceClose()
			return e.outcome(true, false, 0), herr
		}
		e.hb.Start(time.Duration(intervalMs) * time.Millisecond)
	}

	e.setState(StateAuthenticating)
	if err := e.authenticate(); err != nil {
		e.forceClose()
		return e.outcome(true, false, 0), err
	}

	// The authentication handshake must resolve within a bounded wait; the
	// timer is disarmed once READY is reached.
	authTimer := time.NewTimer(e.cfg.AuthTimeout)
	defer authTimer.Stop()
	authC := authTimer.C

	for {
		select {
		case <-ctx.Done():
			e.closeGraceful(websocket.CloseNormalClosure)
			return e.outcome(false, false, 0), nil

		case <-authC:
			e.forceClose()
			return e.outcome(true, false, 0),
				NewFailure(KindTransport, errors.New("timed out waiting for session establishment"))

		case <-e.hb.C():
			if err := e.hb.Tick(); err != nil {
				e.forceClose()
				if errors.Is(err, ErrZombied) {
					return e.outcome(true, false, 0), NewFailure(KindLiveness, err)
				}
				return e.outcome(true, false, 0), NewFailure(KindTransport, err)
			}

		case r := <-frames:
			if r.err != nil {
				return e.readFailure(r.err)
			}

			f := r.frame
			switch f.Op {
			case OpDispatch:
				switch f.Event {
				case EventReady:
					p, perr := decodeReady(f)
					if perr != nil {
						e.forceClose()
						return e.outcome(true, false, 0), perr
					}
					if f.Seq != nil {
						e.session.Advance(*f.Seq)
					}
					e.session.ID = p.SessionID
					e.resumeURL = p.ResumeGatewayURL
					e.persist()
					e.deliver(f)
					e.setState(StateReady)
					authTimer.Stop()
					authC = nil
					e.log.Info().Str("conn", e.connID).Str("session", p.SessionID).Msg("session established")

				case EventResumed:
					if f.Seq != nil {
						e.session.Advance(*f.Seq)
					}
					e.persist()
					e.deliver(f)
					e.setState(StateReady)
					authTimer.Stop()
					authC = nil
					e.log.Info().Str("conn", e.connID).Str("session", e.session.ID).Msg("session resumed")

				default:
					e.handleDispatch(f)
				}

			case OpHeartbeat:
				// Server-requested immediate heartbeat.
				if err := e.hb.Request(); err != nil {
					e.forceClose()
					return e.outcome(true, false, 0), NewFailure(KindTransport, err)
				}

			case OpHeartbeatACK:
				e.hb.Ack()

			case OpReconnect:
				// The server wants us elsewhere; the current URL may be
				// stale, so bootstrap info is re-fetched before redialing.
				e.log.Info().Str("conn", e.connID).Msg("server requested reconnect")
				e.closeGraceful(websocket.CloseServiceRestart)
				return e.outcome(true, true, 0), nil

			case OpInvalidSession:
				if decodeInvalidSession(f) {
					e.closeGraceful(websocket.CloseServiceRestart)
					return e.outcome(true, false, invalidSessionDelay()),
						NewFailure(KindAuthRetry, errors.New("session invalidated, resume allowed"))
				}
				e.session.Clear()
				e.persist()
				e.closeGraceful(websocket.CloseNormalClosure)
				return e.outcome(true, false, 0),
					NewFailure(KindAuthRejected, errors.New("session invalidated"))

			default:
				e.forceClose()
				return e.outcome(true, false, 0),
					NewFailure(KindProtocol, fmt.Errorf("unexpected opcode %s in state %s", f.Op, e.state))
			}
		}
	}
}

// authenticate sends Resume when the session permits it, Identify otherwise.
func (e *Engine) authenticate() error {
	if e.session.CanResume() {
		payload, err := EncodeResume(e.cfg.Token, e.session)
		if err != nil {
			return NewFailure(KindProtocol, err)
		}
		e.log.Info().Str("conn", e.connID).Str("session", e.session.ID).
			Int64("seq", *e.session.LastSeq).Msg("resuming session")
		if err := e.write(payload); err != nil {
			return NewFailure(KindTransport, err)
		}
		return nil
	}

	payload, err := EncodeIdentify(e.cfg.Token, e.cfg.Intents)
	if err != nil {
		return NewFailure(KindProtocol, err)
	}
	e.log.Info().Str("conn", e.connID).Msg("identifying")
	if err := e.write(payload); err != nil {
		return NewFailure(KindTransport, err)
	}
	return nil
}

// handleDispatch tracks the sequence high-water mark, persists it when it
// moves, and hands the event to the downstream handler.
func (e *Engine) handleDispatch(f Frame) {
	if f.Seq != nil && e.session.Advance(*f.Seq) {
		e.persist()
	}
	e.deliver(f)
}

func (e *Engine) deliver(f Frame) {
	if e.cfg.Handler != nil {
		e.cfg.Handler(f.Event, f.Data, f.Seq)
	}
}

// readFailure classifies a read-loop error and tears the connection down.
func (e *Engine) readFailure(err error) (Outcome, error) {
	e.hb.Stop()
	_ = e.conn.Close()
	e.setState(StateDisconnected)

	// Decode failures arrive already tagged as protocol violations.
	if _, ok := KindOf(err); ok {
		return e.outcome(true, false, 0), err
	}
	if closeForcesIdentify(err) {
		e.session.Clear()
		e.persist()
		return e.outcome(true, false, 0), NewFailure(KindAuthRejected, err)
	}
	return e.outcome(true, false, 0), NewFailure(KindTransport, err)
}

// persist writes the current session to the cache. A store failure does
// not interrupt the connection; the in-memory session stays authoritative
// and the failure is logged for the operator.
func (e *Engine) persist() {
	if e.cfg.Cache == nil {
		return
	}
	if err := e.cfg.Cache.Store(e.session); err != nil {
		e.log.Error().Err(err).Msg("persisting session failed")
	}
}

// sendHeartbeat is the scheduler's send hook.
func (e *Engine) sendHeartbeat() error {
	payload, err := EncodeHeartbeat(e.session)
	if err != nil {
		return err
	}
	return e.write(payload)
}

func (e *Engine) write(payload []byte) error {
	return e.conn.WriteMessage(websocket.TextMessage, payload)
}

// closeGraceful stops the heartbeat scheduler strictly before touching the
// transport, so a timer tick cannot race a half-closed connection, then
// sends a close frame and closes.
func (e *Engine) closeGraceful(code int) {
	e.setState(StateClosing)
	e.hb.Stop()
	msg := websocket.FormatCloseMessage(code, "")
	_ = e.conn.WriteMessage(websocket.CloseMessage, msg)
	_ = e.conn.Close()
	e.setState(StateDisconnected)
}

// forceClose abandons the transport without a close frame.
func (e *Engine) forceClose() {
	e.hb.Stop()
	if e.conn != nil {
		_ = e.conn.Close()
	}
	e.setState(StateDisconnected)
}

func (e *Engine) outcome(reconnect, refreshURL bool, wait time.Duration) Outcome {
	return Outcome{
		Session:    e.session,
		Reconnect:  reconnect,
		RefreshURL: refreshURL,
		ResumeURL:  e.resumeURL,
		Wait:       wait,
	}
}

func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	e.log.Debug().Str("conn", e.connID).Str("from", e.state.String()).Str("to", s.String()).Msg("state changed")
	e.state = s
}

// invalidSessionDelay is the randomized wait before retrying a resumable
// invalid session.
func invalidSessionDelay() time.Duration {
	return time.Second + time.Duration(rand.Int63n(int64(4*time.Second)))
}
