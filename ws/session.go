package ws

import (
	"encoding/json"
	"sync"
	"time"

	"ppchat/logger"

	"github.com/gorilla/websocket"
)

const writeDeadline = 5 * time.Second

// sessionState is the state machine from spec §4.6:
// Unauthenticated -> Authenticated(phone) -> Closed.
type sessionState int32

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// unauthTypes is the whitelist of frame types an Unauthenticated session
// accepts; anything else is logged and dropped (spec §4.6).
var unauthTypes = map[string]bool{
	TypeSignUp:             true,
	TypeLoginRequest:       true,
	TypeRetrieveQuestion:   true,
	TypeUpdatePassword:     true,
	TypeNewPasswordRequest: true,
}

// Session owns one connected socket: it parses incoming text frames,
// dispatches them to a handler, and tracks the authenticated identity of
// the socket. The identity lives here and only here (spec §9's "single
// authoritative identity" note) — the Registry is keyed off it, but never
// asked to resolve a socket back to a phone number.
type Session struct {
	conn   *websocket.Conn
	server *Server

	writeMu sync.Mutex

	mu    sync.Mutex
	state sessionState
	phone int64
}

func newSession(conn *websocket.Conn, srv *Server) *Session {
	return &Session{conn: conn, server: srv, state: stateUnauthenticated}
}

// Send marshals v to JSON and writes it as one text frame. Safe for
// concurrent use: handlers running on other sessions' goroutines fan out
// to this Session concurrently with its own read loop, which never writes.
func (s *Session) Send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) authenticate(phone int64) {
	s.mu.Lock()
	s.state = stateAuthenticated
	s.phone = phone
	s.mu.Unlock()
}

func (s *Session) isAuthenticated() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phone, s.state == stateAuthenticated
}

func (s *Session) close() {
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
}

// run is the read loop: it owns this socket's read path for the lifetime
// of the connection and runs each handler synchronously on its own
// goroutine, so a slow handler only blocks this session, never others.
func (s *Session) run() {
	defer s.onDisconnect()

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("ws: non-JSON frame dropped")
			continue
		}

		phone, authed := s.isAuthenticated()
		if !authed && !unauthTypes[env.Type] {
			logger.Warn("ws: frame type not allowed before auth, dropped")
			continue
		}

		handler, ok := dispatchTable[env.Type]
		if !ok {
			logger.Warn("ws: unknown frame type, dropped")
			continue
		}

		handler(&HandlerContext{
			Server:  s.server,
			Session: s,
			Phone:   phone,
			Authed:  authed,
		}, data)
	}
}

func (s *Session) onDisconnect() {
	_ = s.conn.Close()
	s.close()

	phone, authed := s.isAuthenticated()
	if !authed {
		return
	}

	s.server.Registry.Remove(phone, s)
	ctx := backgroundCtx()
	if err := s.server.Store.SetAccountStatus(ctx, phone, false); err != nil {
		logger.Errorf("ws: set offline status failed for %d: %v", phone, err)
	}

	contactIDs, err := s.server.Store.FetchContactIDs(ctx, phone)
	if err != nil {
		logger.Errorf("ws: fetch contact ids on disconnect failed for %d: %v", phone, err)
		return
	}
	for _, contactID := range contactIDs {
		s.server.Registry.SendIfOnline(contactID, map[string]interface{}{
			"type":         TypeClientDisconnected,
			"phone_number": phone,
		})
	}
}
