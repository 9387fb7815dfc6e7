package conn

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/janryu/janryu/dto"
)

// Session is the durable half of a player connection. It is keyed by a
// rotating token, survives socket loss, and is the address the game layer
// fans events out to. The transport owns the socket; the session only
// holds a reference that is dropped on disconnect.
type Session struct {
	mu sync.RWMutex

	token     string
	candidate string // pending rotation, keyed in only after delivery

	user   string
	name   string
	gameID string
	seat   int // -1 until the game binds seats

	conn           Connection
	connID         string
	disconnectedAt time.Time

	// bank is the turn-timer reserve captured when the socket dropped,
	// restored into the rebuilt timer on reconnect.
	bank time.Duration
}

func newSession(token, user, name string) *Session {
	return &Session{
		token: token,
		user:  user,
		name:  name,
		seat:  -1,
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() string { return s.user }
func (s *Session) Name() string { return s.name }

func (s *Session) GameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameID
}

func (s *Session) SetGameID(gameID string) {
	s.mu.Lock()
	s.gameID = gameID
	s.mu.Unlock()
}

func (s *Session) Seat() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seat
}

func (s *Session) SetSeat(seat int) {
	s.mu.Lock()
	s.seat = seat
	s.mu.Unlock()
}

func (s *Session) Bank() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bank
}

func (s *Session) SetBank(d time.Duration) {
	s.mu.Lock()
	s.bank = d
	s.mu.Unlock()
}

// Attach binds a live connection and returns the one it replaces, if any.
// The caller kicks the replaced socket.
func (s *Session) Attach(c Connection) Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.conn
	s.conn = c
	s.connID = c.ID()
	s.disconnectedAt = time.Time{}
	return old
}

// Detach clears the connection reference, but only when connID still names
// the attached socket. A kicked predecessor tearing down after a reconnect
// must not mark the fresh socket disconnected.
func (s *Session) Detach(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.connID != connID {
		return false
	}
	s.conn = nil
	s.connID = ""
	s.disconnectedAt = time.Now()
	return true
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// DisconnectedFor reports how long the session has been without a socket;
// zero while connected.
func (s *Session) DisconnectedFor() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn != nil || s.disconnectedAt.IsZero() {
		return 0
	}
	return time.Since(s.disconnectedAt)
}

// Send queues buf on the attached connection. The send happens under the
// session lock so a concurrent Detach cannot leave it aimed at a recycled
// socket.
func (s *Session) Send(buf []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return dto.ErrConnectionClosed
	}
	return s.conn.Send(buf)
}

// SendTracked is Send with a delivery result channel.
func (s *Session) SendTracked(buf []byte) (<-chan error, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, dto.ErrConnectionClosed
	}
	return s.conn.SendTracked(buf)
}

// Kick closes the attached socket without detaching state; the socket's
// teardown path no-ops on Detach because Attach already replaced it.
func (s *Session) Kick(code int, reason string) {
	s.mu.RLock()
	c := s.conn
	s.mu.RUnlock()
	if c != nil {
		c.CloseWithCode(code, reason)
	}
}

// SessionStore indexes sessions by committed token and by user. Token
// rotation is two-phase: BeginRotation hands out a candidate, and only
// CommitRotation re-keys the store, after the caller has delivered the
// candidate to the client. Until then the old token keeps working, so a
// failed delivery costs nothing but a retry.
type SessionStore struct {
	mu      sync.RWMutex
	byToken map[string]*Session
	byUser  map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byToken: make(map[string]*Session),
		byUser:  make(map[string]*Session),
	}
}

// NewToken mints a session token.
func NewToken() string {
	return uuid.New().String()
}

// Create registers a session for user. A user holds at most one session at
// a time; the old one must be removed (game over) first.
func (st *SessionStore) Create(user, name string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.byUser[user]; ok {
		return nil, dto.ErrAlreadyConnected
	}
	s := newSession(NewToken(), user, name)
	st.byToken[s.token] = s
	st.byUser[user] = s
	return s, nil
}

// ByToken resolves a committed token. Candidates from an uncommitted
// rotation do not resolve.
func (st *SessionStore) ByToken(token string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byToken[token]
	if !ok {
		return nil, dto.ErrSessionNotFound
	}
	return s, nil
}

func (st *SessionStore) ByUser(user string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byUser[user]
	return s, ok
}

// BeginRotation stages a fresh candidate token for s and returns it. The
// store keys are untouched; a previous uncommitted candidate is discarded.
func (st *SessionStore) BeginRotation(s *Session) string {
	candidate := NewToken()
	s.mu.Lock()
	s.candidate = candidate
	s.mu.Unlock()
	return candidate
}

// CommitRotation re-keys s from its old token to the staged candidate.
// Without a staged candidate it is a no-op.
func (st *SessionStore) CommitRotation(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidate == "" {
		return
	}
	delete(st.byToken, s.token)
	s.token = s.candidate
	s.candidate = ""
	st.byToken[s.token] = s
}

// AbortRotation discards the staged candidate, keeping the old token live.
func (st *SessionStore) AbortRotation(s *Session) {
	s.mu.Lock()
	s.candidate = ""
	s.mu.Unlock()
}

// Remove drops s from both indexes, normally at game teardown.
func (st *SessionStore) Remove(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.mu.RLock()
	token, user := s.token, s.user
	s.mu.RUnlock()
	delete(st.byToken, token)
	delete(st.byUser, user)
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byToken)
}
