package conn

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janryu/janryu/dto"
)

// fakeConn stands in for a websocket-backed Conn. failDelivery makes
// tracked sends enqueue fine but fail at "the socket", which is the case
// token rotation has to survive.
type fakeConn struct {
	id string

	mu           sync.Mutex
	frames       [][]byte
	failDelivery bool
	closed       bool
	closeCode    int
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return dto.ErrConnectionClosed
	}
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) SendTracked(buf []byte) (<-chan error, error) {
	done := make(chan error, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, dto.ErrConnectionClosed
	}
	if f.failDelivery {
		done <- dto.ErrConnectionClosed
		return done, nil
	}
	f.frames = append(f.frames, buf)
	done <- nil
	return done, nil
}

func (f *fakeConn) SendSync(buf []byte) error {
	done, err := f.SendTracked(buf)
	if err != nil {
		return err
	}
	return <-done
}

func (f *fakeConn) CloseWithCode(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCode = code
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestSessionStoreLifecycle(t *testing.T) {
	st := NewSessionStore()

	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)
	require.NotEmpty(t, s.Token())
	assert.Equal(t, -1, s.Seat())
	assert.Equal(t, "u1", s.User())
	assert.Equal(t, "Aki", s.Name())

	got, err := st.ByToken(s.Token())
	require.NoError(t, err)
	assert.Same(t, s, got)

	byUser, ok := st.ByUser("u1")
	require.True(t, ok)
	assert.Same(t, s, byUser)

	_, err = st.Create("u1", "Aki again")
	require.ErrorIs(t, err, dto.ErrAlreadyConnected)

	st.Remove(s)
	_, err = st.ByToken(s.Token())
	require.ErrorIs(t, err, dto.ErrSessionNotFound)
	_, ok = st.ByUser("u1")
	assert.False(t, ok)
	assert.Zero(t, st.Len())
}

func TestRotationCommitsOnlyAfterDelivery(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)
	s.Attach(&fakeConn{id: "c1"})

	old := s.Token()
	candidate := st.BeginRotation(s)
	require.NotEqual(t, old, candidate)

	// Staged but not committed: the old token is the only one that works.
	_, err = st.ByToken(old)
	require.NoError(t, err)
	_, err = st.ByToken(candidate)
	require.ErrorIs(t, err, dto.ErrSessionNotFound)
	assert.Equal(t, old, s.Token())

	done, err := s.SendTracked(dto.EncodeSessionAck(candidate, "g1", 2))
	require.NoError(t, err)
	require.NoError(t, <-done)

	st.CommitRotation(s)
	assert.Equal(t, candidate, s.Token())
	_, err = st.ByToken(candidate)
	require.NoError(t, err)
	_, err = st.ByToken(old)
	require.ErrorIs(t, err, dto.ErrSessionNotFound)
}

func TestRotationFailedDeliveryKeepsOldToken(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)
	s.Attach(&fakeConn{id: "c1", failDelivery: true})

	old := s.Token()
	candidate := st.BeginRotation(s)

	done, err := s.SendTracked(dto.EncodeSessionAck(candidate, "g1", 2))
	require.NoError(t, err)
	require.ErrorIs(t, <-done, dto.ErrConnectionClosed)
	st.AbortRotation(s)

	// The retry path: old token resolves, a fresh candidate is staged.
	got, err := st.ByToken(old)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, old, s.Token())

	second := st.BeginRotation(s)
	st.CommitRotation(s)
	assert.Equal(t, second, s.Token())
}

func TestCommitWithoutStagedCandidateIsNoop(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)

	old := s.Token()
	st.BeginRotation(s)
	st.AbortRotation(s)
	st.CommitRotation(s)

	assert.Equal(t, old, s.Token())
	_, err = st.ByToken(old)
	require.NoError(t, err)
}

func TestAttachKicksPredecessorAndDetachGuards(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)

	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}

	require.Nil(t, s.Attach(c1))
	replaced := s.Attach(c2)
	assert.Same(t, c1, replaced)

	// The stale socket's teardown must not mark the session disconnected.
	assert.False(t, s.Detach("c1"))
	assert.True(t, s.Connected())
	assert.Zero(t, s.DisconnectedFor())

	assert.True(t, s.Detach("c2"))
	assert.False(t, s.Connected())
	assert.GreaterOrEqual(t, s.DisconnectedFor(), time.Duration(0))

	err = s.Send([]byte(`{}`))
	require.ErrorIs(t, err, dto.ErrConnectionClosed)
}

func TestKickClosesWithoutDetaching(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)

	c := &fakeConn{id: "c1"}
	s.Attach(c)
	s.Kick(CloseAdmission, "superseded by reconnect")

	assert.True(t, c.closed)
	assert.Equal(t, CloseAdmission, c.closeCode)
	// Kicking is the transport's business; the session still points at the
	// socket until its teardown calls Detach.
	assert.True(t, s.Connected())
}

func TestBankSurvivesSocketChurn(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)

	s.SetBank(17 * time.Second)
	s.Attach(&fakeConn{id: "c1"})
	s.Detach("c1")
	s.Attach(&fakeConn{id: "c2"})

	assert.Equal(t, 17*time.Second, s.Bank())
}

func TestSessionSendReachesAttachedConn(t *testing.T) {
	st := NewSessionStore()
	s, err := st.Create("u1", "Aki")
	require.NoError(t, err)

	c := &fakeConn{id: "c1"}
	s.Attach(c)
	require.NoError(t, s.Send([]byte(`{"type":"draw","d":7}`)))
	assert.Equal(t, 1, c.sent())
}
