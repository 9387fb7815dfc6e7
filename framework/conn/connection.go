package conn

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/common/utils"
	"github.com/janryu/janryu/dto"
)

// Close codes sent with the closing handshake. The 4000 range is reserved
// for applications by RFC 6455.
const (
	CloseNormal    = 1000 // scheduled teardown, game over
	CloseStrikes   = 4001 // repeated malformed frames
	CloseInvariant = 4002 // server-side invariant broke, game aborted
	CloseAdmission = 4003 // join or reconnect rejected
)

// Connection is what the session layer holds instead of a socket. A
// dropped connection invalidates the reference; the session itself
// survives.
type Connection interface {
	ID() string
	Send(buf []byte) error
	SendTracked(buf []byte) (<-chan error, error)
	SendSync(buf []byte) error
	CloseWithCode(code int, reason string)
	Close()
}

// MessagePack carries one raw inbound frame from a read pump to the
// manager's worker pool.
type MessagePack struct {
	ConnID string
	Body   []byte
}

// outFrame is one queued outbound frame. done, when non-nil, receives the
// socket write result exactly once.
type outFrame struct {
	data []byte
	done chan error
}

var connIDBase uint64 = 10000

var (
	pongWait      = 10 * time.Second
	writeWait     = 10 * time.Second
	pingInterval  = (pongWait * 9) / 10
	admissionWait = 10 * time.Second
)

// Conn is one live websocket. The strike counter and rate bucket are
// touched only by the manager worker this connection hashes to, so they
// need no locking of their own.
type Conn struct {
	connID  string
	ws      *websocket.Conn
	manager *Manager
	gameID  string

	// barrierUser is the identity proven by the optional lobby token at
	// upgrade time; when set, the admission ticket must name the same user.
	barrierUser string

	WriteChan  chan outFrame
	closeChan  chan struct{}
	closeOnce  sync.Once
	sendMu     sync.RWMutex
	sendClosed bool
	pingTicker *time.Ticker

	session    atomic.Pointer[Session]
	admitted   atomic.Bool
	admitTimer *time.Timer

	// Owned by the assigned manager worker.
	strikes int
	limiter *utils.RateLimiter
}

func (con *Conn) ID() string { return con.connID }

// Session returns the session admitted on this connection, nil before
// admission.
func (con *Conn) Session() *Session { return con.session.Load() }

func (con *Conn) Run() {
	con.ws.SetPongHandler(con.pongHandler)
	go con.readMessage()
	go con.writeMessage()
}

func (con *Conn) writeMessage() {
	defer con.failPending()

	for {
		select {
		case frame := <-con.WriteChan:
			if err := con.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error("client[%s] write deadline: %v", con.connID, err)
			}
			err := con.ws.WriteMessage(websocket.TextMessage, frame.data)
			if frame.done != nil {
				frame.done <- err
			}
			if err != nil {
				log.Error("client[%s] write failed: %v", con.connID, err)
				con.Close()
				return
			}
		case <-con.pingTicker.C:
			if err := con.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error("client[%s] ping deadline: %v", con.connID, err)
			}
			if err := con.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				con.Close()
				return
			}
		case <-con.closeChan:
			return
		}
	}
}

func (con *Conn) readMessage() {
	defer con.manager.removeClient(con)
	// Twice the frame cap so oversize frames surface as decode strikes
	// instead of silent closes; anything past that is cut at the socket.
	con.ws.SetReadLimit(con.manager.readLimit)
	if err := con.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Error("client[%s] read deadline: %v", con.connID, err)
		return
	}
	for {
		messageType, message, err := con.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("client[%s] read failed: %v", con.connID, err)
			}
			return
		}
		// Any complete frame proves the peer alive, not just pongs.
		_ = con.ws.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case con.manager.ClientReadChan <- &MessagePack{ConnID: con.connID, Body: message}:
		case <-con.closeChan:
			return
		}
	}
}

func (con *Conn) pongHandler(string) error {
	return con.ws.SetReadDeadline(time.Now().Add(pongWait))
}

// Send queues buf without waiting on delivery. Fan-out treats an error as
// "seat currently unreachable" and moves on; the replay log still has the
// event.
func (con *Conn) Send(buf []byte) error {
	con.sendMu.RLock()
	defer con.sendMu.RUnlock()
	if con.sendClosed {
		return dto.ErrConnectionClosed
	}
	select {
	case con.WriteChan <- outFrame{data: buf}:
		return nil
	case <-con.closeChan:
		return dto.ErrConnectionClosed
	default:
		return dto.ErrSendChanFull
	}
}

// SendTracked queues buf and returns a channel that yields the socket
// write result exactly once, even when the connection dies first.
func (con *Conn) SendTracked(buf []byte) (<-chan error, error) {
	done := make(chan error, 1)
	con.sendMu.RLock()
	defer con.sendMu.RUnlock()
	if con.sendClosed {
		return nil, dto.ErrConnectionClosed
	}
	select {
	case con.WriteChan <- outFrame{data: buf, done: done}:
		return done, nil
	case <-con.closeChan:
		return nil, dto.ErrConnectionClosed
	}
}

// SendSync queues buf and blocks until it reached the socket. Admission
// acks and token rotation order their side effects after this returns.
func (con *Conn) SendSync(buf []byte) error {
	done, err := con.SendTracked(buf)
	if err != nil {
		return err
	}
	return <-done
}

// CloseWithCode performs the closing handshake with an application close
// code before tearing the connection down.
func (con *Conn) CloseWithCode(code int, reason string) {
	if con.ws != nil {
		msg := websocket.FormatCloseMessage(code, reason)
		deadline := time.Now().Add(writeWait)
		if err := con.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			log.Debug("client[%s] close handshake: %v", con.connID, err)
		}
	}
	con.Close()
}

func (con *Conn) Close() {
	con.closeOnce.Do(func() {
		close(con.closeChan)
		// Quiesce producers before draining, so no tracked frame is left
		// without a result.
		con.sendMu.Lock()
		con.sendClosed = true
		con.sendMu.Unlock()

		if con.pingTicker != nil {
			con.pingTicker.Stop()
		}
		if con.admitTimer != nil {
			con.admitTimer.Stop()
		}
		if con.ws != nil {
			_ = con.ws.Close()
		}
		con.failPending()
		log.Info("client[%s] connection closed", con.connID)
		go func(c *Conn) {
			time.Sleep(100 * time.Millisecond)
			connPool().Put(c)
		}(con)
	})
}

// Closed reports whether teardown has begun.
func (con *Conn) Closed() bool {
	select {
	case <-con.closeChan:
		return true
	default:
		return false
	}
}

// failPending resolves whatever is still queued after the pump stopped.
func (con *Conn) failPending() {
	for {
		select {
		case frame := <-con.WriteChan:
			if frame.done != nil {
				frame.done <- dto.ErrConnectionClosed
			}
		default:
			return
		}
	}
}

func (con *Conn) reset() {
	con.connID = ""
	con.ws = nil
	con.manager = nil
	con.gameID = ""
	con.barrierUser = ""
	con.WriteChan = nil
	con.closeChan = nil
	con.pingTicker = nil
	con.session.Store(nil)
	con.admitTimer = nil
	con.strikes = 0
	con.limiter = nil
}
