package conn

import (
	"context"
	"errors"
	"hash/fnv"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/janryu/janryu/common/auth"
	"github.com/janryu/janryu/common/config"
	"github.com/janryu/janryu/common/jwts"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/common/utils"
	"github.com/janryu/janryu/dto"
)

var (
	websocketUpgrade = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
	}

	connectionRateLimiter = utils.NewRateLimiter(100, 1)
)

// Gateway is the seam between the transport and the game layer. The
// manager hands decoded frames and lifecycle edges across it; everything
// behind it runs on per-game executors.
type Gateway interface {
	// Join admits a ticket-bearing connection to a game. On success the
	// session is attached to c and the admission ack has been delivered
	// on it.
	Join(gameID, user string, c Connection) (*Session, error)
	// Resume re-attaches a reconnecting client by prior session token,
	// delivers the state snapshot, and rotates the token.
	Resume(gameID, token string, c Connection) (*Session, error)
	// Handle processes one decoded in-game frame from s.
	Handle(s *Session, msg dto.ClientMessage)
	// Drop records the loss of socket connID for s.
	Drop(s *Session, connID string)
}

type ClientBucket struct {
	sync.RWMutex
	clients map[string]*Conn
}

func NewClientBucket() *ClientBucket {
	return &ClientBucket{
		clients: make(map[string]*Conn),
	}
}

// Manager owns every live websocket: upgrade and admission, frame decode
// with strike accounting, and the worker pool that keeps each connection's
// frames in order. Frames hash by connection ID to a fixed worker, so
// per-connection handling is single-threaded without locks.
type Manager struct {
	name    string
	conf    config.WsConf
	limits  dto.Limits
	gateway Gateway
	store   *SessionStore

	ticketSecret []byte
	jwtSecret    string
	readLimit    int64

	clientBuckets  []*ClientBucket
	bucketMask     uint32
	ClientReadChan chan *MessagePack
	clientWorkers  []chan *MessagePack
	workerCount    int

	maxConnectionCount int
	connSemaphore      chan struct{}

	gameMu    sync.Mutex
	gameConns map[string]int

	httpServer *http.Server
	isRunning  bool

	stats struct {
		messageProcessed   int64
		messageErrors      int64
		avgProcessingTime  int64
		currentConnections int32
	}
}

func NewManager(name string, wsConf config.WsConf, authConf config.AuthConf, gateway Gateway, store *SessionStore) *Manager {
	bucketCount := 32
	workerCount := runtime.NumCPU() * 2

	m := &Manager{
		name:    name,
		conf:    wsConf,
		gateway: gateway,
		store:   store,
		limits: dto.Limits{
			MaxFrameBytes:  wsConf.MaxFrameBytes,
			MaxStringBytes: wsConf.MaxStringBytes,
			MaxArrayLen:    wsConf.MaxArrayLen,
			MaxObjectKeys:  wsConf.MaxObjectKeys,
			MaxDepth:       wsConf.MaxDepth,
		},
		ticketSecret:       []byte(authConf.TicketSecret),
		jwtSecret:          authConf.JwtSecret,
		readLimit:          wsConf.MaxFrameBytes * 2,
		bucketMask:         uint32(bucketCount - 1),
		ClientReadChan:     make(chan *MessagePack, 2048),
		workerCount:        workerCount,
		maxConnectionCount: 100000,
		connSemaphore:      make(chan struct{}, 100000),
		gameConns:          make(map[string]int),
	}

	m.clientBuckets = make([]*ClientBucket, bucketCount)
	for i := 0; i < bucketCount; i++ {
		m.clientBuckets[i] = NewClientBucket()
	}

	m.clientWorkers = make([]chan *MessagePack, workerCount)
	for i := 0; i < workerCount; i++ {
		m.clientWorkers[i] = make(chan *MessagePack, 256)
	}

	return m
}

// Run starts the worker pool and serves websocket upgrades on addr until
// Close shuts the listener down.
func (m *Manager) Run(addr string) error {
	if m.isRunning {
		return nil
	}
	m.isRunning = true

	for i := 0; i < m.workerCount; i++ {
		go m.clientWorkerRoutine(i)
	}
	go m.clientReadRoutine()
	go m.monitorPerformance()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", m.upgradeFunc) // game id rides the subpath
	m.httpServer = &http.Server{Addr: addr, Handler: mux}

	log.Info("websocket manager: %d workers, %d buckets, listening on %s", m.workerCount, len(m.clientBuckets), addr)
	err := m.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops accepting upgrades and tears every connection down.
func (m *Manager) Close() {
	if !m.isRunning {
		return
	}
	m.isRunning = false

	if m.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.httpServer.Shutdown(ctx)
	}

	for _, bucket := range m.clientBuckets {
		bucket.Lock()
		conns := make([]*Conn, 0, len(bucket.clients))
		for _, con := range bucket.clients {
			conns = append(conns, con)
		}
		bucket.Unlock()
		for _, con := range conns {
			con.Close()
		}
	}
}

func (m *Manager) upgradeFunc(writer http.ResponseWriter, r *http.Request) {
	gameID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if gameID == "" || strings.ContainsRune(gameID, '/') {
		http.Error(writer, "bad game path", http.StatusNotFound)
		return
	}

	// Optional lobby-token prefilter. Real admission is the ticket in the
	// first frame; this only refuses sockets that cannot name any user.
	barrierUser := ""
	if token := r.URL.Query().Get("barrier"); token != "" {
		userID, err := jwts.ParseToken(token, m.jwtSecret)
		if err != nil {
			http.Error(writer, "unauthorized", http.StatusUnauthorized)
			log.Warn("lobby token rejected remote=%s err=%v", r.RemoteAddr, err)
			return
		}
		barrierUser = userID
	}

	if !connectionRateLimiter.Allow() {
		http.Error(writer, "Too many connections", http.StatusTooManyRequests)
		log.Warn("upgrade rate limit exceeded from %s", r.RemoteAddr)
		return
	}
	if atomic.LoadInt32(&m.stats.currentConnections) >= int32(m.maxConnectionCount) {
		http.Error(writer, "Server is at capacity", http.StatusServiceUnavailable)
		log.Warn("connection cap reached, refusing %s", r.RemoteAddr)
		return
	}
	if !m.reserveGameSlot(gameID) {
		http.Error(writer, "Game is at capacity", http.StatusServiceUnavailable)
		log.Warn("game %s at connection cap, refusing %s", gameID, r.RemoteAddr)
		return
	}

	writer.Header().Add("Server", "janryu")
	ws, err := websocketUpgrade.Upgrade(writer, r, nil)
	if err != nil {
		m.releaseGameSlot(gameID)
		log.Error("websocket upgrade failed: %v", err)
		return
	}

	client := takeConn(ws, m)
	client.gameID = gameID
	client.barrierUser = barrierUser
	client.admitTimer = time.AfterFunc(admissionWait, func() {
		if !client.admitted.Load() {
			client.CloseWithCode(CloseAdmission, "admission timeout")
		}
	})
	m.addClient(client)
	client.Run()
	log.Debug("connection established: game=%s cid=%s remote=%s", gameID, client.ID(), r.RemoteAddr)
}

func (m *Manager) addClient(client *Conn) {
	bucket := m.getBucket(client.ID())

	select {
	case m.connSemaphore <- struct{}{}:
		bucket.Lock()
		bucket.clients[client.ID()] = client
		bucket.Unlock()
		atomic.AddInt32(&m.stats.currentConnections, 1)
	default:
		log.Warn("addClient: connection limit reached")
		m.releaseGameSlot(client.gameID)
		client.Close()
	}
}

func (m *Manager) removeClient(con *Conn) {
	bucket := m.getBucket(con.ID())
	removed := false

	bucket.Lock()
	if _, ok := bucket.clients[con.ID()]; ok {
		delete(bucket.clients, con.ID())
		removed = true
	}
	bucket.Unlock()

	if !removed {
		return
	}

	if s := con.Session(); s != nil {
		m.gateway.Drop(s, con.ID())
	}
	con.Close()
	m.releaseGameSlot(con.gameID)

	select {
	case <-m.connSemaphore:
	default:
	}
	atomic.AddInt32(&m.stats.currentConnections, -1)
}

// reserveGameSlot bounds how many sockets one game can hold open at once.
func (m *Manager) reserveGameSlot(gameID string) bool {
	m.gameMu.Lock()
	defer m.gameMu.Unlock()
	if m.gameConns[gameID] >= m.conf.MaxConnsPerGame {
		return false
	}
	m.gameConns[gameID]++
	return true
}

func (m *Manager) releaseGameSlot(gameID string) {
	m.gameMu.Lock()
	defer m.gameMu.Unlock()
	if n := m.gameConns[gameID]; n <= 1 {
		delete(m.gameConns, gameID)
	} else {
		m.gameConns[gameID] = n - 1
	}
}

func (m *Manager) getBucket(connID string) *ClientBucket {
	return m.clientBuckets[fnv32(connID)&m.bucketMask]
}

func (m *Manager) lookup(connID string) *Conn {
	bucket := m.getBucket(connID)
	bucket.RLock()
	defer bucket.RUnlock()
	return bucket.clients[connID]
}

func (m *Manager) clientReadRoutine() {
	for messagePack := range m.ClientReadChan {
		workerID := fnv32(messagePack.ConnID) % uint32(m.workerCount)
		select {
		case m.clientWorkers[workerID] <- messagePack:
		default:
			// Handling the frame inline here would reorder it behind this
			// connection's already-queued frames, so shed it instead.
			atomic.AddInt64(&m.stats.messageErrors, 1)
			if con := m.lookup(messagePack.ConnID); con != nil {
				_ = con.Send(dto.EncodeError(dto.CodeRateLimited, "server busy, frame dropped"))
			}
		}
	}
}

func (m *Manager) clientWorkerRoutine(workerID int) {
	for messagePack := range m.clientWorkers[workerID] {
		startTime := time.Now()

		m.handleFrame(messagePack)

		processingTime := time.Since(startTime).Microseconds()
		atomic.AddInt64(&m.stats.messageProcessed, 1)
		oldAvg := atomic.LoadInt64(&m.stats.avgProcessingTime)
		atomic.StoreInt64(&m.stats.avgProcessingTime, (oldAvg*9+processingTime)/10)
	}
}

func (m *Manager) handleFrame(pack *MessagePack) {
	con := m.lookup(pack.ConnID)
	if con == nil {
		return
	}

	if !con.limiter.Allow() {
		// Shed before decoding; the frame may well be valid, so no strike.
		_ = con.Send(dto.EncodeError(dto.CodeRateLimited, "slow down"))
		return
	}

	msg, err := dto.DecodeClient(pack.Body, m.limits)
	if err != nil {
		m.strike(con, err)
		return
	}
	// Strikes count consecutive malformed frames only.
	con.strikes = 0

	switch msg.T {
	case dto.KindPing:
		// Liveness only; reading the frame already pushed the deadline.
	case dto.KindJoin:
		m.admit(con, msg)
	case dto.KindReconnect:
		m.resume(con, msg)
	default:
		s := con.Session()
		if s == nil {
			_ = con.Send(dto.EncodeError(dto.CodeNotInGame, "join a game first"))
			return
		}
		m.gateway.Handle(s, msg)
	}
}

func (m *Manager) strike(con *Conn, cause error) {
	atomic.AddInt64(&m.stats.messageErrors, 1)
	con.strikes++
	_ = con.Send(dto.EncodeError(dto.CodeInvalidMessage, cause.Error()))
	if con.strikes >= m.conf.DecodeStrikes {
		log.Warn("client[%s] struck out after %d bad frames: %v", con.ID(), con.strikes, cause)
		con.CloseWithCode(CloseStrikes, "too many malformed frames")
	}
}

func (m *Manager) admit(con *Conn, msg dto.ClientMessage) {
	if con.admitted.Load() {
		_ = con.Send(dto.EncodeError(dto.CodeGameError, "already joined"))
		return
	}
	payload, err := auth.Verify(msg.Ticket, m.ticketSecret)
	if err != nil {
		m.rejectAdmission(con, err.Error())
		return
	}
	if payload.Room != con.gameID {
		m.rejectAdmission(con, "ticket is for another game")
		return
	}
	if con.barrierUser != "" && con.barrierUser != payload.User {
		m.rejectAdmission(con, "ticket user mismatch")
		return
	}

	s, err := m.gateway.Join(con.gameID, payload.User, con)
	if err != nil {
		m.rejectAdmission(con, err.Error())
		return
	}
	m.finishAdmission(con, s)
}

func (m *Manager) resume(con *Conn, msg dto.ClientMessage) {
	if con.admitted.Load() {
		_ = con.Send(dto.EncodeError(dto.CodeGameError, "already joined"))
		return
	}
	s, err := m.gateway.Resume(con.gameID, msg.Token, con)
	if err != nil {
		m.rejectAdmission(con, err.Error())
		return
	}
	m.finishAdmission(con, s)
}

func (m *Manager) rejectAdmission(con *Conn, reason string) {
	log.Warn("client[%s] admission rejected: %s", con.ID(), reason)
	_ = con.SendSync(dto.EncodeError(dto.CodeNotInGame, reason))
	con.CloseWithCode(CloseAdmission, reason)
}

func (m *Manager) finishAdmission(con *Conn, s *Session) {
	con.session.Store(s)
	con.admitted.Store(true)
	if con.admitTimer != nil {
		con.admitTimer.Stop()
	}
}

func (m *Manager) monitorPerformance() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		po := connPool()
		log.Debug("transport: connections=%d messages=%d avg_processing=%dμs errors=%d sessions=%d pool created=%d reused=%d discarded=%d",
			atomic.LoadInt32(&m.stats.currentConnections),
			atomic.LoadInt64(&m.stats.messageProcessed),
			atomic.LoadInt64(&m.stats.avgProcessingTime),
			atomic.LoadInt64(&m.stats.messageErrors),
			m.store.Len(),
			atomic.LoadInt64(&po.created),
			atomic.LoadInt64(&po.reused),
			atomic.LoadInt64(&po.discarded))
	}
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}
