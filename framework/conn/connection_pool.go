package conn

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/janryu/janryu/common/utils"
)

// ConnPool recycles Conn shells across socket lifetimes. The counters feed
// the manager's performance report.
type ConnPool struct {
	pool      sync.Pool
	count     int32
	maxSize   int32
	created   int64
	reused    int64
	discarded int64
}

var (
	globalConnPool *ConnPool
	poolOnce       sync.Once
)

func NewConnPool(maxSize int32) *ConnPool {
	p := &ConnPool{
		maxSize: maxSize,
	}
	p.pool = sync.Pool{
		New: func() interface{} {
			atomic.AddInt64(&p.created, 1)
			atomic.AddInt32(&p.count, 1)
			return &Conn{}
		},
	}
	return p
}

func connPool() *ConnPool {
	poolOnce.Do(func() {
		globalConnPool = NewConnPool(10000)
	})
	return globalConnPool
}

func (po *ConnPool) Get(ws *websocket.Conn, manager *Manager) *Conn {
	con := po.pool.Get().(*Conn)
	atomic.AddInt64(&po.reused, 1)

	connID := fmt.Sprintf("%s-%s-%d", uuid.New().String(), manager.name, atomic.AddUint64(&connIDBase, 1))

	con.connID = connID
	con.ws = ws
	con.manager = manager
	con.WriteChan = make(chan outFrame, 1024)
	con.closeChan = make(chan struct{})
	con.pingTicker = time.NewTicker(pingInterval)
	con.limiter = utils.NewRateLimiter(manager.conf.RatePerSecond, manager.conf.RateBurst)

	con.closeOnce = sync.Once{}
	con.sendClosed = false
	con.session.Store(nil)
	con.admitted.Store(false)
	con.admitTimer = nil
	con.strikes = 0

	return con
}

func (po *ConnPool) Put(con *Conn) {
	if con == nil {
		return
	}

	if atomic.LoadInt32(&po.count) > po.maxSize {
		atomic.AddInt64(&po.discarded, 1)
		atomic.AddInt32(&po.count, -1)
		return
	}

	con.reset()
	po.pool.Put(con)
}

func takeConn(ws *websocket.Conn, manager *Manager) *Conn {
	return connPool().Get(ws, manager)
}
