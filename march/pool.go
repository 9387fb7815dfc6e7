package march

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/janryu/janryu/common/config"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/relay"
)

// ResultSubject carries started quick-match tables to whichever lobby
// front end delivers tickets to waiting clients.
const ResultSubject = "march.results"

// GameStarter opens a table for a matched batch. The controller
// implements it with the same path room starts take.
type GameStarter interface {
	QuickMatch(players []QueuedPlayer) (gameID string, tickets map[string]string, err error)
}

// MatchResult is what the pool announces per started table.
type MatchResult struct {
	PoolID  string            `json:"pool_id"`
	GameID  string            `json:"game_id"`
	Tickets map[string]string `json:"tickets"` // user -> admission ticket
}

// Pool drains the quick-match queue on a ticker: each tick tries up to
// batchSize table starts of four players each.
type Pool struct {
	poolID    string
	queue     *Queue
	starter   GameStarter
	relay     *relay.Relay
	batchSize int
	interval  time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewPool(conf config.MarchConf, queue *Queue, starter GameStarter, r *relay.Relay) *Pool {
	batch := conf.BatchSize
	if batch <= 0 {
		batch = 4
	}
	interval := time.Duration(conf.Interval) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return &Pool{
		poolID:    conf.PoolID,
		queue:     queue,
		starter:   starter,
		relay:     r,
		batchSize: batch,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (p *Pool) Start() {
	p.wg.Add(1)
	go p.matchLoop()
	log.Info("match pool [%s] started, interval: %v, batch: %d", p.poolID, p.interval, p.batchSize)
}

func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
	log.Info("match pool [%s] stopped", p.poolID)
}

func (p *Pool) matchLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.drainBatch()
		case <-p.stopChan:
			return
		}
	}
}

func (p *Pool) drainBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	for i := 0; i < p.batchSize; i++ {
		size, err := p.queue.Size(ctx)
		if err != nil {
			log.Error("match pool [%s] queue size: %v", p.poolID, err)
			return
		}
		if size < MaxSeats {
			return
		}

		players, err := p.queue.Pop(ctx, MaxSeats)
		if err != nil {
			log.Error("match pool [%s] pop: %v", p.poolID, err)
			return
		}
		if len(players) < MaxSeats {
			// Raced another consumer; put nobody back, the short batch
			// just waits for the next tick with fresh company.
			p.requeue(ctx, players)
			return
		}

		gameID, tickets, err := p.starter.QuickMatch(players)
		if err != nil {
			log.Error("match pool [%s] start failed: %v", p.poolID, err)
			p.requeue(ctx, players)
			return
		}

		log.Info("match pool [%s] started game %s", p.poolID, gameID)
		p.announce(MatchResult{PoolID: p.poolID, GameID: gameID, Tickets: tickets})
	}
}

// requeue returns a failed batch to the queue. They re-enter at the tail;
// losing their place beats losing their spot entirely.
func (p *Pool) requeue(ctx context.Context, players []QueuedPlayer) {
	for _, pl := range players {
		if err := p.queue.Join(ctx, pl.User, pl.Name); err != nil && err != ErrAlreadyQueued {
			log.Error("match pool [%s] requeue %s: %v", p.poolID, pl.User, err)
		}
	}
}

func (p *Pool) announce(res MatchResult) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	p.relay.Publish(ResultSubject, data)
}
