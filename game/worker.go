package game

import "sync"

// Executor serializes everything that may touch one game's state: decoded
// client actions, timer expiries, disconnect edges. Jobs run one at a time
// in arrival order; separate games run on separate executors and never
// contend.
type Executor struct {
	jobs chan func()
	quit chan struct{}
	once sync.Once
}

func NewExecutor(depth int) *Executor {
	e := &Executor{
		jobs: make(chan func(), depth),
		quit: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Executor) run() {
	for {
		select {
		case job := <-e.jobs:
			job()
		case <-e.quit:
			// Run what was accepted before the stop, then leave.
			for {
				select {
				case job := <-e.jobs:
					job()
				default:
					return
				}
			}
		}
	}
}

// Post queues one job. It blocks while the queue is full rather than
// reorder or shed game actions, and reports false once the executor has
// stopped.
func (e *Executor) Post(job func()) bool {
	select {
	case <-e.quit:
		return false
	default:
	}
	select {
	case e.jobs <- job:
		return true
	case <-e.quit:
		return false
	}
}

// Flush blocks until every job posted before the call has run, or until
// the executor stops. Teardown and tests use it as a barrier.
func (e *Executor) Flush() {
	done := make(chan struct{})
	if !e.Post(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-e.quit:
	}
}

// Stop ends the executor after the jobs already queued have run. Jobs
// posted concurrently with Stop may be dropped.
func (e *Executor) Stop() {
	e.once.Do(func() { close(e.quit) })
}
