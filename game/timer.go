package game

import (
	"sync"
	"time"

	"github.com/janryu/janryu/common/config"
)

// TimerKind tells an expiry continuation which wait ran out.
type TimerKind int

const (
	TimerTurn TimerKind = iota
	TimerMeld
	TimerAdvance
)

func (k TimerKind) String() string {
	switch k {
	case TimerTurn:
		return "turn"
	case TimerMeld:
		return "meld"
	case TimerAdvance:
		return "round-advance"
	}
	return "unknown"
}

// TimeoutFunc receives expiries. It runs on the timer goroutine, so
// implementations post to the game's executor instead of acting inline.
type TimeoutFunc func(gameID string, seat int, kind TimerKind)

// TimerProfile carries the durations a bank runs with. Production fills it
// from configuration; tests shrink it to milliseconds.
type TimerProfile struct {
	TurnBase   time.Duration
	Bank       time.Duration
	Meld       time.Duration
	Advance    time.Duration
	RoundBonus time.Duration
	MaxBank    time.Duration
}

// ProfileFromConf lifts the configured second counts into durations.
func ProfileFromConf(c config.TimerConf) TimerProfile {
	return TimerProfile{
		TurnBase:   c.TurnBase(),
		Bank:       c.Bank(),
		Meld:       c.MeldDecision(),
		Advance:    c.RoundAdvance(),
		RoundBonus: c.RoundBonus(),
		MaxBank:    c.MaxBank(),
	}
}

// TimerBank owns the four seats' deadlines for one game.
//
// A turn timer is two-phase: the base portion is free every turn, and only
// time beyond it drains the seat's reserve. Meld and round-advance waits
// run on fixed durations and never touch the reserve. Each seat has at
// most one armed deadline; arming replaces any prior one.
type TimerBank struct {
	gameID    string
	profile   TimerProfile
	onTimeout TimeoutFunc

	mu    sync.Mutex
	seats [4]seatTimer
}

type seatTimer struct {
	bank     time.Duration
	timer    *time.Timer
	armedAt  time.Time
	base     time.Duration
	kind     TimerKind
	usesBank bool
	// gen invalidates an expiry that lost the race against a stop or a
	// re-arm; the AfterFunc may already be running when we cancel it.
	gen uint64
}

func NewTimerBank(gameID string, profile TimerProfile, onTimeout TimeoutFunc) *TimerBank {
	tb := &TimerBank{gameID: gameID, profile: profile, onTimeout: onTimeout}
	for i := range tb.seats {
		tb.seats[i].bank = profile.Bank
	}
	return tb
}

// ArmTurn schedules seat's discard deadline at base plus whatever reserve
// the seat still holds.
func (tb *TimerBank) ArmTurn(seat int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.armLocked(seat, TimerTurn, tb.profile.TurnBase, tb.seats[seat].bank, true)
}

// ArmMeld schedules seat's call-window deadline.
func (tb *TimerBank) ArmMeld(seat int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.armLocked(seat, TimerMeld, tb.profile.Meld, 0, false)
}

// ArmAdvance schedules seat's next-round confirmation deadline.
func (tb *TimerBank) ArmAdvance(seat int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.armLocked(seat, TimerAdvance, tb.profile.Advance, 0, false)
}

func (tb *TimerBank) armLocked(seat int, kind TimerKind, base, extra time.Duration, usesBank bool) {
	st := &tb.seats[seat]
	tb.cancelLocked(seat)

	st.gen++
	gen := st.gen
	st.kind = kind
	st.base = base
	st.usesBank = usesBank
	st.armedAt = time.Now()
	st.timer = time.AfterFunc(base+extra, func() {
		tb.expire(seat, gen)
	})
}

func (tb *TimerBank) expire(seat int, gen uint64) {
	tb.mu.Lock()
	st := &tb.seats[seat]
	if st.timer == nil || st.gen != gen {
		tb.mu.Unlock()
		return
	}
	st.timer = nil
	if st.usesBank {
		st.bank = 0
	}
	kind := st.kind
	tb.mu.Unlock()

	tb.onTimeout(tb.gameID, seat, kind)
}

// Stop settles seat's armed deadline after its owner acted. Time spent
// past the base portion comes out of the reserve. Returns false when
// nothing was armed or the deadline already fired.
func (tb *TimerBank) Stop(seat int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	st := &tb.seats[seat]
	if st.timer == nil {
		return false
	}
	st.timer.Stop()
	st.timer = nil
	st.gen++

	if st.usesBank {
		if over := time.Since(st.armedAt) - st.base; over > 0 {
			st.bank -= over
			if st.bank < 0 {
				st.bank = 0
			}
		}
	}
	return true
}

// Cancel discards seat's armed deadline without charging the reserve.
func (tb *TimerBank) Cancel(seat int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.cancelLocked(seat)
}

// CancelAll discards every armed deadline, for game teardown.
func (tb *TimerBank) CancelAll() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for seat := range tb.seats {
		tb.cancelLocked(seat)
	}
}

func (tb *TimerBank) cancelLocked(seat int) {
	st := &tb.seats[seat]
	if st.timer == nil {
		return
	}
	st.timer.Stop()
	st.timer = nil
	st.gen++
}

// Armed reports seat's pending deadline, if any.
func (tb *TimerBank) Armed(seat int) (TimerKind, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	st := &tb.seats[seat]
	if st.timer == nil {
		return 0, false
	}
	return st.kind, true
}

// Bank returns seat's remaining reserve.
func (tb *TimerBank) Bank(seat int) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.seats[seat].bank
}

// SetBank restores a reserve captured at disconnect, replacing the
// default a fresh bank would grant.
func (tb *TimerBank) SetBank(seat int, d time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if d < 0 {
		d = 0
	}
	tb.seats[seat].bank = d
}

// GrantRoundBonus tops every reserve up at the start of a new round,
// capped so absent players cannot hoard time.
func (tb *TimerBank) GrantRoundBonus() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for i := range tb.seats {
		st := &tb.seats[i]
		st.bank += tb.profile.RoundBonus
		if st.bank > tb.profile.MaxBank {
			st.bank = tb.profile.MaxBank
		}
	}
}
