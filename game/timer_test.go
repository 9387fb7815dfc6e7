package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() TimerProfile {
	return TimerProfile{
		TurnBase:   20 * time.Millisecond,
		Bank:       100 * time.Millisecond,
		Meld:       30 * time.Millisecond,
		Advance:    30 * time.Millisecond,
		RoundBonus: 15 * time.Millisecond,
		MaxBank:    120 * time.Millisecond,
	}
}

type firedTimer struct {
	seat int
	kind TimerKind
}

type timeoutRecorder struct {
	mu    sync.Mutex
	fired []firedTimer
	ch    chan firedTimer
}

func newTimeoutRecorder() *timeoutRecorder {
	return &timeoutRecorder{ch: make(chan firedTimer, 16)}
}

func (tr *timeoutRecorder) onTimeout(gameID string, seat int, kind TimerKind) {
	tr.mu.Lock()
	tr.fired = append(tr.fired, firedTimer{seat: seat, kind: kind})
	tr.mu.Unlock()
	tr.ch <- firedTimer{seat: seat, kind: kind}
}

func (tr *timeoutRecorder) waitOne(t *testing.T) firedTimer {
	t.Helper()
	select {
	case f := <-tr.ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
		return firedTimer{}
	}
}

func (tr *timeoutRecorder) count() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.fired)
}

func TestCancelNeverDeductsBank(t *testing.T) {
	p := testProfile()
	rec := newTimeoutRecorder()
	tb := NewTimerBank("g1", p, rec.onTimeout)

	tb.ArmTurn(0)
	time.Sleep(40 * time.Millisecond) // well past the base
	tb.Cancel(0)

	assert.Equal(t, p.Bank, tb.Bank(0))
	_, armed := tb.Armed(0)
	assert.False(t, armed)

	// The cancelled window must never fire, even after its deadline.
	time.Sleep(p.TurnBase + p.Bank + 50*time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestStopWithinBaseIsFree(t *testing.T) {
	p := testProfile()
	tb := NewTimerBank("g1", p, newTimeoutRecorder().onTimeout)

	tb.ArmTurn(1)
	require.True(t, tb.Stop(1))
	assert.Equal(t, p.Bank, tb.Bank(1))
}

func TestStopAfterBaseDeductsOverrun(t *testing.T) {
	p := testProfile()
	tb := NewTimerBank("g1", p, newTimeoutRecorder().onTimeout)

	start := time.Now()
	tb.ArmTurn(1)
	time.Sleep(60 * time.Millisecond) // 40ms past the base
	require.True(t, tb.Stop(1))
	over := time.Since(start) - p.TurnBase

	bank := tb.Bank(1)
	// At least the measured overrun short of the sleep came off, and
	// never more than the wall-clock overrun.
	assert.LessOrEqual(t, bank, p.Bank-40*time.Millisecond)
	assert.GreaterOrEqual(t, bank, p.Bank-over)
}

func TestTurnExpiryZeroesBank(t *testing.T) {
	p := testProfile()
	p.TurnBase = 10 * time.Millisecond
	p.Bank = 25 * time.Millisecond
	rec := newTimeoutRecorder()
	tb := NewTimerBank("g1", p, rec.onTimeout)

	tb.ArmTurn(2)
	f := rec.waitOne(t)
	assert.Equal(t, firedTimer{seat: 2, kind: TimerTurn}, f)
	assert.Equal(t, time.Duration(0), tb.Bank(2))
	_, armed := tb.Armed(2)
	assert.False(t, armed)
}

func TestFixedWindowsLeaveBankAlone(t *testing.T) {
	p := testProfile()
	rec := newTimeoutRecorder()
	tb := NewTimerBank("g1", p, rec.onTimeout)

	tb.ArmMeld(3)
	tb.ArmAdvance(0)

	kinds := map[int]TimerKind{}
	for i := 0; i < 2; i++ {
		f := rec.waitOne(t)
		kinds[f.seat] = f.kind
	}
	assert.Equal(t, TimerMeld, kinds[3])
	assert.Equal(t, TimerAdvance, kinds[0])
	assert.Equal(t, p.Bank, tb.Bank(3))
	assert.Equal(t, p.Bank, tb.Bank(0))
}

func TestRearmReplacesWindow(t *testing.T) {
	p := testProfile()
	rec := newTimeoutRecorder()
	tb := NewTimerBank("g1", p, rec.onTimeout)

	tb.ArmTurn(0)
	tb.ArmMeld(0)
	kind, armed := tb.Armed(0)
	require.True(t, armed)
	assert.Equal(t, TimerMeld, kind)

	f := rec.waitOne(t)
	assert.Equal(t, TimerMeld, f.kind)

	// The replaced turn window must not fire late.
	time.Sleep(p.TurnBase + p.Bank + 50*time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestRoundBonusCapsAtMaxBank(t *testing.T) {
	p := testProfile()
	tb := NewTimerBank("g1", p, newTimeoutRecorder().onTimeout)

	tb.GrantRoundBonus()
	assert.Equal(t, 115*time.Millisecond, tb.Bank(0))
	tb.GrantRoundBonus()
	assert.Equal(t, p.MaxBank, tb.Bank(0))

	// A drained seat climbs back one bonus at a time.
	tb.SetBank(2, 0)
	tb.GrantRoundBonus()
	assert.Equal(t, p.RoundBonus, tb.Bank(2))
}

func TestSetBankClampsNegative(t *testing.T) {
	tb := NewTimerBank("g1", testProfile(), newTimeoutRecorder().onTimeout)
	tb.SetBank(1, -time.Second)
	assert.Equal(t, time.Duration(0), tb.Bank(1))
}

func TestStopWithoutWindowReportsFalse(t *testing.T) {
	tb := NewTimerBank("g1", testProfile(), newTimeoutRecorder().onTimeout)
	assert.False(t, tb.Stop(0))
}
