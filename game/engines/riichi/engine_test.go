package riichi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedWalls ignores the seed and deals a fixed ordering, so a test can
// lay out every hand and draw.
type scriptedWalls struct {
	order [TotalTiles]Tile
}

func (w scriptedWalls) BuildWall([]byte) [TotalTiles]Tile { return w.order }

// buildOrder lays out a wall from the four 13-kind hands, the live draw
// sequence, and optionally all 14 dead wall kinds. Unscripted positions are
// filled with the leftover tiles in kind order.
func buildOrder(t *testing.T, hands [4][]Kind, live, dead []Kind) [TotalTiles]Tile {
	t.Helper()
	var used [NumKinds]int
	var order [TotalTiles]Tile
	var filled [TotalTiles]bool
	place := func(pos int, k Kind) {
		if used[k] >= 4 {
			t.Fatalf("script uses more than four %v", k)
		}
		order[pos] = TileOf(k, used[k])
		used[k]++
		filled[pos] = true
	}
	for s, h := range hands {
		if len(h) != handTiles {
			t.Fatalf("seat %d scripted with %d tiles", s, len(h))
		}
		for i, k := range h {
			place(s*handTiles+i, k)
		}
	}
	if len(live) > liveWallSize {
		t.Fatalf("live script longer than the live wall")
	}
	for i, k := range live {
		place(dealtTiles+i, k)
	}
	if dead != nil {
		if len(dead) != deadWallSize {
			t.Fatalf("dead wall script needs %d kinds, got %d", deadWallSize, len(dead))
		}
		for i, k := range dead {
			place(deadLiveSplit+i, k)
		}
	}
	next := Kind(0)
	for pos := range order {
		if filled[pos] {
			continue
		}
		for used[next] >= 4 {
			next++
		}
		place(pos, next)
	}
	return order
}

func scriptedGame(t *testing.T, hands [4][]Kind, live, dead []Kind) (*Engine, GameState) {
	t.Helper()
	e := NewEngine()
	e.Walls = scriptedWalls{order: buildOrder(t, hands, live, dead)}
	seats := [4]SeatInfo{
		{Seat: 0, Name: "east"},
		{Seat: 1, Name: "south"},
		{Seat: 2, Name: "west"},
		{Seat: 3, Name: "north"},
	}
	gs, _, err := e.NewGame("g-test", []byte("seed"), seats, DefaultRules())
	require.NoError(t, err)
	return e, gs
}

func mustApply(t *testing.T, e *Engine, gs GameState, act Action) (GameState, []Routed) {
	t.Helper()
	next, evs, err := e.Apply(gs, act)
	require.NoError(t, err, "action %v by seat %d", act.Type, act.Seat)
	return next, evs
}

// tileIn locates a concealed tile of the given kind, preferring the draw.
func tileIn(t *testing.T, gs GameState, seat int, k Kind) Tile {
	t.Helper()
	p := gs.Round.Players[seat]
	if p.Drawn != NoTile && p.Drawn.Kind() == k {
		return p.Drawn
	}
	for _, h := range p.Hand {
		if h.Kind() == k {
			return h
		}
	}
	t.Fatalf("seat %d holds no %v", seat, k)
	return NoTile
}

func discard(t *testing.T, gs GameState, seat int, k Kind) Action {
	return Action{Seat: seat, Type: ActDiscard, Tile: tileIn(t, gs, seat, k)}
}

func eventsOfType(evs []Routed, typ string) []Routed {
	var out []Routed
	for _, r := range evs {
		if r.Event.EventType() == typ {
			out = append(out, r)
		}
	}
	return out
}

func pendingResult(t *testing.T, gs GameState) RoundResult {
	t.Helper()
	require.NotNil(t, gs.Pending, "round should have settled")
	return *gs.Pending
}

func TestEngine_DealerTenhou(t *testing.T) {
	hands := [4][]Kind{
		{Man2, Man3, Man4, Man7, Man8, Man9, Pin2, Pin3, Pin4, Sou4, Sou5, Sou6, Sou6},
		{Man1, Man1, Man5, Man5, Pin1, Pin1, Pin6, Pin6, Sou1, Sou1, East, East, South},
		{Man6, Man6, Pin5, Pin5, Pin7, Pin7, Sou8, Sou8, West, West, North, North, Haku},
		{Pin8, Pin8, Pin9, Pin9, Sou7, Sou7, Sou9, Sou9, Hatsu, Hatsu, Chun, Chun, South},
	}
	e, gs := scriptedGame(t, hands, []Kind{Sou3}, nil)

	require.Equal(t, GamePlaying, gs.Phase)
	require.Equal(t, 0, gs.Round.Current)
	require.Equal(t, Sou3, gs.Round.Players[0].Drawn.Kind())

	gs, _ = mustApply(t, e, gs, Action{Seat: 0, Type: ActTsumo})

	res := pendingResult(t, gs)
	require.Equal(t, ResultTsumo, res.Type)
	require.Len(t, res.Winners, 1)
	w := res.Winners[0]
	require.Equal(t, 0, w.Seat)
	require.Equal(t, []string{"tenhou"}, yakuNames(w.Yaku))
	require.Equal(t, 13, w.Han)
	require.Equal(t, 48000, w.Points)
	require.Equal(t, [4]int{48000, -16000, -16000, -16000}, res.Deltas)
	require.False(t, res.DealerRotates)
	require.Equal(t, 1, res.HonbaNext)
	require.Equal(t, GameRoundOver, gs.Phase)
	require.Equal(t, 100000, gs.ScoreTotal())
}

func TestEngine_DoubleRiichiIppatsuRon(t *testing.T) {
	hands := [4][]Kind{
		{Man1, Man1, Man5, Man5, Pin1, Pin1, Pin6, Pin6, Sou1, Sou1, Haku, Hatsu, Chun},
		{Man2, Man3, Man4, Man7, Man8, Man9, Pin2, Pin3, Pin4, Sou5, Sou5, Sou7, Sou8},
		{Man6, Man6, Pin5, Pin5, Pin7, Pin7, Sou2, Sou2, Sou3, Sou3, Haku, Hatsu, Chun},
		{Man1, Man1, Man5, Pin8, Pin8, Pin9, Pin9, Sou9, Sou9, Haku, Hatsu, Chun, Chun},
	}
	live := []Kind{East, North, Sou6}
	dead := []Kind{East, East, East, South, West, West, West, West, South, South, South, North, North, North}
	e, gs := scriptedGame(t, hands, live, dead)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, East))

	// Riichi on the very first own discard with no prior call is daburi.
	// The stick is committed as soon as the window closes without a ron.
	gs, evs := mustApply(t, e, gs, Action{Seat: 1, Type: ActRiichi, Tile: tileIn(t, gs, 1, North)})
	decl := eventsOfType(evs, "riichi_declared")
	require.Len(t, decl, 1)
	rd := decl[0].Event.(RiichiDeclaredEvent)
	require.Equal(t, 1, rd.Seat)
	require.True(t, rd.Daburi)
	require.Equal(t, 1, rd.Sticks)
	require.Equal(t, 24000, gs.Round.Players[1].Score)
	require.Equal(t, 1, gs.Round.Sticks)

	// Seat 2 deals into the wait before seat 1's next draw: the snapshot
	// taken at the discard still carries the ippatsu chance.
	gs, evs = mustApply(t, e, gs, discard(t, gs, 2, Sou6))
	prompts := eventsOfType(evs, "call_prompt")
	require.Len(t, prompts, 1)
	require.Equal(t, 1, prompts[0].Target)

	gs, _ = mustApply(t, e, gs, Action{Seat: 1, Type: ActRon})

	res := pendingResult(t, gs)
	require.Equal(t, ResultRon, res.Type)
	require.Equal(t, 2, res.Loser)
	w := res.Winners[0]
	require.Equal(t, 1, w.Seat)
	require.ElementsMatch(t, []string{"double riichi", "ippatsu", "pinfu"}, yakuNames(w.Yaku))
	require.Equal(t, 4, w.Han)
	require.Equal(t, 30, w.Fu)
	require.Equal(t, 7700, w.Points)
	// The stick pool rides on top of the scored points.
	require.Equal(t, 8700, res.Deltas[1])
	require.Equal(t, -7700, res.Deltas[2])
	require.Len(t, res.Ura, 1)
	require.True(t, res.DealerRotates)
	require.Equal(t, 0, res.HonbaNext)
	require.Equal(t, 0, res.SticksNext)
	require.Equal(t, 100000, gs.ScoreTotal())
}

func TestEngine_PonBeatsChiAndKuikae(t *testing.T) {
	hands := [4][]Kind{
		{Man2, Man2, Man5, Man5, Man8, Man8, Pin2, Pin5, Pin8, Sou1, Sou1, Haku, Chun},
		{Sou2, Sou4, Man1, Man4, Man7, Pin1, Pin4, Pin7, East, East, West, North, South},
		{Man3, Man6, Man9, Pin3, Pin6, Pin9, Sou6, Sou9, South, South, Hatsu, Chun, Chun},
		{Sou3, Sou3, Sou3, Man1, Man4, Pin2, Pin5, Pin8, Sou9, Haku, Hatsu, West, North},
	}
	e, gs := scriptedGame(t, hands, []Kind{Sou3}, nil)

	gs, evs := mustApply(t, e, gs, discard(t, gs, 0, Sou3))
	prompts := eventsOfType(evs, "call_prompt")
	require.Len(t, prompts, 2)
	targets := map[int][]CallOption{}
	for _, p := range prompts {
		ev := p.Event.(CallPromptEvent)
		targets[ev.Seat] = ev.Options
	}
	require.Len(t, targets[1], 1)
	require.Equal(t, CallChi, targets[1][0].Kind)
	require.Len(t, targets[1][0].Chi, 1)
	require.Len(t, targets[3], 2)
	require.Equal(t, CallOpenKan, targets[3][0].Kind)
	require.Equal(t, CallPon, targets[3][1].Kind)

	// The chi answer arrives first but cannot close the window.
	seq := targets[1][0].Chi[0]
	gs, evs = mustApply(t, e, gs, Action{Seat: 1, Type: ActChi, Sequence: seq})
	require.Empty(t, evs)
	require.NotNil(t, gs.Round.Prompt)

	gs, evs = mustApply(t, e, gs, Action{Seat: 3, Type: ActPon})
	melds := eventsOfType(evs, "meld")
	require.Len(t, melds, 1)
	m := melds[0].Event.(MeldEvent).Meld
	require.Equal(t, MeldPon, m.Kind)
	require.Equal(t, 3, m.Caller)
	require.Equal(t, 0, m.From)
	require.Equal(t, 3, gs.Round.Current)
	require.Empty(t, gs.Round.Players[1].Melds)
	require.True(t, gs.Round.Players[0].Discards[0].Called)

	// The claimed kind may not be discarded straight back.
	_, _, err := e.Apply(gs, Action{Seat: 3, Type: ActDiscard, Tile: tileIn(t, gs, 3, Sou3)})
	var re *RuleError
	require.ErrorAs(t, err, &re)
	require.Equal(t, 3, re.Seat)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 3, West))
	require.Equal(t, Kind(-1), gs.Round.Players[3].KuikaeKind)
	require.Len(t, gs.Round.Players[3].Hand, 10)
}

func TestEngine_DoubleRonSticksToClosest(t *testing.T) {
	hands := [4][]Kind{
		{Man1, Man1, Man9, Man9, Pin1, Pin1, Pin9, Pin9, Sou1, Sou1, Sou2, Sou3, Sou8},
		{Man3, Man4, Man5, Man5, Man6, Man7, Pin4, Pin5, Pin6, Sou4, Sou4, Sou5, Sou6},
		{Man5, Man5, Man8, Man8, Pin2, Pin2, Pin7, Pin7, Pin8, Pin8, Sou2, Sou3, Sou8},
		{Man2, Man3, Man4, Man6, Man7, Man8, Pin3, Pin4, Pin5, Sou9, Sou9, Sou5, Sou6},
	}
	live := []Kind{East, Haku, Hatsu, North, East, Chun, Hatsu, North, Haku, Chun, Sou7}
	dead := []Kind{West, West, West, West, South, South, South, South, East, East, North, North, Haku, Haku}
	e, gs := scriptedGame(t, hands, live, dead)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, East))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 1, Haku))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, Hatsu))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 3, North))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, East))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 1, Chun))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, Hatsu))

	// Second go-around: the riichi is no longer a daburi.
	gs, _ = mustApply(t, e, gs, Action{Seat: 3, Type: ActRiichi, Tile: tileIn(t, gs, 3, North)})
	require.False(t, gs.Round.Players[3].IsDaburi)
	require.Equal(t, 1, gs.Round.Sticks)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, Haku))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 1, Chun))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, Sou7))

	// Both rons stand; the window holds open until the second answers.
	gs, evs := mustApply(t, e, gs, Action{Seat: 3, Type: ActRon})
	require.Empty(t, evs)
	gs, _ = mustApply(t, e, gs, Action{Seat: 1, Type: ActRon})

	res := pendingResult(t, gs)
	require.Equal(t, ResultDoubleRon, res.Type)
	require.Equal(t, 2, res.Loser)
	require.Len(t, res.Winners, 2)
	require.Equal(t, 1, res.Winners[0].Seat)
	require.Equal(t, 3, res.Winners[1].Seat)
	require.ElementsMatch(t, []string{"pinfu", "tanyao"}, yakuNames(res.Winners[0].Yaku))
	require.ElementsMatch(t, []string{"riichi", "pinfu"}, yakuNames(res.Winners[1].Yaku))
	// Seat 3 sits closest counter-clockwise and collects the stick pool.
	require.Equal(t, [4]int{0, 2000, -4000, 3000}, res.Deltas)
	require.Equal(t, 0, res.SticksNext)
	require.Len(t, res.Ura, 1)
	require.Equal(t, [4]int{25000, 27000, 21000, 27000}, res.Scores)
	require.Equal(t, 100000, gs.ScoreTotal())
}

func TestEngine_ExhaustiveDrawAndConfirmFlow(t *testing.T) {
	hands := [4][]Kind{
		{Man1, Man9, Pin1, Pin9, Sou1, Sou9, East, South, West, North, Haku, Hatsu, Chun},
		{Man2, Man2, Man6, Man6, Pin2, Pin2, Pin6, Pin6, Sou2, Sou2, Sou6, Haku, Hatsu},
		{Man3, Man3, Man7, Man7, Pin3, Pin3, Pin7, Pin7, Sou3, Sou3, Sou7, Sou8, Chun},
		{Man4, Man4, Man8, Man8, Pin4, Pin4, Pin8, Pin8, Sou4, Sou4, Sou5, East, West},
	}
	// Simple first discards keep every pile dirty for nagashi purposes.
	live := []Kind{Man5, Man2, Man3, Man4}
	e, gs := scriptedGame(t, hands, live, nil)

	// Everyone plays the stand-in move until the wall runs dry.
	for i := 0; gs.Phase == GamePlaying; i++ {
		require.Less(t, i, 2000, "round did not terminate")
		acted := false
		for s := 0; s < 4; s++ {
			act, ok := e.DefaultAction(gs, s)
			if !ok {
				continue
			}
			gs, _ = mustApply(t, e, gs, act)
			acted = true
			break
		}
		require.True(t, acted, "no seat can act")
	}

	res := pendingResult(t, gs)
	require.Equal(t, ResultExhausted, res.Type)
	require.Equal(t, [4]bool{true, false, false, false}, res.Tenpai)
	require.Equal(t, [4]int{3000, -1000, -1000, -1000}, res.Deltas)
	require.False(t, res.DealerRotates, "tenpai dealer keeps the seat")
	require.Equal(t, 1, res.HonbaNext)
	require.Equal(t, 0, gs.Round.Wall.Remaining())
	require.Equal(t, 100000, gs.ScoreTotal())

	// Confirmation is idempotent and the round advances only on the last one.
	gs, _ = mustApply(t, e, gs, Action{Seat: 0, Type: ActConfirmRound})
	gs, _ = mustApply(t, e, gs, Action{Seat: 0, Type: ActConfirmRound})
	gs, _ = mustApply(t, e, gs, Action{Seat: 1, Type: ActConfirmRound})
	gs, _ = mustApply(t, e, gs, Action{Seat: 2, Type: ActConfirmRound})
	require.Equal(t, GameRoundOver, gs.Phase)
	gs, evs := mustApply(t, e, gs, Action{Seat: 3, Type: ActConfirmRound})

	require.Equal(t, GamePlaying, gs.Phase)
	require.Len(t, eventsOfType(evs, "round_started"), 4)
	require.Equal(t, 0, gs.Round.Dealer)
	require.Equal(t, 1, gs.Round.HandNum)
	require.Equal(t, 1, gs.Round.Honba)
	require.Equal(t, 1, gs.DealersSeen)
	require.Equal(t, 2, gs.RoundSeq)
	require.Equal(t, 28000, gs.Round.Players[0].Score)
}

func TestEngine_ClosedKanRinshanTsumo(t *testing.T) {
	hands := [4][]Kind{
		{Man1, Man1, Man1, Pin2, Pin3, Pin4, Pin5, Pin6, Pin7, Sou8, Sou8, Sou8, Sou5},
		{Man2, Man2, Man3, Man3, Man4, Man4, Pin8, Pin8, Pin9, Pin9, Sou1, Sou1, Sou2},
		{Man5, Man5, Man6, Man6, Man7, Man7, Pin1, Pin1, Sou2, Sou3, Sou4, Sou6, Sou7},
		{Man8, Man8, Man9, Man9, Sou9, Sou9, Sou6, Sou7, Haku, Haku, Hatsu, Chun, Chun},
	}
	live := []Kind{Man1}
	dead := []Kind{Sou5, West, West, West, North, North, East, East, East, South, South, South, South, Hatsu}
	e, gs := scriptedGame(t, hands, live, dead)

	// Fourth copy drawn: closed kan, indicator flips at once, rinshan draw.
	gs, evs := mustApply(t, e, gs, Action{Seat: 0, Type: ActKan, Tile: tileIn(t, gs, 0, Man1)})

	melds := eventsOfType(evs, "meld")
	require.Len(t, melds, 1)
	m := melds[0].Event.(MeldEvent).Meld
	require.Equal(t, MeldClosedKan, m.Kind)
	require.Len(t, m.Tiles, 4)

	doras := eventsOfType(evs, "dora_revealed")
	require.Len(t, doras, 1)
	d := doras[0].Event.(DoraRevealedEvent)
	require.Equal(t, 2, d.Count)
	require.Equal(t, North, d.Indicator.Kind())

	draws := eventsOfType(evs, "draw")
	require.Len(t, draws, 1)
	dr := draws[0].Event.(DrawEvent)
	require.True(t, dr.Rinshan)
	require.Equal(t, Sou5, dr.Tile.Kind())
	require.True(t, gs.Round.Players[0].RinshanDraw)

	gs, _ = mustApply(t, e, gs, Action{Seat: 0, Type: ActTsumo})

	res := pendingResult(t, gs)
	require.Equal(t, ResultTsumo, res.Type)
	w := res.Winners[0]
	require.ElementsMatch(t, []string{"menzen tsumo", "rinshan"}, yakuNames(w.Yaku))
	require.Equal(t, 2, w.Han)
	require.Equal(t, 60, w.Fu)
	require.Equal(t, 6000, w.Points)
	require.Equal(t, [4]int{6000, -2000, -2000, -2000}, res.Deltas)
	require.False(t, res.DealerRotates)
	require.Equal(t, 100000, gs.ScoreTotal())
}

func TestEngine_KyuushuAbort(t *testing.T) {
	hands := [4][]Kind{
		{Man1, Man9, Pin1, Pin9, Sou1, Sou9, East, South, West, Man2, Man3, Man4, Man5},
		{Man2, Man6, Man7, Man7, Pin2, Pin2, Pin6, Pin6, Sou2, Sou2, Sou6, Haku, Haku},
		{Man8, Man8, Pin3, Pin3, Pin7, Pin7, Sou3, Sou3, Sou7, Sou7, Hatsu, Hatsu, North},
		{Man3, Pin4, Pin4, Pin8, Pin8, Sou4, Sou4, Sou8, Sou8, Chun, Chun, North, North},
	}
	e, gs := scriptedGame(t, hands, []Kind{Man6}, nil)

	gs, _ = mustApply(t, e, gs, Action{Seat: 0, Type: ActKyuushu})

	res := pendingResult(t, gs)
	require.Equal(t, ResultAbortive, res.Type)
	require.Equal(t, AbortKyuushu, res.Reason)
	require.Equal(t, [4]int{0, 0, 0, 0}, res.Deltas)
	require.False(t, res.DealerRotates)
	require.Equal(t, 1, res.HonbaNext)
	require.Equal(t, [4]int{25000, 25000, 25000, 25000}, res.Scores)
}

// chankanSetup plays up to the staged added kan: seat 1 pons the dealer's
// Pin5, and three turns later draws the fourth copy. Seat 2 waits on Pin5
// with no yaku beyond the robbery itself.
func chankanSetup(t *testing.T) (*Engine, GameState) {
	t.Helper()
	hands := [4][]Kind{
		{Man5, Man5, Man6, Man6, Pin1, Pin1, Pin2, Pin2, Pin7, Pin7, Sou9, Sou9, Chun},
		{Pin5, Pin5, Man1, Man1, Sou1, Sou1, Sou3, Sou4, West, West, North, Haku, Hatsu},
		{Man2, Man3, Man4, Man7, Man8, Man9, Pin4, Pin6, Sou2, Sou2, Sou8, Sou8, Sou8},
		{Man3, Man3, Pin3, Pin3, Pin8, Pin8, Sou7, Sou7, Man8, Man8, Sou3, Sou4, North},
	}
	live := []Kind{Pin5, North, Hatsu, Chun, Pin5}
	dead := []Kind{South, East, East, East, East, Sou5, Sou5, Sou5, Sou5, Sou6, Sou6, Sou6, Sou6, South}
	e, gs := scriptedGame(t, hands, live, dead)

	// The kanchan wait alone carries no yaku, so the plain discard offers
	// seat 2 nothing and only the pon opens.
	gs, evs := mustApply(t, e, gs, discard(t, gs, 0, Pin5))
	prompts := eventsOfType(evs, "call_prompt")
	require.Len(t, prompts, 1)
	require.Equal(t, 1, prompts[0].Event.(CallPromptEvent).Seat)

	gs, _ = mustApply(t, e, gs, Action{Seat: 1, Type: ActPon})
	require.Equal(t, 1, gs.Round.Current)
	gs, _ = mustApply(t, e, gs, discard(t, gs, 1, Haku))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, North))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 3, Hatsu))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, Chun))

	require.Equal(t, Pin5, gs.Round.Players[1].Drawn.Kind())
	gs, evs = mustApply(t, e, gs, Action{Seat: 1, Type: ActKan, Tile: gs.Round.Players[1].Drawn})

	prompts = eventsOfType(evs, "call_prompt")
	require.Len(t, prompts, 1)
	cpe := prompts[0].Event.(CallPromptEvent)
	require.Equal(t, 2, cpe.Seat)
	require.True(t, cpe.Chankan)
	require.NotNil(t, gs.Round.Prompt)
	require.True(t, gs.Round.Prompt.Chankan)
	// The pon is not upgraded while the window is open.
	require.Equal(t, MeldPon, gs.Round.Players[1].Melds[0].Kind)
	return e, gs
}

func TestEngine_ChankanRobsTheKan(t *testing.T) {
	e, gs := chankanSetup(t)

	gs, _ = mustApply(t, e, gs, Action{Seat: 2, Type: ActRon})

	res := pendingResult(t, gs)
	require.Equal(t, ResultRon, res.Type)
	require.Equal(t, 1, res.Loser, "the kan seat pays, not the original discarder")
	w := res.Winners[0]
	require.Equal(t, 2, w.Seat)
	require.Equal(t, []string{"chankan"}, yakuNames(w.Yaku))
	require.Equal(t, 1, w.Han)
	require.Equal(t, 40, w.Fu)
	require.Equal(t, 1300, w.Points)
	require.Equal(t, [4]int{0, -1300, 1300, 0}, res.Deltas)
	require.True(t, res.DealerRotates)
	// The robbed kan never completes.
	require.Equal(t, MeldPon, gs.Round.Players[1].Melds[0].Kind)
	require.Len(t, gs.Round.Players[1].Melds[0].Tiles, 3)
	require.Equal(t, 100000, gs.ScoreTotal())
}

func TestEngine_AddedKanCompletesWithDeferredDora(t *testing.T) {
	e, gs := chankanSetup(t)

	// Passing completes the kan: the meld upgrades, the replacement tile is
	// drawn, and the new indicator waits for the discard to settle.
	gs, evs := mustApply(t, e, gs, Action{Seat: 2, Type: ActPass})
	melds := eventsOfType(evs, "meld")
	require.Len(t, melds, 1)
	m := melds[0].Event.(MeldEvent).Meld
	require.Equal(t, MeldAddedKan, m.Kind)
	require.Len(t, m.Tiles, 4)
	require.Empty(t, eventsOfType(evs, "dora_revealed"))
	require.Equal(t, 1, gs.Round.PendingDora)
	draws := eventsOfType(evs, "draw")
	require.Len(t, draws, 1)
	require.True(t, draws[0].Event.(DrawEvent).Rinshan)
	require.Equal(t, South, gs.Round.Players[1].Drawn.Kind())
	// Letting the win pass costs the robber its wait until the next draw.
	require.True(t, gs.Round.Players[2].TempFuriten)

	gs, evs = mustApply(t, e, gs, discard(t, gs, 1, South))
	doras := eventsOfType(evs, "dora_revealed")
	require.Len(t, doras, 1)
	d := doras[0].Event.(DoraRevealedEvent)
	require.Equal(t, 2, d.Count)
	require.Equal(t, Sou5, d.Indicator.Kind())
	require.Equal(t, 0, gs.Round.PendingDora)
	require.Equal(t, 2, gs.Round.Current)
}

func TestEngine_MissedRonIsTemporaryFuriten(t *testing.T) {
	hands := [4][]Kind{
		{Man5, Man5, Man9, Man9, Pin1, Pin1, Pin9, Pin9, Sou1, Sou1, Sou9, Haku, Hatsu},
		{Man6, Man6, Man1, Man1, Pin5, Pin5, Sou8, Sou8, Sou9, Haku, Hatsu, Chun, Chun},
		{Man2, Man3, Man4, Pin2, Pin3, Pin4, Pin6, Pin7, Pin8, Sou3, Sou4, Sou6, Sou6},
		{Man7, Man7, Man8, Man8, Pin6, Pin7, Pin8, Sou1, Sou9, Chun, Haku, Hatsu, Man9},
	}
	live := []Kind{Sou5, Sou5, North, Sou5}
	dead := []Kind{West, West, West, East, West, East, East, South, South, South, South, North, North, North}
	e, gs := scriptedGame(t, hands, live, dead)

	// First deal-in passed: the wait is dead until seat 2 draws again.
	gs, evs := mustApply(t, e, gs, discard(t, gs, 0, Sou5))
	require.Len(t, eventsOfType(evs, "call_prompt"), 1)
	gs, evs = mustApply(t, e, gs, Action{Seat: 2, Type: ActPass})
	fur := eventsOfType(evs, "furiten")
	require.Len(t, fur, 1)
	require.True(t, fur[0].Event.(FuritenEvent).Active)
	require.True(t, gs.Round.Players[2].TempFuriten)
	require.True(t, gs.Round.Players[2].Furiten)

	// The same tile from the next seat offers only the chi.
	gs, _ = mustApply(t, e, gs, discard(t, gs, 1, Sou5))
	cp := gs.Round.Prompt
	require.NotNil(t, cp)
	require.Nil(t, cp.offerFor(2, CallRon))
	chi := cp.offerFor(2, CallChi)
	require.NotNil(t, chi)
	require.Len(t, chi.Chi, 2)

	// The own draw lifts the lock.
	gs, evs = mustApply(t, e, gs, Action{Seat: 2, Type: ActPass})
	fur = eventsOfType(evs, "furiten")
	require.Len(t, fur, 1)
	require.False(t, fur[0].Event.(FuritenEvent).Active)
	require.False(t, gs.Round.Players[2].TempFuriten)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, North))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 3, Sou5))
	gs, _ = mustApply(t, e, gs, Action{Seat: 2, Type: ActRon})

	res := pendingResult(t, gs)
	require.Equal(t, ResultRon, res.Type)
	require.Equal(t, 3, res.Loser)
	require.ElementsMatch(t, []string{"tanyao", "pinfu"}, yakuNames(res.Winners[0].Yaku))
	require.Equal(t, [4]int{0, 0, 2000, -2000}, res.Deltas)
	require.Equal(t, [4]int{25000, 25000, 27000, 23000}, res.Scores)
}

func TestEngine_RiichiFuritenIsPermanent(t *testing.T) {
	hands := [4][]Kind{
		{Man1, Man1, Man5, Man5, Pin1, Pin1, Pin6, Pin6, Sou1, Sou1, Haku, Man6, Pin9},
		{Man2, Man3, Man4, Man7, Man8, Man9, Pin2, Pin3, Pin4, Sou5, Sou5, Sou7, Sou8},
		{Man5, Man6, Man9, Pin5, Pin6, Pin9, Pin8, Sou3, Sou4, Sou1, Chun, Hatsu, East},
		{Man2, Man6, Man9, Pin2, Pin7, Pin8, Pin9, Sou2, Sou3, West, Hatsu, Chun, North},
	}
	live := []Kind{East, West, Sou6, Hatsu, Chun, North, Sou9}
	e, gs := scriptedGame(t, hands, live, nil)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, East))
	gs, _ = mustApply(t, e, gs, Action{Seat: 1, Type: ActRiichi, Tile: tileIn(t, gs, 1, West)})
	require.True(t, gs.Round.Players[1].IsRiichi)
	require.Equal(t, 1, gs.Round.Sticks)

	// Declining a winning tile locks a riichi hand out for the round.
	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, Sou6))
	require.NotNil(t, gs.Round.Prompt.offerFor(1, CallRon))
	gs, evs := mustApply(t, e, gs, Action{Seat: 1, Type: ActPass})
	fur := eventsOfType(evs, "furiten")
	require.Len(t, fur, 1)
	require.True(t, fur[0].Event.(FuritenEvent).Active)
	require.True(t, gs.Round.Players[1].RiichiFuriten)

	gs, _ = mustApply(t, e, gs, discard(t, gs, 3, Hatsu))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 0, Chun))
	// The draw clears only the temporary flag; the riichi lock stays.
	p := gs.Round.Players[1]
	require.False(t, p.TempFuriten)
	require.True(t, p.RiichiFuriten)
	require.True(t, p.Furiten)
	require.Equal(t, North, p.Drawn.Kind())

	gs, _ = mustApply(t, e, gs, discard(t, gs, 1, North))
	gs, _ = mustApply(t, e, gs, discard(t, gs, 2, Sou9))

	// The other wait passes by without a window.
	require.Nil(t, gs.Round.Prompt)
	require.Equal(t, 3, gs.Round.Current)
	require.True(t, gs.Round.Players[1].RiichiFuriten)
}

func TestEngine_ApplyRejections(t *testing.T) {
	hands := [4][]Kind{
		{Man2, Man3, Man4, Man7, Man8, Man9, Pin2, Pin3, Pin4, Sou4, Sou5, Sou6, Sou6},
		{Man1, Man1, Man5, Man5, Pin1, Pin1, Pin6, Pin6, Sou1, Sou1, East, East, South},
		{Man6, Man6, Pin5, Pin5, Pin7, Pin7, Sou8, Sou8, West, West, North, North, Haku},
		{Pin8, Pin8, Pin9, Pin9, Sou7, Sou7, Sou9, Sou9, Hatsu, Hatsu, Chun, Chun, South},
	}
	e, gs := scriptedGame(t, hands, []Kind{Sou3}, nil)

	cases := []struct {
		name       string
		act        Action
		fabricated bool
	}{
		{"out of range seat", Action{Seat: 7, Type: ActTsumo}, true},
		{"tile id out of range", Action{Seat: 0, Type: ActDiscard, Tile: Tile(999)}, true},
		{"not your turn", Action{Seat: 1, Type: ActDiscard, Tile: TileOf(Man1, 0)}, false},
		{"tile not held", Action{Seat: 0, Type: ActDiscard, Tile: TileOf(Chun, 0)}, false},
		{"ron outside a window", Action{Seat: 0, Type: ActRon}, false},
		{"confirm with no result", Action{Seat: 0, Type: ActConfirmRound}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			after, evs, err := e.Apply(gs, tc.act)
			require.Error(t, err)
			var re *RuleError
			require.ErrorAs(t, err, &re)
			require.Equal(t, tc.fabricated, re.Fabricated)
			require.Empty(t, evs)
			// The rejected state is handed back untouched.
			require.Equal(t, GamePlaying, after.Phase)
			require.Equal(t, 0, after.Round.Current)
			require.Equal(t, Sou3, after.Round.Players[0].Drawn.Kind())
		})
	}
}

func TestGameOverConditions(t *testing.T) {
	build := func(scores [4]int, dealersSeen, dealer int, rules Rules) GameState {
		gs := GameState{Rules: rules, DealersSeen: dealersSeen}
		gs.Round.Dealer = dealer
		for s := range gs.Round.Players {
			gs.Round.Players[s] = newPlayer(s, scores[s])
		}
		return gs
	}
	east := DefaultRules()
	east.Length = LengthEast
	noExt := DefaultRules()
	noExt.Enchousen = false

	cases := []struct {
		name        string
		scores      [4]int
		dealersSeen int
		dealer      int
		rotates     bool
		rules       Rules
		wantReason  string
		wantOver    bool
	}{
		{"busted seat ends at once", [4]int{52000, -1000, 25000, 24000}, 3, 2, true, DefaultRules(), "player_busted", true},
		{"hanchan ends past the target", [4]int{31000, 23000, 23000, 23000}, 8, 3, true, DefaultRules(), "length_exhausted", true},
		{"everyone short extends the game", [4]int{29000, 24000, 24000, 23000}, 8, 3, true, DefaultRules(), "", false},
		{"no extension ends regardless", [4]int{29000, 24000, 24000, 23000}, 8, 3, true, noExt, "length_exhausted", true},
		{"extension stops at the target", [4]int{31000, 23000, 23000, 23000}, 9, 0, false, DefaultRules(), "target_reached", true},
		{"extension keeps going short of it", [4]int{29000, 24000, 24000, 23000}, 10, 1, true, DefaultRules(), "", false},
		{"extension is capped", [4]int{29000, 24000, 24000, 23000}, 12, 3, true, DefaultRules(), "length_exhausted", true},
		{"leading dealer stops on the last hand", [4]int{20000, 20000, 20000, 40000}, 8, 3, false, DefaultRules(), "dealer_hold", true},
		{"trailing dealer must play on", [4]int{41000, 20000, 19000, 20000}, 8, 3, false, DefaultRules(), "", false},
		{"mid-game rotation continues", [4]int{40000, 20000, 20000, 20000}, 4, 3, true, DefaultRules(), "", false},
		{"east game length is four dealerships", [4]int{35000, 22000, 22000, 21000}, 4, 3, true, east, "length_exhausted", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gs := build(tc.scores, tc.dealersSeen, tc.dealer, tc.rules)
			reason, over := gameOver(&gs, RoundResult{DealerRotates: tc.rotates})
			require.Equal(t, tc.wantOver, over)
			require.Equal(t, tc.wantReason, reason)
		})
	}
}
