package riichi

import (
	"errors"
	"sort"
)

// endRon settles one or two ron claims. Winners arrive in counter-clockwise
// distance order from the discarder; the closest one collects the honba
// bonus and the stick pool.
func (e *Engine) endRon(gs *GameState, winners []int, cp *CallPrompt, events []Routed) ([]Routed, error) {
	rs := &gs.Round
	primary := winners[0]
	anyRiichi := false
	var deltas [4]int
	results := make([]WinResult, 0, len(winners))
	for _, seat := range winners {
		p := &rs.Players[seat]
		ctx := e.winContext(gs, seat, cp.Tile, false)
		ctx.Loser = cp.Discarder
		ctx.Chankan = cp.Chankan
		ctx.Houtei = cp.Houtei && !cp.Chankan
		ctx.Ippatsu = cp.Ippatsu[seat]
		if seat == primary {
			ctx.Honba = rs.Honba
		}
		res, err := e.Scorer.ScoreHand(cloneTiles(p.Hand), cloneMelds(p.Melds), ctx)
		if err != nil {
			// Eligibility was checked when the window opened.
			return nil, err
		}
		for s := range deltas {
			deltas[s] += res.Deltas[s]
		}
		results = append(results, WinResult{
			Seat:    seat,
			WinTile: cp.Tile,
			Han:     res.Han,
			Fu:      res.Fu,
			Yaku:    res.Yaku,
			Points:  res.Points,
		})
		if p.IsRiichi {
			anyRiichi = true
		}
	}
	deltas[primary] += rs.Sticks * riichiStickValue

	rotates := true
	for _, seat := range winners {
		if seat == rs.Dealer {
			rotates = false
		}
	}
	honbaNext := 0
	if !rotates {
		honbaNext = rs.Honba + 1
	}
	typ := ResultRon
	if len(results) > 1 {
		typ = ResultDoubleRon
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Seat < results[j].Seat })

	result := RoundResult{
		Type:          typ,
		Winners:       results,
		Loser:         cp.Discarder,
		Deltas:        deltas,
		DealerRotates: rotates,
		HonbaNext:     honbaNext,
		SticksNext:    0,
	}
	if anyRiichi {
		result.Ura = rs.Wall.UraIndicators()
	}
	return e.finishRound(gs, result, events)
}

// endTsumo settles a self-drawn win by the current seat.
func (e *Engine) endTsumo(gs *GameState, seat int) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[seat]
	t := p.Drawn

	ctx := e.winContext(gs, seat, t, true)
	ctx.Ippatsu = p.IsIppatsu
	ctx.Rinshan = p.RinshanDraw
	ctx.Haitei = rs.Wall.Remaining() == 0 && !p.RinshanDraw
	ctx.Honba = rs.Honba
	if len(p.Discards) == 0 && rs.totalMelds() == 0 {
		if seat == rs.Dealer && rs.totalDiscards() == 0 {
			ctx.Tenhou = true
		} else if seat != rs.Dealer {
			ctx.Chihou = true
		}
	}

	res, err := e.Scorer.ScoreHand(cloneTiles(p.Hand), cloneMelds(p.Melds), ctx)
	if err != nil {
		if errors.Is(err, ErrNoYaku) {
			return nil, ruleErr("declare_tsumo", seat, "hand has no yaku")
		}
		return nil, err
	}
	deltas := res.Deltas
	deltas[seat] += rs.Sticks * riichiStickValue

	rotates := seat != rs.Dealer
	honbaNext := 0
	if !rotates {
		honbaNext = rs.Honba + 1
	}
	result := RoundResult{
		Type: ResultTsumo,
		Winners: []WinResult{{
			Seat:    seat,
			WinTile: t,
			Han:     res.Han,
			Fu:      res.Fu,
			Yaku:    res.Yaku,
			Points:  res.Points,
		}},
		Loser:         -1,
		Deltas:        deltas,
		DealerRotates: rotates,
		HonbaNext:     honbaNext,
		SticksNext:    0,
	}
	if p.IsRiichi {
		result.Ura = rs.Wall.UraIndicators()
	}
	return e.finishRound(gs, result, nil)
}

// endExhaustive settles a live wall run dry: nagashi mangan when a pile
// qualifies, otherwise the tenpai payment split. Riichi sticks stay on the
// table either way.
func (e *Engine) endExhaustive(gs *GameState, events []Routed) ([]Routed, error) {
	rs := &gs.Round

	var tenpai [4]bool
	for s := range rs.Players {
		p := &rs.Players[s]
		if p.IsRiichi {
			tenpai[s] = true
			continue
		}
		tenpai[s] = len(e.Oracle.Waits(p.HandCounts(), p.meldCount())) > 0
	}

	var nagashi []int
	for s := range rs.Players {
		p := &rs.Players[s]
		if len(p.Discards) == 0 {
			continue
		}
		clean := true
		for _, d := range p.Discards {
			if d.Called || !d.Tile.Kind().IsYaochuu() {
				clean = false
				break
			}
		}
		if clean {
			nagashi = append(nagashi, s)
		}
	}

	var deltas [4]int
	result := RoundResult{
		Loser:         -1,
		Tenpai:        tenpai,
		DealerRotates: !tenpai[rs.Dealer],
		HonbaNext:     rs.Honba + 1,
		SticksNext:    rs.Sticks,
	}
	if len(nagashi) > 0 {
		// Mangan tsumo payments, no honba.
		result.Type = ResultNagashi
		for _, q := range nagashi {
			total := 0
			for s := range deltas {
				if s == q {
					continue
				}
				pay := 2000
				if s == rs.Dealer || q == rs.Dealer {
					pay = 4000
				}
				deltas[s] -= pay
				total += pay
			}
			deltas[q] += total
			result.Winners = append(result.Winners, WinResult{
				Seat:    q,
				WinTile: NoTile,
				Han:     5,
				Yaku:    []YakuValue{{Name: "nagashi mangan", Han: 5}},
				Points:  total,
			})
		}
	} else {
		result.Type = ResultExhausted
		n := 0
		for _, ok := range tenpai {
			if ok {
				n++
			}
		}
		if n > 0 && n < 4 {
			for s, ok := range tenpai {
				if ok {
					deltas[s] += tenpaiPayment / n
				} else {
					deltas[s] -= tenpaiPayment / (4 - n)
				}
			}
		}
	}
	result.Deltas = deltas
	return e.finishRound(gs, result, events)
}

// endAbortive records an abortive draw: no payments, honba up, dealer
// stays, sticks carry.
func (e *Engine) endAbortive(gs *GameState, reason string, events []Routed) ([]Routed, error) {
	rs := &gs.Round
	result := RoundResult{
		Type:       ResultAbortive,
		Reason:     reason,
		Loser:      -1,
		HonbaNext:  rs.Honba + 1,
		SticksNext: rs.Sticks,
	}
	return e.finishRound(gs, result, events)
}

// finishRound applies the deltas, freezes the round behind the confirmation
// gate, and closes the game when an end condition is met.
func (e *Engine) finishRound(gs *GameState, result RoundResult, events []Routed) ([]Routed, error) {
	rs := &gs.Round
	for s := range rs.Players {
		rs.Players[s].Score += result.Deltas[s]
		result.Scores[s] = rs.Players[s].Score
	}
	rs.Sticks = result.SticksNext
	rs.Phase = RoundFinished
	rs.Prompt = nil
	gs.Pending = &result
	gs.Confirmed = [4]bool{}
	gs.Phase = GameRoundOver
	events = append(events, toAll(RoundEndEvent{Result: result}))

	if reason, over := gameOver(gs, result); over {
		gs.Phase = GameFinished
		// Leftover riichi sticks go to the top finisher.
		if rs.Sticks > 0 {
			top := rankedSeats(gs)[0]
			rs.Players[top].Score += rs.Sticks * riichiStickValue
			rs.Sticks = 0
		}
		events = append(events, toAll(GameEndEvent{Reason: reason, Standings: standings(gs)}))
	}
	return events, nil
}

// gameOver decides whether the game continues past this round: a negative
// score ends it at once, otherwise the dealership count against the game
// length, the enchousen extension, and the leading dealer's right to stop.
func gameOver(gs *GameState, result RoundResult) (string, bool) {
	rs := &gs.Round
	max := rs.Players[0].Score
	for s := range rs.Players {
		if rs.Players[s].Score < 0 {
			return "player_busted", true
		}
		if rs.Players[s].Score > max {
			max = rs.Players[s].Score
		}
	}
	base := gs.Rules.dealershipLimit()
	next := gs.DealersSeen
	if result.DealerRotates {
		next++
	}
	if gs.DealersSeen > base {
		// Extension play: first to the target ends it.
		if max >= gs.Rules.TargetScore {
			return "target_reached", true
		}
		if next > enchousenLimit {
			return "length_exhausted", true
		}
		return "", false
	}
	if result.DealerRotates {
		if next > base {
			if gs.Rules.Enchousen && max < gs.Rules.TargetScore {
				return "", false
			}
			return "length_exhausted", true
		}
		return "", false
	}
	// Renchan on the final dealership: the dealer may stop while holding
	// first place at the target.
	if gs.DealersSeen == base {
		if rankedSeats(gs)[0] == rs.Dealer && rs.Players[rs.Dealer].Score >= gs.Rules.TargetScore {
			return "dealer_hold", true
		}
	}
	return "", false
}

// rankedSeats orders seats by score, ties going to the seat closer to the
// starting east.
func rankedSeats(gs *GameState) [4]int {
	seats := [4]int{0, 1, 2, 3}
	sort.Slice(seats[:], func(i, j int) bool {
		si, sj := seats[i], seats[j]
		a, b := gs.Round.Players[si].Score, gs.Round.Players[sj].Score
		if a != b {
			return a > b
		}
		return si < sj
	})
	return seats
}

func standings(gs *GameState) []Standing {
	ranked := rankedSeats(gs)
	out := make([]Standing, 4)
	for i, seat := range ranked {
		out[i] = Standing{
			Rank:  i + 1,
			Seat:  seat,
			Name:  gs.Seats[seat].Name,
			Score: gs.Round.Players[seat].Score,
		}
	}
	return out
}

// BuildSnapshot assembles a reconnecting seat's complete view of the live
// round: own concealed tiles plus every seat's public state.
func (e *Engine) BuildSnapshot(gs GameState, seat int) SnapshotEvent {
	rs := gs.Round
	p := rs.Players[seat]
	ev := SnapshotEvent{
		Seat:           seat,
		Hand:           cloneTiles(p.Hand),
		Drawn:          p.Drawn,
		Dealer:         rs.Dealer,
		Wind:           rs.Wind,
		HandNum:        rs.HandNum,
		Honba:          rs.Honba,
		Sticks:         rs.Sticks,
		DoraIndicators: rs.Wall.DoraIndicators(),
		Current:        rs.Current,
		WallRemaining:  rs.Wall.Remaining(),
	}
	for s := range rs.Players {
		q := rs.Players[s].clone()
		ev.Scores[s] = q.Score
		ev.Discards[s] = q.Discards
		ev.Melds[s] = q.Melds
		ev.RiichiSeats[s] = q.IsRiichi
	}
	return ev
}
