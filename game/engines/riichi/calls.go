package riichi

// CallResponse is one seat's answer inside an open call window.
type CallResponse struct {
	Kind CallKind
	// Chi holds the two hand tiles completing the sequence when Kind is
	// CallChi.
	Chi [2]Tile
}

// CallPrompt is an open claim window on the most recent discard, or on an
// added kan (chankan). The window stays open until every offered seat has
// answered or no pending answer can beat the best one received.
type CallPrompt struct {
	// Tile is the claimable tile: the discard, or the tile being added to
	// a pon when Chankan is set.
	Tile Tile
	// Discarder is the seat that exposed the tile. For a chankan window it
	// is the seat upgrading its pon.
	Discarder int
	Chankan   bool
	// Houtei marks a window on the final discard: melds are never offered
	// and a winning claim scores houtei.
	Houtei bool

	Offers    [4][]CallOption
	Pending   [4]bool
	Responses [4]*CallResponse

	// RiichiSeat is the discarder when the discard declared riichi; the
	// 1000-point stick is committed only if the window closes without ron.
	// -1 otherwise.
	RiichiSeat int

	// Ippatsu snapshots each seat's ippatsu chance as it stood when the
	// tile was exposed; ron claims score from the snapshot.
	Ippatsu [4]bool
}

func (cp *CallPrompt) clone() *CallPrompt {
	if cp == nil {
		return nil
	}
	c := *cp
	for s := range cp.Offers {
		if cp.Offers[s] != nil {
			opts := make([]CallOption, len(cp.Offers[s]))
			for i, o := range cp.Offers[s] {
				opts[i] = o
				if o.Chi != nil {
					opts[i].Chi = append([][2]Tile(nil), o.Chi...)
				}
			}
			c.Offers[s] = opts
		}
		if cp.Responses[s] != nil {
			r := *cp.Responses[s]
			c.Responses[s] = &r
		}
	}
	return &c
}

func (cp *CallPrompt) offerFor(seat int, kind CallKind) *CallOption {
	for i := range cp.Offers[seat] {
		if cp.Offers[seat][i].Kind == kind {
			return &cp.Offers[seat][i]
		}
	}
	return nil
}

// responsePriority orders answers: ron beats every meld, then the meld
// ladder. Passes never compete.
func responsePriority(k CallKind) int {
	if k == CallRon {
		return -1
	}
	return meldPriority(k)
}

// bestPossible is the strongest answer seat could still give.
func (cp *CallPrompt) bestPossible(seat int) int {
	best := 99
	for _, o := range cp.Offers[seat] {
		if p := responsePriority(o.Kind); p < best {
			best = p
		}
	}
	return best
}

// bestReceived is the strongest non-pass answer recorded so far.
func (cp *CallPrompt) bestReceived() int {
	best := 99
	for _, r := range cp.Responses {
		if r == nil || r.Kind == CallPass {
			continue
		}
		if p := responsePriority(r.Kind); p < best {
			best = p
		}
	}
	return best
}

// canClose reports whether no pending seat can still match or beat the best
// answer received. Matching keeps the window open: equal-priority claims need
// the seat tie-break, and a second ron may still join a double ron.
func (cp *CallPrompt) canClose() bool {
	best := cp.bestReceived()
	for seat, pending := range cp.Pending {
		if !pending {
			continue
		}
		if cp.bestPossible(seat) <= best {
			return false
		}
	}
	return true
}

// seatDistance is the counter-clockwise distance from the exposing seat,
// used for claim tie-breaks and for picking the stick/honba winner on a
// double ron.
func (cp *CallPrompt) seatDistance(seat int) int {
	return ((seat - cp.Discarder) % 4 + 4) % 4
}

// buildDiscardWindow computes every seat's claim options on the tile just
// discarded and either opens the window or, when nobody can act, settles it
// immediately.
func (e *Engine) buildDiscardWindow(gs *GameState, discarder int, t Tile, riichiSeat int, snap [4]bool) ([]Routed, error) {
	rs := &gs.Round
	cp := &CallPrompt{
		Tile:       t,
		Discarder:  discarder,
		Houtei:     rs.Wall.Remaining() == 0,
		RiichiSeat: riichiSeat,
		Ippatsu:    snap,
	}
	k := t.Kind()
	for dist := 1; dist < 4; dist++ {
		seat := (discarder + dist) % 4
		p := &rs.Players[seat]
		var opts []CallOption
		if e.canRon(gs, seat, t, false, cp.Houtei, snap[seat]) {
			opts = append(opts, CallOption{Kind: CallRon})
		}
		// Riichi locks a hand: claims are ron only. Nothing may be
		// melded from the final discard either.
		if !p.IsRiichi && !cp.Houtei {
			if p.countConcealed(k) >= 3 && rs.Wall.CanRinshan() {
				opts = append(opts, CallOption{Kind: CallOpenKan})
			}
			if p.countConcealed(k) >= 2 {
				opts = append(opts, CallOption{Kind: CallPon})
			}
			if dist == 1 && k.IsNumber() {
				if seqs := chiCompletions(p, k); len(seqs) > 0 {
					opts = append(opts, CallOption{Kind: CallChi, Chi: seqs})
				}
			}
		}
		if len(opts) > 0 {
			cp.Offers[seat] = opts
			cp.Pending[seat] = true
		}
	}
	rs.Prompt = cp

	var events []Routed
	any := false
	for seat, pending := range cp.Pending {
		if !pending {
			continue
		}
		any = true
		events = append(events, toSeat(seat, CallPromptEvent{
			Seat:      seat,
			Tile:      t,
			Discarder: discarder,
			Options:   cp.Offers[seat],
		}))
	}
	if !any {
		closed, err := e.closeWindow(gs)
		if err != nil {
			return nil, err
		}
		return closed, nil
	}
	return events, nil
}

// buildChankanWindow opens a ron-only window on the tile being added to a
// pon. With no eligible robber the kan completes at once.
func (e *Engine) buildChankanWindow(gs *GameState, kanSeat int, t Tile) ([]Routed, error) {
	rs := &gs.Round
	cp := &CallPrompt{
		Tile:       t,
		Discarder:  kanSeat,
		Chankan:    true,
		RiichiSeat: -1,
	}
	for s := range cp.Ippatsu {
		cp.Ippatsu[s] = rs.Players[s].IsIppatsu
	}
	var events []Routed
	for dist := 1; dist < 4; dist++ {
		seat := (kanSeat + dist) % 4
		if !e.canRon(gs, seat, t, true, false, cp.Ippatsu[seat]) {
			continue
		}
		cp.Offers[seat] = []CallOption{{Kind: CallRon}}
		cp.Pending[seat] = true
		events = append(events, toSeat(seat, CallPromptEvent{
			Seat:      seat,
			Tile:      t,
			Discarder: kanSeat,
			Chankan:   true,
			Options:   cp.Offers[seat],
		}))
	}
	rs.Prompt = cp
	if len(events) == 0 {
		return e.closeWindow(gs)
	}
	return events, nil
}

// canRon checks wait, the three furiten states, and that the hypothetical
// win would actually carry a yaku.
func (e *Engine) canRon(gs *GameState, seat int, t Tile, chankan, houtei, ippatsu bool) bool {
	p := &gs.Round.Players[seat]
	waits := e.Oracle.Waits(p.HandCounts(), p.meldCount())
	k := t.Kind()
	found := false
	for _, w := range waits {
		if w == k {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if p.TempFuriten || p.RiichiFuriten || p.pileBlocksWaits(waits) {
		return false
	}
	ctx := e.winContext(gs, seat, t, false)
	ctx.Chankan = chankan
	ctx.Houtei = houtei
	ctx.Ippatsu = ippatsu
	_, err := e.Scorer.ScoreHand(cloneTiles(p.Hand), cloneMelds(p.Melds), ctx)
	return err == nil
}

// chiCompletions enumerates the distinct two-tile completions for a sequence
// around kind k, taking the lowest-numbered copy of each needed kind.
func chiCompletions(p *Player, k Kind) [][2]Tile {
	n := k.Number()
	var out [][2]Tile
	add := func(a, b Kind) {
		ta, ok := lowestOfKind(p, a)
		if !ok {
			return
		}
		tb, ok := lowestOfKind(p, b)
		if !ok {
			return
		}
		out = append(out, [2]Tile{ta, tb})
	}
	if n >= 3 {
		add(k-2, k-1)
	}
	if n >= 2 && n <= 8 {
		add(k-1, k+1)
	}
	if n <= 7 {
		add(k+1, k+2)
	}
	return out
}

func lowestOfKind(p *Player, k Kind) (Tile, bool) {
	for _, t := range p.Hand {
		if t.Kind() == k {
			return t, true
		}
	}
	return NoTile, false
}

// applyCallResponse records one seat's answer and settles the window as soon
// as it can close.
func (e *Engine) applyCallResponse(gs *GameState, act Action) ([]Routed, error) {
	rs := &gs.Round
	cp := rs.Prompt
	if cp == nil {
		return nil, ruleErr(act.Type.String(), act.Seat, "no call window open")
	}
	if !cp.Pending[act.Seat] {
		return nil, ruleErr(act.Type.String(), act.Seat, "seat has no pending call")
	}
	resp := &CallResponse{Kind: CallPass}
	switch act.Type {
	case ActPass:
	case ActRon:
		resp.Kind = CallRon
	case ActPon:
		resp.Kind = CallPon
	case ActChi:
		resp.Kind = CallChi
		resp.Chi = act.Sequence
	case ActKan:
		resp.Kind = CallOpenKan
	default:
		return nil, ruleErr(act.Type.String(), act.Seat, "not a call response")
	}
	if resp.Kind != CallPass {
		opt := cp.offerFor(act.Seat, resp.Kind)
		if opt == nil {
			return nil, ruleErr(act.Type.String(), act.Seat, "call was not offered")
		}
		if resp.Kind == CallChi && !validChiPick(opt, resp.Chi) {
			return nil, ruleErr(act.Type.String(), act.Seat, "sequence tiles do not complete the discard")
		}
	}
	cp.Pending[act.Seat] = false
	cp.Responses[act.Seat] = resp
	if !cp.canClose() {
		return nil, nil
	}
	return e.closeWindow(gs)
}

func validChiPick(opt *CallOption, pick [2]Tile) bool {
	for _, c := range opt.Chi {
		if (c[0] == pick[0] && c[1] == pick[1]) || (c[0] == pick[1] && c[1] == pick[0]) {
			return true
		}
	}
	return false
}

// closeWindow settles the open window: reveal any deferred kan indicator,
// pay out rons, otherwise apply the winning meld or let play advance.
func (e *Engine) closeWindow(gs *GameState) ([]Routed, error) {
	rs := &gs.Round
	cp := rs.Prompt
	var events []Routed

	// A kan indicator deferred to "after the discard" flips once the
	// discard's window settles, before any ron is scored.
	if !cp.Chankan {
		e.revealPendingDora(rs, &events)
	}

	var rons []int
	for dist := 1; dist < 4; dist++ {
		seat := (cp.Discarder + dist) % 4
		if r := cp.Responses[seat]; r != nil && r.Kind == CallRon {
			rons = append(rons, seat)
		}
	}
	if len(rons) > 0 {
		if len(rons) >= 3 && gs.Rules.MaxRonWinners < 3 {
			return e.endAbortive(gs, AbortTripleRon, events)
		}
		if len(rons) > gs.Rules.MaxRonWinners {
			rons = rons[:gs.Rules.MaxRonWinners]
		}
		return e.endRon(gs, rons, cp, events)
	}

	// Missing a winning tile puts the seat in temporary furiten until its
	// next draw; for a riichi hand the lock is permanent.
	for seat := range cp.Offers {
		if cp.offerFor(seat, CallRon) == nil {
			continue
		}
		p := &rs.Players[seat]
		p.TempFuriten = true
		if p.IsRiichi {
			p.RiichiFuriten = true
		}
		e.refreshFuriten(rs, seat, &events)
	}

	if cp.Chankan {
		rs.Prompt = nil
		evs, err := e.finishKan(gs, cp.Discarder, cp.Tile, true)
		if err != nil {
			return nil, err
		}
		return append(events, evs...), nil
	}

	// The riichi stick hits the table only now that no ron took the hand.
	if cp.RiichiSeat >= 0 {
		p := &rs.Players[cp.RiichiSeat]
		p.Score -= riichiStickValue
		rs.Sticks++
		events = append(events, toAll(RiichiDeclaredEvent{
			Seat:   cp.RiichiSeat,
			Daburi: p.IsDaburi,
			Score:  p.Score,
			Sticks: rs.Sticks,
		}))
	}

	winner, resp := bestMeldResponse(cp)
	if winner >= 0 {
		rs.Prompt = nil
		evs, err := e.applyMeld(gs, winner, cp, resp)
		if err != nil {
			return nil, err
		}
		return append(events, evs...), nil
	}

	// Everybody passed.
	rs.Prompt = nil
	if abortFourWinds(rs) {
		return e.endAbortive(gs, AbortFourWinds, events)
	}
	evs, err := e.advanceTurn(gs, (cp.Discarder+1)%4)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

// bestMeldResponse picks the strongest meld claim, breaking priority ties by
// counter-clockwise distance from the discarder.
func bestMeldResponse(cp *CallPrompt) (int, *CallResponse) {
	winner := -1
	var picked *CallResponse
	best := 99
	for dist := 1; dist < 4; dist++ {
		seat := (cp.Discarder + dist) % 4
		r := cp.Responses[seat]
		if r == nil || r.Kind == CallPass || r.Kind == CallRon {
			continue
		}
		if p := responsePriority(r.Kind); p < best {
			best = p
			winner = seat
			picked = r
		}
	}
	return winner, picked
}

// abortFourWinds reports the four-winds abortive draw: the first four
// discards are the same wind, one per seat, with no meld in between.
func abortFourWinds(rs *RoundState) bool {
	if rs.totalMelds() != 0 || rs.totalDiscards() != 4 {
		return false
	}
	var k Kind = -1
	for s := range rs.Players {
		d := rs.Players[s].Discards
		if len(d) != 1 {
			return false
		}
		dk := d[0].Tile.Kind()
		if !dk.IsWind() {
			return false
		}
		if k < 0 {
			k = dk
		} else if dk != k {
			return false
		}
	}
	return true
}

// applyMeld moves the claimed tile and the caller's matching tiles into a new
// meld and hands the turn to the caller.
func (e *Engine) applyMeld(gs *GameState, seat int, cp *CallPrompt, resp *CallResponse) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[seat]
	t := cp.Tile
	k := t.Kind()

	// The discard stays visible in the pile but is marked claimed; it
	// still counts against the discarder's furiten and nagashi mangan.
	dp := &rs.Players[cp.Discarder]
	if n := len(dp.Discards); n > 0 {
		dp.Discards[n-1].Called = true
	}
	for s := range rs.Players {
		rs.Players[s].IsIppatsu = false
	}

	var events []Routed
	meld := Meld{Caller: seat, From: cp.Discarder, Called: t}
	switch resp.Kind {
	case CallPon:
		pair := p.concealedOfKind(k, 2)
		for _, c := range pair {
			p.removeTile(c)
		}
		meld.Kind = MeldPon
		meld.Tiles = append([]Tile{t}, pair...)
		p.KuikaeKind = k
	case CallChi:
		for _, c := range resp.Chi {
			if !p.removeTile(c) {
				return nil, ruleErr("chi", seat, "sequence tile not in hand")
			}
		}
		meld.Kind = MeldChi
		meld.Tiles = []Tile{t, resp.Chi[0], resp.Chi[1]}
		p.KuikaeKind = k
	case CallOpenKan:
		trip := p.concealedOfKind(k, 3)
		for _, c := range trip {
			p.removeTile(c)
		}
		meld.Kind = MeldOpenKan
		meld.Tiles = append([]Tile{t}, trip...)
	default:
		return nil, ruleErr("call", seat, "not a meld claim")
	}
	sortTiles(meld.Tiles)
	p.Melds = append(p.Melds, meld)
	rs.Current = seat
	events = append(events, toAll(MeldEvent{Meld: meld}))
	e.refreshFuriten(rs, seat, &events)

	if meld.Kind == MeldOpenKan {
		evs, err := e.afterKan(gs, seat, gs.Rules.KanDoraImmediately)
		if err != nil {
			return nil, err
		}
		return append(events, evs...), nil
	}
	return events, nil
}

// finishKan completes a staged added kan once no chankan claim took it.
func (e *Engine) finishKan(gs *GameState, seat int, added Tile, chankanWindow bool) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[seat]
	var events []Routed
	for s := range rs.Players {
		rs.Players[s].IsIppatsu = false
	}
	k := added.Kind()
	upgraded := false
	for i := range p.Melds {
		if p.Melds[i].Kind == MeldPon && p.Melds[i].TileKind() == k {
			p.Melds[i].Kind = MeldAddedKan
			p.Melds[i].Tiles = append(p.Melds[i].Tiles, added)
			sortTiles(p.Melds[i].Tiles)
			p.Melds[i].Called = added
			events = append(events, toAll(MeldEvent{Meld: p.Melds[i]}))
			upgraded = true
			break
		}
	}
	if !upgraded {
		return nil, ruleErr("kan", seat, "no pon to upgrade")
	}
	e.refreshFuriten(rs, seat, &events)
	evs, err := e.afterKan(gs, seat, gs.Rules.KanDoraImmediately)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

// afterKan runs the shared kan epilogue: four-kan abort, indicator timing,
// and the replacement draw. The seat keeps the turn. A closed kan reveals
// its indicator at once; open and added kans follow the rule setting.
func (e *Engine) afterKan(gs *GameState, seat int, immediateDora bool) ([]Routed, error) {
	rs := &gs.Round
	var events []Routed
	if kans, seats := rs.totalKans(); kans >= 4 && seats >= 2 {
		return e.endAbortive(gs, AbortFourKans, events)
	}
	if immediateDora {
		e.revealDora(rs, &events)
	} else {
		rs.PendingDora++
	}
	t, w, ok := rs.Wall.DrawRinshan()
	if !ok {
		return nil, ruleErr("kan", seat, "no replacement tile left")
	}
	rs.Wall = w
	p := &rs.Players[seat]
	p.Drawn = t
	p.RinshanDraw = true
	events = append(events, toSeat(seat, DrawEvent{Seat: seat, Tile: t, Rinshan: true}))
	return events, nil
}

func (e *Engine) revealDora(rs *RoundState, events *[]Routed) {
	ind, w, ok := rs.Wall.RevealDora()
	if !ok {
		return
	}
	rs.Wall = w
	*events = append(*events, toAll(DoraRevealedEvent{
		Indicator: ind,
		Count:     rs.Wall.DoraShown(),
	}))
}

func (e *Engine) revealPendingDora(rs *RoundState, events *[]Routed) {
	for rs.PendingDora > 0 {
		rs.PendingDora--
		e.revealDora(rs, events)
	}
}

// refreshFuriten recomputes the seat's effective furiten and notifies it on
// a flip.
func (e *Engine) refreshFuriten(rs *RoundState, seat int, events *[]Routed) {
	p := &rs.Players[seat]
	active := p.TempFuriten || p.RiichiFuriten
	if !active {
		waits := e.Oracle.Waits(p.HandCounts(), p.meldCount())
		active = len(waits) > 0 && p.pileBlocksWaits(waits)
	}
	if active == p.Furiten {
		return
	}
	p.Furiten = active
	*events = append(*events, toSeat(seat, FuritenEvent{Seat: seat, Active: active}))
}
