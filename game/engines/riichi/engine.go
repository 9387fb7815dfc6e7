package riichi

import "encoding/binary"

// ActionType enumerates everything a seat may ask the engine to do.
type ActionType int

const (
	ActDiscard ActionType = iota
	ActRiichi
	ActTsumo
	ActRon
	ActPon
	ActChi
	ActKan
	ActKyuushu
	ActPass
	ActConfirmRound
)

var actionNames = [...]string{
	ActDiscard:      "discard",
	ActRiichi:       "declare_riichi",
	ActTsumo:        "declare_tsumo",
	ActRon:          "call_ron",
	ActPon:          "call_pon",
	ActChi:          "call_chi",
	ActKan:          "call_kan",
	ActKyuushu:      "call_kyuushu",
	ActPass:         "pass",
	ActConfirmRound: "confirm_round",
}

func (a ActionType) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// ParseActionType inverts String for wire decoding.
func ParseActionType(s string) (ActionType, bool) {
	for i, name := range actionNames {
		if name == s {
			return ActionType(i), true
		}
	}
	return 0, false
}

// Action is one seat input. Tile selects the discard or the kan kind;
// Sequence carries the two hand tiles of a chi claim.
type Action struct {
	Seat     int
	Type     ActionType
	Tile     Tile
	Sequence [2]Tile
}

// Engine turns (state, action) pairs into (state, events) pairs. It holds
// no per-game state, so one engine serves every table; all game state lives
// in the GameState values it is handed.
type Engine struct {
	Scorer Scorer
	Oracle ShantenOracle
	Walls  WallBuilder
}

// NewEngine wires the default scorer, the caching shanten searcher and the
// seeded wall builder.
func NewEngine() *Engine {
	return &Engine{
		Scorer: NewStandardScorer(),
		Oracle: NewSearcher(),
		Walls:  SeededWallBuilder{},
	}
}

// NewGame creates a fresh game and deals the first round. The returned
// events cover the game start, every seat's deal and the dealer's first
// draw.
func (e *Engine) NewGame(id string, seed []byte, seats [4]SeatInfo, rules Rules) (GameState, []Routed, error) {
	if rules.MaxRonWinners <= 0 {
		rules.MaxRonWinners = 2
	}
	gs := GameState{
		ID:          id,
		Seed:        append([]byte(nil), seed...),
		Rules:       rules,
		Seats:       seats,
		DealersSeen: 1,
	}
	gs.Round = RoundState{Dealer: 0, Wind: WindEast, HandNum: 1}
	for s := 0; s < 4; s++ {
		gs.Round.Players[s] = newPlayer(s, rules.InitialScore)
	}

	events := []Routed{toAll(GameStartedEvent{GameID: id, Seats: seats, Dealer: 0})}
	evs, err := e.startRound(&gs)
	if err != nil {
		return GameState{}, nil, err
	}
	return gs, append(events, evs...), nil
}

// Apply runs one action against a state value. The input state is never
// mutated: on success the caller gets the successor state, on a rule error
// the original one back untouched.
func (e *Engine) Apply(gs GameState, act Action) (GameState, []Routed, error) {
	next := gs.clone()
	events, err := e.apply(&next, act)
	if err != nil {
		return gs, nil, err
	}
	return next, events, nil
}

func (e *Engine) apply(gs *GameState, act Action) ([]Routed, error) {
	if act.Seat < 0 || act.Seat > 3 {
		return nil, fabricatedErr(act.Type.String(), act.Seat, "seat out of range")
	}
	switch gs.Phase {
	case GameFinished:
		return nil, ruleErr(act.Type.String(), act.Seat, "game already finished")
	case GameRoundOver:
		if act.Type != ActConfirmRound {
			return nil, ruleErr(act.Type.String(), act.Seat, "waiting for round confirmation")
		}
		return e.applyConfirm(gs, act.Seat)
	}
	if act.Type == ActConfirmRound {
		return nil, ruleErr(act.Type.String(), act.Seat, "no round result to confirm")
	}
	if gs.Round.Prompt != nil {
		switch act.Type {
		case ActRon, ActPon, ActChi, ActKan, ActPass:
			return e.applyCallResponse(gs, act)
		default:
			return nil, ruleErr(act.Type.String(), act.Seat, "call window open")
		}
	}
	if act.Seat != gs.Round.Current {
		return nil, ruleErr(act.Type.String(), act.Seat, "not your turn")
	}
	switch act.Type {
	case ActDiscard:
		return e.applyDiscard(gs, act, false)
	case ActRiichi:
		return e.applyDiscard(gs, act, true)
	case ActTsumo:
		return e.applyTsumo(gs, act)
	case ActKan:
		return e.applyTurnKan(gs, act)
	case ActKyuushu:
		return e.applyKyuushu(gs, act)
	default:
		return nil, ruleErr(act.Type.String(), act.Seat, "not allowed now")
	}
}

// applyDiscard covers plain discards and riichi declarations; a riichi is a
// discard with the declaration flag and its stick committed only once the
// call window closes without a ron.
func (e *Engine) applyDiscard(gs *GameState, act Action, declareRiichi bool) ([]Routed, error) {
	rs := &gs.Round
	seat := act.Seat
	p := &rs.Players[seat]
	t := act.Tile
	name := act.Type.String()

	if !t.Valid() {
		return nil, fabricatedErr(name, seat, "tile id out of range")
	}
	if !p.holdsTile(t) {
		return nil, ruleErr(name, seat, "tile not in hand")
	}
	if p.IsRiichi && !declareRiichi && p.hasDrawn() && t != p.Drawn {
		return nil, ruleErr(name, seat, "riichi locks the hand to the drawn tile")
	}
	if p.KuikaeKind >= 0 && t.Kind() == p.KuikaeKind && p.holdsOtherKind(p.KuikaeKind) {
		return nil, ruleErr(name, seat, "cannot discard the kind just claimed")
	}
	if declareRiichi {
		if err := e.checkRiichi(gs, p, t); err != nil {
			return nil, err
		}
	}

	tsumogiri := p.hasDrawn() && t == p.Drawn
	p.removeTile(t)
	p.settleDraw()
	p.KuikaeKind = -1
	p.RinshanDraw = false
	p.Discards = append(p.Discards, Discard{Tile: t, Tsumogiri: tsumogiri, Riichi: declareRiichi})
	rs.LastDiscard = t
	rs.LastDiscarder = seat
	rs.WallEmptyAtLast = rs.Wall.Remaining() == 0

	// Snapshot everyone's ippatsu chance for ron scoring, then clear it:
	// any discard ends the window for all seats.
	var snap [4]bool
	for s := range rs.Players {
		snap[s] = rs.Players[s].IsIppatsu
		rs.Players[s].IsIppatsu = false
	}
	riichiSeat := -1
	if declareRiichi {
		p.IsRiichi = true
		p.IsDaburi = len(p.Discards) == 1 && rs.totalMelds() == 0
		p.IsIppatsu = true
		riichiSeat = seat
	}

	events := []Routed{toAll(DiscardEvent{
		Seat:      seat,
		Tile:      t,
		Tsumogiri: tsumogiri,
		Riichi:    declareRiichi,
	})}
	e.refreshFuriten(rs, seat, &events)

	evs, err := e.buildDiscardWindow(gs, seat, t, riichiSeat, snap)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

func (e *Engine) checkRiichi(gs *GameState, p *Player, t Tile) error {
	seat := p.Seat
	if p.IsRiichi {
		return ruleErr("declare_riichi", seat, "already riichi")
	}
	if p.openMelds() {
		return ruleErr("declare_riichi", seat, "hand is open")
	}
	if p.Score < riichiStickValue {
		return ruleErr("declare_riichi", seat, "not enough points for the stick")
	}
	if gs.Round.Wall.Remaining() <= 0 {
		return ruleErr("declare_riichi", seat, "no live tiles left")
	}
	c := p.ConcealedCounts()
	c[t.Kind()]--
	if len(e.Oracle.Waits(c, p.meldCount())) == 0 {
		return ruleErr("declare_riichi", seat, "discard leaves no wait")
	}
	return nil
}

func (e *Engine) applyTsumo(gs *GameState, act Action) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[act.Seat]
	if !p.hasDrawn() {
		return nil, ruleErr("declare_tsumo", act.Seat, "no drawn tile")
	}
	waits := e.Oracle.Waits(p.HandCounts(), p.meldCount())
	won := false
	for _, w := range waits {
		if w == p.Drawn.Kind() {
			won = true
			break
		}
	}
	if !won {
		return nil, ruleErr("declare_tsumo", act.Seat, "hand is not complete")
	}
	return e.endTsumo(gs, act.Seat)
}

// applyTurnKan handles the current seat's own kans. The shape is inferred
// from the hand: four concealed copies make a closed kan, a held pon plus a
// fourth copy an added kan.
func (e *Engine) applyTurnKan(gs *GameState, act Action) ([]Routed, error) {
	rs := &gs.Round
	seat := act.Seat
	p := &rs.Players[seat]
	if !act.Tile.Valid() {
		return nil, fabricatedErr("call_kan", seat, "tile id out of range")
	}
	if !p.hasDrawn() {
		return nil, ruleErr("call_kan", seat, "kan needs the draw in hand")
	}
	if !rs.Wall.CanRinshan() {
		return nil, ruleErr("call_kan", seat, "no replacement tile left")
	}
	k := act.Tile.Kind()
	switch {
	case p.ConcealedCounts()[k] == 4:
		return e.applyClosedKan(gs, seat, k)
	case p.hasPonOf(k) && p.ConcealedCounts()[k] >= 1:
		return e.applyAddedKan(gs, seat, k)
	default:
		return nil, ruleErr("call_kan", seat, "no kan available for that tile")
	}
}

func (e *Engine) applyClosedKan(gs *GameState, seat int, k Kind) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[seat]

	// A riichi hand may only kan the tile it just drew, and only when the
	// fixed wait is untouched.
	if p.IsRiichi {
		if p.Drawn.Kind() != k {
			return nil, ruleErr("call_kan", seat, "riichi allows kan on the drawn tile only")
		}
		before := e.Oracle.Waits(p.HandCounts(), p.meldCount())
		after := p.HandCounts()
		after[k] -= 3
		if !sameKinds(before, e.Oracle.Waits(after, p.meldCount()+1)) {
			return nil, ruleErr("call_kan", seat, "kan would change the riichi wait")
		}
	}

	var tiles []Tile
	called := NoTile
	for _, c := range p.Concealed() {
		if c.Kind() == k {
			tiles = append(tiles, c)
		}
	}
	if p.Drawn.Kind() == k {
		called = p.Drawn
	} else {
		called = tiles[0]
	}
	for _, c := range tiles {
		p.removeTile(c)
	}
	p.settleDraw()
	sortTiles(tiles)
	meld := Meld{Kind: MeldClosedKan, Tiles: tiles, Caller: seat, From: seat, Called: called}
	p.Melds = append(p.Melds, meld)
	for s := range rs.Players {
		rs.Players[s].IsIppatsu = false
	}

	events := []Routed{toAll(MeldEvent{Meld: meld})}
	e.refreshFuriten(rs, seat, &events)
	evs, err := e.afterKan(gs, seat, true)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

// applyAddedKan stages the fourth copy on an existing pon and opens the
// chankan window before the kan completes.
func (e *Engine) applyAddedKan(gs *GameState, seat int, k Kind) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[seat]

	added := NoTile
	if p.Drawn.Kind() == k {
		added = p.Drawn
	} else if picked := p.concealedOfKind(k, 1); len(picked) == 1 {
		added = picked[0]
	}
	if added == NoTile {
		return nil, ruleErr("call_kan", seat, "no copy to add to the pon")
	}
	p.removeTile(added)
	p.settleDraw()
	return e.buildChankanWindow(gs, seat, added)
}

func (e *Engine) applyKyuushu(gs *GameState, act Action) ([]Routed, error) {
	rs := &gs.Round
	p := &rs.Players[act.Seat]
	if !p.hasDrawn() {
		return nil, ruleErr("call_kyuushu", act.Seat, "no drawn tile")
	}
	if rs.totalDiscards() != 0 || rs.totalMelds() != 0 {
		return nil, ruleErr("call_kyuushu", act.Seat, "only on an uninterrupted first turn")
	}
	kinds := make(map[Kind]struct{})
	for _, t := range p.Concealed() {
		if t.Kind().IsYaochuu() {
			kinds[t.Kind()] = struct{}{}
		}
	}
	if len(kinds) < 9 {
		return nil, ruleErr("call_kyuushu", act.Seat, "fewer than nine terminal and honor kinds")
	}
	return e.endAbortive(gs, AbortKyuushu, nil)
}

func (e *Engine) applyConfirm(gs *GameState, seat int) ([]Routed, error) {
	if gs.Confirmed[seat] {
		return nil, nil
	}
	gs.Confirmed[seat] = true
	for _, ok := range gs.Confirmed {
		if !ok {
			return nil, nil
		}
	}
	return e.advanceRound(gs)
}

// advanceTurn hands the turn to seat and draws for it, or settles the round
// when the live wall is out.
func (e *Engine) advanceTurn(gs *GameState, seat int) ([]Routed, error) {
	rs := &gs.Round
	rs.Current = seat
	t, w, ok := rs.Wall.Draw()
	if !ok {
		return e.endExhaustive(gs, nil)
	}
	rs.Wall = w
	p := &rs.Players[seat]
	p.Drawn = t
	p.RinshanDraw = false
	// The own draw lifts temporary furiten.
	p.TempFuriten = false
	events := []Routed{toSeat(seat, DrawEvent{Seat: seat, Tile: t})}
	e.refreshFuriten(rs, seat, &events)
	return events, nil
}

// advanceRound applies the rotation decided at round end and deals the next
// hand.
func (e *Engine) advanceRound(gs *GameState) ([]Routed, error) {
	res := gs.Pending
	rs := &gs.Round
	rs.Honba = res.HonbaNext
	rs.Sticks = res.SticksNext
	if res.DealerRotates {
		rs.Dealer = (rs.Dealer + 1) % 4
		gs.DealersSeen++
	}
	windIdx := (gs.DealersSeen - 1) / 4
	if windIdx > int(WindNorth) {
		windIdx = int(WindNorth)
	}
	rs.Wind = Wind(windIdx)
	rs.HandNum = (gs.DealersSeen-1)%4 + 1
	return e.startRound(gs)
}

// startRound builds the wall from the game seed salted with the hand
// sequence, deals, and gives the dealer the first draw.
func (e *Engine) startRound(gs *GameState) ([]Routed, error) {
	order := e.Walls.BuildWall(roundSeed(gs.Seed, gs.RoundSeq))
	gs.RoundSeq++
	wall, hands := NewWall(order)

	prev := &gs.Round
	rs := RoundState{
		Wall:    wall,
		Dealer:  prev.Dealer,
		Wind:    prev.Wind,
		HandNum: prev.HandNum,
		Honba:   prev.Honba,
		Sticks:  prev.Sticks,
		Current: prev.Dealer,
	}
	var scores [4]int
	for s := 0; s < 4; s++ {
		p := newPlayer(s, prev.Players[s].Score)
		p.Hand = hands[s]
		rs.Players[s] = p
		scores[s] = p.Score
	}
	gs.Round = rs
	gs.Phase = GamePlaying
	gs.Pending = nil
	gs.Confirmed = [4]bool{}

	ind := gs.Round.Wall.DoraIndicators()[0]
	var events []Routed
	for s := 0; s < 4; s++ {
		events = append(events, toSeat(s, RoundStartedEvent{
			Seat:          s,
			Hand:          cloneTiles(gs.Round.Players[s].Hand),
			Dealer:        rs.Dealer,
			Wind:          rs.Wind,
			HandNum:       rs.HandNum,
			Honba:         rs.Honba,
			Sticks:        rs.Sticks,
			DoraIndicator: ind,
			Scores:        scores,
		}))
	}
	evs, err := e.advanceTurn(gs, rs.Dealer)
	if err != nil {
		return nil, err
	}
	return append(events, evs...), nil
}

// DefaultAction is the move injected when a seat's timer runs out, and the
// move the stand-in takes for an absent seat: pass any call, confirm any
// result, discard the draw, or after a claim the highest legal hand tile.
func (e *Engine) DefaultAction(gs GameState, seat int) (Action, bool) {
	switch gs.Phase {
	case GameRoundOver:
		if !gs.Confirmed[seat] {
			return Action{Seat: seat, Type: ActConfirmRound}, true
		}
		return Action{}, false
	case GamePlaying:
	default:
		return Action{}, false
	}
	rs := &gs.Round
	if rs.Prompt != nil {
		if rs.Prompt.Pending[seat] {
			return Action{Seat: seat, Type: ActPass}, true
		}
		return Action{}, false
	}
	if rs.Current != seat {
		return Action{}, false
	}
	p := &rs.Players[seat]
	if p.hasDrawn() {
		return Action{Seat: seat, Type: ActDiscard, Tile: p.Drawn}, true
	}
	for i := len(p.Hand) - 1; i >= 0; i-- {
		t := p.Hand[i]
		if p.KuikaeKind >= 0 && t.Kind() == p.KuikaeKind && p.holdsOtherKind(p.KuikaeKind) {
			continue
		}
		return Action{Seat: seat, Type: ActDiscard, Tile: t}, true
	}
	return Action{}, false
}

// winContext assembles the scoring context shared by ron and tsumo; the
// caller fills the win-specific flags.
func (e *Engine) winContext(gs *GameState, seat int, t Tile, tsumo bool) WinContext {
	rs := &gs.Round
	p := &rs.Players[seat]
	ctx := WinContext{
		Seat:           seat,
		Dealer:         rs.Dealer,
		Loser:          -1,
		RoundWind:      rs.Wind,
		SeatWind:       seatWind(seat, rs.Dealer),
		WinTile:        t,
		Tsumo:          tsumo,
		Riichi:         p.IsRiichi,
		Daburi:         p.IsDaburi,
		DoraIndicators: rs.Wall.DoraIndicators(),
	}
	if p.IsRiichi {
		ctx.UraIndicators = rs.Wall.UraIndicators()
	}
	return ctx
}

func seatWind(seat, dealer int) Wind {
	return Wind(((seat - dealer) % 4 + 4) % 4)
}

func roundSeed(seed []byte, seq int) []byte {
	out := make([]byte, len(seed)+4)
	copy(out, seed)
	binary.BigEndian.PutUint32(out[len(seed):], uint32(seq))
	return out
}

func sameKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[Kind]struct{}, len(a))
	for _, k := range a {
		seen[k] = struct{}{}
	}
	for _, k := range b {
		if _, ok := seen[k]; !ok {
			return false
		}
	}
	return true
}
