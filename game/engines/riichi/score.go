package riichi

import "errors"

// ErrNoYaku rejects a winning shape that carries no yaku; such a hand may
// not be declared.
var ErrNoYaku = errors.New("winning hand has no yaku")

// errNotWinning guards the scorer against a hand that is not complete at
// all; callers verify the wait before scoring, so hitting it is a bug.
var errNotWinning = errors.New("hand is not a winning shape")

// WinContext carries everything about the win that is not in the tiles.
type WinContext struct {
	Seat   int
	Dealer int
	// Loser is the discarder on ron, -1 on tsumo.
	Loser     int
	RoundWind Wind
	SeatWind  Wind

	WinTile Tile
	Tsumo   bool

	Riichi  bool
	Daburi  bool
	Ippatsu bool

	Chankan bool
	Rinshan bool
	Haitei  bool
	Houtei  bool
	Tenhou  bool
	Chihou  bool

	Honba          int
	DoraIndicators []Tile
	UraIndicators  []Tile
}

// ScoreResult is the settled value of one winning hand.
type ScoreResult struct {
	Han    int
	Fu     int
	Yaku   []YakuValue
	Points int // winner's total take, stick pool excluded
	Deltas [4]int
}

// Scorer values a winning hand. The hand excludes the winning tile, which
// arrives in the context.
type Scorer interface {
	ScoreHand(hand []Tile, melds []Meld, ctx WinContext) (ScoreResult, error)
}

// StandardScorer implements riichi scoring: every decomposition of the hand
// is valued and the best one wins.
type StandardScorer struct{}

func NewStandardScorer() *StandardScorer { return &StandardScorer{} }

func (s *StandardScorer) ScoreHand(hand []Tile, melds []Meld, ctx WinContext) (ScoreResult, error) {
	winKind := ctx.WinTile.Kind()
	concealed := CountsOf(hand...)
	concealed[winKind]++

	menzen := true
	for _, m := range melds {
		if m.Open() {
			menzen = false
		}
	}
	allKinds := concealed
	for _, m := range melds {
		for _, t := range m.Tiles {
			allKinds[t.Kind()]++
		}
	}

	cands := winCandidates(concealed, melds, winKind, ctx.Tsumo)
	if len(melds) == 0 {
		if isChiitoiShape(concealed) {
			cands = append(cands, chiitoiCandidate(concealed))
		}
		if isKokushiShape(concealed) {
			cands = append(cands, candidate{kokushi: true, wait: waitTanki})
		}
	}
	if len(cands) == 0 {
		return ScoreResult{}, errNotWinning
	}

	best := ScoreResult{}
	found := false
	for _, cnd := range cands {
		yc := &yakuContext{
			win:      ctx,
			groups:   cnd.groups,
			wait:     cnd.wait,
			chiitoi:  cnd.chiitoi,
			kokushi:  cnd.kokushi,
			menzen:   menzen,
			winKind:  winKind,
			allKinds: allKinds,
		}
		if cnd.kokushi {
			yc.kokushi13 = kokushiThirteenWait(concealed, winKind)
		}
		res, ok := s.valueCandidate(yc, ctx)
		if !ok {
			continue
		}
		if !found || better(res, best) {
			best = res
			found = true
		}
	}
	if !found {
		return ScoreResult{}, ErrNoYaku
	}
	return best, nil
}

func better(a, b ScoreResult) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.Han != b.Han {
		return a.Han > b.Han
	}
	return a.Fu > b.Fu
}

// valueCandidate runs the registries over one interpretation. Yakuman
// preempt everything; otherwise dora joins only once a real yaku exists.
func (s *StandardScorer) valueCandidate(yc *yakuContext, ctx WinContext) (ScoreResult, bool) {
	units := 0
	var yakuman []YakuValue
	for _, entry := range yakumanRegistry {
		if u := entry.check(yc); u > 0 {
			units += u
			yakuman = append(yakuman, YakuValue{Name: entry.name, Han: 13 * u})
		}
	}
	if units > 0 {
		base := 8000 * units
		points, deltas := payments(ctx, base)
		return ScoreResult{
			Han:    13 * units,
			Yaku:   yakuman,
			Points: points,
			Deltas: deltas,
		}, true
	}
	if yc.kokushi {
		return ScoreResult{}, false
	}

	han := 0
	var yaku []YakuValue
	for _, entry := range yakuRegistry {
		if h := entry.check(yc); h > 0 {
			han += h
			yaku = append(yaku, YakuValue{Name: entry.name, Han: h})
		}
	}
	if han == 0 {
		return ScoreResult{}, false
	}
	if d := countDora(yc.allKinds, ctx.DoraIndicators); d > 0 {
		han += d
		yaku = append(yaku, YakuValue{Name: "dora", Han: d})
	}
	if ctx.Riichi {
		if d := countDora(yc.allKinds, ctx.UraIndicators); d > 0 {
			han += d
			yaku = append(yaku, YakuValue{Name: "ura dora", Han: d})
		}
	}
	fu := calcFu(yc)
	points, deltas := payments(ctx, basePoints(han, fu))
	return ScoreResult{Han: han, Fu: fu, Yaku: yaku, Points: points, Deltas: deltas}, true
}

func countDora(all Counts, indicators []Tile) int {
	n := 0
	for _, ind := range indicators {
		n += int(all[DoraFromIndicator(ind.Kind())])
	}
	return n
}

func isChiitoiShape(c Counts) bool {
	pairs := 0
	for _, n := range c {
		switch n {
		case 0:
		case 2:
			pairs++
		default:
			return false
		}
	}
	return pairs == 7
}

func chiitoiCandidate(c Counts) candidate {
	groups := make([]group, 0, 7)
	for k := Kind(0); k < NumKinds; k++ {
		if c[k] == 2 {
			groups = append(groups, group{typ: groupPair, kind: k})
		}
	}
	return candidate{groups: groups, wait: waitTanki, chiitoi: true}
}

func isKokushiShape(c Counts) bool {
	pair := false
	for k := Kind(0); k < NumKinds; k++ {
		n := c[k]
		if n == 0 {
			if k.IsYaochuu() {
				return false
			}
			continue
		}
		if !k.IsYaochuu() || n > 2 {
			return false
		}
		if n == 2 {
			if pair {
				return false
			}
			pair = true
		}
	}
	return pair
}

// kokushiThirteenWait reports the double-yakuman wait: before the win the
// hand held every terminal and honor exactly once.
func kokushiThirteenWait(c Counts, winKind Kind) bool {
	c[winKind]--
	for _, k := range yaochuuKinds {
		if c[k] != 1 {
			return false
		}
	}
	return true
}

// calcFu values one interpretation. Chiitoi is flat 25; pinfu fixes 20/30;
// everything else builds from the base 20.
func calcFu(yc *yakuContext) int {
	if yc.chiitoi {
		return 25
	}
	if pinfuShape(yc) {
		if yc.win.Tsumo {
			return 20
		}
		return 30
	}
	fu := 20
	if yc.menzen && !yc.win.Tsumo {
		fu += 10
	}
	if yc.win.Tsumo {
		fu += 2
	}
	for _, g := range yc.groups {
		switch g.typ {
		case groupTriplet:
			v := 4
			if g.open || g.ronOpen {
				v = 2
			}
			if g.kind.IsYaochuu() {
				v *= 2
			}
			fu += v
		case groupKan:
			v := 16
			if g.open {
				v = 8
			}
			if g.kind.IsYaochuu() {
				v *= 2
			}
			fu += v
		case groupPair:
			if g.kind.IsDragon() {
				fu += 2
			}
			if g.kind == yc.win.SeatWind.Kind() {
				fu += 2
			}
			if g.kind == yc.win.RoundWind.Kind() {
				fu += 2
			}
		}
	}
	fu += yc.wait.fu()
	// An open hand that collected nothing still settles at 30.
	if !yc.menzen && fu == 20 {
		fu = 30
	}
	return roundUpTo10(fu)
}

// basePoints applies the limit ladder: fixed values from mangan up, the
// fu-doubling formula below it, capped at mangan.
func basePoints(han, fu int) int {
	switch {
	case han >= 13:
		return 8000
	case han >= 11:
		return 6000
	case han >= 8:
		return 4000
	case han >= 6:
		return 3000
	case han == 5:
		return 2000
	}
	base := fu * (1 << (2 + han))
	if base > 2000 {
		base = 2000
	}
	return base
}

// payments turns base points into the winner's take and the per-seat deltas,
// honba included.
func payments(ctx WinContext, base int) (int, [4]int) {
	var deltas [4]int
	dealerWin := ctx.Seat == ctx.Dealer
	if ctx.Tsumo {
		total := 0
		for s := 0; s < 4; s++ {
			if s == ctx.Seat {
				continue
			}
			pay := roundUpTo100(base)
			if dealerWin || s == ctx.Dealer {
				pay = roundUpTo100(base * 2)
			}
			pay += ctx.Honba * 100
			deltas[s] -= pay
			total += pay
		}
		deltas[ctx.Seat] = total
		return total, deltas
	}
	total := roundUpTo100(base * 4)
	if dealerWin {
		total = roundUpTo100(base * 6)
	}
	total += ctx.Honba * 300
	deltas[ctx.Seat] = total
	if ctx.Loser >= 0 {
		deltas[ctx.Loser] = -total
	}
	return total, deltas
}

func roundUpTo100(n int) int {
	return (n + 99) / 100 * 100
}

func roundUpTo10(n int) int {
	return (n + 9) / 10 * 10
}
