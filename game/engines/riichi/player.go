package riichi

// Discard is one entry of a seat's discard pile. Called marks a tile that
// was claimed into an opponent's meld; it stays in the pile record because
// furiten still counts it.
type Discard struct {
	Tile      Tile
	Tsumogiri bool
	Riichi    bool
	Called    bool
}

// Player is the per-seat, per-round snapshot. It is pure data: no
// back-pointers into the round, all updates go through the engine which
// clones before mutating.
type Player struct {
	Seat  int
	Score int

	Hand     []Tile // concealed tiles, sorted, 13-3*len(melds) between turns
	Drawn    Tile   // held draw, NoTile between turns
	Melds    []Meld
	Discards []Discard

	IsRiichi      bool
	IsDaburi      bool
	IsIppatsu     bool
	TempFuriten   bool
	RiichiFuriten bool

	// Furiten is the effective state last computed by the engine:
	// temporary, riichi-locked, or discard-pile furiten.
	Furiten bool

	// RinshanDraw marks the held draw as a dead-wall replacement.
	RinshanDraw bool

	// KuikaeKind is the kind the seat just claimed with chi/pon and may
	// not discard on the immediately following discard. -1 when clear.
	KuikaeKind Kind
}

func newPlayer(seat, score int) Player {
	return Player{Seat: seat, Score: score, Drawn: NoTile, KuikaeKind: -1}
}

func (p Player) clone() Player {
	p.Hand = cloneTiles(p.Hand)
	p.Melds = cloneMelds(p.Melds)
	if p.Discards != nil {
		d := make([]Discard, len(p.Discards))
		copy(d, p.Discards)
		p.Discards = d
	}
	return p
}

func (p Player) hasDrawn() bool { return p.Drawn != NoTile }

// Concealed returns hand plus the held draw, the tiles a discard may
// legally come from.
func (p Player) Concealed() []Tile {
	out := cloneTiles(p.Hand)
	if p.hasDrawn() {
		out = append(out, p.Drawn)
	}
	return out
}

// ConcealedCounts is the 34-histogram of hand plus draw.
func (p Player) ConcealedCounts() Counts {
	c := CountsOf(p.Hand...)
	if p.hasDrawn() {
		c[p.Drawn.Kind()]++
	}
	return c
}

// HandCounts is the 34-histogram of the 13-tile hand only.
func (p Player) HandCounts() Counts { return CountsOf(p.Hand...) }

func (p Player) holdsTile(t Tile) bool {
	if p.Drawn == t {
		return true
	}
	for _, h := range p.Hand {
		if h == t {
			return true
		}
	}
	return false
}

// countConcealed counts concealed copies of a kind, draw included.
func (p Player) countConcealed(k Kind) int {
	n := 0
	for _, h := range p.Hand {
		if h.Kind() == k {
			n++
		}
	}
	if p.hasDrawn() && p.Drawn.Kind() == k {
		n++
	}
	return n
}

// concealedOfKind returns the lowest-ID concealed copies of k, draw
// included, up to max tiles.
func (p Player) concealedOfKind(k Kind, max int) []Tile {
	all := p.Concealed()
	sortTiles(all)
	out := make([]Tile, 0, max)
	for _, t := range all {
		if t.Kind() == k {
			out = append(out, t)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

// removeTile drops one physical tile from hand or draw. Reports whether
// it was held.
func (p *Player) removeTile(t Tile) bool {
	if p.Drawn == t {
		p.Drawn = NoTile
		return true
	}
	for i, h := range p.Hand {
		if h == t {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// settleDraw folds the held draw into the hand, used when the discard was
// not the drawn tile itself.
func (p *Player) settleDraw() {
	if !p.hasDrawn() {
		return
	}
	p.Hand = append(p.Hand, p.Drawn)
	p.Drawn = NoTile
	sortTiles(p.Hand)
}

// discardPileKinds is the set of kinds this seat has ever discarded,
// claimed tiles included. Furiten checks read it.
func (p Player) discardPileKinds() map[Kind]struct{} {
	out := make(map[Kind]struct{}, len(p.Discards))
	for _, d := range p.Discards {
		out[d.Tile.Kind()] = struct{}{}
	}
	return out
}

// pileBlocksWaits reports whether any current wait appears in the seat's
// own discard pile.
func (p Player) pileBlocksWaits(waits []Kind) bool {
	if len(waits) == 0 {
		return false
	}
	pile := p.discardPileKinds()
	for _, w := range waits {
		if _, ok := pile[w]; ok {
			return true
		}
	}
	return false
}

// meldCount is the number of called sets, kan counted once.
func (p Player) meldCount() int { return len(p.Melds) }

// holdsOtherKind reports whether any concealed tile is not of kind k,
// i.e. whether a discard restricted away from k is still possible.
func (p Player) holdsOtherKind(k Kind) bool {
	for _, t := range p.Concealed() {
		if t.Kind() != k {
			return true
		}
	}
	return false
}

func (p Player) hasPonOf(k Kind) bool {
	for _, m := range p.Melds {
		if m.Kind == MeldPon && m.TileKind() == k {
			return true
		}
	}
	return false
}

// openMelds reports whether the hand is open (closed kan does not open it).
func (p Player) openMelds() bool {
	for _, m := range p.Melds {
		if m.Open() {
			return true
		}
	}
	return false
}

// kanCount is the number of kans this seat holds.
func (p Player) kanCount() int {
	n := 0
	for _, m := range p.Melds {
		if m.IsKan() {
			n++
		}
	}
	return n
}

// tileBudget checks the hand-size invariant: concealed plus 3 per meld
// (kan counts 3 for hand size) is 13, or 14 while holding the draw.
func (p Player) tileBudget() int {
	n := len(p.Hand) + 3*len(p.Melds)
	if p.hasDrawn() {
		n++
	}
	return n
}
